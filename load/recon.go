package load

import (
	"context"
	"errors"

	"wmorders/marketplace"
	"wmorders/models"
	"wmorders/notify"
	"wmorders/recon"
	"wmorders/utils/logger"
)

// ReportResult is the outcome of one report date
type ReportResult struct {
	ReportDate string
	Date       string
	Rows       int
	Archived   string
	Skipped    bool
}

// ReconResult lists the report dates processed
type ReconResult struct {
	Reports []ReportResult
}

// Loaded counts the report dates committed
func (r *ReconResult) Loaded() int {
	n := 0
	for _, rr := range r.Reports {
		if !rr.Skipped {
			n++
		}
	}
	return n
}

// Recon loads every available reconciliation report, one transaction per report date
func (l *Loader) Recon(ctx context.Context) (*ReconResult, error) {
	const op = "load.Recon"
	dates, err := l.reports.AvailableReconReports(ctx)
	if err != nil {
		if l.skippable(err) {
			logger.WarnFmt("[%s] report dates unavailable, skipping: %v", op, err)
			return &ReconResult{}, nil
		}
		return nil, err
	}
	res := &ReconResult{}
	for _, date := range dates {
		rr, err := l.report(ctx, date)
		if err != nil {
			return res, err
		}
		res.Reports = append(res.Reports, *rr)
	}
	logger.InfoFmt("[%s] %d of %d report dates loaded", op, res.Loaded(), len(dates))
	return res, nil
}

// Report loads the reconciliation report of one report date
func (l *Loader) Report(ctx context.Context, date string) (*ReportResult, error) {
	return l.report(ctx, date)
}

func (l *Loader) report(ctx context.Context, date string) (*ReportResult, error) {
	const op = "load.Report"
	log := logger.WithFields(map[string]interface{}{"runId": l.runID, "reportDate": date})
	summary := notify.RunSummary{Unit: notify.UnitRecon, ReportDate: date, StartedAt: l.now().UTC()}
	rr := &ReportResult{ReportDate: date}

	data, err := l.reports.ReconReport(ctx, date)
	if err != nil {
		if l.skippable(err) {
			log.Warnf("[%s] download failed, skipping: %v", op, err)
			rr.Skipped = true
			summary.Status = notify.StatusPartial
			summary.Error = err.Error()
			l.publish(ctx, summary)
			return rr, nil
		}
		l.publish(ctx, failed(summary, err))
		return nil, err
	}
	if l.archive != nil {
		name, err := l.archive.Put(ctx, date, data)
		if err != nil {
			log.Warnf("[%s] archive failed: %v", op, err)
		}
		rr.Archived = name
	}

	report, err := l.parse(data, date)
	if err != nil {
		l.publish(ctx, failed(summary, err))
		return nil, err
	}
	if err := l.store.ReplaceRecon(ctx, report); err != nil {
		l.publish(ctx, failed(summary, err))
		return nil, err
	}
	rr.Date = report.Date
	rr.Rows = len(report.Rows)
	summary.Rows = rr.Rows
	summary.Status = notify.StatusOK
	l.publish(ctx, summary)
	log.Infof("[%s] %d rows loaded for %s", op, rr.Rows, rr.Date)
	return rr, nil
}

func (l *Loader) parse(data []byte, date string) (*recon.Report, error) {
	csv, err := recon.Extract(data)
	if err != nil {
		return nil, err
	}
	return recon.Parse(csv, date, l.opts.Recon)
}

func (l *Loader) skippable(err error) bool {
	return l.opts.Policy == marketplace.SkipAndContinue && errors.Is(err, models.ErrHTTP)
}
