// Package load drives the order and reconciliation loads end to end.
package load

import (
	"context"
	"time"

	"wmorders/marketplace"
	"wmorders/models"
	"wmorders/notify"
	"wmorders/recon"
	"wmorders/utils/logger"
)

// DateLayout of start dates and normalized report dates
const DateLayout = "2006-01-02"

// OrderSource lists orders page by page
type OrderSource interface {
	Orders(p marketplace.OrderParams) (*marketplace.Pager, error)
}

// ReportSource lists and downloads reconciliation reports
type ReportSource interface {
	AvailableReconReports(ctx context.Context) ([]string, error)
	ReconReport(ctx context.Context, date string) ([]byte, error)
}

// Store replaces date ranges in the warehouse
type Store interface {
	ReplaceOrders(ctx context.Context, since string, batch *models.OrderBatch) error
	ReplacePurchaseOrders(ctx context.Context, batch *models.OrderBatch) error
	ReplaceRecon(ctx context.Context, r *recon.Report) error
}

// Archiver keeps the raw report file
type Archiver interface {
	Put(ctx context.Context, reportDate string, data []byte) (string, error)
}

// Notifier receives a summary per unit
type Notifier interface {
	Publish(ctx context.Context, s notify.RunSummary) error
}

// Options of a loader
type Options struct {
	Policy     marketplace.Policy
	OrderLimit string
	Recon      recon.Options
}

// Loader moves marketplace data into the store
type Loader struct {
	orders   OrderSource
	reports  ReportSource
	store    Store
	archive  Archiver
	notifier Notifier
	opts     Options
	runID    string
	now      func() time.Time
}

// New builds a loader. Archive and notifier are optional and may be nil.
func New(orders OrderSource, reports ReportSource, store Store, archive Archiver, notifier Notifier, opts Options) *Loader {
	if opts.Recon.OutLayout == "" {
		opts.Recon.OutLayout = DateLayout
	}
	return &Loader{
		orders:   orders,
		reports:  reports,
		store:    store,
		archive:  archive,
		notifier: notifier,
		opts:     opts,
		runID:    notify.NewRunID(),
		now:      time.Now,
	}
}

// RunID tags every summary published by this loader
func (l *Loader) RunID() string {
	return l.runID
}

// DefaultStartDate is lookbackDays before now
func DefaultStartDate(now time.Time, lookbackDays int) string {
	return now.AddDate(0, 0, -lookbackDays).Format(DateLayout)
}

// Result of a full run
type Result struct {
	Orders *OrdersResult
	Recon  *ReconResult
}

// Run loads orders created since startDate and then every available report,
// either part can be switched off
func (l *Loader) Run(ctx context.Context, startDate string, orders bool, reports bool) (*Result, error) {
	res := &Result{}
	log := logger.WithFields(map[string]interface{}{"runId": l.runID, "startDate": startDate})
	log.Info("run started")
	if orders {
		r, err := l.Orders(ctx, startDate)
		if err != nil {
			return res, err
		}
		res.Orders = r
	}
	if reports {
		r, err := l.Recon(ctx)
		if err != nil {
			return res, err
		}
		res.Recon = r
	}
	log.Info("run finished")
	return res, nil
}

func (l *Loader) publish(ctx context.Context, s notify.RunSummary) {
	if l.notifier == nil {
		return
	}
	s.RunID = l.runID
	s.FinishedAt = l.now().UTC()
	if err := l.notifier.Publish(ctx, s); err != nil {
		logger.WarnFmt("[load.publish] summary of %s not sent: %v", s.Unit, err)
	}
}

func failed(s notify.RunSummary, err error) notify.RunSummary {
	s.Status = notify.StatusFailed
	s.Error = err.Error()
	return s
}
