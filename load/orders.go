package load

import (
	"context"
	"time"

	"wmorders/flatten"
	"wmorders/marketplace"
	"wmorders/models"
	"wmorders/notify"
	"wmorders/utils/logger"
)

// OrdersResult counts what an orders load wrote
type OrdersResult struct {
	StartDate string
	Pages     int
	Orders    int
	General   int
	Charges   int
	Refunds   int
	// Truncated is set when a skipped http failure ended pagination early
	Truncated bool
	// Untouched is set when nothing was fetched and the store was left as is
	Untouched bool
}

// Orders fetches every order created on or after startDate, flattens all pages and
// replaces the range in one transaction. Nothing is written when any page fails.
// When the skip policy ends pagination early only the fetched purchase orders are
// replaced, and a run that fetched no page leaves the store untouched.
func (l *Loader) Orders(ctx context.Context, startDate string) (*OrdersResult, error) {
	const op = "load.Orders"
	summary := notify.RunSummary{Unit: notify.UnitOrders, StartDate: startDate, StartedAt: l.now().UTC()}
	res, err := l.loadOrders(ctx, startDate)
	if err != nil {
		l.publish(ctx, failed(summary, err))
		return nil, err
	}
	summary.Rows = res.General + res.Charges + res.Refunds
	summary.Status = notify.StatusOK
	switch {
	case res.Untouched:
		summary.Status = notify.StatusFailed
		summary.Error = "no page fetched, store left untouched"
	case res.Truncated:
		summary.Status = notify.StatusPartial
	}
	l.publish(ctx, summary)
	logger.InfoFmt("[%s] since %s: %d orders over %d pages", op, startDate, res.Orders, res.Pages)
	return res, nil
}

func (l *Loader) loadOrders(ctx context.Context, startDate string) (*OrdersResult, error) {
	const op = "load.Orders"
	if _, err := time.Parse(DateLayout, startDate); err != nil {
		return nil, models.NewError(models.ErrFormat, op, err)
	}
	pager, err := l.orders.Orders(marketplace.OrderParams{CreatedStartDate: startDate, Limit: l.opts.OrderLimit})
	if err != nil {
		return nil, err
	}

	res := &OrdersResult{StartDate: startDate}
	batch := &models.OrderBatch{}
	for pager.Next(ctx) {
		orders, err := pager.Page().Orders()
		if err != nil {
			return nil, err
		}
		if err := flatten.Orders(orders, batch); err != nil {
			return nil, err
		}
		res.Orders += len(orders)
	}
	if err := pager.Err(); err != nil {
		return nil, err
	}
	res.Pages = pager.Count()
	res.Truncated = pager.Truncated()
	switch {
	case res.Truncated && res.Pages == 0:
		logger.WarnFmt("[%s] no page fetched since %s, store left untouched", op, startDate)
		res.Untouched = true
		return res, nil
	case res.Truncated:
		logger.WarnFmt("[%s] pagination ended early, replacing only the %d orders from %d pages", op, res.Orders, res.Pages)
		if err := l.store.ReplacePurchaseOrders(ctx, batch); err != nil {
			return nil, err
		}
	default:
		if err := l.store.ReplaceOrders(ctx, startDate, batch); err != nil {
			return nil, err
		}
	}
	res.General, res.Charges, res.Refunds = len(batch.General), len(batch.Charges), len(batch.Refunds)
	return res, nil
}
