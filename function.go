// Package wmorders is the Pub/Sub triggered cloud function running the marketplace loads.
package wmorders

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"wmorders/app"
	"wmorders/load"
	"wmorders/models"
	"wmorders/utils/logger"

	"cloud.google.com/go/pubsub"
)

// Trigger is the optional message payload, absent fields run everything
type Trigger struct {
	StartDate string `json:"startDate"`
	Orders    *bool  `json:"orders"`
	Recon     *bool  `json:"recon"`
}

// ParseTrigger decodes the message data, empty data is the default trigger
func ParseTrigger(data []byte) (Trigger, error) {
	var t Trigger
	if len(data) == 0 {
		return t, nil
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return t, models.NewError(models.ErrDecode, "wmorders.ParseTrigger", err)
	}
	if t.StartDate != "" {
		if _, err := time.Parse(load.DateLayout, t.StartDate); err != nil {
			return t, models.NewError(models.ErrFormat, "wmorders.ParseTrigger", err)
		}
	}
	return t, nil
}

func (t Trigger) runOrders() bool { return t.Orders == nil || *t.Orders }
func (t Trigger) runRecon() bool  { return t.Recon == nil || *t.Recon }

// Run is the cloud function entry point
func Run(ctx context.Context, m *pubsub.Message) error {
	t, err := ParseTrigger(m.Data)
	if err != nil {
		return logger.Err(err)
	}
	cfg, err := app.Config(ctx, os.Getenv("WMLOADER_CONFIG"))
	if err != nil {
		return logger.Err(err)
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return logger.Err(err)
	}
	defer a.Close()

	start := t.StartDate
	if start == "" {
		start = load.DefaultStartDate(time.Now(), cfg.Orders.LookbackDays)
	}
	if _, err := a.Loader.Run(ctx, start, t.runOrders(), t.runRecon()); err != nil {
		return logger.Err(err)
	}
	return nil
}
