package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"wmorders/app"
	"wmorders/load"
	"wmorders/utils/logger"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	onError    string
	startDate  string
	dates      []string
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "wmloader",
		Short:         "Load marketplace orders and reconciliation reports into MySQL",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "yaml config file")
	root.PersistentFlags().StringVar(&o.onError, "on-error", "", "http failure policy: fail or skip")

	orders := &cobra.Command{
		Use:   "orders",
		Short: "Replace orders created on or after --start",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd.Context(), cmd.OutOrStdout(), true, false)
		},
	}
	orders.Flags().StringVar(&o.startDate, "start", "", "created start date YYYY-MM-DD, default lookback_days ago")

	recon := &cobra.Command{
		Use:   "recon",
		Short: "Load every available reconciliation report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd.Context(), cmd.OutOrStdout(), false, true)
		},
	}
	recon.Flags().StringSliceVar(&o.dates, "date", nil, "report dates as listed by the api (MMDDYYYY), default every available date")

	run := &cobra.Command{
		Use:   "run",
		Short: "Load orders then reconciliation reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd.Context(), cmd.OutOrStdout(), true, true)
		},
	}
	run.Flags().StringVar(&o.startDate, "start", "", "created start date YYYY-MM-DD, default lookback_days ago")

	root.AddCommand(orders, recon, run)
	return root
}

func (o *options) run(ctx context.Context, out io.Writer, orders bool, reports bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := app.Config(ctx, o.configPath)
	if err != nil {
		return err
	}
	if o.onError != "" {
		cfg.API.OnError = o.onError
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	start := o.startDate
	if start == "" {
		start = load.DefaultStartDate(time.Now(), cfg.Orders.LookbackDays)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var res *load.Result
	if reports && !orders && len(o.dates) > 0 {
		res, err = reportDates(ctx, a.Loader, o.dates)
	} else {
		res, err = a.Loader.Run(ctx, start, orders, reports)
	}
	if err != nil {
		return errors.Wrapf(logger.Err(err), "run %s", a.Loader.RunID())
	}
	printResult(out, res)
	return nil
}

// reportDates loads the given report dates only, in order
func reportDates(ctx context.Context, l *load.Loader, dates []string) (*load.Result, error) {
	res := &load.Result{Recon: &load.ReconResult{}}
	for _, d := range dates {
		rr, err := l.Report(ctx, d)
		if err != nil {
			return res, err
		}
		res.Recon.Reports = append(res.Recon.Reports, *rr)
	}
	return res, nil
}

func printResult(out io.Writer, res *load.Result) {
	if r := res.Orders; r != nil {
		fmt.Fprintf(out, "orders since %s: %d orders, %d lines, %d charges, %d refunds over %d pages",
			r.StartDate, r.Orders, r.General, r.Charges, r.Refunds, r.Pages)
		if r.Truncated {
			fmt.Fprint(out, " (partial)")
		}
		fmt.Fprintln(out)
	}
	if r := res.Recon; r != nil {
		for _, rr := range r.Reports {
			if rr.Skipped {
				fmt.Fprintf(out, "recon %s: skipped\n", rr.ReportDate)
				continue
			}
			fmt.Fprintf(out, "recon %s: %d rows\n", rr.Date, rr.Rows)
		}
	}
}
