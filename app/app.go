// Package app builds a ready loader from configuration.
package app

import (
	"context"

	"wmorders/archive"
	"wmorders/auth"
	"wmorders/config"
	"wmorders/db/csql"
	"wmorders/load"
	"wmorders/marketplace"
	"wmorders/notify"
	"wmorders/recon"
	"wmorders/utils/logger"

	"github.com/pkg/errors"
)

// App holds the loader and everything that must be closed after a run
type App struct {
	Config  *config.Config
	Loader  *load.Loader
	closers []func() error
}

// Config loads path, resolves secrets, configures logging and validates
func Config(ctx context.Context, path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := logger.Configure(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	if cfg.NeedsSecrets() {
		sm, err := config.NewSecretManager(ctx)
		if err != nil {
			return nil, err
		}
		defer sm.Close()
		if err := cfg.ResolveSecrets(ctx, sm); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// New wires the token manager, api client, store and optional archive and notifier
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	httpClient := marketplace.NewHTTPClient(cfg.API.ServiceName, cfg.API.Timeout, cfg.API.MaxRetries)
	issuer := auth.NewClientCredentials(cfg.API.BaseURL+marketplace.TokenPath, cfg.API.ClientID, cfg.API.ClientSecret, httpClient)
	tokens := auth.NewManager(tokenStore(cfg), issuer, cfg.Token.MaxAge)
	client := marketplace.NewClient(marketplace.Config{
		BaseURL:      cfg.API.BaseURL,
		ClientID:     cfg.API.ClientID,
		ClientSecret: cfg.API.ClientSecret,
		ChannelType:  cfg.API.ChannelType,
		Policy:       policy,
	}, httpClient, tokens)

	store, err := csql.Open(csql.Config{
		DSN:      cfg.MySQL.DSN,
		Host:     cfg.MySQL.Host,
		User:     cfg.MySQL.User,
		Password: cfg.MySQL.Password,
		Schema:   cfg.MySQL.Schema,
	}, csql.Tables{
		Schema:       cfg.MySQL.Schema,
		OrderGeneral: cfg.Tables.OrderGeneral,
		OrderCharges: cfg.Tables.OrderCharges,
		OrderRefunds: cfg.Tables.OrderRefunds,
		Recon:        cfg.Tables.Recon,
	}, cfg.MySQL.InsertBatch)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)

	var arch load.Archiver
	if cfg.Archive.Bucket != "" {
		g, err := archive.NewGCS(ctx, cfg.Archive.Bucket, cfg.Archive.Prefix)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, g.Close)
		arch = g
	}
	var notifier load.Notifier
	if cfg.Notify.Topic != "" {
		p, err := notify.NewPublisher(ctx, cfg.Notify.Project, cfg.Notify.Topic)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, p.Close)
		notifier = p
	}

	a.Loader = load.New(client, client, store, arch, notifier, load.Options{
		Policy:     policy,
		OrderLimit: cfg.Orders.Limit,
		Recon: recon.Options{
			DateHeader:       cfg.Recon.DateHeader,
			DateLayout:       cfg.Recon.DateLayout,
			ReportDateLayout: cfg.Recon.ReportDateLayout,
			Columns:          cfg.Recon.Columns,
		},
	})
	logger.InfoFmt("[app.New] run %s, on_error=%s", a.Loader.RunID(), policy)
	return a, nil
}

func tokenStore(cfg *config.Config) auth.Store {
	if cfg.Token.RedisAddr != "" {
		return auth.RedisStore{Pool: auth.NewRedisPool(cfg.Token.RedisAddr), Key: cfg.Token.RedisKey}
	}
	return auth.FileStore{Path: cfg.Token.Path}
}

// Close releases every client, errors are logged
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.WarnFmt("[app.Close] %v", err)
		}
	}
	a.closers = nil
}
