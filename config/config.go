// Package config loads the loader configuration: a yaml file, environment
// overrides and optional Secret Manager secrets.
package config

import (
	"io/ioutil"
	"os"
	"strconv"
	"strings"
	"time"

	"wmorders/marketplace"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// API settings of the marketplace
type API struct {
	BaseURL      string        `yaml:"base_url"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	ServiceName  string        `yaml:"service_name"`
	ChannelType  string        `yaml:"channel_type"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	OnError      string        `yaml:"on_error"`
}

// Token cache settings, RedisAddr wins over Path when set
type Token struct {
	Path      string        `yaml:"path"`
	RedisAddr string        `yaml:"redis_addr"`
	RedisKey  string        `yaml:"redis_key"`
	MaxAge    time.Duration `yaml:"max_age"`
}

// MySQL warehouse connection
type MySQL struct {
	DSN         string `yaml:"dsn"`
	Host        string `yaml:"host"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Schema      string `yaml:"schema"`
	InsertBatch int    `yaml:"insert_batch"`
}

// Tables are the destination table names
type Tables struct {
	OrderGeneral string `yaml:"order_general"`
	OrderCharges string `yaml:"order_charges"`
	OrderRefunds string `yaml:"order_refunds"`
	Recon        string `yaml:"recon"`
}

// Orders load settings
type Orders struct {
	LookbackDays int    `yaml:"lookback_days"`
	Limit        string `yaml:"limit"`
}

// Recon report settings
type Recon struct {
	ReportDateLayout string   `yaml:"report_date_layout"`
	DateHeader       string   `yaml:"date_header"`
	DateLayout       string   `yaml:"date_layout"`
	Columns          []string `yaml:"columns"`
}

// Archive of raw report files, disabled without a bucket
type Archive struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// Notify publishes run summaries, disabled without a topic
type Notify struct {
	Project string `yaml:"project"`
	Topic   string `yaml:"topic"`
}

// Log settings
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Secrets name Secret Manager versions to read credentials from
type Secrets struct {
	Marketplace string `yaml:"marketplace"`
	Warehouse   string `yaml:"warehouse"`
}

// Config of a loader run
type Config struct {
	API     API     `yaml:"api"`
	Token   Token   `yaml:"token"`
	MySQL   MySQL   `yaml:"mysql"`
	Tables  Tables  `yaml:"tables"`
	Orders  Orders  `yaml:"orders"`
	Recon   Recon   `yaml:"recon"`
	Archive Archive `yaml:"archive"`
	Notify  Notify  `yaml:"notify"`
	Log     Log     `yaml:"log"`
	Secrets Secrets `yaml:"secrets"`
}

// Default returns a config with every default filled in
func Default() *Config {
	return &Config{
		API: API{
			BaseURL:     marketplace.DefaultBaseURL,
			ServiceName: marketplace.DefaultService,
			ChannelType: marketplace.DefaultChannel,
			Timeout:     2 * time.Minute,
			OnError:     "fail",
		},
		Token: Token{
			Path:     "token.json",
			RedisKey: "wmorders:token",
			MaxAge:   860 * time.Second,
		},
		MySQL: MySQL{
			Schema:      "walmart",
			InsertBatch: 500,
		},
		Tables: Tables{
			OrderGeneral: "walmart_order_general_data",
			OrderCharges: "walmart_order_charges",
			OrderRefunds: "walmart_order_refund_data",
			Recon:        "recon_report",
		},
		Orders: Orders{LookbackDays: 30},
		Recon: Recon{
			ReportDateLayout: "01022006",
			DateHeader:       "Transaction Posted Timestamp",
			DateLayout:       "01/02/2006",
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults, "" skips the file, then applies the environment
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("WM_CLIENT_ID", &c.API.ClientID)
	str("WM_CLIENT_SECRET", &c.API.ClientSecret)
	str("WM_BASE_URL", &c.API.BaseURL)
	str("WM_ON_ERROR", &c.API.OnError)
	str("MYSQL_DSN", &c.MySQL.DSN)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("GCP_PROJECT", &c.Notify.Project)
	str("RUN_PUBSUB", &c.Notify.Topic)
	str("RECON_BUCKET", &c.Archive.Bucket)
	str("TOKEN_PATH", &c.Token.Path)
	str("TOKEN_REDIS_ADDR", &c.Token.RedisAddr)
	str("MARKETPLACE_SECRET", &c.Secrets.Marketplace)
	str("DW_SECRET", &c.Secrets.Warehouse)
	if v, ok := lookup("WM_MAX_RETRIES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "WM_MAX_RETRIES")
		}
		c.API.MaxRetries = n
	}
	if v, ok := lookup("LOOKBACK_DAYS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "LOOKBACK_DAYS")
		}
		c.Orders.LookbackDays = n
	}
	return nil
}

// Policy is the parsed api.on_error value
func (c *Config) Policy() (marketplace.Policy, error) {
	return marketplace.ParsePolicy(c.API.OnError)
}

// Validate checks the config is usable for a run
func (c *Config) Validate() error {
	var problems []string
	if c.API.ClientID == "" || c.API.ClientSecret == "" {
		problems = append(problems, "api client id and secret are required")
	}
	if c.API.BaseURL == "" {
		problems = append(problems, "api base url is required")
	}
	if _, err := c.Policy(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.API.MaxRetries < 0 {
		problems = append(problems, "api max_retries must not be negative")
	}
	if c.MySQL.DSN == "" && c.MySQL.Host == "" {
		problems = append(problems, "mysql dsn or host is required")
	}
	if c.MySQL.InsertBatch <= 0 {
		problems = append(problems, "mysql insert_batch must be positive")
	}
	if c.Tables.OrderGeneral == "" || c.Tables.OrderCharges == "" || c.Tables.OrderRefunds == "" || c.Tables.Recon == "" {
		problems = append(problems, "all table names are required")
	}
	if c.Orders.LookbackDays <= 0 {
		problems = append(problems, "orders lookback_days must be positive")
	}
	if !validLayout(c.Recon.ReportDateLayout) || !validLayout(c.Recon.DateLayout) {
		problems = append(problems, "recon date layouts must be go time layouts")
	}
	if c.Notify.Topic != "" && c.Notify.Project == "" {
		problems = append(problems, "notify topic needs a project")
	}
	if len(problems) > 0 {
		return errors.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// validLayout rejects layouts that do not round trip a calendar date
func validLayout(layout string) bool {
	ref := time.Date(2019, time.September, 20, 0, 0, 0, 0, time.UTC)
	out := ref.Format(layout)
	if out == layout {
		return false
	}
	t, err := time.Parse(layout, out)
	return err == nil && t.Equal(ref)
}
