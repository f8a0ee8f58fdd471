// Package marketplace talks to the marketplace REST api: signed GETs, cursor
// pagination over list endpoints and the reconciliation report endpoints.
package marketplace

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	"wmorders/models"
	"wmorders/utils/logger"

	"github.com/tidwall/gjson"
)

// Endpoints
const (
	TokenPath         = "/v3/token"
	OrdersPath        = "/v3/orders"
	ReconDatesPath    = "/v3/report/reconreport/availableReconFiles"
	ReconFilePath     = "/v3/report/reconreport/reconFile"
	DefaultBaseURL    = "https://marketplace.walmartapis.com"
	DefaultService    = "Walmart Marketplace"
	DefaultChannel    = "0f3e4dd4-0514-4346-b39d-af0e00ea066d"
	orderEntity       = "order"
	maxErrorBodyBytes = 512
)

// Policy decides what an http failure does to a run
type Policy int

const (
	// FailFast surfaces the failure to the caller
	FailFast Policy = iota
	// SkipAndContinue logs the failure and keeps the data gathered so far
	SkipAndContinue
)

func (p Policy) String() string {
	if p == SkipAndContinue {
		return "skip"
	}
	return "fail"
}

// ParsePolicy reads "fail" or "skip"
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail":
		return FailFast, nil
	case "skip":
		return SkipAndContinue, nil
	}
	return FailFast, fmt.Errorf("unknown http failure policy %q, want fail or skip", s)
}

// TokenSource hands out the bearer token
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Config for the api client
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	ChannelType  string
	Policy       Policy
}

// Client for the marketplace api
type Client struct {
	cfg    Config
	http   *http.Client
	tokens TokenSource
}

// NewClient builds a client, httpClient should come from NewHTTPClient
func NewClient(cfg Config, httpClient *http.Client, tokens TokenSource) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = NewHTTPClient(DefaultService, 0, 0)
	}
	return &Client{cfg: cfg, http: httpClient, tokens: tokens}
}

// Policy is the configured http failure policy
func (c *Client) Policy() Policy {
	return c.cfg.Policy
}

// Get sends an authenticated GET and returns the body of a 2xx response
func (c *Client) Get(ctx context.Context, path string, params url.Values, accept string) ([]byte, error) {
	const op = "marketplace.Get"
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	u := c.cfg.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, models.NewError(models.ErrHTTP, op, err)
	}
	req.Header.Set(HeaderAccessToken, token)
	if c.cfg.ChannelType != "" {
		req.Header.Set(HeaderChannelType, c.cfg.ChannelType)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)

	logger.DebugFmt("[%s] %s", op, u)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, models.NewError(models.ErrHTTP, op, err)
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewError(models.ErrHTTP, op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(body) > maxErrorBodyBytes {
			body = body[:maxErrorBodyBytes]
		}
		return nil, models.Errorf(models.ErrHTTP, op, "GET %s: %s: %s", path, resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// Pages iterates a list endpoint whose documents hold list.elements.<entity>
func (c *Client) Pages(path string, entity string, params url.Values) *Pager {
	return &Pager{client: c, path: path, entity: entity, params: params}
}

// OrderParams are the filters of the orders listing, CreatedStartDate is required
type OrderParams struct {
	CreatedStartDate     string
	CreatedEndDate       string
	Status               string
	Limit                string
	SKU                  string
	CustomerOrderID      string
	PurchaseOrderID      string
	FromExpectedShipDate string
	ToExpectedShipDate   string
}

// Values encodes the non-empty filters
func (p OrderParams) Values() (url.Values, error) {
	if p.CreatedStartDate == "" {
		return nil, models.Errorf(models.ErrFormat, "marketplace.OrderParams", "createdStartDate is required")
	}
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("createdStartDate", p.CreatedStartDate)
	set("createdEndDate", p.CreatedEndDate)
	set("status", p.Status)
	set("limit", p.Limit)
	set("sku", p.SKU)
	set("customerOrderId", p.CustomerOrderID)
	set("purchaseOrderId", p.PurchaseOrderID)
	set("fromExpectedShipDate", p.FromExpectedShipDate)
	set("toExpectedShipDate", p.ToExpectedShipDate)
	return v, nil
}

// Orders pages through all purchase orders matching p
func (c *Client) Orders(p OrderParams) (*Pager, error) {
	v, err := p.Values()
	if err != nil {
		return nil, err
	}
	return c.Pages(OrdersPath, orderEntity, v), nil
}

// AvailableReconReports lists the dates reconciliation reports can be downloaded for
func (c *Client) AvailableReconReports(ctx context.Context) ([]string, error) {
	body, err := c.Get(ctx, ReconDatesPath, nil, "application/json")
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, models.Errorf(models.ErrDecode, "marketplace.AvailableReconReports", "response is not json")
	}
	var dates []string
	for _, d := range gjson.GetBytes(body, "availableApReportDates").Array() {
		if s := d.String(); s != "" {
			dates = append(dates, s)
		}
	}
	logger.InfoFmt("[marketplace.AvailableReconReports] %d report dates", len(dates))
	return dates, nil
}

// ReconReport downloads the zipped reconciliation report of date
func (c *Client) ReconReport(ctx context.Context, date string) ([]byte, error) {
	return c.Get(ctx, ReconFilePath, url.Values{"reportDate": {date}}, "application/octet-stream")
}
