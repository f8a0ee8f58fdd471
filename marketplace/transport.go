package marketplace

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/ybbus/httpretry"
)

// Service headers required on every marketplace call, token issuance included
const (
	HeaderServiceName   = "WM_SVC.NAME"
	HeaderCorrelationID = "WM_QOS.CORRELATION_ID"
	HeaderAccessToken   = "WM_SEC.ACCESS_TOKEN"
	HeaderChannelType   = "WM_CONSUMER.CHANNEL.TYPE"
)

// Transport stamps the service name and a fresh correlation id on each request
type Transport struct {
	Base        http.RoundTripper
	ServiceName string
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set(HeaderServiceName, t.ServiceName)
	r.Header.Set(HeaderCorrelationID, uuid.New().String())
	if r.Header.Get("Accept") == "" {
		r.Header.Set("Accept", "application/json")
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(r)
}

// NewHTTPClient builds the client shared by the token issuer and the api client.
// maxRetries 0 sends every request exactly once.
func NewHTTPClient(serviceName string, timeout time.Duration, maxRetries int) *http.Client {
	base := &http.Client{
		Timeout:   timeout,
		Transport: &Transport{Base: http.DefaultTransport, ServiceName: serviceName},
	}
	return httpretry.NewCustomClient(base, httpretry.WithMaxRetryCount(maxRetries))
}
