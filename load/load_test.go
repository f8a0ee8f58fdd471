package load

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"wmorders/marketplace"
	"wmorders/models"
	"wmorders/notify"
	"wmorders/recon"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token(ctx context.Context) (string, error) { return string(s), nil }

type fakeStore struct {
	mu      sync.Mutex
	since   []string
	batches []*models.OrderBatch
	partial []*models.OrderBatch
	reports []*recon.Report
	err     error
}

func (f *fakeStore) ReplacePurchaseOrders(ctx context.Context, batch *models.OrderBatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.partial = append(f.partial, batch)
	return nil
}

func (f *fakeStore) ReplaceOrders(ctx context.Context, since string, batch *models.OrderBatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.since = append(f.since, since)
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeStore) ReplaceRecon(ctx context.Context, r *recon.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.reports = append(f.reports, r)
	return nil
}

type fakeReports struct {
	dates    []string
	files    map[string][]byte
	datesErr error
}

func (f *fakeReports) AvailableReconReports(ctx context.Context) ([]string, error) {
	return f.dates, f.datesErr
}

func (f *fakeReports) ReconReport(ctx context.Context, date string) ([]byte, error) {
	b, ok := f.files[date]
	if !ok {
		return nil, models.Errorf(models.ErrHTTP, "fake", "GET reconFile: 404 Not Found")
	}
	return b, nil
}

type fakeArchive struct {
	names []string
	err   error
}

func (f *fakeArchive) Put(ctx context.Context, date string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	name := "recon/" + date + ".zip"
	f.names = append(f.names, name)
	return name, nil
}

type fakeNotifier struct {
	sent []notify.RunSummary
}

func (f *fakeNotifier) Publish(ctx context.Context, s notify.RunSummary) error {
	f.sent = append(f.sent, s)
	return nil
}

func orderDoc(po string, lines int) string {
	var ls []string
	for i := 1; i <= lines; i++ {
		ls = append(ls, fmt.Sprintf(`{"lineNumber":"%d","item":{"productName":"Mug","sku":"SKU%d"},
			"charges":{"charge":[{"chargeType":"PRODUCT","chargeName":"ItemPrice","chargeAmount":{"currency":"USD","amount":9.99}}]},
			"orderLineQuantity":{"unitOfMeasurement":"EACH","amount":"1"},
			"orderLineStatuses":{"orderLineStatus":[{"status":"Created","statusQuantity":{"unitOfMeasurement":"EACH","amount":"1"}}]}}`, i, i))
	}
	return fmt.Sprintf(`{"purchaseOrderId":%q,"customerOrderId":"C%s","orderDate":1568466571000,
		"orderLines":{"orderLine":[%s]}}`, po, po, strings.Join(ls, ","))
}

func ordersServer(t *testing.T, pages []string, failAt int) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	n := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		i := n
		n++
		if i == failAt {
			http.Error(w, "upstream timeout", http.StatusGatewayTimeout)
			return
		}
		cursor := ""
		if i < len(pages)-1 {
			cursor = fmt.Sprintf(`,"nextCursor":"?soIndex=%d&createdStartDate=2020-01-01"`, i+1)
		}
		fmt.Fprintf(w, `{"list":{"meta":{"totalCount":%d%s},"elements":{"order":[%s]}}}`, len(pages), cursor, pages[i])
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(srv *httptest.Server, policy marketplace.Policy) *marketplace.Client {
	return marketplace.NewClient(marketplace.Config{BaseURL: srv.URL, ClientID: "id", ClientSecret: "secret", Policy: policy},
		marketplace.NewHTTPClient(marketplace.DefaultService, 5*time.Second, 0), staticToken("tok"))
}

func zipped(t *testing.T, name string, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

var reconOpts = recon.Options{
	DateHeader:       "Transaction Posted Timestamp",
	DateLayout:       "01/02/2006",
	ReportDateLayout: "01022006",
}

func TestOrdersAccumulatesAllPages(t *testing.T) {
	srv := ordersServer(t, []string{
		orderDoc("P1", 2) + "," + orderDoc("P2", 1),
		orderDoc("P3", 1),
	}, -1)
	store := &fakeStore{}
	n := &fakeNotifier{}
	l := New(newClient(srv, marketplace.FailFast), nil, store, nil, n, Options{})

	res, err := l.Orders(context.Background(), "2020-01-01")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 3, res.Orders)
	assert.Equal(t, 4, res.General)
	assert.Equal(t, 4, res.Charges)
	assert.Equal(t, 0, res.Refunds)
	assert.False(t, res.Truncated)

	require.Len(t, store.batches, 1)
	assert.Equal(t, []string{"2020-01-01"}, store.since)
	assert.Equal(t, "P3", store.batches[0].General[3].PurchaseOrderID)

	require.Len(t, n.sent, 1)
	assert.Equal(t, notify.StatusOK, n.sent[0].Status)
	assert.Equal(t, 8, n.sent[0].Rows)
	assert.Equal(t, l.RunID(), n.sent[0].RunID)
}

func TestOrdersEmptyStillReplaces(t *testing.T) {
	srv := ordersServer(t, []string{""}, -1)
	store := &fakeStore{}
	l := New(newClient(srv, marketplace.FailFast), nil, store, nil, nil, Options{})

	res, err := l.Orders(context.Background(), "2020-01-01")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Orders)
	require.Len(t, store.batches, 1)
	assert.Equal(t, 0, store.batches[0].Len())
}

func TestOrdersFailFastWritesNothing(t *testing.T) {
	srv := ordersServer(t, []string{orderDoc("P1", 1), orderDoc("P2", 1)}, 1)
	store := &fakeStore{}
	n := &fakeNotifier{}
	l := New(newClient(srv, marketplace.FailFast), nil, store, nil, n, Options{})

	_, err := l.Orders(context.Background(), "2020-01-01")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrHTTP))
	assert.Empty(t, store.batches)
	require.Len(t, n.sent, 1)
	assert.Equal(t, notify.StatusFailed, n.sent[0].Status)
}

func TestOrdersSkipKeepsPartialData(t *testing.T) {
	srv := ordersServer(t, []string{orderDoc("P1", 1), orderDoc("P2", 1)}, 1)
	store := &fakeStore{}
	n := &fakeNotifier{}
	l := New(newClient(srv, marketplace.SkipAndContinue), nil, store, nil, n, Options{Policy: marketplace.SkipAndContinue})

	res, err := l.Orders(context.Background(), "2020-01-01")
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.False(t, res.Untouched)
	assert.Equal(t, 1, res.Orders)
	assert.Empty(t, store.batches, "range delete must not run on a truncated fetch")
	require.Len(t, store.partial, 1)
	assert.Equal(t, []string{"P1"}, store.partial[0].PurchaseOrderIDs())
	assert.Equal(t, notify.StatusPartial, n.sent[0].Status)
}

func TestOrdersSkipWithNoPageLeavesStoreUntouched(t *testing.T) {
	srv := ordersServer(t, []string{orderDoc("P1", 1)}, 0)
	store := &fakeStore{}
	n := &fakeNotifier{}
	l := New(newClient(srv, marketplace.SkipAndContinue), nil, store, nil, n, Options{Policy: marketplace.SkipAndContinue})

	res, err := l.Orders(context.Background(), "2020-01-01")
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.True(t, res.Untouched)
	assert.Equal(t, 0, res.Pages)
	assert.Empty(t, store.batches)
	assert.Empty(t, store.partial)
	require.Len(t, n.sent, 1)
	assert.Equal(t, notify.StatusFailed, n.sent[0].Status)
	assert.Equal(t, 0, n.sent[0].Rows)
}

func TestOrdersMalformedAborts(t *testing.T) {
	srv := ordersServer(t, []string{`{"purchaseOrderId":"P1","orderLines":{"orderLine":[{"lineNumber":"1"}]}}`}, -1)
	store := &fakeStore{}
	l := New(newClient(srv, marketplace.FailFast), nil, store, nil, nil, Options{})

	_, err := l.Orders(context.Background(), "2020-01-01")
	assert.True(t, errors.Is(err, models.ErrDecode))
	assert.Empty(t, store.batches)
}

func TestOrdersBadStartDate(t *testing.T) {
	l := New(nil, nil, &fakeStore{}, nil, nil, Options{})
	_, err := l.Orders(context.Background(), "01/01/2020")
	assert.True(t, errors.Is(err, models.ErrFormat))
}

func TestOrdersStoreFailure(t *testing.T) {
	srv := ordersServer(t, []string{orderDoc("P1", 1)}, -1)
	store := &fakeStore{err: models.Errorf(models.ErrStore, "fake", "deadlock")}
	l := New(newClient(srv, marketplace.FailFast), nil, store, nil, nil, Options{})

	_, err := l.Orders(context.Background(), "2020-01-01")
	assert.True(t, errors.Is(err, models.ErrStore))
}

const reportCSV = "Walmart.com Order #,Transaction Posted Timestamp,Amount\n" +
	"1001,09/18/2019,12.50\n" +
	"1002,09/19/2019,-3.00\n"

func TestReconLoadsEachDate(t *testing.T) {
	reports := &fakeReports{
		dates: []string{"09202019", "09272019"},
		files: map[string][]byte{
			"09202019": zipped(t, "recon_09202019.csv", reportCSV),
			"09272019": zipped(t, "recon_09272019.csv", reportCSV),
		},
	}
	store := &fakeStore{}
	arch := &fakeArchive{}
	n := &fakeNotifier{}
	l := New(nil, reports, store, arch, n, Options{Recon: reconOpts})

	res, err := l.Recon(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Loaded())
	require.Len(t, store.reports, 2)
	assert.Equal(t, "2019-09-20", store.reports[0].Date)
	assert.Equal(t, "2019-09-27", store.reports[1].Date)
	assert.Equal(t, []interface{}{"1001", "2019-09-18", "12.50", "2019-09-20"}, store.reports[0].Rows[0])
	assert.Equal(t, []string{"recon/09202019.zip", "recon/09272019.zip"}, arch.names)
	assert.Equal(t, "recon/09202019.zip", res.Reports[0].Archived)
	require.Len(t, n.sent, 2)
	assert.Equal(t, 2, n.sent[1].Rows)
}

func TestReconSkipsMissingReport(t *testing.T) {
	reports := &fakeReports{
		dates: []string{"09202019", "09272019"},
		files: map[string][]byte{"09272019": zipped(t, "r.csv", reportCSV)},
	}
	store := &fakeStore{}
	l := New(nil, reports, store, nil, nil, Options{Recon: reconOpts, Policy: marketplace.SkipAndContinue})

	res, err := l.Recon(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Loaded())
	assert.True(t, res.Reports[0].Skipped)
	require.Len(t, store.reports, 1)
	assert.Equal(t, "2019-09-27", store.reports[0].Date)
}

func TestReconFailFastStops(t *testing.T) {
	reports := &fakeReports{
		dates: []string{"09202019", "09272019"},
		files: map[string][]byte{"09272019": zipped(t, "r.csv", reportCSV)},
	}
	store := &fakeStore{}
	l := New(nil, reports, store, nil, nil, Options{Recon: reconOpts})

	_, err := l.Recon(context.Background())
	assert.True(t, errors.Is(err, models.ErrHTTP))
	assert.Empty(t, store.reports)
}

func TestReconArchiveFailureIsNotFatal(t *testing.T) {
	reports := &fakeReports{
		dates: []string{"09202019"},
		files: map[string][]byte{"09202019": zipped(t, "r.csv", reportCSV)},
	}
	store := &fakeStore{}
	l := New(nil, reports, store, &fakeArchive{err: errors.New("bucket gone")}, nil, Options{Recon: reconOpts})

	res, err := l.Recon(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Loaded())
	assert.Equal(t, "", res.Reports[0].Archived)
}

func TestReconRejectsNonZip(t *testing.T) {
	reports := &fakeReports{
		dates: []string{"09202019"},
		files: map[string][]byte{"09202019": []byte("<html>maintenance</html>")},
	}
	n := &fakeNotifier{}
	l := New(nil, reports, &fakeStore{}, nil, n, Options{Recon: reconOpts})

	_, err := l.Recon(context.Background())
	assert.True(t, errors.Is(err, models.ErrDecode))
	require.Len(t, n.sent, 1)
	assert.Equal(t, notify.StatusFailed, n.sent[0].Status)
}

func TestReconEmptyReportIsDecodeError(t *testing.T) {
	for _, body := range []string{"", "\n", "\xef\xbb\xbf"} {
		reports := &fakeReports{
			dates: []string{"09202019"},
			files: map[string][]byte{"09202019": zipped(t, "recon_09202019.csv", body)},
		}
		store := &fakeStore{}
		l := New(nil, reports, store, nil, nil, Options{Recon: reconOpts})

		_, err := l.Recon(context.Background())
		assert.True(t, errors.Is(err, models.ErrDecode), "%q", body)
		assert.Empty(t, store.reports)
	}
}

func TestReconDatesUnavailable(t *testing.T) {
	down := models.Errorf(models.ErrHTTP, "fake", "503")
	l := New(nil, &fakeReports{datesErr: down}, &fakeStore{}, nil, nil, Options{Recon: reconOpts, Policy: marketplace.SkipAndContinue})
	res, err := l.Recon(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Loaded())

	l = New(nil, &fakeReports{datesErr: down}, &fakeStore{}, nil, nil, Options{Recon: reconOpts})
	_, err = l.Recon(context.Background())
	assert.True(t, errors.Is(err, models.ErrHTTP))
}

func TestRunBoth(t *testing.T) {
	srv := ordersServer(t, []string{orderDoc("P1", 1)}, -1)
	reports := &fakeReports{
		dates: []string{"09202019"},
		files: map[string][]byte{"09202019": zipped(t, "r.csv", reportCSV)},
	}
	store := &fakeStore{}
	l := New(newClient(srv, marketplace.FailFast), reports, store, nil, nil, Options{Recon: reconOpts})

	res, err := l.Run(context.Background(), "2020-01-01", true, true)
	require.NoError(t, err)
	require.NotNil(t, res.Orders)
	require.NotNil(t, res.Recon)
	assert.Len(t, store.batches, 1)
	assert.Len(t, store.reports, 1)

	res, err = l.Run(context.Background(), "2020-01-01", false, true)
	require.NoError(t, err)
	assert.Nil(t, res.Orders)
	assert.Len(t, store.batches, 1)
}

func TestDefaultStartDate(t *testing.T) {
	now := time.Date(2020, 3, 15, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "2020-02-14", DefaultStartDate(now, 30))
	assert.Equal(t, "2020-03-14", DefaultStartDate(now, 1))
}
