package main

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"wmorders/load"
	"wmorders/models"
	"wmorders/recon"

	"github.com/stretchr/testify/assert"
)

func TestCommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["orders"])
	assert.True(t, names["recon"])
	assert.True(t, names["run"])

	orders, _, err := root.Find([]string{"orders"})
	assert.NoError(t, err)
	assert.NotNil(t, orders.Flags().Lookup("start"))
	assert.NotNil(t, root.PersistentFlags().Lookup("on-error"))

	rc, _, err := root.Find([]string{"recon"})
	assert.NoError(t, err)
	assert.NotNil(t, rc.Flags().Lookup("date"))
}

type reportFiles map[string][]byte

func (f reportFiles) AvailableReconReports(ctx context.Context) ([]string, error) {
	return []string{"09202019", "09272019", "10042019"}, nil
}

func (f reportFiles) ReconReport(ctx context.Context, date string) ([]byte, error) {
	return f[date], nil
}

type memStore struct{ reports []*recon.Report }

func (m *memStore) ReplaceOrders(ctx context.Context, since string, b *models.OrderBatch) error {
	return nil
}
func (m *memStore) ReplacePurchaseOrders(ctx context.Context, b *models.OrderBatch) error {
	return nil
}
func (m *memStore) ReplaceRecon(ctx context.Context, r *recon.Report) error {
	m.reports = append(m.reports, r)
	return nil
}

func zipCSV(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("report.csv")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte(body))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReportDates(t *testing.T) {
	files := reportFiles{"09272019": zipCSV(t, "Order,Amount\n1,2.50\n")}
	store := &memStore{}
	l := load.New(nil, files, store, nil, nil, load.Options{Recon: recon.Options{ReportDateLayout: "01022006"}})

	res, err := reportDates(context.Background(), l, []string{"09272019"})
	assert.NoError(t, err)
	assert.Len(t, res.Recon.Reports, 1)
	assert.Equal(t, "2019-09-27", res.Recon.Reports[0].Date)
	assert.Len(t, store.reports, 1)
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, &load.Result{
		Orders: &load.OrdersResult{StartDate: "2020-01-01", Pages: 2, Orders: 3, General: 4, Charges: 4, Refunds: 1, Truncated: true},
		Recon: &load.ReconResult{Reports: []load.ReportResult{
			{ReportDate: "09202019", Date: "2019-09-20", Rows: 12},
			{ReportDate: "09272019", Skipped: true},
		}},
	})
	assert.Equal(t, "orders since 2020-01-01: 3 orders, 4 lines, 4 charges, 1 refunds over 2 pages (partial)\n"+
		"recon 2019-09-20: 12 rows\n"+
		"recon 09272019: skipped\n", buf.String())
}
