package recon

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"wmorders/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var opts = Options{
	DateHeader:       "Transaction Posted Timestamp",
	DateLayout:       "01/02/2006",
	OutLayout:        "2006-01-02",
	ReportDateLayout: "01022006",
}

func zipped(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		from    string
		to      string
		want    string
		wantErr bool
	}{
		{name: "report date", in: "07302019", from: "01022006", to: "2006-01-02", want: "2019-07-30"},
		{name: "slashed", in: "09/14/2019", from: "01/02/2006", to: "2006-01-02", want: "2019-09-14"},
		{name: "wrong separator", in: "09-14-2019", from: "01/02/2006", to: "2006-01-02", wantErr: true},
		{name: "trailing text", in: "09/14/2019 10:00", from: "01/02/2006", to: "2006-01-02", wantErr: true},
		{name: "month out of range", in: "13/14/2019", from: "01/02/2006", to: "2006-01-02", wantErr: true},
		{name: "empty", in: "", from: "01022006", to: "2006-01-02", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDate(tt.in, tt.from, tt.to)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, models.ErrFormat))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColumn(t *testing.T) {
	tests := map[string]string{
		"Walmart.com PO #":             "walmart_com_po",
		"Transaction Posted Timestamp": "transaction_posted_timestamp",
		" Net Payable ":                "net_payable",
		"Partner Item ID":              "partner_item_id",
	}
	for in, want := range tests {
		assert.Equal(t, want, Column(in), in)
	}
}

func TestColumns(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   []string
	}{
		{"plain", []string{"PO #", "Amount"}, []string{"po", "amount"}},
		{"symbols only", []string{"Order", "#", "$"}, []string{"order", "col_2", "col_3"}},
		{"collapsing names", []string{"Amount", "Amount ($)", "amount"}, []string{"amount", "amount_2", "amount_3"}},
		{"suffix already taken", []string{"amount_2", "Amount", "Amount"}, []string{"amount_2", "amount", "amount_3"}},
		{"report date header", []string{"Report Available Date"}, []string{"report_available_date_2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Columns(tt.header))
		})
	}
}

func TestParseDistinctColumns(t *testing.T) {
	o := opts
	o.DateHeader = ""
	report, err := Parse([]byte("Amount,Amount ($),#\n1,2,3\n"), "10262019", o)
	require.NoError(t, err)
	assert.Equal(t, []string{"amount", "amount_2", "col_3", ReportDateColumn}, report.Columns)
}

func TestExtract(t *testing.T) {
	data := zipped(t, map[string]string{"README.txt": "x", "10262019_report.csv": "a,b\n1,2\n"})
	csv, err := Extract(data)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(csv))

	_, err = Extract([]byte("a,b\n1,2\n"))
	assert.True(t, errors.Is(err, models.ErrDecode))

	_, err = Extract(zipped(t, map[string]string{"notes.txt": "x"}))
	assert.True(t, errors.Is(err, models.ErrDecode))
}

func TestParse(t *testing.T) {
	csv := "Walmart.com Order #,Transaction Posted Timestamp,Amount\n" +
		"5281956426648,09/14/2019,10.99\n" +
		",,\n" +
		"5281956426649,,-1.50,extra\n" +
		"5281956426650\n"

	report, err := Parse([]byte(csv), "10262019", opts)
	require.NoError(t, err)

	assert.Equal(t, "2019-10-26", report.Date)
	assert.Equal(t, []string{"walmart_com_order", "transaction_posted_timestamp", "amount", ReportDateColumn}, report.Columns)
	require.Len(t, report.Rows, 3)
	assert.Equal(t, []interface{}{"5281956426648", "2019-09-14", "10.99", "2019-10-26"}, report.Rows[0])
	assert.Equal(t, []interface{}{"5281956426649", "", "-1.50", "2019-10-26"}, report.Rows[1])
	assert.Equal(t, []interface{}{"5281956426650", "", "", "2019-10-26"}, report.Rows[2])
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("A,Transaction Posted Timestamp\n1,2019-09-14\n"), "10262019", opts)
	assert.True(t, errors.Is(err, models.ErrFormat))

	_, err = Parse([]byte("A\n1\n"), "2019-10-26", opts)
	assert.True(t, errors.Is(err, models.ErrFormat))

	for _, empty := range []string{"", "\n", "\xef\xbb\xbf", "\xef\xbb\xbf\r\n  \n"} {
		_, err = Parse([]byte(empty), "10262019", opts)
		assert.True(t, errors.Is(err, models.ErrDecode), "%q", empty)
	}
}

func TestExtractThenParseEmptyReport(t *testing.T) {
	for _, body := range []string{"", "\n", "\xef\xbb\xbf"} {
		csv, err := Extract(zipped(t, map[string]string{"09202019.csv": body}))
		require.NoError(t, err)
		_, err = Parse(csv, "09202019", opts)
		assert.True(t, errors.Is(err, models.ErrDecode), "%q", body)
	}
}

func TestParseColumnOverride(t *testing.T) {
	o := opts
	o.DateHeader = ""
	o.Columns = []string{"order_id", "amount"}
	report, err := Parse([]byte("Order,Amt\n1,2\n"), "10262019", o)
	require.NoError(t, err)
	assert.Equal(t, []string{"order_id", "amount", ReportDateColumn}, report.Columns)
	assert.Equal(t, []interface{}{"1", "2", "2019-10-26"}, report.Rows[0])
}
