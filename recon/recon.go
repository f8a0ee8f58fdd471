// Package recon unpacks and normalizes the marketplace reconciliation report.
package recon

import (
	"archive/zip"
	"bytes"
	"io"
	"io/ioutil"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"wmorders/models"
	"wmorders/utils/logger"

	"github.com/h2non/filetype"
	"github.com/jfyne/csvd"
)

// ReportDateColumn is appended to every row of a report
const ReportDateColumn = "report_available_date"

var reNonWord = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeDate parses s strictly with the from layout and formats it with the to layout
func NormalizeDate(s string, from string, to string) (string, error) {
	t, err := time.Parse(from, s)
	if err != nil {
		return "", models.NewError(models.ErrFormat, "recon.NormalizeDate", err)
	}
	return t.Format(to), nil
}

// Column turns a report header into a column name: "Walmart.com PO #" -> "walmart_com_po"
func Column(header string) string {
	return strings.Trim(reNonWord.ReplaceAllString(strings.ToLower(header), "_"), "_")
}

// Columns names every header with Column. Headers without letters or digits become
// col_<n> (1-based) and repeated names, ReportDateColumn included, get a _2, _3 suffix.
func Columns(header []string) []string {
	columns := make([]string, len(header))
	seen := map[string]int{ReportDateColumn: 1}
	for i, h := range header {
		name := Column(h)
		if name == "" {
			name = "col_" + strconv.Itoa(i+1)
		}
		base := name
		for seen[name] > 0 {
			seen[base]++
			name = base + "_" + strconv.Itoa(seen[base])
		}
		seen[name]++
		columns[i] = name
	}
	return columns
}

// Extract returns the first csv file of a zipped report
func Extract(data []byte) ([]byte, error) {
	const op = "recon.Extract"
	kind, _ := filetype.Match(data)
	if kind.Extension != "zip" {
		return nil, models.Errorf(models.ErrDecode, op, "report is %s, not a zip archive", kind.MIME.Value)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, models.NewError(models.ErrDecode, op, err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(path.Ext(f.Name), ".csv") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, models.NewError(models.ErrDecode, op, err)
		}
		defer rc.Close()
		b, err := ioutil.ReadAll(rc)
		if err != nil {
			return nil, models.NewError(models.ErrDecode, op, err)
		}
		logger.DebugFmt("[recon.Extract] %s: %d bytes", f.Name, len(b))
		return b, nil
	}
	return nil, models.Errorf(models.ErrDecode, op, "no csv file in archive of %d entries", len(zr.File))
}

// Options controls how a report is parsed
type Options struct {
	// DateHeader is the header of the embedded date column to normalize, empty skips it
	DateHeader string
	DateLayout string
	// OutLayout is used both for the embedded column and the appended report date
	OutLayout        string
	ReportDateLayout string
	// Columns overrides the names derived from the header
	Columns []string
}

// Report is a parsed reconciliation report, ready for insert
type Report struct {
	Date    string
	Columns []string
	Rows    [][]interface{}
}

// Parse reads the csv payload of the report published on reportDate
func Parse(data []byte, reportDate string, opts Options) (*Report, error) {
	const op = "recon.Parse"
	date, err := NormalizeDate(reportDate, opts.ReportDateLayout, opts.OutLayout)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, models.Errorf(models.ErrDecode, op, "empty report for %s", reportDate)
	}
	r := csvd.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return nil, models.Errorf(models.ErrDecode, op, "empty report for %s", reportDate)
	}
	if err != nil {
		return nil, models.NewError(models.ErrDecode, op, err)
	}

	columns := opts.Columns
	if len(columns) == 0 {
		columns = Columns(header)
	}
	width := len(columns)
	dateAt := -1
	if opts.DateHeader != "" {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), opts.DateHeader) {
				dateAt = i
				break
			}
		}
		if dateAt < 0 {
			logger.WarnFmt("[recon.Parse] column %q not in report %s, dates left as is", opts.DateHeader, reportDate)
		}
	}

	report := &Report{Date: date, Columns: append(append([]string{}, columns...), ReportDateColumn)}
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, models.Errorf(models.ErrDecode, op, "line %d: %v", line, err)
		}
		if blank(rec) {
			continue
		}
		row := make([]interface{}, width+1)
		for i := 0; i < width; i++ {
			v := ""
			if i < len(rec) {
				v = strings.TrimSpace(rec[i])
			}
			if i == dateAt && v != "" {
				if v, err = NormalizeDate(v, opts.DateLayout, opts.OutLayout); err != nil {
					return nil, models.Errorf(models.ErrFormat, op, "line %d: %v", line, err)
				}
			}
			row[i] = v
		}
		row[width] = date
		report.Rows = append(report.Rows, row)
	}
	logger.InfoFmt("[recon.Parse] report %s: %d rows, %d columns", reportDate, len(report.Rows), width)
	return report, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
