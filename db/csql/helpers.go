package csql

import (
	"context"
	"database/sql"

	"wmorders/models"
	"wmorders/utils/logger"

	dbr "github.com/gocraft/dbr/v2"
)

// insertBatch writes the three order families
func (s *Store) insertBatch(ctx context.Context, tx *dbr.Tx, batch *models.OrderBatch) error {
	if err := s.insertRecords(ctx, tx, s.tables.name(s.tables.OrderGeneral), models.OrderGeneralColumns, generalRows(batch.General)); err != nil {
		return err
	}
	if err := s.insertRecords(ctx, tx, s.tables.name(s.tables.OrderCharges), models.OrderChargeColumns, chargeRows(batch.Charges)); err != nil {
		return err
	}
	return s.insertRecords(ctx, tx, s.tables.name(s.tables.OrderRefunds), models.OrderRefundColumns, refundRows(batch.Refunds))
}

// insertRecords writes struct records matched to columns by their db tags
func (s *Store) insertRecords(ctx context.Context, tx *dbr.Tx, table string, columns []string, records []interface{}) error {
	for start := 0; start < len(records); start += s.batch {
		end := start + s.batch
		if end > len(records) {
			end = len(records)
		}
		stmt := tx.InsertInto(table).Ignore().Columns(columns...)
		for _, r := range records[start:end] {
			stmt.Record(r)
		}
		res, err := stmt.ExecContext(ctx)
		if err != nil {
			return err
		}
		logInserted(table, end-start, res)
	}
	return nil
}

// insertValues writes positional rows
func (s *Store) insertValues(ctx context.Context, tx *dbr.Tx, table string, columns []string, rows [][]interface{}) error {
	for start := 0; start < len(rows); start += s.batch {
		end := start + s.batch
		if end > len(rows) {
			end = len(rows)
		}
		stmt := tx.InsertInto(table).Ignore().Columns(columns...)
		for _, row := range rows[start:end] {
			stmt.Values(row...)
		}
		res, err := stmt.ExecContext(ctx)
		if err != nil {
			return err
		}
		logInserted(table, end-start, res)
	}
	return nil
}

func generalRows(in []models.OrderGeneralRecord) []interface{} {
	out := make([]interface{}, len(in))
	for i := range in {
		out[i] = &in[i]
	}
	return out
}

func chargeRows(in []models.OrderChargeRecord) []interface{} {
	out := make([]interface{}, len(in))
	for i := range in {
		out[i] = &in[i]
	}
	return out
}

func refundRows(in []models.OrderRefundRecord) []interface{} {
	out := make([]interface{}, len(in))
	for i := range in {
		out[i] = &in[i]
	}
	return out
}

func logInserted(table string, sent int, res sql.Result) {
	ra, _ := res.RowsAffected()
	if int(ra) < sent {
		logger.InfoFmt("[csql.insert] %s: %d of %d rows inserted, duplicates ignored", table, ra, sent)
		return
	}
	logger.DebugFmt("[csql.insert] %s: %d rows inserted", table, ra)
}

func logDeleted(op string, table string, res sql.Result) {
	ra, _ := res.RowsAffected()
	logger.InfoFmt("[%s] %s: %d rows deleted", op, table, ra)
}
