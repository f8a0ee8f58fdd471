// Package csql writes flattened orders and reconciliation reports to MySQL.
package csql

import (
	"context"
	"strings"

	"wmorders/models"
	"wmorders/recon"
	"wmorders/utils/logger"

	"github.com/go-sql-driver/mysql"
	dbr "github.com/gocraft/dbr/v2"
	"github.com/gocraft/dbr/v2/dialect"
)

const driver = "mysql"

// DefaultInsertBatch is the number of rows per INSERT statement
const DefaultInsertBatch = 500

// Config of the warehouse connection, DSN wins over the discrete fields
type Config struct {
	DSN      string
	Host     string
	User     string
	Password string
	Schema   string
}

// FormatDSN renders the go-sql-driver dsn. Hosts starting with / are unix sockets.
func (c Config) FormatDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.DBName = c.Schema
	mc.Net = "tcp"
	mc.Addr = c.Host
	if strings.HasPrefix(c.Host, "/") {
		mc.Net = "unix"
	}
	return mc.FormatDSN()
}

// Tables names the destination tables, Schema qualifies them when set
type Tables struct {
	Schema       string
	OrderGeneral string
	OrderCharges string
	OrderRefunds string
	Recon        string
}

func (t Tables) name(table string) string {
	if t.Schema == "" {
		return table
	}
	return t.Schema + "." + table
}

// Store replaces date ranges of the warehouse tables, one transaction per call
type Store struct {
	conn   *dbr.Connection
	tables Tables
	batch  int
}

// Open connects to MySQL
func Open(cfg Config, tables Tables, batch int) (*Store, error) {
	conn, err := dbr.Open(driver, cfg.FormatDSN(), nil)
	if err != nil {
		return nil, models.NewError(models.ErrStore, "csql.Open", err)
	}
	conn.SetMaxOpenConns(1)
	return New(conn, tables, batch), nil
}

// New wraps an existing connection, batch <= 0 uses DefaultInsertBatch
func New(conn *dbr.Connection, tables Tables, batch int) *Store {
	if batch <= 0 {
		batch = DefaultInsertBatch
	}
	return &Store{conn: conn, tables: tables, batch: batch}
}

// Close the connection pool
func (s *Store) Close() error {
	return s.conn.Close()
}

// ReplaceOrders deletes every order created on or after since, with its charges and
// refunds, and inserts batch in the same transaction. An empty batch still clears the range.
func (s *Store) ReplaceOrders(ctx context.Context, since string, batch *models.OrderBatch) error {
	const op = "csql.ReplaceOrders"
	sess := s.conn.NewSession(nil)
	tx, err := sess.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(op, err)
	}
	defer tx.RollbackUnlessCommitted()

	general := s.tables.name(s.tables.OrderGeneral)
	inRange := "purchase_order_id IN (SELECT purchase_order_id FROM " +
		dialect.MySQL.QuoteIdent(general) + " WHERE DATE(order_date) >= ?)"
	for _, child := range []string{s.tables.OrderCharges, s.tables.OrderRefunds} {
		res, err := tx.DeleteFrom(s.tables.name(child)).Where(inRange, since).ExecContext(ctx)
		if err != nil {
			return storeErr(op, err)
		}
		logDeleted(op, child, res)
	}
	res, err := tx.DeleteFrom(general).Where("DATE(order_date) >= ?", since).ExecContext(ctx)
	if err != nil {
		return storeErr(op, err)
	}
	logDeleted(op, s.tables.OrderGeneral, res)

	if batch != nil {
		if err := s.insertBatch(ctx, tx, batch); err != nil {
			return storeErr(op, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return storeErr(op, err)
	}
	if batch != nil {
		logger.InfoFmt("[%s] since %s: %d general, %d charges, %d refunds", op, since, len(batch.General), len(batch.Charges), len(batch.Refunds))
	}
	return nil
}

// ReplacePurchaseOrders deletes the rows of the purchase orders present in batch and
// inserts batch in the same transaction. Rows of other orders are left alone.
func (s *Store) ReplacePurchaseOrders(ctx context.Context, batch *models.OrderBatch) error {
	const op = "csql.ReplacePurchaseOrders"
	ids := batch.PurchaseOrderIDs()
	if len(ids) == 0 {
		return nil
	}
	sess := s.conn.NewSession(nil)
	tx, err := sess.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(op, err)
	}
	defer tx.RollbackUnlessCommitted()

	for start := 0; start < len(ids); start += s.batch {
		end := start + s.batch
		if end > len(ids) {
			end = len(ids)
		}
		for _, table := range []string{s.tables.OrderCharges, s.tables.OrderRefunds, s.tables.OrderGeneral} {
			res, err := tx.DeleteFrom(s.tables.name(table)).Where("purchase_order_id IN ?", ids[start:end]).ExecContext(ctx)
			if err != nil {
				return storeErr(op, err)
			}
			logDeleted(op, table, res)
		}
	}
	if err := s.insertBatch(ctx, tx, batch); err != nil {
		return storeErr(op, err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr(op, err)
	}
	logger.InfoFmt("[%s] %d purchase orders: %d general, %d charges, %d refunds", op, len(ids), len(batch.General), len(batch.Charges), len(batch.Refunds))
	return nil
}

// ReplaceRecon swaps the rows of one report date for the rows of r
func (s *Store) ReplaceRecon(ctx context.Context, r *recon.Report) error {
	const op = "csql.ReplaceRecon"
	sess := s.conn.NewSession(nil)
	tx, err := sess.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(op, err)
	}
	defer tx.RollbackUnlessCommitted()

	table := s.tables.name(s.tables.Recon)
	res, err := tx.DeleteFrom(table).Where(recon.ReportDateColumn+" = ?", r.Date).ExecContext(ctx)
	if err != nil {
		return storeErr(op, err)
	}
	logDeleted(op, s.tables.Recon, res)

	if err := s.insertValues(ctx, tx, table, r.Columns, r.Rows); err != nil {
		return storeErr(op, err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr(op, err)
	}
	logger.InfoFmt("[%s] report %s: %d rows", op, r.Date, len(r.Rows))
	return nil
}

func storeErr(op string, err error) error {
	logger.ErrFmt("["+op+"] %v", err)
	return models.NewError(models.ErrStore, op, err)
}
