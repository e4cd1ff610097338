package datasetclickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"sdnlabel/internal/logger"
	"sdnlabel/pkg/models"
)

// Config configures the ClickHouse dataset writer.
type Config struct {
	Addr     string
	Database string
	Table    string
	Username string
	Password string
	Timeout  time.Duration
}

// Writer inserts labeled datasets into a ClickHouse MergeTree table using
// the native protocol batch API.
type Writer struct {
	conn    driver.Conn
	table   string
	timeout time.Duration
}

// NewWriter connects to ClickHouse and ensures the dataset table exists.
func NewWriter(cfg Config) (*Writer, error) {
	cfg = withDefaults(cfg)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: cfg.Timeout,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	table := qualifiedTable(cfg.Database, cfg.Table)
	if err := conn.Exec(ctx, createTableStatement(table)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	logger.Infof("ClickHouse dataset writer initialized: %s %s", cfg.Addr, table)

	return &Writer{conn: conn, table: table, timeout: cfg.Timeout}, nil
}

func withDefaults(cfg Config) Config {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:9000"
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Table == "" {
		cfg.Table = "sdn_flow_dataset"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return cfg
}

func createTableStatement(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
    RunID           String,
    Scenario        String,
    SwitchID        String,
    ObservedAt      DateTime64(9),
    Round           Int32,
    InPort          String,
    EthSrc          String,
    EthDst          String,
    IPv4Src         String,
    IPv4Dst         String,
    IPProto         UInt64,
    TpSrc           UInt64,
    TpDst           UInt64,
    PacketCount     UInt64,
    ByteCount       UInt64,
    DurationSeconds UInt64,
    Priority        UInt64,
    IdleTimeout     UInt64,
    HardTimeout     UInt64,
    Actions         String,
    Label           UInt8,
    AttackKind      LowCardinality(String)
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(ObservedAt)
ORDER BY (RunID, Scenario, ObservedAt)`
}

// rowValues returns the column values of r in table order.
func rowValues(runID string, r models.FlowRecord) []interface{} {
	var label uint8
	if r.Label != nil {
		label = uint8(*r.Label)
	}
	return []interface{}{
		runID,
		r.Scenario,
		r.SwitchID,
		r.ObservedAt,
		int32(r.Round),
		r.Match.InPort,
		r.Match.EthSrc,
		r.Match.EthDst,
		r.Match.IPv4Src,
		r.Match.IPv4Dst,
		r.Match.IPProto,
		r.Match.TpSrc,
		r.Match.TpDst,
		r.PacketCount,
		r.ByteCount,
		r.DurationSeconds,
		r.Priority,
		r.IdleTimeout,
		r.HardTimeout,
		r.Actions,
		label,
		string(r.AttackKind),
	}
}

// WriteDataset inserts every record of ds in one batch.
func (w *Writer) WriteDataset(ds *models.LabeledDataset) error {
	if ds == nil || len(ds.Records) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO "+w.table)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for i, r := range ds.Records {
		if !r.Labeled() {
			batch.Abort()
			return fmt.Errorf("record %d is not labeled", i)
		}
		if err := batch.Append(rowValues(ds.Summary.RunID, r)...); err != nil {
			batch.Abort()
			return fmt.Errorf("failed to append record to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	logger.Infof("Wrote %d records to ClickHouse table %s", len(ds.Records), w.table)
	return nil
}

// Close closes the connection.
func (w *Writer) Close() error {
	if w.conn == nil {
		return nil
	}
	return w.conn.Close()
}

func qualifiedTable(database, table string) string {
	return quoteIdent(database) + "." + quoteIdent(table)
}

func quoteIdent(v string) string {
	if v == "" {
		return ""
	}
	v = strings.ReplaceAll(v, "`", "")
	return "`" + v + "`"
}
