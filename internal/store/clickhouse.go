package store

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseStore writes lifecycle events to ClickHouse for fleets that
// aggregate supervisor events into an analytics cluster.
type ClickHouseStore struct {
	conn  driver.Conn
	table string
}

// NewClickHouse connects to addr ("host:9000") and ensures the events table.
func NewClickHouse(addr, table string) (*ClickHouseStore, error) {
	if table == "" {
		table = "lifecycle_events"
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: "default",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	s := &ClickHouseStore{conn: conn, table: table}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *ClickHouseStore) ensureSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		occurred_at DateTime64(3, 'UTC'),
		service String,
		pid Int32,
		state String,
		detail String
	) ENGINE = MergeTree() ORDER BY (service, occurred_at)`, s.table)
	return s.conn.Exec(ctx, stmt)
}

func (s *ClickHouseStore) Append(ctx context.Context, e Event) error {
	stmt := fmt.Sprintf(`INSERT INTO %s (occurred_at, service, pid, state, detail) VALUES (?, ?, ?, ?, ?)`, s.table)
	if err := s.conn.Exec(ctx, stmt,
		e.OccurredAt.UTC(), e.Service, int32(e.PID), e.State, e.Detail); err != nil {
		return fmt.Errorf("failed to insert event into ClickHouse: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) Recent(ctx context.Context, service string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	stmt := fmt.Sprintf(`SELECT occurred_at, service, pid, state, detail
		FROM %s WHERE service = ? ORDER BY occurred_at DESC LIMIT %d`, s.table, limit)
	rows, err := s.conn.Query(ctx, stmt, service)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var pid int32
		if err := rows.Scan(&e.OccurredAt, &e.Service, &pid, &e.State, &e.Detail); err != nil {
			return nil, err
		}
		e.PID = int(pid)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *ClickHouseStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
