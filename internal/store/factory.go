package store

import "fmt"

// New builds a Store from cfg. An empty type selects sqlite.
func New(cfg Config) (Store, error) {
	switch cfg.Type {
	case "", "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = ":memory:"
		}
		return NewSQLite(dsn)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	case "clickhouse":
		return NewClickHouse(cfg.DSN, cfg.Table)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}
