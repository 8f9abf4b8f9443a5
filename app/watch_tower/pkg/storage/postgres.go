package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lib/pq"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/config"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS source_domains (
	domain     TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS watches (
	name       TEXT PRIMARY KEY,
	topic      TEXT NOT NULL,
	markets    TEXT[] NOT NULL DEFAULT '{}',
	timeframe  TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// PostgresStore 基于 PostgreSQL 的存储
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore 连接数据库并建表
func NewPostgresStore(cfg config.DBConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	s := NewPostgresStoreFromDB(db)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreFromDB 使用已有连接
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate 建表 (幂等)
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) ListDomains(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT domain FROM source_domains ORDER BY created_at, domain`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AddDomain(ctx context.Context, domain string) (string, error) {
	d, err := NormalizeDomain(domain)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO source_domains (domain) VALUES ($1) ON CONFLICT (domain) DO NOTHING`, d)
	if err != nil {
		return "", err
	}
	return d, nil
}

func (s *PostgresStore) RemoveDomain(ctx context.Context, domain string) error {
	d, err := NormalizeDomain(domain)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM source_domains WHERE domain = $1`, d)
	if err != nil {
		return err
	}
	return expectAffected(res, "domain "+d)
}

func (s *PostgresStore) ListWatches(ctx context.Context) ([]model.WatchQuery, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, topic, markets, timeframe FROM watches ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WatchQuery
	for rows.Next() {
		var w model.WatchQuery
		if err := rows.Scan(&w.Name, &w.Topic, pq.Array(&w.Markets), &w.Timeframe); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetWatch(ctx context.Context, name string) (*model.WatchQuery, error) {
	var w model.WatchQuery
	err := s.db.QueryRowContext(ctx,
		`SELECT name, topic, markets, timeframe FROM watches WHERE name = $1`, name).
		Scan(&w.Name, &w.Topic, pq.Array(&w.Markets), &w.Timeframe)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("watch %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *PostgresStore) SaveWatch(ctx context.Context, w model.WatchQuery) error {
	w, err := ValidateWatch(w)
	if err != nil {
		return err
	}
	markets := make([]string, len(w.Markets))
	for i, m := range w.Markets {
		markets[i] = sanitize(m)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO watches (name, topic, markets, timeframe) VALUES ($1, $2, $3, $4)
ON CONFLICT (name) DO UPDATE SET topic = EXCLUDED.topic, markets = EXCLUDED.markets,
	timeframe = EXCLUDED.timeframe, updated_at = now()`,
		sanitize(w.Name), sanitize(w.Topic), pq.Array(markets), string(w.Timeframe))
	return err
}

func (s *PostgresStore) DeleteWatch(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM watches WHERE name = $1`, name)
	if err != nil {
		return err
	}
	return expectAffected(res, "watch "+name)
}

func expectAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// sanitize 移除无效的 UTF-8 字符与 NULL 字节，PostgreSQL 文本字段不支持 NULL 字节
func sanitize(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.ReplaceAll(s, "\x00", "")
}
