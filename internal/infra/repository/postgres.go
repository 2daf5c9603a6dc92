package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"itinerary-pdf/internal/config"
	"itinerary-pdf/internal/domain"
)

// PostgresRepository stores each itinerary as a JSONB document.
type PostgresRepository struct {
	db      *sql.DB
	timeout time.Duration
}

func postgresPort(cfg config.PostgresConfig) int {
	if cfg.Port != 0 {
		return cfg.Port
	}
	return 5432
}

func postgresDSN(cfg config.PostgresConfig) (string, error) {
	if strings.HasPrefix(cfg.Host, "postgres://") || strings.HasPrefix(cfg.Host, "postgresql://") {
		return cfg.Host, nil
	}
	if cfg.Host == "" {
		return "", fmt.Errorf("postgres host is empty")
	}
	if cfg.Database == "" {
		return "", fmt.Errorf("postgres database is empty")
	}
	if cfg.User == "" {
		return "", fmt.Errorf("postgres user is empty")
	}

	hostPort := cfg.Host
	port := postgresPort(cfg)
	switch {
	case strings.HasPrefix(hostPort, "["):
		if !strings.Contains(hostPort, "]:") {
			hostPort = fmt.Sprintf("%s:%d", hostPort, port)
		}
	case strings.Count(hostPort, ":") >= 2:
		hostPort = fmt.Sprintf("[%s]:%d", hostPort, port)
	case !strings.Contains(hostPort, ":"):
		hostPort = fmt.Sprintf("%s:%d", hostPort, port)
	}

	u := &url.URL{Scheme: "postgres", Host: hostPort, Path: "/" + cfg.Database}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	} else {
		u.User = url.User(cfg.User)
	}
	q := u.Query()
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// OpenPostgres connects through the pgx driver, verifies the connection and
// creates the itineraries table when missing.
func OpenPostgres(ctx context.Context, cfg config.PostgresConfig) (*PostgresRepository, error) {
	dsn, err := postgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	repo := NewPostgres(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, timeout: 5 * time.Second}
}

// EnsureSchema creates the itineraries table and its index.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ddl1 := `CREATE TABLE IF NOT EXISTS itineraries (
		id TEXT PRIMARY KEY,
		data JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`
	ddl2 := `CREATE INDEX IF NOT EXISTS idx_itineraries_updated_at ON itineraries (updated_at);`
	if _, err := r.db.ExecContext(ctx, ddl1); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, ddl2); err != nil {
		return err
	}
	return nil
}

// Load returns the itinerary stored under id.
func (r *PostgresRepository) Load(ctx context.Context, id string) (domain.Itinerary, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var raw []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM itineraries WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Itinerary{}, domain.ErrItineraryNotFound
	}
	if err != nil {
		return domain.Itinerary{}, fmt.Errorf("query itinerary %s: %w", id, err)
	}

	var it domain.Itinerary
	if err := json.Unmarshal(raw, &it); err != nil {
		return domain.Itinerary{}, fmt.Errorf("decode itinerary %s: %w", id, err)
	}
	return it, nil
}

// Save upserts it.
func (r *PostgresRepository) Save(ctx context.Context, it domain.Itinerary) error {
	raw, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("encode itinerary %s: %w", it.ID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err = r.db.ExecContext(ctx, `INSERT INTO itineraries (id, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		it.ID, raw, it.UpdatedAt)
	return err
}

// Delete removes id.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `DELETE FROM itineraries WHERE id = $1`, id)
	return err
}

// Close closes the database handle.
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
