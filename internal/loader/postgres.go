package loader

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/internal/mp"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/resilience"
)

// Postgres loads records from a table with columns
// (id, name, constituency, party):
//
//	CREATE TABLE nominated_mps (
//	    id           INTEGER PRIMARY KEY,
//	    name         TEXT NOT NULL,
//	    constituency TEXT NOT NULL,
//	    party        TEXT NOT NULL
//	);
type Postgres struct {
	cfg    config.PostgresConfig
	table  string
	retry  resilience.RetryConfig
	logger *slog.Logger
}

// NewPostgres creates a loader reading from table.
func NewPostgres(cfg config.PostgresConfig, table string) *Postgres {
	return &Postgres{
		cfg:   cfg,
		table: table,
		retry: resilience.RetryConfig{
			MaxAttempts:  5,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
		},
		logger: slog.Default().With("component", "postgres-loader", "table", table),
	}
}

// Load connects (retrying with backoff), reads every row ordered by id, and
// closes the connection. The dataset is immutable, so the pool is not kept.
func (p *Postgres) Load(ctx context.Context) ([]mp.MP, error) {
	var client *postgres.Client
	err := resilience.Retry(ctx, "postgres-connect", p.retry, func() error {
		c, err := postgres.New(ctx, p.cfg)
		if err != nil {
			if ctx.Err() != nil {
				return resilience.Permanent(err)
			}
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	defer client.Close()

	return p.query(ctx, client.DB)
}

func (p *Postgres) query(ctx context.Context, db *sql.DB) ([]mp.MP, error) {
	stmt := fmt.Sprintf(
		`SELECT id, name, constituency, party FROM %s ORDER BY id`,
		pq.QuoteIdentifier(p.table),
	)
	rows, err := db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", p.table, err)
	}
	defer rows.Close()

	records := make([]mp.MP, 0, 512)
	for rows.Next() {
		var (
			id                        sql.NullInt64
			name, constituency, party sql.NullString
		)
		if err := rows.Scan(&id, &name, &constituency, &party); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", p.table, err)
		}
		if !id.Valid || !name.Valid || !constituency.Valid || !party.Valid {
			p.logger.Warn("skipping row with null column", "id", id.Int64)
			continue
		}
		records = append(records, mp.MP{
			ID:           int(id.Int64),
			Name:         name.String,
			Constituency: constituency.String,
			Party:        party.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", p.table, err)
	}
	return records, nil
}
