// Package loader supplies MP records to the dataset at startup, either from a
// cleaned JSON file or from a PostgreSQL table.
package loader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/internal/mp"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/config"
)

// Loader reads the full ordered record collection.
type Loader interface {
	Load(ctx context.Context) ([]mp.MP, error)
}

// New returns the loader selected by cfg.Source.
func New(cfg config.DatasetConfig, pg config.PostgresConfig) (Loader, error) {
	switch cfg.Source {
	case config.SourceFile:
		return NewFile(cfg.Path), nil
	case config.SourcePostgres:
		return NewPostgres(pg, cfg.Table), nil
	default:
		return nil, fmt.Errorf("unknown dataset source %q", cfg.Source)
	}
}

// LoadDataset runs l and builds the dataset. Any load failure is logged and
// yields an unloaded dataset so the service keeps serving health probes and
// reports the outage on data endpoints.
func LoadDataset(ctx context.Context, l Loader, cfg config.QueryConfig) *mp.Dataset {
	log := slog.Default().With("component", "dataset-loader")
	records, err := l.Load(ctx)
	if err != nil {
		log.Error("failed to load MP records", "error", err)
		return mp.Unavailable()
	}
	ds := mp.Build(records, cfg)
	if ds.Ready() {
		log.Info("loaded MP records", "count", ds.Len(), "fingerprint", ds.Fingerprint())
	}
	return ds
}
