package services

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"ourfish-bknd/internal/dataset"
	"ourfish-bknd/internal/models"
)

type DatasetService struct {
	db   *bun.DB
	logr *zap.Logger
}

func NewDatasetService(db *bun.DB, logr *zap.Logger) *DatasetService {
	return &DatasetService{db: db, logr: logr}
}

// Load reads the reference tables and every transaction and builds the
// snapshot. The same queries run on Postgres and SQLite.
func (s *DatasetService) Load(ctx context.Context) (*dataset.Snapshot, error) {
	started := time.Now()
	t, err := s.Tables(ctx)
	if err != nil {
		return nil, err
	}

	snap := dataset.New(t)
	s.logr.Info("dataset loaded",
		zap.Int("countries", len(t.Countries)),
		zap.Int("snus", len(t.SNUs)),
		zap.Int("lgus", len(t.LGUs)),
		zap.Int("maas", len(t.Areas)),
		zap.Int("communities", len(t.Communities)),
		zap.Int("transactions", len(t.Transactions)),
		zap.Int("dropped_geo_rows", snap.Catalog.Dropped()),
		zap.Duration("took", time.Since(started)),
	)
	return snap, nil
}

// Tables reads every dataset table, ordered by id.
func (s *DatasetService) Tables(ctx context.Context) (dataset.Tables, error) {
	var t dataset.Tables

	if err := s.db.NewSelect().Model(&t.Countries).Order("country_id").Scan(ctx); err != nil {
		return t, fmt.Errorf("load countries: %w", err)
	}
	if err := s.db.NewSelect().Model(&t.SNUs).Order("snu_id").Scan(ctx); err != nil {
		return t, fmt.Errorf("load subnational units: %w", err)
	}
	if err := s.db.NewSelect().Model(&t.LGUs).Order("lgu_id").Scan(ctx); err != nil {
		return t, fmt.Errorf("load local government units: %w", err)
	}
	if err := s.db.NewSelect().Model(&t.Areas).Order("ma_id").Scan(ctx); err != nil {
		return t, fmt.Errorf("load managed access areas: %w", err)
	}
	if err := s.db.NewSelect().Model(&t.Communities).Order("community_id").Scan(ctx); err != nil {
		return t, fmt.Errorf("load communities: %w", err)
	}
	if err := s.db.NewSelect().Model(&t.Transactions).Order("transaction_id").Scan(ctx); err != nil {
		return t, fmt.Errorf("load transactions: %w", err)
	}
	return t, nil
}

// CreateSchema creates the dataset tables if they are missing. Used to seed
// an offline SQLite file.
func (s *DatasetService) CreateSchema(ctx context.Context) error {
	for _, m := range []any{
		(*models.Country)(nil),
		(*models.SubnationalUnit)(nil),
		(*models.LocalGovernmentUnit)(nil),
		(*models.ManagedAccessArea)(nil),
		(*models.Community)(nil),
		(*models.Transaction)(nil),
	} {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table %T: %w", m, err)
		}
	}
	return nil
}

// seedBatch bounds the rows per INSERT statement.
const seedBatch = 500

// Seed inserts raw rows in one transaction; empty tables are skipped.
func (s *DatasetService) Seed(ctx context.Context, t dataset.Tables) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		inserts := []struct {
			name  string
			n     int
			model any
		}{
			{"countries", len(t.Countries), &t.Countries},
			{"subnational units", len(t.SNUs), &t.SNUs},
			{"local government units", len(t.LGUs), &t.LGUs},
			{"managed access areas", len(t.Areas), &t.Areas},
			{"communities", len(t.Communities), &t.Communities},
		}
		for _, in := range inserts {
			if in.n == 0 {
				continue
			}
			if _, err := tx.NewInsert().Model(in.model).Exec(ctx); err != nil {
				return fmt.Errorf("seed %s: %w", in.name, err)
			}
		}

		for start := 0; start < len(t.Transactions); start += seedBatch {
			end := min(start+seedBatch, len(t.Transactions))
			batch := t.Transactions[start:end]
			if _, err := tx.NewInsert().Model(&batch).Exec(ctx); err != nil {
				return fmt.Errorf("seed transactions %d-%d: %w", start, end, err)
			}
		}
		return nil
	})
}
