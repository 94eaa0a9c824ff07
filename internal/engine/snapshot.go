package engine

import (
	"github.com/innbucks/dashboard/internal/models"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

// Snapshot is one complete run: the tables plus everything derived from
// them. It is handed to readers as-is and never modified.
type Snapshot struct {
	ID          string
	Config      GeneratorConfig
	Dataset     *Dataset
	Dashboard   *models.DashboardData
	Fingerprint string
}

// Build generates, aggregates and decorates a new snapshot.
func Build(cfg GeneratorConfig, log *zap.Logger) (*Snapshot, error) {
	gen, err := NewGenerator(cfg, log)
	if err != nil {
		return nil, err
	}
	src := cfg.Source()
	ds := gen.Generate(src)
	data := ds.Aggregate()
	Decorate(data, rand.New(src))

	return &Snapshot{
		ID:          ulid.Make().String(),
		Config:      cfg,
		Dataset:     ds,
		Dashboard:   data,
		Fingerprint: ds.Fingerprint(),
	}, nil
}

// View re-aggregates the snapshot under f. The zero filter returns the
// precomputed dashboard.
func (s *Snapshot) View(f Filter) (*Dataset, *models.DashboardData) {
	if f.IsZero() {
		return s.Dataset, s.Dashboard
	}
	ds := f.Apply(s.Dataset)
	data := ds.Aggregate()
	applyGrowth(data, s.Dashboard.Decoration.WeeklyGrowth)
	return ds, data
}

func (s *Snapshot) Meta() models.SnapshotMeta {
	return models.SnapshotMeta{
		ID:           s.ID,
		Profile:      s.Config.Profile,
		GeneratedAt:  s.Dataset.GeneratedAt,
		Seed:         s.Config.Seed,
		Fingerprint:  s.Fingerprint,
		Customers:    len(s.Dataset.Customers),
		Accounts:     len(s.Dataset.Accounts),
		Transactions: len(s.Dataset.Transactions),
		Agents:       len(s.Dataset.Agents),
	}
}
