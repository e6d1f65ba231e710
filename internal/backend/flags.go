package backend

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// FlagSource reads the feature_flags table. It satisfies
// featureflag.RemoteSource.
type FlagSource struct {
	db *sqlx.DB
}

// NewFlagSource creates a FlagSource over an open backend connection.
func NewFlagSource(db *sqlx.DB) *FlagSource {
	return &FlagSource{db: db}
}

type flagRow struct {
	Name    string `db:"name"`
	Enabled bool   `db:"enabled"`
}

// FetchFlags returns the remote flag table as a name→enabled map.
func (f *FlagSource) FetchFlags(ctx context.Context) (map[string]bool, error) {
	var rows []flagRow
	if err := f.db.SelectContext(ctx, &rows, `SELECT name, enabled FROM feature_flags`); err != nil {
		return nil, fmt.Errorf("fetch feature flags: %w", err)
	}

	flags := make(map[string]bool, len(rows))
	for _, r := range rows {
		flags[r.Name] = r.Enabled
	}
	return flags, nil
}
