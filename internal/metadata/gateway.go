package metadata

import (
	"context"
	"errors"

	"loginsight-backend/internal/model"
)

// ErrIndexNotFound is returned when a catalog lookup names an index that does
// not exist.
var ErrIndexNotFound = errors.New("index not found in catalog")

// ErrProfileNotFound is returned when an index references a connection
// profile that is missing from the catalog.
var ErrProfileNotFound = errors.New("connection profile not found in catalog")

// Gateway provides the index catalog: which indices exist, their field
// schemas and descriptions, reference example queries, and the connection
// profiles used to reach the backing search engines.
type Gateway interface {
	ListIndices(ctx context.Context) ([]string, error)
	GetIndex(ctx context.Context, name string) (*model.IndexDefinition, error)
	ListFields(ctx context.Context, index string) ([]model.FieldDescriptor, error)
	ListExamples(ctx context.Context, index string) ([]model.ExampleQuery, error)
	ListConnectionProfiles(ctx context.Context) ([]model.ConnectionProfile, error)
	GetConnectionProfile(ctx context.Context, name string) (*model.ConnectionProfile, error)

	UpsertIndex(ctx context.Context, def model.IndexDefinition) error
	DeleteIndex(ctx context.Context, name string) error
	UpsertConnectionProfile(ctx context.Context, profile model.ConnectionProfile) error
	DeleteConnectionProfile(ctx context.Context, name string) error
}

// ProfileForIndex resolves the connection profile an index should be queried
// through. Indices without an explicit profile fall back to the first profile
// in the catalog.
func ProfileForIndex(ctx context.Context, g Gateway, index string) (*model.ConnectionProfile, error) {
	def, err := g.GetIndex(ctx, index)
	if err != nil {
		return nil, err
	}
	if def.ProfileName != "" {
		return g.GetConnectionProfile(ctx, def.ProfileName)
	}
	profiles, err := g.ListConnectionProfiles(ctx)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, ErrProfileNotFound
	}
	return &profiles[0], nil
}
