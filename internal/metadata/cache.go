package metadata

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"loginsight-backend/internal/model"
)

type catalogSnapshot struct {
	indices  map[string]*model.IndexDefinition
	order    []string
	profiles map[string]*model.ConnectionProfile
	porder   []string
	loadedAt time.Time
}

// CachedGateway serves catalog reads from an in-memory snapshot so the hot
// query path never touches the metadata database. Writes go through to the
// backing gateway and reload the snapshot.
type CachedGateway struct {
	inner Gateway

	mu   sync.RWMutex
	snap *catalogSnapshot
}

func NewCachedGateway(inner Gateway) *CachedGateway {
	return &CachedGateway{inner: inner}
}

// Refresh rebuilds the snapshot from the backing gateway. On failure the
// previous snapshot stays in place.
func (c *CachedGateway) Refresh(ctx context.Context) error {
	names, err := c.inner.ListIndices(ctx)
	if err != nil {
		return err
	}

	snap := &catalogSnapshot{
		indices:  make(map[string]*model.IndexDefinition, len(names)),
		order:    make([]string, 0, len(names)),
		profiles: make(map[string]*model.ConnectionProfile),
		loadedAt: time.Now(),
	}
	for _, name := range names {
		def, err := c.inner.GetIndex(ctx, name)
		if err != nil {
			return err
		}
		snap.indices[name] = def
		snap.order = append(snap.order, name)
	}

	profiles, err := c.inner.ListConnectionProfiles(ctx)
	if err != nil {
		return err
	}
	for i := range profiles {
		snap.profiles[profiles[i].Name] = &profiles[i]
		snap.porder = append(snap.porder, profiles[i].Name)
	}

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()

	log.Info().Int("indices", len(snap.order)).Int("profiles", len(snap.porder)).Msg("Catalog snapshot refreshed")
	return nil
}

func (c *CachedGateway) snapshot(ctx context.Context) (*catalogSnapshot, error) {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap, nil
}

func (c *CachedGateway) ListIndices(ctx context.Context) ([]string, error) {
	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(snap.order))
	copy(out, snap.order)
	return out, nil
}

func (c *CachedGateway) GetIndex(ctx context.Context, name string) (*model.IndexDefinition, error) {
	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	def, ok := snap.indices[name]
	if !ok {
		return nil, ErrIndexNotFound
	}
	return def, nil
}

func (c *CachedGateway) ListFields(ctx context.Context, index string) ([]model.FieldDescriptor, error) {
	def, err := c.GetIndex(ctx, index)
	if err != nil {
		return nil, err
	}
	return def.Fields, nil
}

func (c *CachedGateway) ListExamples(ctx context.Context, index string) ([]model.ExampleQuery, error) {
	def, err := c.GetIndex(ctx, index)
	if err != nil {
		return nil, err
	}
	return def.Examples, nil
}

func (c *CachedGateway) ListConnectionProfiles(ctx context.Context) ([]model.ConnectionProfile, error) {
	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.ConnectionProfile, 0, len(snap.porder))
	for _, name := range snap.porder {
		out = append(out, *snap.profiles[name])
	}
	return out, nil
}

func (c *CachedGateway) GetConnectionProfile(ctx context.Context, name string) (*model.ConnectionProfile, error) {
	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	profile, ok := snap.profiles[name]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

func (c *CachedGateway) UpsertIndex(ctx context.Context, def model.IndexDefinition) error {
	if err := c.inner.UpsertIndex(ctx, def); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

func (c *CachedGateway) DeleteIndex(ctx context.Context, name string) error {
	if err := c.inner.DeleteIndex(ctx, name); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

func (c *CachedGateway) UpsertConnectionProfile(ctx context.Context, profile model.ConnectionProfile) error {
	if err := c.inner.UpsertConnectionProfile(ctx, profile); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

func (c *CachedGateway) DeleteConnectionProfile(ctx context.Context, name string) error {
	if err := c.inner.DeleteConnectionProfile(ctx, name); err != nil {
		return err
	}
	return c.Refresh(ctx)
}
