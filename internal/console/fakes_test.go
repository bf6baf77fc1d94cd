package console

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/admin-console/admin-console/internal/db/models"
	"github.com/admin-console/admin-console/internal/db/repositories"
)

// fakeClock hands out strictly increasing timestamps unless frozen.
type fakeClock struct {
	mu     sync.Mutex
	t      time.Time
	frozen bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.frozen {
		c.t = c.t.Add(time.Second)
	}
	return c.t
}

// The fakes return rows newest first, like the SQL repositories.

type fakeUpdateStore struct {
	mu      sync.Mutex
	clock   *fakeClock
	rows    []*models.UpdateRow
	seq     int
	inserts int
	listErr error
	insErr  error
	setErr  error
	// uniqueIndex mimics updates_single_active.
	uniqueIndex bool
}

func newFakeUpdateStore() *fakeUpdateStore {
	return &fakeUpdateStore{clock: newFakeClock()}
}

func (f *fakeUpdateStore) ListUpdates(context.Context) ([]*models.UpdateRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*models.UpdateRow, 0, len(f.rows))
	for i := len(f.rows) - 1; i >= 0; i-- {
		r := *f.rows[i]
		out = append(out, &r)
	}
	return out, nil
}

func (f *fakeUpdateStore) InsertUpdate(_ context.Context, row *models.UpdateRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.insErr != nil {
		return f.insErr
	}
	if f.uniqueIndex && row.IsActive {
		for _, r := range f.rows {
			if r.IsActive {
				return repositories.ErrActiveUpdateConflict
			}
		}
	}
	f.seq++
	row.ID = fmt.Sprintf("u%d", f.seq)
	row.CreatedAt = f.clock.next()
	row.UpdatedAt = row.CreatedAt
	stored := *row
	f.rows = append(f.rows, &stored)
	return nil
}

func (f *fakeUpdateStore) SetUpdateActive(_ context.Context, id string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	for _, r := range f.rows {
		if r.ID == id {
			r.IsActive = active
			return nil
		}
	}
	return fmt.Errorf("%s: %w", id, repositories.ErrNotFound)
}

type fakePromotionStore struct {
	mu      sync.Mutex
	clock   *fakeClock
	rows    []*models.PromotionRow
	seq     int
	listErr error
}

func newFakePromotionStore() *fakePromotionStore {
	return &fakePromotionStore{clock: newFakeClock()}
}

func (f *fakePromotionStore) ListPromotions(context.Context) ([]*models.PromotionRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*models.PromotionRow, 0, len(f.rows))
	for i := len(f.rows) - 1; i >= 0; i-- {
		r := *f.rows[i]
		out = append(out, &r)
	}
	return out, nil
}

func (f *fakePromotionStore) InsertPromotion(_ context.Context, row *models.PromotionRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	row.ID = fmt.Sprintf("p%d", f.seq)
	row.CreatedAt = f.clock.next()
	row.UpdatedAt = row.CreatedAt
	stored := *row
	f.rows = append(f.rows, &stored)
	return nil
}

func (f *fakePromotionStore) SetPromotionActive(_ context.Context, id string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID == id {
			r.IsActive = active
			return nil
		}
	}
	return fmt.Errorf("%s: %w", id, repositories.ErrNotFound)
}

type fakeOrganizationStore struct {
	mu      sync.Mutex
	rows    []*models.OrganizationRow
	writes  int
	listErr error
	setErr  error
}

func (f *fakeOrganizationStore) ListOrganizations(context.Context) ([]*models.OrganizationRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*models.OrganizationRow, 0, len(f.rows))
	for _, r := range f.rows {
		c := *r
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeOrganizationStore) SetOrganizationVerified(_ context.Context, id string, verified bool, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.setErr != nil {
		return f.setErr
	}
	for _, r := range f.rows {
		if r.ID == id {
			r.IsVerified = verified
			r.UpdatedAt = at
			return nil
		}
	}
	return fmt.Errorf("%s: %w", id, repositories.ErrNotFound)
}

type fakeProfileStore struct {
	mu      sync.Mutex
	rows    []*models.ProfileRow
	writes  int
	listErr error
	setErr  error
	delErr  error
}

func (f *fakeProfileStore) ListProfiles(context.Context) ([]*models.ProfileRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*models.ProfileRow, 0, len(f.rows))
	for _, r := range f.rows {
		c := *r
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeProfileStore) SetProfileBlocked(_ context.Context, id string, blocked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.setErr != nil {
		return f.setErr
	}
	for _, r := range f.rows {
		if r.ID == id {
			r.Block = blocked
			return nil
		}
	}
	return fmt.Errorf("%s: %w", id, repositories.ErrNotFound)
}

func (f *fakeProfileStore) DeleteProfile(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	for i, r := range f.rows {
		if r.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

type fixture struct {
	console    *Console
	updates    *fakeUpdateStore
	promotions *fakePromotionStore
	orgs       *fakeOrganizationStore
	profiles   *fakeProfileStore
}

func newFixture() *fixture {
	f := &fixture{
		updates:    newFakeUpdateStore(),
		promotions: newFakePromotionStore(),
		orgs:       &fakeOrganizationStore{},
		profiles:   &fakeProfileStore{},
	}
	f.console = New(f.updates, f.promotions, f.orgs, f.profiles)
	return f
}
