package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"

	"github.com/admin-console/admin-console/internal/console"
	"github.com/admin-console/admin-console/internal/db/models"
	"github.com/admin-console/admin-console/internal/db/repositories"
	"github.com/admin-console/admin-console/internal/media"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var errStoreDown = errors.New("connection refused")

// memStore backs all four console stores. Rows are kept oldest first and listed newest first.
type memStore struct {
	mu       sync.Mutex
	now      time.Time
	seq      int
	updates  []*models.UpdateRow
	promos   []*models.PromotionRow
	orgs     []*models.OrganizationRow
	profiles []*models.ProfileRow
	// writeErr fails every write when set.
	writeErr error
	inserts  int
}

func newMemStore() *memStore {
	return &memStore{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (m *memStore) tick() time.Time {
	m.now = m.now.Add(time.Second)
	return m.now
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func reversed[T any](rows []*T) []*T {
	out := make([]*T, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		r := *rows[i]
		out = append(out, &r)
	}
	return out
}

func (m *memStore) ListUpdates(context.Context) ([]*models.UpdateRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return reversed(m.updates), nil
}

func (m *memStore) InsertUpdate(_ context.Context, row *models.UpdateRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.writeErr != nil {
		return m.writeErr
	}
	row.ID = m.nextID("upd")
	row.CreatedAt = m.tick()
	row.UpdatedAt = row.CreatedAt
	r := *row
	m.updates = append(m.updates, &r)
	return nil
}

func (m *memStore) SetUpdateActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	for _, r := range m.updates {
		if r.ID == id {
			r.IsActive = active
			return nil
		}
	}
	return fmt.Errorf("%s: %w", id, repositories.ErrNotFound)
}

func (m *memStore) ListPromotions(context.Context) ([]*models.PromotionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return reversed(m.promos), nil
}

func (m *memStore) InsertPromotion(_ context.Context, row *models.PromotionRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.writeErr != nil {
		return m.writeErr
	}
	row.ID = m.nextID("promo")
	row.CreatedAt = m.tick()
	row.UpdatedAt = row.CreatedAt
	r := *row
	m.promos = append(m.promos, &r)
	return nil
}

func (m *memStore) SetPromotionActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	for _, r := range m.promos {
		if r.ID == id {
			r.IsActive = active
			return nil
		}
	}
	return fmt.Errorf("%s: %w", id, repositories.ErrNotFound)
}

func (m *memStore) ListOrganizations(context.Context) ([]*models.OrganizationRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return reversed(m.orgs), nil
}

func (m *memStore) SetOrganizationVerified(_ context.Context, id string, verified bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	for _, r := range m.orgs {
		if r.ID == id {
			r.IsVerified = verified
			r.UpdatedAt = at
			return nil
		}
	}
	return fmt.Errorf("%s: %w", id, repositories.ErrNotFound)
}

func (m *memStore) ListProfiles(context.Context) ([]*models.ProfileRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return reversed(m.profiles), nil
}

func (m *memStore) SetProfileBlocked(_ context.Context, id string, blocked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	for _, r := range m.profiles {
		if r.ID == id {
			r.Block = blocked
			return nil
		}
	}
	return fmt.Errorf("%s: %w", id, repositories.ErrNotFound)
}

func (m *memStore) DeleteProfile(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	for i, r := range m.profiles {
		if r.ID == id {
			m.profiles = append(m.profiles[:i], m.profiles[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memStore) seedOrganization(id, name string, verified bool, lat, lng *float64, tags ...string) {
	row := &models.OrganizationRow{
		ID:           id,
		OwnerID:      "owner-" + id,
		Name:         name,
		ContactEmail: sql.NullString{String: id + "@example.org", Valid: true},
		Tags:         pq.StringArray(tags),
		IsVerified:   verified,
		CreatedAt:    m.tick(),
	}
	row.UpdatedAt = row.CreatedAt
	if lat != nil && lng != nil {
		row.Latitude = sql.NullFloat64{Float64: *lat, Valid: true}
		row.Longitude = sql.NullFloat64{Float64: *lng, Valid: true}
	}
	m.orgs = append(m.orgs, row)
}

func (m *memStore) seedProfile(id, email, username string, blocked bool) {
	m.profiles = append(m.profiles, &models.ProfileRow{
		ID:        id,
		Email:     email,
		Username:  sql.NullString{String: username, Valid: username != ""},
		Block:     blocked,
		CreatedAt: m.tick(),
	})
}

// fakeUploader keeps uploaded images in memory and returns URLs under a fixed CDN prefix.
type fakeUploader struct {
	mu      sync.Mutex
	max     int64
	err     error
	uploads []string
	objects map[string][]byte
}

func (f *fakeUploader) Upload(_ context.Context, filename string, r io.Reader, size int64) (*media.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.max {
		return nil, media.ErrImageTooLarge
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	key := "promo/" + filename
	f.uploads = append(f.uploads, filename)
	f.objects[key] = data
	return &media.Image{
		Key:         key,
		URL:         "https://cdn.example.org/" + key,
		ContentType: "image/png",
		Size:        int64(len(data)),
		Checksum:    "sha-" + filename,
	}, nil
}

func (f *fakeUploader) Discard(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeUploader) Fetch(_ context.Context, key string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, "", media.ErrImageNotFound
	}
	return data, "image/png", nil
}

func (f *fakeUploader) MaxBytes() int64 { return f.max }

type fixture struct {
	store    *memStore
	uploader *fakeUploader
	console  *console.Console
	router   *gin.Engine
}

// newFixture loads a console over a memStore and mounts the admin routes the way
// the API router does.
func newFixture(seed func(*memStore)) *fixture {
	store := newMemStore()
	if seed != nil {
		seed(store)
	}
	c := console.New(store, store, store, store)
	_ = c.Load(context.Background())

	up := &fakeUploader{max: 1024}
	h := NewHandlers(c, up)

	r := gin.New()
	g := r.Group("/api/v1/admin")
	h.Register(g)

	return &fixture{store: store, uploader: up, console: c, router: r}
}
