package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/admin-console/admin-console/internal/db/models"
	"github.com/admin-console/admin-console/internal/db/repositories"
	"github.com/admin-console/admin-console/internal/telemetry"
)

// Entity names used in logs and metric labels
const (
	EntityUpdates       = "updates"
	EntityPromotions    = "promotions"
	EntityOrganizations = "organizations"
	EntityUsers         = "users"
)

var (
	// ErrActiveUpdateExists is returned by PublishUpdate while another update is active.
	ErrActiveUpdateExists = errors.New("an update is already active; end it before publishing a new one")

	// ErrNotFound is returned when a mutation targets an unknown id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput wraps validation failures on mutation input.
	ErrInvalidInput = errors.New("invalid input")
)

var promotionURLPattern = regexp.MustCompile(`^https?://.+`)

// UpdateStore is the persistence contract for updates
type UpdateStore interface {
	ListUpdates(ctx context.Context) ([]*models.UpdateRow, error)
	InsertUpdate(ctx context.Context, row *models.UpdateRow) error
	SetUpdateActive(ctx context.Context, id string, active bool) error
}

// PromotionStore is the persistence contract for promotions
type PromotionStore interface {
	ListPromotions(ctx context.Context) ([]*models.PromotionRow, error)
	InsertPromotion(ctx context.Context, row *models.PromotionRow) error
	SetPromotionActive(ctx context.Context, id string, active bool) error
}

// OrganizationStore is the persistence contract for organizations
type OrganizationStore interface {
	ListOrganizations(ctx context.Context) ([]*models.OrganizationRow, error)
	SetOrganizationVerified(ctx context.Context, id string, verified bool, at time.Time) error
}

// ProfileStore is the persistence contract for user profiles
type ProfileStore interface {
	ListProfiles(ctx context.Context) ([]*models.ProfileRow, error)
	SetProfileBlocked(ctx context.Context, id string, blocked bool) error
	DeleteProfile(ctx context.Context, id string) error
}

// Console owns the four entity caches and the mutations over them
type Console struct {
	updateStore    UpdateStore
	promotionStore PromotionStore
	orgStore       OrganizationStore
	profileStore   ProfileStore

	updates       *collection[Update]
	promotions    *collection[Promotion]
	organizations *collection[Organization]
	users         *collection[UserProfile]

	// publishMu serialises the active-update check with the insert inside this process.
	// Across processes the updates_single_active index is the backstop.
	publishMu sync.Mutex
	now       func() time.Time
}

// New creates a console over the given stores. Nothing is fetched until Load or Refetch.
func New(updates UpdateStore, promotions PromotionStore, orgs OrganizationStore, profiles ProfileStore) *Console {
	c := &Console{
		updateStore:    updates,
		promotionStore: promotions,
		orgStore:       orgs,
		profileStore:   profiles,
		now:            time.Now,
	}

	c.updates = newCollection(EntityUpdates, func(ctx context.Context) ([]Update, error) {
		rows, err := updates.ListUpdates(ctx)
		return mapRows(rows, updateFromRow), err
	}, func(u Update) string { return u.ID }, func(u Update) time.Time { return u.CreatedAt })

	c.promotions = newCollection(EntityPromotions, func(ctx context.Context) ([]Promotion, error) {
		rows, err := promotions.ListPromotions(ctx)
		return mapRows(rows, promotionFromRow), err
	}, func(p Promotion) string { return p.ID }, func(p Promotion) time.Time { return p.CreatedAt })

	c.organizations = newCollection(EntityOrganizations, func(ctx context.Context) ([]Organization, error) {
		rows, err := orgs.ListOrganizations(ctx)
		return mapRows(rows, organizationFromRow), err
	}, func(o Organization) string { return o.ID }, func(o Organization) time.Time { return o.CreatedAt })

	c.users = newCollection(EntityUsers, func(ctx context.Context) ([]UserProfile, error) {
		rows, err := profiles.ListProfiles(ctx)
		return mapRows(rows, profileFromRow), err
	}, func(u UserProfile) string { return u.ID }, func(u UserProfile) time.Time { return u.CreatedAt })

	return c
}

func mapRows[R any, T any](rows []*R, fn func(*R) T) []T {
	if rows == nil {
		return nil
	}
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, fn(r))
	}
	return out
}

// Load fetches all four collections concurrently. A failure in one does not stop the others.
func (c *Console) Load(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return c.updates.Refetch(ctx) })
	g.Go(func() error { return c.promotions.Refetch(ctx) })
	g.Go(func() error { return c.organizations.Refetch(ctx) })
	g.Go(func() error { return c.users.Refetch(ctx) })
	return g.Wait()
}

// Refetch reloads one collection by entity name
func (c *Console) Refetch(ctx context.Context, entity string) error {
	switch entity {
	case EntityUpdates:
		return c.updates.Refetch(ctx)
	case EntityPromotions:
		return c.promotions.Refetch(ctx)
	case EntityOrganizations:
		return c.organizations.Refetch(ctx)
	case EntityUsers:
		return c.users.Refetch(ctx)
	default:
		return fmt.Errorf("%w: unknown entity %q", ErrInvalidInput, entity)
	}
}

func (c *Console) Updates() []Update             { return c.updates.List() }
func (c *Console) UpdatesLoading() bool          { return c.updates.Loading() }
func (c *Console) Promotions() []Promotion       { return c.promotions.List() }
func (c *Console) PromotionsLoading() bool       { return c.promotions.Loading() }
func (c *Console) Organizations() []Organization { return c.organizations.List() }
func (c *Console) OrganizationsLoading() bool    { return c.organizations.Loading() }
func (c *Console) Users() []UserProfile          { return c.users.List() }
func (c *Console) UsersLoading() bool            { return c.users.Loading() }

// record counts a mutation outcome and logs remote failures
func record(entity, operation string, err error) {
	result := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrActiveUpdateExists), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNotFound):
		result = "rejected"
	default:
		result = "error"
		slog.Error("mutation failed", "entity", entity, "operation", operation, "error", err)
	}
	telemetry.MutationsTotal.WithLabelValues(entity, operation, result).Inc()
}

// refreshAfter refetches a collection after a write. A refetch failure is logged by
// the collection and does not turn a successful write into a failure.
func refreshAfter[T any](ctx context.Context, col *collection[T]) {
	_ = col.Refetch(ctx)
}

// UpdateInput is the payload for PublishUpdate
type UpdateInput struct {
	Title       string
	Subtitle    string
	Description string
	Features    []string
}

func (in UpdateInput) normalize() (Update, error) {
	u := Update{
		Title:       strings.TrimSpace(in.Title),
		Subtitle:    strings.TrimSpace(in.Subtitle),
		Description: optional(in.Description),
		Features:    []string{},
		Status:      StatusActive,
	}
	for _, f := range in.Features {
		if f = strings.TrimSpace(f); f != "" {
			u.Features = append(u.Features, f)
		}
	}
	switch {
	case u.Title == "":
		return u, fmt.Errorf("%w: title is required", ErrInvalidInput)
	case u.Subtitle == "":
		return u, fmt.Errorf("%w: subtitle is required", ErrInvalidInput)
	case len(u.Features) == 0:
		return u, fmt.Errorf("%w: at least one feature is required", ErrInvalidInput)
	}
	return u, nil
}

// PublishUpdate inserts a new active update. It fails without touching the store when the
// cache already holds an active update.
func (c *Console) PublishUpdate(ctx context.Context, in UpdateInput) (u Update, err error) {
	defer func() { record(EntityUpdates, "publish", err) }()

	u, err = in.normalize()
	if err != nil {
		return Update{}, err
	}

	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	for _, existing := range c.updates.List() {
		if existing.Status == StatusActive {
			return Update{}, ErrActiveUpdateExists
		}
	}

	row := updateToRow(u)
	if err = c.updateStore.InsertUpdate(ctx, row); err != nil {
		if errors.Is(err, repositories.ErrActiveUpdateConflict) {
			// Another process published first; pick up its record.
			refreshAfter(ctx, c.updates)
			return Update{}, ErrActiveUpdateExists
		}
		return Update{}, err
	}
	refreshAfter(ctx, c.updates)
	return updateFromRow(row), nil
}

// EndUpdate marks an update as ended. The collection is refetched whether or not the write succeeded.
func (c *Console) EndUpdate(ctx context.Context, id string) (err error) {
	defer func() { record(EntityUpdates, "end", err) }()

	err = c.updateStore.SetUpdateActive(ctx, id, false)
	refreshAfter(ctx, c.updates)
	return notFound(err, EntityUpdates, id)
}

// PromotionInput is the payload for CreatePromotion
type PromotionInput struct {
	Organizer      string
	EventDetails   string
	AdditionalInfo string
	URL            string
	ImageURL       string
}

func (in PromotionInput) normalize() (Promotion, error) {
	p := Promotion{
		Organizer:      strings.TrimSpace(in.Organizer),
		EventDetails:   strings.TrimSpace(in.EventDetails),
		AdditionalInfo: optional(in.AdditionalInfo),
		URL:            optional(in.URL),
		ImageURL:       optional(in.ImageURL),
		Status:         StatusActive,
	}
	switch {
	case p.Organizer == "":
		return p, fmt.Errorf("%w: organizer is required", ErrInvalidInput)
	case p.EventDetails == "":
		return p, fmt.Errorf("%w: event details are required", ErrInvalidInput)
	case p.URL != nil && !promotionURLPattern.MatchString(*p.URL):
		return p, fmt.Errorf("%w: url must start with http:// or https://", ErrInvalidInput)
	}
	return p, nil
}

// Validate reports whether in would be accepted by CreatePromotion
func (in PromotionInput) Validate() error {
	_, err := in.normalize()
	return err
}

// CreatePromotion inserts a new active promotion. Any number of promotions may be active.
func (c *Console) CreatePromotion(ctx context.Context, in PromotionInput) (p Promotion, err error) {
	defer func() { record(EntityPromotions, "create", err) }()

	p, err = in.normalize()
	if err != nil {
		return Promotion{}, err
	}

	row := promotionToRow(p)
	if err = c.promotionStore.InsertPromotion(ctx, row); err != nil {
		return Promotion{}, err
	}
	refreshAfter(ctx, c.promotions)
	return promotionFromRow(row), nil
}

// EndPromotion marks a promotion as ended. The collection is refetched whether or not the write succeeded.
func (c *Console) EndPromotion(ctx context.Context, id string) (err error) {
	defer func() { record(EntityPromotions, "end", err) }()

	err = c.promotionStore.SetPromotionActive(ctx, id, false)
	refreshAfter(ctx, c.promotions)
	return notFound(err, EntityPromotions, id)
}

// SetOrganizationVerified writes the verification flag and, once the write succeeds,
// patches the cached record in place. Setting the current value again is not an error.
func (c *Console) SetOrganizationVerified(ctx context.Context, id string, verified bool) (org Organization, err error) {
	defer func() { record(EntityOrganizations, "set_verified", err) }()

	at := c.now().UTC()
	if err = c.orgStore.SetOrganizationVerified(ctx, id, verified, at); err != nil {
		return Organization{}, notFound(err, EntityOrganizations, id)
	}

	org, ok := c.organizations.patch(id, func(o *Organization) {
		o.Verified = verified
		o.UpdatedAt = at
	})
	if !ok {
		// Written remotely but not cached yet.
		refreshAfter(ctx, c.organizations)
		org, _ = c.organizations.Find(id)
	}
	return org, nil
}

// ToggleUserBlock flips the block flag of a cached user and patches the cache on success
func (c *Console) ToggleUserBlock(ctx context.Context, id string) (user UserProfile, err error) {
	defer func() { record(EntityUsers, "toggle_block", err) }()

	current, ok := c.users.Find(id)
	if !ok {
		return UserProfile{}, fmt.Errorf("%w: %s %s", ErrNotFound, EntityUsers, id)
	}

	blocked := !current.Blocked
	if err = c.profileStore.SetProfileBlocked(ctx, id, blocked); err != nil {
		return UserProfile{}, notFound(err, EntityUsers, id)
	}

	user, ok = c.users.patch(id, func(u *UserProfile) { u.Blocked = blocked })
	if !ok {
		// Removed from the cache while the write was in flight.
		current.Blocked = blocked
		user = current
	}
	return user, nil
}

// RemoveUser hard-deletes a profile and drops it from the cache. Removing an id that
// no longer exists is a no-op.
func (c *Console) RemoveUser(ctx context.Context, id string) (err error) {
	defer func() { record(EntityUsers, "remove", err) }()

	if err = c.profileStore.DeleteProfile(ctx, id); err != nil {
		return err
	}
	c.users.remove(id)
	return nil
}

// notFound rewrites the repository not-found sentinel into ErrNotFound
func notFound(err error, entity, id string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, entity, id)
	}
	return err
}
