package console

import "strings"

// Default and maximum page sizes for Paginate
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

func (c *Console) FindUpdate(id string) (Update, bool)             { return c.updates.Find(id) }
func (c *Console) FindPromotion(id string) (Promotion, bool)       { return c.promotions.Find(id) }
func (c *Console) FindOrganization(id string) (Organization, bool) { return c.organizations.Find(id) }
func (c *Console) FindUser(id string) (UserProfile, bool)          { return c.users.Find(id) }

// ActivePromotions returns the active promotions, newest first
func (c *Console) ActivePromotions() []Promotion {
	var out []Promotion
	for _, p := range c.promotions.List() {
		if p.Status == StatusActive {
			out = append(out, p)
		}
	}
	return out
}

// ActiveUpdate returns the active update, if any
func (c *Console) ActiveUpdate() (Update, bool) {
	for _, u := range c.updates.List() {
		if u.Status == StatusActive {
			return u, true
		}
	}
	return Update{}, false
}

func containsFold(s *string, q string) bool {
	return s != nil && strings.Contains(strings.ToLower(*s), q)
}

// SearchOrganizations filters organizations by a case-insensitive substring of the
// name, contact email or any tag. An empty query matches everything.
func (c *Console) SearchOrganizations(query string) []Organization {
	all := c.organizations.List()
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all
	}
	var out []Organization
	for _, o := range all {
		if strings.Contains(strings.ToLower(o.Name), q) || containsFold(o.ContactEmail, q) || tagsMatch(o.Tags, q) {
			out = append(out, o)
		}
	}
	return out
}

func tagsMatch(tags []string, q string) bool {
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// VerifiedOrganizations returns only verified organizations
func (c *Console) VerifiedOrganizations() []Organization {
	var out []Organization
	for _, o := range c.organizations.List() {
		if o.Verified {
			out = append(out, o)
		}
	}
	return out
}

// SearchUsers filters users by a case-insensitive substring of full name, email or username
func (c *Console) SearchUsers(query string) []UserProfile {
	all := c.users.List()
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all
	}
	var out []UserProfile
	for _, u := range all {
		if strings.Contains(strings.ToLower(u.Email), q) || containsFold(u.FullName, q) || containsFold(u.Username, q) {
			out = append(out, u)
		}
	}
	return out
}

// Page is one page of a filtered list
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Paginate slices items into 1-based pages. Out of range pages are empty.
func Paginate[T any](items []T, page, perPage int) Page[T] {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if page < 1 {
		page = 1
	}

	total := len(items)
	p := Page[T]{
		Items:      []T{},
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	// Compare page counts before multiplying so huge page numbers cannot overflow.
	if page > p.TotalPages {
		return p
	}
	start := (page - 1) * perPage
	end := start + perPage
	if end > total {
		end = total
	}
	p.Items = items[start:end]
	return p
}

// Stats summarises the cached collections
type Stats struct {
	Updates       LifecycleCounts `json:"updates"`
	Promotions    LifecycleCounts `json:"promotions"`
	Organizations struct {
		Total    int `json:"total"`
		Verified int `json:"verified"`
	} `json:"organizations"`
	Users struct {
		Total   int `json:"total"`
		Blocked int `json:"blocked"`
	} `json:"users"`
}

// LifecycleCounts counts records by status
type LifecycleCounts struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// Stats counts records per entity from the caches
func (c *Console) Stats() Stats {
	var s Stats
	for _, u := range c.updates.List() {
		s.Updates.Total++
		if u.Status == StatusActive {
			s.Updates.Active++
		}
	}
	for _, p := range c.promotions.List() {
		s.Promotions.Total++
		if p.Status == StatusActive {
			s.Promotions.Active++
		}
	}
	for _, o := range c.organizations.List() {
		s.Organizations.Total++
		if o.Verified {
			s.Organizations.Verified++
		}
	}
	for _, u := range c.users.List() {
		s.Users.Total++
		if u.Blocked {
			s.Users.Blocked++
		}
	}
	return s
}
