package admin

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOrgs(m *memStore) {
	lat, lng := 40.7128, -74.006
	m.seedOrganization("org-1", "Harbor Food Bank", false, &lat, &lng, "food", "nyc")
	m.seedOrganization("org-2", "River Shelter", true, nil, nil, "housing")
	m.seedOrganization("org-3", "Food Rescue", false, nil, nil)
}

func TestOrganizations_ListSearchAndPaginate(t *testing.T) {
	f := newFixture(seedOrgs)

	body := decode(t, f.do(t, http.MethodGet, "/api/v1/admin/organizations?q=FOOD&per_page=1", nil))
	items := body["organizations"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Food Rescue", items[0].(map[string]any)["name"], "newest match first")

	pg := body["pagination"].(map[string]any)
	assert.Equal(t, float64(2), pg["total"])
	assert.Equal(t, float64(2), pg["total_pages"])
	assert.Equal(t, false, body["loading"])

	body = decode(t, f.do(t, http.MethodGet, "/api/v1/admin/organizations?q=nyc", nil))
	items = body["organizations"].([]any)
	require.Len(t, items, 1)
	org := items[0].(map[string]any)
	assert.Equal(t, "org-1", org["id"])
	assert.Equal(t, "https://www.google.com/maps?q=40.7128,-74.006", org["map_url"])
}

func TestOrganizations_Verified(t *testing.T) {
	f := newFixture(seedOrgs)

	items := decode(t, f.do(t, http.MethodGet, "/api/v1/admin/organizations/verified", nil))["organizations"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "org-2", items[0].(map[string]any)["id"])
	_, hasMap := items[0].(map[string]any)["map_url"]
	assert.False(t, hasMap, "map_url is omitted without coordinates")
}

func TestOrganizations_SetVerification(t *testing.T) {
	f := newFixture(seedOrgs)

	for i := 0; i < 2; i++ {
		w := f.do(t, http.MethodPut, "/api/v1/admin/organizations/org-1/verification", SetVerificationRequest{Verified: boolPtr(true)})
		require.Equal(t, http.StatusOK, w.Code, "attempt %d: %s", i+1, w.Body.String())
		assert.Equal(t, true, decode(t, w)["organization"].(map[string]any)["is_verified"])
	}

	w := f.do(t, http.MethodGet, "/api/v1/admin/organizations/org-1", nil)
	assert.Equal(t, true, decode(t, w)["organization"].(map[string]any)["is_verified"])
}

func TestOrganizations_SetVerificationErrors(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		body     any
		storeErr error
		wantCode int
	}{
		{"missing flag", "org-1", map[string]any{}, nil, http.StatusBadRequest},
		{"unknown id", "org-404", SetVerificationRequest{Verified: boolPtr(true)}, nil, http.StatusNotFound},
		{"store down", "org-1", SetVerificationRequest{Verified: boolPtr(true)}, errStoreDown, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(seedOrgs)
			f.store.writeErr = tt.storeErr

			w := f.do(t, http.MethodPut, "/api/v1/admin/organizations/"+tt.id+"/verification", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)

			o, ok := f.console.FindOrganization("org-1")
			require.True(t, ok)
			assert.False(t, o.Verified, "cache must be unchanged after a failed write")
		})
	}
}

func boolPtr(b bool) *bool { return &b }
