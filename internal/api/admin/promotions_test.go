package admin

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admin-console/admin-console/internal/media"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestPromotions_CreateJSON(t *testing.T) {
	f := newFixture(nil)

	w := f.do(t, http.MethodPost, "/api/v1/admin/promotions", CreatePromotionRequest{
		Organizer:    "Food Bank",
		EventDetails: "Saturday drive",
		URL:          "https://foodbank.example.org",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	p := decode(t, w)["promotion"].(map[string]any)
	assert.Equal(t, "Food Bank", p["organizer"])
	assert.Equal(t, "https://foodbank.example.org", p["url"])
	assert.Nil(t, p["image_url"])
	assert.Nil(t, p["additional_info"])
	assert.Equal(t, "active", p["status"])
}

func TestPromotions_CreateMultipartWithImage(t *testing.T) {
	f := newFixture(nil)

	body, ct := multipartBody(t, map[string]string{
		"organizer":     "Shelter",
		"event_details": "Open house",
	}, "poster.png", pngBytes)
	w := f.postMultipart(t, "/api/v1/admin/promotions", body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	p := decode(t, w)["promotion"].(map[string]any)
	assert.Equal(t, "https://cdn.example.org/promo/poster.png", p["image_url"])
	assert.Equal(t, []string{"poster.png"}, f.uploader.uploads)
	assert.Contains(t, f.uploader.objects, "promo/poster.png")
}

func TestPromotions_FailedCreateDiscardsImage(t *testing.T) {
	f := newFixture(nil)
	f.store.writeErr = errStoreDown

	body, ct := multipartBody(t, map[string]string{"organizer": "O", "event_details": "E"}, "a.png", pngBytes)
	w := f.postMultipart(t, "/api/v1/admin/promotions", body, ct)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, []string{"a.png"}, f.uploader.uploads)
	assert.Empty(t, f.uploader.objects, "an image whose promotion was not saved must be removed")
	assert.Empty(t, f.console.Promotions())
}

func TestPromotions_CreateMultipartWithoutImage(t *testing.T) {
	f := newFixture(nil)

	body, ct := multipartBody(t, map[string]string{"organizer": "Shelter", "event_details": "Open house"}, "", nil)
	w := f.postMultipart(t, "/api/v1/admin/promotions", body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Nil(t, decode(t, w)["promotion"].(map[string]any)["image_url"])
	assert.Empty(t, f.uploader.uploads)
}

func TestPromotions_UploadFailureBlocksCreate(t *testing.T) {
	tests := []struct {
		name      string
		uploadErr error
		wantCode  int
	}{
		{"not an image", media.ErrInvalidImage, http.StatusBadRequest},
		{"storage down", errStoreDown, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(nil)
			f.uploader.err = tt.uploadErr

			body, ct := multipartBody(t, map[string]string{"organizer": "O", "event_details": "E"}, "a.png", pngBytes)
			w := f.postMultipart(t, "/api/v1/admin/promotions", body, ct)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Zero(t, f.store.inserts, "promotion must not be created when the image upload fails")
		})
	}
}

func TestPromotions_InvalidFormSkipsUpload(t *testing.T) {
	f := newFixture(nil)

	body, ct := multipartBody(t, map[string]string{
		"organizer":     "O",
		"event_details": "E",
		"url":           "ftp://example.org",
	}, "a.png", pngBytes)
	w := f.postMultipart(t, "/api/v1/admin/promotions", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.uploader.uploads)
	assert.Zero(t, f.store.inserts)
}

func TestPromotions_OversizedBody(t *testing.T) {
	f := newFixture(nil)

	big := bytes.Repeat([]byte{0}, int(f.uploader.max)+multipartOverhead+1)
	body, ct := multipartBody(t, map[string]string{"organizer": "O", "event_details": "E"}, "big.png", big)
	w := f.postMultipart(t, "/api/v1/admin/promotions", body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Zero(t, f.store.inserts)
}

func TestPromotions_ListFilterAndEnd(t *testing.T) {
	f := newFixture(nil)
	for _, org := range []string{"A", "B"} {
		w := f.do(t, http.MethodPost, "/api/v1/admin/promotions", CreatePromotionRequest{Organizer: org, EventDetails: "e"})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	items := decode(t, f.do(t, http.MethodGet, "/api/v1/admin/promotions", nil))["promotions"].([]any)
	require.Len(t, items, 2)
	newestID := items[0].(map[string]any)["id"].(string)
	assert.Equal(t, "B", items[0].(map[string]any)["organizer"])

	w := f.do(t, http.MethodPost, "/api/v1/admin/promotions/"+newestID+"/end", nil)
	require.Equal(t, http.StatusOK, w.Code)

	active := decode(t, f.do(t, http.MethodGet, "/api/v1/admin/promotions?status=active", nil))["promotions"].([]any)
	require.Len(t, active, 1)
	assert.Equal(t, "A", active[0].(map[string]any)["organizer"])

	w = f.do(t, http.MethodGet, "/api/v1/admin/promotions/"+newestID, nil)
	assert.Equal(t, "ended", decode(t, w)["promotion"].(map[string]any)["status"])
}

func TestUploadImageHandler(t *testing.T) {
	f := newFixture(nil)

	body, ct := multipartBody(t, nil, "flyer.png", pngBytes)
	w := f.postMultipart(t, "/api/v1/admin/media/images", body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	uploaded := decode(t, w)
	assert.Equal(t, "https://cdn.example.org/promo/flyer.png", uploaded["url"])
	assert.Equal(t, "promo/flyer.png", uploaded["key"])
	assert.Equal(t, "sha-flyer.png", uploaded["checksum"])

	w = f.do(t, http.MethodGet, "/api/v1/admin/media/images/promo/flyer.png", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes, w.Body.Bytes())

	w = f.do(t, http.MethodGet, "/api/v1/admin/media/images/promo/missing.png", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	body, ct = multipartBody(t, map[string]string{"note": "no file"}, "", nil)
	w = f.postMultipart(t, "/api/v1/admin/media/images", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
