package handlers

import (
	"fmt"
	"gallery/metrics"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiresSession(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/images", "/api/albums", "/api/users/me", "/api/auth/verify"} {
		w := s.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestImageUpload(t *testing.T) {
	s := newTestServer(t)
	s.register("alice")
	album := s.createAlbum("Trips")

	w := s.upload("/api/images", map[string]string{
		"title":       "  Beach ",
		"description": "sunset",
		"tags":        "sea, sun,sea",
		"albumId":     fmt.Sprint(album.ID),
	}, "beach.png", "image/png", testPNG(t, 40, 20))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	image := decode[ImageInfo](t, w)
	assert.Equal(t, "Beach", image.Title)
	assert.Equal(t, []string{"sea", "sun"}, image.Tags)
	assert.Equal(t, uint16(40), image.Width)
	assert.Equal(t, uint16(20), image.Height)
	assert.Equal(t, "beach.png", image.OriginalName)
	require.NotNil(t, image.AlbumID)
	assert.Equal(t, album.ID, *image.AlbumID)
	assert.NotEmpty(t, image.ThumbURL)

	// first image becomes the cover
	got := s.album(album.ID)
	require.NotNil(t, got.CoverImageID)
	assert.Equal(t, image.ID, *got.CoverImageID)
	assert.Equal(t, image.URL, got.CoverURL)
	assert.Equal(t, int64(1), got.ImageCount)

	file := s.do(http.MethodGet, image.URL, nil)
	assert.Equal(t, http.StatusOK, file.Code)
	assert.Equal(t, "private, max-age=604800", file.Header().Get("cache-control"))
	assert.Equal(t, testPNG(t, 40, 20), file.Body.Bytes())

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/metrics", nil).Code, "metrics stay off the API port")
	m := httptest.NewRecorder()
	metrics.Router().ServeHTTP(m, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, m.Code)
	assert.Contains(t, m.Body.String(), `gallery_cover_repairs_total{op="presence",result="changed"}`)
	assert.Contains(t, m.Body.String(), `gallery_uploads_total{result="ok"}`)
}

func TestImageUploadRejected(t *testing.T) {
	s := newTestServer(t)
	s.register("alice")

	tests := []struct {
		name     string
		fields   map[string]string
		mimeType string
		content  []byte
		status   int
	}{
		{"no file", map[string]string{"title": "x"}, "", nil, http.StatusBadRequest},
		{"not an image", map[string]string{"title": "x"}, "text/plain", []byte("hello"), http.StatusBadRequest},
		{"no title", map[string]string{}, "image/png", testPNG(t, 2, 2), http.StatusBadRequest},
		{"bad album id", map[string]string{"title": "x", "albumId": "abc"}, "image/png", testPNG(t, 2, 2), http.StatusBadRequest},
		{"unknown album", map[string]string{"title": "x", "albumId": "999"}, "image/png", testPNG(t, 2, 2), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.upload("/api/images", tt.fields, "file", tt.mimeType, tt.content)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	list := decode[ImageListResponse](t, s.do(http.MethodGet, "/api/images", nil))
	assert.Empty(t, list.Images)
}

func TestImageMoveRepairsBothAlbums(t *testing.T) {
	s := newTestServer(t)
	s.register("alice")
	a := s.createAlbum("A")
	b := s.createAlbum("B")
	first := s.uploadImage("first", a.ID)
	second := s.uploadImage("second", a.ID)
	assert.Equal(t, first.ID, *s.album(a.ID).CoverImageID)

	w := s.do(http.MethodPut, fmt.Sprintf("/api/images/%d", first.ID), map[string]any{"albumId": b.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, second.ID, *s.album(a.ID).CoverImageID, "A falls back to its remaining image")
	assert.Equal(t, first.ID, *s.album(b.ID).CoverImageID, "B gets the moved image")

	// moving out of any album with null
	w = s.doRaw(http.MethodPut, fmt.Sprintf("/api/images/%d", first.ID), `{"albumId": null}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, decode[ImageInfo](t, w).AlbumID)
	assert.Nil(t, s.album(b.ID).CoverImageID)
}

func TestImageUpdateMetadata(t *testing.T) {
	s := newTestServer(t)
	s.register("alice")
	a := s.createAlbum("A")
	image := s.uploadImage("photo", a.ID)

	w := s.doRaw(http.MethodPut, fmt.Sprintf("/api/images/%d", image.ID), `{"title": "Renamed", "tags": "b,a"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[ImageInfo](t, w)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, []string{"a", "b"}, updated.Tags)
	require.NotNil(t, updated.AlbumID, "album is kept when not sent")
	assert.Equal(t, a.ID, *updated.AlbumID)

	w = s.doRaw(http.MethodPut, fmt.Sprintf("/api/images/%d", image.ID), `{"tags": 5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.doRaw(http.MethodPut, fmt.Sprintf("/api/images/%d", image.ID), `{"title": ""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.doRaw(http.MethodPut, "/api/images/0", `{"title": "x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.doRaw(http.MethodPut, "/api/images/999", `{"title": "x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImagesBulkMove(t *testing.T) {
	s := newTestServer(t)
	s.register("alice")
	target := s.createAlbum("Target")
	x := s.uploadImage("x", 0)
	y := s.uploadImage("y", 0)

	w := s.do(http.MethodPost, "/api/images/bulk/move", map[string]any{
		"imageIds":      []uint64{y.ID, x.ID, y.ID, 9999},
		"targetAlbumId": target.ID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(2), decode[CountResponse](t, w).Count)

	album := s.album(target.ID)
	require.NotNil(t, album.CoverImageID)
	assert.Equal(t, y.ID, *album.CoverImageID, "first requested image becomes the cover")
	assert.Equal(t, int64(2), album.ImageCount)

	w = s.do(http.MethodPost, "/api/images/bulk/move", map[string]any{"imageIds": []uint64{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodPost, "/api/images/bulk/move", map[string]any{"imageIds": []uint64{9999}})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(http.MethodPost, "/api/images/bulk/move", map[string]any{"imageIds": []uint64{x.ID}, "targetAlbumId": 9999})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImageDeleteRepairsCover(t *testing.T) {
	s := newTestServer(t)
	s.register("alice")
	a := s.createAlbum("A")
	first := s.uploadImage("first", a.ID)
	second := s.uploadImage("second", a.ID)

	w := s.do(http.MethodDelete, fmt.Sprintf("/api/images/%d", first.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, second.ID, *s.album(a.ID).CoverImageID)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, first.URL, nil).Code, "stored file is gone")
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, fmt.Sprintf("/api/images/%d", first.ID), nil).Code)

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/images/%d", second.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, s.album(a.ID).CoverImageID)
}

func TestImageListAndTags(t *testing.T) {
	s := newTestServer(t)
	s.register("alice")
	a := s.createAlbum("A")
	for i, tags := range []string{"sea,sun", "sea", "city"} {
		w := s.upload("/api/images", map[string]string{
			"title":   fmt.Sprintf("image %d", i),
			"tags":    tags,
			"albumId": fmt.Sprint(a.ID),
		}, "x.png", "image/png", testPNG(t, 4, 4))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	s.uploadImage("loose", 0)

	list := decode[ImageListResponse](t, s.do(http.MethodGet, "/api/images?tag=sea&limit=1", nil))
	assert.Len(t, list.Images, 1)
	assert.Equal(t, int64(2), list.Pagination.Total)
	assert.Equal(t, int64(2), list.Pagination.Pages)

	list = decode[ImageListResponse](t, s.do(http.MethodGet, fmt.Sprintf("/api/images?albumId=%d", a.ID), nil))
	assert.Len(t, list.Images, 3)

	list = decode[ImageListResponse](t, s.do(http.MethodGet, "/api/images?search=LOOSE", nil))
	require.Len(t, list.Images, 1)
	assert.Equal(t, "loose", list.Images[0].Title)

	albumImages := decode[AlbumImagesResponse](t, s.do(http.MethodGet, fmt.Sprintf("/api/albums/%d/images?sortBy=title&sortOrder=asc", a.ID), nil))
	require.Len(t, albumImages.Images, 3)
	assert.Equal(t, "image 0", albumImages.Images[0].Title)
	assert.Equal(t, int64(3), albumImages.Album.ImageCount)

	tags := decode[struct {
		Tags []TagInfo `json:"tags"`
	}](t, s.do(http.MethodGet, "/api/images/tags/all", nil))
	require.Len(t, tags.Tags, 3)
	assert.Equal(t, TagInfo{Name: "sea", Count: 2}, tags.Tags[0])
}

func TestImagesAreOwnedPerUser(t *testing.T) {
	s := newTestServer(t)
	s.register("alice")
	a := s.createAlbum("A")
	image := s.uploadImage("private", a.ID)

	s.register("bob")
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, fmt.Sprintf("/api/images/%d", image.ID), nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, fmt.Sprintf("/api/images/%d", image.ID), nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, fmt.Sprintf("/api/albums/%d", a.ID), nil).Code)

	// bob cannot put his image into alice's album
	own := s.uploadImage("mine", 0)
	w := s.do(http.MethodPut, fmt.Sprintf("/api/images/%d", own.ID), map[string]any{"albumId": a.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	list := decode[ImageListResponse](t, s.do(http.MethodGet, "/api/images", nil))
	assert.Len(t, list.Images, 1)
}
