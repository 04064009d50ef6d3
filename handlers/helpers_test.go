package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"gallery/auth"
	"gallery/config"
	"gallery/db"
	"gallery/models"
	"gallery/storage"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

type testServer struct {
	t       *testing.T
	router  *gin.Engine
	cookies []*http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, db.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db"))))
	require.NoError(t, models.Migrate())

	oldDir := config.UPLOAD_DIR
	config.UPLOAD_DIR = filepath.Join(t.TempDir(), "uploads")
	oldMinFree := config.MIN_FREE_SPACE_MB
	config.MIN_FREE_SPACE_MB = 0
	t.Cleanup(func() {
		config.UPLOAD_DIR = oldDir
		config.MIN_FREE_SPACE_MB = oldMinFree
	})
	storage.Init()

	router := gin.New()
	router.Use(auth.Middleware(db.Instance))
	Register(router)
	return &testServer{t: t, router: router}
}

func (s *testServer) send(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if cookies := w.Result().Cookies(); len(cookies) > 0 {
		s.cookies = cookies
	}
	return w
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(req)
}

// doRaw sends a literal JSON body, needed where null and absent fields differ
func (s *testServer) doRaw(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return s.send(req)
}

func (s *testServer) upload(path string, fields map[string]string, fileName, mimeType string, content []byte) *httptest.ResponseRecorder {
	s.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(s.t, mw.WriteField(k, v))
	}
	if content != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, uploadField, fileName))
		header.Set("Content-Type", mimeType)
		part, err := mw.CreatePart(header)
		require.NoError(s.t, err)
		_, err = part.Write(content)
		require.NoError(s.t, err)
	}
	require.NoError(s.t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.send(req)
}

func (s *testServer) register(username string) UserInfo {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/auth/register", UserCredentialsRequest{Username: username, Password: "secret123"})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[UserInfo](s.t, w)
}

func (s *testServer) createAlbum(name string) AlbumInfo {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/albums", AlbumCreateRequest{Name: name})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[AlbumInfo](s.t, w)
}

func (s *testServer) uploadImage(title string, albumID uint64) ImageInfo {
	s.t.Helper()
	fields := map[string]string{"title": title}
	if albumID != 0 {
		fields["albumId"] = fmt.Sprint(albumID)
	}
	w := s.upload("/api/images", fields, title+".png", "image/png", testPNG(s.t, 40, 20))
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[ImageInfo](s.t, w)
}

func (s *testServer) album(id uint64) AlbumInfo {
	s.t.Helper()
	w := s.do(http.MethodGet, fmt.Sprintf("/api/albums/%d", id), nil)
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	return decode[AlbumInfo](s.t, w)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var result T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result), w.Body.String())
	return result
}

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, height/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
