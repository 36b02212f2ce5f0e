package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-api/ddd/application/app"
	"video-api/ddd/infrastructure/events"
	"video-api/ddd/infrastructure/identity"
	"video-api/ddd/infrastructure/queue"
	"video-api/ddd/infrastructure/storage"
	"video-api/ddd/infrastructure/store"
	"video-api/pkg/config"
)

const testJWTSecret = "test-secret"

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Upload: config.UploadConfig{
			MaxSizeBytes:      64 << 20,
			ContentTypePrefix: "video/",
			LocalStorageDir:   t.TempDir(),
		},
		Transcode: config.TranscodeConfig{
			OutputFormats: []config.OutputFormat{
				{Name: "720p", Resolution: "1280x720", Bitrate: "2500k"},
				{Name: "480p", Resolution: "854x480", Bitrate: "1000k"},
				{Name: "360p", Resolution: "640x360", Bitrate: "600k"},
			},
		},
		Retry: config.RetryConfig{MaxAttempts: 3},
		Auth:  config.AuthConfig{JWTSecret: testJWTSecret},
	}
}

func newTestEngine(t *testing.T) (*gin.Engine, *store.MemoryJobStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := newTestConfig(t)

	s := store.NewMemoryJobStore()
	q := queue.NewMemoryJobQueue(16, time.Minute)
	t.Cleanup(func() { q.Close() })

	localStorage, err := storage.NewLocalStorage(cfg.Upload.LocalStorageDir)
	require.NoError(t, err)

	pipelineApp := app.NewPipelineApp(s, q, localStorage, events.NopJobEventPublisher{}, cfg)
	userApp := app.NewUserApp(identity.NewMemoryRoleProvider())

	engine := gin.New()
	router := NewRouter(pipelineApp, userApp, cfg)
	router.SetupMiddleware(engine)
	router.SetupRoutes(engine)
	return engine, s
}

func multipartUpload(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func doRequest(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	return got
}

func TestUploadAccepted(t *testing.T) {
	engine, s := newTestEngine(t)

	body, contentType := multipartUpload(t, "movie.mp4", "video/mp4", []byte("fake video bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := doRequest(engine, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeBody(t, rec)
	jobID, _ := got["job_id"].(string)
	assert.Len(t, jobID, 8)
	assert.Equal(t, "Upload accepted, transcoding started", got["message"])

	job, err := s.Get(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, "movie.mp4", job.Filename())
	assert.Equal(t, []string{"720p", "480p", "360p"}, job.Formats())
}

func TestUploadRejectsNonVideo(t *testing.T) {
	engine, _ := newTestEngine(t)

	body, contentType := multipartUpload(t, "notes.txt", "text/plain", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := doRequest(engine, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "File must be a video", decodeBody(t, rec)["detail"])
}

func TestUploadRequiresFile(t *testing.T) {
	engine, _ := newTestEngine(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("note", "no file here"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := doRequest(engine, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "File is required", decodeBody(t, rec)["detail"])
}

func TestStatusAfterUpload(t *testing.T) {
	engine, _ := newTestEngine(t)

	body, contentType := multipartUpload(t, "movie.mp4", "video/mp4", []byte("fake video bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := doRequest(engine, req)
	require.Equal(t, http.StatusOK, rec.Code)
	jobID := decodeBody(t, rec)["job_id"].(string)

	rec = doRequest(engine, httptest.NewRequest(http.MethodGet, "/api/status/"+jobID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeBody(t, rec)
	assert.Equal(t, jobID, got["id"])
	assert.Equal(t, "movie.mp4", got["filename"])
	assert.Equal(t, "queued", got["status"])
	assert.Equal(t, float64(0), got["progress"])
	assert.Equal(t, []interface{}{"720p", "480p", "360p"}, got["formats"])
}

func TestStatusUnknownJob(t *testing.T) {
	engine, _ := newTestEngine(t)

	rec := doRequest(engine, httptest.NewRequest(http.MethodGet, "/api/status/deadbeef", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Job not found", decodeBody(t, rec)["detail"])
}

func TestHealthCheck(t *testing.T) {
	engine, _ := newTestEngine(t)

	rec := doRequest(engine, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeBody(t, rec)
	assert.Equal(t, "healthy", got["status"])
	assert.Equal(t, "video-api", got["service"])
}

func signTestToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func TestRoleEndpointRequiresToken(t *testing.T) {
	engine, _ := newTestEngine(t)

	rec := doRequest(engine, httptest.NewRequest(http.MethodGet, "/api/users/role", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoleRoundTrip(t *testing.T) {
	engine, _ := newTestEngine(t)
	token := signTestToken(t, "user-42")

	req := httptest.NewRequest(http.MethodGet, "/api/users/role", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := doRequest(engine, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "student", decodeBody(t, rec)["role"])

	payload, err := json.Marshal(map[string]string{"role": "admin"})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPut, "/api/users/role", bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec = doRequest(engine, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", decodeBody(t, rec)["role"])

	req = httptest.NewRequest(http.MethodGet, "/api/users/role", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = doRequest(engine, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", decodeBody(t, rec)["role"])
}
