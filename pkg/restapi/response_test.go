package restapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-api/pkg/errno"
)

func failWith(t *testing.T, err error) (int, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Failed(ctx, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestFailedStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"not a video", errno.NewBizError(errno.ErrUploadNotVideo, nil), http.StatusBadRequest, "File must be a video"},
		{"job not found", errno.NewBizError(errno.ErrJobNotFound, nil), http.StatusNotFound, "Job not found"},
		{"too large", errno.NewBizError(errno.ErrUploadTooLarge, nil), http.StatusRequestEntityTooLarge, "File exceeds the size limit"},
		{"queue down", errno.NewBizError(errno.ErrQueueUnavailable, errors.New("closed")), http.StatusServiceUnavailable, "Job queue is unavailable, please retry"},
		{"database error", errno.NewBizError(errno.ErrDatabase, errors.New("conn refused")), http.StatusInternalServerError, "Database error"},
		{"internal error", errno.NewBizError(errno.ErrInternalServer, nil), http.StatusInternalServerError, "Internal server error"},
		{"unauthorized", errno.ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := failWith(t, tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.detail, body["detail"])
		})
	}
}

func TestFailedUnknownError(t *testing.T) {
	status, body := failWith(t, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "boom", body["detail"])
}
