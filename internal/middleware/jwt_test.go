package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuth(t *testing.T) *service.AuthService {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return service.NewAuthService(&config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour}, rdb)
}

func studentRouter(auth *service.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/categories/:category_id/state",
		RequireStudentJWT(auth),
		CheckSingleDeviceSession(auth),
		NoStore(),
		func(c *gin.Context) {
			key, ok := StudentSessionKey(c)
			if !ok {
				c.Status(http.StatusBadRequest)
				return
			}
			c.JSON(http.StatusOK, key)
		},
	)
	return r
}

func call(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) response.ErrCode {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return body.Error.Code
}

func TestStudentRouteBuildsSessionKey(t *testing.T) {
	auth := newTestAuth(t)
	examID := uuid.New()
	token, err := auth.GenerateStudentToken(context.Background(), 7, examID)
	require.NoError(t, err)

	w := call(studentRouter(auth), "/categories/3/state", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var key struct {
		StudentID  int       `json:"student_id"`
		ExamID     uuid.UUID `json:"exam_id"`
		CategoryID int       `json:"category_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &key))
	assert.Equal(t, 7, key.StudentID)
	assert.Equal(t, examID, key.ExamID)
	assert.Equal(t, 3, key.CategoryID)
}

func TestStudentRouteRejections(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()
	examID := uuid.New()

	replaced, err := auth.GenerateStudentToken(ctx, 7, examID)
	require.NoError(t, err)
	current, err := auth.GenerateStudentToken(ctx, 7, examID)
	require.NoError(t, err)
	admin, err := auth.GenerateAdminToken(1, []string{"results:read"})
	require.NoError(t, err)

	r := studentRouter(auth)

	t.Run("missing token", func(t *testing.T) {
		w := call(r, "/categories/3/state", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, response.ErrTokenInvalid, errorCode(t, w))
	})

	t.Run("admin token", func(t *testing.T) {
		w := call(r, "/categories/3/state", admin)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, response.ErrStudentAccessOnly, errorCode(t, w))
	})

	t.Run("replaced by newer login", func(t *testing.T) {
		w := call(r, "/categories/3/state", replaced)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, response.ErrSessionInvalidated, errorCode(t, w))
	})

	t.Run("bad category", func(t *testing.T) {
		w := call(r, "/categories/zero/state", current)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAdminPermissions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := newTestAuth(t)

	r := gin.New()
	admin := r.Group("/admin", RequireAdminJWT(auth))
	admin.GET("/results", RequirePermission("results:read"), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	admin.GET("/monitor", RequireAnyPermission("exams:monitor", "results:read"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	reader, err := auth.GenerateAdminToken(1, []string{"results:read"})
	require.NoError(t, err)
	monitor, err := auth.GenerateAdminToken(2, []string{"exams:monitor"})
	require.NoError(t, err)
	student, err := auth.GenerateStudentToken(context.Background(), 7, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, call(r, "/admin/results", reader).Code)
	assert.Equal(t, http.StatusNoContent, call(r, "/admin/monitor", reader).Code)
	assert.Equal(t, http.StatusNoContent, call(r, "/admin/monitor", monitor).Code)

	w := call(r, "/admin/results", monitor)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.ErrPermissionDenied, errorCode(t, w))

	w = call(r, "/admin/results", student)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.ErrAdminAccessOnly, errorCode(t, w))
}

func TestStudentWSAuthReadsQueryToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := newTestAuth(t)
	token, err := auth.GenerateStudentToken(context.Background(), 7, uuid.New())
	require.NoError(t, err)

	r := gin.New()
	r.GET("/stream", RequireStudentWSAuth(auth), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, call(r, "/stream?token="+token, "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, "/stream", "").Code)

	require.NoError(t, auth.ResetStudentSession(context.Background(), 7))
	assert.Equal(t, http.StatusUnauthorized, call(r, "/stream?token="+token, "").Code)
}
