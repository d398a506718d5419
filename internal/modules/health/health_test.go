package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/strategiq/swot/internal/database"
	"github.com/strategiq/swot/internal/middleware"
	"github.com/strategiq/swot/internal/pkg/cron"
	"github.com/strategiq/swot/internal/pkg/nativelog"
	redisc "github.com/strategiq/swot/internal/pkg/redis"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm/logger"
)

func init() { gin.SetMode(gin.TestMode) }

func newRouter(opts Options, adminMW ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	RegisterRoutes(r.Group("/api"), opts, adminMW...)
	return r
}

func serve(r http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Authorization", "Bearer admin")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	db, err := database.Open(sqlite.Open(filepath.Join(t.TempDir(), "health.db")), logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	r := newRouter(Options{Redis: redisc.Wrap(rdb), DB: db})

	w := serve(r, http.MethodGet, "/api/health")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok","redis":true,"database":true}`, w.Body.String())

	mr.Close()
	w = serve(r, http.MethodGet, "/api/health")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.JSONEq(t, `{"status":"degraded","redis":false,"database":true}`, w.Body.String())
}

func TestHealth_WithoutDatabase(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	w := serve(newRouter(Options{Redis: redisc.Wrap(rdb)}), http.MethodGet, "/api/health")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok","redis":true}`, w.Body.String())
}

func TestAdminRoutes_RequireMiddleware(t *testing.T) {
	t.Parallel()

	r := newRouter(Options{Scheduler: cron.New(nil), LogDir: t.TempDir()})
	require.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/health/cron").Code)
	require.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/health/log/list").Code)
}

func TestCronRoutes(t *testing.T) {
	t.Parallel()

	ran := make(chan struct{}, 1)
	sched := cron.New(nil)
	sched.Register(cron.Job{
		Name:        "purge_history",
		Description: "Delete old analyses",
		Interval:    time.Hour,
		Fn: func(context.Context) error {
			ran <- struct{}{}
			return nil
		},
	})
	r := newRouter(Options{Scheduler: sched}, middleware.AdminToken("admin"))

	w := serve(r, http.MethodGet, "/api/health/cron")
	require.Equal(t, http.StatusOK, w.Code)
	var jobs map[string]cron.ListItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &jobs))
	require.Equal(t, cron.StatusIdle, jobs["purge_history"].Status)

	w = serve(r, http.MethodPost, "/api/health/cron/run/purge_history")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, ran, 1)

	w = serve(r, http.MethodPost, "/api/health/cron/run/nope")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogRoutes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	today := nativelog.TodayFilename(now)
	require.NoError(t, os.WriteFile(filepath.Join(dir, today), []byte("line one\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stdout_3-13-25.log"), []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	r := newRouter(Options{LogDir: dir, Now: func() time.Time { return now }}, middleware.AdminToken("admin"))

	w := serve(r, http.MethodGet, "/api/health/log/list")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []logItem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 2)

	w = serve(r, http.MethodGet, "/api/health/log?filename="+today)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "line one\n", w.Body.String())

	w = serve(r, http.MethodGet, "/api/health/log?filename=../../etc/passwd")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodDelete, "/api/health/log?filename="+today)
	require.Equal(t, http.StatusNoContent, w.Code)
	data, err := os.ReadFile(filepath.Join(dir, today))
	require.NoError(t, err)
	require.Empty(t, data)

	w = serve(r, http.MethodDelete, "/api/health/log?filename=stdout_3-13-25.log")
	require.Equal(t, http.StatusNoContent, w.Code)
	_, err = os.Stat(filepath.Join(dir, "stdout_3-13-25.log"))
	require.ErrorIs(t, err, os.ErrNotExist)

	w = serve(r, http.MethodDelete, "/api/health/log")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFormatByteSize(t *testing.T) {
	t.Parallel()

	require.Equal(t, "512 B", formatByteSize(512))
	require.Equal(t, "1.50 KB", formatByteSize(1536))
	require.Equal(t, "2.00 MB", formatByteSize(2<<20))
}
