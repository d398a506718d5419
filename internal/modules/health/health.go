// Package health exposes liveness checks and operator endpoints for the
// scheduler and the native log files.
package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/strategiq/swot/internal/pkg/cron"
	"github.com/strategiq/swot/internal/pkg/nativelog"
	"github.com/strategiq/swot/internal/pkg/response"
	"gorm.io/gorm"
)

const pingTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Redis     Pinger
	DB        *gorm.DB // nil when history persistence is disabled
	Scheduler *cron.Scheduler
	LogDir    string
	Now       func() time.Time
}

type logItem struct {
	Size     string `json:"size"`
	Filename string `json:"filename"`
	Index    int    `json:"index"`
	Created  int64  `json:"created"`
}

// RegisterRoutes mounts GET /health on rg. Operator routes are mounted only
// when adminMW is given.
func RegisterRoutes(rg *gin.RouterGroup, opts Options, adminMW ...gin.HandlerFunc) {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	rg.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()

		redisOK := opts.Redis != nil && opts.Redis.Ping(ctx) == nil
		body := gin.H{"redis": redisOK}
		healthy := redisOK

		if opts.DB != nil {
			sqlDB, err := opts.DB.DB()
			dbOK := err == nil && sqlDB.PingContext(ctx) == nil
			body["database"] = dbOK
			healthy = healthy && dbOK
		}

		code := http.StatusOK
		body["status"] = "ok"
		if !healthy {
			code = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
		c.JSON(code, body)
	})

	if len(adminMW) == 0 {
		return
	}
	admin := rg.Group("/health", adminMW...)

	if sched := opts.Scheduler; sched != nil {
		cronGroup := admin.Group("/cron")
		cronGroup.GET("", func(c *gin.Context) {
			items := sched.List()
			byName := make(map[string]cron.ListItem, len(items))
			for _, item := range items {
				byName[item.Name] = item
			}
			response.OK(c, byName)
		})
		cronGroup.POST("/run/:name", func(c *gin.Context) {
			if err := sched.RunNow(c.Request.Context(), c.Param("name")); err != nil {
				response.NotFoundMsg(c, err.Error())
				return
			}
			response.OK(c, gin.H{"message": "job finished"})
		})
	}

	logGroup := admin.Group("/log")
	logGroup.GET("/list", func(c *gin.Context) {
		entries, err := os.ReadDir(opts.LogDir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				response.OK(c, []logItem{})
				return
			}
			response.InternalError(c, err)
			return
		}

		items := make([]logItem, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			items = append(items, logItem{
				Size:     formatByteSize(info.Size()),
				Filename: entry.Name(),
				Created:  info.ModTime().UnixMilli(),
			})
		}
		sort.Slice(items, func(i, j int) bool { return items[i].Created > items[j].Created })
		for i := range items {
			items[i].Index = i
		}
		response.OK(c, items)
	})

	logGroup.GET("", func(c *gin.Context) {
		path, ok := logPath(c, opts.LogDir)
		if !ok {
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			response.BadRequest(c, "log file not exists")
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
	})

	logGroup.DELETE("", func(c *gin.Context) {
		path, ok := logPath(c, opts.LogDir)
		if !ok {
			return
		}
		// Today's file is still open for appends, so it is truncated instead.
		today := filepath.Join(opts.LogDir, nativelog.TodayFilename(opts.Now()))
		if filepath.Clean(path) == filepath.Clean(today) {
			if err := os.WriteFile(path, nil, 0o644); err != nil && !errors.Is(err, os.ErrNotExist) {
				response.InternalError(c, err)
				return
			}
		} else if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			response.InternalError(c, err)
			return
		}
		response.NoContent(c)
	})
}

func logPath(c *gin.Context, dir string) (string, bool) {
	filename := filepath.Base(strings.TrimSpace(c.Query("filename")))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		response.BadRequest(c, "filename must be string")
		return "", false
	}
	return filepath.Join(dir, filename), true
}

func formatByteSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
