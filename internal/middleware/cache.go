package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/concert-calendar/internal/config"
	"github.com/iliyamo/concert-calendar/internal/logger"
)

// recorder tees the handler's output into buf until limit bytes have been
// seen.  A response larger than limit is marked oversized and not stored.
type recorder struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	limit     int64
	oversized bool
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.oversized {
		if r.limit > 0 && int64(r.buf.Len()+len(b)) > r.limit {
			r.oversized = true
			r.buf.Reset()
		} else {
			r.buf.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// ResponseCache stores rendered calendar pages in Redis.  Bookings and new
// concerts change what the calendar shows, so the services call Invalidate
// after every committed write.  A ResponseCache without a Redis client is
// a no-op.
type ResponseCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
	log *logger.Logger
}

// NewResponseCache returns a cache backed by rdb, which may be nil.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client, log *logger.Logger) *ResponseCache {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return &ResponseCache{cfg: cfg, rdb: rdb, log: log}
}

func (rc *ResponseCache) enabled() bool { return rc != nil && rc.cfg.Enabled && rc.rdb != nil }

// cacheKey builds a stable key honoring prefix/strategy.  The
// representation (JSON or HTML) is always part of the key.
func (rc *ResponseCache) cacheKey(c echo.Context) string {
	r := c.Request()
	route := c.Path()
	query := r.URL.RawQuery
	format := "html"
	if WantsJSON(c) {
		format = "json"
	}

	var parts []string
	switch strings.ToLower(rc.cfg.KeyStrategy) {
	case "route":
		parts = []string{"route", route}
	case "method_route":
		parts = []string{"method", r.Method, "route", route}
	case "method_route_query":
		parts = []string{"method", r.Method, "route", route, "q", query}
	default: // "route_query"
		parts = []string{"route", route, "q", query}
	}
	parts = append(parts, "fmt", format)

	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%x", rc.cfg.Prefix, sum[:])
}

// cachedPage is the JSON document stored per cache key.
type cachedPage struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

func (p cachedPage) replay(c echo.Context) error {
	h := c.Response().Header()
	for k, vals := range p.Header {
		for _, v := range vals {
			h.Add(k, v)
		}
	}
	h.Set("X-Cache", "HIT")
	return c.Blob(p.Status, h.Get(echo.HeaderContentType), p.Body)
}

// skipCachedHeader reports headers that belong to one response only.
func skipCachedHeader(k string) bool {
	switch http.CanonicalHeaderKey(k) {
	case echo.HeaderContentLength, echo.HeaderXRequestID, echo.HeaderSetCookie, "X-Cache":
		return true
	}
	return false
}

// Middleware serves cached copies of successful responses.  Requests that
// carry credentials are never cached since their page names the user.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
	if !rc.enabled() {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rc.cfg.Methods[strings.ToUpper(c.Request().Method)] || hasCredentials(c) {
				return next(c)
			}

			ctx := c.Request().Context()
			key := rc.cacheKey(c)

			if bs, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
				var page cachedPage
				if json.Unmarshal(bs, &page) == nil && page.Status != 0 {
					return page.replay(c)
				}
			}

			rec := &recorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(rc.cfg.MaxBodyBytes)}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.oversized {
				return nil
			}

			page := cachedPage{Status: rec.status, Header: http.Header{}, Body: rec.buf.Bytes()}
			for k, vals := range c.Response().Header() {
				if !skipCachedHeader(k) {
					page.Header[k] = append([]string(nil), vals...)
				}
			}
			payload, err := json.Marshal(page)
			if err != nil {
				return nil
			}
			if err := rc.rdb.SetEx(context.WithoutCancel(ctx), key, payload, rc.cfg.TTL).Err(); err != nil {
				rc.log.WithError(err).Warn("cache: store failed", "key", key)
			}
			return nil
		}
	}
}

// Invalidate deletes every cached page under the cache prefix.
func (rc *ResponseCache) Invalidate(ctx context.Context) error {
	if !rc.enabled() {
		return nil
	}
	iter := rc.rdb.Scan(ctx, 0, rc.cfg.Prefix+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return rc.rdb.Del(ctx, keys...).Err()
}
