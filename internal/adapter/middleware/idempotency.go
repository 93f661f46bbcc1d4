package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	HeaderRequestID = "X-Request-Id"
	HeaderRequestAt = "X-Request-At"

	// in-progress marker lifetime; a crashed handler frees the key after this
	provisionalLockTTL = 60 * time.Second
	maxClockSkew       = 10 * time.Minute
)

type respRecorder struct {
	w    http.ResponseWriter
	buf  *bytes.Buffer
	code int
}

func (r *respRecorder) Header() http.Header { return r.w.Header() }
func (r *respRecorder) Write(b []byte) (int, error) {
	if r.buf != nil {
		r.buf.Write(b)
	}
	return r.w.Write(b)
}
func (r *respRecorder) WriteHeader(statusCode int) { r.code = statusCode; r.w.WriteHeader(statusCode) }

func reject(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, map[string]string{"error": msg, "code": code})
}

// IdempotencyMiddleware: key = method + request path + request id.
// A retried request with the same X-Request-Id and body gets the stored response;
// 5xx responses are not stored so the client can retry them.
// X-Request-At **must** be epoch (seconds or ms) OR RFC3339/RFC3339Nano **with** timezone (Z or ±HH:MM).
func IdempotencyMiddleware(rdb *redis.Client, ttl time.Duration, log *zap.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	store := idempStore{rdb: rdb, lockTTL: provisionalLockTTL, ttl: ttl}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			reqID := strings.TrimSpace(req.Header.Get(HeaderRequestID))
			if reqID == "" {
				return reject(c, http.StatusBadRequest, "idempotency_header", "missing "+HeaderRequestID)
			}
			if !validReqID(reqID) {
				return reject(c, http.StatusBadRequest, "idempotency_header", "invalid "+HeaderRequestID+" format")
			}
			reqAt, err := checkRequestAt(req.Header.Get(HeaderRequestAt), nowUTC(), maxClockSkew)
			if err != nil {
				return reject(c, http.StatusBadRequest, "idempotency_header", err.Error())
			}

			var body []byte
			if req.Body != nil {
				if body, err = io.ReadAll(req.Body); err != nil {
					return reject(c, http.StatusBadRequest, "invalid_body", "unreadable request body")
				}
			}
			req.Body = io.NopCloser(bytes.NewReader(body))

			key := buildKey(req.Method, req.URL.Path, reqID)
			entry := idempEntry{
				InProgress:  true,
				BodySHA256:  bodyHash(body),
				RequestID:   reqID,
				RequestAtMS: reqAt.UnixMilli(),
				CreatedAt:   nowUTC(),
			}

			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			ok, err := store.reserve(ctx, key, entry)
			if err != nil {
				log.Error("idempotency store unavailable", zap.String("key", key), zap.Error(err))
				return reject(c, http.StatusServiceUnavailable, "idempotency_unavailable", "idempotency store unavailable")
			}
			if !ok {
				return replay(ctx, c, store, key, entry.BodySHA256, log)
			}

			rec := &respRecorder{w: c.Response().Writer, buf: &bytes.Buffer{}, code: http.StatusOK}
			c.Response().Writer = rec
			if err := next(c); err != nil {
				c.Error(err)
			}

			// the request context may already be cancelled by now
			bg, cancelBg := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancelBg()
			if rec.code >= http.StatusInternalServerError {
				if err := store.release(bg, key); err != nil {
					log.Warn("idempotency lock release failed", zap.String("key", key), zap.Error(err))
				}
				return nil
			}
			entry.Code = rec.code
			entry.Body = rec.buf.Bytes()
			entry.CreatedAt = nowUTC()
			if err := store.finish(bg, key, entry); err != nil {
				log.Warn("idempotency response not stored", zap.String("key", key), zap.Error(err))
			}
			return nil
		}
	}
}

// replay answers a request whose key is already taken.
func replay(ctx context.Context, c echo.Context, store idempStore, key, bhash string, log *zap.Logger) error {
	cur, err := store.load(ctx, key)
	if err != nil {
		log.Warn("idempotency entry load failed", zap.String("key", key), zap.Error(err))
	}
	if cur.BodySHA256 != "" && cur.BodySHA256 != bhash {
		return reject(c, http.StatusConflict, "idempotency_conflict", HeaderRequestID+" reused with different body")
	}
	if cur.replayable() {
		c.Response().Header().Set("Idempotent-Replayed", "true")
		return c.Blob(cur.Code, echo.MIMEApplicationJSON, cur.Body)
	}
	return reject(c, http.StatusConflict, "idempotency_in_progress", "request is already in progress")
}

// OptionalIdempotency applies IdempotencyMiddleware only to requests that
// carry X-Request-Id. Requests without it go straight to the handler, which
// must be safe to retry on its own.
func OptionalIdempotency(rdb *redis.Client, ttl time.Duration, log *zap.Logger) echo.MiddlewareFunc {
	idem := IdempotencyMiddleware(rdb, ttl, log)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		keyed := idem(next)
		return func(c echo.Context) error {
			if strings.TrimSpace(c.Request().Header.Get(HeaderRequestID)) == "" {
				return next(c)
			}
			return keyed(c)
		}
	}
}
