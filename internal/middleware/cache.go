package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-booking/internal/config"
)

// captureWriter records the status and up to limit bytes of the body while
// forwarding both to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 {
		cw.buf.Write(b)
	} else if remain := cw.limit - cw.size; remain > 0 {
		cw.buf.Write(b[:min(int64(len(b)), remain)])
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// cacheKeyFrom hashes the route (and query, unless the strategy is
// "route") under the configured prefix and cache generation.
func cacheKeyFrom(cfg config.CacheConfig, gen int64, c echo.Context) string {
	parts := []string{"route", c.Path()}
	if !strings.EqualFold(cfg.KeyStrategy, "route") {
		parts = append(parts, "q", c.Request().URL.RawQuery)
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:g%d:%x", cfg.Prefix, gen, sum[:])
}

func genKey(prefix string) string { return prefix + ":gen" }

// cacheGeneration reads the current generation; a missing key is zero.
func cacheGeneration(ctx context.Context, rdb *redis.Client, prefix string) (int64, error) {
	gen, err := rdb.Get(ctx, genKey(prefix)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

// volatileHeaders are set per request by other middleware and must not be
// stored with or replayed from a cached response.
var volatileHeaders = []string{
	echo.HeaderContentLength,
	echo.HeaderVary,
	echo.HeaderXRequestID,
	"X-Cache",
}

func storableHeader(h http.Header) http.Header {
	out := h.Clone()
	for _, k := range volatileHeaders {
		out.Del(k)
	}
	for k := range out {
		if strings.HasPrefix(k, "Access-Control-") {
			delete(out, k)
		}
	}
	return out
}

// encodePayload packs [4 bytes status][4 bytes header length][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// NewRedisCache serves GET responses from Redis, storing headers and body
// of every 200 it lets through.  Bodies larger than MaxBodyBytes are not
// cached.  Disabled when rdb is nil.
//
// The generation is read before the handler runs, so a response rendered
// before a purge is written under the old generation and never served.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, logger zerolog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	maxBody := int64(cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			ctx := c.Request().Context()
			gen, err := cacheGeneration(ctx, rdb, cfg.Prefix)
			if err != nil {
				logger.Warn().Err(err).Msg("cache generation")
				return next(c)
			}
			key := cacheKeyFrom(cfg, gen, c)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range storableHeader(hdr) {
						c.Response().Header()[k] = vals
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, _ = c.Response().Write(body)
					return nil
				}
			} else if err != redis.Nil {
				logger.Warn().Err(err).Msg("cache get")
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
				return nil
			}
			payload, err := encodePayload(cw.status, storableHeader(c.Response().Header()), cw.buf.Bytes())
			if err != nil {
				return nil
			}
			if err := rdb.SetEx(context.WithoutCancel(ctx), key, payload, ttl).Err(); err != nil {
				logger.Warn().Err(err).Msg("cache set")
			}
			return nil
		}
	}
}

// InvalidateCache purges the cache under cfg.Prefix after a handler
// finishes with a 2xx status, so the next list reflects the write.
func InvalidateCache(cfg config.CacheConfig, rdb *redis.Client, logger zerolog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				return err
			}
			if s := c.Response().Status; s < 200 || s > 299 {
				return nil
			}
			if err := PurgeCache(context.WithoutCancel(c.Request().Context()), rdb, cfg.Prefix); err != nil {
				logger.Warn().Err(err).Msg("cache purge")
			}
			return nil
		}
	}
}

// PurgeCache bumps the generation under prefix.  Entries of older
// generations are unreachable from then on and expire with their TTL.
func PurgeCache(ctx context.Context, rdb *redis.Client, prefix string) error {
	return rdb.Incr(ctx, genKey(prefix)).Err()
}
