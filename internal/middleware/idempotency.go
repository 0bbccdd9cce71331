package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"sistema-servicios/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotency-Replayed"

	idempotencyPrefix = "idem:"

	// PendingClaimTTL bounds how long an unfinished claim blocks retries; the
	// full ttl applies once the response is stored.
	PendingClaimTTL = 5 * time.Minute
)

type respuestaGuardada struct {
	Completa bool   `json:"completa"`
	Status   int    `json:"status,omitempty"`
	Body     []byte `json:"body,omitempty"`
}

type bodyWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response of a mutating request that carries
// an Idempotency-Key already seen within ttl. The key is claimed with SETNX
// before the handler runs, so a concurrent duplicate gets 409 instead of
// running twice. 5xx responses and panics release the key. Without Redis the
// request runs normally.
func Idempotency(rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	claimTTL := min(ttl, PendingClaimTTL)
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		redisKey := idempotencyPrefix + c.GetHeader(ActorHeader) + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key

		pendiente, _ := json.Marshal(respuestaGuardada{})
		ok, err := rdb.SetNX(ctx, redisKey, pendiente, claimTTL).Result()
		if err != nil {
			log.Warn().Err(err).Str("request_id", c.GetString(RequestIDKey)).Msg("idempotency: redis unavailable, running request")
			c.Next()
			return
		}
		if !ok {
			replay(c, rdb, redisKey)
			return
		}

		defer func() {
			if p := recover(); p != nil {
				liberar(rdb, redisKey)
				panic(p)
			}
		}()

		w := &bodyWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		status := w.Status()
		if status >= http.StatusInternalServerError {
			liberar(rdb, redisKey)
			return
		}
		guardada, _ := json.Marshal(respuestaGuardada{Completa: true, Status: status, Body: w.buf.Bytes()})
		if err := rdb.Set(ctx, redisKey, guardada, ttl).Err(); err != nil {
			log.Warn().Err(err).Str("key", redisKey).Msg("idempotency: store failed")
		}
	}
}

// liberar drops a claim; it does not use the request context, which may be
// done by the time a panic unwinds.
func liberar(rdb *redis.Client, redisKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Del(ctx, redisKey).Err(); err != nil {
		log.Warn().Err(err).Str("key", redisKey).Msg("idempotency: release failed")
	}
}

func replay(c *gin.Context, rdb *redis.Client, redisKey string) {
	raw, err := rdb.Get(c.Request.Context(), redisKey).Bytes()
	var r respuestaGuardada
	if err == nil {
		err = json.Unmarshal(raw, &r)
	}
	if err != nil || !r.Completa {
		c.AbortWithStatusJSON(http.StatusConflict, apierror.New("Solicitud con la misma Idempotency-Key en curso"))
		return
	}
	c.Header(ReplayedHeader, "true")
	c.Data(r.Status, "application/json; charset=utf-8", r.Body)
	c.Abort()
}
