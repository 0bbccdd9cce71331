package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"sistema-servicios/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const errorInterno = "Error interno del servidor"

// ErrorHandler turns errors attached with c.Error into a 500 when the handler
// did not write a response itself. Internal details stay in the log.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last()
		log.Error().
			Str("request_id", c.GetString(RequestIDKey)).
			Str("path", c.FullPath()).
			Str("method", c.Request.Method).
			Err(err.Err).
			Msg("unhandled error")

		if !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New(errorInterno))
		}
	}
}

// Recovery converts panics into 500 responses; the stack goes to the log only.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Str("request_id", c.GetString(RequestIDKey)).
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Interface("panic", r).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New(errorInterno))
			}
		}()
		c.Next()
	}
}

// Logger writes one line per request. 5xx log at error level, 4xx at warn.
// The acting user and idempotent replays are included when present.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			ev = log.Error()
		case status >= http.StatusBadRequest:
			ev = log.Warn()
		default:
			ev = log.Info()
		}

		ev = ev.
			Str("request_id", c.GetString(RequestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start))
		if actor := c.GetHeader(ActorHeader); actor != "" {
			ev = ev.Str("actor", actor)
		}
		if c.Writer.Header().Get(ReplayedHeader) != "" {
			ev = ev.Bool("replayed", true)
		}
		ev.Msg("request")
	}
}
