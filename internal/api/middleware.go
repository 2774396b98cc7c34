package api

import (
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// cors sets permissive CORS headers on every response and short-circuits
// OPTIONS preflights with 204 before any other middleware runs.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		if c.Request.Method == http.MethodOptions {
			header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			header.Set("Access-Control-Max-Age", "86400")
			header.Set("Access-Control-Allow-Headers",
				"X-Requested-With, X-HTTP-Method-Override, Content-Type, Accept, X-Authorization, X-Admin")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// authenticate resolves the X-Authorization bearer token into an identity
// and session. A token that fails to resolve fails the whole request; an
// absent header is anonymous access. X-Admin presence flags the
// administrative bypass.
func (h *Handler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, admin := c.Request.Header[http.CanonicalHeaderKey("X-Admin")]
		c.Set(ctxAdmin, admin)

		token := c.GetHeader("X-Authorization")
		if token == "" {
			c.Next()
			return
		}

		user, sessionID, err := h.Auth.ResolveToken(token)
		if err != nil {
			h.abort(c, err)
			return
		}
		c.Set(ctxUser, user)
		c.Set(ctxSession, sessionID)
		c.Next()
	}
}

// requestLog logs one line per request.
func (h *Handler) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		h.Log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status())
	}
}

// throttle injects a random 500-1000ms pause before the response body is
// written, when the throttle flag is on. Status and headers are not
// delayed; this shapes responses for client-side latency testing only.
func (h *Handler) throttle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.Flags.Get("throttle") {
			c.Next()
			return
		}
		c.Writer = &delayedWriter{
			ResponseWriter: c.Writer,
			delay:          func() { time.Sleep(500*time.Millisecond + time.Duration(rand.Int63n(int64(500*time.Millisecond)))) },
		}
		c.Next()
	}
}

type delayedWriter struct {
	gin.ResponseWriter
	once  sync.Once
	delay func()
}

func (w *delayedWriter) Write(b []byte) (int, error) {
	w.once.Do(w.delay)
	return w.ResponseWriter.Write(b)
}

func (w *delayedWriter) WriteString(s string) (int, error) {
	w.once.Do(w.delay)
	return w.ResponseWriter.WriteString(s)
}
