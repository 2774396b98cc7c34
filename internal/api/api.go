// Package api exposes the practice-server services over HTTP: the generic
// data service, the raw jsonstore service, user/session management, the
// util feature flags and the admin inspector.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/papyr-dev/papyr-store/internal/access"
	"github.com/papyr-dev/papyr-store/internal/auth"
	"github.com/papyr-dev/papyr-store/internal/logger"
	"github.com/papyr-dev/papyr-store/internal/serviceerr"
	"github.com/papyr-dev/papyr-store/internal/store"
	"github.com/papyr-dev/papyr-store/pkg/schema"
)

// Context keys set by the authentication middleware.
const (
	ctxUser    = "user"
	ctxSession = "sessionID"
	ctxAdmin   = "admin"
)

// Handler wires the services to their backing components.
type Handler struct {
	Storage   *store.MemStore // generic data collections
	Protected *store.MemStore // users and sessions, never exposed directly
	Auth      *auth.Manager
	Access    *access.Resolver
	Flags     *Flags
	Log       *logger.Logger
}

// user returns the authenticated identity, or nil for anonymous requests.
func (h *Handler) user(c *gin.Context) schema.Record {
	if v, ok := c.Get(ctxUser); ok {
		return v.(schema.Record)
	}
	return nil
}

func isAdmin(c *gin.Context) bool {
	return c.GetBool(ctxAdmin)
}

// bindBody decodes the request body as a JSON object. The practice server
// accepts only object payloads on record-mutating routes.
func bindBody(c *gin.Context) (schema.Record, error) {
	var body any
	if err := c.ShouldBindJSON(&body); err != nil {
		return nil, serviceerr.Request("")
	}
	record, ok := body.(map[string]any)
	if !ok {
		return nil, serviceerr.Request("")
	}
	return record, nil
}

// abort translates an error into the {code, message} envelope. Errors
// outside the service family are logged and reported as an opaque 500.
func (h *Handler) abort(c *gin.Context, err error) {
	var svc *serviceerr.Error
	switch {
	case errors.As(err, &svc):
		c.AbortWithStatusJSON(svc.Code, svc)
	case errors.Is(err, access.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, serviceerr.Credential(""))
	case errors.Is(err, access.ErrUnauthenticated):
		c.AbortWithStatusJSON(http.StatusUnauthorized, serviceerr.Authorization(""))
	default:
		h.Log.Error("unhandled service error", "path", c.Request.URL.Path, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, &serviceerr.Error{
			Code:    http.StatusInternalServerError,
			Message: "Server Error",
		})
	}
}

// notFound maps store lookup failures on read paths to 404.
func notFound(err error) error {
	if errors.Is(err, store.ErrCollectionNotFound) || errors.Is(err, store.ErrEntryNotFound) {
		return serviceerr.NotFound("")
	}
	return err
}
