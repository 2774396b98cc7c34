package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/papyr-dev/papyr-store/internal/auth"
	"github.com/papyr-dev/papyr-store/internal/serviceerr"
)

func (h *Handler) Register(c *gin.Context) {
	body, err := bindBody(c)
	if err != nil {
		h.abort(c, err)
		return
	}
	result, err := h.Auth.Register(body)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Login(c *gin.Context) {
	body, err := bindBody(c)
	if err != nil {
		h.abort(c, err)
		return
	}
	result, err := h.Auth.Login(body)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Logout responds 204 with no content type; the empty response is the
// protocol signal clients check for.
func (h *Handler) Logout(c *gin.Context) {
	sessionID := c.GetString(ctxSession)
	if err := h.Auth.Logout(sessionID); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me returns the authenticated user's own record, sanitized.
func (h *Handler) Me(c *gin.Context) {
	user := h.user(c)
	if user == nil {
		h.abort(c, serviceerr.Authorization(""))
		return
	}
	c.JSON(http.StatusOK, auth.Sanitize(user))
}
