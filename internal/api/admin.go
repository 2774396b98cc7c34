package api

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed assets/admin.html
var adminPage []byte

//go:embed assets/favicon.png
var faviconPNG []byte

// AdminRedirect fixes relative paths inside the admin panel.
func (h *Handler) AdminRedirect(c *gin.Context) {
	c.Redirect(http.StatusFound, "/admin/")
}

// AdminPage serves the single-page inspector.
func (h *Handler) AdminPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", adminPage)
}

func (h *Handler) Favicon(c *gin.Context) {
	c.Data(http.StatusOK, "image/png", faviconPNG)
}
