package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/papyr-dev/papyr-store/internal/serviceerr"
)

// knownServices drives the dispatcher's unknown-service error. A request
// for a known service with no matching action resolves to an empty 204,
// matching the no-result convention of the action router.
var knownServices = map[string]bool{
	"data":        true,
	"jsonstore":   true,
	"users":       true,
	"util":        true,
	"admin":       true,
	"favicon.ico": true,
}

// NewRouter builds the gin engine with middleware in fixed order: CORS
// (OPTIONS short-circuits before anything else), authentication, throttle.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLog(), cors(), h.authenticate(), h.throttle())

	data := r.Group("/data")
	{
		data.GET("", h.ListCollections)
		data.GET("/:collection", h.GetData)
		data.GET("/:collection/:id", h.GetData)
		data.POST("/:collection", h.PostData)
		data.POST("/:collection/:id", h.PostData)
		data.PUT("/:collection", h.PutData)
		data.PUT("/:collection/:id", h.PutData)
		data.PATCH("/:collection", h.PatchData)
		data.PATCH("/:collection/:id", h.PatchData)
		data.DELETE("/:collection", h.DeleteData)
		data.DELETE("/:collection/:id", h.DeleteData)
	}

	jsonstore := r.Group("/jsonstore")
	{
		jsonstore.GET("/:collection", h.JSONStoreGet)
		jsonstore.GET("/:collection/:id", h.JSONStoreGet)
		jsonstore.POST("/:collection", h.JSONStorePost)
		jsonstore.PUT("/:collection", h.JSONStorePut)
		jsonstore.PUT("/:collection/:id", h.JSONStorePut)
		jsonstore.PATCH("/:collection", h.JSONStorePatch)
		jsonstore.PATCH("/:collection/:id", h.JSONStorePatch)
		jsonstore.DELETE("/:collection", h.JSONStoreDelete)
		jsonstore.DELETE("/:collection/:id", h.JSONStoreDelete)
	}

	users := r.Group("/users")
	{
		users.POST("/register", h.Register)
		users.POST("/login", h.Login)
		users.GET("/logout", h.Logout)
		users.GET("/me", h.Me)
	}

	r.GET("/util/:name", h.GetFlag)
	r.POST("/util", h.SetFlags)
	r.POST("/util/:name", h.SetFlags)

	r.GET("/admin", h.AdminRedirect)
	r.GET("/admin/", h.AdminPage)
	r.GET("/admin/:page", h.AdminPage)
	r.GET("/favicon.ico", h.Favicon)

	r.NoRoute(h.noRoute)
	return r
}

func (h *Handler) noRoute(c *gin.Context) {
	service, _, _ := strings.Cut(strings.TrimPrefix(c.Request.URL.Path, "/"), "/")
	if knownServices[service] {
		c.Status(http.StatusNoContent)
		return
	}
	h.Log.Error("missing service", "service", service)
	c.JSON(http.StatusBadRequest, serviceerr.Request(fmt.Sprintf("Service %q is not supported", service)))
}
