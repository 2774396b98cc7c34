package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

// Flags is the util service's feature-flag state. The only flag the
// practice server ships is "throttle".
type Flags struct {
	mu    sync.RWMutex
	flags map[string]bool
}

func NewFlags(throttle bool) *Flags {
	return &Flags{flags: map[string]bool{"throttle": throttle}}
}

func (f *Flags) Get(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.flags[name]
}

func (f *Flags) Set(name string, value bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags[name] = value
}

// GetFlag reports one flag's state.
func (h *Handler) GetFlag(c *gin.Context) {
	c.JSON(http.StatusOK, h.Flags.Get(c.Param("name")))
}

// SetFlags toggles the flags named in the body. Truthy values enable.
func (h *Handler) SetFlags(c *gin.Context) {
	body, err := bindBody(c)
	if err != nil {
		h.abort(c, err)
		return
	}
	for name, value := range body {
		enabled := truthy(value)
		h.Log.Info("feature flag", "name", name, "enabled", enabled)
		h.Flags.Set(name, enabled)
	}
	c.JSON(http.StatusOK, "")
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case nil:
		return false
	default:
		return true
	}
}
