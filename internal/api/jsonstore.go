package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/papyr-dev/papyr-store/internal/serviceerr"
	"github.com/papyr-dev/papyr-store/pkg/schema"
)

// The jsonstore service is a lower-level analogue of the data service:
// same storage, same verbs, but no access control and no query engine.

func (h *Handler) JSONStoreGet(c *gin.Context) {
	collection := c.Param("collection")
	id := c.Param("id")

	if id == "" {
		records, err := h.Storage.GetAll(collection)
		if err != nil {
			h.abort(c, notFound(err))
			return
		}
		c.JSON(http.StatusOK, records)
		return
	}

	record, err := h.Storage.Get(collection, id)
	if err != nil {
		h.abort(c, notFound(err))
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) JSONStorePost(c *gin.Context) {
	body, err := bindBody(c)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Storage.Add(c.Param("collection"), body))
}

func (h *Handler) JSONStorePut(c *gin.Context) {
	h.jsonStoreUpdate(c, h.Storage.Set)
}

func (h *Handler) JSONStorePatch(c *gin.Context) {
	h.jsonStoreUpdate(c, h.Storage.Merge)
}

func (h *Handler) jsonStoreUpdate(c *gin.Context, apply func(string, string, schema.Record) (schema.Record, error)) {
	id := c.Param("id")
	if id == "" {
		h.abort(c, serviceerr.Request("Missing entry ID"))
		return
	}
	body, err := bindBody(c)
	if err != nil {
		h.abort(c, err)
		return
	}
	result, err := apply(c.Param("collection"), id, body)
	if err != nil {
		h.abort(c, notFound(err))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) JSONStoreDelete(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		h.abort(c, serviceerr.Request("Missing entry ID"))
		return
	}
	result, err := h.Storage.Delete(c.Param("collection"), id)
	if err != nil {
		h.abort(c, notFound(err))
		return
	}
	c.JSON(http.StatusOK, result)
}
