package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/papyr-dev/papyr-store/internal/access"
	"github.com/papyr-dev/papyr-store/internal/query"
	"github.com/papyr-dev/papyr-store/internal/serviceerr"
	"github.com/papyr-dev/papyr-store/internal/store"
	"github.com/papyr-dev/papyr-store/pkg/schema"
)

// relationLoader resolves load= targets: the protected store for users,
// generic storage for everything else.
func (h *Handler) relationLoader() query.Loader {
	return func(collection, id string) (schema.Record, error) {
		if collection == store.UsersCollection {
			return h.Protected.Get(collection, id)
		}
		return h.Storage.Get(collection, id)
	}
}

// ListCollections returns the names of all generic collections.
func (h *Handler) ListCollections(c *gin.Context) {
	c.JSON(http.StatusOK, h.Storage.Collections())
}

// GetData serves both collection queries and single-record reads. A where
// parameter always queries the full collection, even with an ID in the
// path.
func (h *Handler) GetData(c *gin.Context) {
	collection := c.Param("collection")
	id := c.Param("id")
	opts := query.ParseOptions(c.Request.URL.Query())

	req := access.Request{
		Action:     access.ActionRead,
		Collection: collection,
		Identity:   h.user(c),
		Admin:      isAdmin(c),
	}

	if id != "" && opts.Where == "" {
		record, err := h.Storage.Get(collection, id)
		if err != nil {
			h.abort(c, notFound(err))
			return
		}
		req.Record = record
		if err := h.Access.Authorize(req); err != nil {
			h.abort(c, err)
			return
		}
		result, err := opts.ApplySingle(record, h.relationLoader())
		if err != nil {
			h.abort(c, queryError(err))
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	records, err := h.Storage.GetAll(collection)
	if err != nil {
		h.abort(c, notFound(err))
		return
	}
	// Coarse read rule once for the collection, then per-record property
	// stripping.
	if err := h.Access.Authorize(req); err != nil {
		h.abort(c, err)
		return
	}
	for _, record := range records {
		perRecord := req
		perRecord.Record = record
		h.Access.StripProperties(perRecord)
	}

	result, err := opts.Apply(records, h.relationLoader())
	if err != nil {
		h.abort(c, queryError(err))
		return
	}
	c.JSON(http.StatusOK, result)
}

// PostData creates a record owned by the authenticated identity.
func (h *Handler) PostData(c *gin.Context) {
	if c.Param("id") != "" {
		h.abort(c, serviceerr.Request("Use PUT to update records"))
		return
	}
	collection := c.Param("collection")

	body, err := bindBody(c)
	if err != nil {
		h.abort(c, err)
		return
	}

	user := h.user(c)
	if err := h.Access.Authorize(access.Request{
		Action:     access.ActionCreate,
		Collection: collection,
		Identity:   user,
		Admin:      isAdmin(c),
		Body:       body,
	}); err != nil {
		h.abort(c, err)
		return
	}

	if user != nil {
		body[schema.FieldOwnerID] = user[schema.FieldID]
	}
	c.JSON(http.StatusOK, h.Storage.Add(collection, body))
}

// PutData fully replaces a record.
func (h *Handler) PutData(c *gin.Context) {
	h.updateData(c, h.Storage.Set)
}

// PatchData shallow-merges onto a record.
func (h *Handler) PatchData(c *gin.Context) {
	h.updateData(c, h.Storage.Merge)
}

func (h *Handler) updateData(c *gin.Context, apply func(string, string, schema.Record) (schema.Record, error)) {
	collection := c.Param("collection")
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

	existing, err := h.Storage.Get(collection, id)
	if err != nil {
		h.abort(c, notFound(err))
		return
	}

	if err := h.Access.Authorize(access.Request{
		Action:     access.ActionUpdate,
		Collection: collection,
		Identity:   h.user(c),
		Admin:      isAdmin(c),
		Record:     existing,
		Body:       body,
	}); err != nil {
		h.abort(c, err)
		return
	}

	result, err := apply(collection, id, body)
	if err != nil {
		h.abort(c, serviceerr.Request(""))
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeleteData removes a record and reports the deletion time.
func (h *Handler) DeleteData(c *gin.Context) {
	collection := c.Param("collection")
	id := c.Param("id")
	if id == "" {
		h.abort(c, serviceerr.Request("Missing entry ID"))
		return
	}

	existing, err := h.Storage.Get(collection, id)
	if err != nil {
		h.abort(c, notFound(err))
		return
	}

	if err := h.Access.Authorize(access.Request{
		Action:     access.ActionDelete,
		Collection: collection,
		Identity:   h.user(c),
		Admin:      isAdmin(c),
		Record:     existing,
	}); err != nil {
		h.abort(c, err)
		return
	}

	result, err := h.Storage.Delete(collection, id)
	if err != nil {
		h.abort(c, serviceerr.Request(""))
		return
	}
	c.JSON(http.StatusOK, result)
}

// queryError turns query parse failures into 400s and passes store lookup
// failures (missing load relations) through the 404 mapping.
func queryError(err error) error {
	if query.IsBadQuery(err) {
		return serviceerr.Request(err.Error())
	}
	return notFound(err)
}
