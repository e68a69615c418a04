package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bryokim/AirBnB-clone-v3/internal/model"
	"github.com/bryokim/AirBnB-clone-v3/internal/storage"
)

// bindJSON decodes the request body into a field mapping. A body that is not
// valid JSON answers 400 "Not a JSON" and reports false.
func (h *Handlers) bindJSON(c *gin.Context) (map[string]any, bool) {
	var attrs map[string]any
	if err := c.ShouldBindJSON(&attrs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Not a JSON"})
		return nil, false
	}
	return attrs, true
}

// getEntity fetches type+id or answers 404.
func (h *Handlers) getEntity(c *gin.Context, typeName, id string) (model.Entity, bool) {
	e, err := h.store.Get(c.Request.Context(), typeName, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		} else {
			h.serverError(c, err)
		}
		return nil, false
	}
	return e, true
}

// stage runs store.New and maps its error taxonomy onto HTTP.
func (h *Handlers) stage(c *gin.Context, e model.Entity) bool {
	err := h.store.New(c.Request.Context(), e)
	if err == nil {
		return true
	}
	var validation *storage.ValidationError
	var integrity *storage.IntegrityError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing " + validation.Field})
	case errors.As(err, &integrity):
		c.JSON(http.StatusBadRequest, gin.H{"error": integrity.Error()})
	default:
		h.serverError(c, err)
	}
	return false
}

// persist commits staged work or answers 500.
func (h *Handlers) persist(c *gin.Context) bool {
	if err := h.store.Save(c.Request.Context()); err != nil {
		h.serverError(c, err)
		return false
	}
	return true
}

func (h *Handlers) serverError(c *gin.Context, err error) {
	h.log.Error("request failed",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"err", err,
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// render writes an entity as its field mapping. The password hash never
// leaves the process.
func (h *Handlers) render(c *gin.Context, code int, e model.Entity) {
	fields, err := model.ToMap(e)
	if err != nil {
		h.serverError(c, err)
		return
	}
	delete(fields, "password")
	c.JSON(code, fields)
}

// renderList writes a JSON array of entity field mappings.
func (h *Handlers) renderList(c *gin.Context, entities []model.Entity) {
	out := make([]map[string]any, 0, len(entities))
	for _, e := range entities {
		fields, err := model.ToMap(e)
		if err != nil {
			h.serverError(c, err)
			return
		}
		delete(fields, "password")
		out = append(out, fields)
	}
	c.JSON(http.StatusOK, out)
}

// allOf lists every entity of one type, or answers 500.
func (h *Handlers) allOf(c *gin.Context, typeName string) ([]model.Entity, bool) {
	entities, err := h.store.All(c.Request.Context(), typeName)
	if err != nil {
		h.serverError(c, err)
		return nil, false
	}
	out := make([]model.Entity, 0, len(entities))
	for _, e := range entities {
		out = append(out, e)
	}
	return out, true
}

// deleteEntity removes type+id (applying engine cascade semantics), saves,
// and answers 200 {} — or 404 when absent.
func (h *Handlers) deleteEntity(c *gin.Context, typeName, id string) {
	e, ok := h.getEntity(c, typeName, id)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), e); err != nil {
		var integrity *storage.IntegrityError
		switch {
		case errors.Is(err, storage.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		case errors.As(err, &integrity):
			c.JSON(http.StatusBadRequest, gin.H{"error": integrity.Error()})
		default:
			h.serverError(c, err)
		}
		return
	}
	if !h.persist(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// updateEntity applies a field mapping to an existing entity, skipping
// ignored keys, bumps updated_at, and persists. The update is applied to a
// detached copy: the file engine hands out the stored entity itself, so a
// rejected update must never have touched it.
func (h *Handlers) updateEntity(c *gin.Context, typeName, id string, ignore ...string) {
	e, ok := h.getEntity(c, typeName, id)
	if !ok {
		return
	}
	attrs, ok := h.bindJSON(c)
	if !ok {
		return
	}
	updated, err := cloneEntity(e)
	if err != nil {
		h.serverError(c, err)
		return
	}
	if err := model.Apply(updated, attrs, ignore...); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Not a JSON"})
		return
	}
	updated.Touch()
	if !h.stage(c, updated) {
		return
	}
	if !h.persist(c) {
		return
	}
	h.render(c, http.StatusOK, updated)
}

// cloneEntity rebuilds an entity from its own field mapping, preserving
// identity and timestamps.
func cloneEntity(e model.Entity) (model.Entity, error) {
	fields, err := model.ToMap(e)
	if err != nil {
		return nil, err
	}
	return model.New(e.TypeName(), fields)
}

// missing reports whether attrs lacks a usable value for key: absent, null,
// empty, or not a string at all.
func missing(attrs map[string]any, key string) bool {
	s, ok := attrs[key].(string)
	return !ok || s == ""
}

func stringAttr(attrs map[string]any, key string) string {
	s, _ := attrs[key].(string)
	return s
}
