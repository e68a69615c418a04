package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bryokim/AirBnB-clone-v3/internal/model"
)

// ListStateCities returns every City of a State.
func (h *Handlers) ListStateCities(c *gin.Context) {
	state, ok := h.getEntity(c, "State", c.Param("state_id"))
	if !ok {
		return
	}
	cities, ok := h.allOf(c, "City")
	if !ok {
		return
	}
	out := make([]model.Entity, 0, len(cities))
	for _, e := range cities {
		if e.(*model.City).StateID == state.EntityID() {
			out = append(out, e)
		}
	}
	h.renderList(c, out)
}

// GetCity returns one City by id.
func (h *Handlers) GetCity(c *gin.Context) {
	if city, ok := h.getEntity(c, "City", c.Param("city_id")); ok {
		h.render(c, http.StatusOK, city)
	}
}

// CreateCity creates a City inside the given State.
func (h *Handlers) CreateCity(c *gin.Context) {
	state, ok := h.getEntity(c, "State", c.Param("state_id"))
	if !ok {
		return
	}
	attrs, ok := h.bindJSON(c)
	if !ok {
		return
	}
	if missing(attrs, "name") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing name"})
		return
	}
	attrs["state_id"] = state.EntityID()
	city, err := model.New("City", attrs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Not a JSON"})
		return
	}
	if !h.stage(c, city) || !h.persist(c) {
		return
	}
	h.render(c, http.StatusCreated, city)
}

// UpdateCity applies body fields to a City. The owning state cannot be
// changed through this endpoint.
func (h *Handlers) UpdateCity(c *gin.Context) {
	h.updateEntity(c, "City", c.Param("city_id"), "state_id")
}

// DeleteCity removes a City and, through the engine's cascade rules, its
// places and their reviews.
func (h *Handlers) DeleteCity(c *gin.Context) {
	h.deleteEntity(c, "City", c.Param("city_id"))
}
