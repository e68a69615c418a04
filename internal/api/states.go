package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bryokim/AirBnB-clone-v3/internal/model"
)

// ListStates returns every State.
func (h *Handlers) ListStates(c *gin.Context) {
	states, ok := h.allOf(c, "State")
	if !ok {
		return
	}
	h.renderList(c, states)
}

// GetState returns one State by id.
func (h *Handlers) GetState(c *gin.Context) {
	if state, ok := h.getEntity(c, "State", c.Param("state_id")); ok {
		h.render(c, http.StatusOK, state)
	}
}

// CreateState creates a State from the request body. The body must be JSON
// and carry a name.
func (h *Handlers) CreateState(c *gin.Context) {
	attrs, ok := h.bindJSON(c)
	if !ok {
		return
	}
	if missing(attrs, "name") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing name"})
		return
	}
	state, err := model.New("State", attrs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Not a JSON"})
		return
	}
	if !h.stage(c, state) || !h.persist(c) {
		return
	}
	h.render(c, http.StatusCreated, state)
}

// UpdateState applies body fields to a State, ignoring identity and
// timestamps.
func (h *Handlers) UpdateState(c *gin.Context) {
	h.updateEntity(c, "State", c.Param("state_id"))
}

// DeleteState removes a State and, through the engine's cascade rules, all
// of its cities, their places, and those places' reviews.
func (h *Handlers) DeleteState(c *gin.Context) {
	h.deleteEntity(c, "State", c.Param("state_id"))
}
