package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bryokim/AirBnB-clone-v3/internal/model"
)

// ListAmenities returns every Amenity.
func (h *Handlers) ListAmenities(c *gin.Context) {
	amenities, ok := h.allOf(c, "Amenity")
	if !ok {
		return
	}
	h.renderList(c, amenities)
}

// GetAmenity returns one Amenity by id.
func (h *Handlers) GetAmenity(c *gin.Context) {
	if amenity, ok := h.getEntity(c, "Amenity", c.Param("amenity_id")); ok {
		h.render(c, http.StatusOK, amenity)
	}
}

// CreateAmenity creates an Amenity from the request body.
func (h *Handlers) CreateAmenity(c *gin.Context) {
	attrs, ok := h.bindJSON(c)
	if !ok {
		return
	}
	if missing(attrs, "name") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing name"})
		return
	}
	amenity, err := model.New("Amenity", attrs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Not a JSON"})
		return
	}
	if !h.stage(c, amenity) || !h.persist(c) {
		return
	}
	h.render(c, http.StatusCreated, amenity)
}

// UpdateAmenity applies body fields to an Amenity.
func (h *Handlers) UpdateAmenity(c *gin.Context) {
	h.updateEntity(c, "Amenity", c.Param("amenity_id"))
}

// DeleteAmenity removes an Amenity. Its links to places are removed; the
// places themselves are untouched.
func (h *Handlers) DeleteAmenity(c *gin.Context) {
	h.deleteEntity(c, "Amenity", c.Param("amenity_id"))
}
