package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bryokim/AirBnB-clone-v3/internal/model"
	"github.com/bryokim/AirBnB-clone-v3/internal/storage"
)

// ListPlaceAmenities returns the amenities linked to a Place.
func (h *Handlers) ListPlaceAmenities(c *gin.Context) {
	place, ok := h.getEntity(c, "Place", c.Param("place_id"))
	if !ok {
		return
	}
	amenities, err := h.store.PlaceAmenities(c.Request.Context(), place.EntityID())
	if err != nil {
		h.serverError(c, err)
		return
	}
	out := make([]model.Entity, 0, len(amenities))
	for _, a := range amenities {
		out = append(out, a)
	}
	h.renderList(c, out)
}

// LinkPlaceAmenity attaches an Amenity to a Place. A fresh link answers 201,
// an already-present one answers 200; both return the amenity.
func (h *Handlers) LinkPlaceAmenity(c *gin.Context) {
	place, ok := h.getEntity(c, "Place", c.Param("place_id"))
	if !ok {
		return
	}
	amenity, ok := h.getEntity(c, "Amenity", c.Param("amenity_id"))
	if !ok {
		return
	}
	ctx := c.Request.Context()
	linked, err := h.store.PlaceAmenities(ctx, place.EntityID())
	if err != nil {
		h.serverError(c, err)
		return
	}
	for _, a := range linked {
		if a.ID == amenity.EntityID() {
			h.render(c, http.StatusOK, amenity)
			return
		}
	}
	if err := h.store.LinkAmenity(ctx, place.EntityID(), amenity.EntityID()); err != nil {
		h.serverError(c, err)
		return
	}
	if !h.persist(c) {
		return
	}
	h.render(c, http.StatusCreated, amenity)
}

// UnlinkPlaceAmenity detaches an Amenity from a Place. A link that does not
// exist answers 404.
func (h *Handlers) UnlinkPlaceAmenity(c *gin.Context) {
	place, ok := h.getEntity(c, "Place", c.Param("place_id"))
	if !ok {
		return
	}
	amenity, ok := h.getEntity(c, "Amenity", c.Param("amenity_id"))
	if !ok {
		return
	}
	err := h.store.UnlinkAmenity(c.Request.Context(), place.EntityID(), amenity.EntityID())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		} else {
			h.serverError(c, err)
		}
		return
	}
	if !h.persist(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}
