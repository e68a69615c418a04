package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bryokim/AirBnB-clone-v3/internal/model"
)

// ListPlaceReviews returns every Review of a Place.
func (h *Handlers) ListPlaceReviews(c *gin.Context) {
	place, ok := h.getEntity(c, "Place", c.Param("place_id"))
	if !ok {
		return
	}
	reviews, ok := h.allOf(c, "Review")
	if !ok {
		return
	}
	out := make([]model.Entity, 0, len(reviews))
	for _, e := range reviews {
		if e.(*model.Review).PlaceID == place.EntityID() {
			out = append(out, e)
		}
	}
	h.renderList(c, out)
}

// GetReview returns one Review by id.
func (h *Handlers) GetReview(c *gin.Context) {
	if review, ok := h.getEntity(c, "Review", c.Param("review_id")); ok {
		h.render(c, http.StatusOK, review)
	}
}

// CreateReview creates a Review of the given Place. The body must carry the
// review text and an existing user.
func (h *Handlers) CreateReview(c *gin.Context) {
	place, ok := h.getEntity(c, "Place", c.Param("place_id"))
	if !ok {
		return
	}
	attrs, ok := h.bindJSON(c)
	if !ok {
		return
	}
	if missing(attrs, "text") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing text"})
		return
	}
	if missing(attrs, "user_id") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing user_id"})
		return
	}
	if _, ok := h.getEntity(c, "User", stringAttr(attrs, "user_id")); !ok {
		return
	}
	attrs["place_id"] = place.EntityID()
	review, err := model.New("Review", attrs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Not a JSON"})
		return
	}
	if !h.stage(c, review) || !h.persist(c) {
		return
	}
	h.render(c, http.StatusCreated, review)
}

// UpdateReview applies body fields to a Review. The author and the reviewed
// place cannot be changed through this endpoint.
func (h *Handlers) UpdateReview(c *gin.Context) {
	h.updateEntity(c, "Review", c.Param("review_id"), "user_id", "place_id")
}

// DeleteReview removes a Review.
func (h *Handlers) DeleteReview(c *gin.Context) {
	h.deleteEntity(c, "Review", c.Param("review_id"))
}
