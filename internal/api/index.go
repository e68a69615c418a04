package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Status reports API liveness.
func (h *Handlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

// Stats reports the number of objects of each type.
func (h *Handlers) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	stats := gin.H{}
	for typeName, key := range map[string]string{
		"Amenity": "amenities",
		"City":    "cities",
		"Place":   "places",
		"Review":  "reviews",
		"State":   "states",
		"User":    "users",
	} {
		n, err := h.store.Count(ctx, typeName)
		if err != nil {
			h.serverError(c, err)
			return
		}
		stats[key] = n
	}
	c.JSON(http.StatusOK, stats)
}
