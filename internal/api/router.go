// Package api exposes the HBNB REST surface (/api/v1) over an injected
// storage.Store. Handlers translate HTTP to storage calls and never know
// which engine is active.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/bryokim/AirBnB-clone-v3/internal/storage"
)

// Handlers carries the storage handle and logger shared by every endpoint.
type Handlers struct {
	store storage.Store
	log   *slog.Logger
}

// NewRouter wires the full /api/v1 route table.
func NewRouter(store storage.Store, logger *slog.Logger) *gin.Engine {
	h := &Handlers{store: store, log: logger}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger), cors.Default())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	v1 := r.Group("/api/v1")
	{
		v1.GET("/status", h.Status)
		v1.GET("/stats", h.Stats)

		v1.GET("/states", h.ListStates)
		v1.POST("/states", h.CreateState)
		v1.GET("/states/:state_id", h.GetState)
		v1.PUT("/states/:state_id", h.UpdateState)
		v1.DELETE("/states/:state_id", h.DeleteState)

		v1.GET("/states/:state_id/cities", h.ListStateCities)
		v1.POST("/states/:state_id/cities", h.CreateCity)
		v1.GET("/cities/:city_id", h.GetCity)
		v1.PUT("/cities/:city_id", h.UpdateCity)
		v1.DELETE("/cities/:city_id", h.DeleteCity)

		v1.GET("/amenities", h.ListAmenities)
		v1.POST("/amenities", h.CreateAmenity)
		v1.GET("/amenities/:amenity_id", h.GetAmenity)
		v1.PUT("/amenities/:amenity_id", h.UpdateAmenity)
		v1.DELETE("/amenities/:amenity_id", h.DeleteAmenity)

		v1.GET("/users", h.ListUsers)
		v1.POST("/users", h.CreateUser)
		v1.GET("/users/:user_id", h.GetUser)
		v1.PUT("/users/:user_id", h.UpdateUser)
		v1.DELETE("/users/:user_id", h.DeleteUser)

		v1.GET("/cities/:city_id/places", h.ListCityPlaces)
		v1.POST("/cities/:city_id/places", h.CreatePlace)
		v1.GET("/places/:place_id", h.GetPlace)
		v1.PUT("/places/:place_id", h.UpdatePlace)
		v1.DELETE("/places/:place_id", h.DeletePlace)
		v1.POST("/places_search", h.SearchPlaces)

		v1.GET("/places/:place_id/reviews", h.ListPlaceReviews)
		v1.POST("/places/:place_id/reviews", h.CreateReview)
		v1.GET("/reviews/:review_id", h.GetReview)
		v1.PUT("/reviews/:review_id", h.UpdateReview)
		v1.DELETE("/reviews/:review_id", h.DeleteReview)

		v1.GET("/places/:place_id/amenities", h.ListPlaceAmenities)
		v1.POST("/places/:place_id/amenities/:amenity_id", h.LinkPlaceAmenity)
		v1.DELETE("/places/:place_id/amenities/:amenity_id", h.UnlinkPlaceAmenity)
	}

	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
