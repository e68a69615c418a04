package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bryokim/AirBnB-clone-v3/internal/model"
)

// ListCityPlaces returns every Place of a City.
func (h *Handlers) ListCityPlaces(c *gin.Context) {
	city, ok := h.getEntity(c, "City", c.Param("city_id"))
	if !ok {
		return
	}
	places, ok := h.allOf(c, "Place")
	if !ok {
		return
	}
	out := make([]model.Entity, 0, len(places))
	for _, e := range places {
		if e.(*model.Place).CityID == city.EntityID() {
			out = append(out, e)
		}
	}
	h.renderList(c, out)
}

// GetPlace returns one Place by id.
func (h *Handlers) GetPlace(c *gin.Context) {
	if place, ok := h.getEntity(c, "Place", c.Param("place_id")); ok {
		h.render(c, http.StatusOK, place)
	}
}

// CreatePlace creates a Place inside the given City. The body must name the
// place and an existing user.
func (h *Handlers) CreatePlace(c *gin.Context) {
	city, ok := h.getEntity(c, "City", c.Param("city_id"))
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
	if missing(attrs, "user_id") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing user_id"})
		return
	}
	if _, ok := h.getEntity(c, "User", stringAttr(attrs, "user_id")); !ok {
		return
	}
	attrs["city_id"] = city.EntityID()
	place, err := model.New("Place", attrs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Not a JSON"})
		return
	}
	if !h.stage(c, place) || !h.persist(c) {
		return
	}
	h.render(c, http.StatusCreated, place)
}

// UpdatePlace applies body fields to a Place. Ownership (user_id, city_id)
// cannot be changed through this endpoint.
func (h *Handlers) UpdatePlace(c *gin.Context) {
	h.updateEntity(c, "Place", c.Param("place_id"), "user_id", "city_id")
}

// DeletePlace removes a Place and, through the engine's cascade rules, its
// reviews.
func (h *Handlers) DeletePlace(c *gin.Context) {
	h.deleteEntity(c, "Place", c.Param("place_id"))
}

// SearchPlaces retrieves places matching the optional states, cities and
// amenities id lists in the body. States expand to all their cities' places,
// listed cities add theirs, and amenities filter the result to places
// carrying every one of them. An empty body selects every place.
func (h *Handlers) SearchPlaces(c *gin.Context) {
	attrs, ok := h.bindJSON(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	stateIDs := idList(attrs, "states")
	cityIDs := idList(attrs, "cities")
	amenityIDs := idList(attrs, "amenities")

	allPlaces, ok := h.allOf(c, "Place")
	if !ok {
		return
	}

	var selected []model.Entity
	if len(stateIDs) == 0 && len(cityIDs) == 0 {
		selected = allPlaces
	} else {
		wantCities := map[string]struct{}{}
		coveredStates := map[string]struct{}{}
		for _, stateID := range stateIDs {
			if _, err := h.store.Get(ctx, "State", stateID); err != nil {
				continue
			}
			coveredStates[stateID] = struct{}{}
			cities, ok := h.allOf(c, "City")
			if !ok {
				return
			}
			for _, e := range cities {
				if city := e.(*model.City); city.StateID == stateID {
					wantCities[city.ID] = struct{}{}
				}
			}
		}
		for _, cityID := range cityIDs {
			e, err := h.store.Get(ctx, "City", cityID)
			if err != nil {
				continue
			}
			if _, covered := coveredStates[e.(*model.City).StateID]; !covered {
				wantCities[cityID] = struct{}{}
			}
		}
		for _, e := range allPlaces {
			if _, want := wantCities[e.(*model.Place).CityID]; want {
				selected = append(selected, e)
			}
		}
	}

	if len(amenityIDs) > 0 {
		var filtered []model.Entity
		for _, e := range selected {
			amenities, err := h.store.PlaceAmenities(ctx, e.EntityID())
			if err != nil {
				h.serverError(c, err)
				return
			}
			linked := map[string]struct{}{}
			for _, a := range amenities {
				linked[a.ID] = struct{}{}
			}
			hasAll := true
			for _, amenityID := range amenityIDs {
				if _, ok := linked[amenityID]; !ok {
					hasAll = false
					break
				}
			}
			if hasAll {
				filtered = append(filtered, e)
			}
		}
		selected = filtered
	}

	h.renderList(c, selected)
}

func idList(attrs map[string]any, key string) []string {
	raw, _ := attrs[key].([]any)
	out := make([]string, 0, len(raw))
	for _, value := range raw {
		if id, ok := value.(string); ok && id != "" {
			out = append(out, id)
		}
	}
	return out
}
