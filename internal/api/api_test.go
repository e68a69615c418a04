package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bryokim/AirBnB-clone-v3/internal/model"
	"github.com/bryokim/AirBnB-clone-v3/internal/storage"
)

func newTestAPI(t *testing.T) (http.Handler, storage.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := storage.NewFileStore(filepath.Join(t.TempDir(), "file.json"))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(store, logger), store
}

// doJSON issues a request; a string body is sent raw, anything else is
// marshaled.
func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(v)
	default:
		payload, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeMap(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var out []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func createVia(t *testing.T, h http.Handler, path string, body map[string]any) map[string]any {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, path, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeMap(t, w)
}

// seedPlace creates a state, city, user and place through the API and returns
// their ids.
func seedPlace(t *testing.T, h http.Handler) (stateID, cityID, userID, placeID string) {
	t.Helper()
	state := createVia(t, h, "/api/v1/states", map[string]any{"name": "California"})
	stateID = state["id"].(string)
	city := createVia(t, h, "/api/v1/states/"+stateID+"/cities", map[string]any{"name": "San Francisco"})
	cityID = city["id"].(string)
	user := createVia(t, h, "/api/v1/users", map[string]any{
		"email": "host@example.com", "password": "secret",
	})
	userID = user["id"].(string)
	place := createVia(t, h, "/api/v1/cities/"+cityID+"/places", map[string]any{
		"name": "Loft", "user_id": userID,
	})
	placeID = place["id"].(string)
	return
}

func TestStatus(t *testing.T) {
	t.Parallel()

	h, _ := newTestAPI(t)
	w := doJSON(t, h, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, map[string]any{"status": "OK"}, decodeMap(t, w))
}

func TestStats(t *testing.T) {
	t.Parallel()

	h, _ := newTestAPI(t)
	seedPlace(t, h)

	w := doJSON(t, h, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decodeMap(t, w)
	require.Equal(t, float64(1), stats["states"])
	require.Equal(t, float64(1), stats["cities"])
	require.Equal(t, float64(1), stats["users"])
	require.Equal(t, float64(1), stats["places"])
	require.Equal(t, float64(0), stats["reviews"])
	require.Equal(t, float64(0), stats["amenities"])
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()

	h, _ := newTestAPI(t)
	w := doJSON(t, h, http.MethodGet, "/api/v1/nonsense", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, map[string]any{"error": "Not found"}, decodeMap(t, w))
}

func TestStateLifecycle(t *testing.T) {
	t.Parallel()

	h, _ := newTestAPI(t)

	w := doJSON(t, h, http.MethodPost, "/api/v1/states", "not json")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Not a JSON", decodeMap(t, w)["error"])

	w = doJSON(t, h, http.MethodPost, "/api/v1/states", map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Missing name", decodeMap(t, w)["error"])

	created := createVia(t, h, "/api/v1/states", map[string]any{"name": "California"})
	require.Equal(t, "State", created[model.ClassKey])
	require.NotEmpty(t, created["id"])
	id := created["id"].(string)

	w = doJSON(t, h, http.MethodGet, "/api/v1/states", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeList(t, w), 1)

	w = doJSON(t, h, http.MethodGet, "/api/v1/states/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "California", decodeMap(t, w)["name"])

	w = doJSON(t, h, http.MethodGet, "/api/v1/states/missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Not found", decodeMap(t, w)["error"])

	w = doJSON(t, h, http.MethodPut, "/api/v1/states/"+id, map[string]any{
		"name": "Cali", "id": "forged",
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeMap(t, w)
	require.Equal(t, "Cali", updated["name"])
	require.Equal(t, id, updated["id"])

	w = doJSON(t, h, http.MethodDelete, "/api/v1/states/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decodeMap(t, w))

	w = doJSON(t, h, http.MethodGet, "/api/v1/states/"+id, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCityLifecycle(t *testing.T) {
	t.Parallel()

	h, _ := newTestAPI(t)
	state := createVia(t, h, "/api/v1/states", map[string]any{"name": "California"})
	stateID := state["id"].(string)

	w := doJSON(t, h, http.MethodPost, "/api/v1/states/missing/cities", map[string]any{"name": "x"})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, h, http.MethodPost, "/api/v1/states/"+stateID+"/cities", map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Missing name", decodeMap(t, w)["error"])

	// The path owns the parent; a state_id in the body is overridden.
	city := createVia(t, h, "/api/v1/states/"+stateID+"/cities", map[string]any{
		"name": "San Francisco", "state_id": "forged",
	})
	require.Equal(t, stateID, city["state_id"])
	cityID := city["id"].(string)

	w = doJSON(t, h, http.MethodGet, "/api/v1/states/"+stateID+"/cities", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeList(t, w), 1)

	w = doJSON(t, h, http.MethodPut, "/api/v1/cities/"+cityID, map[string]any{
		"name": "SF", "state_id": "forged",
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeMap(t, w)
	require.Equal(t, "SF", updated["name"])
	require.Equal(t, stateID, updated["state_id"])
}

func TestDeleteStateCascadesThroughAPI(t *testing.T) {
	t.Parallel()

	h, _ := newTestAPI(t)
	stateID, cityID, userID, placeID := seedPlace(t, h)
	review := createVia(t, h, "/api/v1/places/"+placeID+"/reviews", map[string]any{
		"text": "great stay", "user_id": userID,
	})

	w := doJSON(t, h, http.MethodDelete, "/api/v1/states/"+stateID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	for _, path := range []string{
		"/api/v1/cities/" + cityID,
		"/api/v1/places/" + placeID,
		"/api/v1/reviews/" + review["id"].(string),
	} {
		w = doJSON(t, h, http.MethodGet, path, nil)
		require.Equal(t, http.StatusNotFound, w.Code, path)
	}
	w = doJSON(t, h, http.MethodGet, "/api/v1/users/"+userID, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestUserLifecycle(t *testing.T) {
	t.Parallel()

	h, store := newTestAPI(t)

	w := doJSON(t, h, http.MethodPost, "/api/v1/users", map[string]any{"password": "x"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Missing email", decodeMap(t, w)["error"])

	w = doJSON(t, h, http.MethodPost, "/api/v1/users", map[string]any{"email": "a@b.c"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Missing password", decodeMap(t, w)["error"])

	created := createVia(t, h, "/api/v1/users", map[string]any{
		"email": "a@b.c", "password": "secret", "first_name": "Ada",
	})
	require.NotContains(t, created, "password")
	userID := created["id"].(string)

	e, err := store.Get(context.Background(), "User", userID)
	require.NoError(t, err)
	stored := e.(*model.User)
	require.NotEqual(t, "secret", stored.Password)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret")))

	w = doJSON(t, h, http.MethodPut, "/api/v1/users/"+userID, map[string]any{
		"email": "evil@b.c", "last_name": "Lovelace", "password": "changed",
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeMap(t, w)
	require.Equal(t, "a@b.c", updated["email"])
	require.Equal(t, "Lovelace", updated["last_name"])
	require.NotContains(t, updated, "password")

	e, err = store.Get(context.Background(), "User", userID)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(e.(*model.User).Password), []byte("changed")))

	w = doJSON(t, h, http.MethodGet, "/api/v1/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, user := range decodeList(t, w) {
		require.NotContains(t, user, "password")
	}
}

func TestPlaceLifecycle(t *testing.T) {
	t.Parallel()

	h, _ := newTestAPI(t)
	state := createVia(t, h, "/api/v1/states", map[string]any{"name": "California"})
	city := createVia(t, h, "/api/v1/states/"+state["id"].(string)+"/cities", map[string]any{"name": "SF"})
	cityID := city["id"].(string)
	user := createVia(t, h, "/api/v1/users", map[string]any{"email": "h@e.c", "password": "p"})
	userID := user["id"].(string)

	w := doJSON(t, h, http.MethodPost, "/api/v1/cities/missing/places", map[string]any{"name": "x"})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, h, http.MethodPost, "/api/v1/cities/"+cityID+"/places", map[string]any{"user_id": userID})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Missing name", decodeMap(t, w)["error"])

	w = doJSON(t, h, http.MethodPost, "/api/v1/cities/"+cityID+"/places", map[string]any{"name": "Loft"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Missing user_id", decodeMap(t, w)["error"])

	w = doJSON(t, h, http.MethodPost, "/api/v1/cities/"+cityID+"/places", map[string]any{
		"name": "Loft", "user_id": "missing",
	})
	require.Equal(t, http.StatusNotFound, w.Code)

	place := createVia(t, h, "/api/v1/cities/"+cityID+"/places", map[string]any{
		"name": "Loft", "user_id": userID, "number_rooms": 3, "price_by_night": 120,
	})
	require.Equal(t, cityID, place["city_id"])
	require.Equal(t, float64(3), place["number_rooms"])
	placeID := place["id"].(string)

	w = doJSON(t, h, http.MethodGet, "/api/v1/cities/"+cityID+"/places", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeList(t, w), 1)

	w = doJSON(t, h, http.MethodPut, "/api/v1/places/"+placeID, map[string]any{
		"name": "Penthouse", "city_id": "forged", "user_id": "forged",
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeMap(t, w)
	require.Equal(t, "Penthouse", updated["name"])
	require.Equal(t, cityID, updated["city_id"])
	require.Equal(t, userID, updated["user_id"])
}

func TestReviewLifecycle(t *testing.T) {
	t.Parallel()

	h, _ := newTestAPI(t)
	_, _, userID, placeID := seedPlace(t, h)

	w := doJSON(t, h, http.MethodPost, "/api/v1/places/missing/reviews", map[string]any{"text": "x"})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, h, http.MethodPost, "/api/v1/places/"+placeID+"/reviews", map[string]any{"user_id": userID})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Missing text", decodeMap(t, w)["error"])

	w = doJSON(t, h, http.MethodPost, "/api/v1/places/"+placeID+"/reviews", map[string]any{"text": "nice"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Missing user_id", decodeMap(t, w)["error"])

	review := createVia(t, h, "/api/v1/places/"+placeID+"/reviews", map[string]any{
		"text": "nice", "user_id": userID,
	})
	require.Equal(t, placeID, review["place_id"])
	reviewID := review["id"].(string)

	w = doJSON(t, h, http.MethodGet, "/api/v1/places/"+placeID+"/reviews", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeList(t, w), 1)

	w = doJSON(t, h, http.MethodPut, "/api/v1/reviews/"+reviewID, map[string]any{
		"text": "very nice", "place_id": "forged", "user_id": "forged",
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeMap(t, w)
	require.Equal(t, "very nice", updated["text"])
	require.Equal(t, placeID, updated["place_id"])
	require.Equal(t, userID, updated["user_id"])

	w = doJSON(t, h, http.MethodDelete, "/api/v1/reviews/"+reviewID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, h, http.MethodGet, "/api/v1/reviews/"+reviewID, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPlaceAmenityLinks(t *testing.T) {
	t.Parallel()

	h, _ := newTestAPI(t)
	_, _, _, placeID := seedPlace(t, h)
	amenity := createVia(t, h, "/api/v1/amenities", map[string]any{"name": "Wifi"})
	amenityID := amenity["id"].(string)
	linkPath := "/api/v1/places/" + placeID + "/amenities/" + amenityID

	w := doJSON(t, h, http.MethodPost, "/api/v1/places/missing/amenities/"+amenityID, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, h, http.MethodPost, "/api/v1/places/"+placeID+"/amenities/missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, h, http.MethodPost, linkPath, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, amenityID, decodeMap(t, w)["id"])

	// Linking again answers 200 with the same amenity.
	w = doJSON(t, h, http.MethodPost, linkPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, amenityID, decodeMap(t, w)["id"])

	w = doJSON(t, h, http.MethodGet, "/api/v1/places/"+placeID+"/amenities", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeList(t, w), 1)

	w = doJSON(t, h, http.MethodDelete, linkPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decodeMap(t, w))

	w = doJSON(t, h, http.MethodDelete, linkPath, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchPlaces(t *testing.T) {
	t.Parallel()

	h, _ := newTestAPI(t)

	california := createVia(t, h, "/api/v1/states", map[string]any{"name": "California"})
	nevada := createVia(t, h, "/api/v1/states", map[string]any{"name": "Nevada"})
	sf := createVia(t, h, "/api/v1/states/"+california["id"].(string)+"/cities", map[string]any{"name": "SF"})
	reno := createVia(t, h, "/api/v1/states/"+nevada["id"].(string)+"/cities", map[string]any{"name": "Reno"})
	user := createVia(t, h, "/api/v1/users", map[string]any{"email": "h@e.c", "password": "p"})
	userID := user["id"].(string)

	loft := createVia(t, h, "/api/v1/cities/"+sf["id"].(string)+"/places", map[string]any{
		"name": "Loft", "user_id": userID,
	})
	cabin := createVia(t, h, "/api/v1/cities/"+reno["id"].(string)+"/places", map[string]any{
		"name": "Cabin", "user_id": userID,
	})

	wifi := createVia(t, h, "/api/v1/amenities", map[string]any{"name": "Wifi"})
	w := doJSON(t, h, http.MethodPost,
		"/api/v1/places/"+loft["id"].(string)+"/amenities/"+wifi["id"].(string), nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, h, http.MethodPost, "/api/v1/places_search", "not json")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Not a JSON", decodeMap(t, w)["error"])

	// Empty criteria select everything.
	w = doJSON(t, h, http.MethodPost, "/api/v1/places_search", map[string]any{})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeList(t, w), 2)

	w = doJSON(t, h, http.MethodPost, "/api/v1/places_search", map[string]any{
		"states": []string{california["id"].(string)},
	})
	require.Equal(t, http.StatusOK, w.Code)
	results := decodeList(t, w)
	require.Len(t, results, 1)
	require.Equal(t, loft["id"], results[0]["id"])

	w = doJSON(t, h, http.MethodPost, "/api/v1/places_search", map[string]any{
		"cities": []string{reno["id"].(string)},
	})
	require.Equal(t, http.StatusOK, w.Code)
	results = decodeList(t, w)
	require.Len(t, results, 1)
	require.Equal(t, cabin["id"], results[0]["id"])

	// A city already covered by its state is not doubled.
	w = doJSON(t, h, http.MethodPost, "/api/v1/places_search", map[string]any{
		"states": []string{california["id"].(string)},
		"cities": []string{sf["id"].(string), reno["id"].(string)},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeList(t, w), 2)

	w = doJSON(t, h, http.MethodPost, "/api/v1/places_search", map[string]any{
		"amenities": []string{wifi["id"].(string)},
	})
	require.Equal(t, http.StatusOK, w.Code)
	results = decodeList(t, w)
	require.Len(t, results, 1)
	require.Equal(t, loft["id"], results[0]["id"])

	w = doJSON(t, h, http.MethodPost, "/api/v1/places_search", map[string]any{
		"states":    []string{nevada["id"].(string)},
		"amenities": []string{wifi["id"].(string)},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decodeList(t, w))
}

func TestAmenityLifecycle(t *testing.T) {
	t.Parallel()

	h, _ := newTestAPI(t)

	w := doJSON(t, h, http.MethodPost, "/api/v1/amenities", map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Missing name", decodeMap(t, w)["error"])

	amenity := createVia(t, h, "/api/v1/amenities", map[string]any{"name": "Wifi"})
	amenityID := amenity["id"].(string)

	w = doJSON(t, h, http.MethodPut, "/api/v1/amenities/"+amenityID, map[string]any{"name": "Fast Wifi"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Fast Wifi", decodeMap(t, w)["name"])

	w = doJSON(t, h, http.MethodDelete, "/api/v1/amenities/"+amenityID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, h, http.MethodGet, "/api/v1/amenities/"+amenityID, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRejectedUpdateLeavesStoredEntityUntouched(t *testing.T) {
	t.Parallel()

	h, store := newTestAPI(t)
	state := createVia(t, h, "/api/v1/states", map[string]any{"name": "California"})
	stateID := state["id"].(string)

	w := doJSON(t, h, http.MethodPut, "/api/v1/states/"+stateID, map[string]any{"name": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Missing name", decodeMap(t, w)["error"])

	w = doJSON(t, h, http.MethodGet, "/api/v1/states/"+stateID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "California", decodeMap(t, w)["name"])

	// A mistyped field fails the same way, before anything is written.
	w = doJSON(t, h, http.MethodPut, "/api/v1/states/"+stateID, map[string]any{"name": 123})
	require.Equal(t, http.StatusBadRequest, w.Code)

	e, err := store.Get(context.Background(), "State", stateID)
	require.NoError(t, err)
	require.Equal(t, "California", e.(*model.State).Name)
}

func TestRejectedUserUpdateKeepsPasswordHash(t *testing.T) {
	t.Parallel()

	h, store := newTestAPI(t)
	user := createVia(t, h, "/api/v1/users", map[string]any{
		"email": "a@b.c", "password": "secret",
	})
	userID := user["id"].(string)

	w := doJSON(t, h, http.MethodPut, "/api/v1/users/"+userID, map[string]any{"password": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Missing password", decodeMap(t, w)["error"])

	e, err := store.Get(context.Background(), "User", userID)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword(
		[]byte(e.(*model.User).Password), []byte("secret")))
}

func TestRequiredFieldsMustBeStrings(t *testing.T) {
	t.Parallel()

	h, store := newTestAPI(t)

	w := doJSON(t, h, http.MethodPost, "/api/v1/users", map[string]any{
		"email": "a@b.c", "password": 123,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Missing password", decodeMap(t, w)["error"])

	w = doJSON(t, h, http.MethodPost, "/api/v1/states", map[string]any{"name": 123})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Missing name", decodeMap(t, w)["error"])

	n, err := store.Count(context.Background(), "")
	require.NoError(t, err)
	require.Zero(t, n)
}
