package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/bryokim/AirBnB-clone-v3/internal/model"
)

// ListUsers returns every User, passwords omitted.
func (h *Handlers) ListUsers(c *gin.Context) {
	users, ok := h.allOf(c, "User")
	if !ok {
		return
	}
	h.renderList(c, users)
}

// GetUser returns one User by id, password omitted.
func (h *Handlers) GetUser(c *gin.Context) {
	if user, ok := h.getEntity(c, "User", c.Param("user_id")); ok {
		h.render(c, http.StatusOK, user)
	}
}

// CreateUser creates a User. The password is bcrypt-hashed before it
// reaches storage.
func (h *Handlers) CreateUser(c *gin.Context) {
	attrs, ok := h.bindJSON(c)
	if !ok {
		return
	}
	if missing(attrs, "email") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing email"})
		return
	}
	if missing(attrs, "password") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing password"})
		return
	}
	hashed, err := hashPassword(stringAttr(attrs, "password"))
	if err != nil {
		h.serverError(c, err)
		return
	}
	attrs["password"] = hashed
	user, err := model.New("User", attrs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Not a JSON"})
		return
	}
	if !h.stage(c, user) || !h.persist(c) {
		return
	}
	h.render(c, http.StatusCreated, user)
}

// UpdateUser applies body fields to a User. Email is immutable after
// creation and is never applied; a new password is re-hashed.
func (h *Handlers) UpdateUser(c *gin.Context) {
	user, ok := h.getEntity(c, "User", c.Param("user_id"))
	if !ok {
		return
	}
	attrs, ok := h.bindJSON(c)
	if !ok {
		return
	}
	if !missing(attrs, "password") {
		hashed, err := hashPassword(stringAttr(attrs, "password"))
		if err != nil {
			h.serverError(c, err)
			return
		}
		attrs["password"] = hashed
	}
	updated, err := cloneEntity(user)
	if err != nil {
		h.serverError(c, err)
		return
	}
	if err := model.Apply(updated, attrs, "email"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Not a JSON"})
		return
	}
	updated.Touch()
	if !h.stage(c, updated) || !h.persist(c) {
		return
	}
	h.render(c, http.StatusOK, updated)
}

// DeleteUser removes a User. In relational mode a user still referenced by
// places or reviews cannot be removed; the constraint violation surfaces as
// a 400.
func (h *Handlers) DeleteUser(c *gin.Context) {
	h.deleteEntity(c, "User", c.Param("user_id"))
}

func hashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
