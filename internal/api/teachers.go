package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"pickup/internal/auth"
	"pickup/internal/teachers"
)

// ---------- Login ----------

type loginRequest struct {
	Phone string `json:"phone"`
	PIN   string `json:"pin"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, teachers.ErrMissingLogin)
		return
	}
	session, err := h.teachers.Login(c.Request.Context(), req.Phone, req.PIN)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Ping echoes the caller's claims.
func (h *Handler) Ping(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": claims})
}

// ---------- Teachers ----------

func (h *Handler) ListTeachers(c *gin.Context) {
	list, err := h.teachers.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if list == nil {
		list = []teachers.Teacher{}
	}
	c.JSON(http.StatusOK, list)
}

type createTeacherRequest struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	PIN    string `json:"pin"`
	Access string `json:"access"`
}

func (h *Handler) CreateTeacher(c *gin.Context) {
	var req createTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, teachers.ErrMissingTeacher)
		return
	}
	t, err := h.teachers.Create(c.Request.Context(), teachers.NewTeacher{
		Name:   req.Name,
		Phone:  req.Phone,
		PIN:    req.PIN,
		Access: req.Access,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "teacher": t})
}

type updateTeacherRequest struct {
	Name        *string `json:"name"`
	Phone       *string `json:"phone"`
	IsActive    *bool   `json:"isActive"`
	IsActiveRaw *bool   `json:"is_active"`
	Access      *string `json:"access"`
	PIN         *string `json:"pin"`
}

func (h *Handler) UpdateTeacher(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		badRequest(c, "Invalid teacher id")
		return
	}
	var req updateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request body")
		return
	}
	active := req.IsActive
	if active == nil {
		active = req.IsActiveRaw
	}
	t, err := h.teachers.Update(c.Request.Context(), id, teachers.Patch{
		Name:     req.Name,
		Phone:    req.Phone,
		IsActive: active,
		Access:   req.Access,
		PIN:      req.PIN,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "teacher": t})
}

func (h *Handler) DeleteTeacher(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		badRequest(c, "Invalid teacher id")
		return
	}
	if err := h.teachers.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
