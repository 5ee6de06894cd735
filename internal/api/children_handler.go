package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hopelink/internal/models"
	"hopelink/internal/storage"
)

// ChildrenHandler serves CRUD for child profiles.
type ChildrenHandler struct {
	children *storage.ChildRepository
}

// NewChildrenHandler creates a new children handler.
func NewChildrenHandler(children *storage.ChildRepository) *ChildrenHandler {
	return &ChildrenHandler{children: children}
}

type childRequest struct {
	Name            string `json:"name" binding:"required"`
	BirthDate       string `json:"birth_date" binding:"required"`
	DiseaseCode     string `json:"disease_code" binding:"required"`
	DiseaseName     string `json:"disease_name"`
	CurrentHospital string `json:"current_hospital"`
	AttendingDoctor string `json:"attending_doctor"`
	Notes           string `json:"notes"`
}

// List returns all children of the authenticated caregiver.
func (h *ChildrenHandler) List(c *gin.Context) {
	children, err := h.children.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "Failed to fetch children"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: children})
}

// Create registers a new child profile.
func (h *ChildrenHandler) Create(c *gin.Context) {
	var req childRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	child := &models.Child{
		UserID:          currentUserID(c),
		Name:            req.Name,
		BirthDate:       req.BirthDate,
		DiseaseCode:     req.DiseaseCode,
		DiseaseName:     req.DiseaseName,
		CurrentHospital: req.CurrentHospital,
		AttendingDoctor: req.AttendingDoctor,
		Notes:           req.Notes,
	}
	if err := h.children.Create(c.Request.Context(), child); err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "Failed to create child"})
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: child})
}

// Get returns one child profile.
func (h *ChildrenHandler) Get(c *gin.Context) {
	child, err := h.children.GetByID(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "Failed to fetch child"})
		return
	}
	if child == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "Child not found"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: child})
}

// Update rewrites a child profile.
func (h *ChildrenHandler) Update(c *gin.Context) {
	child, err := h.children.GetByID(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "Failed to fetch child"})
		return
	}
	if child == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "Child not found"})
		return
	}

	var req childRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	child.Name = req.Name
	child.BirthDate = req.BirthDate
	child.DiseaseCode = req.DiseaseCode
	child.DiseaseName = req.DiseaseName
	child.CurrentHospital = req.CurrentHospital
	child.AttendingDoctor = req.AttendingDoctor
	child.Notes = req.Notes

	if err := h.children.Update(c.Request.Context(), child); err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "Failed to update child"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: child})
}

// Delete removes a child profile and its appointments.
func (h *ChildrenHandler) Delete(c *gin.Context) {
	err := h.children.Delete(c.Request.Context(), currentUserID(c), c.Param("id"))
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "Child not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "Failed to delete child"})
		return
	}
	c.Status(http.StatusNoContent)
}
