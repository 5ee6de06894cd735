package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"hopelink/internal/calsync"
	"hopelink/internal/config"
	"hopelink/internal/models"
	"hopelink/internal/schedule"
	"hopelink/internal/storage"
)

// ScheduleHandler serves care-appointment CRUD, conflict reporting, reminder
// previews and external calendar sync.
type ScheduleHandler struct {
	appointments *storage.AppointmentRepository
	children     *storage.ChildRepository
	reconciler   *calsync.Reconciler // nil when no calendar provider is configured
	defaults     schedule.DefaultsTable
	config       *config.Config
	logger       *slog.Logger
}

// NewScheduleHandler creates a new schedule handler. reconciler may be nil.
func NewScheduleHandler(
	appointments *storage.AppointmentRepository,
	children *storage.ChildRepository,
	reconciler *calsync.Reconciler,
	cfg *config.Config,
	logger *slog.Logger,
) *ScheduleHandler {
	return &ScheduleHandler{
		appointments: appointments,
		children:     children,
		reconciler:   reconciler,
		defaults:     schedule.DefaultChecklists(),
		config:       cfg,
		logger:       logger,
	}
}

type createScheduleRequest struct {
	ChildID         string                 `json:"child_id" binding:"required"`
	Title           string                 `json:"title" binding:"required"`
	Kind            string                 `json:"schedule_type" binding:"required"`
	Start           time.Time              `json:"start_time" binding:"required"`
	End             time.Time              `json:"end_time" binding:"required"`
	LocationName    string                 `json:"location_name"`
	LocationAddress string                 `json:"location_address"`
	Department      string                 `json:"department"`
	Provider        string                 `json:"doctor_name"`
	Checklist       []models.ChecklistItem `json:"checklist"`
	Notes           string                 `json:"notes"`
}

type updateScheduleRequest struct {
	Title           *string                 `json:"title"`
	Kind            *string                 `json:"schedule_type"`
	Start           *time.Time              `json:"start_time"`
	End             *time.Time              `json:"end_time"`
	LocationName    *string                 `json:"location_name"`
	LocationAddress *string                 `json:"location_address"`
	Department      *string                 `json:"department"`
	Provider        *string                 `json:"doctor_name"`
	Checklist       *[]models.ChecklistItem `json:"checklist"`
	Notes           *string                 `json:"notes"`
}

// scheduleListResponse pairs the appointment list with its conflict report,
// the way the mobile client consumes it.
type scheduleListResponse struct {
	Items    []models.Appointment     `json:"items"`
	Report   *schedule.ConflictReport `json:"report"`
	Warnings []string                 `json:"warnings"`
}

// List returns the caregiver's appointments with a freshly derived conflict
// report. Supports child_id, start_date and end_date query filters.
func (h *ScheduleHandler) List(c *gin.Context) {
	var from, to *time.Time
	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "Invalid start_date"})
			return
		}
		from = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "Invalid end_date"})
			return
		}
		to = &t
	}

	items, err := h.appointments.List(c.Request.Context(), currentUserID(c), c.Query("child_id"), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "Failed to fetch schedules"})
		return
	}

	report, err := schedule.BuildReport(items)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "Failed to build conflict report"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: scheduleListResponse{
		Items:    items,
		Report:   report,
		Warnings: report.Warnings(),
	}})
}

// Create registers a new appointment. Conflicts with existing appointments
// are detected and returned as warnings but never block the write.
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req createScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	userID := currentUserID(c)
	appt := models.Appointment{
		UserID:          userID,
		ChildID:         req.ChildID,
		Title:           req.Title,
		Kind:            models.Kind(req.Kind),
		Start:           req.Start,
		End:             req.End,
		LocationName:    req.LocationName,
		LocationAddress: req.LocationAddress,
		Department:      req.Department,
		Provider:        req.Provider,
		Checklist:       req.Checklist,
		Notes:           req.Notes,
	}
	if !appt.IsValid() {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "start_time must be before end_time"})
		return
	}

	child, err := h.children.GetByID(c.Request.Context(), userID, req.ChildID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "Failed to verify child"})
		return
	}
	if child == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "Child not found"})
		return
	}

	if err := h.appointments.Create(c.Request.Context(), &appt); err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "Failed to create schedule"})
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: gin.H{
		"schedule": appt,
		"warnings": h.conflictWarnings(c, userID),
	}})
}

// Get returns one appointment.
func (h *ScheduleHandler) Get(c *gin.Context) {
	appt, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: appt})
}

// Update applies a partial update; conflict warnings are recomputed and
// returned alongside the result.
func (h *ScheduleHandler) Update(c *gin.Context) {
	appt, ok := h.load(c)
	if !ok {
		return
	}

	var req updateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	if req.Title != nil {
		appt.Title = *req.Title
	}
	if req.Kind != nil {
		appt.Kind = models.Kind(*req.Kind)
	}
	if req.Start != nil {
		appt.Start = *req.Start
	}
	if req.End != nil {
		appt.End = *req.End
	}
	if req.LocationName != nil {
		appt.LocationName = *req.LocationName
	}
	if req.LocationAddress != nil {
		appt.LocationAddress = *req.LocationAddress
	}
	if req.Department != nil {
		appt.Department = *req.Department
	}
	if req.Provider != nil {
		appt.Provider = *req.Provider
	}
	if req.Checklist != nil {
		appt.Checklist = *req.Checklist
	}
	if req.Notes != nil {
		appt.Notes = *req.Notes
	}

	if !appt.IsValid() {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "start_time must be before end_time"})
		return
	}

	if err := h.appointments.Update(c.Request.Context(), appt); err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "Failed to update schedule"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{
		"schedule": appt,
		"warnings": h.conflictWarnings(c, appt.UserID),
	}})
}

// Delete removes an appointment. The mirrored external event, if any, is
// left alone; removing it is the explicit unsync operation.
func (h *ScheduleHandler) Delete(c *gin.Context) {
	err := h.appointments.Delete(c.Request.Context(), currentUserID(c), c.Param("id"))
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "Schedule not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "Failed to delete schedule"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Reminder returns the preparation reminder for one appointment. The lead
// time defaults to the configured value and can be overridden with the
// lead_hours query parameter.
func (h *ScheduleHandler) Reminder(c *gin.Context) {
	appt, ok := h.load(c)
	if !ok {
		return
	}

	lead := h.config.ReminderLead
	if v := c.Query("lead_hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "Invalid lead_hours"})
			return
		}
		lead = time.Duration(n) * time.Hour
	}

	reminder := schedule.BuildReminder(*appt, lead, h.defaults)
	c.JSON(http.StatusOK, Response{Success: true, Data: reminder})
}

// Sync reconciles one appointment with the external calendar and persists
// the resulting external id. A reconciliation failure is reported in the
// response body; the local appointment is never touched by it.
func (h *ScheduleHandler) Sync(c *gin.Context) {
	if h.reconciler == nil {
		c.JSON(http.StatusServiceUnavailable, Response{Success: false, Error: "No calendar provider configured"})
		return
	}

	appt, ok := h.load(c)
	if !ok {
		return
	}

	decision := h.reconciler.Reconcile(c.Request.Context(), appt)
	if decision.Failed() {
		c.JSON(http.StatusOK, Response{Success: false, Data: decision, Error: "Calendar sync failed; will retry on next attempt"})
		return
	}

	if decision.Action == calsync.ActionCreate {
		if err := h.appointments.SetExternalID(c.Request.Context(), appt.ID, decision.ExternalID); err != nil {
			h.logger.Error("Failed to persist external id", "scheduleID", appt.ID, "error", err)
			c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "Synced but failed to store event id"})
			return
		}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: decision})
}

// Unsync deletes the mirrored external event and clears the linkage.
func (h *ScheduleHandler) Unsync(c *gin.Context) {
	if h.reconciler == nil {
		c.JSON(http.StatusServiceUnavailable, Response{Success: false, Error: "No calendar provider configured"})
		return
	}

	appt, ok := h.load(c)
	if !ok {
		return
	}
	if !appt.Synced() {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "Schedule is not synced"})
		return
	}

	if err := h.reconciler.Delete(c.Request.Context(), appt.ExternalID); err != nil {
		c.JSON(http.StatusOK, Response{Success: false, Error: "Failed to delete external event"})
		return
	}
	if err := h.appointments.SetExternalID(c.Request.Context(), appt.ID, ""); err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "Deleted external event but failed to clear linkage"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// load fetches the appointment named in the path and handles the error
// responses. ok is false when a response has already been written.
func (h *ScheduleHandler) load(c *gin.Context) (*models.Appointment, bool) {
	appt, err := h.appointments.GetByID(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "Failed to fetch schedule"})
		return nil, false
	}
	if appt == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "Schedule not found"})
		return nil, false
	}
	return appt, true
}

// conflictWarnings recomputes the conflict report over the caregiver's full
// calendar. Errors are logged and swallowed: warnings are informational and
// must never fail a write that already succeeded.
func (h *ScheduleHandler) conflictWarnings(c *gin.Context, userID string) []string {
	items, err := h.appointments.List(c.Request.Context(), userID, "", nil, nil)
	if err != nil {
		h.logger.Error("Failed to list appointments for conflict check", "error", err)
		return nil
	}
	report, err := schedule.BuildReport(items)
	if err != nil {
		h.logger.Error("Failed to build conflict report", "error", err)
		return nil
	}
	return report.Warnings()
}
