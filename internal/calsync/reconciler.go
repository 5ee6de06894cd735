// Package calsync reconciles local appointments with an external calendar.
// It decides, per appointment, whether to create or update the mirrored
// event, and reports the outcome as a value so a batch can continue past
// individual failures.
package calsync

import (
	"context"
	"log/slog"

	"hopelink/internal/models"
)

// CalendarService is the external calendar collaborator. Implementations
// talk to a real provider (Google Calendar, CalDAV); errors are opaque to
// the reconciler, which only distinguishes success from failure.
type CalendarService interface {
	CreateEvent(ctx context.Context, appt *models.Appointment) (string, error)
	UpdateEvent(ctx context.Context, externalID string, appt *models.Appointment) error
	DeleteEvent(ctx context.Context, externalID string) error
}

// Action is the reconciliation outcome for one appointment.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionSkip   Action = "skip"
	ActionFail   Action = "fail"
)

// SyncState is the appointment's external-calendar linkage state after a
// reconciliation attempt.
type SyncState string

const (
	StateUnsynced   SyncState = "unsynced"
	StateSynced     SyncState = "synced"
	StateSyncFailed SyncState = "sync_failed"
)

// SyncDecision records what happened to one appointment. ExternalID is the
// identifier the caller should persist back onto the appointment; on a
// failed update it still carries the previously valid id, since the linkage
// remains meaningful for the next retry.
type SyncDecision struct {
	AppointmentID string    `json:"schedule_id"`
	Action        Action    `json:"action"`
	State         SyncState `json:"state"`
	ExternalID    string    `json:"google_event_id,omitempty"`
	Err           error     `json:"-"`
}

// Failed reports whether the attempt failed.
func (d SyncDecision) Failed() bool { return d.Action == ActionFail }

// Reconciler drives the create/update decision against a CalendarService.
// Each call is a single attempt; retry and backoff policy belongs to the
// caller, as does serializing concurrent attempts for the same appointment.
type Reconciler struct {
	service CalendarService
	logger  *slog.Logger
	dryRun  bool
}

// NewReconciler creates a reconciler. With dryRun set, every attempt is
// reported as a skip and the collaborator is never called.
func NewReconciler(service CalendarService, logger *slog.Logger, dryRun bool) *Reconciler {
	return &Reconciler{service: service, logger: logger, dryRun: dryRun}
}

// Reconcile performs one reconciliation attempt for one appointment.
// Failures are returned as a decision, never as a Go error, so callers can
// batch attempts and keep going.
func (r *Reconciler) Reconcile(ctx context.Context, appt *models.Appointment) SyncDecision {
	if r.dryRun {
		r.logger.Info("[DRY RUN] Would sync appointment", "title", appt.Title, "id", appt.ID)
		return SyncDecision{AppointmentID: appt.ID, Action: ActionSkip, State: skipState(appt), ExternalID: appt.ExternalID}
	}

	if appt.ExternalID == "" {
		externalID, err := r.service.CreateEvent(ctx, appt)
		if err != nil {
			r.logger.Error("Failed to create external event", "title", appt.Title, "error", err)
			return SyncDecision{AppointmentID: appt.ID, Action: ActionFail, State: StateSyncFailed, Err: err}
		}
		r.logger.Info("Created external event", "title", appt.Title, "externalID", externalID)
		return SyncDecision{AppointmentID: appt.ID, Action: ActionCreate, State: StateSynced, ExternalID: externalID}
	}

	if err := r.service.UpdateEvent(ctx, appt.ExternalID, appt); err != nil {
		// Keep the id: one failed update does not invalidate the linkage.
		r.logger.Error("Failed to update external event", "title", appt.Title, "externalID", appt.ExternalID, "error", err)
		return SyncDecision{AppointmentID: appt.ID, Action: ActionFail, State: StateSyncFailed, ExternalID: appt.ExternalID, Err: err}
	}
	r.logger.Info("Updated external event", "title", appt.Title, "externalID", appt.ExternalID)
	return SyncDecision{AppointmentID: appt.ID, Action: ActionUpdate, State: StateSynced, ExternalID: appt.ExternalID}
}

// ReconcileAll reconciles each appointment in turn, continuing past
// failures. The decisions are returned in input order.
func (r *Reconciler) ReconcileAll(ctx context.Context, appointments []*models.Appointment) []SyncDecision {
	decisions := make([]SyncDecision, 0, len(appointments))
	for _, appt := range appointments {
		decisions = append(decisions, r.Reconcile(ctx, appt))
	}
	return decisions
}

// Delete removes the mirrored event. It is an explicit operation; on success
// the caller is responsible for clearing the appointment's external id.
func (r *Reconciler) Delete(ctx context.Context, externalID string) error {
	if r.dryRun {
		r.logger.Info("[DRY RUN] Would delete external event", "externalID", externalID)
		return nil
	}
	return r.service.DeleteEvent(ctx, externalID)
}

func skipState(appt *models.Appointment) SyncState {
	if appt.Synced() {
		return StateSynced
	}
	return StateUnsynced
}
