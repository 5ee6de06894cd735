// Package notify delivers preparation reminders when their fire time comes.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"hopelink/internal/schedule"
	"hopelink/internal/storage"
)

// Notifier receives reminders that are due. The presentation layer decides
// the channel (push, SMS, in-app); the default implementation logs them.
type Notifier interface {
	Notify(ctx context.Context, reminder schedule.Reminder) error
}

// LogNotifier writes reminders to the structured log. It stands in until a
// push channel is wired up on the client side.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs the reminder.
func (n *LogNotifier) Notify(_ context.Context, reminder schedule.Reminder) error {
	n.Logger.Info("Reminder due",
		"scheduleID", reminder.Appointment.ID,
		"title", reminder.Appointment.Title,
		"fireAt", reminder.FireAt,
		"items", len(reminder.Checklist),
	)
	return nil
}

// Scheduler periodically scans for appointments whose reminder window has
// opened and dispatches one reminder per appointment.
type Scheduler struct {
	cron         *cron.Cron
	appointments *storage.AppointmentRepository
	notifier     Notifier
	defaults     schedule.DefaultsTable
	lead         time.Duration
	logger       *slog.Logger
}

// NewScheduler creates a reminder scheduler with the given lead time.
func NewScheduler(appointments *storage.AppointmentRepository, notifier Notifier, lead time.Duration, logger *slog.Logger) *Scheduler {
	if lead <= 0 {
		lead = schedule.DefaultLeadTime
	}
	return &Scheduler{
		cron:         cron.New(),
		appointments: appointments,
		notifier:     notifier,
		defaults:     schedule.DefaultChecklists(),
		lead:         lead,
		logger:       logger,
	}
}

// Start begins the periodic scan.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@every 1m", func() {
		s.dispatchDue(context.Background())
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Reminder scheduler started", "lead", s.lead)
	return nil
}

// Stop shuts the scheduler down, waiting for any running scan.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Reminder scheduler stopped")
}

// dispatchDue fires reminders for every appointment whose window opened.
// Each appointment is marked so it is reminded at most once.
func (s *Scheduler) dispatchDue(ctx context.Context) {
	now := time.Now()
	due, err := s.appointments.ListDueReminders(ctx, now, s.lead)
	if err != nil {
		s.logger.Error("Failed to query due reminders", "error", err)
		return
	}

	for _, appt := range due {
		reminder := schedule.BuildReminder(appt, s.lead, s.defaults)
		if err := s.notifier.Notify(ctx, reminder); err != nil {
			s.logger.Error("Failed to deliver reminder", "scheduleID", appt.ID, "error", err)
			continue
		}
		if err := s.appointments.MarkReminded(ctx, appt.ID, now); err != nil {
			s.logger.Error("Failed to mark reminder delivered", "scheduleID", appt.ID, "error", err)
		}
	}
}
