package service

import (
	"context"
	"fmt"
	"time"

	"dental-clinic-backend/internal/domain/repository"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReminderService runs the daily sweep that emails patients one day ahead of
// confirmed, at least partially paid appointments.
type ReminderService struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	notifier        Notifier
}

func NewReminderService(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	notifier Notifier,
) *ReminderService {
	return &ReminderService{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		notifier:        notifier,
	}
}

// StartScheduler starts a daily cron at the configured hour
func (s *ReminderService) StartScheduler(hour int) *gocron.Scheduler {
	scheduler := gocron.NewScheduler(time.UTC)

	scheduler.Every(1).Day().At(fmt.Sprintf("%02d:00", hour)).Do(func() {
		s.log.Info("Running appointment reminder sweep...")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if err := s.RunOnce(ctx); err != nil {
			s.log.Errorf("Reminder sweep error: %+v", err)
		}
	})

	scheduler.StartAsync()
	s.log.Infof("Appointment reminder scheduler started (daily at %02d:00 UTC)", hour)

	return scheduler
}

// RunOnce sends reminders for every appointment happening tomorrow.
//
// Each appointment is claimed with a conditional update BEFORE its email goes
// out: a slow run colliding with the next trigger sees zero affected rows and
// skips, so a patient is never reminded twice.
func (s *ReminderService) RunOnce(ctx context.Context) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, 1)
	to := today.AddDate(0, 0, 2)

	appointments, err := s.appointmentRepo.FindDueForReminder(s.db.WithContext(ctx), from, to)
	if err != nil {
		return fmt.Errorf("query appointments due for reminder: %w", err)
	}

	sent := 0
	for i := range appointments {
		appointment := &appointments[i]

		rows, err := s.appointmentRepo.MarkReminderSent(s.db.WithContext(ctx), appointment.ID)
		if err != nil {
			s.log.Warnf("Failed to mark reminder sent for appointment %s: %+v", appointment.ID, err)
			continue
		}
		if rows == 0 {
			// Claimed by an overlapping run.
			continue
		}

		s.notifier.AppointmentReminder(appointment)
		sent++
	}

	s.log.Infof("Reminder sweep completed: %d reminders sent", sent)
	return nil
}
