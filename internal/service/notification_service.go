package service

import (
	"fmt"

	"dental-clinic-backend/config"
	"dental-clinic-backend/internal/domain/entity"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Notifier delivers lifecycle emails. Every method is best-effort: the primary
// operation has already committed by the time a notification goes out, so
// delivery failures are logged and never surfaced to the caller.
type Notifier interface {
	AppointmentBooked(appointment *entity.Appointment)
	ConsultationRequested(appointment *entity.Appointment)
	TreatmentPlanReady(appointment *entity.Appointment)
	PaymentReceived(appointment *entity.Appointment, amount, totalPaid, remaining decimal.Decimal)
	AppointmentRescheduled(appointment *entity.Appointment)
	AppointmentReminder(appointment *entity.Appointment)
}

type emailNotifier struct {
	mailer Mailer
	log    *logrus.Logger
	clinic config.ClinicConfig
}

func NewEmailNotifier(mailer Mailer, log *logrus.Logger, clinic config.ClinicConfig) Notifier {
	return &emailNotifier{
		mailer: mailer,
		log:    log,
		clinic: clinic,
	}
}

// send dispatches one email in the background; the caller never waits
func (n *emailNotifier) send(to, subject, html string) {
	go func() {
		if err := n.mailer.Send(to, subject, html); err != nil {
			n.log.Warnf("Failed to send email %q to %s: %+v", subject, to, err)
		}
	}()
}

func (n *emailNotifier) AppointmentBooked(appointment *entity.Appointment) {
	n.send(
		appointment.Patient.Email,
		"Appointment Booking Confirmation",
		bookingEmailHTML(appointment.Patient.FullName, appointment.Service.Name, appointment.AppointmentDate, appointment.TotalAmount()),
	)

	if n.clinic.Email != "" {
		n.send(
			n.clinic.Email,
			"New Appointment Booked",
			fmt.Sprintf("<p>%s booked %s for %s</p>",
				appointment.Patient.FullName, appointment.Service.Name, formatDate(appointment.AppointmentDate)),
		)
	}
}

func (n *emailNotifier) ConsultationRequested(appointment *entity.Appointment) {
	n.send(
		appointment.Patient.Email,
		"Consultation Request Received",
		consultationEmailHTML(appointment.Patient.FullName, appointment.Service.Name),
	)

	if n.clinic.Email != "" {
		n.send(
			n.clinic.Email,
			"New Consultation Request",
			fmt.Sprintf("<p>New consultation request from %s for %s</p>",
				appointment.Patient.FullName, appointment.Service.Name),
		)
	}
}

func (n *emailNotifier) TreatmentPlanReady(appointment *entity.Appointment) {
	n.send(
		appointment.Patient.Email,
		"Your Treatment Plan & Payment Details",
		treatmentPlanEmailHTML(appointment.Patient.FullName, appointment.Service.Name, appointment.TotalAmount(), appointment.DepositAmount()),
	)
}

func (n *emailNotifier) PaymentReceived(appointment *entity.Appointment, amount, totalPaid, remaining decimal.Decimal) {
	if appointment.PaymentStatus == entity.PaymentStatePaid {
		n.send(
			appointment.Patient.Email,
			"Appointment Fully Paid",
			fullPaymentEmailHTML(appointment.Patient.FullName, appointment.Service.Name, appointment.TotalAmount(), appointment.AppointmentDate),
		)
		return
	}

	n.send(
		appointment.Patient.Email,
		"Deposit Received",
		partialPaymentEmailHTML(appointment.Patient.FullName, appointment.Service.Name, amount, remaining, appointment.TotalAmount(), appointment.AppointmentDate),
	)
}

func (n *emailNotifier) AppointmentRescheduled(appointment *entity.Appointment) {
	n.send(
		appointment.Patient.Email,
		"Appointment Rescheduled",
		rescheduleEmailHTML(appointment.Patient.FullName, appointment.Service.Name, appointment.AppointmentDate),
	)
}

func (n *emailNotifier) AppointmentReminder(appointment *entity.Appointment) {
	n.send(
		appointment.Patient.Email,
		"Appointment Reminder",
		reminderEmailHTML(appointment.Patient.FullName, appointment.Service.Name, appointment.AppointmentDate),
	)
}
