package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func formatNaira(amount decimal.Decimal) string {
	return "₦" + amount.StringFixed(2)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "to be scheduled"
	}
	return t.Format("January 2, 2006")
}

func bookingEmailHTML(patientName, serviceName string, date *time.Time, total decimal.Decimal) string {
	return fmt.Sprintf(`
		<h3>Hello %s,</h3>
		<p>Your appointment has been booked.</p>
		<p><strong>Service:</strong> %s</p>
		<p><strong>Date:</strong> %s</p>
		<p><strong>Total Amount:</strong> %s</p>
		<p>We look forward to seeing you.</p>`,
		patientName, serviceName, formatDate(date), formatNaira(total))
}

func consultationEmailHTML(patientName, serviceName string) string {
	return fmt.Sprintf(`
		<h3>Hello %s,</h3>
		<p>We have received your consultation request for <strong>%s</strong>.</p>
		<p>Please call the clinic to finalize your appointment.</p>`,
		patientName, serviceName)
}

func treatmentPlanEmailHTML(patientName, serviceName string, total, deposit decimal.Decimal) string {
	return fmt.Sprintf(`
		<h3>Hello %s,</h3>
		<p>Your consultation has been completed.</p>
		<p><strong>Service:</strong> %s</p>
		<p><strong>Total Amount:</strong> %s</p>
		<p><strong>Required Deposit (50%%):</strong> %s</p>
		<p>Please proceed to make your deposit payment to confirm your appointment.</p>`,
		patientName, serviceName, formatNaira(total), formatNaira(deposit))
}

func partialPaymentEmailHTML(patientName, serviceName string, amount, remaining, total decimal.Decimal, date *time.Time) string {
	return fmt.Sprintf(`
		<h3>Hello %s,</h3>
		<p>We have received your payment of <strong>%s</strong> for %s.</p>
		<p><strong>Remaining Balance:</strong> %s of %s</p>
		<p><strong>Appointment Date:</strong> %s</p>`,
		patientName, formatNaira(amount), serviceName,
		formatNaira(remaining), formatNaira(total), formatDate(date))
}

func fullPaymentEmailHTML(patientName, serviceName string, total decimal.Decimal, date *time.Time) string {
	return fmt.Sprintf(`
		<h3>Hello %s,</h3>
		<p>Your appointment for <strong>%s</strong> is now fully paid.</p>
		<p><strong>Total Paid:</strong> %s</p>
		<p><strong>Appointment Date:</strong> %s</p>
		<p>Thank you!</p>`,
		patientName, serviceName, formatNaira(total), formatDate(date))
}

func rescheduleEmailHTML(patientName, serviceName string, date *time.Time) string {
	return fmt.Sprintf(`
		<h3>Hello %s,</h3>
		<p>Your appointment for <strong>%s</strong> has been rescheduled.</p>
		<p><strong>New Date:</strong> %s</p>
		<p>If this date does not work for you, please call the clinic.</p>`,
		patientName, serviceName, formatDate(date))
}

func reminderEmailHTML(patientName, serviceName string, date *time.Time) string {
	return fmt.Sprintf(`
		<h3>Hello %s,</h3>
		<p>This is a reminder that you have an appointment tomorrow.</p>
		<p><strong>Service:</strong> %s</p>
		<p><strong>Date:</strong> %s</p>
		<p>Please arrive 10 minutes early.</p>`,
		patientName, serviceName, formatDate(date))
}
