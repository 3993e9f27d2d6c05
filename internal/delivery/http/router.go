package http

import (
	"net/http"

	"dental-clinic-backend/internal/delivery/http/handler"
	"dental-clinic-backend/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router             *mux.Router
	authHandler        *handler.AuthHandler
	serviceHandler     *handler.ServiceHandler
	appointmentHandler *handler.AppointmentHandler
	paymentHandler     *handler.PaymentHandler
	auditLogHandler    *handler.AuditLogHandler
	authMiddleware     *middleware.AuthMiddleware
	corsMiddleware     *middleware.CORSMiddleware
}

func NewRouter(
	authHandler *handler.AuthHandler,
	serviceHandler *handler.ServiceHandler,
	appointmentHandler *handler.AppointmentHandler,
	paymentHandler *handler.PaymentHandler,
	auditLogHandler *handler.AuditLogHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
) *Router {
	return &Router{
		router:             mux.NewRouter(),
		authHandler:        authHandler,
		serviceHandler:     serviceHandler,
		appointmentHandler: appointmentHandler,
		paymentHandler:     paymentHandler,
		auditLogHandler:    auditLogHandler,
		authMiddleware:     authMiddleware,
		corsMiddleware:     corsMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Auth routes (public)
	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", r.authHandler.Register).Methods(http.MethodPost)
	auth.HandleFunc("/login", r.authHandler.Login).Methods(http.MethodPost)
	auth.HandleFunc("/refresh-token", r.authHandler.RefreshToken).Methods(http.MethodPost)

	// Auth routes (protected)
	authProtected := api.PathPrefix("/auth").Subrouter()
	authProtected.Use(r.authMiddleware.Authenticate)
	authProtected.HandleFunc("/logout", r.authHandler.Logout).Methods(http.MethodPost)
	authProtected.HandleFunc("/me", r.authHandler.GetCurrentUser).Methods(http.MethodGet)

	// Service catalog (public browsing)
	api.HandleFunc("/services", r.serviceHandler.GetAllServices).Methods(http.MethodGet)
	api.HandleFunc("/services/{id}", r.serviceHandler.GetService).Methods(http.MethodGet)

	// Appointments (authenticated)
	appointments := api.PathPrefix("/appointments").Subrouter()
	appointments.Use(r.authMiddleware.Authenticate)
	appointments.HandleFunc("", r.appointmentHandler.CreateAppointment).Methods(http.MethodPost)
	appointments.HandleFunc("/me", r.appointmentHandler.GetMyAppointments).Methods(http.MethodGet)
	appointments.HandleFunc("/{id}", r.appointmentHandler.GetAppointment).Methods(http.MethodGet)
	appointments.HandleFunc("/{id}/reschedule", r.appointmentHandler.RescheduleAppointment).Methods(http.MethodPut)
	appointments.HandleFunc("/{id}", r.appointmentHandler.DeleteAppointment).Methods(http.MethodDelete)

	// Admin pricing route kept under /appointments for the mobile client
	appointmentsAdmin := api.PathPrefix("/appointments/admin").Subrouter()
	appointmentsAdmin.Use(r.authMiddleware.Authenticate)
	appointmentsAdmin.Use(middleware.RequireAdmin)
	appointmentsAdmin.HandleFunc("/{id}", r.appointmentHandler.AdminUpdateAppointment).Methods(http.MethodPut)

	// Payments
	// The webhook is public; the signature header authenticates Paystack.
	api.HandleFunc("/payments/webhook", r.paymentHandler.HandleWebhook).Methods(http.MethodPost)

	payments := api.PathPrefix("/payments").Subrouter()
	payments.Use(r.authMiddleware.Authenticate)
	payments.HandleFunc("/initialize", r.paymentHandler.InitializePayment).Methods(http.MethodPost)
	payments.HandleFunc("/appointment/{id}", r.paymentHandler.GetAppointmentPayments).Methods(http.MethodGet)
	payments.HandleFunc("/appointment/{id}/summary", r.paymentHandler.GetPaymentSummary).Methods(http.MethodGet)

	paymentsAdmin := api.PathPrefix("/payments").Subrouter()
	paymentsAdmin.Use(r.authMiddleware.Authenticate)
	paymentsAdmin.Use(middleware.RequireAdmin)
	paymentsAdmin.HandleFunc("/manual", r.paymentHandler.RecordManualPayment).Methods(http.MethodPost)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)

	// User management (admin)
	admin.HandleFunc("/users", r.authHandler.GetAllUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}/role", r.authHandler.UpdateUserRole).Methods(http.MethodPut)
	admin.HandleFunc("/users/{id}", r.authHandler.DeleteUser).Methods(http.MethodDelete)

	// Catalog management (admin)
	admin.HandleFunc("/services", r.serviceHandler.CreateService).Methods(http.MethodPost)
	admin.HandleFunc("/services/{id}", r.serviceHandler.UpdateService).Methods(http.MethodPut)
	admin.HandleFunc("/services/{id}", r.serviceHandler.DeleteService).Methods(http.MethodDelete)

	// Appointment oversight (admin)
	admin.HandleFunc("/appointments", r.appointmentHandler.GetAllAppointments).Methods(http.MethodGet)

	// Payment oversight (admin)
	admin.HandleFunc("/payments", r.paymentHandler.GetAllPayments).Methods(http.MethodGet)
	admin.HandleFunc("/payments/summary", r.paymentHandler.GetGlobalPaymentSummary).Methods(http.MethodGet)

	// Audit trail (admin)
	admin.HandleFunc("/audit-logs", r.auditLogHandler.GetAllAuditLogs).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs/{id}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	// Add CORS middleware
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
