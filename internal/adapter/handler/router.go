package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(orders *OrderHandler, admin *AdminHandler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /sessions", orders.NewSession)
	mux.HandleFunc("POST /sessions/{session}/rotate", orders.RotateSession)

	mux.HandleFunc("GET /orders/{session}", orders.GetOrder)
	mux.HandleFunc("POST /orders/{session}/tickets", orders.AddTickets)
	mux.HandleFunc("DELETE /orders/{session}/tickets/{ticket}", orders.RemoveTicket)
	mux.HandleFunc("PUT /orders/{session}/email", orders.UpdateEmail)
	mux.HandleFunc("POST /orders/{session}/checkout", orders.Checkout)
	mux.HandleFunc("POST /orders/{session}/input", orders.BeginInput)
	mux.HandleFunc("POST /orders/{session}/finalize", orders.Finalize)

	mux.HandleFunc("GET /events/{event}/availability", orders.Availability)

	mux.HandleFunc("GET /admin/orders/pending", admin.RequireToken(admin.ListPending))
	mux.HandleFunc("POST /admin/orders/{order}/confirm", admin.RequireToken(admin.Confirm))
	mux.HandleFunc("POST /admin/orders/{order}/refund", admin.RequireToken(admin.Refund))
	mux.HandleFunc("DELETE /admin/orders/{order}", admin.RequireToken(admin.Delete))
	mux.HandleFunc("POST /admin/events/{event}/door-sales", admin.RequireToken(admin.DoorSale))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	return logRequests(logger, mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
