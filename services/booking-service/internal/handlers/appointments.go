package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/citaplus/citaplus/libs/httpx"
	"github.com/citaplus/citaplus/services/booking-service/internal/model"
)

type AppointmentHandler struct {
	appointments Appointments
	logger       *slog.Logger
}

func NewAppointmentHandler(appointments Appointments, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments, logger: logger}
}

type listAppointmentsResponse struct {
	Items []model.Appointment `json:"items"`
}

// List returns the caller's appointments, newest first.
func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	client := clientID(r)
	if client == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 200 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	items, err := h.appointments.ListByClient(r.Context(), client, limit)
	if err != nil {
		h.logger.Error("list appointments failed", "err", err, "client_id", client)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []model.Appointment{}
	}
	httpx.WriteJSON(w, http.StatusOK, listAppointmentsResponse{Items: items})
}
