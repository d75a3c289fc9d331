package handler

import (
	"net/http"

	"geobus/internal/bookings/service"
	"geobus/pkg/auth"
	apperrors "geobus/pkg/errors"
	httputil "geobus/pkg/http"
	"geobus/pkg/logger"
	"geobus/pkg/middleware"
	"geobus/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// TicketRenderer turns a ticket into a PDF document.
type TicketRenderer interface {
	RenderTicket(ticket model.TicketBundle) ([]byte, error)
}

type BookingHandler struct {
	service  service.BookingService
	auth     *middleware.Authenticator
	renderer TicketRenderer
	log      *logger.Logger
}

func NewBookingHandler(service service.BookingService, authenticator *middleware.Authenticator, renderer TicketRenderer, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service:  service,
		auth:     authenticator,
		renderer: renderer,
		log:      log,
	}
}

func (h *BookingHandler) BookSeats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		h.writeError(w, "BookSeats", apperrors.Unauthorized("Access denied. No token provided."))
		return
	}

	var req model.BookSeatsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "BookSeats", err)
		return
	}

	booking, err := h.service.Reserve(r.Context(), claims.UserID, &req)
	if err != nil {
		h.writeError(w, "BookSeats", err)
		return
	}

	if err := httputil.WriteCreated(w, model.BookSeatsResponse{
		TicketID: booking.TicketID,
		Booking:  booking,
	}); err != nil {
		h.log.Error("failed to write success response", "handler", "BookSeats", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) MyBookings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		h.writeError(w, "MyBookings", apperrors.Unauthorized("Access denied. No token provided."))
		return
	}

	bookings, err := h.service.ListForUser(r.Context(), claims.UserID)
	if err != nil {
		h.writeError(w, "MyBookings", err)
		return
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write success response", "handler", "MyBookings", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) CancelTicket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		h.writeError(w, "CancelTicket", apperrors.Unauthorized("Access denied. No token provided."))
		return
	}

	var req model.CancelTicketRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "CancelTicket", err)
		return
	}

	result, err := h.service.Cancel(r.Context(), claims.UserID, req.TicketID)
	if err != nil {
		h.writeError(w, "CancelTicket", err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "CancelTicket", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) DownloadTicket(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		h.writeError(w, "DownloadTicket", apperrors.Unauthorized("Access denied. No token provided."))
		return
	}

	ticketID := ps.ByName("ticketId")
	ticket, err := h.service.Ticket(r.Context(), claims.UserID, ticketID)
	if err != nil {
		h.writeError(w, "DownloadTicket", err)
		return
	}

	pdf, err := h.renderer.RenderTicket(*ticket)
	if err != nil {
		h.log.Error("failed to render ticket", "ticket_id", ticketID, "error", err)
		h.writeError(w, "DownloadTicket", apperrors.Internal("Failed to generate ticket", err))
		return
	}

	if err := httputil.WritePDF(w, "ticket-"+ticket.Booking.TicketID+".pdf", pdf); err != nil {
		h.log.Error("failed to write pdf response", "handler", "DownloadTicket", "operation", "WritePDF", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/book-seats", h.auth.Require(h.BookSeats))
	router.GET("/api/my-bookings", h.auth.Require(h.MyBookings))
	router.POST("/api/cancel-ticket", h.auth.Require(h.CancelTicket))
	router.GET("/api/download-ticket/:ticketId", h.auth.RequireAllowQuery(h.DownloadTicket))
}
