package handler

import (
	"net/http"

	"geobus/internal/buses/service"
	httputil "geobus/pkg/http"
	"geobus/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type BusHandler struct {
	service service.BusService
	log     *logger.Logger
}

func NewBusHandler(service service.BusService, log *logger.Logger) *BusHandler {
	return &BusHandler{
		service: service,
		log:     log,
	}
}

func (h *BusHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	buses, err := h.service.Search(r.Context(), query.Get("from"), query.Get("to"), query.Get("date"))
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	if err := httputil.WriteSuccess(w, buses); err != nil {
		h.log.Error("failed to write success response", "handler", "Search", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BusHandler) AvailableRoutes(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	routes, err := h.service.AvailableRoutes(r.Context())
	if err != nil {
		h.writeError(w, "AvailableRoutes", err)
		return
	}

	if err := httputil.WriteSuccess(w, routes); err != nil {
		h.log.Error("failed to write success response", "handler", "AvailableRoutes", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BusHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	bus, err := h.service.GetByID(r.Context(), ps.ByName("id"), r.URL.Query().Get("date"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, bus); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BusHandler) InitializeSeats(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	bus, err := h.service.InitializeSeats(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "InitializeSeats", err)
		return
	}

	if err := httputil.WriteSuccess(w, map[string]any{
		"message": "Bus seats initialized",
		"bus":     bus,
	}); err != nil {
		h.log.Error("failed to write success response", "handler", "InitializeSeats", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BusHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BusHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/search-buses", h.Search)
	router.GET("/api/available-routes", h.AvailableRoutes)
	router.GET("/api/bus/:id", h.GetByID)
	router.POST("/api/initialize-bus/:id", h.InitializeSeats)
}
