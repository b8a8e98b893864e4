package absence

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/time-tracking/internal/auth"
	"github.com/frahmantamala/time-tracking/internal/transport"
	"github.com/frahmantamala/time-tracking/pkg/logger"
)

type ServiceAPI interface {
	ListAbsences(slug string, userID int64, filter ListFilter) ([]AbsenceDetail, error)
	CreateAbsence(slug string, userID int64, dto CreateAbsenceDTO) (*AbsenceDay, error)
	CreateForMember(slug string, actorID int64, dto AdminCreateAbsenceDTO) (*AbsenceDay, error)
	DeleteAbsence(slug string, userID, absenceID int64) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) ListAbsences(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var filter ListFilter
	if s := r.URL.Query().Get("user_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		filter.UserID = &id
	}
	if s := r.URL.Query().Get("from"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
			return
		}
		filter.From = &parsed
	}
	if s := r.URL.Query().Get("to"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
			return
		}
		filter.To = &parsed
	}

	days, err := h.Service.ListAbsences(chi.URLParam(r, "slug"), user.ID, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"absences": days})
}

func (h *Handler) CreateAbsence(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateAbsenceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	day, err := h.Service.CreateAbsence(chi.URLParam(r, "slug"), user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, day)
}

func (h *Handler) CreateForMember(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto AdminCreateAbsenceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	day, err := h.Service.CreateForMember(chi.URLParam(r, "slug"), user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, day)
}

func (h *Handler) DeleteAbsence(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	absenceID, err := strconv.ParseInt(chi.URLParam(r, "absenceID"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid absence ID")
		return
	}

	if err := h.Service.DeleteAbsence(chi.URLParam(r, "slug"), user.ID, absenceID); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
