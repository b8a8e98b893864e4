package schedule

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/time-tracking/internal/auth"
	"github.com/frahmantamala/time-tracking/internal/organization"
	"github.com/frahmantamala/time-tracking/internal/transport"
	"github.com/frahmantamala/time-tracking/pkg/logger"
)

type ServiceAPI interface {
	ListPeriods(slug string, actorID, targetUserID int64) ([]WorkSchedulePeriod, error)
	CreatePeriod(slug string, actorID, targetUserID int64, dto CreatePeriodDTO) (*WorkSchedulePeriod, error)
	UpdatePeriod(slug string, actorID, periodID int64, dto UpdatePeriodDTO) (*WorkSchedulePeriod, error)
	DeletePeriod(slug string, actorID, periodID int64) error
	EffectiveAt(slug string, actorID, targetUserID int64, day time.Time) (*EffectiveSchedule, error)
	UpdateDefaults(slug string, actorID, targetUserID int64, dto UpdateDefaultsDTO) (*organization.Membership, error)
	SetInitialOvertime(slug string, actorID, targetUserID int64, dto SetInitialOvertimeDTO) (*organization.Membership, error)
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

// targetUser resolves the optional user_id query parameter; absent means the
// caller themselves.
func targetUser(r *http.Request, selfID int64) (int64, error) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		return selfID, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	target, err := targetUser(r, user.ID)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	periods, err := h.Service.ListPeriods(chi.URLParam(r, "slug"), user.ID, target)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"periods": periods})
}

func (h *Handler) CreatePeriod(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	target, err := targetUser(r, user.ID)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	var dto CreatePeriodDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreatePeriod: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	period, err := h.Service.CreatePeriod(chi.URLParam(r, "slug"), user.ID, target, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, period)
}

func (h *Handler) UpdatePeriod(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	periodID, err := strconv.ParseInt(chi.URLParam(r, "periodID"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid period ID")
		return
	}

	var dto UpdatePeriodDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	period, err := h.Service.UpdatePeriod(chi.URLParam(r, "slug"), user.ID, periodID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, period)
}

func (h *Handler) DeletePeriod(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	periodID, err := strconv.ParseInt(chi.URLParam(r, "periodID"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid period ID")
		return
	}

	if err := h.Service.DeletePeriod(chi.URLParam(r, "slug"), user.ID, periodID); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateDefaults patches the membership's default schedule.
func (h *Handler) UpdateDefaults(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	target, err := targetUser(r, user.ID)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	var dto UpdateDefaultsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("UpdateDefaults: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	membership, err := h.Service.UpdateDefaults(chi.URLParam(r, "slug"), user.ID, target, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, membership)
}

// SetInitialOvertime sets the member's carried-in overtime balance.
func (h *Handler) SetInitialOvertime(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	target, err := targetUser(r, user.ID)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	var dto SetInitialOvertimeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	membership, err := h.Service.SetInitialOvertime(chi.URLParam(r, "slug"), user.ID, target, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, membership)
}

// Effective returns the schedule in force on a date (today by default).
func (h *Handler) Effective(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	target, err := targetUser(r, user.ID)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	day := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		day, err = time.Parse(dateLayout, raw)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
	}

	effective, err := h.Service.EffectiveAt(chi.URLParam(r, "slug"), user.ID, target, day)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, effective)
}
