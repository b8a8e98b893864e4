package organization

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
	ListOrganizations() ([]OrganizationSummary, error)
	GetOrganization(slug string, userID int64) (*OrganizationDetail, error)
	CreateOrganization(userID int64, dto CreateOrganizationDTO) (*Organization, error)
	UpdateOrganization(slug string, userID int64, dto UpdateOrganizationDTO) (*Organization, error)
	UpdateSettings(slug string, userID int64, dto UpdateSettingsDTO) (*Organization, error)
	DeleteOrganization(slug string, userID int64) error
	AddMember(slug string, actorID int64, dto AddMemberDTO) (*Membership, error)
	UpdateMemberRole(slug string, actorID, memberUserID int64, dto UpdateMemberRoleDTO) (*Membership, error)
	RemoveMember(slug string, actorID, memberUserID int64) error
	ListUserOrganizations(userID int64) ([]UserOrganizationSummary, error)
	TimeOverview(slug string, actorID int64, from, to time.Time) ([]MemberTimeOverview, error)
	MemberEntries(slug string, actorID, memberUserID int64, from, to time.Time) ([]MemberEntry, error)
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

func (h *Handler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.Service.ListOrganizations()
	if err != nil {
		h.Logger.Error("ListOrganizations: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"organizations": orgs})
}

func (h *Handler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	detail, err := h.Service.GetOrganization(chi.URLParam(r, "slug"), user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateOrganizationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateOrganization: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	org, err := h.Service.CreateOrganization(user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, org)
}

func (h *Handler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto UpdateOrganizationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	org, err := h.Service.UpdateOrganization(chi.URLParam(r, "slug"), user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, org)
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto UpdateSettingsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	org, err := h.Service.UpdateSettings(chi.URLParam(r, "slug"), user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, org)
}

func (h *Handler) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.Service.DeleteOrganization(chi.URLParam(r, "slug"), user.ID); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto AddMemberDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	membership, err := h.Service.AddMember(chi.URLParam(r, "slug"), user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, membership)
}

func (h *Handler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	memberID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	var dto UpdateMemberRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	membership, err := h.Service.UpdateMemberRole(chi.URLParam(r, "slug"), user.ID, memberID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, membership)
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	memberID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	if err := h.Service.RemoveMember(chi.URLParam(r, "slug"), user.ID, memberID); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListMyOrganizations(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orgs, err := h.Service.ListUserOrganizations(user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"organizations": orgs})
}

// dateRange parses from/to query params, defaulting to the current ISO week.
func dateRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday closes the ISO week
	}
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1-weekday)
	to := from.AddDate(0, 0, 7).Add(-time.Nanosecond)

	if s := r.URL.Query().Get("from"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			return from, to, err
		}
		from = parsed
	}
	if s := r.URL.Query().Get("to"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			return from, to, err
		}
		to = parsed.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return from, to, nil
}

// TimeOverview returns aggregate tracked time per member for a date range.
// Defaults to the current ISO week when from/to are absent.
func (h *Handler) TimeOverview(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	from, to, err := dateRange(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	rows, err := h.Service.TimeOverview(chi.URLParam(r, "slug"), user.ID, from, to)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"from":    from.Format("2006-01-02"),
		"to":      to.Format("2006-01-02"),
		"members": rows,
	})
}

// MemberEntries returns one member's entries for a date range, the
// drill-down behind the time overview.
func (h *Handler) MemberEntries(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	memberID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	from, to, err := dateRange(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	entries, err := h.Service.MemberEntries(chi.URLParam(r, "slug"), user.ID, memberID, from, to)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"from":    from.Format("2006-01-02"),
		"to":      to.Format("2006-01-02"),
		"entries": entries,
	})
}
