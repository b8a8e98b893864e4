package orgrequest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/time-tracking/internal/auth"
	"github.com/frahmantamala/time-tracking/internal/transport"
	"github.com/frahmantamala/time-tracking/pkg/logger"
)

type ServiceAPI interface {
	CreateRequest(ctx context.Context, userID int64, orgSlug string, dto CreateRequestDTO) (*OrgRequest, error)
	RespondToRequest(ctx context.Context, actorID, requestID int64, dto RespondDTO) (*OrgRequest, error)
	ListMyRequests(userID int64) ([]RequestDetail, error)
	ListOrgRequests(slug string, actorID int64, filter ListFilter) ([]RequestDetail, error)
	ListIncoming(userID int64) ([]RequestDetail, error)
	CountIncoming(userID int64) (int64, error)
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

func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateRequest: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Service.CreateRequest(r.Context(), user.ID, chi.URLParam(r, "slug"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, req)
}

func (h *Handler) RespondToRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	requestID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request ID")
		return
	}

	var dto RespondDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Service.RespondToRequest(r.Context(), user.ID, requestID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) ListMyRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	requests, err := h.Service.ListMyRequests(user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"requests": requests})
}

// ListOrgRequests is the admin view of one organization's requests, with
// optional type and status query filters.
func (h *Handler) ListOrgRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var filter ListFilter
	if raw := r.URL.Query().Get("type"); raw != "" {
		t, err := ParseRequestType(raw)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Type = &t
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := ParseRequestStatus(raw)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Status = &st
	}

	requests, err := h.Service.ListOrgRequests(chi.URLParam(r, "slug"), user.ID, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"requests": requests})
}

func (h *Handler) ListIncoming(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	requests, err := h.Service.ListIncoming(user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"requests": requests})
}

// CountIncoming backs the notification badge for admins.
func (h *Handler) CountIncoming(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	count, err := h.Service.CountIncoming(user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"pending_count": count})
}
