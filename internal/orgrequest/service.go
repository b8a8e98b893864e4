package orgrequest

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/frahmantamala/time-tracking/internal"
	"github.com/frahmantamala/time-tracking/internal/core/events"
	"github.com/frahmantamala/time-tracking/internal/organization"
	"github.com/frahmantamala/time-tracking/internal/rulemode"
)

// Repository defines data access for approval requests. The multi-write
// methods run the status change and its side effect in one transaction.
type Repository interface {
	Create(req *OrgRequest) error
	// CreateAccepted inserts an already-accepted join request together with
	// the membership it grants, for organizations that allow joining
	// directly.
	CreateAccepted(req *OrgRequest, membership *organization.Membership) error
	GetByID(id int64) (*OrgRequest, error)
	ListForUser(userID int64) ([]RequestDetail, error)
	ListForOrg(orgID int64, filter ListFilter) ([]RequestDetail, error)
	ListPendingForOrgs(orgIDs []int64) ([]RequestDetail, error)
	CountPendingForOrgs(orgIDs []int64) (int64, error)
	// Respond flips the status of a pending request; it reports
	// ErrRequestNotFound when the request was already resolved.
	Respond(id int64, status RequestStatus, resolvedBy int64, resolvedAt time.Time) error
	// RespondAndCreateMembership accepts a join request and creates the
	// membership atomically.
	RespondAndCreateMembership(req *OrgRequest, resolvedBy int64, membership *organization.Membership) error
	// RespondAndSetInitialOvertime accepts an overtime request and writes the
	// hours onto the requester's membership atomically.
	RespondAndSetInitialOvertime(req *OrgRequest, resolvedBy int64, hours float64) error
}

// OrgStore is the slice of the organization repository the workflow needs.
type OrgStore interface {
	GetBySlug(slug string) (*organization.Organization, error)
	GetByID(id int64) (*organization.Organization, error)
	GetMembership(orgID, userID int64) (*organization.Membership, error)
	GetActiveMembership(orgID, userID int64) (*organization.Membership, error)
	AdminOrgIDs(userID int64) ([]int64, error)
}

type Service struct {
	repo   Repository
	orgs   OrgStore
	bus    *events.EventBus
	logger *slog.Logger
}

func NewService(repo Repository, orgs OrgStore, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		orgs:   orgs,
		bus:    bus,
		logger: logger,
	}
}

// modeFor maps a request type to the organization dimension that governs it.
func modeFor(org *organization.Organization, t RequestType) rulemode.RuleMode {
	switch t {
	case TypeJoinOrganization:
		return org.JoinPolicy
	case TypeEditPastEntry:
		return org.EditPastEntriesMode
	case TypeEditPause:
		return org.EditPauseMode
	case TypeSetInitialOvertime:
		return org.InitialOvertimeMode
	}
	return rulemode.Disabled
}

func featureName(t RequestType) string {
	switch t {
	case TypeJoinOrganization:
		return "Joining"
	case TypeEditPastEntry:
		return "Editing past entries"
	case TypeEditPause:
		return "Editing pauses"
	case TypeSetInitialOvertime:
		return "Setting initial overtime"
	}
	return "This action"
}

// CreateRequest files an approval request against the organization. Join
// requests short-circuit when the join policy is allowed: the user becomes a
// member immediately and the request is stored already accepted.
func (s *Service) CreateRequest(ctx context.Context, userID int64, orgSlug string, dto CreateRequestDTO) (*OrgRequest, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeInvalidPayload)
	}
	reqType, _ := ParseRequestType(dto.Type)

	org, err := s.orgs.GetBySlug(orgSlug)
	if err != nil {
		return nil, internal.NewNotFoundError("organization not found", internal.ErrCodeOrgNotFound)
	}

	mode := modeFor(org, reqType)

	if reqType == TypeJoinOrganization {
		return s.createJoinRequest(ctx, userID, org, mode, dto.Message)
	}

	// Everything except joining requires existing membership.
	if _, err := s.orgs.GetActiveMembership(org.ID, userID); err != nil {
		return nil, internal.NewForbiddenError("you are not a member of this organization", internal.ErrCodeMemberNotFound)
	}
	if err := rulemode.CheckRequestable(mode, featureName(reqType)); err != nil {
		return nil, err
	}

	req := &OrgRequest{
		UserID:         userID,
		OrganizationID: org.ID,
		Type:           reqType,
		Status:         StatusPending,
		Message:        dto.Message,
		RequestData:    dto.RequestData,
		CreatedAt:      time.Now(),
	}
	if err := s.repo.Create(req); err != nil {
		if err == ErrDuplicatePending {
			return nil, internal.NewConflictError(
				"you already have a pending request of this type for this organization",
				internal.ErrCodeDuplicatePending)
		}
		s.logger.Error("failed to create request", "error", err, "user_id", userID, "organization_id", org.ID)
		return nil, err
	}

	s.logger.Info("request created",
		"request_id", req.ID,
		"type", req.Type,
		"user_id", userID,
		"organization_id", org.ID)

	s.bus.Publish(ctx, events.NewRequestCreatedEvent(req.ID, userID, org.ID, string(req.Type)))
	return req, nil
}

func (s *Service) createJoinRequest(ctx context.Context, userID int64, org *organization.Organization, mode rulemode.RuleMode, message *string) (*OrgRequest, error) {
	if existing, err := s.orgs.GetMembership(org.ID, userID); err == nil && existing != nil && existing.IsActive {
		return nil, internal.NewConflictError("you are already a member of this organization", internal.ErrCodeAlreadyMember)
	}

	switch rulemode.Evaluate(mode) {
	case rulemode.Deny:
		return nil, internal.NewForbiddenError("this organization does not accept new members", internal.ErrCodeFeatureDisabled)

	case rulemode.Allow:
		// Open organization: join immediately, record the request as
		// accepted for the audit trail.
		now := time.Now()
		req := &OrgRequest{
			UserID:         userID,
			OrganizationID: org.ID,
			Type:           TypeJoinOrganization,
			Status:         StatusAccepted,
			Message:        message,
			CreatedAt:      now,
			ResolvedAt:     &now,
		}
		membership := &organization.Membership{
			UserID:         userID,
			OrganizationID: org.ID,
			Role:           organization.RoleMember,
			IsActive:       true,
			JoinedAt:       now,
		}
		if err := s.repo.CreateAccepted(req, membership); err != nil {
			s.logger.Error("failed to auto-join", "error", err, "user_id", userID, "organization_id", org.ID)
			return nil, err
		}
		s.logger.Info("user joined open organization",
			"user_id", userID,
			"organization_id", org.ID,
			"request_id", req.ID)
		return req, nil

	default:
		req := &OrgRequest{
			UserID:         userID,
			OrganizationID: org.ID,
			Type:           TypeJoinOrganization,
			Status:         StatusPending,
			Message:        message,
			CreatedAt:      time.Now(),
		}
		if err := s.repo.Create(req); err != nil {
			if err == ErrDuplicatePending {
				return nil, internal.NewConflictError(
					"you already have a pending join request for this organization",
					internal.ErrCodeDuplicatePending)
			}
			s.logger.Error("failed to create join request", "error", err, "user_id", userID, "organization_id", org.ID)
			return nil, err
		}
		s.logger.Info("join request created",
			"request_id", req.ID,
			"user_id", userID,
			"organization_id", org.ID)
		s.bus.Publish(ctx, events.NewRequestCreatedEvent(req.ID, userID, org.ID, string(TypeJoinOrganization)))
		return req, nil
	}
}

// RespondToRequest accepts or declines a pending request. Accepting applies
// the request's side effect: join requests create the membership, overtime
// requests write the hours onto the membership. Accepted edit requests only
// record the approval; the user performs the edit afterwards.
func (s *Service) RespondToRequest(ctx context.Context, actorID, requestID int64, dto RespondDTO) (*OrgRequest, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	req, err := s.repo.GetByID(requestID)
	if err != nil {
		return nil, internal.NewNotFoundError("request not found", internal.ErrCodeRequestNotFound)
	}
	if req.Status != StatusPending {
		return nil, internal.NewInvalidStateError("this request has already been resolved", internal.ErrCodeAlreadyResolved)
	}

	actor, err := s.orgs.GetActiveMembership(req.OrganizationID, actorID)
	if err != nil || !actor.Role.AtLeast(organization.RoleAdmin) {
		return nil, internal.NewForbiddenError("only organization admins can respond to requests", internal.ErrCodeInsufficientRole)
	}

	now := time.Now()

	if !*dto.Accept {
		if err := s.repo.Respond(req.ID, StatusDeclined, actorID, now); err != nil {
			return nil, s.mapRespondError(err)
		}
		req.Status = StatusDeclined
	} else {
		if err := s.applyAccept(req, actorID); err != nil {
			return nil, err
		}
		req.Status = StatusAccepted
	}
	req.ResolvedAt = &now
	req.ResolvedBy = &actorID

	s.logger.Info("request resolved",
		"request_id", req.ID,
		"type", req.Type,
		"status", req.Status,
		"resolved_by", actorID)

	s.bus.Publish(ctx, events.NewRequestRespondedEvent(
		req.ID, req.UserID, req.OrganizationID, string(req.Type), string(req.Status), actorID))

	return req, nil
}

func (s *Service) applyAccept(req *OrgRequest, actorID int64) error {
	switch req.Type {
	case TypeJoinOrganization:
		membership := &organization.Membership{
			UserID:         req.UserID,
			OrganizationID: req.OrganizationID,
			Role:           organization.RoleMember,
			IsActive:       true,
			JoinedAt:       time.Now(),
		}
		if err := s.repo.RespondAndCreateMembership(req, actorID, membership); err != nil {
			return s.mapRespondError(err)
		}
		return nil

	case TypeSetInitialOvertime:
		var payload SetInitialOvertimePayload
		if err := json.Unmarshal(req.RequestData, &payload); err != nil {
			s.logger.Error("malformed overtime payload on stored request",
				"request_id", req.ID, "error", err)
			return internal.NewValidationError(
				"the request payload is malformed and cannot be applied",
				internal.ErrCodeInvalidPayload)
		}
		if err := s.repo.RespondAndSetInitialOvertime(req, actorID, payload.Hours); err != nil {
			return s.mapRespondError(err)
		}
		return nil

	default:
		// Edit approvals grant permission only; the entry itself is changed
		// by the user through the time-tracking endpoints.
		if err := s.repo.Respond(req.ID, StatusAccepted, actorID, time.Now()); err != nil {
			return s.mapRespondError(err)
		}
		return nil
	}
}

func (s *Service) mapRespondError(err error) error {
	if err == ErrRequestNotFound {
		// The row was resolved between our read and the guarded update.
		return internal.NewInvalidStateError("this request has already been resolved", internal.ErrCodeAlreadyResolved)
	}
	s.logger.Error("failed to resolve request", "error", err)
	return err
}

// ListMyRequests returns all requests the user has filed, newest first.
func (s *Service) ListMyRequests(userID int64) ([]RequestDetail, error) {
	requests, err := s.repo.ListForUser(userID)
	if err != nil {
		s.logger.Error("failed to list user requests", "error", err, "user_id", userID)
		return nil, err
	}
	return requests, nil
}

// ListOrgRequests returns one organization's requests, newest first,
// optionally narrowed by type and status. Admin or Owner only.
func (s *Service) ListOrgRequests(slug string, actorID int64, filter ListFilter) ([]RequestDetail, error) {
	org, err := s.orgs.GetBySlug(slug)
	if err != nil {
		return nil, internal.NewNotFoundError("organization not found", internal.ErrCodeOrgNotFound)
	}

	actor, err := s.orgs.GetActiveMembership(org.ID, actorID)
	if err != nil || !actor.Role.AtLeast(organization.RoleAdmin) {
		return nil, internal.NewForbiddenError("only organization admins can list requests", internal.ErrCodeInsufficientRole)
	}

	requests, err := s.repo.ListForOrg(org.ID, filter)
	if err != nil {
		s.logger.Error("failed to list organization requests", "error", err, "organization_id", org.ID)
		return nil, err
	}
	return requests, nil
}

// ListIncoming returns pending requests across every organization the user
// administers.
func (s *Service) ListIncoming(userID int64) ([]RequestDetail, error) {
	orgIDs, err := s.orgs.AdminOrgIDs(userID)
	if err != nil {
		s.logger.Error("failed to resolve admin organizations", "error", err, "user_id", userID)
		return nil, err
	}
	if len(orgIDs) == 0 {
		return []RequestDetail{}, nil
	}
	requests, err := s.repo.ListPendingForOrgs(orgIDs)
	if err != nil {
		s.logger.Error("failed to list incoming requests", "error", err, "user_id", userID)
		return nil, err
	}
	return requests, nil
}

// CountIncoming returns the pending request count for the admin's badge.
func (s *Service) CountIncoming(userID int64) (int64, error) {
	orgIDs, err := s.orgs.AdminOrgIDs(userID)
	if err != nil {
		return 0, err
	}
	if len(orgIDs) == 0 {
		return 0, nil
	}
	return s.repo.CountPendingForOrgs(orgIDs)
}
