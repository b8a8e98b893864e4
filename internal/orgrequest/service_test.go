package orgrequest_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/time-tracking/internal"
	"github.com/frahmantamala/time-tracking/internal/core/events"
	"github.com/frahmantamala/time-tracking/internal/organization"
	"github.com/frahmantamala/time-tracking/internal/orgrequest"
	"github.com/frahmantamala/time-tracking/internal/rulemode"
)

func TestOrgRequest(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "OrgRequest Suite")
}

// Mock repository for testing
type mockRequestRepository struct {
	requests    map[int64]*orgrequest.OrgRequest
	memberships *mockOrgStore
	nextID      int64
}

func newMockRequestRepository(orgs *mockOrgStore) *mockRequestRepository {
	return &mockRequestRepository{
		requests:    make(map[int64]*orgrequest.OrgRequest),
		memberships: orgs,
		nextID:      1,
	}
}

func (m *mockRequestRepository) Create(req *orgrequest.OrgRequest) error {
	for _, r := range m.requests {
		if r.UserID == req.UserID && r.OrganizationID == req.OrganizationID &&
			r.Type == req.Type && r.Status == orgrequest.StatusPending {
			return orgrequest.ErrDuplicatePending
		}
	}
	req.ID = m.nextID
	m.nextID++
	m.requests[req.ID] = req
	return nil
}

func (m *mockRequestRepository) CreateAccepted(req *orgrequest.OrgRequest, membership *organization.Membership) error {
	req.ID = m.nextID
	m.nextID++
	m.requests[req.ID] = req
	m.memberships.addMembership(membership)
	return nil
}

func (m *mockRequestRepository) GetByID(id int64) (*orgrequest.OrgRequest, error) {
	req, ok := m.requests[id]
	if !ok {
		return nil, orgrequest.ErrRequestNotFound
	}
	return req, nil
}

func (m *mockRequestRepository) ListForUser(userID int64) ([]orgrequest.RequestDetail, error) {
	var out []orgrequest.RequestDetail
	for _, r := range m.requests {
		if r.UserID == userID {
			out = append(out, orgrequest.RequestDetail{
				ID: r.ID, UserID: r.UserID, OrganizationID: r.OrganizationID,
				Type: r.Type, Status: r.Status, CreatedAt: r.CreatedAt,
			})
		}
	}
	return out, nil
}

func (m *mockRequestRepository) ListForOrg(orgID int64, filter orgrequest.ListFilter) ([]orgrequest.RequestDetail, error) {
	var out []orgrequest.RequestDetail
	for _, r := range m.requests {
		if r.OrganizationID != orgID {
			continue
		}
		if filter.Type != nil && r.Type != *filter.Type {
			continue
		}
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		out = append(out, orgrequest.RequestDetail{
			ID: r.ID, UserID: r.UserID, OrganizationID: r.OrganizationID,
			Type: r.Type, Status: r.Status, Message: r.Message, CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

func (m *mockRequestRepository) ListPendingForOrgs(orgIDs []int64) ([]orgrequest.RequestDetail, error) {
	var out []orgrequest.RequestDetail
	for _, r := range m.requests {
		if r.Status != orgrequest.StatusPending {
			continue
		}
		for _, id := range orgIDs {
			if r.OrganizationID == id {
				out = append(out, orgrequest.RequestDetail{
					ID: r.ID, UserID: r.UserID, OrganizationID: r.OrganizationID,
					Type: r.Type, Status: r.Status, CreatedAt: r.CreatedAt,
				})
			}
		}
	}
	return out, nil
}

func (m *mockRequestRepository) CountPendingForOrgs(orgIDs []int64) (int64, error) {
	rows, _ := m.ListPendingForOrgs(orgIDs)
	return int64(len(rows)), nil
}

func (m *mockRequestRepository) Respond(id int64, status orgrequest.RequestStatus, resolvedBy int64, resolvedAt time.Time) error {
	req, ok := m.requests[id]
	if !ok || req.Status != orgrequest.StatusPending {
		return orgrequest.ErrRequestNotFound
	}
	req.Status = status
	req.ResolvedBy = &resolvedBy
	req.ResolvedAt = &resolvedAt
	return nil
}

func (m *mockRequestRepository) RespondAndCreateMembership(req *orgrequest.OrgRequest, resolvedBy int64, membership *organization.Membership) error {
	if err := m.Respond(req.ID, orgrequest.StatusAccepted, resolvedBy, time.Now()); err != nil {
		return err
	}
	m.memberships.addMembership(membership)
	return nil
}

func (m *mockRequestRepository) RespondAndSetInitialOvertime(req *orgrequest.OrgRequest, resolvedBy int64, hours float64) error {
	if err := m.Respond(req.ID, orgrequest.StatusAccepted, resolvedBy, time.Now()); err != nil {
		return err
	}
	mem, err := m.memberships.GetActiveMembership(req.OrganizationID, req.UserID)
	if err != nil {
		return organization.ErrMemberNotFound
	}
	mem.InitialOvertimeHours = hours
	return nil
}

// Mock org store backing the workflow's organization lookups
type mockOrgStore struct {
	orgs        map[string]*organization.Organization
	memberships []*organization.Membership
}

func newMockOrgStore() *mockOrgStore {
	return &mockOrgStore{orgs: make(map[string]*organization.Organization)}
}

func (m *mockOrgStore) addOrg(org *organization.Organization) {
	m.orgs[org.Slug] = org
}

func (m *mockOrgStore) addMembership(mem *organization.Membership) {
	m.memberships = append(m.memberships, mem)
}

func (m *mockOrgStore) GetBySlug(slug string) (*organization.Organization, error) {
	org, ok := m.orgs[slug]
	if !ok {
		return nil, organization.ErrOrgNotFound
	}
	return org, nil
}

func (m *mockOrgStore) GetByID(id int64) (*organization.Organization, error) {
	for _, org := range m.orgs {
		if org.ID == id {
			return org, nil
		}
	}
	return nil, organization.ErrOrgNotFound
}

func (m *mockOrgStore) GetMembership(orgID, userID int64) (*organization.Membership, error) {
	for _, mem := range m.memberships {
		if mem.OrganizationID == orgID && mem.UserID == userID {
			return mem, nil
		}
	}
	return nil, organization.ErrMemberNotFound
}

func (m *mockOrgStore) GetActiveMembership(orgID, userID int64) (*organization.Membership, error) {
	mem, err := m.GetMembership(orgID, userID)
	if err != nil || !mem.IsActive {
		return nil, organization.ErrMemberNotFound
	}
	return mem, nil
}

func (m *mockOrgStore) AdminOrgIDs(userID int64) ([]int64, error) {
	var ids []int64
	for _, mem := range m.memberships {
		if mem.UserID == userID && mem.IsActive && mem.Role.AtLeast(organization.RoleAdmin) {
			ids = append(ids, mem.OrganizationID)
		}
	}
	return ids, nil
}

var _ = Describe("OrgRequest Service", func() {
	var (
		repo    *mockRequestRepository
		orgs    *mockOrgStore
		service *orgrequest.Service
		ctx     context.Context
		org     *organization.Organization
	)

	const (
		adminID  = int64(1)
		memberID = int64(2)
		userID   = int64(3)
	)

	BeforeEach(func() {
		ctx = context.Background()
		lg := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		orgs = newMockOrgStore()
		repo = newMockRequestRepository(orgs)
		service = orgrequest.NewService(repo, orgs, events.NewEventBus(lg), lg)

		org = &organization.Organization{
			ID:                     10,
			Name:                   "Acme",
			Slug:                   "acme",
			IsActive:               true,
			JoinPolicy:             rulemode.RequiresApproval,
			EditPastEntriesMode:    rulemode.RequiresApproval,
			EditPauseMode:          rulemode.RequiresApproval,
			InitialOvertimeMode:    rulemode.RequiresApproval,
			WorkScheduleChangeMode: rulemode.Allowed,
		}
		orgs.addOrg(org)
		orgs.addMembership(&organization.Membership{
			ID: 1, UserID: adminID, OrganizationID: org.ID,
			Role: organization.RoleAdmin, IsActive: true,
		})
		orgs.addMembership(&organization.Membership{
			ID: 2, UserID: memberID, OrganizationID: org.ID,
			Role: organization.RoleMember, IsActive: true,
		})
	})

	Describe("CreateRequest for joining", func() {
		It("creates a pending request when the join policy requires approval", func() {
			req, err := service.CreateRequest(ctx, userID, "acme", orgrequest.CreateRequestDTO{
				Type: "join_organization",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Status).To(Equal(orgrequest.StatusPending))
		})

		It("joins immediately when the policy is allowed, storing an accepted request", func() {
			org.JoinPolicy = rulemode.Allowed

			req, err := service.CreateRequest(ctx, userID, "acme", orgrequest.CreateRequestDTO{
				Type: "join_organization",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Status).To(Equal(orgrequest.StatusAccepted))
			Expect(req.ResolvedAt).NotTo(BeNil())

			mem, err := orgs.GetActiveMembership(org.ID, userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(mem.Role).To(Equal(organization.RoleMember))
		})

		It("refuses when the policy is disabled", func() {
			org.JoinPolicy = rulemode.Disabled

			_, err := service.CreateRequest(ctx, userID, "acme", orgrequest.CreateRequestDTO{
				Type: "join_organization",
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeFeatureDisabled))
		})

		It("refuses existing members", func() {
			_, err := service.CreateRequest(ctx, memberID, "acme", orgrequest.CreateRequestDTO{
				Type: "join_organization",
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeAlreadyMember))
		})

		It("stores the requester's message on the request", func() {
			note := "worked here last summer"
			req, err := service.CreateRequest(ctx, userID, "acme", orgrequest.CreateRequestDTO{
				Type:    "join_organization",
				Message: &note,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Message).NotTo(BeNil())
			Expect(*req.Message).To(Equal("worked here last summer"))

			stored, err := repo.GetByID(req.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*stored.Message).To(Equal("worked here last summer"))
		})

		It("allows at most one pending join request per organization", func() {
			_, err := service.CreateRequest(ctx, userID, "acme", orgrequest.CreateRequestDTO{Type: "join_organization"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CreateRequest(ctx, userID, "acme", orgrequest.CreateRequestDTO{Type: "join_organization"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeDuplicatePending))
		})
	})

	Describe("CreateRequest for gated member actions", func() {
		overtimePayload := func(hours float64) json.RawMessage {
			raw, _ := json.Marshal(orgrequest.SetInitialOvertimePayload{Hours: hours})
			return raw
		}

		It("files an overtime request for a member", func() {
			req, err := service.CreateRequest(ctx, memberID, "acme", orgrequest.CreateRequestDTO{
				Type:        "set_initial_overtime",
				RequestData: overtimePayload(12.5),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Status).To(Equal(orgrequest.StatusPending))
			Expect(req.Type).To(Equal(orgrequest.TypeSetInitialOvertime))
		})

		It("refuses non-members", func() {
			_, err := service.CreateRequest(ctx, userID, "acme", orgrequest.CreateRequestDTO{
				Type:        "set_initial_overtime",
				RequestData: overtimePayload(1),
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeMemberNotFound))
		})

		It("rejects a request when the action is allowed directly", func() {
			org.InitialOvertimeMode = rulemode.Allowed

			_, err := service.CreateRequest(ctx, memberID, "acme", orgrequest.CreateRequestDTO{
				Type:        "set_initial_overtime",
				RequestData: overtimePayload(1),
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeDirectActionAllowed))
		})

		It("rejects a request when the action is disabled", func() {
			org.EditPauseMode = rulemode.Disabled

			raw, _ := json.Marshal(orgrequest.EditPausePayload{EntryID: 5, NewPauseMinutes: 15})
			_, err := service.CreateRequest(ctx, memberID, "acme", orgrequest.CreateRequestDTO{
				Type:        "edit_pause",
				RequestData: raw,
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeFeatureDisabled))
		})

		It("rejects a malformed payload up front", func() {
			_, err := service.CreateRequest(ctx, memberID, "acme", orgrequest.CreateRequestDTO{
				Type:        "edit_past_entry",
				RequestData: json.RawMessage(`{"entry_id": 0}`),
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidPayload))
		})

		It("rejects an edit request whose end precedes its start", func() {
			raw, _ := json.Marshal(orgrequest.EditPastEntryPayload{
				EntryID:      5,
				NewStartTime: "2026-08-10T17:00:00Z",
				NewEndTime:   "2026-08-10T09:00:00Z",
			})
			_, err := service.CreateRequest(ctx, memberID, "acme", orgrequest.CreateRequestDTO{
				Type:        "edit_past_entry",
				RequestData: raw,
			})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("RespondToRequest", func() {
		accept := func() orgrequest.RespondDTO {
			v := true
			return orgrequest.RespondDTO{Accept: &v}
		}
		decline := func() orgrequest.RespondDTO {
			v := false
			return orgrequest.RespondDTO{Accept: &v}
		}

		It("creates the membership when accepting a join request", func() {
			req, err := service.CreateRequest(ctx, userID, "acme", orgrequest.CreateRequestDTO{Type: "join_organization"})
			Expect(err).NotTo(HaveOccurred())

			resolved, err := service.RespondToRequest(ctx, adminID, req.ID, accept())
			Expect(err).NotTo(HaveOccurred())
			Expect(resolved.Status).To(Equal(orgrequest.StatusAccepted))

			mem, err := orgs.GetActiveMembership(org.ID, userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(mem.Role).To(Equal(organization.RoleMember))
		})

		It("declining a join request grants nothing", func() {
			req, err := service.CreateRequest(ctx, userID, "acme", orgrequest.CreateRequestDTO{Type: "join_organization"})
			Expect(err).NotTo(HaveOccurred())

			resolved, err := service.RespondToRequest(ctx, adminID, req.ID, decline())
			Expect(err).NotTo(HaveOccurred())
			Expect(resolved.Status).To(Equal(orgrequest.StatusDeclined))

			_, err = orgs.GetActiveMembership(org.ID, userID)
			Expect(err).To(HaveOccurred())
		})

		It("writes the hours onto the membership when accepting an overtime request", func() {
			raw, _ := json.Marshal(orgrequest.SetInitialOvertimePayload{Hours: -7.25})
			req, err := service.CreateRequest(ctx, memberID, "acme", orgrequest.CreateRequestDTO{
				Type:        "set_initial_overtime",
				RequestData: raw,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.RespondToRequest(ctx, adminID, req.ID, accept())
			Expect(err).NotTo(HaveOccurred())

			mem, err := orgs.GetActiveMembership(org.ID, memberID)
			Expect(err).NotTo(HaveOccurred())
			Expect(mem.InitialOvertimeHours).To(Equal(-7.25))
		})

		It("fails loudly when a stored overtime payload is malformed", func() {
			req := &orgrequest.OrgRequest{
				UserID:         memberID,
				OrganizationID: org.ID,
				Type:           orgrequest.TypeSetInitialOvertime,
				Status:         orgrequest.StatusPending,
				RequestData:    json.RawMessage(`"eight"`),
				CreatedAt:      time.Now(),
			}
			Expect(repo.Create(req)).To(Succeed())

			_, err := service.RespondToRequest(ctx, adminID, req.ID, accept())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidPayload))

			stored, _ := repo.GetByID(req.ID)
			Expect(stored.Status).To(Equal(orgrequest.StatusPending), "a failed accept leaves the request pending")
		})

		It("accepting an edit request records approval without touching entries", func() {
			raw, _ := json.Marshal(orgrequest.EditPausePayload{EntryID: 5, NewPauseMinutes: 20})
			req, err := service.CreateRequest(ctx, memberID, "acme", orgrequest.CreateRequestDTO{
				Type:        "edit_pause",
				RequestData: raw,
			})
			Expect(err).NotTo(HaveOccurred())

			resolved, err := service.RespondToRequest(ctx, adminID, req.ID, accept())
			Expect(err).NotTo(HaveOccurred())
			Expect(resolved.Status).To(Equal(orgrequest.StatusAccepted))
		})

		It("refuses plain members", func() {
			req, err := service.CreateRequest(ctx, userID, "acme", orgrequest.CreateRequestDTO{Type: "join_organization"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.RespondToRequest(ctx, memberID, req.ID, accept())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInsufficientRole))
		})

		It("refuses to resolve a request twice", func() {
			req, err := service.CreateRequest(ctx, userID, "acme", orgrequest.CreateRequestDTO{Type: "join_organization"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.RespondToRequest(ctx, adminID, req.ID, decline())
			Expect(err).NotTo(HaveOccurred())

			_, err = service.RespondToRequest(ctx, adminID, req.ID, accept())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeAlreadyResolved))
		})

		It("lets the user file a fresh request after a decline", func() {
			req, err := service.CreateRequest(ctx, userID, "acme", orgrequest.CreateRequestDTO{Type: "join_organization"})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.RespondToRequest(ctx, adminID, req.ID, decline())
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CreateRequest(ctx, userID, "acme", orgrequest.CreateRequestDTO{Type: "join_organization"})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("ListOrgRequests", func() {
		BeforeEach(func() {
			_, err := service.CreateRequest(ctx, userID, "acme", orgrequest.CreateRequestDTO{Type: "join_organization"})
			Expect(err).NotTo(HaveOccurred())

			raw, _ := json.Marshal(orgrequest.SetInitialOvertimePayload{Hours: 3})
			_, err = service.CreateRequest(ctx, memberID, "acme", orgrequest.CreateRequestDTO{
				Type:        "set_initial_overtime",
				RequestData: raw,
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("lets admins list the organization's requests", func() {
			out, err := service.ListOrgRequests("acme", adminID, orgrequest.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HaveLen(2))
		})

		It("narrows by type", func() {
			reqType := orgrequest.TypeJoinOrganization
			out, err := service.ListOrgRequests("acme", adminID, orgrequest.ListFilter{Type: &reqType})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HaveLen(1))
			Expect(out[0].Type).To(Equal(orgrequest.TypeJoinOrganization))
		})

		It("refuses plain members", func() {
			_, err := service.ListOrgRequests("acme", memberID, orgrequest.ListFilter{})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInsufficientRole))
		})
	})

	Describe("ListIncoming", func() {
		It("returns pending requests only for organizations the user administers", func() {
			_, err := service.CreateRequest(ctx, userID, "acme", orgrequest.CreateRequestDTO{Type: "join_organization"})
			Expect(err).NotTo(HaveOccurred())

			incoming, err := service.ListIncoming(adminID)
			Expect(err).NotTo(HaveOccurred())
			Expect(incoming).To(HaveLen(1))

			none, err := service.ListIncoming(memberID)
			Expect(err).NotTo(HaveOccurred())
			Expect(none).To(BeEmpty())

			count, err := service.CountIncoming(adminID)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})
	})
})
