package organization_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/time-tracking/internal"
	"github.com/frahmantamala/time-tracking/internal/organization"
	"github.com/frahmantamala/time-tracking/internal/rulemode"
)

func TestOrganization(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Organization Suite")
}

// Mock repository for testing
type mockOrgRepository struct {
	orgs        map[int64]*organization.Organization
	memberships map[int64]*organization.Membership
	nextOrgID   int64
	nextMemID   int64
	createError error
}

func newMockOrgRepository() *mockOrgRepository {
	return &mockOrgRepository{
		orgs:        make(map[int64]*organization.Organization),
		memberships: make(map[int64]*organization.Membership),
		nextOrgID:   1,
		nextMemID:   1,
	}
}

func (m *mockOrgRepository) ListActive() ([]*organization.Organization, error) {
	var out []*organization.Organization
	for _, o := range m.orgs {
		if o.IsActive {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrgRepository) GetBySlug(slug string) (*organization.Organization, error) {
	for _, o := range m.orgs {
		if o.Slug == slug && o.IsActive {
			return o, nil
		}
	}
	return nil, organization.ErrOrgNotFound
}

func (m *mockOrgRepository) GetByID(id int64) (*organization.Organization, error) {
	o, ok := m.orgs[id]
	if !ok || !o.IsActive {
		return nil, organization.ErrOrgNotFound
	}
	return o, nil
}

func (m *mockOrgRepository) Create(org *organization.Organization, ownerUserID int64) error {
	if m.createError != nil {
		return m.createError
	}
	org.ID = m.nextOrgID
	m.nextOrgID++
	m.orgs[org.ID] = org

	membership := &organization.Membership{
		UserID:         ownerUserID,
		OrganizationID: org.ID,
		Role:           organization.RoleOwner,
		IsActive:       true,
		JoinedAt:       time.Now(),
	}
	return m.CreateMembership(membership)
}

func (m *mockOrgRepository) Update(org *organization.Organization) error {
	m.orgs[org.ID] = org
	return nil
}

func (m *mockOrgRepository) Deactivate(orgID int64) error {
	if o, ok := m.orgs[orgID]; ok {
		o.IsActive = false
	}
	for _, mem := range m.memberships {
		if mem.OrganizationID == orgID {
			mem.IsActive = false
		}
	}
	return nil
}

func (m *mockOrgRepository) CountActiveMembers(orgID int64) (int64, error) {
	var count int64
	for _, mem := range m.memberships {
		if mem.OrganizationID == orgID && mem.IsActive {
			count++
		}
	}
	return count, nil
}

func (m *mockOrgRepository) ListMembers(orgID int64) ([]organization.MemberDetail, error) {
	var out []organization.MemberDetail
	for _, mem := range m.memberships {
		if mem.OrganizationID == orgID && mem.IsActive {
			out = append(out, organization.MemberDetail{
				UserID:   mem.UserID,
				Role:     mem.Role,
				JoinedAt: mem.JoinedAt,
			})
		}
	}
	return out, nil
}

func (m *mockOrgRepository) GetMembership(orgID, userID int64) (*organization.Membership, error) {
	for _, mem := range m.memberships {
		if mem.OrganizationID == orgID && mem.UserID == userID {
			return mem, nil
		}
	}
	return nil, organization.ErrMemberNotFound
}

func (m *mockOrgRepository) GetActiveMembership(orgID, userID int64) (*organization.Membership, error) {
	mem, err := m.GetMembership(orgID, userID)
	if err != nil || !mem.IsActive {
		return nil, organization.ErrMemberNotFound
	}
	return mem, nil
}

func (m *mockOrgRepository) CreateMembership(mem *organization.Membership) error {
	mem.ID = m.nextMemID
	m.nextMemID++
	m.memberships[mem.ID] = mem
	return nil
}

func (m *mockOrgRepository) SaveMembership(mem *organization.Membership) error {
	m.memberships[mem.ID] = mem
	return nil
}

func (m *mockOrgRepository) ListUserMemberships(userID int64) ([]*organization.Membership, error) {
	var out []*organization.Membership
	for _, mem := range m.memberships {
		if mem.UserID == userID && mem.IsActive {
			out = append(out, mem)
		}
	}
	return out, nil
}

type mockStatsStore struct {
	stats   map[int64]organization.EntryStats
	entries map[int64][]organization.MemberEntry
}

func (m *mockStatsStore) StatsForMember(userID, orgID int64, from, to time.Time) (organization.EntryStats, error) {
	return m.stats[userID], nil
}

func (m *mockStatsStore) EntriesForMember(userID, orgID int64, from, to time.Time) ([]organization.MemberEntry, error) {
	return m.entries[userID], nil
}

var _ = Describe("Organization Service", func() {
	var (
		repo    *mockOrgRepository
		service *organization.Service
	)

	newLogger := func() *slog.Logger {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	}

	BeforeEach(func() {
		repo = newMockOrgRepository()
		service = organization.NewService(repo, &mockStatsStore{stats: map[int64]organization.EntryStats{}}, newLogger())
	})

	Describe("CreateOrganization", func() {
		It("creates the organization and makes the caller the owner", func() {
			org, err := service.CreateOrganization(42, organization.CreateOrganizationDTO{
				Name: "Acme", Slug: "acme",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(org.ID).NotTo(BeZero())
			Expect(org.JoinPolicy).To(Equal(rulemode.RequiresApproval))
			Expect(org.EditPastEntriesMode).To(Equal(rulemode.Allowed))

			mem, err := repo.GetActiveMembership(org.ID, 42)
			Expect(err).NotTo(HaveOccurred())
			Expect(mem.Role).To(Equal(organization.RoleOwner))
		})

		It("rejects a duplicate slug", func() {
			_, err := service.CreateOrganization(42, organization.CreateOrganizationDTO{Name: "Acme", Slug: "acme"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CreateOrganization(43, organization.CreateOrganizationDTO{Name: "Other", Slug: "acme"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeDuplicateSlug))
		})

		It("rejects an invalid slug", func() {
			_, err := service.CreateOrganization(42, organization.CreateOrganizationDTO{Name: "Acme", Slug: "Not A Slug"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("UpdateSettings", func() {
		var ownerID, memberID int64

		BeforeEach(func() {
			ownerID, memberID = 1, 2
			org, err := service.CreateOrganization(ownerID, organization.CreateOrganizationDTO{Name: "Acme", Slug: "acme"})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.CreateMembership(&organization.Membership{
				UserID: memberID, OrganizationID: org.ID, Role: organization.RoleMember, IsActive: true,
			})).To(Succeed())
		})

		It("lets the owner change rule modes", func() {
			mode := "disabled"
			org, err := service.UpdateSettings("acme", ownerID, organization.UpdateSettingsDTO{
				EditPastEntriesMode: &mode,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(org.EditPastEntriesMode).To(Equal(rulemode.Disabled))
			Expect(org.EditPauseMode).To(Equal(rulemode.Allowed), "untouched modes stay as they were")
		})

		It("rejects a plain member", func() {
			mode := "disabled"
			_, err := service.UpdateSettings("acme", memberID, organization.UpdateSettingsDTO{JoinPolicy: &mode})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInsufficientRole))
		})

		It("rejects an unknown mode value", func() {
			mode := "sometimes"
			_, err := service.UpdateSettings("acme", ownerID, organization.UpdateSettingsDTO{JoinPolicy: &mode})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("member management", func() {
		var ownerID, adminID, memberID int64
		var orgID int64

		BeforeEach(func() {
			ownerID, adminID, memberID = 1, 2, 3
			org, err := service.CreateOrganization(ownerID, organization.CreateOrganizationDTO{Name: "Acme", Slug: "acme"})
			Expect(err).NotTo(HaveOccurred())
			orgID = org.ID
			Expect(repo.CreateMembership(&organization.Membership{
				UserID: adminID, OrganizationID: orgID, Role: organization.RoleAdmin, IsActive: true,
			})).To(Succeed())
			Expect(repo.CreateMembership(&organization.Membership{
				UserID: memberID, OrganizationID: orgID, Role: organization.RoleMember, IsActive: true,
			})).To(Succeed())
		})

		It("lets an admin add a member", func() {
			mem, err := service.AddMember("acme", adminID, organization.AddMemberDTO{UserID: 9})
			Expect(err).NotTo(HaveOccurred())
			Expect(mem.Role).To(Equal(organization.RoleMember))
		})

		It("refuses an admin granting the owner role", func() {
			_, err := service.AddMember("acme", adminID, organization.AddMemberDTO{UserID: 9, Role: "owner"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInsufficientRole))
		})

		It("rejects adding someone who is already a member", func() {
			_, err := service.AddMember("acme", adminID, organization.AddMemberDTO{UserID: memberID})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeAlreadyMember))
		})

		It("reactivates a previously removed member instead of duplicating", func() {
			Expect(service.RemoveMember("acme", ownerID, memberID)).To(Succeed())

			mem, err := service.AddMember("acme", ownerID, organization.AddMemberDTO{UserID: memberID})
			Expect(err).NotTo(HaveOccurred())
			Expect(mem.IsActive).To(BeTrue())

			count, err := repo.CountActiveMembers(orgID)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(3)))
		})

		It("keeps the owner's role immutable", func() {
			_, err := service.UpdateMemberRole("acme", ownerID, ownerID, organization.UpdateMemberRoleDTO{Role: "member"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeOwnerImmutable))
		})

		It("refuses an admin demoting another admin", func() {
			Expect(repo.CreateMembership(&organization.Membership{
				UserID: 7, OrganizationID: orgID, Role: organization.RoleAdmin, IsActive: true,
			})).To(Succeed())

			_, err := service.UpdateMemberRole("acme", adminID, 7, organization.UpdateMemberRoleDTO{Role: "member"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInsufficientRole))
		})

		It("lets the owner promote a member to admin", func() {
			mem, err := service.UpdateMemberRole("acme", ownerID, memberID, organization.UpdateMemberRoleDTO{Role: "admin"})
			Expect(err).NotTo(HaveOccurred())
			Expect(mem.Role).To(Equal(organization.RoleAdmin))
		})

		It("lets a member leave on their own", func() {
			Expect(service.RemoveMember("acme", memberID, memberID)).To(Succeed())
			_, err := repo.GetActiveMembership(orgID, memberID)
			Expect(err).To(HaveOccurred())
		})

		It("never removes the owner", func() {
			err := service.RemoveMember("acme", ownerID, ownerID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeOwnerImmutable))
		})

		It("refuses a plain member removing someone else", func() {
			err := service.RemoveMember("acme", memberID, adminID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInsufficientRole))
		})
	})

	Describe("DeleteOrganization", func() {
		It("requires the owner role", func() {
			_, err := service.CreateOrganization(1, organization.CreateOrganizationDTO{Name: "Acme", Slug: "acme"})
			Expect(err).NotTo(HaveOccurred())
			org, _ := repo.GetBySlug("acme")
			Expect(repo.CreateMembership(&organization.Membership{
				UserID: 2, OrganizationID: org.ID, Role: organization.RoleAdmin, IsActive: true,
			})).To(Succeed())

			err = service.DeleteOrganization("acme", 2)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInsufficientRole))

			Expect(service.DeleteOrganization("acme", 1)).To(Succeed())
			_, err = repo.GetBySlug("acme")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("TimeOverview", func() {
		It("aggregates stats per member and subtracts pauses", func() {
			stats := &mockStatsStore{stats: map[int64]organization.EntryStats{
				1: {TotalMinutes: 480, PauseMinutes: 45, EntryCount: 2},
			}}
			service = organization.NewService(repo, stats, newLogger())

			_, err := service.CreateOrganization(1, organization.CreateOrganizationDTO{Name: "Acme", Slug: "acme"})
			Expect(err).NotTo(HaveOccurred())

			from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
			to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
			rows, err := service.TimeOverview("acme", 1, from, to)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].TotalTrackedMinutes).To(Equal(480.0))
			Expect(rows[0].NetTrackedMinutes).To(Equal(435.0))
		})

		It("rejects a reversed range", func() {
			_, err := service.CreateOrganization(1, organization.CreateOrganizationDTO{Name: "Acme", Slug: "acme"})
			Expect(err).NotTo(HaveOccurred())

			from := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
			to := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
			_, err = service.TimeOverview("acme", 1, from, to)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("MemberEntries", func() {
		var (
			from = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
			to   = time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
		)

		BeforeEach(func() {
			start := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
			end := start.Add(8 * time.Hour)
			stats := &mockStatsStore{entries: map[int64][]organization.MemberEntry{
				2: {{ID: 7, StartTime: start, EndTime: &end, PauseMinutes: 45, NetMinutes: 435}},
			}}
			service = organization.NewService(repo, stats, newLogger())

			org, err := service.CreateOrganization(1, organization.CreateOrganizationDTO{Name: "Acme", Slug: "acme"})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.CreateMembership(&organization.Membership{
				UserID: 2, OrganizationID: org.ID, Role: organization.RoleMember, IsActive: true,
			})).To(Succeed())
		})

		It("returns the member's entries for admins", func() {
			entries, err := service.MemberEntries("acme", 1, 2, from, to)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].NetMinutes).To(Equal(435.0))
		})

		It("refuses plain members", func() {
			_, err := service.MemberEntries("acme", 2, 1, from, to)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInsufficientRole))
		})

		It("404s when the target is not a member", func() {
			_, err := service.MemberEntries("acme", 1, 99, from, to)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeMemberNotFound))
		})
	})
})
