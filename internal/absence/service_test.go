package absence_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/time-tracking/internal"
	"github.com/frahmantamala/time-tracking/internal/absence"
	"github.com/frahmantamala/time-tracking/internal/organization"
)

func TestAbsence(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Absence Suite")
}

// Mock repository for testing
type mockAbsenceRepository struct {
	days   map[int64]*absence.AbsenceDay
	nextID int64
}

func newMockAbsenceRepository() *mockAbsenceRepository {
	return &mockAbsenceRepository{days: make(map[int64]*absence.AbsenceDay), nextID: 1}
}

func (m *mockAbsenceRepository) Create(day *absence.AbsenceDay) error {
	for _, d := range m.days {
		if d.UserID == day.UserID && d.OrganizationID == day.OrganizationID && d.Date.Equal(day.Date) {
			return absence.ErrDuplicateAbsence
		}
	}
	day.ID = m.nextID
	m.nextID++
	m.days[day.ID] = day
	return nil
}

func (m *mockAbsenceRepository) GetByID(id int64) (*absence.AbsenceDay, error) {
	d, ok := m.days[id]
	if !ok {
		return nil, absence.ErrAbsenceNotFound
	}
	return d, nil
}

func (m *mockAbsenceRepository) ListForOrg(orgID int64, filter absence.ListFilter) ([]absence.AbsenceDetail, error) {
	var out []absence.AbsenceDetail
	for _, d := range m.days {
		if d.OrganizationID != orgID {
			continue
		}
		if filter.UserID != nil && d.UserID != *filter.UserID {
			continue
		}
		if filter.From != nil && d.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && d.Date.After(*filter.To) {
			continue
		}
		out = append(out, absence.AbsenceDetail{
			ID:        d.ID,
			UserID:    d.UserID,
			Date:      d.Date,
			Type:      d.Type,
			Note:      d.Note,
			CreatedAt: d.CreatedAt,
		})
	}
	return out, nil
}

func (m *mockAbsenceRepository) Delete(id int64) error {
	delete(m.days, id)
	return nil
}

type mockOrgStore struct {
	org         *organization.Organization
	memberships map[int64]*organization.Membership
}

func (m *mockOrgStore) GetBySlug(slug string) (*organization.Organization, error) {
	if m.org != nil && m.org.Slug == slug {
		return m.org, nil
	}
	return nil, organization.ErrOrgNotFound
}

func (m *mockOrgStore) GetActiveMembership(orgID, userID int64) (*organization.Membership, error) {
	mem, ok := m.memberships[userID]
	if !ok || mem.OrganizationID != orgID || !mem.IsActive {
		return nil, organization.ErrMemberNotFound
	}
	return mem, nil
}

var _ = Describe("Absence Service", func() {
	var (
		repo    *mockAbsenceRepository
		service *absence.Service
	)

	const (
		adminID  = int64(1)
		memberID = int64(2)
		otherID  = int64(3)
	)

	BeforeEach(func() {
		repo = newMockAbsenceRepository()
		orgs := &mockOrgStore{
			org: &organization.Organization{ID: 10, Slug: "acme", IsActive: true},
			memberships: map[int64]*organization.Membership{
				adminID:  {UserID: adminID, OrganizationID: 10, Role: organization.RoleAdmin, IsActive: true},
				memberID: {UserID: memberID, OrganizationID: 10, Role: organization.RoleMember, IsActive: true},
				otherID:  {UserID: otherID, OrganizationID: 10, Role: organization.RoleMember, IsActive: true},
			},
		}
		lg := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		service = absence.NewService(repo, orgs, lg)
	})

	Describe("CreateAbsence", func() {
		It("records a member's own absence", func() {
			note := "flu"
			day, err := service.CreateAbsence("acme", memberID, absence.CreateAbsenceDTO{
				Date: "2026-03-02", Type: "sick_day", Note: &note,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(day.ID).NotTo(BeZero())
			Expect(day.UserID).To(Equal(memberID))
			Expect(day.Type).To(Equal(absence.TypeSickDay))
			Expect(day.Date.Format("2006-01-02")).To(Equal("2026-03-02"))
		})

		It("rejects a second absence on the same date", func() {
			_, err := service.CreateAbsence("acme", memberID, absence.CreateAbsenceDTO{Date: "2026-03-02", Type: "vacation"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CreateAbsence("acme", memberID, absence.CreateAbsenceDTO{Date: "2026-03-02", Type: "sick_day"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeDuplicateAbsence))
		})

		It("rejects unknown types and malformed dates", func() {
			_, err := service.CreateAbsence("acme", memberID, absence.CreateAbsenceDTO{Date: "2026-03-02", Type: "holiday"})
			Expect(err).To(HaveOccurred())

			_, err = service.CreateAbsence("acme", memberID, absence.CreateAbsenceDTO{Date: "02.03.2026", Type: "vacation"})
			Expect(err).To(HaveOccurred())
		})

		It("refuses non-members", func() {
			_, err := service.CreateAbsence("acme", 99, absence.CreateAbsenceDTO{Date: "2026-03-02", Type: "vacation"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeMemberNotFound))
		})
	})

	Describe("CreateForMember", func() {
		It("lets an admin record an absence for a member", func() {
			day, err := service.CreateForMember("acme", adminID, absence.AdminCreateAbsenceDTO{
				UserID: memberID, Date: "2026-03-03", Type: "vacation",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(day.UserID).To(Equal(memberID))
		})

		It("refuses members using the admin variant", func() {
			_, err := service.CreateForMember("acme", memberID, absence.AdminCreateAbsenceDTO{
				UserID: otherID, Date: "2026-03-03", Type: "vacation",
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInsufficientRole))
		})

		It("rejects targets outside the organization", func() {
			_, err := service.CreateForMember("acme", adminID, absence.AdminCreateAbsenceDTO{
				UserID: 99, Date: "2026-03-03", Type: "vacation",
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeMemberNotFound))
		})
	})

	Describe("ListAbsences", func() {
		BeforeEach(func() {
			_, err := service.CreateAbsence("acme", memberID, absence.CreateAbsenceDTO{Date: "2026-03-02", Type: "sick_day"})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.CreateAbsence("acme", otherID, absence.CreateAbsenceDTO{Date: "2026-03-04", Type: "vacation"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("shows an admin everyone's absences", func() {
			days, err := service.ListAbsences("acme", adminID, absence.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(days).To(HaveLen(2))
		})

		It("narrows the admin view by member and date", func() {
			target := otherID
			days, err := service.ListAbsences("acme", adminID, absence.ListFilter{UserID: &target})
			Expect(err).NotTo(HaveOccurred())
			Expect(days).To(HaveLen(1))
			Expect(days[0].UserID).To(Equal(otherID))

			to := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
			days, err = service.ListAbsences("acme", adminID, absence.ListFilter{To: &to})
			Expect(err).NotTo(HaveOccurred())
			Expect(days).To(HaveLen(1))
			Expect(days[0].UserID).To(Equal(memberID))
		})

		It("shows a member only their own, ignoring the user filter", func() {
			target := otherID
			days, err := service.ListAbsences("acme", memberID, absence.ListFilter{UserID: &target})
			Expect(err).NotTo(HaveOccurred())
			Expect(days).To(HaveLen(1))
			Expect(days[0].UserID).To(Equal(memberID))
		})
	})

	Describe("DeleteAbsence", func() {
		var ownID, othersID int64

		BeforeEach(func() {
			own, err := service.CreateAbsence("acme", memberID, absence.CreateAbsenceDTO{Date: "2026-03-02", Type: "sick_day"})
			Expect(err).NotTo(HaveOccurred())
			ownID = own.ID
			others, err := service.CreateAbsence("acme", otherID, absence.CreateAbsenceDTO{Date: "2026-03-04", Type: "vacation"})
			Expect(err).NotTo(HaveOccurred())
			othersID = others.ID
		})

		It("lets members delete their own absence", func() {
			Expect(service.DeleteAbsence("acme", memberID, ownID)).To(Succeed())
		})

		It("refuses members deleting someone else's absence", func() {
			err := service.DeleteAbsence("acme", memberID, othersID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeNotOwnResource))
		})

		It("lets admins delete any member's absence", func() {
			Expect(service.DeleteAbsence("acme", adminID, othersID)).To(Succeed())
		})

		It("hides absences belonging to another organization", func() {
			foreign := &absence.AbsenceDay{UserID: memberID, OrganizationID: 99, Date: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), Type: absence.TypeOther}
			Expect(repo.Create(foreign)).To(Succeed())

			err := service.DeleteAbsence("acme", adminID, foreign.ID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeAbsenceNotFound))
		})
	})
})
