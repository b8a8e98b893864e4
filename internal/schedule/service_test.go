package schedule_test

import (
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/time-tracking/internal"
	"github.com/frahmantamala/time-tracking/internal/organization"
	"github.com/frahmantamala/time-tracking/internal/rulemode"
	"github.com/frahmantamala/time-tracking/internal/schedule"
)

// Mock repository for testing
type mockScheduleRepository struct {
	periods map[int64]*schedule.WorkSchedulePeriod
	nextID  int64
}

func newMockScheduleRepository() *mockScheduleRepository {
	return &mockScheduleRepository{periods: make(map[int64]*schedule.WorkSchedulePeriod), nextID: 1}
}

func (m *mockScheduleRepository) CreateWithAutoClose(p *schedule.WorkSchedulePeriod) error {
	existing, _ := m.ListForMember(p.OrganizationID, p.UserID)
	plan, err := schedule.PlanInsertion(existing, p)
	if err != nil {
		return err
	}
	for _, id := range plan.CloseIDs {
		closeTo := plan.CloseTo
		m.periods[id].ValidTo = &closeTo
	}
	p.ID = m.nextID
	m.nextID++
	m.periods[p.ID] = p
	return nil
}

func (m *mockScheduleRepository) UpdateWithOverlapCheck(p *schedule.WorkSchedulePeriod) error {
	existing, _ := m.ListForMember(p.OrganizationID, p.UserID)
	if err := schedule.ValidateUpdate(existing, p); err != nil {
		return err
	}
	m.periods[p.ID] = p
	return nil
}

func (m *mockScheduleRepository) GetByID(id int64) (*schedule.WorkSchedulePeriod, error) {
	p, ok := m.periods[id]
	if !ok {
		return nil, schedule.ErrPeriodNotFound
	}
	return p, nil
}

func (m *mockScheduleRepository) ListForMember(orgID, userID int64) ([]schedule.WorkSchedulePeriod, error) {
	var out []schedule.WorkSchedulePeriod
	for _, p := range m.periods {
		if p.OrganizationID == orgID && p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockScheduleRepository) Delete(id int64) error {
	delete(m.periods, id)
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

func (m *mockOrgStore) SaveMembership(mem *organization.Membership) error {
	m.memberships[mem.UserID] = mem
	return nil
}

var _ = Describe("Schedule Service", func() {
	var (
		repo    *mockScheduleRepository
		org     *organization.Organization
		service *schedule.Service
	)

	const (
		adminID  = int64(1)
		memberID = int64(2)
	)

	BeforeEach(func() {
		repo = newMockScheduleRepository()
		org = &organization.Organization{
			ID:                     10,
			Slug:                   "acme",
			IsActive:               true,
			WorkScheduleChangeMode: rulemode.Allowed,
		}
		weekly := 40.0
		orgs := &mockOrgStore{
			org: org,
			memberships: map[int64]*organization.Membership{
				adminID: {UserID: adminID, OrganizationID: 10, Role: organization.RoleAdmin, IsActive: true},
				memberID: {
					UserID: memberID, OrganizationID: 10, Role: organization.RoleMember, IsActive: true,
					WeeklyWorkHours: &weekly, TargetMon: 8, TargetTue: 8, TargetWed: 8, TargetThu: 8, TargetFri: 8,
				},
			},
		}
		lg := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		service = schedule.NewService(repo, orgs, lg)
	})

	Describe("CreatePeriod", func() {
		It("lets a member create their own period when the mode allows it", func() {
			p, err := service.CreatePeriod("acme", memberID, memberID, schedule.CreatePeriodDTO{
				ValidFrom:        "2026-06-01",
				WeeklyWorkHours:  30,
				DistributeEvenly: true,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.TargetMon).To(Equal(6.0))
			Expect(p.ValidTo).To(BeNil())
		})

		It("blocks members when the mode requires approval", func() {
			org.WorkScheduleChangeMode = rulemode.RequiresApproval

			_, err := service.CreatePeriod("acme", memberID, memberID, schedule.CreatePeriodDTO{
				ValidFrom:       "2026-06-01",
				WeeklyWorkHours: 30,
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeApprovalRequired))
		})

		It("lets admins change a member's schedule regardless of the mode", func() {
			org.WorkScheduleChangeMode = rulemode.Disabled

			_, err := service.CreatePeriod("acme", adminID, memberID, schedule.CreatePeriodDTO{
				ValidFrom:       "2026-06-01",
				WeeklyWorkHours: 30,
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("blocks members from touching someone else's schedule", func() {
			_, err := service.CreatePeriod("acme", memberID, adminID, schedule.CreatePeriodDTO{
				ValidFrom:       "2026-06-01",
				WeeklyWorkHours: 30,
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeNotOwnResource))
		})

		It("auto-closes the previous open-ended period", func() {
			_, err := service.CreatePeriod("acme", memberID, memberID, schedule.CreatePeriodDTO{
				ValidFrom:       "2026-01-01",
				WeeklyWorkHours: 40,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CreatePeriod("acme", memberID, memberID, schedule.CreatePeriodDTO{
				ValidFrom:       "2026-06-01",
				WeeklyWorkHours: 30,
			})
			Expect(err).NotTo(HaveOccurred())

			periods, err := service.ListPeriods("acme", memberID, memberID)
			Expect(err).NotTo(HaveOccurred())
			Expect(periods).To(HaveLen(2))

			for _, p := range periods {
				if p.WeeklyWorkHours == 40 {
					Expect(p.ValidTo).NotTo(BeNil())
					Expect(p.ValidTo.Format("2006-01-02")).To(Equal("2026-05-31"))
				} else {
					Expect(p.ValidTo).To(BeNil())
				}
			}
		})

		It("surfaces overlaps as conflicts", func() {
			to := "2026-12-31"
			_, err := service.CreatePeriod("acme", memberID, memberID, schedule.CreatePeriodDTO{
				ValidFrom: "2026-06-01", ValidTo: &to, WeeklyWorkHours: 40,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CreatePeriod("acme", memberID, memberID, schedule.CreatePeriodDTO{
				ValidFrom: "2026-08-01", WeeklyWorkHours: 30,
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodePeriodOverlap))
		})

		It("rejects a reversed date range", func() {
			to := "2026-01-01"
			_, err := service.CreatePeriod("acme", memberID, memberID, schedule.CreatePeriodDTO{
				ValidFrom: "2026-06-01", ValidTo: &to, WeeklyWorkHours: 30,
			})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("EffectiveAt", func() {
		It("resolves the period in force, falling back to membership defaults", func() {
			_, err := service.CreatePeriod("acme", memberID, memberID, schedule.CreatePeriodDTO{
				ValidFrom: "2026-06-01", WeeklyWorkHours: 20, DistributeEvenly: true,
			})
			Expect(err).NotTo(HaveOccurred())

			eff, err := service.EffectiveAt("acme", memberID, memberID, date(2026, 7, 1))
			Expect(err).NotTo(HaveOccurred())
			Expect(eff.Source).To(Equal("period"))
			Expect(eff.WeeklyWorkHours).To(Equal(20.0))

			before, err := service.EffectiveAt("acme", memberID, memberID, date(2026, 5, 1))
			Expect(err).NotTo(HaveOccurred())
			Expect(before.Source).To(Equal("membership_defaults"))
			Expect(before.WeeklyWorkHours).To(Equal(40.0))
		})
	})

	Describe("UpdatePeriod", func() {
		var periodID int64

		BeforeEach(func() {
			p, err := service.CreatePeriod("acme", memberID, memberID, schedule.CreatePeriodDTO{
				ValidFrom:        "2026-06-01",
				WeeklyWorkHours:  40,
				DistributeEvenly: true,
			})
			Expect(err).NotTo(HaveOccurred())
			periodID = p.ID
		})

		It("merges set fields and keeps the rest", func() {
			mon := 4.0
			p, err := service.UpdatePeriod("acme", memberID, periodID, schedule.UpdatePeriodDTO{
				TargetMon: &mon,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.TargetMon).To(Equal(4.0))
			Expect(p.TargetTue).To(Equal(8.0))
			Expect(p.WeeklyWorkHours).To(Equal(40.0))
		})

		It("redistributes when weekly hours change with distribute_evenly", func() {
			weekly := 30.0
			p, err := service.UpdatePeriod("acme", memberID, periodID, schedule.UpdatePeriodDTO{
				WeeklyWorkHours:  &weekly,
				DistributeEvenly: true,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.TargetWed).To(Equal(6.0))
		})

		It("rejects a date change that collides with another period", func() {
			to := "2026-05-31"
			_, err := service.CreatePeriod("acme", memberID, memberID, schedule.CreatePeriodDTO{
				ValidFrom: "2026-01-01", ValidTo: &to, WeeklyWorkHours: 35,
			})
			Expect(err).NotTo(HaveOccurred())

			from := "2026-05-01"
			_, err = service.UpdatePeriod("acme", memberID, periodID, schedule.UpdatePeriodDTO{
				ValidFrom: &from,
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodePeriodOverlap))
		})

		It("rejects a merged range that ends before it starts", func() {
			to := "2026-05-01"
			_, err := service.UpdatePeriod("acme", memberID, periodID, schedule.UpdatePeriodDTO{
				ValidTo: &to,
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		})

		It("blocks members when the mode requires approval", func() {
			org.WorkScheduleChangeMode = rulemode.RequiresApproval

			mon := 4.0
			_, err := service.UpdatePeriod("acme", memberID, periodID, schedule.UpdatePeriodDTO{TargetMon: &mon})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeApprovalRequired))
		})
	})

	Describe("UpdateDefaults", func() {
		It("distributes weekly hours evenly over the work week", func() {
			weekly := 35.0
			mem, err := service.UpdateDefaults("acme", memberID, memberID, schedule.UpdateDefaultsDTO{
				WeeklyWorkHours:  &weekly,
				DistributeEvenly: true,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(*mem.WeeklyWorkHours).To(Equal(35.0))
			Expect(mem.TargetMon).To(Equal(7.0))
			Expect(mem.TargetFri).To(Equal(7.0))
		})

		It("patches only the provided day targets", func() {
			mon := 4.0
			mem, err := service.UpdateDefaults("acme", memberID, memberID, schedule.UpdateDefaultsDTO{
				TargetMon: &mon,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(mem.TargetMon).To(Equal(4.0))
			Expect(mem.TargetTue).To(Equal(8.0))
			Expect(*mem.WeeklyWorkHours).To(Equal(40.0))
		})

		It("blocks members when the mode requires approval", func() {
			org.WorkScheduleChangeMode = rulemode.RequiresApproval

			mon := 4.0
			_, err := service.UpdateDefaults("acme", memberID, memberID, schedule.UpdateDefaultsDTO{TargetMon: &mon})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeApprovalRequired))
		})

		It("lets admins edit a member's defaults regardless of the mode", func() {
			org.WorkScheduleChangeMode = rulemode.Disabled

			weekly := 20.0
			mem, err := service.UpdateDefaults("acme", adminID, memberID, schedule.UpdateDefaultsDTO{
				WeeklyWorkHours:  &weekly,
				DistributeEvenly: true,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(mem.TargetWed).To(Equal(4.0))
		})

		It("rejects distribute_evenly without weekly hours", func() {
			_, err := service.UpdateDefaults("acme", memberID, memberID, schedule.UpdateDefaultsDTO{
				DistributeEvenly: true,
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		})
	})

	Describe("SetInitialOvertime", func() {
		It("writes the balance when the mode allows it", func() {
			org.InitialOvertimeMode = rulemode.Allowed

			mem, err := service.SetInitialOvertime("acme", memberID, memberID, schedule.SetInitialOvertimeDTO{Hours: 12.5})
			Expect(err).NotTo(HaveOccurred())
			Expect(mem.InitialOvertimeHours).To(Equal(12.5))
		})

		It("blocks members when the mode requires approval", func() {
			org.InitialOvertimeMode = rulemode.RequiresApproval

			_, err := service.SetInitialOvertime("acme", memberID, memberID, schedule.SetInitialOvertimeDTO{Hours: 5})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeApprovalRequired))
		})

		It("lets admins set anyone's balance even when disabled", func() {
			org.InitialOvertimeMode = rulemode.Disabled

			mem, err := service.SetInitialOvertime("acme", adminID, memberID, schedule.SetInitialOvertimeDTO{Hours: -3})
			Expect(err).NotTo(HaveOccurred())
			Expect(mem.InitialOvertimeHours).To(Equal(-3.0))
		})
	})

	Describe("DeletePeriod", func() {
		It("lets the owner delete when the mode allows, and admins always", func() {
			p, err := service.CreatePeriod("acme", memberID, memberID, schedule.CreatePeriodDTO{
				ValidFrom: "2026-06-01", WeeklyWorkHours: 30,
			})
			Expect(err).NotTo(HaveOccurred())

			org.WorkScheduleChangeMode = rulemode.Disabled
			err = service.DeletePeriod("acme", memberID, p.ID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeFeatureDisabled))

			Expect(service.DeletePeriod("acme", adminID, p.ID)).To(Succeed())
		})
	})
})
