package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/time-tracking/internal/absence"
	"github.com/frahmantamala/time-tracking/internal/auth"
	"github.com/frahmantamala/time-tracking/internal/organization"
	"github.com/frahmantamala/time-tracking/internal/orgrequest"
	"github.com/frahmantamala/time-tracking/internal/pauserule"
	"github.com/frahmantamala/time-tracking/internal/schedule"
	"github.com/frahmantamala/time-tracking/internal/timetracking"
	"github.com/frahmantamala/time-tracking/internal/transport"
	"github.com/frahmantamala/time-tracking/internal/transport/middleware"
	"github.com/frahmantamala/time-tracking/internal/transport/swagger"
	"github.com/frahmantamala/time-tracking/internal/user"
)

type Handlers struct {
	Auth         *auth.Handler
	User         *user.Handler
	Organization *organization.Handler
	OrgRequest   *orgrequest.Handler
	PauseRule    *pauserule.Handler
	Schedule     *schedule.Handler
	TimeEntry    *timetracking.Handler
	Absence      *absence.Handler
}

// RegisterAllRoutes mounts the API under /api/v1. Everything except auth,
// registration and health requires a valid access token; organization admin
// surfaces additionally pass the OrgGuard before the handler runs.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, authService *auth.Service, guard *auth.OrgGuard, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)
	authMiddleware := auth.Middleware(authService, transport.NewBaseHandler(logger))

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.Refresh)
			sr.Post("/logout", h.Auth.Logout)
		})

		r.Post("/users/register", h.User.Register)

		// Protected routes
		r.Group(func(pr chi.Router) {
			pr.Use(authMiddleware)

			pr.Route("/users/me", func(ur chi.Router) {
				ur.Get("/", h.User.Me)
				ur.Patch("/", h.User.UpdateMe)
				ur.Post("/password", h.User.ChangePassword)
				ur.Get("/organizations", h.Organization.ListMyOrganizations)
			})

			pr.Route("/organizations", func(or chi.Router) {
				or.Get("/", h.Organization.ListOrganizations)
				or.Post("/", h.Organization.CreateOrganization)

				or.Route("/{slug}", func(sr chi.Router) {
					sr.Get("/", h.Organization.GetOrganization)

					// Joining is the one organization-scoped action open to
					// non-members; everything below the guard is not.
					sr.Post("/requests", h.OrgRequest.CreateRequest)

					sr.Group(func(mr chi.Router) {
						mr.Use(guard.RequireMember())
						mr.Get("/pause-rules", h.PauseRule.ListRules)

						mr.Get("/schedule-periods", h.Schedule.ListPeriods)
						mr.Post("/schedule-periods", h.Schedule.CreatePeriod)
						mr.Patch("/schedule-periods/{periodID}", h.Schedule.UpdatePeriod)
						mr.Delete("/schedule-periods/{periodID}", h.Schedule.DeletePeriod)
						mr.Get("/schedule", h.Schedule.Effective)
						mr.Patch("/schedule", h.Schedule.UpdateDefaults)
						mr.Put("/overtime", h.Schedule.SetInitialOvertime)

						mr.Get("/absences", h.Absence.ListAbsences)
						mr.Post("/absences", h.Absence.CreateAbsence)
						mr.Delete("/absences/{absenceID}", h.Absence.DeleteAbsence)
					})

					sr.Group(func(ar chi.Router) {
						ar.Use(guard.RequireAdmin())
						ar.Patch("/", h.Organization.UpdateOrganization)
						ar.Delete("/", h.Organization.DeleteOrganization)
						ar.Patch("/settings", h.Organization.UpdateSettings)
						ar.Get("/requests", h.OrgRequest.ListOrgRequests)

						ar.Post("/members", h.Organization.AddMember)
						ar.Patch("/members/{userID}", h.Organization.UpdateMemberRole)
						ar.Get("/time-overview", h.Organization.TimeOverview)
						ar.Get("/members/{userID}/entries", h.Organization.MemberEntries)

						ar.Post("/absences/admin", h.Absence.CreateForMember)

						ar.Post("/pause-rules", h.PauseRule.CreateRule)
						ar.Put("/pause-rules/{ruleID}", h.PauseRule.UpdateRule)
						ar.Delete("/pause-rules/{ruleID}", h.PauseRule.DeleteRule)
					})

					// Members may remove themselves, so this stays outside
					// the admin group; the service checks the rest.
					sr.Group(func(mr chi.Router) {
						mr.Use(guard.RequireMember())
						mr.Delete("/members/{userID}", h.Organization.RemoveMember)
					})
				})
			})

			pr.Route("/requests", func(rr chi.Router) {
				rr.Get("/mine", h.OrgRequest.ListMyRequests)
				rr.Get("/incoming", h.OrgRequest.ListIncoming)
				rr.Get("/incoming/count", h.OrgRequest.CountIncoming)
				rr.Post("/{id}/respond", h.OrgRequest.RespondToRequest)
			})

			pr.Route("/time-entries", func(tr chi.Router) {
				tr.Post("/start", h.TimeEntry.Start)
				tr.Post("/stop", h.TimeEntry.Stop)
				tr.Get("/current", h.TimeEntry.Current)
				tr.Get("/", h.TimeEntry.History)
				tr.Patch("/{id}", h.TimeEntry.Update)
				tr.Delete("/{id}", h.TimeEntry.Delete)
			})
		})
	})
}
