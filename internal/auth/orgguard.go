package auth

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
)

var ErrForbidden = errors.New("forbidden")

const membershipRoleQuery = `
	SELECT uo.role
	FROM user_organizations uo
	JOIN organizations o ON o.id = uo.organization_id
	WHERE o.slug = $1 AND uo.user_id = $2 AND uo.is_active = true`

// OrgGuard runs transport-level membership checks against the database,
// before the request reaches a handler. Services still enforce roles
// themselves; the guard just fails obvious trespassers early.
type OrgGuard struct {
	db *sqlx.DB
}

func NewOrgGuard(db *sqlx.DB) *OrgGuard {
	return &OrgGuard{db: db}
}

func (g *OrgGuard) roleFor(r *http.Request) (string, error) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		return "", ErrForbidden
	}
	u, ok := UserFromContext(r.Context())
	if !ok || u == nil {
		return "", ErrForbidden
	}

	var role string
	err := g.db.GetContext(r.Context(), &role, membershipRoleQuery, slug, u.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrForbidden
		}
		return "", err
	}
	return role, nil
}

func (g *OrgGuard) require(check func(role string) bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, err := g.roleFor(r)
			if err != nil {
				if errors.Is(err, ErrForbidden) {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if !check(role) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireMember admits any active member of the organization in the route.
func (g *OrgGuard) RequireMember() func(next http.Handler) http.Handler {
	return g.require(func(string) bool { return true })
}

// RequireAdmin admits admins and the owner.
func (g *OrgGuard) RequireAdmin() func(next http.Handler) http.Handler {
	return g.require(func(role string) bool {
		return role == "admin" || role == "owner"
	})
}
