package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/jmoiron/sqlx"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		if clearData {
			for _, table := range []string{"time_entries", "work_schedule_periods", "pause_rules", "org_requests", "user_organizations", "organizations", "users"} {
				if _, err := db.Exec("DELETE FROM " + table); err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)

		ownerID := seedUser(db, "anna@mail.com", "Anna", "Keller", string(hash))
		memberID := seedUser(db, "ben@mail.com", "Ben", "Fischer", string(hash))

		var orgID int64
		err = db.Get(&orgID, "SELECT id FROM organizations WHERE slug = $1", "acme")
		if err != nil {
			err = db.QueryRow(`INSERT INTO organizations
				(name, slug, description, join_policy, edit_past_entries_mode, edit_pause_mode, initial_overtime_mode, work_schedule_change_mode, auto_pause_enabled, is_active, created_at, updated_at)
				VALUES ('Acme GmbH', 'acme', 'Demo organization', 'requires_approval', 'requires_approval', 'allowed', 'requires_approval', 'allowed', true, true, now(), now())
				RETURNING id`).Scan(&orgID)
			if err != nil {
				log.Fatalf("failed to insert organization: %v", err)
			}
			fmt.Println("Seeded organization: acme")
		}

		seedMembership(db, ownerID, orgID, "owner")
		seedMembership(db, memberID, orgID, "member")

		rules := []struct {
			MinHours     float64
			PauseMinutes int
		}{
			{4, 30},
			{8, 45},
		}
		for _, rule := range rules {
			var exists int
			if err := db.Get(&exists, "SELECT 1 FROM pause_rules WHERE organization_id = $1 AND min_hours = $2", orgID, rule.MinHours); err == nil {
				continue
			}
			if _, err := db.Exec(`INSERT INTO pause_rules (organization_id, min_hours, pause_minutes, created_at)
				VALUES ($1, $2, $3, now())`, orgID, rule.MinHours, rule.PauseMinutes); err != nil {
				log.Fatalf("failed to insert pause rule: %v", err)
			}
			fmt.Printf("Seeded pause rule: %.0fh -> %dmin\n", rule.MinHours, rule.PauseMinutes)
		}

		fmt.Println("Seeding complete. Login with anna@mail.com / password")
	},
}

func seedUser(db *sqlx.DB, email, firstName, lastName, passwordHash string) int64 {
	var id int64
	if err := db.Get(&id, "SELECT id FROM users WHERE email = $1", email); err == nil {
		fmt.Printf("user %s already exists\n", email)
		return id
	}

	err := db.QueryRow(`INSERT INTO users (email, first_name, last_name, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, true, now(), now()) RETURNING id`,
		email, firstName, lastName, passwordHash).Scan(&id)
	if err != nil {
		log.Fatalf("failed to insert user %s: %v", email, err)
	}
	fmt.Println("Seeded user:", email)
	return id
}

func seedMembership(db *sqlx.DB, userID, orgID int64, role string) {
	var exists int
	if err := db.Get(&exists, "SELECT 1 FROM user_organizations WHERE user_id = $1 AND organization_id = $2", userID, orgID); err == nil {
		return
	}

	if _, err := db.Exec(`INSERT INTO user_organizations (user_id, organization_id, role, is_active, joined_at)
		VALUES ($1, $2, $3, true, now())`, userID, orgID, role); err != nil {
		log.Fatalf("failed to insert membership: %v", err)
	}
	fmt.Printf("Seeded membership: user %d as %s\n", userID, role)
}
