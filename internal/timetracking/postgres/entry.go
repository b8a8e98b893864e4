package postgres

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/frahmantamala/time-tracking/internal/organization"
	"github.com/frahmantamala/time-tracking/internal/timetracking"
)

// EntryRepository implements timetracking.Repository using GORM. The
// one-running-entry rule is a partial unique index on user_id where
// is_running.
type EntryRepository struct {
	db *gorm.DB
}

func NewEntryRepository(db *gorm.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *EntryRepository) Create(e *timetracking.TimeEntry) error {
	if err := r.db.Create(e).Error; err != nil {
		if isUniqueViolation(err) {
			return timetracking.ErrAlreadyRunning
		}
		return err
	}
	return nil
}

func (r *EntryRepository) GetByID(id int64) (*timetracking.TimeEntry, error) {
	var e timetracking.TimeEntry
	err := r.db.Where("id = ?", id).First(&e).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, timetracking.ErrEntryNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *EntryRepository) GetRunning(userID int64) (*timetracking.TimeEntry, error) {
	var e timetracking.TimeEntry
	err := r.db.Where("user_id = ? AND is_running = ?", userID, true).First(&e).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, timetracking.ErrEntryNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *EntryRepository) Update(e *timetracking.TimeEntry) error {
	e.UpdatedAt = time.Now()
	return r.db.Save(e).Error
}

func (r *EntryRepository) Delete(id int64) error {
	return r.db.Delete(&timetracking.TimeEntry{}, id).Error
}

func (r *EntryRepository) List(userID int64, filter timetracking.HistoryFilter) ([]*timetracking.TimeEntry, error) {
	q := r.db.Where("user_id = ?", userID)
	if filter.OrganizationID != nil {
		q = q.Where("organization_id = ?", *filter.OrganizationID)
	}
	if filter.From != nil {
		q = q.Where("start_time >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("start_time < ?", *filter.To)
	}

	var entries []*timetracking.TimeEntry
	err := q.Order("start_time DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&entries).Error
	return entries, err
}

// StatsForMember aggregates a member's finished entries in [from, to] for
// the admin time overview. Implements organization.EntryStatsStore.
func (r *EntryRepository) StatsForMember(userID, orgID int64, from, to time.Time) (organization.EntryStats, error) {
	var row struct {
		TotalMinutes float64
		PauseMinutes float64
		EntryCount   int
	}
	err := r.db.Model(&timetracking.TimeEntry{}).
		Select(`COALESCE(SUM(EXTRACT(EPOCH FROM (end_time - start_time)) / 60), 0) AS total_minutes,
			COALESCE(SUM(pause_minutes), 0) AS pause_minutes,
			COUNT(*) AS entry_count`).
		Where("user_id = ? AND organization_id = ? AND is_running = ? AND start_time >= ? AND start_time <= ?",
			userID, orgID, false, from, to).
		Scan(&row).Error
	if err != nil {
		return organization.EntryStats{}, err
	}
	return organization.EntryStats{
		TotalMinutes: row.TotalMinutes,
		PauseMinutes: row.PauseMinutes,
		EntryCount:   row.EntryCount,
	}, nil
}

// EntriesForMember lists a member's entries in [from, to], newest first, for
// the admin drill-down. Running entries are included with zero net time.
func (r *EntryRepository) EntriesForMember(userID, orgID int64, from, to time.Time) ([]organization.MemberEntry, error) {
	var entries []*timetracking.TimeEntry
	err := r.db.
		Where("user_id = ? AND organization_id = ? AND start_time >= ? AND start_time <= ?",
			userID, orgID, from, to).
		Order("start_time DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	out := make([]organization.MemberEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, organization.MemberEntry{
			ID:           e.ID,
			Description:  e.Description,
			StartTime:    e.StartTime,
			EndTime:      e.EndTime,
			PauseMinutes: e.PauseMinutes,
			NetMinutes:   e.NetMinutes(),
			IsRunning:    e.IsRunning,
		})
	}
	return out, nil
}
