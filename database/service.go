package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"hazard-service/models"

	"github.com/apex/log"
	"github.com/google/uuid"
)

// HazardService is the repository for hazard reports, votes and profiles.
type HazardService struct {
	db *sql.DB
}

func NewHazardService(db *sql.DB) *HazardService {
	return &HazardService{db: db}
}

const reportColumns = `id, created_at, updated_at, type, description, lat, lng, address, reported_by, status, votes, comments, image_url`

// CreateReport inserts a new report with status=active and zeroed
// counters and returns the stored row.
func (s *HazardService) CreateReport(ctx context.Context, req *models.CreateReportRequest, reportedBy string) (*models.HazardReport, error) {
	id := uuid.New().String()

	var imageURL any
	if req.ImageURL != "" {
		imageURL = req.ImageURL
	}

	result, err := s.db.ExecContext(ctx, `INSERT INTO hazard_reports
		(id, type, description, lat, lng, address, reported_by, status, votes, comments, image_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'active', 0, 0, ?)`,
		id, req.Type, req.Description, req.Location.Lat, req.Location.Lng,
		req.Location.Address, reportedBy, imageURL)
	logResult("insertReport", result, err, true)
	if err != nil {
		return nil, err
	}
	log.Infof("Created report %s by %s at %f,%f", id, reportedBy, req.Location.Lat, req.Location.Lng)

	return s.GetReportByID(ctx, id)
}

// GetReports returns all hazard reports.
func (s *HazardService) GetReports(ctx context.Context) ([]models.HazardReport, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+reportColumns+` FROM hazard_reports`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReports(rows)
}

// GetReportsByReporter returns the reports submitted by the given user.
func (s *HazardService) GetReportsByReporter(ctx context.Context, userID string) ([]models.HazardReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reportColumns+` FROM hazard_reports WHERE reported_by = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReports(rows)
}

// GetReportByID returns a single report, or nil when it does not exist.
func (s *HazardService) GetReportByID(ctx context.Context, id string) (*models.HazardReport, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM hazard_reports WHERE id = ?`, id)

	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateReport applies a partial update limited to the whitelisted
// fields; anything not present is left untouched.
func (s *HazardService) UpdateReport(ctx context.Context, id string, upd *models.UpdateReportRequest) (*models.HazardReport, error) {
	sets := []string{}
	args := []any{}

	if upd.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, *upd.Type)
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *upd.Status)
	}
	if upd.Location != nil {
		sets = append(sets, "lat = ?", "lng = ?", "address = ?")
		args = append(args, upd.Location.Lat, upd.Location.Lng, upd.Location.Address)
	}
	if upd.ImageURL != nil {
		sets = append(sets, "image_url = ?")
		args = append(args, *upd.ImageURL)
	}

	if len(sets) == 0 {
		return s.GetReportByID(ctx, id)
	}

	args = append(args, id)
	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE hazard_reports SET %s WHERE id = ?`, strings.Join(sets, ", ")),
		args...)
	logResult("updateReport", result, err, false)
	if err != nil {
		return nil, err
	}

	return s.GetReportByID(ctx, id)
}

// ToggleVote toggles the (hazard, user) vote row and the report's vote
// counter in a single transaction. The counter mutation is an atomic
// server-side UPDATE, never a read-then-write from the client. Returns
// whether the user is now voted and the resulting counter value.
func (s *HazardService) ToggleVote(ctx context.Context, hazardID, userID string) (bool, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Errorf("Error creating vote transaction: %v", err)
		return false, 0, err
	}
	defer tx.Rollback()

	var voteID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM hazard_votes WHERE hazard_id = ? AND user_id = ?`,
		hazardID, userID).Scan(&voteID)

	var voted bool
	switch {
	case err == nil:
		result, err := tx.ExecContext(ctx, `DELETE FROM hazard_votes WHERE id = ?`, voteID)
		if err != nil {
			log.Errorf("Error in deleteVote: %v", err)
			return false, 0, err
		}
		deleted, err := result.RowsAffected()
		if err != nil {
			return false, 0, err
		}
		// A concurrent toggle may have removed the row after our snapshot
		// read; only the transaction that deleted it moves the counter.
		if deleted == 1 {
			result, err = tx.ExecContext(ctx,
				`UPDATE hazard_reports SET votes = GREATEST(votes - 1, 0) WHERE id = ?`, hazardID)
			logResult("decrementVotes", result, err, false)
			if err != nil {
				return false, 0, err
			}
		}
		voted = false

	case errors.Is(err, sql.ErrNoRows):
		result, err := tx.ExecContext(ctx,
			`INSERT INTO hazard_votes (hazard_id, user_id) VALUES (?, ?)`, hazardID, userID)
		logResult("insertVote", result, err, true)
		if err != nil {
			return false, 0, err
		}
		result, err = tx.ExecContext(ctx,
			`UPDATE hazard_reports SET votes = votes + 1 WHERE id = ?`, hazardID)
		logResult("incrementVotes", result, err, false)
		if err != nil {
			return false, 0, err
		}
		voted = true

	default:
		return false, 0, err
	}

	var votes int
	if err := tx.QueryRowContext(ctx,
		`SELECT votes FROM hazard_reports WHERE id = ?`, hazardID).Scan(&votes); err != nil {
		return false, 0, err
	}

	if err := tx.Commit(); err != nil {
		return false, 0, err
	}

	log.Infof("Vote toggled on %s by %s: voted=%v votes=%d", hazardID, userID, voted, votes)
	return voted, votes, nil
}

// HasVoted reports whether the user currently has a vote on the report.
func (s *HazardService) HasVoted(ctx context.Context, hazardID, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM hazard_votes WHERE hazard_id = ? AND user_id = ?`,
		hazardID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpsertProfile creates or refreshes the user's profile row.
func (s *HazardService) UpsertProfile(ctx context.Context, p *models.Profile) error {
	result, err := s.db.ExecContext(ctx, `INSERT INTO profiles (id, full_name, avatar_url) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE full_name=?, avatar_url=?`,
		p.ID, p.FullName, p.AvatarURL, p.FullName, p.AvatarURL)
	logResult("upsertProfile", result, err, false)
	return err
}

// GetProfile returns a profile row, or nil when it does not exist.
func (s *HazardService) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var (
		p         models.Profile
		avatarURL sql.NullString
		createdAt time.Time
		updatedAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at, full_name, avatar_url FROM profiles WHERE id = ?`, id).
		Scan(&p.ID, &createdAt, &updatedAt, &p.FullName, &avatarURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.AvatarURL = avatarURL.String
	p.CreatedAt = createdAt.Format(time.RFC3339)
	p.UpdatedAt = updatedAt.Format(time.RFC3339)
	return &p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanReport translates the flattened row shape (lat, lng, address
// columns) into the embedded Location shape.
func scanReport(row rowScanner) (*models.HazardReport, error) {
	var (
		r         models.HazardReport
		createdAt time.Time
		updatedAt time.Time
		imageURL  sql.NullString
	)
	if err := row.Scan(&r.ID, &createdAt, &updatedAt, &r.Type, &r.Description,
		&r.Location.Lat, &r.Location.Lng, &r.Location.Address,
		&r.ReportedBy, &r.Status, &r.Votes, &r.Comments, &imageURL); err != nil {
		return nil, err
	}
	r.ReportedAt = createdAt.Format(time.RFC3339)
	r.UpdatedAt = updatedAt.Format(time.RFC3339)
	r.ImageURL = imageURL.String
	return &r, nil
}

func scanReports(rows *sql.Rows) ([]models.HazardReport, error) {
	res := []models.HazardReport{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *r)
	}
	return res, rows.Err()
}

func logResult(operation string, result sql.Result, err error, expectOneRow bool) {
	if err != nil {
		log.Errorf("Error in %s: %v", operation, err)
		return
	}
	rowsAffected, raErr := result.RowsAffected()
	if raErr != nil {
		log.Warnf("%s: failed to get rows affected: %v", operation, raErr)
		return
	}
	if expectOneRow && rowsAffected != 1 {
		log.Warnf("%s: expected to affect 1 row, affected %d", operation, rowsAffected)
	}
}
