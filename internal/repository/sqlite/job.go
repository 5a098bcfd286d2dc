package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/nrahman/jobtrack/internal/apperror"
	"github.com/nrahman/jobtrack/internal/model"
	"github.com/nrahman/jobtrack/internal/repository"
)

var _ repository.JobRepository = (*DB)(nil)

const jobColumns = `id, user_id, date, role, company, source_link, company_link,
	resume, cover_letter, status, recruiter, hiring_mgr, panel, hr, comments,
	created_at, updated_at`

func scanJob(row rowScanner) (*model.Job, error) {
	var j model.Job
	err := row.Scan(
		&j.ID,
		&j.UserID,
		&j.Date,
		&j.Role,
		&j.Company,
		&j.SourceLink,
		&j.CompanyLink,
		&j.Resume,
		&j.CoverLetter,
		&j.Status,
		&j.Recruiter,
		&j.HiringMgr,
		&j.Panel,
		&j.HR,
		&j.Comments,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (db *DB) CreateJob(ctx context.Context, job *model.Job) error {
	job.ID = xid.New().String()
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = model.DefaultJobStatus
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO jobs (id, user_id, date, role, company, source_link, company_link,
			resume, cover_letter, status, recruiter, hiring_mgr, panel, hr, comments,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.UserID, job.Date, job.Role, job.Company, job.SourceLink, job.CompanyLink,
		job.Resume, job.CoverLetter, job.Status, job.Recruiter, job.HiringMgr, job.Panel,
		job.HR, job.Comments, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting job for user %s: %w", job.UserID, err)
	}
	return nil
}

func (db *DB) ListJobs(ctx context.Context, userID string) ([]model.Job, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE user_id = ? ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing jobs for user %s: %w", userID, err)
	}
	defer rows.Close()

	jobs := []model.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

func (db *DB) GetJobByID(ctx context.Context, id string) (*model.Job, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("job", id)
		}
		return nil, fmt.Errorf("sqlite: getting job %s: %w", id, err)
	}
	return j, nil
}

func (db *DB) UpdateJob(ctx context.Context, job *model.Job) error {
	job.UpdatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE jobs SET date = ?, role = ?, company = ?, source_link = ?, company_link = ?,
			resume = ?, cover_letter = ?, status = ?, recruiter = ?, hiring_mgr = ?,
			panel = ?, hr = ?, comments = ?, updated_at = ?
		 WHERE id = ?`,
		job.Date, job.Role, job.Company, job.SourceLink, job.CompanyLink,
		job.Resume, job.CoverLetter, job.Status, job.Recruiter, job.HiringMgr,
		job.Panel, job.HR, job.Comments, job.UpdatedAt, job.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating job %s: %w", job.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: reading rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("job", job.ID)
	}
	return nil
}

func (db *DB) DeleteJob(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting job %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: reading rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("job", id)
	}
	return nil
}
