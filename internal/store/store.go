package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jobPortal/internal/database"
	"jobPortal/internal/workflow"
)

// Store 基于 GORM 实现 workflow.Repository 以及列表、搜索、通知维护等查询。
type Store struct {
	db *gorm.DB
}

// New wraps a gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ workflow.Repository = (*Store)(nil)

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return workflow.ErrNotFound
	}
	return err
}

// LoadJob reads a job with its applicants in application order.
func (s *Store) LoadJob(ctx context.Context, id uint) (*workflow.Job, error) {
	var model database.Job
	err := s.db.WithContext(ctx).
		Preload("Applications", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&model, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return jobFromModel(model), nil
}

// CreateJob inserts job and fills its id and timestamps.
func (s *Store) CreateJob(ctx context.Context, job *workflow.Job) error {
	model := jobToModel(job)
	if err := s.db.WithContext(ctx).Omit("Applications").Create(&model).Error; err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	job.ID = model.ID
	job.CreatedAt = model.CreatedAt
	job.UpdatedAt = model.UpdatedAt
	return nil
}

// SaveJob overwrites the editable columns of an existing job. Status is not
// among them; only SetJobStatus writes it.
// The applicant sequence is never written here; see AppendApplicant.
func (s *Store) SaveJob(ctx context.Context, job *workflow.Job) error {
	model := jobToModel(job)
	result := s.db.WithContext(ctx).
		Model(&database.Job{}).
		Where("id = ?", job.ID).
		Select("post_name", "company_name", "ctc", "location", "min_cgpa", "description", "number_of_positions", "questions").
		Updates(&model)
	if result.Error != nil {
		return fmt.Errorf("save job %d: %w", job.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return workflow.ErrNotFound
	}
	return nil
}

// SetJobStatus writes only the status column.
func (s *Store) SetJobStatus(ctx context.Context, id uint, status workflow.Status) error {
	result := s.db.WithContext(ctx).
		Model(&database.Job{}).
		Where("id = ?", id).
		Update("status", string(status))
	if result.Error != nil {
		return fmt.Errorf("set job %d status: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return workflow.ErrNotFound
	}
	return nil
}

// DeleteJob soft-deletes a job. Application rows stay behind as orphaned references.
func (s *Store) DeleteJob(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&database.Job{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete job %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return workflow.ErrNotFound
	}
	return nil
}

// AppendApplicant inserts (job, candidate) guarded by the unique index.
// 并发重复投递由唯一索引兜底：冲突时不插入并返回 ErrAlreadyApplied。
func (s *Store) AppendApplicant(ctx context.Context, jobID, candidateID uint) error {
	row := database.JobApplication{JobID: jobID, UserID: candidateID}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if result.Error != nil {
		return fmt.Errorf("append applicant %d to job %d: %w", candidateID, jobID, result.Error)
	}
	if result.RowsAffected == 0 {
		return workflow.ErrAlreadyApplied
	}
	return nil
}

// LoadCandidate reads a user record.
func (s *Store) LoadCandidate(ctx context.Context, id uint) (*workflow.Candidate, error) {
	var user database.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return candidateFromModel(user), nil
}

// SaveCandidate writes the profile columns a candidate may change.
func (s *Store) SaveCandidate(ctx context.Context, candidate *workflow.Candidate) error {
	result := s.db.WithContext(ctx).
		Model(&database.User{}).
		Where("id = ?", candidate.ID).
		Updates(map[string]any{
			"cgpa":              candidate.CGPA,
			"gender":            candidate.Gender,
			"dob":               candidate.DOB,
			"phone":             candidate.Phone,
			"resume_object_key": candidate.ResumeObjectKey,
		})
	if result.Error != nil {
		return fmt.Errorf("save candidate %d: %w", candidate.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return workflow.ErrNotFound
	}
	return nil
}

// SaveNotification inserts n and fills its id.
func (s *Store) SaveNotification(ctx context.Context, n *workflow.Notification) error {
	model := database.Notification{Title: n.Title, Body: n.Body, Author: n.Author}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("save notification: %w", err)
	}
	n.ID = model.ID
	n.CreatedAt = model.CreatedAt
	return nil
}
