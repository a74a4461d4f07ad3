package store

import (
	"context"
	"fmt"
	"strings"

	"jobPortal/internal/database"
	"jobPortal/internal/workflow"
)

// JobPage 是分页查询结果。
type JobPage struct {
	Jobs       []workflow.Job
	Page       int
	PageSize   int
	Total      int64
	TotalPages int
}

// ApplicantSummary is the public view of an applicant shown on a job page.
type ApplicantSummary struct {
	ID       uint
	Username string
	CGPA     *float64
}

// ListJobs returns one page of jobs in creation order. page starts at 1.
func (s *Store) ListJobs(ctx context.Context, page, pageSize int) (JobPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&database.Job{}).Count(&total).Error; err != nil {
		return JobPage{}, fmt.Errorf("count jobs: %w", err)
	}

	var models []database.Job
	if err := s.db.WithContext(ctx).
		Order("id ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&models).Error; err != nil {
		return JobPage{}, fmt.Errorf("list jobs: %w", err)
	}

	jobs := make([]workflow.Job, 0, len(models))
	for _, m := range models {
		jobs = append(jobs, *jobFromModel(m))
	}

	return JobPage{
		Jobs:       jobs,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

// SearchJobsByCompany matches name as a literal substring of the company name.
func (s *Store) SearchJobsByCompany(ctx context.Context, name string) ([]workflow.Job, error) {
	pattern := "%" + escapeLike(name) + "%"

	var models []database.Job
	if err := s.db.WithContext(ctx).
		Where(`company_name LIKE ? ESCAPE '\'`, pattern).
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("search jobs: %w", err)
	}

	jobs := make([]workflow.Job, 0, len(models))
	for _, m := range models {
		jobs = append(jobs, *jobFromModel(m))
	}
	return jobs, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListApplicants resolves applicant ids to user summaries, keeping application order.
// Ids whose user no longer exists are skipped.
func (s *Store) ListApplicants(ctx context.Context, ids []uint) ([]ApplicantSummary, error) {
	if len(ids) == 0 {
		return []ApplicantSummary{}, nil
	}

	var users []database.User
	if err := s.db.WithContext(ctx).
		Select("id", "username", "cgpa").
		Where("id IN ?", ids).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list applicants: %w", err)
	}

	byID := make(map[uint]database.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]ApplicantSummary, 0, len(ids))
	for _, id := range ids {
		u, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, ApplicantSummary{ID: u.ID, Username: u.Username, CGPA: u.CGPA})
	}
	return out, nil
}

// ListNotifications returns notifications newest first.
func (s *Store) ListNotifications(ctx context.Context) ([]workflow.Notification, error) {
	var models []database.Notification
	if err := s.db.WithContext(ctx).Order("id DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	out := make([]workflow.Notification, 0, len(models))
	for _, m := range models {
		out = append(out, notificationFromModel(m))
	}
	return out, nil
}

// GetNotification reads one notification.
func (s *Store) GetNotification(ctx context.Context, id uint) (*workflow.Notification, error) {
	var model database.Notification
	if err := s.db.WithContext(ctx).First(&model, id).Error; err != nil {
		return nil, notFound(err)
	}
	n := notificationFromModel(model)
	return &n, nil
}

// UpdateNotification overwrites title, body and author.
func (s *Store) UpdateNotification(ctx context.Context, n *workflow.Notification) error {
	result := s.db.WithContext(ctx).
		Model(&database.Notification{}).
		Where("id = ?", n.ID).
		Updates(map[string]any{
			"title":  n.Title,
			"body":   n.Body,
			"author": n.Author,
		})
	if result.Error != nil {
		return fmt.Errorf("update notification %d: %w", n.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return workflow.ErrNotFound
	}
	return nil
}

// DeleteNotification removes one notification.
func (s *Store) DeleteNotification(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&database.Notification{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete notification %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return workflow.ErrNotFound
	}
	return nil
}
