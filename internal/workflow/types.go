package workflow

import (
	"context"
	"time"
)

// Job 表示一条招聘岗位记录，Applicants 按投递顺序排列且不重复。
type Job struct {
	ID          uint
	Role        string
	Company     string
	CTC         float64
	Location    string
	MinCGPA     float64
	Status      Status
	Description string
	Positions   int
	Applicants  []uint
	Questions   []Question
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Question is one multiple-choice entry of a job's assessment.
// CorrectAnswer holds the option text, not its index.
type Question struct {
	Prompt        string
	Options       [4]string
	CorrectAnswer string
}

// Candidate 表示求职者；CGPA 为空表示尚未填写。
type Candidate struct {
	ID              uint
	Username        string
	CGPA            *float64
	IsAdmin         bool
	Gender          string
	DOB             string
	Phone           string
	ResumeObjectKey string
}

// Notification is the broadcast record produced by job mutations.
type Notification struct {
	ID        uint
	Title     string
	Body      string
	Author    string
	CreatedAt time.Time
}

// AuthContext carries the caller identity supplied by the auth layer.
type AuthContext struct {
	CandidateID uint
	IsAdmin     bool
}

// Repository is the persistence collaborator used by Service.
// Implementations return ErrNotFound for unknown ids and must make
// AppendApplicant atomic: a concurrent duplicate yields ErrAlreadyApplied.
type Repository interface {
	LoadJob(ctx context.Context, id uint) (*Job, error)
	CreateJob(ctx context.Context, job *Job) error
	SaveJob(ctx context.Context, job *Job) error
	SetJobStatus(ctx context.Context, id uint, status Status) error
	DeleteJob(ctx context.Context, id uint) error
	AppendApplicant(ctx context.Context, jobID, candidateID uint) error
	LoadCandidate(ctx context.Context, id uint) (*Candidate, error)
	SaveCandidate(ctx context.Context, candidate *Candidate) error
	SaveNotification(ctx context.Context, n *Notification) error
}
