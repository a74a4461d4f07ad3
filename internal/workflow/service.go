package workflow

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"jobPortal/internal/metrics"
)

// Service 编排投递、测评、岗位生命周期与通知分发。
// 每次调用都是独立的读-算-写，不持有跨请求的可变状态。
type Service struct {
	repo   Repository
	fanout Fanout
	logger *slog.Logger
}

// NewService wires the workflow against a repository and a fan-out.
func NewService(repo Repository, fanout Fanout, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, fanout: fanout, logger: logger}
}

// MutationResult is returned by operations that emit a post-commit event.
// Degraded is non-nil when the job write committed but fan-out failed.
type MutationResult struct {
	Job      *Job
	Degraded *DegradedError
}

// JobInput carries the administrator-editable fields of a job.
type JobInput struct {
	Role        string
	Company     string
	CTC         float64
	Location    string
	MinCGPA     float64
	Description string
	Positions   int
	Questions   []Question
}

// ProfileInput carries candidate-editable profile fields; nil fields are left untouched.
type ProfileInput struct {
	CGPA   *float64
	Gender *string
	DOB    *string
	Phone  *string
}

// Apply records candidateID as an applicant of jobID.
// candidateID 为 0 时使用调用者本人；仅管理员可代他人投递。
func (s *Service) Apply(ctx context.Context, auth AuthContext, jobID, candidateID uint) (MutationResult, error) {
	if candidateID == 0 {
		candidateID = auth.CandidateID
	}
	if !auth.IsAdmin && candidateID != auth.CandidateID {
		return MutationResult{}, ErrForbidden
	}

	job, err := s.repo.LoadJob(ctx, jobID)
	if err != nil {
		return MutationResult{}, Persistence("load job", err)
	}
	candidate, err := s.repo.LoadCandidate(ctx, candidateID)
	if err != nil {
		return MutationResult{}, Persistence("load candidate", err)
	}

	if !IsEligible(candidate.CGPA, job.MinCGPA) {
		metrics.RecordApplication(metrics.OutcomeNotEligible)
		return MutationResult{}, ErrNotEligible
	}
	if HasApplied(job, candidateID) {
		metrics.RecordApplication(metrics.OutcomeAlreadyApplied)
		return MutationResult{}, ErrAlreadyApplied
	}

	if err := s.repo.AppendApplicant(ctx, jobID, candidateID); err != nil {
		err = Persistence("append applicant", err)
		if errors.Is(err, ErrAlreadyApplied) {
			metrics.RecordApplication(metrics.OutcomeAlreadyApplied)
		}
		return MutationResult{}, err
	}
	job.Applicants = append(job.Applicants, candidateID)
	metrics.RecordApplication(metrics.OutcomeApplied)

	s.logger.Info("candidate applied",
		slog.Uint64("job_id", uint64(jobID)),
		slog.Uint64("candidate_id", uint64(candidateID)),
	)

	return MutationResult{
		Job:      job,
		Degraded: s.publish(ctx, Event{Kind: EventApplied, Job: *job, CandidateID: candidateID}),
	}, nil
}

// Assessment returns the question sheet of a job the caller applied to.
func (s *Service) Assessment(ctx context.Context, auth AuthContext, jobID uint) (*Job, []QuestionSheet, error) {
	job, err := s.repo.LoadJob(ctx, jobID)
	if err != nil {
		return nil, nil, Persistence("load job", err)
	}
	if !HasApplied(job, auth.CandidateID) {
		return nil, nil, ErrNotApplied
	}
	return job, Sheet(job), nil
}

// SubmitAssessment scores the caller's answers. Nothing is persisted.
func (s *Service) SubmitAssessment(ctx context.Context, auth AuthContext, jobID uint, answers Answers) (AssessmentResult, error) {
	job, err := s.repo.LoadJob(ctx, jobID)
	if err != nil {
		return AssessmentResult{}, Persistence("load job", err)
	}
	if !HasApplied(job, auth.CandidateID) {
		return AssessmentResult{}, ErrNotApplied
	}
	if err := ValidateAnswers(job, answers); err != nil {
		return AssessmentResult{}, err
	}

	result := Score(job, answers)
	metrics.RecordAssessment(string(result.Verdict))
	s.logger.Info("assessment scored",
		slog.Uint64("job_id", uint64(jobID)),
		slog.Uint64("candidate_id", uint64(auth.CandidateID)),
		slog.Int("correct", result.MarksCorrect),
		slog.Int("total", result.Total),
		slog.String("verdict", string(result.Verdict)),
	)
	return result, nil
}

// SetStatus moves a job to any recognized status. Unknown values are rejected.
func (s *Service) SetStatus(ctx context.Context, auth AuthContext, jobID uint, raw string) (*Job, error) {
	if !auth.IsAdmin {
		return nil, ErrForbidden
	}
	status, err := ParseStatus(raw)
	if err != nil {
		return nil, err
	}

	job, err := s.repo.LoadJob(ctx, jobID)
	if err != nil {
		return nil, Persistence("load job", err)
	}
	if err := s.repo.SetJobStatus(ctx, jobID, status); err != nil {
		return nil, Persistence("set job status", err)
	}
	job.Status = status
	return job, nil
}

// CreateJob stores a new posting in the default status.
func (s *Service) CreateJob(ctx context.Context, auth AuthContext, in JobInput) (MutationResult, error) {
	if !auth.IsAdmin {
		return MutationResult{}, ErrForbidden
	}
	in = normalizeJobInput(in)
	if err := validateJobInput(in); err != nil {
		return MutationResult{}, err
	}

	job := &Job{Status: DefaultStatus}
	applyJobInput(job, in)
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return MutationResult{}, Persistence("create job", err)
	}

	return MutationResult{
		Job:      job,
		Degraded: s.publish(ctx, Event{Kind: EventJobCreated, Job: *job}),
	}, nil
}

// UpdateJob overwrites the editable fields. Questions are replaced only when provided.
func (s *Service) UpdateJob(ctx context.Context, auth AuthContext, jobID uint, in JobInput) (MutationResult, error) {
	if !auth.IsAdmin {
		return MutationResult{}, ErrForbidden
	}
	in = normalizeJobInput(in)
	if err := validateJobInput(in); err != nil {
		return MutationResult{}, err
	}

	job, err := s.repo.LoadJob(ctx, jobID)
	if err != nil {
		return MutationResult{}, Persistence("load job", err)
	}
	applyJobInput(job, in)
	if err := s.repo.SaveJob(ctx, job); err != nil {
		return MutationResult{}, Persistence("save job", err)
	}

	return MutationResult{
		Job:      job,
		Degraded: s.publish(ctx, Event{Kind: EventJobEdited, Job: *job}),
	}, nil
}

// DeleteJob removes a posting; applicant references are left orphaned.
func (s *Service) DeleteJob(ctx context.Context, auth AuthContext, jobID uint) (MutationResult, error) {
	if !auth.IsAdmin {
		return MutationResult{}, ErrForbidden
	}

	job, err := s.repo.LoadJob(ctx, jobID)
	if err != nil {
		return MutationResult{}, Persistence("load job", err)
	}
	if err := s.repo.DeleteJob(ctx, jobID); err != nil {
		return MutationResult{}, Persistence("delete job", err)
	}

	return MutationResult{
		Job:      job,
		Degraded: s.publish(ctx, Event{Kind: EventJobDeleted, Job: *job}),
	}, nil
}

// UpdateProfile edits a candidate's own profile (or any profile for admins).
func (s *Service) UpdateProfile(ctx context.Context, auth AuthContext, candidateID uint, in ProfileInput) (*Candidate, error) {
	if !canActFor(auth, candidateID) {
		return nil, ErrForbidden
	}
	if in.CGPA != nil && !onScale(*in.CGPA) {
		return nil, ErrInvalidProfile
	}

	candidate, err := s.repo.LoadCandidate(ctx, candidateID)
	if err != nil {
		return nil, Persistence("load candidate", err)
	}
	if in.CGPA != nil {
		v := *in.CGPA
		candidate.CGPA = &v
	}
	if in.Gender != nil {
		candidate.Gender = strings.TrimSpace(*in.Gender)
	}
	if in.DOB != nil {
		candidate.DOB = strings.TrimSpace(*in.DOB)
	}
	if in.Phone != nil {
		candidate.Phone = strings.TrimSpace(*in.Phone)
	}

	if err := s.repo.SaveCandidate(ctx, candidate); err != nil {
		return nil, Persistence("save candidate", err)
	}
	return candidate, nil
}

// AttachResume records the object key of a candidate's uploaded resume and
// returns the key it replaced.
func (s *Service) AttachResume(ctx context.Context, auth AuthContext, candidateID uint, objectKey string) (string, error) {
	if !canActFor(auth, candidateID) {
		return "", ErrForbidden
	}
	candidate, err := s.repo.LoadCandidate(ctx, candidateID)
	if err != nil {
		return "", Persistence("load candidate", err)
	}
	previous := candidate.ResumeObjectKey
	candidate.ResumeObjectKey = objectKey
	if err := s.repo.SaveCandidate(ctx, candidate); err != nil {
		return "", Persistence("save candidate", err)
	}
	return previous, nil
}

// CanActFor reports whether auth may read or modify candidateID's profile.
func CanActFor(auth AuthContext, candidateID uint) bool { return canActFor(auth, candidateID) }

func canActFor(auth AuthContext, candidateID uint) bool {
	return auth.IsAdmin || (auth.CandidateID != 0 && auth.CandidateID == candidateID)
}

func (s *Service) publish(ctx context.Context, event Event) *DegradedError {
	if s.fanout == nil {
		return nil
	}
	// 主写入已提交，分发不应受请求取消影响。
	if err := s.fanout.Publish(context.WithoutCancel(ctx), event); err != nil {
		metrics.RecordFanoutFailure(string(event.Kind))
		s.logger.Warn("notification fan-out degraded",
			slog.String("event", string(event.Kind)),
			slog.Uint64("job_id", uint64(event.Job.ID)),
			slog.Any("error", err),
		)
		return &DegradedError{Event: event.Kind, Err: err}
	}
	return nil
}

func normalizeJobInput(in JobInput) JobInput {
	in.Role = strings.TrimSpace(in.Role)
	in.Company = strings.TrimSpace(in.Company)
	in.Location = strings.TrimSpace(in.Location)
	in.Description = strings.TrimSpace(in.Description)
	return in
}

func validateJobInput(in JobInput) error {
	switch {
	case in.Role == "":
		return invalidJob("role is required")
	case in.Company == "":
		return invalidJob("company is required")
	case in.Location == "":
		return invalidJob("location is required")
	case !finite(in.CTC) || in.CTC < 0:
		return invalidJob("ctc must be a non-negative number")
	case !onScale(in.MinCGPA):
		return invalidJob("cgpa threshold must be within 0-10")
	case in.Positions < 0:
		return invalidJob("number of positions must not be negative")
	}

	for i, q := range in.Questions {
		if strings.TrimSpace(q.Prompt) == "" {
			return invalidJob("question prompt is required")
		}
		matched := false
		for _, opt := range q.Options {
			if opt == "" {
				return invalidJob("question options must not be empty")
			}
			if opt == q.CorrectAnswer {
				matched = true
			}
		}
		if !matched {
			return invalidJob("question " + strconv.Itoa(i) + " correct answer must be one of its options")
		}
	}
	return nil
}

// NaN 与 ±Inf 在比较中总是 false，必须单独排除。
func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// onScale reports whether v is a CGPA on the 0-10 scale.
func onScale(v float64) bool { return finite(v) && v >= 0 && v <= 10 }

func applyJobInput(job *Job, in JobInput) {
	job.Role = in.Role
	job.Company = in.Company
	job.CTC = in.CTC
	job.Location = in.Location
	job.MinCGPA = in.MinCGPA
	job.Description = in.Description
	job.Positions = in.Positions
	if in.Questions != nil {
		job.Questions = append([]Question(nil), in.Questions...)
	}
}
