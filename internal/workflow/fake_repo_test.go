package workflow

import (
	"context"
	"errors"
	"sync"
)

type fakeRepo struct {
	mu            sync.Mutex
	jobs          map[uint]*Job
	candidates    map[uint]*Candidate
	notifications []Notification
	nextJobID     uint

	saveNotificationErr error
	appendErr           error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		jobs:       map[uint]*Job{},
		candidates: map[uint]*Candidate{},
		nextJobID:  1,
	}
}

func cloneJob(j *Job) *Job {
	cp := *j
	cp.Applicants = append([]uint(nil), j.Applicants...)
	cp.Questions = append([]Question(nil), j.Questions...)
	return &cp
}

func (r *fakeRepo) LoadJob(_ context.Context, id uint) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(j), nil
}

func (r *fakeRepo) CreateJob(_ context.Context, job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job.ID = r.nextJobID
	r.nextJobID++
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *fakeRepo) SaveJob(_ context.Context, job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.jobs[job.ID]
	if !ok {
		return ErrNotFound
	}
	cp := cloneJob(job)
	cp.Applicants = existing.Applicants
	cp.Status = existing.Status
	r.jobs[job.ID] = cp
	return nil
}

func (r *fakeRepo) SetJobStatus(_ context.Context, id uint, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	j.Status = status
	return nil
}

func (r *fakeRepo) DeleteJob(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(r.jobs, id)
	return nil
}

func (r *fakeRepo) AppendApplicant(_ context.Context, jobID, candidateID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	j, ok := r.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	for _, id := range j.Applicants {
		if id == candidateID {
			return ErrAlreadyApplied
		}
	}
	j.Applicants = append(j.Applicants, candidateID)
	return nil
}

func (r *fakeRepo) LoadCandidate(_ context.Context, id uint) (*Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.candidates[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeRepo) SaveCandidate(_ context.Context, c *Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.candidates[c.ID] = &cp
	return nil
}

func (r *fakeRepo) SaveNotification(_ context.Context, n *Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveNotificationErr != nil {
		return r.saveNotificationErr
	}
	n.ID = uint(len(r.notifications) + 1)
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r *fakeRepo) addCandidate(id uint, cgpa *float64) {
	r.candidates[id] = &Candidate{ID: id, CGPA: cgpa}
}

func (r *fakeRepo) addJob(job Job) uint {
	job.ID = r.nextJobID
	r.nextJobID++
	if job.Status == "" {
		job.Status = DefaultStatus
	}
	r.jobs[job.ID] = cloneJob(&job)
	return job.ID
}

type fakeBroadcaster struct {
	sent []Notification
	err  error
}

func (b *fakeBroadcaster) Broadcast(_ context.Context, n Notification) error {
	if b.err != nil {
		return b.err
	}
	b.sent = append(b.sent, n)
	return nil
}

var errBoom = errors.New("boom")

func score(v float64) *float64 { return &v }
