package workflow

import "fmt"

// Status is the lifecycle state of a job posting.
type Status string

const (
	StatusActive    Status = "active"
	StatusInterview Status = "interview"
	StatusOver      Status = "over"
)

// DefaultStatus is assigned to newly created jobs.
const DefaultStatus = StatusActive

// ParseStatus accepts only the three known states; anything else is rejected.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusActive, StatusInterview, StatusOver:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

// Valid reports whether s is a recognized status.
func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}
