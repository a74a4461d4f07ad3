package workflow

// IsEligible reports whether a candidate score meets the job threshold.
// A missing score is never eligible.
func IsEligible(candidateScore *float64, threshold float64) bool {
	if candidateScore == nil {
		return false
	}
	return *candidateScore >= threshold
}

// HasApplied scans the applicant sequence by candidate id.
func HasApplied(job *Job, candidateID uint) bool {
	if job == nil {
		return false
	}
	for _, id := range job.Applicants {
		if id == candidateID {
			return true
		}
	}
	return false
}
