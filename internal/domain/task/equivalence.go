package task

import "autoparts/catalog/internal/domain"

// EquivalenceTask asks a worker to build and store the equivalents section of an article.
type EquivalenceTask struct {
	Query domain.EquivalenceQuery `json:"query"`
}

func (t *EquivalenceTask) TaskType() string {
	return TypeEquivalence
}

func (t *EquivalenceTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}

// EquivalenceRetryTask is an EquivalenceTask that failed at least once.
type EquivalenceRetryTask struct {
	Query      domain.EquivalenceQuery `json:"query"`
	RetryCount int                     `json:"retry_count"` // Number of failed attempts so far
	Error      string                  `json:"error"`       // Error message from the last failure
}

func (t *EquivalenceRetryTask) TaskType() string {
	return TypeEquivalenceRetry
}

func (t *EquivalenceRetryTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
