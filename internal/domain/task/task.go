package task

import "encoding/json"

// Task is a unit of background work carried over a Redis stream.
type Task interface {
	TaskType() string
	TaskValue() ([]byte, error)
}

// Task type names double as stream name suffixes.
const (
	TypeEquivalence      = "EquivalenceTask"
	TypeEquivalenceRetry = "EquivalenceRetryTask"
)

// Types lists every task type a worker consumes.
var Types = []string{TypeEquivalence, TypeEquivalenceRetry}

// DefaultTaskValue provides a common implementation for TaskValue
func DefaultTaskValue(task interface{}) ([]byte, error) {
	return json.Marshal(task)
}

func UnmarshalTask[T Task](task []byte) (T, error) {
	var t T
	err := json.Unmarshal(task, &t)
	return t, err
}
