package queue

import (
	"testing"

	"autoparts/catalog/internal/domain/task"

	"github.com/redis/go-redis/v9"
)

func TestStreamName(t *testing.T) {
	if got, want := StreamName(task.TypeEquivalence), "autoparts:stream:EquivalenceTask"; got != want {
		t.Errorf("StreamName = %q, want %q", got, want)
	}
}

func TestTaskData(t *testing.T) {
	msg := redis.XMessage{ID: "1-0", Values: map[string]interface{}{
		fieldTaskType: task.TypeEquivalence,
		fieldTaskData: `{"query":{"articleId":5,"countryId":62}}`,
	}}

	data, err := TaskData(msg)
	if err != nil {
		t.Fatalf("TaskData: %v", err)
	}

	tk, err := task.UnmarshalTask[*task.EquivalenceTask](data)
	if err != nil {
		t.Fatalf("UnmarshalTask: %v", err)
	}
	if tk.Query.ArticleID != 5 || tk.Query.CountryID != 62 {
		t.Errorf("query = %+v", tk.Query)
	}
}

func TestTaskDataMissingField(t *testing.T) {
	if _, err := TaskData(redis.XMessage{ID: "1-0", Values: map[string]interface{}{}}); err == nil {
		t.Error("expected an error for a message without task data")
	}
	if _, err := TaskData(redis.XMessage{ID: "1-0", Values: map[string]interface{}{fieldTaskData: 3}}); err == nil {
		t.Error("expected an error for a non-string payload")
	}
}
