package tasks

import (
	"testing"
	"time"
)

func TestNewTaskIdentity(t *testing.T) {
	task := NewTask(TaskTypeIngestSource, "news")

	if task.GetType() != TaskTypeIngestSource {
		t.Errorf("Expected ingest task type, got: %s", task.GetType())
	}
	if task.GetSourceName() != "news" {
		t.Errorf("Expected source name, got: %s", task.GetSourceName())
	}
	if task.GetID() == "" {
		t.Error("Expected non-empty task ID")
	}

	other := NewTask(TaskTypeIngestSource, "news")
	if task.GetID() == other.GetID() {
		t.Error("Expected unique task IDs")
	}
}

func TestTaskDuration(t *testing.T) {
	task := NewTask(TaskTypeExtractContent, "news")

	if task.GetDuration() != 0 {
		t.Error("Expected zero duration before start")
	}

	task.Start()
	time.Sleep(5 * time.Millisecond)

	if task.GetDuration() <= 0 {
		t.Error("Expected positive duration after start")
	}
}
