package tasks

import (
	"context"
	"time"
)

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetSourceName() string
	Start()
	GetDuration() time.Duration
}

// TaskRunnerInterface is the worker-pool surface used by the main
// application and the API. There is deliberately no interval scheduling
// here: sources are ingested at startup and on demand.
type TaskRunnerInterface interface {
	Start()
	Stop()
	EnqueueIngest(sourceName string) error
}
