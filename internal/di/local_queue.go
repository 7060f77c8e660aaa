package di

import (
	"context"
	"fmt"
	"sync"

	applogger "TwQuant/pkg/logger"
	"TwQuant/pkg/queue"
)

// localQueue dispatches jobs in-process. It stands in for the Redis
// queue in single-node deployments with Redis disabled.
type localQueue struct {
	l    *applogger.Logger
	mu   sync.RWMutex
	jobs map[string]queue.Job
}

func newLocalQueue(l *applogger.Logger) *localQueue {
	return &localQueue{l: l, jobs: make(map[string]queue.Job)}
}

func (q *localQueue) register(j queue.Job) {
	q.mu.Lock()
	q.jobs[j.Type()] = j
	q.mu.Unlock()
}

func (q *localQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	q.mu.RLock()
	j, ok := q.jobs[msgType]
	q.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no job registered for %q", msgType)
	}
	go func() {
		if err := j.Handle(context.Background(), payload); err != nil && q.l != nil {
			q.l.Error("local job failed", applogger.String("type", msgType), applogger.Error(err))
		}
	}()
	return nil
}

var _ queue.QueueService = (*localQueue)(nil)
