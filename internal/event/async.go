package event

import (
	"go-crash/internal/job"
	"go-crash/internal/lib/logger/sl"
	"golang.org/x/exp/slog"
)

// AsyncPublisher hands messages to the job pool so the engine's tick loop
// never blocks on a slow subscriber.
type AsyncPublisher struct {
	log  *slog.Logger
	pool *job.Pool
	next Publisher
}

func NewAsyncPublisher(log *slog.Logger, pool *job.Pool, next Publisher) *AsyncPublisher {
	return &AsyncPublisher{
		log:  log,
		pool: pool,
		next: next,
	}
}

func (p *AsyncPublisher) TriggerEvent(m Message) error {
	p.pool.Dispatch(&sendEventJob{publisher: p.next, message: m, log: p.log}, 0)

	return nil
}

type sendEventJob struct {
	publisher Publisher
	message   Message
	log       *slog.Logger
}

func (j *sendEventJob) Execute() {
	if err := j.publisher.TriggerEvent(j.message); err != nil {
		j.log.Error("failed to deliver event",
			sl.String("event", j.message.Event),
			sl.Err(err))
	}
}
