package event

import (
	"github.com/pusher/pusher-http-go/v5"
	"go-crash/internal/lib/logger/sl"
	"golang.org/x/exp/slog"
)

// PusherPublisher delivers events through the hosted Pusher service instead
// of the in-house ws hub. Selected via config.
type PusherPublisher struct {
	log    *slog.Logger
	pusher *pusher.Client
}

func NewPusherPublisher(log *slog.Logger, pusherClient *pusher.Client) *PusherPublisher {
	return &PusherPublisher{
		log:    log,
		pusher: pusherClient,
	}
}

func (p *PusherPublisher) TriggerEvent(m Message) error {
	if err := p.pusher.Trigger(m.Channel, m.Event, m.Data); err != nil {
		p.log.Error("failed to trigger pusher event", sl.Err(err))

		return err
	}

	return nil
}
