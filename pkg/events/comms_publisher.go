package events

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/kenchiwar/fe-invetory/pkg/commsutil"
)

const commsPublisherLogPrefix = "events:comms_publisher"

// CommsPublisherOpts configures CommsPublisher. Nil or zero values use defaults.
type CommsPublisherOpts struct {
	// GlobalChangeSubject overrides the subject that receives every change.
	GlobalChangeSubject string
	// Source is stamped on events that carry none, so subscribers can skip their own.
	Source string
}

// CommsPublisher publishes change events to COMMS subjects.
type CommsPublisher struct {
	nc                  *comms.Conn
	globalChangeSubject string
	source              string
}

// NewCommsPublisher creates a new CommsPublisher. Pass nil for opts to use defaults.
func NewCommsPublisher(nc *comms.Conn, opts *CommsPublisherOpts) *CommsPublisher {
	p := &CommsPublisher{nc: nc, globalChangeSubject: commsutil.SubjectChangeEvent}
	if opts != nil {
		if opts.GlobalChangeSubject != "" {
			p.globalChangeSubject = opts.GlobalChangeSubject
		}
		p.source = opts.Source
	}
	return p
}

// Publish sends event to the per-entity subject and then to the global subject.
func (p *CommsPublisher) Publish(_ context.Context, event *EntityChanged) error {
	if event.Source == "" {
		event.Source = p.source
	}
	data, err := commsutil.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", commsPublisherLogPrefix, err)
	}

	entitySubject := commsutil.BuildChangeSubject(event.Entity)
	if err := p.nc.Publish(entitySubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, entitySubject, err))
		return err
	}
	if err := p.nc.Publish(p.globalChangeSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, p.globalChangeSubject, err))
		return err
	}

	slog.Debug(fmt.Sprintf("%s - Published %s %s id=%d", commsPublisherLogPrefix, event.Action, event.Entity, event.ID))
	return nil
}

// SubscribeComms delivers every per-entity change to h until the returned
// subscription is drained or the connection closes.
func SubscribeComms(nc *comms.Conn, h Handler) (*comms.Subscription, error) {
	sub, err := nc.Subscribe(commsutil.SubjectChangeWildcard, func(msg *comms.Msg) {
		event, err := commsutil.DecodePayload[EntityChanged](msg.Data)
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - Dropping undecodable change on %s: %v", commsPublisherLogPrefix, msg.Subject, err))
			return
		}
		h(context.Background(), &event)
	})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to subscribe to %s: %w", commsPublisherLogPrefix, commsutil.SubjectChangeWildcard, err)
	}
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", commsPublisherLogPrefix, commsutil.SubjectChangeWildcard))
	return sub, nil
}
