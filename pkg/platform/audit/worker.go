package audit

import "context"

// Worker consumes audit events from a channel and persists them. It keeps
// background processing off the request path without wiring a broker.
type Worker struct {
	store Store
	inbox <-chan Event
}

func NewWorker(store Store, inbox <-chan Event) *Worker {
	return &Worker{store: store, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				return err
			}
		}
	}
}

// ChannelEmitter feeds a Worker. Emit drops the event when the inbox is full
// so a stalled sink never blocks a request.
type ChannelEmitter struct {
	inbox chan<- Event
}

func NewChannelEmitter(inbox chan<- Event) *ChannelEmitter {
	return &ChannelEmitter{inbox: inbox}
}

func (e *ChannelEmitter) Emit(_ context.Context, event Event) error {
	select {
	case e.inbox <- event:
		return nil
	default:
		return ErrInboxFull
	}
}
