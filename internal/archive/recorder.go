package archive

import (
	"context"
	"log/slog"

	"openchat/internal/eventbus"
)

// Recorder subscribes the archive to the event bus. Archive failures are
// logged and dropped; the system of record must never slow or fail the
// generation path.
type Recorder struct {
	archive *Archive
	log     *slog.Logger
	unsubs  []func()
}

func NewRecorder(archive *Archive) *Recorder {
	return &Recorder{
		archive: archive,
		log:     slog.Default().With(slog.String("component", "archive")),
	}
}

// Attach registers the recorder's handlers on the bus.
func (r *Recorder) Attach(bus *eventbus.Bus) {
	r.unsubs = append(r.unsubs,
		bus.Subscribe(eventbus.TopicMessageAppended, r.onMessage),
		bus.Subscribe(eventbus.TopicGenerationCompleted, r.onGeneration("completed")),
		bus.Subscribe(eventbus.TopicGenerationFallback, r.onGeneration("failed_over")),
		bus.Subscribe(eventbus.TopicGenerationFailed, r.onGeneration("failed")),
	)
}

// Detach removes the recorder's subscriptions.
func (r *Recorder) Detach() {
	for _, unsub := range r.unsubs {
		unsub()
	}
	r.unsubs = nil
}

func (r *Recorder) onMessage(e eventbus.Event) {
	payload, ok := e.Payload.(eventbus.MessageEvent)
	if !ok {
		return
	}
	if err := r.archive.RecordMessage(context.Background(), payload.ConversationKey, payload.Message); err != nil {
		r.log.Warn("failed to archive message", slog.String("error", err.Error()))
	}
}

func (r *Recorder) onGeneration(status string) eventbus.Handler {
	return func(e eventbus.Event) {
		payload, ok := e.Payload.(eventbus.GenerationEvent)
		if !ok {
			return
		}
		err := r.archive.RecordGeneration(context.Background(),
			payload.ConversationKey, payload.Provider, payload.Model, status, payload.Error)
		if err != nil {
			r.log.Warn("failed to archive generation", slog.String("error", err.Error()))
		}
	}
}
