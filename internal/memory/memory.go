// Package memory stores bounded, expiring conversation history with a
// lazily generated rolling summary.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"openchat/internal/llm"
)

const (
	keyPrefix = "conv:"

	DefaultMaxMessages      = 50
	DefaultSummaryThreshold = 10
	DefaultTTL              = 24 * time.Hour
)

// ErrMemoryUnavailable wraps store failures so callers can degrade to
// operating without persisted history.
var ErrMemoryUnavailable = errors.New("conversation memory unavailable")

// Options tunes a Memory. Zero values fall back to the defaults above.
type Options struct {
	MaxMessages      int
	SummaryThreshold int
	TTL              time.Duration
}

// Memory persists conversations in a keyed TTL store, one JSON blob per
// conversation key. Every write refreshes the sliding expiration.
type Memory struct {
	store            Store
	maxMessages      int
	summaryThreshold int
	ttl              time.Duration
	log              *slog.Logger
}

func New(store Store, opts Options) *Memory {
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = DefaultMaxMessages
	}
	if opts.SummaryThreshold <= 0 {
		opts.SummaryThreshold = DefaultSummaryThreshold
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &Memory{
		store:            store,
		maxMessages:      opts.MaxMessages,
		summaryThreshold: opts.SummaryThreshold,
		ttl:              opts.TTL,
		log:              slog.Default().With(slog.String("component", "memory")),
	}
}

// Load returns the conversation for key, or nil when none exists. Absence is
// not an error; callers start fresh.
func (m *Memory) Load(ctx context.Context, key string) (*Conversation, error) {
	data, found, err := m.store.Get(ctx, keyPrefix+key)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %s", ErrMemoryUnavailable, key, err)
	}
	if !found {
		return nil, nil
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %s", ErrMemoryUnavailable, key, err)
	}
	return &conv, nil
}

// Append loads or creates the conversation for key, appends msg, applies the
// eviction bound, generates the summary the first time the message count
// reaches the threshold, and persists with a refreshed TTL. The summary is
// never regenerated once set.
//
// Concurrent Appends on the same key race (load-modify-store); the last
// writer wins. Callers needing stronger consistency must serialize per key.
func (m *Memory) Append(ctx context.Context, key string, msg llm.Message) (*Conversation, error) {
	conv, err := m.Load(ctx, key)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if conv == nil {
		conv = &Conversation{CreatedAt: now}
	}

	conv.Messages = append(conv.Messages, msg)
	conv.evict(m.maxMessages)
	if conv.Summary == "" && len(conv.Messages) >= m.summaryThreshold {
		conv.Summary = summarize(conv.Messages)
	}
	conv.UpdatedAt = now

	data, err := json.Marshal(conv)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %s", ErrMemoryUnavailable, key, err)
	}
	if err := m.store.Set(ctx, keyPrefix+key, data, m.ttl); err != nil {
		return nil, fmt.Errorf("%w: save %s: %s", ErrMemoryUnavailable, key, err)
	}
	return conv, nil
}

// Delete removes the conversation for key. Deleting an absent key succeeds.
func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := m.store.Delete(ctx, keyPrefix+key); err != nil {
		return fmt.Errorf("%w: delete %s: %s", ErrMemoryUnavailable, key, err)
	}
	return nil
}
