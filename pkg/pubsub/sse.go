package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ritzau/include-cycles/pkg/logging"
)

var (
	// ErrUnknownTopic is returned for topics other than TopicStatus and TopicReport
	ErrUnknownTopic = errors.New("unknown topic")
	// ErrClosed is returned once the publisher has been closed
	ErrClosed = errors.New("publisher is closed")
)

// subscriberBuffer bounds the events queued for a slow client
const subscriberBuffer = 16

// topic holds the subscribers of one topic and its latest event, which is
// replayed to clients that connect after it was published
type topic struct {
	subs    map[*sseSubscription]struct{}
	latest  *Event
	version int
}

// SSEPublisher implements Publisher for Server-Sent Event streams
type SSEPublisher struct {
	mu     sync.Mutex
	topics map[string]*topic
	closed bool
}

var _ Publisher = (*SSEPublisher)(nil)

// NewSSEPublisher creates a publisher for the status and report topics
func NewSSEPublisher() *SSEPublisher {
	p := &SSEPublisher{topics: make(map[string]*topic)}
	for _, name := range []string{TopicStatus, TopicReport} {
		p.topics[name] = &topic{subs: make(map[*sseSubscription]struct{})}
	}
	return p
}

// Subscribe registers a subscriber and queues the latest event of the
// topic, if any. The subscription closes with ctx.
func (p *SSEPublisher) Subscribe(ctx context.Context, name string) (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	t, ok := p.topics[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, name)
	}

	sub := &sseSubscription{
		topic:     name,
		events:    make(chan Event, subscriberBuffer),
		publisher: p,
	}
	t.subs[sub] = struct{}{}
	if t.latest != nil {
		sub.events <- *t.latest
	}

	go func() {
		<-ctx.Done()
		sub.Close()
	}()

	return sub, nil
}

// PublishStatus announces a run state change; the event type is the state
func (p *SSEPublisher) PublishStatus(status AnalysisStatus) error {
	return p.publish(TopicStatus, status.State, status)
}

// PublishReport announces a finished report
func (p *SSEPublisher) PublishReport(data ReportData) error {
	return p.publish(TopicReport, EventComplete, data)
}

func (p *SSEPublisher) publish(name, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", name, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	t := p.topics[name]
	t.version++
	event := Event{Topic: name, Type: eventType, Data: payload, Version: t.version}
	t.latest = &event

	for sub := range t.subs {
		select {
		case sub.events <- event:
		default:
			// The client reconnects and gets the latest event replayed
			logging.New("pubsub").Warn("subscriber is falling behind, dropping event",
				"topic", name, "type", eventType, "version", event.Version)
		}
	}
	return nil
}

// Close ends every subscription. Publishing and subscribing fail afterwards.
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	for _, t := range p.topics {
		for sub := range t.subs {
			sub.mu.Lock()
			sub.closed = true
			close(sub.events)
			sub.mu.Unlock()
		}
		clear(t.subs)
	}
	return nil
}

func (p *SSEPublisher) unsubscribe(sub *sseSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.topics[sub.topic]; ok {
		delete(t.subs, sub)
	}
}

type sseSubscription struct {
	topic     string
	events    chan Event
	publisher *SSEPublisher

	mu     sync.Mutex
	closed bool
}

func (s *sseSubscription) Topic() string {
	return s.topic
}

func (s *sseSubscription) Events() <-chan Event {
	return s.events
}

// Close unsubscribes. The events channel is only closed by the publisher,
// which is the only sender.
func (s *sseSubscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	// The publisher lock is taken after releasing ours; Close takes them
	// in the opposite order
	s.publisher.unsubscribe(s)
	return nil
}

// WriteSSE writes one event frame: "id: {version}\nevent: {topic}\ndata: {json}\n\n"
func WriteSSE(w io.Writer, event Event) error {
	frame, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.Version, event.Topic, frame)
	return err
}
