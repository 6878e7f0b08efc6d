package pubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func receive(t *testing.T, sub Subscription) Event {
	t.Helper()
	select {
	case event := <-sub.Events():
		return event
	case <-time.After(time.Second):
		t.Fatalf("Timeout waiting for %s event", sub.Topic())
	}
	return Event{}
}

func expectNothing(t *testing.T, sub Subscription) {
	t.Helper()
	select {
	case event := <-sub.Events():
		t.Errorf("Received unexpected %s event version %d", event.Topic, event.Version)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestReplayLatestStatus(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	for i := 1; i <= 3; i++ {
		if err := pub.PublishStatus(AnalysisStatus{State: "analyzing", Run: i}); err != nil {
			t.Fatalf("Failed to publish status %d: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sub, err := pub.Subscribe(ctx, TopicStatus)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	// A late client only needs the current state
	event := receive(t, sub)
	if event.Version != 3 || event.Type != "analyzing" {
		t.Errorf("Expected analyzing event version 3, got %s version %d", event.Type, event.Version)
	}
	var status AnalysisStatus
	if err := json.Unmarshal(event.Data, &status); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if status.Run != 3 {
		t.Errorf("Expected run 3, got %d", status.Run)
	}
	expectNothing(t, sub)
}

func TestLiveReportEvents(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sub, err := pub.Subscribe(ctx, TopicReport)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	// Nothing published yet, nothing to replay
	expectNothing(t, sub)

	if err := pub.PublishReport(ReportData{Cycles: 2, Changed: true, AddedEdges: 1}); err != nil {
		t.Fatalf("Failed to publish report: %v", err)
	}

	event := receive(t, sub)
	if event.Type != EventComplete || event.Version != 1 {
		t.Errorf("Expected complete event version 1, got %s version %d", event.Type, event.Version)
	}
	var data ReportData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		t.Fatalf("Failed to decode report: %v", err)
	}
	if data.Cycles != 2 || !data.Changed || data.AddedEdges != 1 {
		t.Errorf("Unexpected report data: %+v", data)
	}
}

func TestUnknownTopic(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	_, err := pub.Subscribe(context.Background(), "graph")
	if !errors.Is(err, ErrUnknownTopic) {
		t.Errorf("Expected ErrUnknownTopic, got %v", err)
	}
}

func TestSubscriptionClosesWithContext(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := pub.Subscribe(ctx, TopicStatus); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for {
		pub.mu.Lock()
		n := len(pub.topics[TopicStatus].subs)
		pub.mu.Unlock()
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Subscription was not removed after cancellation")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTopicsAreIndependent(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	status, err := pub.Subscribe(ctx, TopicStatus)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	if err := pub.PublishReport(ReportData{}); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}
	expectNothing(t, status)
}

func TestClosedPublisher(t *testing.T) {
	pub := NewSSEPublisher()

	sub, err := pub.Subscribe(context.Background(), TopicStatus)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Subscription channels are closed with the publisher
	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("Expected closed events channel")
		}
	case <-time.After(time.Second):
		t.Fatal("Events channel was not closed")
	}

	if err := sub.Close(); err != nil {
		t.Errorf("Closing a subscription after the publisher failed: %v", err)
	}
	if err := pub.PublishStatus(AnalysisStatus{State: "ready"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed publishing on a closed publisher, got %v", err)
	}
	if _, err := pub.Subscribe(context.Background(), TopicStatus); !errors.Is(err, ErrClosed) {
		t.Error("Expected error subscribing to a closed publisher")
	}
}

func TestWriteSSE(t *testing.T) {
	var buf bytes.Buffer
	event := Event{
		Topic:   TopicStatus,
		Type:    "ready",
		Data:    json.RawMessage(`{"state":"ready"}`),
		Version: 7,
	}

	if err := WriteSSE(&buf, event); err != nil {
		t.Fatalf("WriteSSE failed: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "id: 7\nevent: status\ndata: {") {
		t.Errorf("Unexpected frame header: %q", out)
	}
	if !strings.HasSuffix(out, "}\n\n") {
		t.Errorf("Frame must end with a blank line: %q", out)
	}
	if !strings.Contains(out, `"data":{"state":"ready"}`) {
		t.Errorf("Frame is missing payload: %q", out)
	}
}
