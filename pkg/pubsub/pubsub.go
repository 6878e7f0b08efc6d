package pubsub

import (
	"context"
	"encoding/json"
)

// Topics published during analysis
const (
	TopicStatus = "status" // AnalysisStatus events
	TopicReport = "report" // ReportData events
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic ("status" or "report")
	Type    string          `json:"type"`    // Event type, e.g. "analyzing", "ready", "complete"
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// EventComplete is the type of report events
const EventComplete = "complete"

// Publisher fans analysis events out to subscribers
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// PublishStatus announces a run state change
	PublishStatus(status AnalysisStatus) error

	// PublishReport announces a finished report
	PublishReport(data ReportData) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// AnalysisStatus represents the state of the current analysis run
type AnalysisStatus struct {
	State   string `json:"state"`   // analyzing, ready, error
	Message string `json:"message"` // Human-readable status message
	Run     int    `json:"run"`     // Number of the run, starting at 1
}

// ReportData announces a finished report; clients fetch it from /api/report
type ReportData struct {
	Nodes   int    `json:"nodes"`
	Edges   int    `json:"edges"`
	Cycles  int    `json:"cycles"`
	Issues  int    `json:"issues"`
	Summary string `json:"summary"`

	// Changes of the include graph since the previous report
	Changed      bool `json:"changed"`
	AddedEdges   int  `json:"addedEdges"`
	RemovedEdges int  `json:"removedEdges"`
}
