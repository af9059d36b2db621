package sse

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/flowrun/logger"
	"github.com/kbukum/flowrun/workflow"
)

const runClientPrefix = "execution:"

// RunClientID returns a fresh client id subscribed to one run.
func RunClientID(runID string) string {
	return runClientPrefix + runID + ":" + uuid.NewString()
}

// RunPattern matches every client subscribed to runID.
func RunPattern(runID string) string {
	return runClientPrefix + escapeGlob(runID) + ":*"
}

// escapeGlob makes an id safe to embed in a filepath.Match pattern.
func escapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[\`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`*?[\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Publisher forwards workflow run events to the clients of each run.
type Publisher struct {
	hub *Hub
	log *logger.Logger
}

var _ workflow.Observer = (*Publisher)(nil)

// NewPublisher creates a Publisher on hub.
func NewPublisher(hub *Hub) *Publisher {
	return &Publisher{hub: hub, log: hub.log}
}

// OnEvent implements workflow.Observer.
func (p *Publisher) OnEvent(e workflow.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		p.log.Error("encode run event", logger.Fields(
			logger.FieldRunID, e.RunID,
			logger.FieldError, err.Error(),
		))
		return
	}
	p.hub.BroadcastToPattern(RunPattern(e.RunID), Frame{Event: string(e.Type), Data: data})
}

// IsTerminal reports whether a frame carries a run's final event.
func IsTerminal(f Frame) bool {
	return workflow.Event{Type: workflow.EventType(f.Event)}.Terminal()
}
