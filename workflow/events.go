package workflow

import "time"

// EventType names a run lifecycle transition.
type EventType string

const (
	EventRunStarted    EventType = "run.started"
	EventStepStarted   EventType = "step.started"
	EventStepCompleted EventType = "step.completed"
	EventStepFailed    EventType = "step.failed"
	EventRunCompleted  EventType = "run.completed"
	EventRunFailed     EventType = "run.failed"
)

// Event is published for every state transition of a run.
type Event struct {
	Type        EventType `json:"type"`
	RunID       string    `json:"execution_id"`
	Status      RunStatus `json:"status"`
	Step        *Step     `json:"step,omitempty"`
	FinalResult any       `json:"final_result,omitempty"`
	Time        time.Time `json:"timestamp"`
}

// Terminal reports whether the event ends the run.
func (e Event) Terminal() bool {
	return e.Type == EventRunCompleted || e.Type == EventRunFailed
}

// Observer receives run events synchronously from the goroutine driving
// the run. Implementations must not block.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }
