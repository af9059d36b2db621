package workflow

// InputStatus tells an executor where its input came from.
type InputStatus string

const (
	// InputNone marks a node with no incoming edge.
	InputNone InputStatus = "none"
	// InputPending marks a node whose upstream source has not produced a
	// result yet at the time the node runs. The value is nil.
	InputPending InputStatus = "pending"
	// InputReady marks a value taken from the upstream result cache. The
	// value itself may still be nil.
	InputReady InputStatus = "ready"
)

// Input is the value fed to a node: the cached result of the source of
// the node's first incoming edge in declared order.
type Input struct {
	Value  any         `json:"value"`
	Source string      `json:"source,omitempty"`
	Status InputStatus `json:"status"`
}
