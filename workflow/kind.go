package workflow

// Kind is the closed set of node kinds the engine knows how to dispatch.
// Anything else maps to KindUnknown and runs as a pass-through.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInput
	KindOutput
	KindTextEditor
	KindPythonFunction
	KindLLMCall
	KindCurl
)

var kindNames = [...]string{
	KindUnknown:        "unknown",
	KindInput:          "input",
	KindOutput:         "output",
	KindTextEditor:     "textEditor",
	KindPythonFunction: "pythonFunction",
	KindLLMCall:        "llmCall",
	KindCurl:           "curl",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames)-1)
	for k := KindInput; int(k) < len(kindNames); k++ {
		m[kindNames[k]] = k
	}
	return m
}()

// ParseKind maps a node type discriminator to its Kind. Matching is exact.
func ParseKind(s string) Kind {
	return kindsByName[s]
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[KindUnknown]
}

// Known reports whether k is one of the dispatchable kinds.
func (k Kind) Known() bool {
	return k != KindUnknown && int(k) < len(kindNames)
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames)-1)
	for k := KindInput; int(k) < len(kindNames); k++ {
		out = append(out, k)
	}
	return out
}
