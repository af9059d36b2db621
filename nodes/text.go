package nodes

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Stringify renders a node value as text. nil is the empty string, strings
// are returned as-is, composite values are JSON and other scalars go
// through fmt.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		data, err := json.Marshal(v)
		if err == nil {
			return string(data)
		}
	}
	return fmt.Sprint(v)
}
