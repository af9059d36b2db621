package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

const (
	ansiReset = "\033[0m"
	ansiBlue  = "\033[34m"
)

var levelStyle = map[zerolog.Level]struct{ tag, color string }{
	zerolog.DebugLevel: {"DBG", "\033[36m"},
	zerolog.InfoLevel:  {"INF", "\033[32m"},
	zerolog.WarnLevel:  {"WRN", "\033[33m"},
	zerolog.ErrorLevel: {"ERR", "\033[31m"},
	zerolog.FatalLevel: {"FTL", "\033[35m"},
}

// newConsole renders entries as "[SVC][LVL] message key:value". The
// service prefix is the first three letters of the service name.
func newConsole(w io.Writer, service string, noColor bool) zerolog.ConsoleWriter {
	paint := func(color, s string) string {
		if noColor {
			return s
		}
		return color + s + ansiReset
	}
	prefix := ""
	if len(service) >= 3 {
		prefix = paint(ansiBlue, "["+strings.ToUpper(service[:3])+"]")
	}

	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
		FormatLevel: func(i interface{}) string {
			name, _ := i.(string)
			lvl, err := zerolog.ParseLevel(name)
			style, ok := levelStyle[lvl]
			if err != nil || !ok {
				return prefix + "[" + strings.ToUpper(name) + "]"
			}
			return prefix + paint(style.color, "["+style.tag+"]")
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprint(i) + ":"
		},
	}
}
