// Package sse decodes text/event-stream responses, such as the run event
// stream served under /api/execution-events.
package sse

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"
)

// Event is one dispatched server-sent event.
type Event struct {
	Event string // empty for unnamed events
	Data  string // data lines joined by "\n"
	ID    string
	Retry time.Duration
}

// Reader yields events until the stream ends with io.EOF.
type Reader interface {
	Next() (*Event, error)
	Close() error
}

// NewReader decodes events from body. Lines may be any length: run
// snapshots travel as a single data line.
func NewReader(body io.ReadCloser) Reader {
	return &decoder{src: bufio.NewReader(body), body: body}
}

type decoder struct {
	src  *bufio.Reader
	body io.ReadCloser
}

func (d *decoder) Close() error { return d.body.Close() }

func (d *decoder) Next() (*Event, error) {
	var (
		ev   Event
		data []string
	)
	for {
		line, err := d.src.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		eof := err != nil
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			// A blank line dispatches; at EOF a pending event is flushed.
			if len(data) > 0 {
				ev.Data = strings.Join(data, "\n")
				return &ev, nil
			}
			if eof {
				return nil, io.EOF
			}
			ev = Event{}
			continue
		}

		name, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch name {
		case "":
			// comment
		case "data":
			data = append(data, value)
		case "event":
			ev.Event = value
		case "id":
			ev.ID = value
		case "retry":
			if ms, convErr := strconv.Atoi(value); convErr == nil && ms >= 0 {
				ev.Retry = time.Duration(ms) * time.Millisecond
			}
		}

		if eof {
			if len(data) > 0 {
				ev.Data = strings.Join(data, "\n")
				return &ev, nil
			}
			return nil, io.EOF
		}
	}
}
