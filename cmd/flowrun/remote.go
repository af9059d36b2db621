package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/kbukum/flowrun/httpclient"
	"github.com/kbukum/flowrun/httpclient/rest"
	"github.com/kbukum/flowrun/sse"
	"github.com/kbukum/flowrun/workflow"
)

// runRemote submits a workflow file to a flowrun server. With follow it
// submits asynchronously, prints run events to stderr as they arrive and
// then prints the final snapshot.
func runRemote(ctx context.Context, opts *options, stdout, stderr io.Writer) error {
	def, err := workflow.LoadFile(opts.file)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	client, err := rest.New(httpclient.Config{BaseURL: opts.server, Timeout: opts.timeout})
	if err != nil {
		return err
	}

	var query map[string]string
	if opts.follow {
		query = map[string]string{"async": "true"}
	}
	resp, err := rest.Post[workflow.Snapshot](ctx, client, "/api/execute-workflow", def.Graph, rest.WithQuery(query))
	if err != nil {
		return remoteError(err)
	}
	snap := &resp.Data

	if opts.follow {
		if err := follow(ctx, client, snap.ID, stderr); err != nil {
			return err
		}
		final, err := rest.Get[workflow.Snapshot](ctx, client, "/api/execution-status/"+url.PathEscape(snap.ID))
		if err != nil {
			return remoteError(err)
		}
		snap = &final.Data
	}

	if err := writeJSON(stdout, snap); err != nil {
		return err
	}
	return snapshotExit(snap)
}

// follow copies the run's event stream to w until the terminal event.
func follow(ctx context.Context, client *rest.Client, runID string, w io.Writer) error {
	stream, err := client.HTTP().DoStream(ctx, httpclient.Request{
		Method:  http.MethodGet,
		Path:    "/api/execution-events/" + url.PathEscape(runID),
		Headers: map[string]string{"Accept": "text/event-stream"},
	})
	if err != nil {
		return remoteError(err)
	}
	defer stream.Close()
	if stream.SSE == nil {
		return fmt.Errorf("server did not answer with an event stream")
	}

	for {
		ev, err := stream.SSE.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading run events: %w", err)
		}
		fmt.Fprintln(w, describeEvent(ev.Event, []byte(ev.Data)))
		if sse.IsTerminal(sse.Frame{Event: ev.Event}) {
			return nil
		}
	}
}

// describeEvent renders one stream event as a progress line.
func describeEvent(name string, data []byte) string {
	switch name {
	case sse.EventTypeConnected:
		return "connected"
	case sse.EventTypeSnapshot:
		var s workflow.Snapshot
		if json.Unmarshal(data, &s) == nil {
			return fmt.Sprintf("run %s %s (%d nodes)", s.ID, s.Status, len(s.Steps))
		}
	default:
		var e workflow.Event
		if json.Unmarshal(data, &e) == nil {
			if e.Step != nil {
				line := fmt.Sprintf("%s %s [%s]", e.Type, e.Step.NodeID, e.Step.NodeType)
				if e.Step.Error != "" {
					line += ": " + e.Step.Error
				}
				return line
			}
			return fmt.Sprintf("%s %s", e.Type, e.Status)
		}
	}
	return name + " " + string(data)
}

// remoteError turns a client error into an exit error, keeping the
// server's error message when there is one.
func remoteError(err error) error {
	var herr *httpclient.Error
	if errors.As(err, &herr) {
		msg := herr.Error()
		var body struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(herr.Body, &body) == nil && body.Error.Message != "" {
			msg = body.Error.Code + ": " + body.Error.Message
		}
		return &ExitError{Code: 1, Message: msg}
	}
	return err
}
