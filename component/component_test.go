package component

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"testing"
)

type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	health   Health
	events   *[]string
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	if m.events != nil {
		*m.events = append(*m.events, "start:"+m.name)
	}
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	if m.events != nil {
		*m.events = append(*m.events, "stop:"+m.name)
	}
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) Health { return m.health }

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Register(&mockComponent{name: "http-server"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(&mockComponent{name: "http-server"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestAll(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&mockComponent{name: "events"})
	r.Register(&mockComponent{name: "http-server"})

	all := r.All()
	if len(all) != 2 || all[0].Name() != "events" || all[1].Name() != "http-server" {
		t.Errorf("All should keep registration order, got %v", all)
	}
	all[0] = nil
	if r.All()[0] == nil {
		t.Error("All exposed the registry's slice")
	}
}

func TestStartStopOrder(t *testing.T) {
	var events []string
	r := NewRegistry(nil)
	for _, name := range []string{"telemetry", "events", "http-server"} {
		r.Register(&mockComponent{name: name, events: &events})
	}

	ctx := context.Background()
	if err := r.StartAll(ctx); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if err := r.StopAll(ctx); err != nil {
		t.Fatalf("StopAll: %v", err)
	}

	want := []string{
		"start:telemetry", "start:events", "start:http-server",
		"stop:http-server", "stop:events", "stop:telemetry",
	}
	if !slices.Equal(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestStartFailureStopsOnlyStarted(t *testing.T) {
	var events []string
	r := NewRegistry(nil)
	r.Register(&mockComponent{name: "a", events: &events})
	r.Register(&mockComponent{name: "b", events: &events, startErr: fmt.Errorf("port in use")})
	r.Register(&mockComponent{name: "c", events: &events})

	if err := r.StartAll(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
	events = nil
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	if !slices.Equal(events, []string{"stop:a"}) {
		t.Errorf("only started components should stop, got %v", events)
	}
}

func TestStopAllJoinsErrors(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&mockComponent{name: "a", stopErr: fmt.Errorf("x")})
	r.Register(&mockComponent{name: "b", stopErr: fmt.Errorf("y")})
	r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if err == nil {
		t.Fatal("expected joined error")
	}
	if msg := err.Error(); !strings.Contains(msg, "failed to stop a") || !strings.Contains(msg, "failed to stop b") {
		t.Errorf("unexpected error %q", msg)
	}
}

func TestHealthAll(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&mockComponent{name: "a", health: Health{Name: "a", Status: StatusHealthy}})
	r.Register(&mockComponent{name: "b", health: Health{Name: "b", Status: StatusDegraded, Message: "slow"}})

	h := r.HealthAll(context.Background())
	if len(h) != 2 || h[1].Status != StatusDegraded || h[1].Message != "slow" {
		t.Errorf("HealthAll = %+v", h)
	}
}

func TestRestartAfterFailure(t *testing.T) {
	var events []string
	flaky := &mockComponent{name: "b", events: &events, startErr: fmt.Errorf("port in use")}
	r := NewRegistry(nil)
	r.Register(&mockComponent{name: "a", events: &events})
	r.Register(flaky)

	if err := r.StartAll(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
	flaky.startErr = nil
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	want := []string{"start:a", "start:b", "start:b", "stop:b", "stop:a"}
	if !slices.Equal(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}
