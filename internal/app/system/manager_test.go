package system

import (
	"context"
	"errors"
	"testing"
)

type recordingService struct {
	name     string
	startErr error
	log      *[]string
}

func (r recordingService) Name() string { return r.name }

func (r recordingService) Start(context.Context) error {
	if r.startErr != nil {
		return r.startErr
	}
	*r.log = append(*r.log, "start:"+r.name)
	return nil
}

func (r recordingService) Stop(context.Context) error {
	*r.log = append(*r.log, "stop:"+r.name)
	return nil
}

func TestManagerStartStopOrder(t *testing.T) {
	var log []string
	m := NewManager()
	for _, name := range []string{"a", "b", "c"} {
		if err := m.Register(recordingService{name: name, log: &log}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	want := []string{"start:a", "start:b", "start:c", "stop:c", "stop:b", "stop:a"}
	if len(log) != len(want) {
		t.Fatalf("unexpected log: %v", log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log[%d] = %s, want %s", i, log[i], want[i])
		}
	}
}

func TestManagerRunsNoopService(t *testing.T) {
	var log []string
	m := NewManager()
	if err := m.Register(NoopService{ServiceName: "placeholder"}); err != nil {
		t.Fatalf("register noop: %v", err)
	}
	if err := m.Register(recordingService{name: "real", log: &log}); err != nil {
		t.Fatalf("register real: %v", err)
	}

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	want := []string{"start:real", "stop:real"}
	if len(log) != len(want) || log[0] != want[0] || log[1] != want[1] {
		t.Fatalf("unexpected log: %v", log)
	}
}

func TestManagerRejectsDuplicateNames(t *testing.T) {
	var log []string
	m := NewManager()
	if err := m.Register(recordingService{name: "dup", log: &log}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := m.Register(recordingService{name: "dup", log: &log}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestManagerUnwindsOnStartFailure(t *testing.T) {
	var log []string
	m := NewManager()
	if err := m.Register(recordingService{name: "ok", log: &log}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Register(recordingService{name: "bad", startErr: errors.New("boom"), log: &log}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := m.Start(context.Background()); err == nil {
		t.Fatal("expected start failure")
	}
	want := []string{"start:ok", "stop:ok"}
	if len(log) != 2 || log[0] != want[0] || log[1] != want[1] {
		t.Fatalf("unexpected log: %v", log)
	}
}
