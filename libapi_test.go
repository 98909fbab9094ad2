package notiflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
)

type staticSource struct{ name string }

func (s staticSource) Name() string { return s.name }

func (s staticSource) GetMessages(context.Context, Params) ([]Message, error) {
	low, err := MessageFromPairs("level", "INFO", "text", "disk at 60%")
	if err != nil {
		return nil, err
	}
	high, err := MessageFromPairs("level", "CRITICAL", "text", "disk full")
	if err != nil {
		return nil, err
	}
	return []Message{low, high}, nil
}

type sink struct {
	mu       sync.Mutex
	name     string
	subjects []string
	entries  []Entry
}

func (s *sink) Name() string { return s.name }

func (s *sink) SendMessages(_ context.Context, entries []Entry, subject string, _ Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects = append(s.subjects, subject)
	s.entries = append(s.entries, entries...)
	return nil
}

var libapiSink = &sink{name: "pager"}

func init() {
	RegisterSource("libapitest.static", func(_ context.Context, name string, _ Params, _ watermill.LoggerAdapter) (Source, error) {
		return staticSource{name: name}, nil
	})
	RegisterDestination("libapitest.sink", func(context.Context, string, Params, watermill.LoggerAdapter) (Destination, error) {
		return libapiSink, nil
	})
}

func TestRunLoadsAndRunsJobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notiflow.yaml")
	doc := `
sources:
  disk: {class_name: libapitest.static}
destinations:
  pager: {class_name: libapitest.sink, level: ERROR}
message_groups: {}
jobs:
  disk_check:
    get_messages: [{service: disk}]
    send_messages: [pager]
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	results, err := Run(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].State != JobDone {
		t.Fatalf("expected one done job, got %+v", results)
	}
	if results[0].Gathered != 2 {
		t.Fatalf("expected 2 gathered messages, got %d", results[0].Gathered)
	}
	if len(libapiSink.entries) != 1 {
		t.Fatalf("expected only the critical message to pass the threshold, got %v", libapiSink.entries)
	}
	if libapiSink.subjects[0] != "disk_check" {
		t.Fatalf("expected subject to be the job name, got %q", libapiSink.subjects[0])
	}
}

func TestRunUnknownJob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notiflow.yaml")
	if err := os.WriteFile(path, []byte("jobs: {}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Run(context.Background(), path, "nightly")
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected job not found, got %v", err)
	}
}

func TestNewRunnerRequiresConfig(t *testing.T) {
	if _, err := NewRunner(nil); err == nil {
		t.Fatal("expected an error for a nil config")
	}
}

func TestLevelExports(t *testing.T) {
	lvl, err := ParseLevel("warning")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lvl != LevelWarning {
		t.Fatalf("expected %v, got %v", LevelWarning, lvl)
	}
	if _, err := ParseLevel("LOUD"); !errors.Is(err, ErrUnknownLevel) {
		t.Fatalf("expected unknown level error, got %v", err)
	}
}

func TestEncodingExportAliases(t *testing.T) {
	msg, err := NewMessage(NewFields(Field{Key: "level", Value: "INFO"}, Field{Key: "a", Value: 1}))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Marshal(msg.Fields())
	if err != nil {
		t.Fatalf("marshal alias failed: %v", err)
	}
	if string(b) != `{"level":"INFO","a":1}` {
		t.Fatalf("unexpected JSON %s", b)
	}
}

func TestMetadataExport(t *testing.T) {
	md := NewMetadata("key", "value")
	if md["key"] != "value" {
		t.Fatalf("expected metadata to contain key, got %#v", md)
	}
}
