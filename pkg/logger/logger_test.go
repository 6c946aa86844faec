package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestErrorKeepsContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithFields(ctx, map[string]any{"rental_id": "r-1"})

	log.Error(ctx, "transition failed", errors.New("boom"))

	entry := buf.String()
	if !bytes.Contains(buf.Bytes(), []byte("\"request_id\"")) {
		t.Fatalf("expected request_id to be preserved; entry=%s", entry)
	}
	if !bytes.Contains(buf.Bytes(), []byte("\"rental_id\"")) {
		t.Fatalf("expected rental_id to be preserved; entry=%s", entry)
	}
}

func TestWarnWritesAtWarnLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf, WarnStack: true})
	log.Warn(context.Background(), "slow query")
	if !bytes.Contains(buf.Bytes(), []byte("\"warn\"")) {
		t.Fatalf("expected warn level entry; entry=%s", buf.String())
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.NoLevel {
		t.Fatalf("expected default level, got %v", lvl)
	}
	if lvl := ParseLevel("invalid"); lvl != zerolog.NoLevel {
		t.Fatalf("invalid level should fall back, got %v", lvl)
	}
}
