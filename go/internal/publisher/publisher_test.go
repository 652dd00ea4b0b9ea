package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/sumrush/go/internal/events"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

func testEnvelope(t *testing.T) events.Envelope {
	t.Helper()
	env, err := events.NewEnvelope(uuid.New(), events.TypeRoundEnded, events.RoundEndedPayload{
		Round:   1,
		Outcome: "TIMEOUT",
	}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	return env
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf))
	env := testEnvelope(t)

	if err := p.Publish(context.Background(), env); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, buf.String())
	}
	if line["event_type"] != string(events.TypeRoundEnded) {
		t.Errorf("event_type = %v", line["event_type"])
	}
	if line["session_id"] != env.SessionID.String() {
		t.Errorf("session_id = %v, want %s", line["session_id"], env.SessionID)
	}
	payload, ok := line["payload"].(map[string]any)
	if !ok || payload["outcome"] != "TIMEOUT" {
		t.Errorf("payload = %v", line["payload"])
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestBuildMsg(t *testing.T) {
	env := testEnvelope(t)

	msg, err := buildMsg("quiz.events", env)
	if err != nil {
		t.Fatalf("buildMsg() error = %v", err)
	}

	if msg.Subject != "quiz.events.RoundEnded" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if got := msg.Header.Get("Event-ID"); got != env.ID.String() {
		t.Errorf("Event-ID header = %q, want %q", got, env.ID)
	}
	if got := msg.Header.Get("Session-ID"); got != env.SessionID.String() {
		t.Errorf("Session-ID header = %q, want %q", got, env.SessionID)
	}

	var decoded events.Envelope
	if err := json.Unmarshal(msg.Data, &decoded); err != nil {
		t.Fatalf("message data did not decode: %v", err)
	}
	if decoded.ID != env.ID || decoded.Type != env.Type {
		t.Errorf("decoded envelope = %+v", decoded)
	}
	if !strings.Contains(string(msg.Data), `"eventType":"RoundEnded"`) {
		t.Errorf("data missing eventType: %s", msg.Data)
	}
}

func TestIsStreamConfigEqual(t *testing.T) {
	p := &JetStreamPublisher{config: DefaultJetStreamConfig()}
	base := p.streamConfig()

	if !isStreamConfigEqual(base, p.streamConfig()) {
		t.Fatal("identical configs reported different")
	}

	tests := []struct {
		name   string
		mutate func(c *jetstream.StreamConfig)
	}{
		{"max age", func(c *jetstream.StreamConfig) { c.MaxAge = time.Hour }},
		{"subjects", func(c *jetstream.StreamConfig) { c.Subjects = []string{"other.>"} }},
		{"replicas", func(c *jetstream.StreamConfig) { c.Replicas = 3 }},
		{"duplicates", func(c *jetstream.StreamConfig) { c.Duplicates = time.Hour }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed := p.streamConfig()
			tt.mutate(&changed)
			if isStreamConfigEqual(base, changed) {
				t.Error("changed config reported equal")
			}
		})
	}
}

func TestDefaultJetStreamConfig(t *testing.T) {
	cfg := DefaultJetStreamConfig()
	p := &JetStreamPublisher{config: cfg}

	if got := p.Subject(events.TypeRoundStarted); got != "quiz.events.RoundStarted" {
		t.Errorf("Subject() = %q", got)
	}
	if sc := p.streamConfig(); sc.Subjects[0] != "quiz.events.>" {
		t.Errorf("stream subjects = %v", sc.Subjects)
	}
}
