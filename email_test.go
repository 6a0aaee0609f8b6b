package authcore

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestConsoleSender(t *testing.T) {
	var buf bytes.Buffer
	sender := &ConsoleSender{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	if err := sender.SendOTP("a@x.com", "123456"); err != nil {
		t.Fatalf("SendOTP() error = %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a JSON log line, got %q", buf.String())
	}
	if entry["to"] != "a@x.com" || entry["code"] != "123456" {
		t.Errorf("unexpected log entry %v", entry)
	}

	buf.Reset()
	sender.SendMagicLink("a@x.com", "http://localhost:3001/api/auth/magic-login?token=t")
	sender.SendPasswordReset("a@x.com", "reset-token")
	if n := bytes.Count(buf.Bytes(), []byte("\n")); n != 2 {
		t.Errorf("expected 2 log lines, got %d", n)
	}
}
