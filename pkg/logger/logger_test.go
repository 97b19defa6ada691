package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"osintgram/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{
			name:    "valid config with warn level",
			cfg:     &config.LoggingConfig{Level: "warn"},
			wantErr: false,
		},
		{
			name:    "valid config with debug level",
			cfg:     &config.LoggingConfig{Level: "debug"},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			cfg:     &config.LoggingConfig{Level: "chatty"},
			wantErr: true,
		},
		{
			name:    "config with file output",
			cfg:     &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "osintgram.log")},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && l == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"verbose", zerolog.WarnLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			got, err := parseLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLogLevel(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.level, got, tt.expected)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := newWithWriter(&config.LoggingConfig{Level: "warn"}, &buf)
	if err != nil {
		t.Fatalf("newWithWriter() error = %v", err)
	}

	l.Info("hidden message")
	l.WithField("target", "someone").Warn("visible message")

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Errorf("info message written at warn level: %s", out)
	}
	if !strings.Contains(out, "visible message") || !strings.Contains(out, "someone") {
		t.Errorf("warn message or field missing: %s", out)
	}
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	l, err := newWithWriter(&config.LoggingConfig{Level: "debug"}, &buf)
	if err != nil {
		t.Fatalf("newWithWriter() error = %v", err)
	}

	_ = l.WithFields(map[string]interface{}{"child": "yes"})
	l.Debug("parent message")

	if strings.Contains(buf.String(), "child") {
		t.Errorf("parent logger picked up child field: %s", buf.String())
	}
}

func TestTestLoggerCapturesFieldsAndErrors(t *testing.T) {
	tl := NewTestLogger()
	boom := errors.New("boom")

	tl.WithField("operation", "followers").WithError(boom).Warn("partial")
	tl.Info("plain")

	msgs := tl.GetMessages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Fields["operation"] != "followers" || !errors.Is(msgs[0].Error, boom) {
		t.Errorf("unexpected first message: %+v", msgs[0])
	}
	if !tl.HasMessage("plain") {
		t.Error("HasMessage(plain) = false")
	}
	if got := len(tl.GetMessagesByLevel("WARN")); got != 1 {
		t.Errorf("expected 1 WARN message, got %d", got)
	}

	tl.Clear()
	if len(tl.GetMessages()) != 0 {
		t.Error("Clear() left messages behind")
	}
}

func TestHelpers(t *testing.T) {
	tl := NewTestLogger()

	LogRequest(tl, "GET", "/feed/user/1/", 503, 12.5)
	LogThrottle(tl, "followers", 40)
	LogExport(tl, "json", "/tmp/x.json", errors.New("disk full"))

	if len(tl.GetMessagesByLevel("ERROR")) != 1 {
		t.Error("5xx request should log at error level")
	}
	warns := tl.GetMessagesByLevel("WARN")
	if len(warns) != 2 {
		t.Fatalf("expected 2 WARN messages, got %d", len(warns))
	}
	if warns[0].Fields["collected"] != 40 {
		t.Errorf("throttle log missing count: %+v", warns[0])
	}
}
