package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chatcore/pkg/config"
	"chatcore/pkg/message"
)

func TestLoggerJSONEntryShape(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "info"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.With("component", "cmd.chat").Info("Prompt event", "request_id", "42", "ok", true)

	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected log output")
	}

	var entry LogEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}

	if entry.Level != "info" {
		t.Fatalf("level = %q, want %q", entry.Level, "info")
	}
	if entry.Message != "Prompt event" {
		t.Fatalf("message = %q, want %q", entry.Message, "Prompt event")
	}
	if entry.Component != "cmd.chat" {
		t.Fatalf("component = %q, want %q", entry.Component, "cmd.chat")
	}
	if entry.Timestamp == "" {
		t.Fatal("expected timestamp")
	}
	if got := entry.Fields["request_id"]; got != "42" {
		t.Fatalf("fields.request_id = %v, want %q", got, "42")
	}
	if got := entry.Fields["ok"]; got != true {
		t.Fatalf("fields.ok = %v, want true", got)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Info("Ignored")
	if got := strings.TrimSpace(out.String()); got != "" {
		t.Fatalf("expected no output for info, got %q", got)
	}

	log.Error("Kept")
	if got := strings.TrimSpace(out.String()); got == "" {
		t.Fatal("expected output for error")
	}
}

func TestLoggerEnvironmentOverrides(t *testing.T) {
	t.Setenv("CHATCORE_LOG_LEVEL", "debug")
	t.Setenv("CHATCORE_LOG_FORMAT", "text")
	defer unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Debug("Debug enabled", "component", "test")
	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected debug output with env override")
	}
	if strings.HasPrefix(line, "{") {
		t.Fatalf("expected text format override, got %q", line)
	}
}

func TestLoggerDefaultsToTextFormat(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Info("Default format")
	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected log output")
	}
	if strings.HasPrefix(line, "{") {
		t.Fatalf("expected text format by default, got %q", line)
	}
}

func TestLoggerRejectsUnknownSettings(t *testing.T) {
	unsetLoggingEnv(t)

	if _, err := newWithWriter(config.LoggingConfig{Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if _, err := newWithWriter(config.LoggingConfig{Level: "chatty"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unsupported level")
	}
}

func TestLoggerWritesToConfiguredFile(t *testing.T) {
	unsetLoggingEnv(t)

	path := filepath.Join(t.TempDir(), "chatcore.log")
	log, err := New(config.LoggingConfig{Format: "json", Level: "debug", File: path})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	log.With("component", "bus.reply_buffer").Debug("Delivered reply", "pending", 0)

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	var entry LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}
	if entry.Component != "bus.reply_buffer" || entry.Message != "Delivered reply" {
		t.Fatalf("entry = %#v", entry)
	}
	if got := entry.Fields["pending"]; got != float64(0) {
		t.Fatalf("fields.pending = %v, want 0", got)
	}
}

func TestLoggerGroupsMessageValues(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	msg, err := message.New(message.Text("hello there"), message.WithAuthor("alice"))
	if err != nil {
		t.Fatalf("message.New error: %v", err)
	}
	log.Info("Received message", "message", msg)

	var entry LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}

	if entry.Author != "alice" {
		t.Fatalf("author = %q, want %q", entry.Author, "alice")
	}

	group, ok := entry.Fields["message"].(map[string]any)
	if !ok {
		t.Fatalf("fields.message = %#v, want object", entry.Fields["message"])
	}
	if group["author"] != "alice" || group["role"] != "Message" || group["tokens"] != float64(2) {
		t.Fatalf("fields.message = %#v", group)
	}
}

func unsetLoggingEnv(t *testing.T) {
	t.Helper()
	_ = os.Unsetenv("CHATCORE_LOG_LEVEL")
	_ = os.Unsetenv("CHATCORE_LOG_FORMAT")
	_ = os.Unsetenv("CHATCORE_LOG_ADD_SOURCE")
	_ = os.Unsetenv("CHATCORE_LOG_FILE")
}

func TestLoggerRendersErrorsAsText(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Warn("Dropped reply payload", "author", "bob", "error", errors.New("message: type conversion"))

	var entry LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}
	if entry.Author != "bob" {
		t.Fatalf("author = %q, want %q", entry.Author, "bob")
	}
	if _, ok := entry.Fields["author"]; ok {
		t.Fatal("author should not be repeated in fields")
	}
	if entry.Fields["error"] != "message: type conversion" {
		t.Fatalf("fields.error = %#v, want error text", entry.Fields["error"])
	}
}
