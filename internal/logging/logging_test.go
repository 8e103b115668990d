package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetupFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := Setup("warn", &buf)

	log.Info("hidden")
	log.Warn("shown", Err(errors.New("boom")))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "error=boom") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestIntoAndFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if From(c) != slog.Default() {
		t.Fatal("expected default logger when none is stored")
	}

	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	Into(c, log)
	if From(c) != log {
		t.Fatal("expected stored logger")
	}
}
