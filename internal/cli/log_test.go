package cli

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, log.InfoLevel).Info("planned sheet", "placements", 12)

	line := buf.String()
	if !regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{2} `).MatchString(line) {
		t.Errorf("line %q should start with an HH:MM:SS.cc timestamp", line)
	}
	if !strings.Contains(line, "planned sheet") || !strings.Contains(line, "placements=12") {
		t.Errorf("line %q lost the message or its fields", line)
	}
}

func TestNewLoggerDebugGated(t *testing.T) {
	for _, level := range []log.Level{log.InfoLevel, log.DebugLevel} {
		var buf bytes.Buffer
		newLogger(&buf, level).Debug("cache miss", "key", "plan:abc")
		if got, want := buf.Len() > 0, level == log.DebugLevel; got != want {
			t.Errorf("level %s: debug written = %v, want %v", level, got, want)
		}
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	prog.done("Sheet written", "files", 2)

	line := buf.String()
	for _, want := range []string{"Sheet written", "files=2", "elapsed="} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}
