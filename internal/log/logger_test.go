// SPDX-License-Identifier: MIT
package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })

	SetLevel(LevelWarn)
	t.Cleanup(func() { SetLevel(LevelInfo) })

	Debugf("hidden debug")
	Infof("hidden info")
	Warnf("visible warn")
	Errorf("visible error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below the level leaked: %q", out)
	}
	if !strings.Contains(out, "visible warn") || !strings.Contains(out, "visible error") {
		t.Errorf("expected warn and error messages, got: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"Warn", LevelWarn, true},
		{"warning", LevelWarn, true},
		{"error", LevelError, true},
		{"fatal", LevelFatal, true},
		{"verbose", LevelInfo, false},
	}
	for _, tc := range cases {
		got, ok := ParseLevel(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestLevelString(t *testing.T) {
	for level, want := range map[Level]string{
		LevelDebug: "DEBUG",
		LevelInfo:  "INFO",
		LevelWarn:  "WARN",
		LevelError: "ERROR",
		LevelFatal: "FATAL",
		Level(99):  "UNKNOWN",
	} {
		if got := level.String(); got != want {
			t.Errorf("Level(%d).String() = %q, want %q", level, got, want)
		}
	}
}
