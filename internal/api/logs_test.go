package api

import (
	"testing"

	"github.com/smazurov/videocap/internal/logging"
)

func TestFilterLogs(t *testing.T) {
	entries := func() []logging.Entry {
		return []logging.Entry{
			{Level: "debug", Module: "v4l2", Message: "a"},
			{Level: "info", Module: "capture", Message: "b"},
			{Level: "warn", Module: "v4l2", Message: "c"},
			{Level: "error", Module: "api", Message: "d"},
		}
	}

	tests := []struct {
		name   string
		module string
		level  string
		want   string
	}{
		{"all", "", "", "abcd"},
		{"module", "v4l2", "", "ac"},
		{"level", "", "warn", "cd"},
		{"both", "v4l2", "info", "c"},
		{"case insensitive level", "", "ERROR", "d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			for _, e := range filterLogs(entries(), tt.module, tt.level) {
				got += e.Message
			}
			if got != tt.want {
				t.Errorf("filterLogs(%q, %q) = %q, want %q", tt.module, tt.level, got, tt.want)
			}
		})
	}
}
