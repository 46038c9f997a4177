package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/videocap/internal/api/models"
	"github.com/smazurov/videocap/internal/events"
	"github.com/smazurov/videocap/internal/logging"
)

// registerLogRoutes registers log history, streaming and level control.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Logs",
		Description: "Retained log entries, oldest first",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, input *struct {
		Module string `query:"module" example:"capture" doc:"Only entries from this module"`
		Level  string `query:"level" enum:"debug,info,warn,error," doc:"Minimum level"`
		Limit  int    `query:"limit" minimum:"0" example:"100" doc:"Newest N entries, 0 for all"`
	}) (*models.LogsResponse, error) {
		entries := filterLogs(logging.GetHistory().Entries(), input.Module, input.Level)
		if input.Limit > 0 && len(entries) > input.Limit {
			entries = entries[len(entries)-input.Limit:]
		}
		return &models.LogsResponse{Body: models.LogsData{Entries: entries, Count: len(entries)}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-log-levels",
		Method:      http.MethodGet,
		Path:        "/api/logs/levels",
		Summary:     "Log levels",
		Description: "Effective level of every module logger",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.LogLevelsResponse, error) {
		return &models.LogLevelsResponse{Body: models.LogLevelsData{Levels: logging.Levels()}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-log-level",
		Method:      http.MethodPut,
		Path:        "/api/logs/levels",
		Summary:     "Set log level",
		Description: "Change one module's level, or the global level when module is empty",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{400, 401},
	}, func(_ context.Context, input *struct {
		Body struct {
			Module string `json:"module,omitempty" example:"capture" doc:"Module name, empty for global"`
			Level  string `json:"level" example:"debug" enum:"debug,info,warn,warning,error"`
		}
	}) (*models.LogLevelsResponse, error) {
		if !logging.SetLevel(input.Body.Module, input.Body.Level) {
			return nil, huma.Error400BadRequest("Invalid log level: " + input.Body.Level)
		}
		s.logger.Info("Log level changed", "target", input.Body.Module, "level", input.Body.Level)
		return &models.LogLevelsResponse{Body: models.LogLevelsData{Levels: logging.Levels()}}, nil
	})

	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Real-time log streaming via Server-Sent Events. Sends historical logs first, then streams new logs.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		// Subscribe before replaying so nothing logged in between is lost.
		eventCh := make(chan any, 100)
		unsubscribe := events.SubscribeToChannel[events.LogEntryEvent](s.eventBus, eventCh)
		defer unsubscribe()

		for _, entry := range logging.GetHistory().Entries() {
			if err := send.Data(events.LogEntryEvent{
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			}); err != nil {
				return
			}
		}

		forward(ctx, eventCh, send)
	})
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

func filterLogs(entries []logging.Entry, module, level string) []logging.Entry {
	minRank := levelRank[strings.ToLower(level)]
	out := entries[:0]
	for _, e := range entries {
		if module != "" && e.Module != module {
			continue
		}
		if levelRank[e.Level] < minRank {
			continue
		}
		out = append(out, e)
	}
	return out
}
