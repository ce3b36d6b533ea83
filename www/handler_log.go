package www

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/icodeforyou/malar-go/database"
	"github.com/icodeforyou/malar-go/logging"
)

type LogReader interface {
	GetLogEntries(ctx context.Context, q database.LogQuery, page, pageSize int) ([]database.LogEntryRow, error)
	LogModules(ctx context.Context) ([]string, error)
}

type logEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Module    string    `json:"module,omitempty"`
	Message   string    `json:"message"`
	Attrs     string    `json:"attrs,omitempty"`
}

type logResponse struct {
	Page     int        `json:"page"`
	PageSize int        `json:"pageSize"`
	Entries  []logEntry `json:"entries"`
}

func NewLogHandler(logger *slog.Logger, db LogReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := max(intOrDefault(r.URL, "page", 1), 1)
		pageSize := intOrDefault(r.URL, "pageSize", 25)
		if pageSize < 1 || pageSize > 500 {
			pageSize = 25
		}

		q := database.LogQuery{MinLevel: slog.LevelDebug, Module: r.URL.Query().Get("module")}
		if lvl := r.URL.Query().Get("level"); lvl != "" {
			q.MinLevel = logging.LevelFromString(&lvl)
		}

		rows, err := db.GetLogEntries(r.Context(), q, page, pageSize)
		if err != nil {
			logger.Error("handling log request", slog.Any("error", err))
			renderError(w, r, http.StatusInternalServerError, "failed to read log")
			return
		}

		entries := make([]logEntry, 0, len(rows))
		for _, e := range rows {
			entries = append(entries, logEntry{
				Timestamp: e.Timestamp,
				Level:     slog.Level(e.Level).String(),
				Module:    e.Module,
				Message:   e.Message,
				Attrs:     e.Attrs,
			})
		}

		render.JSON(w, r, logResponse{Page: page, PageSize: pageSize, Entries: entries})
	}
}

// NewLogModulesHandler lists the values accepted by the log handler's module filter.
func NewLogModulesHandler(logger *slog.Logger, db LogReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		modules, err := db.LogModules(r.Context())
		if err != nil {
			logger.Error("handling log modules request", slog.Any("error", err))
			renderError(w, r, http.StatusInternalServerError, "failed to read log modules")
			return
		}
		render.JSON(w, r, modules)
	}
}
