package handlers

import (
	"log/slog"

	"github.com/otabekdev/yukmonitor/internal/config"
	"github.com/otabekdev/yukmonitor/internal/database"
	"github.com/otabekdev/yukmonitor/internal/ingest"
	"github.com/otabekdev/yukmonitor/internal/report"
)

// HandlerDeps provides dependencies for Telegram command and channel handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Store    database.Store
	Ingestor *ingest.Ingestor
	Reports  *report.Builder
}
