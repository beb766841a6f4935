// Package tasks implements scheduled tasks for the monitor: the daily export
// delivery and periodic database maintenance.
package tasks

import (
	"log/slog"

	tgbot "github.com/go-telegram/bot"

	"github.com/otabekdev/yukmonitor/internal/config"
	"github.com/otabekdev/yukmonitor/internal/database"
	"github.com/otabekdev/yukmonitor/internal/report"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger  *slog.Logger
	Store   database.Store
	Reports *report.Builder
	TgBot   *tgbot.Bot
	Config  *config.Config
}
