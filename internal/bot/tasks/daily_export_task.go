package tasks

import (
	"bytes"
	"context"
	"fmt"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// newDailyExportTask creates the scheduled task that builds yesterday's CSV
// export and delivers it to the administrator.
func newDailyExportTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "daily_export")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting scheduled export task...")

		export, err := deps.Reports.BuildCSV(ctx, 1)
		if err != nil {
			log.ErrorContext(ctx, "Daily export build failed", "error", err)
			return fmt.Errorf("daily export failed: %w", err)
		}

		adminID := deps.Config.Telegram.AdminUserID

		if export.Rows == 0 {
			log.InfoContext(ctx, "No shipments collected yesterday, skipping delivery", "run_id", export.RunID)
			_, err = deps.TgBot.SendMessage(ctx, &tgbot.SendMessageParams{
				ChatID: adminID,
				Text:   "Daily report: no shipments collected in the last day.",
			})
			if err != nil {
				return fmt.Errorf("failed to send empty-report notice: %w", err)
			}
			return nil
		}

		_, err = deps.TgBot.SendDocument(ctx, &tgbot.SendDocumentParams{
			ChatID: adminID,
			Document: &models.InputFileUpload{
				Filename: export.Filename,
				Data:     bytes.NewReader(export.Data),
			},
			Caption: fmt.Sprintf("Daily report: %d shipments", export.Rows),
		})
		if err != nil {
			log.ErrorContext(ctx, "Daily export delivery failed", "run_id", export.RunID, "error", err)
			return fmt.Errorf("failed to deliver daily export: %w", err)
		}

		log.InfoContext(ctx, "Daily export delivered", "run_id", export.RunID, "rows", export.Rows)
		return nil
	}
}
