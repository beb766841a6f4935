package handlers

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewExportHandler returns a handler for the /export command. An optional
// argument selects the window in days, e.g. "/export 14".
func NewExportHandler(deps HandlerDeps) bot.HandlerFunc {
	return exportHandler{deps}.Handle
}

type exportHandler struct {
	deps HandlerDeps
}

func (h exportHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "export")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	days := h.deps.Config.Export.DefaultDays
	if fields := strings.Fields(update.Message.Text); len(fields) > 1 {
		parsed, err := strconv.Atoi(fields[1])
		if err != nil {
			h.sendText(ctx, b, chatID, "Usage: /export [days]")
			return
		}
		days = parsed
	}

	export, err := h.deps.Reports.BuildCSV(ctx, days)
	if err != nil {
		log.ErrorContext(ctx, "Failed to build export", "days", days, "error", err)
		h.sendText(ctx, b, chatID, h.deps.Config.Messages.GeneralError)
		return
	}

	if export.Rows == 0 {
		h.sendText(ctx, b, chatID, fmt.Sprintf("No shipments in the last %d days.", export.Days))
		return
	}

	_, err = b.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: chatID,
		Document: &models.InputFileUpload{
			Filename: export.Filename,
			Data:     bytes.NewReader(export.Data),
		},
		Caption: fmt.Sprintf("%d shipments from the last %d days", export.Rows, export.Days),
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send export document", "error", err, "chat_id", chatID)
		h.sendText(ctx, b, chatID, h.deps.Config.Messages.GeneralError)
		return
	}

	log.InfoContext(ctx, "Export sent", "run_id", export.RunID, "rows", export.Rows, "days", export.Days)
}

func (h exportHandler) sendText(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send export reply", "error", err, "chat_id", chatID)
	}
}
