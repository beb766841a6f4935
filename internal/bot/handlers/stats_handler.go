package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStatsHandler returns a handler for the /stats command.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	return statsHandler{deps}.Handle
}

type statsHandler struct {
	deps HandlerDeps
}

func (h statsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "stats")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	stats, err := h.deps.Reports.BuildStats(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to build stats", "error", err)
		h.sendText(ctx, b, chatID, h.deps.Config.Messages.GeneralError)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Shipments collected:\n")
	fmt.Fprintf(&sb, "  today: %d\n", stats.Today)
	fmt.Fprintf(&sb, "  last 7 days: %d\n", stats.Last7Days)
	fmt.Fprintf(&sb, "  last 30 days: %d\n", stats.Last30Days)

	if len(stats.TopOrigins) > 0 {
		sb.WriteString("\nTop origins (30 days):\n")
		for _, v := range stats.TopOrigins {
			fmt.Fprintf(&sb, "  %s: %d\n", v.Value, v.Total)
		}
	}
	if len(stats.TopDestinations) > 0 {
		sb.WriteString("\nTop destinations (30 days):\n")
		for _, v := range stats.TopDestinations {
			fmt.Fprintf(&sb, "  %s: %d\n", v.Value, v.Total)
		}
	}

	h.sendText(ctx, b, chatID, sb.String())
}

func (h statsHandler) sendText(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send stats message", "error", err, "chat_id", chatID)
	}
}
