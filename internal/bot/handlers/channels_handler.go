package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewChannelsHandler returns a handler for the /channels command, which lists
// all observed channels and their tracking state.
func NewChannelsHandler(deps HandlerDeps) bot.HandlerFunc {
	return channelsHandler{deps}.Handle
}

type channelsHandler struct {
	deps HandlerDeps
}

func (h channelsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "channels")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	channels, err := h.deps.Store.ListChannels(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list channels", "error", err)
		h.sendText(ctx, b, chatID, h.deps.Config.Messages.GeneralError)
		return
	}

	if len(channels) == 0 {
		h.sendText(ctx, b, chatID, "No channels observed yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Known channels:\n")
	for _, ch := range channels {
		marker := " "
		if ch.IsTracked {
			marker = "*"
		}
		fmt.Fprintf(&sb, "%s %d  %s\n", marker, ch.ChannelID, ch.Title)
	}
	sb.WriteString("\n* = tracked")

	h.sendText(ctx, b, chatID, sb.String())
}

func (h channelsHandler) sendText(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send channels reply", "error", err, "chat_id", chatID)
	}
}
