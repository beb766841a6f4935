package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewTrackHandler returns a handler for /track or /untrack, depending on the
// track flag. The command takes a channel ID, e.g. "/track -1001234567890".
// Channels become known once any post from them is observed.
func NewTrackHandler(deps HandlerDeps, track bool) bot.HandlerFunc {
	return trackHandler{deps: deps, track: track}.Handle
}

type trackHandler struct {
	deps  HandlerDeps
	track bool
}

func (h trackHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	command := "untrack"
	if h.track {
		command = "track"
	}
	log := h.deps.Logger.With("handler", command)

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	fields := strings.Fields(update.Message.Text)
	if len(fields) < 2 {
		h.sendText(ctx, b, chatID, fmt.Sprintf("Usage: /%s <channel_id>", command))
		return
	}

	channelID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		h.sendText(ctx, b, chatID, fmt.Sprintf("Invalid channel ID %q.", fields[1]))
		return
	}

	if err := h.deps.Store.SetChannelTracked(ctx, channelID, h.track); err != nil {
		log.WarnContext(ctx, "Failed to update channel tracking", "channel_id", channelID, "error", err)
		h.sendText(ctx, b, chatID,
			fmt.Sprintf("Channel %d is not known yet. Add the bot to the channel so it can observe a post first.", channelID))
		return
	}

	state := "no longer tracked"
	if h.track {
		state = "now tracked"
	}
	log.InfoContext(ctx, "Channel tracking updated", "channel_id", channelID, "tracked", h.track)
	h.sendText(ctx, b, chatID, fmt.Sprintf("Channel %d is %s.", channelID, state))
}

func (h trackHandler) sendText(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send tracking reply", "error", err, "chat_id", chatID)
	}
}
