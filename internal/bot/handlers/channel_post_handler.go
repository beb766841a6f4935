package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/otabekdev/yukmonitor/internal/database"
)

// NewChannelPostHandler returns the default update handler. It records every
// observed channel, stores posts from tracked channels, and runs the
// extraction pipeline over them. Edited posts are re-ingested with their new
// text so extracted fields stay current.
func NewChannelPostHandler(deps HandlerDeps) bot.HandlerFunc {
	return channelPostHandler{deps}.Handle
}

type channelPostHandler struct {
	deps HandlerDeps
}

func (h channelPostHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "channel_post")

	post := update.ChannelPost
	edited := false
	if post == nil {
		post = update.EditedChannelPost
		edited = true
	}
	if post == nil {
		log.DebugContext(ctx, "Ignoring non-channel update", "update_id", update.ID)
		return
	}

	text := post.Text
	if text == "" {
		text = post.Caption
	}

	channel, err := h.deps.Store.GetOrCreateChannel(ctx, post.Chat.ID, post.Chat.Title)
	if err != nil {
		log.ErrorContext(ctx, "Failed to record channel", "channel_id", post.Chat.ID, "error", err)
		return
	}

	if !channel.IsTracked {
		log.DebugContext(ctx, "Ignoring post from untracked channel",
			"channel_id", post.Chat.ID, "channel_title", post.Chat.Title)
		return
	}

	if text == "" {
		log.DebugContext(ctx, "Ignoring post without text",
			"channel_id", post.Chat.ID, "message_id", post.ID)
		return
	}

	msg := &database.Message{
		ChannelID: channel.ID,
		MessageID: int64(post.ID),
		Text:      text,
		Timestamp: time.Unix(int64(post.Date), 0).UTC(),
	}
	if post.From != nil {
		msg.SenderID = database.NullInt64(post.From.ID)
		msg.SenderName = database.NullString(post.From.Username)
	}

	created, err := h.deps.Store.GetOrCreateMessage(ctx, msg)
	if err != nil {
		log.ErrorContext(ctx, "Failed to store message",
			"channel_id", post.Chat.ID, "message_id", post.ID, "error", err)
		return
	}

	if !created && !edited {
		log.DebugContext(ctx, "Message already stored, skipping ingestion",
			"channel_id", post.Chat.ID, "message_id", post.ID)
		return
	}

	// GetOrCreateMessage returns the stored text for known messages; edits
	// carry new content, so ingest what actually arrived.
	msg.Text = text

	res, err := h.deps.Ingestor.IngestMessage(ctx, msg)
	if err != nil {
		log.ErrorContext(ctx, "Failed to ingest message",
			"channel_id", post.Chat.ID, "message_id", post.ID, "error", err)
		return
	}

	log.InfoContext(ctx, "Channel post processed",
		"channel_id", post.Chat.ID,
		"message_id", post.ID,
		"edited", edited,
		"blocks", res.Blocks,
		"shipments_created", res.Created)
}
