package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations.
// Methods should accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetOrCreateChannel returns the channel with the given external ID,
	// creating it (untracked) on first observation.
	GetOrCreateChannel(ctx context.Context, channelID int64, title string) (*Channel, error)

	// ListChannels returns all known channels.
	ListChannels(ctx context.Context) ([]Channel, error)

	// SetChannelTracked toggles ingestion for a channel by external ID.
	SetChannelTracked(ctx context.Context, channelID int64, tracked bool) error

	// GetOrCreateMessage persists a message if (channel, message_id) is new.
	// On a repeat observation the stored row is loaded into msg unchanged and
	// created is false.
	GetOrCreateMessage(ctx context.Context, msg *Message) (created bool, err error)

	// UpsertShipment creates or refreshes a shipment keyed on
	// (message_id, origin, destination, phone). The editable fields
	// cargo_type/truck_type/payment_type are overwritten on a repeat key.
	UpsertShipment(ctx context.Context, shipment *Shipment) (created bool, err error)

	// ShipmentsForRoute returns all shipments for one (origin, destination)
	// pair within a channel, joined with message text and ordered by message
	// timestamp descending, as required by the duplicate detector.
	ShipmentsForRoute(ctx context.Context, channelID int64, origin, destination string) ([]RouteShipment, error)

	// ShipmentsSince returns export rows for shipments whose message
	// timestamp is at or after the given time.
	ShipmentsSince(ctx context.Context, since time.Time) ([]ExportRow, error)

	// CountShipmentsSince counts shipments whose message timestamp is at or
	// after the given time.
	CountShipmentsSince(ctx context.Context, since time.Time) (int, error)

	// TopValues returns grouped shipment counts for one field ("origin",
	// "destination", "cargo_type", "truck_type", "payment_type", "phone"),
	// most frequent first. A zero since means no time filter.
	TopValues(ctx context.Context, field string, since time.Time, limit int) ([]ValueCount, error)

	// PhoneStats returns per-contact shipment counts for shipments whose
	// message timestamp is at or after the given time, most frequent first.
	// Classification of contact values (full phone vs bare account ID) is
	// left to the caller.
	PhoneStats(ctx context.Context, since time.Time) ([]ValueCount, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// shipmentFields maps the public field names accepted by TopValues to
// columns, so grouped queries never interpolate caller input.
var shipmentFields = map[string]string{
	"origin":       "s.origin",
	"destination":  "s.destination",
	"cargo_type":   "s.cargo_type",
	"truck_type":   "s.truck_type",
	"payment_type": "s.payment_type",
	"phone":        "s.phone",
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetOrCreateChannel returns the channel with the given external ID, creating
// it on first observation. The title is only written at creation time; the
// tracked flag is the single mutable attribute of a channel.
func (s *sqlxStore) GetOrCreateChannel(ctx context.Context, channelID int64, title string) (*Channel, error) {
	if channelID == 0 {
		return nil, fmt.Errorf("channel_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var channel Channel
	err := s.db.GetContext(ctx, &channel,
		`SELECT id, created_at, updated_at, channel_id, title, is_tracked
		 FROM channels WHERE channel_id = ?`, channelID)

	switch {
	case err == nil:
		return &channel, nil

	case errors.Is(err, sql.ErrNoRows):
		// First observation, fall through to insert.

	default:
		s.logger.ErrorContext(ctx, "Error looking up channel", "channel_id", channelID, "error", err)
		return nil, fmt.Errorf("failed to look up channel %d: %w", channelID, err)
	}

	now := time.Now().UTC()
	channel = Channel{
		CreatedAt: now,
		UpdatedAt: now,
		ChannelID: channelID,
		Title:     title,
	}

	result, err := s.db.NamedExecContext(ctx,
		`INSERT INTO channels (created_at, updated_at, channel_id, title, is_tracked)
		 VALUES (:created_at, :updated_at, :channel_id, :title, :is_tracked)`, &channel)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating channel", "channel_id", channelID, "error", err)
		return nil, fmt.Errorf("failed to create channel %d: %w", channelID, err)
	}

	if id, idErr := result.LastInsertId(); idErr == nil {
		//nolint:gosec // integer overflow conversion is acceptable here
		channel.ID = uint(id)
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after creating channel",
			"channel_id", channelID, "error", idErr)
	}

	s.logger.InfoContext(ctx, "Channel created", "channel_id", channelID, "title", title)
	return &channel, nil
}

// ListChannels returns all known channels, most recently observed first.
func (s *sqlxStore) ListChannels(ctx context.Context) ([]Channel, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var channels []Channel
	err := s.db.SelectContext(ctx, &channels,
		`SELECT id, created_at, updated_at, channel_id, title, is_tracked
		 FROM channels ORDER BY created_at DESC`)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing channels", "error", err)
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}

	return channels, nil
}

// SetChannelTracked toggles ingestion for a channel by external ID.
func (s *sqlxStore) SetChannelTracked(ctx context.Context, channelID int64, tracked bool) error {
	if channelID == 0 {
		return fmt.Errorf("channel_id cannot be zero")
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE channels SET is_tracked = ?, updated_at = ? WHERE channel_id = ?`,
		tracked, time.Now().UTC(), channelID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating channel tracking", "channel_id", channelID, "error", err)
		return fmt.Errorf("failed to update tracking for channel %d: %w", channelID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("channel %d not found", channelID)
	}

	s.logger.InfoContext(ctx, "Channel tracking updated", "channel_id", channelID, "tracked", tracked)
	return nil
}

// GetOrCreateMessage persists a message on first observation. Re-observing
// the same (channel, message_id) pair loads the stored row and writes
// nothing, which keeps re-fetch cycles idempotent.
func (s *sqlxStore) GetOrCreateMessage(ctx context.Context, msg *Message) (bool, error) {
	if msg == nil {
		return false, fmt.Errorf("cannot save nil message")
	}
	if msg.ChannelID == 0 {
		return false, fmt.Errorf("message must reference a channel")
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	var existing Message
	err := s.db.GetContext(ctx, &existing,
		`SELECT id, created_at, updated_at, channel_id, message_id, sender_id, sender_name, text, timestamp
		 FROM messages WHERE channel_id = ? AND message_id = ?`,
		msg.ChannelID, msg.MessageID)

	switch {
	case err == nil:
		*msg = existing
		return false, nil

	case errors.Is(err, sql.ErrNoRows):
		// First observation, fall through to insert.

	default:
		s.logger.ErrorContext(ctx, "Error looking up message",
			"channel_id", msg.ChannelID, "message_id", msg.MessageID, "error", err)
		return false, fmt.Errorf("failed to look up message %d: %w", msg.MessageID, err)
	}

	now := time.Now().UTC()
	msg.CreatedAt = now
	msg.UpdatedAt = now

	result, err := s.db.NamedExecContext(ctx,
		`INSERT INTO messages (created_at, updated_at, channel_id, message_id, sender_id, sender_name, text, timestamp)
		 VALUES (:created_at, :updated_at, :channel_id, :message_id, :sender_id, :sender_name, :text, :timestamp)`, msg)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving message",
			"channel_id", msg.ChannelID, "message_id", msg.MessageID, "error", err)
		return false, fmt.Errorf("failed to save message %d: %w", msg.MessageID, err)
	}

	if id, idErr := result.LastInsertId(); idErr == nil {
		//nolint:gosec // integer overflow conversion is acceptable here
		msg.ID = uint(id)
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after saving message",
			"message_id", msg.MessageID, "error", idErr)
	}

	s.logger.DebugContext(ctx, "Message saved", "channel_id", msg.ChannelID, "message_id", msg.MessageID)
	return true, nil
}

// UpsertShipment creates or refreshes a shipment. The key comparison uses IS
// so that NULL destination/phone values compare equal, matching the upsert
// key (message, origin, destination, phone).
func (s *sqlxStore) UpsertShipment(ctx context.Context, shipment *Shipment) (bool, error) {
	if shipment == nil {
		return false, fmt.Errorf("cannot save nil shipment")
	}
	if shipment.MessageID == 0 {
		return false, fmt.Errorf("shipment must reference a message")
	}

	now := time.Now().UTC()
	shipment.UpdatedAt = now

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for shipment upsert",
			"message_id", shipment.MessageID, "error", err)
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				if !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
				}
			}
		}
	}()

	var existingID uint
	err = tx.GetContext(ctx, &existingID,
		`SELECT id FROM shipments
		 WHERE message_id = ? AND origin IS ? AND destination IS ? AND phone IS ?
		 LIMIT 1`,
		shipment.MessageID, shipment.Origin, shipment.Destination, shipment.Phone)

	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.ErrorContext(ctx, "Error checking if shipment exists",
			"message_id", shipment.MessageID, "error", err)
		return false, fmt.Errorf("failed to check shipment for message %d: %w", shipment.MessageID, err)
	}

	if exists {
		shipment.ID = existingID
		_, err = tx.NamedExecContext(ctx,
			`UPDATE shipments SET
				cargo_type = :cargo_type,
				truck_type = :truck_type,
				payment_type = :payment_type,
				updated_at = :updated_at
			 WHERE id = :id`, shipment)
	} else {
		shipment.CreatedAt = now
		var result sql.Result
		result, err = tx.NamedExecContext(ctx,
			`INSERT INTO shipments (created_at, updated_at, message_id, origin, destination, cargo_type, truck_type, payment_type, phone)
			 VALUES (:created_at, :updated_at, :message_id, :origin, :destination, :cargo_type, :truck_type, :payment_type, :phone)`,
			shipment)
		if err == nil {
			if id, idErr := result.LastInsertId(); idErr == nil {
				//nolint:gosec // integer overflow conversion is acceptable here
				shipment.ID = uint(id)
			}
		}
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error upserting shipment",
			"message_id", shipment.MessageID, "error", err)
		return false, fmt.Errorf("failed to upsert shipment for message %d: %w", shipment.MessageID, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit shipment upsert",
			"message_id", shipment.MessageID, "error", err)
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	operation := "updated"
	if !exists {
		operation = "created"
	}
	s.logger.DebugContext(ctx, "Shipment saved",
		"operation", operation,
		"message_id", shipment.MessageID,
		"origin", shipment.Origin.String,
		"destination", shipment.Destination.String)

	return !exists, nil
}

// ShipmentsForRoute returns all shipments for one route within a channel,
// newest message first. The ordering is what makes the duplicate detector's
// first-occurrence-wins rule deterministic.
func (s *sqlxStore) ShipmentsForRoute(ctx context.Context, channelID int64, origin, destination string) ([]RouteShipment, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var shipments []RouteShipment
	query := `
        SELECT s.id, s.created_at, s.updated_at, s.message_id,
               s.origin, s.destination, s.cargo_type, s.truck_type, s.payment_type, s.phone,
               m.message_id AS tg_message_id, m.text AS message_text, m.timestamp AS message_date
        FROM shipments s
        JOIN messages m ON m.id = s.message_id
        JOIN channels c ON c.id = m.channel_id
        WHERE c.channel_id = ? AND s.origin IS ? AND s.destination IS ?
        ORDER BY m.timestamp DESC, s.id DESC;
    `

	err := s.db.SelectContext(ctx, &shipments, query,
		channelID, NullString(origin), NullString(destination))
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting shipments for route",
			"channel_id", channelID, "origin", origin, "destination", destination, "error", err)
		return nil, fmt.Errorf("failed to get shipments for route %q-%q: %w", origin, destination, err)
	}

	s.logger.DebugContext(ctx, "Fetched shipments for route",
		"channel_id", channelID, "origin", origin, "destination", destination, "count", len(shipments))
	return shipments, nil
}

// ShipmentsSince returns export rows for shipments whose message timestamp is
// at or after the given time, newest first.
func (s *sqlxStore) ShipmentsSince(ctx context.Context, since time.Time) ([]ExportRow, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var rows []ExportRow
	query := `
        SELECT c.channel_id, c.title AS channel_title,
               m.message_id AS tg_message_id, m.timestamp AS message_date,
               s.origin, s.destination, s.cargo_type, s.truck_type, s.payment_type, s.phone
        FROM shipments s
        JOIN messages m ON m.id = s.message_id
        JOIN channels c ON c.id = m.channel_id
        WHERE m.timestamp >= ?
        ORDER BY m.timestamp DESC, s.id DESC;
    `

	err := s.db.SelectContext(ctx, &rows, query, since)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting shipments for export", "since", since, "error", err)
		return nil, fmt.Errorf("failed to get shipments since %s: %w", since, err)
	}

	return rows, nil
}

// CountShipmentsSince counts shipments whose message timestamp is at or after
// the given time.
func (s *sqlxStore) CountShipmentsSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	query := `
        SELECT COUNT(*)
        FROM shipments s
        JOIN messages m ON m.id = s.message_id
        WHERE m.timestamp >= ?;
    `

	if err := s.db.GetContext(ctx, &count, query, since); err != nil {
		s.logger.ErrorContext(ctx, "Error counting shipments", "since", since, "error", err)
		return 0, fmt.Errorf("failed to count shipments since %s: %w", since, err)
	}

	return count, nil
}

// TopValues returns grouped shipment counts for one field, most frequent
// first. NULL buckets are excluded; they carry no reporting value.
func (s *sqlxStore) TopValues(ctx context.Context, field string, since time.Time, limit int) ([]ValueCount, error) {
	column, ok := shipmentFields[field]
	if !ok {
		return nil, fmt.Errorf("unknown shipment field %q", field)
	}

	if limit <= 0 {
		limit = 10
	}

	var counts []ValueCount
	query := fmt.Sprintf(`
        SELECT %s AS value, COUNT(*) AS total
        FROM shipments s
        JOIN messages m ON m.id = s.message_id
        WHERE %s IS NOT NULL AND m.timestamp >= ?
        GROUP BY %s
        ORDER BY total DESC
        LIMIT ?;
    `, column, column, column)

	err := s.db.SelectContext(ctx, &counts, query, since, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting grouped counts", "field", field, "error", err)
		return nil, fmt.Errorf("failed to get top values for %s: %w", field, err)
	}

	return counts, nil
}

// PhoneStats returns per-contact shipment counts, most frequent first.
func (s *sqlxStore) PhoneStats(ctx context.Context, since time.Time) ([]ValueCount, error) {
	var counts []ValueCount
	query := `
        SELECT s.phone AS value, COUNT(*) AS total
        FROM shipments s
        JOIN messages m ON m.id = s.message_id
        WHERE s.phone IS NOT NULL AND m.timestamp >= ?
        GROUP BY s.phone
        ORDER BY total DESC;
    `

	err := s.db.SelectContext(ctx, &counts, query, since)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting phone stats", "since", since, "error", err)
		return nil, fmt.Errorf("failed to get phone stats since %s: %w", since, err)
	}

	return counts, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}
