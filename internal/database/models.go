package database

import (
	"database/sql"
	"time"
)

// Channel is a broadcast source. A row is created on first observation of any
// message from the source and never deleted; only the tracked flag changes.
type Channel struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	ChannelID int64  `db:"channel_id"` // external Telegram identifier, unique
	Title     string `db:"title"`
	IsTracked bool   `db:"is_tracked"`
}

// Message is one raw posting. (ChannelID, MessageID) is unique: re-observing
// the same message is a no-op.
type Message struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	ChannelID  uint           `db:"channel_id"` // references channels.id
	MessageID  int64          `db:"message_id"` // external Telegram identifier
	SenderID   sql.NullInt64  `db:"sender_id"`
	SenderName sql.NullString `db:"sender_name"`
	Text       string         `db:"text"`
	Timestamp  time.Time      `db:"timestamp"`
}

// Shipment is one extracted freight posting. A message may own any number of
// shipments. Identity for upsert purposes is (MessageID, Origin, Destination,
// Phone); the remaining fields are refreshed on re-extraction.
type Shipment struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	MessageID   uint           `db:"message_id"` // references messages.id
	Origin      sql.NullString `db:"origin"`
	Destination sql.NullString `db:"destination"`
	CargoType   sql.NullString `db:"cargo_type"`
	TruckType   sql.NullString `db:"truck_type"`
	PaymentType sql.NullString `db:"payment_type"`
	Phone       sql.NullString `db:"phone"`
}

// RouteShipment is a shipment joined with its owning message, as consumed by
// the duplicate detector and the route listings.
type RouteShipment struct {
	Shipment

	TgMessageID int64     `db:"tg_message_id"`
	MessageText string    `db:"message_text"`
	MessageDate time.Time `db:"message_date"`
}

// ExportRow is the flattened shape used by CSV/JSON exports: shipment fields
// with channel and message context.
type ExportRow struct {
	ChannelID    int64          `db:"channel_id"`
	ChannelTitle string         `db:"channel_title"`
	MessageID    int64          `db:"tg_message_id"`
	Date         time.Time      `db:"message_date"`
	Origin       sql.NullString `db:"origin"`
	Destination  sql.NullString `db:"destination"`
	CargoType    sql.NullString `db:"cargo_type"`
	TruckType    sql.NullString `db:"truck_type"`
	PaymentType  sql.NullString `db:"payment_type"`
	Phone        sql.NullString `db:"phone"`
}

// ValueCount is one bucket of a grouped count, e.g. shipments per origin.
type ValueCount struct {
	Value sql.NullString `db:"value"`
	Total int            `db:"total"`
}

// NullString converts the extractor's empty-means-absent convention into a
// nullable column value.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// NullInt64 treats zero as absent, matching how unset Telegram identifiers
// arrive.
func NullInt64(n int64) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: n != 0}
}
