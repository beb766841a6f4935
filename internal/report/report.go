// Package report builds CSV and JSON views over stored shipments: the export
// files the bot sends to the administrator and the aggregate stats shown by
// the bot and the HTTP API.
package report

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/otabekdev/yukmonitor/internal/database"
)

const (
	// DefaultExportDays is the window used when the caller does not ask for
	// a specific one.
	DefaultExportDays = 7

	// MaxExportDays caps the export window. Telegram document uploads have
	// a size limit and two months of postings is already far past useful.
	MaxExportDays = 60
)

// Builder produces exports and statistics from the store.
type Builder struct {
	store  database.Store
	logger *slog.Logger
}

// NewBuilder creates a report Builder.
func NewBuilder(store database.Store, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Builder{
		store:  store,
		logger: logger.With("component", "report"),
	}
}

// Export is a rendered CSV export with identifying metadata.
type Export struct {
	RunID    string
	Filename string
	Days     int
	Rows     int
	Data     []byte
}

// Shipment is the JSON shape of one exported shipment. Absent fields are
// null, not empty strings.
type Shipment struct {
	ChannelID    int64     `json:"channel_id"`
	ChannelTitle string    `json:"channel_title"`
	MessageID    int64     `json:"message_id"`
	Date         time.Time `json:"date"`
	Origin       *string   `json:"origin"`
	Destination  *string   `json:"destination"`
	CargoType    *string   `json:"cargo_type"`
	TruckType    *string   `json:"truck_type"`
	PaymentType  *string   `json:"payment_type"`
	Phone        *string   `json:"phone"`
}

// Stats is the aggregate view over stored shipments.
type Stats struct {
	Today           int          `json:"today"`
	Last7Days       int          `json:"last_7_days"`
	Last30Days      int          `json:"last_30_days"`
	TopOrigins      []ValueCount `json:"top_origins"`
	TopDestinations []ValueCount `json:"top_destinations"`
	Contacts        ContactStats `json:"contacts"`
}

// ContactStats splits contact values into full phone numbers and bare
// account IDs. Postings often list a 9-digit account instead of a dialable
// number; reports keep the two apart.
type ContactStats struct {
	Phones      int `json:"phones"`
	TelegramIDs int `json:"telegram_ids"`
}

// ValueCount is one bucket of a grouped count.
type ValueCount struct {
	Value string `json:"value"`
	Total int    `json:"total"`
}

var csvHeader = []string{
	"channel_id", "channel_title", "message_id", "date",
	"origin", "destination", "cargo_type", "truck_type", "payment_type", "phone",
}

// ClampDays normalizes a requested export window into [1, MaxExportDays],
// substituting the default for non-positive values.
func ClampDays(days int) int {
	if days <= 0 {
		return DefaultExportDays
	}
	if days > MaxExportDays {
		return MaxExportDays
	}
	return days
}

// BuildCSV renders all shipments from the last `days` days as a CSV document.
func (b *Builder) BuildCSV(ctx context.Context, days int) (*Export, error) {
	days = ClampDays(days)
	since := time.Now().UTC().AddDate(0, 0, -days)

	rows, err := b.store.ShipmentsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load shipments for export: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			strconv.FormatInt(row.ChannelID, 10),
			row.ChannelTitle,
			strconv.FormatInt(row.MessageID, 10),
			row.Date.UTC().Format(time.RFC3339),
			row.Origin.String,
			row.Destination.String,
			row.CargoType.String,
			row.TruckType.String,
			row.PaymentType.String,
			row.Phone.String,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}

	runID := uuid.NewString()
	export := &Export{
		RunID:    runID,
		Filename: fmt.Sprintf("shipments_%s_%dd.csv", time.Now().UTC().Format("2006-01-02"), days),
		Days:     days,
		Rows:     len(rows),
		Data:     buf.Bytes(),
	}

	b.logger.InfoContext(ctx, "CSV export built",
		"run_id", runID, "days", days, "rows", export.Rows, "bytes", len(export.Data))

	return export, nil
}

// Shipments returns the JSON view of shipments from the last `days` days.
func (b *Builder) Shipments(ctx context.Context, days int) ([]Shipment, error) {
	since := time.Now().UTC().AddDate(0, 0, -ClampDays(days))

	rows, err := b.store.ShipmentsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load shipments: %w", err)
	}

	out := make([]Shipment, 0, len(rows))
	for _, row := range rows {
		out = append(out, Shipment{
			ChannelID:    row.ChannelID,
			ChannelTitle: row.ChannelTitle,
			MessageID:    row.MessageID,
			Date:         row.Date,
			Origin:       optional(row.Origin),
			Destination:  optional(row.Destination),
			CargoType:    optional(row.CargoType),
			TruckType:    optional(row.TruckType),
			PaymentType:  optional(row.PaymentType),
			Phone:        optional(row.Phone),
		})
	}

	return out, nil
}

// BuildStats collects shipment counts over the standard windows plus the most
// frequent origins and destinations of the last 30 days.
func (b *Builder) BuildStats(ctx context.Context) (*Stats, error) {
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	stats := &Stats{}

	var err error
	if stats.Today, err = b.store.CountShipmentsSince(ctx, midnight); err != nil {
		return nil, fmt.Errorf("failed to count today's shipments: %w", err)
	}
	if stats.Last7Days, err = b.store.CountShipmentsSince(ctx, now.AddDate(0, 0, -7)); err != nil {
		return nil, fmt.Errorf("failed to count 7-day shipments: %w", err)
	}
	if stats.Last30Days, err = b.store.CountShipmentsSince(ctx, now.AddDate(0, 0, -30)); err != nil {
		return nil, fmt.Errorf("failed to count 30-day shipments: %w", err)
	}

	monthAgo := now.AddDate(0, 0, -30)
	origins, err := b.store.TopValues(ctx, "origin", monthAgo, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to load top origins: %w", err)
	}
	destinations, err := b.store.TopValues(ctx, "destination", monthAgo, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to load top destinations: %w", err)
	}

	stats.TopOrigins = toValueCounts(origins)
	stats.TopDestinations = toValueCounts(destinations)

	contacts, err := b.store.PhoneStats(ctx, monthAgo)
	if err != nil {
		return nil, fmt.Errorf("failed to load phone stats: %w", err)
	}
	for _, c := range contacts {
		if isFullPhone(c.Value.String) {
			stats.Contacts.Phones++
		} else {
			stats.Contacts.TelegramIDs++
		}
	}

	return stats, nil
}

// isFullPhone reports whether a contact value looks like a dialable number
// rather than a bare 9-digit account ID.
func isFullPhone(value string) bool {
	if strings.HasPrefix(strings.TrimSpace(value), "+") {
		return true
	}
	digits := 0
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 11
}

func optional(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func toValueCounts(counts []database.ValueCount) []ValueCount {
	out := make([]ValueCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, ValueCount{Value: c.Value.String, Total: c.Total})
	}
	return out
}
