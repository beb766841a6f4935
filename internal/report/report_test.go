package report_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/otabekdev/yukmonitor/internal/database"
	"github.com/otabekdev/yukmonitor/internal/report"
)

func TestClampDays(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		days     int
		expected int
	}{
		{"zero falls back to default", 0, report.DefaultExportDays},
		{"negative falls back to default", -3, report.DefaultExportDays},
		{"in range unchanged", 14, 14},
		{"one is allowed", 1, 1},
		{"above cap is clamped", 365, report.MaxExportDays},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := report.ClampDays(tc.days); got != tc.expected {
				t.Errorf("ClampDays(%d) = %d, want %d", tc.days, got, tc.expected)
			}
		})
	}
}

func seedStore(t *testing.T) database.Store {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	store := database.NewStore(db, nil)
	ctx := context.Background()

	ch, err := store.GetOrCreateChannel(ctx, -1001234, "Yuk Markazi")
	require.NoError(t, err)

	now := time.Now().UTC()
	seeds := []struct {
		messageID int64
		ts        time.Time
		origin    string
		dest      string
		phone     string
	}{
		{1, now.Add(-time.Hour), "Tashkent", "Samarkand", "+998901234567"},
		{2, now.Add(-2 * time.Hour), "Tashkent", "", "+998907654321"},
		{3, now.AddDate(0, 0, -90), "Bukhara", "Khiva", "+998935551122"},
	}
	for _, s := range seeds {
		msg := &database.Message{
			ChannelID: ch.ID,
			MessageID: s.messageID,
			Text:      "posting",
			Timestamp: s.ts,
		}
		_, err := store.GetOrCreateMessage(ctx, msg)
		require.NoError(t, err)

		_, err = store.UpsertShipment(ctx, &database.Shipment{
			MessageID:   msg.ID,
			Origin:      database.NullString(s.origin),
			Destination: database.NullString(s.dest),
			Phone:       database.NullString(s.phone),
		})
		require.NoError(t, err)
	}

	return store
}

func TestBuildCSV(t *testing.T) {
	store := seedStore(t)
	b := report.NewBuilder(store, nil)

	export, err := b.BuildCSV(context.Background(), 7)
	require.NoError(t, err)
	require.NotEmpty(t, export.RunID)
	require.Equal(t, 7, export.Days)
	require.Equal(t, 2, export.Rows, "the 90-day-old shipment is outside the window")
	require.Contains(t, export.Filename, ".csv")

	records, err := csv.NewReader(bytes.NewReader(export.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus two rows")
	require.Equal(t, "channel_id", records[0][0])
	require.Equal(t, "Yuk Markazi", records[1][1])
	require.Equal(t, "Samarkand", records[1][5], "newest shipment first")
	require.Empty(t, records[2][5], "absent destination renders as empty cell")
}

func TestBuildCSVDistinctRunIDs(t *testing.T) {
	store := seedStore(t)
	b := report.NewBuilder(store, nil)

	first, err := b.BuildCSV(context.Background(), 7)
	require.NoError(t, err)
	second, err := b.BuildCSV(context.Background(), 7)
	require.NoError(t, err)
	require.NotEqual(t, first.RunID, second.RunID)
}

func TestShipmentsJSONShape(t *testing.T) {
	store := seedStore(t)
	b := report.NewBuilder(store, nil)

	shipments, err := b.Shipments(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, shipments, 2)

	require.NotNil(t, shipments[0].Destination)
	require.Equal(t, "Samarkand", *shipments[0].Destination)
	require.Nil(t, shipments[1].Destination, "absent field must be null, not empty")
	require.Nil(t, shipments[0].CargoType)
}

func TestBuildStats(t *testing.T) {
	store := seedStore(t)
	b := report.NewBuilder(store, nil)

	stats, err := b.BuildStats(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, stats.Last7Days)
	require.Equal(t, 2, stats.Last30Days)
	require.NotEmpty(t, stats.TopOrigins)
	require.Equal(t, "Tashkent", stats.TopOrigins[0].Value)
	require.Equal(t, 2, stats.TopOrigins[0].Total)
	require.Equal(t, 2, stats.Contacts.Phones, "the 90-day-old contact is outside the window")
	require.Zero(t, stats.Contacts.TelegramIDs)
}

func TestBuildStatsContactClassification(t *testing.T) {
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	store := database.NewStore(db, nil)
	ctx := context.Background()

	ch, err := store.GetOrCreateChannel(ctx, -1001234, "Yuk Markazi")
	require.NoError(t, err)

	now := time.Now().UTC()
	contacts := []string{"+998901234567", "998 90 765 43 21", "935551122"}
	for i, phone := range contacts {
		msg := &database.Message{
			ChannelID: ch.ID,
			MessageID: int64(i + 1),
			Text:      "posting",
			Timestamp: now,
		}
		_, err := store.GetOrCreateMessage(ctx, msg)
		require.NoError(t, err)

		_, err = store.UpsertShipment(ctx, &database.Shipment{
			MessageID: msg.ID,
			Origin:    database.NullString("Tashkent"),
			Phone:     database.NullString(phone),
		})
		require.NoError(t, err)
	}

	stats, err := report.NewBuilder(store, nil).BuildStats(ctx)
	require.NoError(t, err)

	// "+..." and a 12-digit grouped number are dialable; the bare 9-digit
	// value is an account ID.
	require.Equal(t, 2, stats.Contacts.Phones)
	require.Equal(t, 1, stats.Contacts.TelegramIDs)
}
