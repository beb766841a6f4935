package ingest_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/otabekdev/yukmonitor/internal/database"
	"github.com/otabekdev/yukmonitor/internal/extract"
	"github.com/otabekdev/yukmonitor/internal/ingest"
)

type recordingSink struct {
	upserts []bool
}

func (r *recordingSink) ShipmentUpserted(_ context.Context, _ *database.Shipment, created bool) error {
	r.upserts = append(r.upserts, created)
	return nil
}

func newTestEnv(t *testing.T) (database.Store, *database.Message) {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	store := database.NewStore(db, nil)
	ctx := context.Background()

	ch, err := store.GetOrCreateChannel(ctx, -1001234, "Yuk Markazi")
	require.NoError(t, err)

	msg := &database.Message{
		ChannelID: ch.ID,
		MessageID: 1,
		Timestamp: time.Now().UTC(),
	}
	return store, msg
}

func TestIngestMessageMultipleBlocks(t *testing.T) {
	store, msg := newTestEnv(t)
	ctx := context.Background()

	// Two complete postings separated by a phone number boundary, plus a
	// trailing prose block that must be filtered out.
	msg.Text = "Tashkent — Samarkand\nТЕНТ 20т\n+998901234567\n" +
		"Bukhara — Khiva\nгруз мебель\n+998907654321\n" +
		"Reklama uchun admin bilan boglaning"

	_, err := store.GetOrCreateMessage(ctx, msg)
	require.NoError(t, err)

	sink := &recordingSink{}
	ing := ingest.New(store, extract.New(extract.DefaultKeywords()), sink, nil)

	res, err := ing.IngestMessage(ctx, msg)
	require.NoError(t, err)
	require.Equal(t, 3, res.Blocks)
	require.Equal(t, 2, res.Accepted)
	require.Equal(t, 2, res.Created)
	require.Equal(t, []bool{true, true}, sink.upserts)

	rows, err := store.ShipmentsSince(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestIngestMessageIdempotent(t *testing.T) {
	store, msg := newTestEnv(t)
	ctx := context.Background()

	msg.Text = "Tashkent — Samarkand\nТЕНТ 20т\n+998901234567"
	_, err := store.GetOrCreateMessage(ctx, msg)
	require.NoError(t, err)

	ing := ingest.New(store, extract.New(extract.DefaultKeywords()), nil, nil)

	res, err := ing.IngestMessage(ctx, msg)
	require.NoError(t, err)
	require.Equal(t, 1, res.Created)

	res, err = ing.IngestMessage(ctx, msg)
	require.NoError(t, err)
	require.Equal(t, 1, res.Accepted)
	require.Zero(t, res.Created, "re-ingestion must not create new rows")

	rows, err := store.ShipmentsSince(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestIngestMessageRefreshesEditableFields(t *testing.T) {
	store, msg := newTestEnv(t)
	ctx := context.Background()

	msg.Text = "Tashkent — Samarkand\nТЕНТ 20т\n+998901234567"
	_, err := store.GetOrCreateMessage(ctx, msg)
	require.NoError(t, err)

	ing := ingest.New(store, extract.New(extract.DefaultKeywords()), nil, nil)

	_, err = ing.IngestMessage(ctx, msg)
	require.NoError(t, err)

	// The posting was edited: same route and phone, new truck line. The
	// stored row is refreshed in place rather than duplicated.
	edited := *msg
	edited.Text = "Tashkent — Samarkand\nРЕФ 86 куб\n+998901234567"

	res, err := ing.IngestMessage(ctx, &edited)
	require.NoError(t, err)
	require.Zero(t, res.Created)

	rows, err := store.ShipmentsSince(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "РЕФ 86 куб", rows[0].TruckType.String)
}

func TestIngestMessageRejectsUnstored(t *testing.T) {
	store, _ := newTestEnv(t)

	ing := ingest.New(store, extract.New(extract.DefaultKeywords()), nil, nil)

	_, err := ing.IngestMessage(context.Background(), &database.Message{Text: "Tashkent — Samarkand\n+998901234567"})
	require.Error(t, err)

	_, err = ing.IngestMessage(context.Background(), nil)
	require.Error(t, err)
}

func TestIngestMessageNoAcceptedBlocks(t *testing.T) {
	store, msg := newTestEnv(t)
	ctx := context.Background()

	msg.Text = "Guruhimizga xush kelibsiz, reklama uchun yozing"
	_, err := store.GetOrCreateMessage(ctx, msg)
	require.NoError(t, err)

	ing := ingest.New(store, extract.New(extract.DefaultKeywords()), nil, nil)

	res, err := ing.IngestMessage(ctx, msg)
	require.NoError(t, err)
	require.Equal(t, 1, res.Blocks)
	require.Zero(t, res.Accepted)

	rows, err := store.ShipmentsSince(ctx, time.Time{})
	require.NoError(t, err)
	require.Empty(t, rows)
}
