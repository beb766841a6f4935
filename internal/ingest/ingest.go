// Package ingest turns stored channel messages into shipment rows by running
// the extraction pipeline over every block of the message text.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/otabekdev/yukmonitor/internal/database"
	"github.com/otabekdev/yukmonitor/internal/extract"
)

// EventSink receives a notification for every upserted shipment. Implementations
// must tolerate being called concurrently.
type EventSink interface {
	ShipmentUpserted(ctx context.Context, shipment *database.Shipment, created bool) error
}

// Result summarises one ingestion run over a single message.
type Result struct {
	Blocks   int // segmented blocks
	Accepted int // blocks that passed the acceptance filter
	Created  int // shipments inserted (as opposed to refreshed)
}

// Ingestor drives segmentation, field extraction, and shipment upserts for
// incoming messages.
type Ingestor struct {
	store     database.Store
	extractor *extract.Extractor
	events    EventSink
	logger    *slog.Logger
}

// New creates an Ingestor. events may be nil when no publisher is configured.
func New(store database.Store, extractor *extract.Extractor, events EventSink, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Ingestor{
		store:     store,
		extractor: extractor,
		events:    events,
		logger:    logger.With("component", "ingest"),
	}
}

// IngestMessage processes a stored message: its text is segmented into blocks,
// each block has fields extracted, and every accepted block is upserted as a
// shipment. All accepted blocks are processed, so a single message can yield
// several shipments. Re-ingesting the same message converges to the same rows.
func (i *Ingestor) IngestMessage(ctx context.Context, msg *database.Message) (Result, error) {
	var res Result
	if msg == nil || msg.ID == 0 {
		return res, fmt.Errorf("message must be stored before ingestion")
	}

	blocks := i.extractor.Segment(msg.Text)
	res.Blocks = len(blocks)

	for _, block := range blocks {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		fields := i.extractor.Extract(block)
		if !i.extractor.Accept(fields) {
			continue
		}
		res.Accepted++

		shipment := &database.Shipment{
			MessageID:   msg.ID,
			Origin:      database.NullString(fields.Origin),
			Destination: database.NullString(fields.Destination),
			CargoType:   database.NullString(fields.CargoType),
			TruckType:   database.NullString(fields.TruckType),
			PaymentType: database.NullString(fields.PaymentType),
			Phone:       database.NullString(fields.Phone),
		}

		created, err := i.store.UpsertShipment(ctx, shipment)
		if err != nil {
			return res, fmt.Errorf("failed to upsert shipment for message %d: %w", msg.ID, err)
		}
		if created {
			res.Created++
		}

		if i.events != nil {
			if err := i.events.ShipmentUpserted(ctx, shipment, created); err != nil {
				// Publishing is best effort; the shipment is already persisted.
				i.logger.WarnContext(ctx, "Failed to publish shipment event",
					"shipment_id", shipment.ID, "error", err)
			}
		}
	}

	i.logger.InfoContext(ctx, "Message ingested",
		"message_id", msg.MessageID,
		"blocks", res.Blocks,
		"accepted", res.Accepted,
		"created", res.Created)

	return res, nil
}
