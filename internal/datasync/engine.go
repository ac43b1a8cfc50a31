// Package datasync applies inbound corpus events to the legacy store and
// keeps the identifier map consistent with the relational writes.
package datasync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ifuryst/feedsync/internal/config"
	"github.com/ifuryst/feedsync/internal/mapper"
	"github.com/ifuryst/feedsync/internal/models"
	"github.com/ifuryst/feedsync/internal/resolver"
	"github.com/ifuryst/feedsync/internal/service"
)

// Projector is the slice of the relational projector the engine drives.
type Projector interface {
	AddScheduledItem(ctx context.Context, ev *ScheduledItemEvent, resolved *resolver.ResolvedURL) (int64, error)
	UpdateScheduledItem(ctx context.Context, legacyID int64, ev *ScheduledItemEvent) error
	RemoveScheduledItem(ctx context.Context, legacyID int64) (*models.CuratedItem, error)
	UpdateApprovedItemMetadata(ctx context.Context, ev *ApprovedItemEvent, resolved *resolver.ResolvedURL) error
}

// Mapper is the identifier-mapping store as the engine sees it.
type Mapper interface {
	Upsert(legacyID int64, scheduledExternalID, approvedExternalID, surfaceGUID string) error
	GetByScheduledExternalID(externalID string) (*mapper.Mapping, error)
	DeleteByLegacyID(legacyID int64) error
}

// Resolver normalizes a URL into legacy content metadata.
type Resolver interface {
	Resolve(ctx context.Context, url string) (*resolver.ResolvedURL, error)
}

// Telemetry records per-event failures for operators.
type Telemetry interface {
	RecordError(level, source, title, message string, options ...service.ErrorLogOption) error
}

type BatchItemFailure struct {
	ItemIdentifier string `json:"itemIdentifier"`
}

// BatchResult is the partial-batch-failure response: only the listed items
// are redelivered, everything else is implicitly successful.
type BatchResult struct {
	BatchItemFailures []BatchItemFailure `json:"batchItemFailures"`
}

type Engine struct {
	projector Projector
	mapper    Mapper
	resolver  Resolver
	telemetry Telemetry
	logger    *zap.Logger
	allowed   map[string]struct{}
}

func NewEngine(p Projector, m Mapper, r Resolver, t Telemetry, cfg *config.SyncConfig, logger *zap.Logger) *Engine {
	allowed := make(map[string]struct{}, len(cfg.AllowedSurfaces))
	for _, surface := range cfg.AllowedSurfaces {
		allowed[surface] = struct{}{}
	}

	return &Engine{
		projector: p,
		mapper:    m,
		resolver:  r,
		telemetry: t,
		logger:    logger,
		allowed:   allowed,
	}
}

// ProcessBatch handles a batch of messages strictly sequentially, in arrival
// order. Events for the same feed+content pair must apply last-write-wins, so
// no concurrency. A failure on one message never stops its siblings; the
// result lists exactly the failed item identifiers.
func (e *Engine) ProcessBatch(ctx context.Context, msgs []Message) BatchResult {
	var result BatchResult

	for _, msg := range msgs {
		if err := e.processMessage(ctx, msg); err != nil {
			e.logger.Error("Event processing failed",
				zap.String("message_id", msg.MessageID),
				zap.Error(err))
			result.BatchItemFailures = append(result.BatchItemFailures, BatchItemFailure{
				ItemIdentifier: msg.MessageID,
			})
		}
	}

	e.logger.Info("Batch processed",
		zap.Int("total", len(msgs)),
		zap.Int("failed", len(result.BatchItemFailures)))

	return result
}

func (e *Engine) processMessage(ctx context.Context, msg Message) error {
	env, err := ParseEnvelope(msg.Body)
	if err != nil {
		e.recordFailure(msg.MessageID, "", err)
		return err
	}

	if err := e.dispatch(ctx, env); err != nil {
		e.recordFailure(msg.MessageID, env.DetailType, err)
		return fmt.Errorf("%s: %w", env.DetailType, err)
	}

	return nil
}

func (e *Engine) dispatch(ctx context.Context, env *Envelope) error {
	// Metadata-only updates carry no surface and bypass both the allow-list
	// and the identifier map.
	if env.DetailType == EventUpdateApprovedItem {
		return e.handleUpdateApprovedItem(ctx, env)
	}

	ev, err := env.ScheduledItem()
	if err != nil {
		return err
	}

	if _, ok := e.allowed[ev.ScheduledSurfaceGUID]; !ok {
		// Staged rollout: surfaces outside the allow-list are skipped, not failed.
		e.logger.Info("Skipping event for surface outside allow-list",
			zap.String("detail_type", env.DetailType),
			zap.String("surface", ev.ScheduledSurfaceGUID))
		return nil
	}

	switch env.DetailType {
	case EventAddScheduledItem:
		return e.handleAdd(ctx, ev)
	case EventUpdateScheduledItem:
		return e.handleUpdate(ctx, ev)
	case EventRemoveScheduledItem:
		return e.handleRemove(ctx, ev)
	default:
		return fmt.Errorf("%w: unhandled detail type %q", ErrInvalidInput, env.DetailType)
	}
}

// handleAdd projects the event relationally, then upserts the identifier
// mapping. The mapping write happens strictly after the transaction commits;
// if it fails the event is reported failed even though the relational write
// stuck, and the redelivered retry converges through the merge-on-conflict
// upserts.
func (e *Engine) handleAdd(ctx context.Context, ev *ScheduledItemEvent) error {
	resolved, err := e.resolver.Resolve(ctx, ev.URL)
	if err != nil {
		return err
	}

	legacyID, err := e.projector.AddScheduledItem(ctx, ev, resolved)
	if err != nil {
		return err
	}

	if err := e.mapper.Upsert(legacyID, ev.ScheduledItemExternalID, ev.ApprovedItemExternalID, ev.ScheduledSurfaceGUID); err != nil {
		return fmt.Errorf("relational write committed as %d but mapping write failed: %w", legacyID, err)
	}

	e.logger.Info("Added scheduled item",
		zap.Int64("legacy_id", legacyID),
		zap.String("scheduled_item_external_id", ev.ScheduledItemExternalID),
		zap.String("surface", ev.ScheduledSurfaceGUID))

	return nil
}

func (e *Engine) handleUpdate(ctx context.Context, ev *ScheduledItemEvent) error {
	mapping, err := e.mapper.GetByScheduledExternalID(ev.ScheduledItemExternalID)
	if err != nil {
		return err
	}
	if mapping == nil {
		return fmt.Errorf("%w: no mapping for scheduled item %s", ErrNotFound, ev.ScheduledItemExternalID)
	}

	if err := e.projector.UpdateScheduledItem(ctx, mapping.LegacyID, ev); err != nil {
		return err
	}

	e.logger.Info("Updated scheduled item",
		zap.Int64("legacy_id", mapping.LegacyID),
		zap.String("scheduled_item_external_id", ev.ScheduledItemExternalID))

	return nil
}

// handleRemove deletes the relational rows first; the mapping delete follows
// the committed transaction, with the same accepted non-atomicity as add.
func (e *Engine) handleRemove(ctx context.Context, ev *ScheduledItemEvent) error {
	mapping, err := e.mapper.GetByScheduledExternalID(ev.ScheduledItemExternalID)
	if err != nil {
		return err
	}
	if mapping == nil {
		return fmt.Errorf("%w: no mapping for scheduled item %s", ErrNotFound, ev.ScheduledItemExternalID)
	}

	removed, err := e.projector.RemoveScheduledItem(ctx, mapping.LegacyID)
	if err != nil {
		return err
	}

	if err := e.mapper.DeleteByLegacyID(mapping.LegacyID); err != nil {
		return fmt.Errorf("relational delete committed for %d but mapping delete failed: %w", mapping.LegacyID, err)
	}

	e.logger.Info("Removed scheduled item",
		zap.Int64("legacy_id", removed.CuratedRecID),
		zap.String("scheduled_item_external_id", ev.ScheduledItemExternalID))

	return nil
}

func (e *Engine) handleUpdateApprovedItem(ctx context.Context, env *Envelope) error {
	ev, err := env.ApprovedItem()
	if err != nil {
		return err
	}

	resolved, err := e.resolver.Resolve(ctx, ev.URL)
	if err != nil {
		return err
	}

	if err := e.projector.UpdateApprovedItemMetadata(ctx, ev, resolved); err != nil {
		return err
	}

	e.logger.Info("Updated approved item metadata",
		zap.String("approved_item_external_id", ev.ApprovedItemExternalID),
		zap.Int64("resolved_id", resolved.ResolvedID))

	return nil
}

func (e *Engine) recordFailure(messageID, detailType string, cause error) {
	if e.telemetry == nil {
		return
	}

	options := []service.ErrorLogOption{
		service.WithMessageID(messageID),
		service.WithDetailType(detailType),
	}

	if err := e.telemetry.RecordError("error", "datasync", "event processing failed", cause.Error(), options...); err != nil {
		e.logger.Warn("Failed to record error telemetry", zap.Error(err))
	}
}
