// Package projector owns all writes to the legacy relational schema. Every
// event maps to exactly one transaction; no row ever survives a partial write.
package projector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ifuryst/feedsync/internal/config"
	"github.com/ifuryst/feedsync/internal/datasync"
	"github.com/ifuryst/feedsync/internal/models"
	"github.com/ifuryst/feedsync/internal/resolver"
)

type Projector struct {
	db               *gorm.DB
	logger           *zap.Logger
	syndicationHost  string
	syndicatedPrefix string
	deletedByUserID  int64
}

func NewProjector(db *gorm.DB, logger *zap.Logger, cfg *config.SyncConfig) *Projector {
	return &Projector{
		db:               db,
		logger:           logger,
		syndicationHost:  cfg.SyndicationHost,
		syndicatedPrefix: cfg.SyndicatedPrefix,
		deletedByUserID:  cfg.DeletedByUserID,
	}
}

// AddScheduledItem projects an add event onto the four legacy tables inside
// one transaction and returns the canonical legacy id. Re-applying the same
// event merges onto the existing rows instead of duplicating them, so
// redelivered messages converge.
func (p *Projector) AddScheduledItem(ctx context.Context, ev *datasync.ScheduledItemEvent, resolved *resolver.ResolvedURL) (int64, error) {
	feedID, err := datasync.FeedIDForSurface(ev.ScheduledSurfaceGUID)
	if err != nil {
		return 0, err
	}
	curator, err := datasync.ParseCuratorIdentity(ev.CreatedBy)
	if err != nil {
		return 0, err
	}
	timeLive, err := datasync.SurfaceLocalTime(ev.ScheduledSurfaceGUID, ev.ScheduledDate)
	if err != nil {
		return 0, err
	}
	topicID := datasync.TopicIDForName(ev.Topic)

	var legacyID int64
	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		domainID, err := p.resolveDomainID(tx, ev.URL, resolved)
		if err != nil {
			return err
		}

		prospect, err := p.upsertProspect(tx, feedID, resolved.ResolvedID, domainID, curator, ev)
		if err != nil {
			return err
		}

		queued, err := p.upsertQueuedItem(tx, prospect, topicID, curator, ev)
		if err != nil {
			return err
		}

		item, err := p.upsertCuratedItem(tx, queued, timeLive.Unix(), ev)
		if err != nil {
			return err
		}

		if err := p.replaceTileSource(tx, item.CuratedRecID); err != nil {
			return err
		}

		legacyID = item.CuratedRecID
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("add scheduled item: %w", err)
	}

	return legacyID, nil
}

// UpdateScheduledItem mutates the existing queued and curated rows in place.
// No new ids are minted; a missing curated row is fatal.
func (p *Projector) UpdateScheduledItem(ctx context.Context, legacyID int64, ev *datasync.ScheduledItemEvent) error {
	curator, err := datasync.ParseCuratorIdentity(ev.CreatedBy)
	if err != nil {
		return err
	}
	timeLive, err := datasync.SurfaceLocalTime(ev.ScheduledSurfaceGUID, ev.ScheduledDate)
	if err != nil {
		return err
	}
	topicID := datasync.TopicIDForName(ev.Topic)

	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := p.curatedItem(tx, legacyID)
		if err != nil {
			return err
		}

		queuedUpdates := map[string]interface{}{
			"topic_id":     topicID,
			"curator":      curator,
			"time_updated": ev.UpdatedAt,
		}
		if err := tx.Model(&models.QueuedItem{}).
			Where("queued_id = ?", item.QueuedID).
			Updates(queuedUpdates).Error; err != nil {
			return fmt.Errorf("failed to update queued row %d: %w", item.QueuedID, err)
		}

		itemUpdates := map[string]interface{}{
			"time_live":    timeLive.Unix(),
			"status":       "live",
			"time_updated": ev.UpdatedAt,
		}
		if err := tx.Model(&models.CuratedItem{}).
			Where("curated_rec_id = ?", legacyID).
			Updates(itemUpdates).Error; err != nil {
			return fmt.Errorf("failed to update curated row %d: %w", legacyID, err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("update scheduled item %d: %w", legacyID, err)
	}

	return nil
}

// RemoveScheduledItem tombstones and deletes one curated item. The audit
// insert and all deletes share a single transaction; a missing curated row is
// fatal, not retried.
func (p *Projector) RemoveScheduledItem(ctx context.Context, legacyID int64) (*models.CuratedItem, error) {
	var removed *models.CuratedItem

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := p.curatedItem(tx, legacyID)
		if err != nil {
			return err
		}

		tombstone := models.DeletedItem{
			CuratedRecID:  item.CuratedRecID,
			FeedID:        item.FeedID,
			QueuedID:      item.QueuedID,
			ProspectID:    item.ProspectID,
			ResolvedID:    item.ResolvedID,
			Status:        item.Status,
			TimeLive:      item.TimeLive,
			TimeAdded:     item.TimeAdded,
			TimeUpdated:   item.TimeUpdated,
			DeletedUserID: p.deletedByUserID,
		}
		if err := tx.Create(&tombstone).Error; err != nil {
			return fmt.Errorf("failed to write deletion audit row: %w", err)
		}

		if err := tx.Delete(&models.Prospect{}, "prospect_id = ?", item.ProspectID).Error; err != nil {
			return fmt.Errorf("failed to delete prospect %d: %w", item.ProspectID, err)
		}
		if err := tx.Delete(&models.QueuedItem{}, "queued_id = ?", item.QueuedID).Error; err != nil {
			return fmt.Errorf("failed to delete queued row %d: %w", item.QueuedID, err)
		}
		if err := tx.Delete(&models.CuratedItem{}, "curated_rec_id = ?", legacyID).Error; err != nil {
			return fmt.Errorf("failed to delete curated row %d: %w", legacyID, err)
		}
		if err := tx.Delete(&models.TileSource{}, "source_id = ?", legacyID).Error; err != nil {
			return fmt.Errorf("failed to delete tile source %d: %w", legacyID, err)
		}

		removed = item
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("remove scheduled item %d: %w", legacyID, err)
	}

	return removed, nil
}

// UpdateApprovedItemMetadata applies a metadata-only update to every prospect
// row carrying the resolved content id. It carries no surface and never
// touches timestamps beyond time_updated or the identifier mapping.
func (p *Projector) UpdateApprovedItemMetadata(ctx context.Context, ev *datasync.ApprovedItemEvent, resolved *resolver.ResolvedURL) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"title":        ev.Title,
			"excerpt":      ev.Excerpt,
			"image_src":    ev.ImageURL,
			"publisher":    ev.Publisher,
			"time_updated": ev.UpdatedAt,
		}
		result := tx.Model(&models.Prospect{}).
			Where("resolved_id = ?", resolved.ResolvedID).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update prospect metadata: %w", result.Error)
		}

		if result.RowsAffected == 0 {
			p.logger.Info("Approved-item update matched no legacy rows",
				zap.Int64("resolved_id", resolved.ResolvedID),
				zap.String("approved_item_external_id", ev.ApprovedItemExternalID))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update approved item metadata: %w", err)
	}

	return nil
}

func (p *Projector) curatedItem(tx *gorm.DB, legacyID int64) (*models.CuratedItem, error) {
	var item models.CuratedItem
	if err := tx.Where("curated_rec_id = ?", legacyID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: curated_rec_id %d", datasync.ErrNotFound, legacyID)
		}
		return nil, fmt.Errorf("failed to query curated row %d: %w", legacyID, err)
	}
	return &item, nil
}

func (p *Projector) upsertProspect(tx *gorm.DB, feedID, resolvedID int64, domainID *int64, curator string, ev *datasync.ScheduledItemEvent) (*models.Prospect, error) {
	var prospect models.Prospect
	err := tx.Where("feed_id = ? AND resolved_id = ?", feedID, resolvedID).First(&prospect).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to query prospect: %w", err)
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		prospect = models.Prospect{
			FeedID:      feedID,
			ResolvedID:  resolvedID,
			Curator:     curator,
			TopDomainID: domainID,
			Title:       ev.Title,
			Excerpt:     ev.Excerpt,
			ImageSrc:    ev.ImageURL,
			Publisher:   ev.Publisher,
			TimeAdded:   ev.CreatedAt,
			TimeUpdated: ev.UpdatedAt,
		}
		if err := tx.Create(&prospect).Error; err != nil {
			return nil, fmt.Errorf("failed to create prospect: %w", err)
		}
		return &prospect, nil
	}

	// Merge: every mutable field is overwritten, time_added is preserved.
	prospect.Curator = curator
	prospect.TopDomainID = domainID
	prospect.Title = ev.Title
	prospect.Excerpt = ev.Excerpt
	prospect.ImageSrc = ev.ImageURL
	prospect.Publisher = ev.Publisher
	prospect.TimeUpdated = ev.UpdatedAt
	if err := tx.Save(&prospect).Error; err != nil {
		return nil, fmt.Errorf("failed to merge prospect %d: %w", prospect.ProspectID, err)
	}
	return &prospect, nil
}

func (p *Projector) upsertQueuedItem(tx *gorm.DB, prospect *models.Prospect, topicID *int64, curator string, ev *datasync.ScheduledItemEvent) (*models.QueuedItem, error) {
	var queued models.QueuedItem
	err := tx.Where("prospect_id = ?", prospect.ProspectID).First(&queued).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to query queued row: %w", err)
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		queued = models.QueuedItem{
			FeedID:          prospect.FeedID,
			ProspectID:      prospect.ProspectID,
			ResolvedID:      prospect.ResolvedID,
			Curator:         curator,
			RelevanceLength: "week",
			TopicID:         topicID,
			Weight:          1,
			Status:          "ready",
			TimeAdded:       ev.CreatedAt,
			TimeUpdated:     ev.UpdatedAt,
		}
		if err := tx.Create(&queued).Error; err != nil {
			return nil, fmt.Errorf("failed to create queued row: %w", err)
		}
		return &queued, nil
	}

	queued.Curator = curator
	queued.TopicID = topicID
	queued.TimeUpdated = ev.UpdatedAt
	if err := tx.Save(&queued).Error; err != nil {
		return nil, fmt.Errorf("failed to merge queued row %d: %w", queued.QueuedID, err)
	}
	return &queued, nil
}

func (p *Projector) upsertCuratedItem(tx *gorm.DB, queued *models.QueuedItem, timeLive int64, ev *datasync.ScheduledItemEvent) (*models.CuratedItem, error) {
	var item models.CuratedItem
	err := tx.Where("queued_id = ?", queued.QueuedID).First(&item).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to query curated row: %w", err)
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		item = models.CuratedItem{
			FeedID:      queued.FeedID,
			QueuedID:    queued.QueuedID,
			ProspectID:  queued.ProspectID,
			ResolvedID:  queued.ResolvedID,
			Status:      "live",
			TimeLive:    timeLive,
			TimeAdded:   ev.CreatedAt,
			TimeUpdated: ev.UpdatedAt,
		}
		if err := tx.Create(&item).Error; err != nil {
			return nil, fmt.Errorf("failed to create curated row: %w", err)
		}
		return &item, nil
	}

	item.Status = "live"
	item.TimeLive = timeLive
	item.TimeUpdated = ev.UpdatedAt
	if err := tx.Save(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to merge curated row %d: %w", item.CuratedRecID, err)
	}
	return &item, nil
}

func (p *Projector) replaceTileSource(tx *gorm.DB, curatedRecID int64) error {
	var tile models.TileSource
	err := tx.Where("source_id = ?", curatedRecID).First(&tile).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to query tile source: %w", err)
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		tile = models.TileSource{
			CuratedRecID: curatedRecID,
			Type:         "curated",
		}
		if err := tx.Create(&tile).Error; err != nil {
			return fmt.Errorf("failed to create tile source: %w", err)
		}
	}
	return nil
}

// resolveDomainID applies the syndication-aware domain rule: a URL on the
// platform's own syndication host is attributed to the original publisher's
// domain via the syndicated_articles table; anything else is looked up by the
// resolver-provided raw domain. An unknown domain yields a null id.
func (p *Projector) resolveDomainID(tx *gorm.DB, rawURL string, resolved *resolver.ResolvedURL) (*int64, error) {
	if slug, ok := p.syndicatedSlug(rawURL); ok {
		var domainID int64
		err := tx.Model(&models.SyndicatedArticle{}).
			Select("syndicated_articles.domain_id").
			Joins("JOIN domains ON domains.domain_id = syndicated_articles.domain_id").
			Where("syndicated_articles.slug = ?", slug).
			Take(&domainID).Error
		if err == nil {
			return &domainID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to query syndicated article %q: %w", slug, err)
		}
		p.logger.Warn("Syndicated URL with unknown slug, falling back to raw domain",
			zap.String("slug", slug),
			zap.String("url", rawURL))
	}

	var domain models.Domain
	err := tx.Where("top_domain = ?", resolved.Domain).First(&domain).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query domain %q: %w", resolved.Domain, err)
	}
	return &domain.DomainID, nil
}

func (p *Projector) syndicatedSlug(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	if u.Hostname() != p.syndicationHost || !strings.HasPrefix(u.Path, p.syndicatedPrefix) {
		return "", false
	}

	trimmed := strings.Trim(strings.TrimPrefix(u.Path, p.syndicatedPrefix), "/")
	if trimmed == "" {
		return "", false
	}
	segments := strings.Split(trimmed, "/")
	return segments[len(segments)-1], true
}
