package models

// Legacy editorial pipeline schema. One item moves prospect -> queued ->
// curated, each stage in its own table chained by numeric references, with a
// tile_source row required by the legacy feed renderer. Column names follow
// the legacy MySQL schema, not gorm defaults.

// Prospect is a candidate item before scheduling. Unique per
// (feed_id, resolved_id); re-submission merges instead of duplicating.
type Prospect struct {
	ProspectID  int64  `gorm:"column:prospect_id;primaryKey;autoIncrement"`
	FeedID      int64  `gorm:"column:feed_id;not null;uniqueIndex:ux_feed_resolved,priority:1"`
	ResolvedID  int64  `gorm:"column:resolved_id;not null;uniqueIndex:ux_feed_resolved,priority:2"`
	Curator     string `gorm:"column:curator;size:90"`
	TopDomainID *int64 `gorm:"column:top_domain_id"`
	Title       string `gorm:"column:title;size:500"`
	Excerpt     string `gorm:"column:excerpt;type:text"`
	ImageSrc    string `gorm:"column:image_src;size:500"`
	Publisher   string `gorm:"column:publisher;size:255"`
	TimeAdded   int64  `gorm:"column:time_added;not null"`
	TimeUpdated int64  `gorm:"column:time_updated;not null"`
}

func (Prospect) TableName() string { return "curated_feed_prospects" }

// QueuedItem references a Prospect and adds scheduling attributes.
// Unique per prospect_id.
type QueuedItem struct {
	QueuedID        int64  `gorm:"column:queued_id;primaryKey;autoIncrement"`
	FeedID          int64  `gorm:"column:feed_id;not null"`
	ProspectID      int64  `gorm:"column:prospect_id;not null;uniqueIndex"`
	ResolvedID      int64  `gorm:"column:resolved_id;not null"`
	Curator         string `gorm:"column:curator;size:90"`
	RelevanceLength string `gorm:"column:relevance_length;size:10;default:'week'"`
	TopicID         *int64 `gorm:"column:topic_id"`
	Weight          int64  `gorm:"column:weight;default:1"`
	Status          string `gorm:"column:status;size:10;default:'ready'"`
	TimeAdded       int64  `gorm:"column:time_added;not null"`
	TimeUpdated     int64  `gorm:"column:time_updated;not null"`
}

func (QueuedItem) TableName() string { return "curated_feed_queued_items" }

// CuratedItem is the published row. Its auto-generated curated_rec_id is the
// canonical legacy identifier joined against the new system's external ids.
type CuratedItem struct {
	CuratedRecID int64  `gorm:"column:curated_rec_id;primaryKey;autoIncrement"`
	FeedID       int64  `gorm:"column:feed_id;not null"`
	QueuedID     int64  `gorm:"column:queued_id;not null;uniqueIndex"`
	ProspectID   int64  `gorm:"column:prospect_id;not null"`
	ResolvedID   int64  `gorm:"column:resolved_id;not null"`
	Status       string `gorm:"column:status;size:10;default:'live'"`
	TimeLive     int64  `gorm:"column:time_live;not null"`
	TimeAdded    int64  `gorm:"column:time_added;not null"`
	TimeUpdated  int64  `gorm:"column:time_updated;not null"`
}

func (CuratedItem) TableName() string { return "curated_feed_items" }

// TileSource is the secondary row the legacy feed renderer joins against;
// exactly one per CuratedItem.
type TileSource struct {
	CuratedRecID int64  `gorm:"column:source_id;primaryKey"`
	Type         string `gorm:"column:type;size:20;default:'curated'"`
}

func (TileSource) TableName() string { return "tile_source" }

// DeletedItem is the audit tombstone written when a curated item is removed.
type DeletedItem struct {
	ID            int64  `gorm:"column:id;primaryKey;autoIncrement"`
	CuratedRecID  int64  `gorm:"column:curated_rec_id;not null;index"`
	FeedID        int64  `gorm:"column:feed_id;not null"`
	QueuedID      int64  `gorm:"column:queued_id;not null"`
	ProspectID    int64  `gorm:"column:prospect_id;not null"`
	ResolvedID    int64  `gorm:"column:resolved_id;not null"`
	Status        string `gorm:"column:status;size:10"`
	TimeLive      int64  `gorm:"column:time_live"`
	TimeAdded     int64  `gorm:"column:time_added"`
	TimeUpdated   int64  `gorm:"column:time_updated"`
	DeletedUserID int64  `gorm:"column:deleted_user_id;not null"`
}

func (DeletedItem) TableName() string { return "curated_feed_items_deleted" }

// Domain maps a raw top-level domain name to its legacy numeric id.
type Domain struct {
	DomainID  int64  `gorm:"column:domain_id;primaryKey;autoIncrement"`
	TopDomain string `gorm:"column:top_domain;size:255;uniqueIndex"`
}

func (Domain) TableName() string { return "domains" }

// SyndicatedArticle attributes a republished article back to the original
// publisher's domain, keyed by the trailing slug of the syndicated URL.
type SyndicatedArticle struct {
	ID       int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Slug     string `gorm:"column:slug;size:255;uniqueIndex"`
	DomainID int64  `gorm:"column:domain_id;not null"`
}

func (SyndicatedArticle) TableName() string { return "syndicated_articles" }
