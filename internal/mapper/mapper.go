// Package mapper maintains the legacy-id to external-id mapping in a
// document store. It performs no retries of its own; transport-level failures
// surface directly to the engine.
package mapper

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Mapping is one identifier-mapping record, keyed by the legacy numeric id.
type Mapping struct {
	LegacyID                int64  `json:"legacyId"`
	ScheduledItemExternalID string `json:"scheduledItemExternalId"`
	ApprovedItemExternalID  string `json:"approvedItemExternalId,omitempty"`
	ScheduledSurfaceGUID    string `json:"scheduledSurfaceGuid"`
	LastUpdatedAt           int64  `json:"lastUpdatedAt"`
}

// store is the slice of the document-store client the mapper needs. The
// production implementation wraps the SurrealDB client; tests stub it.
type store interface {
	Change(thing string, data any) (any, error)
	Delete(thing string) (any, error)
	Query(sql string, vars any) (any, error)
}

type Mapper struct {
	store  store
	table  string
	limit  int
	logger *zap.Logger
	now    func() time.Time
}

func New(store store, table string, anomalyLimit int, logger *zap.Logger) *Mapper {
	return &Mapper{
		store:  store,
		table:  table,
		limit:  anomalyLimit,
		logger: logger,
		now:    time.Now,
	}
}

// Upsert replaces the mapping row for legacyID. Idempotent in effect; only
// the lastUpdatedAt stamp changes on re-application. Absent optional fields
// are simply omitted from the document.
func (m *Mapper) Upsert(legacyID int64, scheduledExternalID, approvedExternalID, surfaceGUID string) error {
	data := map[string]any{
		"legacyId":                legacyID,
		"scheduledItemExternalId": scheduledExternalID,
		"scheduledSurfaceGuid":    surfaceGUID,
		"lastUpdatedAt":           m.now().Unix(),
	}
	if approvedExternalID != "" {
		data["approvedItemExternalId"] = approvedExternalID
	}

	if _, err := m.store.Change(m.thing(legacyID), data); err != nil {
		return fmt.Errorf("failed to upsert mapping for legacy id %d: %w", legacyID, err)
	}
	return nil
}

// GetByLegacyID returns the mapping for a legacy id, or nil when absent.
func (m *Mapper) GetByLegacyID(legacyID int64) (*Mapping, error) {
	mappings, err := m.query("legacyId = $legacy_id", map[string]any{
		"legacy_id": legacyID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch mapping for legacy id %d: %w", legacyID, err)
	}
	if len(mappings) == 0 {
		return nil, nil
	}
	return &mappings[0], nil
}

// GetByScheduledExternalID looks up the at-most-one mapping carrying a
// scheduled-item external id. More than one match is an anomaly: logged,
// first one returned.
func (m *Mapper) GetByScheduledExternalID(externalID string) (*Mapping, error) {
	mappings, err := m.query("scheduledItemExternalId = $external_id", map[string]any{
		"external_id": externalID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query mapping for scheduled item %s: %w", externalID, err)
	}

	if len(mappings) == 0 {
		return nil, nil
	}
	if len(mappings) > 1 {
		m.logger.Warn("Multiple mappings for one scheduled item external id",
			zap.String("scheduled_item_external_id", externalID),
			zap.Int("count", len(mappings)))
	}
	return &mappings[0], nil
}

// GetBySurface returns every mapping for a surface. A full result page means
// the set may be truncated; that is logged as an anomaly, not returned as an
// error.
func (m *Mapper) GetBySurface(surfaceGUID string) ([]Mapping, error) {
	mappings, err := m.query("scheduledSurfaceGuid = $surface", map[string]any{
		"surface": surfaceGUID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings for surface %s: %w", surfaceGUID, err)
	}

	if len(mappings) >= m.limit {
		m.logger.Warn("Mapping result set may be truncated",
			zap.String("surface", surfaceGUID),
			zap.Int("count", len(mappings)),
			zap.Int("limit", m.limit))
	}
	return mappings, nil
}

// DeleteByLegacyID removes the mapping row; deleting an absent row is a no-op.
func (m *Mapper) DeleteByLegacyID(legacyID int64) error {
	if _, err := m.store.Delete(m.thing(legacyID)); err != nil {
		return fmt.Errorf("failed to delete mapping for legacy id %d: %w", legacyID, err)
	}
	return nil
}

func (m *Mapper) thing(legacyID int64) string {
	return fmt.Sprintf("%s:%d", m.table, legacyID)
}

func (m *Mapper) query(where string, vars map[string]any) ([]Mapping, error) {
	sql := fmt.Sprintf("SELECT * FROM %s WHERE %s LIMIT %d", m.table, where, m.limit)

	raw, err := m.store.Query(sql, vars)
	if err != nil {
		return nil, err
	}

	// Query responses arrive as one result set per statement.
	var sets []struct {
		Result []Mapping `json:"result"`
	}
	if err := decode(raw, &sets); err != nil {
		return nil, fmt.Errorf("failed to decode query result: %w", err)
	}
	if len(sets) == 0 {
		return nil, nil
	}
	return sets[0].Result, nil
}

// decode round-trips the client's dynamic result into a typed value.
func decode(raw any, dest any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}
