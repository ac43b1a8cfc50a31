package mapper

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubStore struct {
	changeThing string
	changeData  map[string]any
	changeErr   error

	deleteThing string
	deleteErr   error

	querySQL  string
	queryVars map[string]any
	queryResp any
	queryErr  error
}

func (s *stubStore) Change(thing string, data any) (any, error) {
	s.changeThing = thing
	s.changeData = data.(map[string]any)
	return data, s.changeErr
}

func (s *stubStore) Delete(thing string) (any, error) {
	s.deleteThing = thing
	return nil, s.deleteErr
}

func (s *stubStore) Query(sql string, vars any) (any, error) {
	s.querySQL = sql
	s.queryVars = vars.(map[string]any)
	return s.queryResp, s.queryErr
}

func newTestMapper(store *stubStore) *Mapper {
	m := New(store, "mappings", 100, zap.NewNop())
	m.now = func() time.Time { return time.Unix(1656500000, 0) }
	return m
}

func resultSet(mappings ...Mapping) any {
	return []map[string]any{{"result": mappings}}
}

func TestUpsertWritesFullDocument(t *testing.T) {
	store := &stubStore{}
	m := newTestMapper(store)

	err := m.Upsert(42, "sched-1", "appr-1", "NEW_TAB_EN_US")

	require.NoError(t, err)
	assert.Equal(t, "mappings:42", store.changeThing)
	assert.Equal(t, map[string]any{
		"legacyId":                int64(42),
		"scheduledItemExternalId": "sched-1",
		"approvedItemExternalId":  "appr-1",
		"scheduledSurfaceGuid":    "NEW_TAB_EN_US",
		"lastUpdatedAt":           int64(1656500000),
	}, store.changeData)
}

func TestUpsertOmitsEmptyApprovedID(t *testing.T) {
	store := &stubStore{}
	m := newTestMapper(store)

	require.NoError(t, m.Upsert(42, "sched-1", "", "NEW_TAB_EN_US"))

	_, present := store.changeData["approvedItemExternalId"]
	assert.False(t, present)
}

func TestUpsertWrapsStoreError(t *testing.T) {
	store := &stubStore{changeErr: errors.New("connection reset")}
	m := newTestMapper(store)

	err := m.Upsert(42, "sched-1", "", "NEW_TAB_EN_US")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "legacy id 42")
}

func TestGetByLegacyIDFound(t *testing.T) {
	store := &stubStore{queryResp: resultSet(Mapping{
		LegacyID:                42,
		ScheduledItemExternalID: "sched-1",
		ScheduledSurfaceGUID:    "NEW_TAB_EN_US",
	})}
	m := newTestMapper(store)

	mapping, err := m.GetByLegacyID(42)

	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, int64(42), mapping.LegacyID)
	assert.Equal(t, "SELECT * FROM mappings WHERE legacyId = $legacy_id LIMIT 100", store.querySQL)
	assert.Equal(t, map[string]any{"legacy_id": int64(42)}, store.queryVars)
}

func TestGetByLegacyIDAbsentReturnsNil(t *testing.T) {
	store := &stubStore{queryResp: resultSet()}
	m := newTestMapper(store)

	mapping, err := m.GetByLegacyID(42)

	require.NoError(t, err)
	assert.Nil(t, mapping)
}

func TestGetByScheduledExternalIDReturnsFirstOnAnomaly(t *testing.T) {
	store := &stubStore{queryResp: resultSet(
		Mapping{LegacyID: 42, ScheduledItemExternalID: "sched-1"},
		Mapping{LegacyID: 43, ScheduledItemExternalID: "sched-1"},
	)}
	m := newTestMapper(store)

	mapping, err := m.GetByScheduledExternalID("sched-1")

	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, int64(42), mapping.LegacyID)
}

func TestGetBySurfaceReturnsAllMatches(t *testing.T) {
	store := &stubStore{queryResp: resultSet(
		Mapping{LegacyID: 42, ScheduledSurfaceGUID: "NEW_TAB_EN_US"},
		Mapping{LegacyID: 43, ScheduledSurfaceGUID: "NEW_TAB_EN_US"},
	)}
	m := newTestMapper(store)

	mappings, err := m.GetBySurface("NEW_TAB_EN_US")

	require.NoError(t, err)
	assert.Len(t, mappings, 2)
	assert.Equal(t, map[string]any{"surface": "NEW_TAB_EN_US"}, store.queryVars)
}

func TestQueryErrorIsWrapped(t *testing.T) {
	store := &stubStore{queryErr: errors.New("timeout")}
	m := newTestMapper(store)

	_, err := m.GetByScheduledExternalID("sched-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sched-1")
}

func TestDeleteByLegacyID(t *testing.T) {
	store := &stubStore{}
	m := newTestMapper(store)

	require.NoError(t, m.DeleteByLegacyID(42))
	assert.Equal(t, "mappings:42", store.deleteThing)
}

func TestDeleteByLegacyIDWrapsStoreError(t *testing.T) {
	store := &stubStore{deleteErr: errors.New("connection reset")}
	m := newTestMapper(store)

	err := m.DeleteByLegacyID(42)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "legacy id 42")
}
