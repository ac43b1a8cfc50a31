package datasync

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedIDForSurface(t *testing.T) {
	tests := []struct {
		surface string
		feedID  int64
	}{
		{SurfaceNewTabUS, 1},
		{SurfaceNewTabDE, 3},
		{SurfaceNewTabGB, 6},
		{SurfaceNewTabINTL, 8},
	}

	for _, tt := range tests {
		feedID, err := FeedIDForSurface(tt.surface)
		require.NoError(t, err, tt.surface)
		assert.Equal(t, tt.feedID, feedID, tt.surface)
	}
}

func TestFeedIDForUnknownSurfaceIsFatal(t *testing.T) {
	_, err := FeedIDForSurface("NEW_TAB_KLINGON")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestTopicMappingIsBidirectional(t *testing.T) {
	id := TopicIDForName("TECHNOLOGY")
	require.NotNil(t, id)

	name, ok := TopicNameForID(*id)
	require.True(t, ok)
	assert.Equal(t, "TECHNOLOGY", name)
}

func TestTopicMappingIsCaseInsensitive(t *testing.T) {
	id := TopicIDForName("technology")
	require.NotNil(t, id)
	assert.Equal(t, int64(14), *id)
}

func TestUnknownTopicYieldsNil(t *testing.T) {
	assert.Nil(t, TopicIDForName("FLOWER_ARRANGING"))

	_, ok := TopicNameForID(999)
	assert.False(t, ok)
}

func TestParseCuratorIdentity(t *testing.T) {
	username, err := ParseCuratorIdentity("sso|corp-ldap|alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestParseCuratorIdentityRejectsBadShapes(t *testing.T) {
	bad := []string{
		"",
		"alice",
		"sso|alice",
		"wrong|corp-ldap|alice",
		"sso|wrong-realm|alice",
		"sso|corp-ldap|",
	}

	for _, identity := range bad {
		_, err := ParseCuratorIdentity(identity)
		require.Error(t, err, identity)
		assert.True(t, errors.Is(err, ErrInvalidInput), identity)
	}
}

func TestParseCuratorIdentityKeepsPipesInUsername(t *testing.T) {
	username, err := ParseCuratorIdentity("sso|corp-ldap|weird|name")
	require.NoError(t, err)
	assert.Equal(t, "weird|name", username)
}

func TestSurfaceLocalTime(t *testing.T) {
	midnight := time.Date(2022, 6, 29, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		surface string
		want    time.Time
	}{
		// 3 AM local expressed as a fixed offset from midnight UTC.
		{SurfaceNewTabUS, midnight.Add(7 * time.Hour)},
		{SurfaceNewTabDE, midnight.Add(1 * time.Hour)},
		{SurfaceNewTabGB, midnight.Add(2 * time.Hour)},
		// The international surface lands at 21:30 UTC the previous day.
		{SurfaceNewTabINTL, time.Date(2022, 6, 28, 21, 30, 0, 0, time.UTC)},
		// Unrecognized surfaces fall back to 3 AM UTC.
		{"NEW_TAB_SOMEWHERE", midnight.Add(3 * time.Hour)},
	}

	for _, tt := range tests {
		got, err := SurfaceLocalTime(tt.surface, "2022-06-29")
		require.NoError(t, err, tt.surface)
		assert.True(t, got.Equal(tt.want), "%s: got %s want %s", tt.surface, got, tt.want)
	}
}

func TestSurfaceLocalTimeRejectsBadDate(t *testing.T) {
	_, err := SurfaceLocalTime(SurfaceNewTabUS, "06/29/2022")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
