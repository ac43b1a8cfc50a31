package datasync

import (
	"fmt"
	"strings"
	"time"
)

// Static mappings between the new corpus vocabulary and the legacy schema.
// Unknown-key policies differ per table and are load-bearing:
//   - surface -> feed id: unknown is a fatal input error
//   - topic name <-> topic id: unknown maps to a null id
//   - surface -> local-time offset: unknown falls back to 3 AM UTC

// Recognized scheduled surfaces.
const (
	SurfaceNewTabUS   = "NEW_TAB_EN_US"
	SurfaceNewTabDE   = "NEW_TAB_DE_DE"
	SurfaceNewTabGB   = "NEW_TAB_EN_GB"
	SurfaceNewTabINTL = "NEW_TAB_EN_INTL"
)

var surfaceToFeedID = map[string]int64{
	SurfaceNewTabUS:   1,
	SurfaceNewTabDE:   3,
	SurfaceNewTabGB:   6,
	SurfaceNewTabINTL: 8,
}

// FeedIDForSurface maps a surface GUID to its legacy feed id. An unmapped
// surface is a fatal input error, never a default.
func FeedIDForSurface(surface string) (int64, error) {
	feedID, ok := surfaceToFeedID[surface]
	if !ok {
		return 0, fmt.Errorf("%w: no legacy feed for surface %q", ErrInvalidInput, surface)
	}
	return feedID, nil
}

var topicToLegacyID = map[string]int64{
	"BUSINESS":         1,
	"CAREER":           2,
	"EDUCATION":        3,
	"ENTERTAINMENT":    4,
	"FOOD":             5,
	"GAMING":           6,
	"HEALTH_FITNESS":   7,
	"PARENTING":        8,
	"PERSONAL_FINANCE": 9,
	"POLITICS":         10,
	"SCIENCE":          11,
	"SELF_IMPROVEMENT": 12,
	"SPORTS":           13,
	"TECHNOLOGY":       14,
	"TRAVEL":           15,
	"CORONAVIRUS":      16,
}

var legacyIDToTopic = func() map[int64]string {
	m := make(map[int64]string, len(topicToLegacyID))
	for name, id := range topicToLegacyID {
		m[id] = name
	}
	return m
}()

// TopicIDForName maps a corpus topic name to the legacy topic id. Unknown
// topics yield nil, not an error.
func TopicIDForName(topic string) *int64 {
	id, ok := topicToLegacyID[strings.ToUpper(topic)]
	if !ok {
		return nil
	}
	return &id
}

// TopicNameForID is the reverse lookup, used by the ops endpoints.
func TopicNameForID(id int64) (string, bool) {
	name, ok := legacyIDToTopic[id]
	return name, ok
}

// Creator identities arrive as federated strings of the form
// authority|realm|username. Anything else is a fatal parse error.
const (
	identityAuthority = "sso"
	identityRealm     = "corp-ldap"
)

// ParseCuratorIdentity extracts the username from a federated identity string.
func ParseCuratorIdentity(identity string) (string, error) {
	parts := strings.SplitN(identity, "|", 3)
	if len(parts) != 3 || parts[0] != identityAuthority || parts[1] != identityRealm || parts[2] == "" {
		return "", fmt.Errorf("%w: unrecognized creator identity %q", ErrInvalidInput, identity)
	}
	return parts[2], nil
}

// Each surface publishes at 3 AM in its single canonical locale, expressed as
// a fixed offset from midnight UTC of the scheduled date. Fixed offsets, not
// timezone-database lookups: the legacy pipeline predates DST correctness and
// the feeds rely on these exact instants.
type surfaceOffset struct {
	days    int
	hours   int
	minutes int
}

var surfaceOffsets = map[string]surfaceOffset{
	SurfaceNewTabUS:   {hours: 7},
	SurfaceNewTabDE:   {hours: 1},
	SurfaceNewTabGB:   {hours: 2},
	SurfaceNewTabINTL: {days: -1, hours: 21, minutes: 30},
}

// fallback for unrecognized surfaces: 3 AM UTC on the scheduled date.
var defaultOffset = surfaceOffset{hours: 3}

// SurfaceLocalTime converts a YYYY-MM-DD scheduled date into the UTC instant
// the item goes live for the given surface.
func SurfaceLocalTime(surface, scheduledDate string) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", scheduledDate, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad scheduled date %q: %v", ErrInvalidInput, scheduledDate, err)
	}

	off, ok := surfaceOffsets[surface]
	if !ok {
		off = defaultOffset
	}

	return day.AddDate(0, 0, off.days).
		Add(time.Duration(off.hours)*time.Hour + time.Duration(off.minutes)*time.Minute), nil
}
