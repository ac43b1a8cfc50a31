package datasync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelope(t *testing.T) {
	body := []byte(`{
		"detail-type": "add-scheduled-item",
		"detail": {
			"scheduledItemExternalId": "sched-1",
			"approvedItemExternalId": "appr-1",
			"scheduledSurfaceGuid": "NEW_TAB_EN_US",
			"url": "https://news.example.org/a",
			"title": "A",
			"topic": "SCIENCE",
			"isSyndicated": false,
			"createdBy": "sso|corp-ldap|alice",
			"createdAt": 1656400000,
			"updatedAt": 1656400000,
			"scheduledDate": "2022-06-29"
		}
	}`)

	env, err := ParseEnvelope(body)
	require.NoError(t, err)
	assert.Equal(t, EventAddScheduledItem, env.DetailType)

	ev, err := env.ScheduledItem()
	require.NoError(t, err)
	assert.Equal(t, "sched-1", ev.ScheduledItemExternalID)
	assert.Equal(t, SurfaceNewTabUS, ev.ScheduledSurfaceGUID)
	assert.Equal(t, "2022-06-29", ev.ScheduledDate)
}

func TestParseEnvelopeUnknownType(t *testing.T) {
	_, err := ParseEnvelope([]byte(`{"detail-type": "reticulate-splines", "detail": {}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestParseEnvelopeMalformedJSON(t *testing.T) {
	_, err := ParseEnvelope([]byte(`{`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestApprovedItemDetail(t *testing.T) {
	body := []byte(`{
		"detail-type": "update-approved-item",
		"detail": {
			"approvedItemExternalId": "appr-1",
			"url": "https://news.example.org/a",
			"title": "New Title",
			"updatedAt": 1656500000
		}
	}`)

	env, err := ParseEnvelope(body)
	require.NoError(t, err)

	ev, err := env.ApprovedItem()
	require.NoError(t, err)
	assert.Equal(t, "appr-1", ev.ApprovedItemExternalID)
	assert.Equal(t, "New Title", ev.Title)
}
