package datasync

import (
	"encoding/json"
	"fmt"
)

// Detail types carried in the event envelope.
const (
	EventAddScheduledItem    = "add-scheduled-item"
	EventUpdateScheduledItem = "update-scheduled-item"
	EventRemoveScheduledItem = "remove-scheduled-item"
	EventUpdateApprovedItem  = "update-approved-item"
)

// Message is one queue delivery: an opaque identifier used for partial-batch
// failure reporting plus the JSON envelope body.
type Message struct {
	MessageID string          `json:"messageId"`
	Body      json.RawMessage `json:"body"`
}

// Envelope is the bus-level wrapper around one domain event.
type Envelope struct {
	DetailType string          `json:"detail-type"`
	Detail     json.RawMessage `json:"detail"`
}

// ScheduledItemEvent is the payload for add/update/remove of a scheduled item.
type ScheduledItemEvent struct {
	ScheduledItemExternalID string `json:"scheduledItemExternalId"`
	ApprovedItemExternalID  string `json:"approvedItemExternalId"`
	ScheduledSurfaceGUID    string `json:"scheduledSurfaceGuid"`
	URL                     string `json:"url"`
	Title                   string `json:"title"`
	Excerpt                 string `json:"excerpt"`
	Language                string `json:"language"`
	Publisher               string `json:"publisher"`
	ImageURL                string `json:"imageUrl"`
	Topic                   string `json:"topic"`
	IsSyndicated            bool   `json:"isSyndicated"`
	CreatedBy               string `json:"createdBy"`
	CreatedAt               int64  `json:"createdAt"`
	UpdatedAt               int64  `json:"updatedAt"`
	ScheduledDate           string `json:"scheduledDate"`
}

// ApprovedItemEvent is the payload for metadata-only updates. It carries no
// surface: approved-item metadata applies wherever the item appears.
type ApprovedItemEvent struct {
	ApprovedItemExternalID string `json:"approvedItemExternalId"`
	URL                    string `json:"url"`
	Title                  string `json:"title"`
	Excerpt                string `json:"excerpt"`
	Language               string `json:"language"`
	Publisher              string `json:"publisher"`
	ImageURL               string `json:"imageUrl"`
	UpdatedAt              int64  `json:"updatedAt"`
}

// ParseEnvelope decodes the bus envelope and validates the declared type.
func ParseEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed envelope: %v", ErrInvalidInput, err)
	}

	switch env.DetailType {
	case EventAddScheduledItem, EventUpdateScheduledItem, EventRemoveScheduledItem, EventUpdateApprovedItem:
		return &env, nil
	default:
		return nil, fmt.Errorf("%w: unknown detail type %q", ErrInvalidInput, env.DetailType)
	}
}

// ScheduledItem decodes the detail as a scheduled-item payload.
func (e *Envelope) ScheduledItem() (*ScheduledItemEvent, error) {
	var ev ScheduledItemEvent
	if err := json.Unmarshal(e.Detail, &ev); err != nil {
		return nil, fmt.Errorf("%w: malformed %s detail: %v", ErrInvalidInput, e.DetailType, err)
	}
	return &ev, nil
}

// ApprovedItem decodes the detail as an approved-item payload.
func (e *Envelope) ApprovedItem() (*ApprovedItemEvent, error) {
	var ev ApprovedItemEvent
	if err := json.Unmarshal(e.Detail, &ev); err != nil {
		return nil, fmt.Errorf("%w: malformed %s detail: %v", ErrInvalidInput, e.DetailType, err)
	}
	return &ev, nil
}
