package model

import (
	"time"

	"github.com/google/uuid"
)

// Event types published to the lifecycle topic.
const (
	EventImageUploaded = "image.uploaded"
	EventImageDeleted  = "image.deleted"
)

// Event is a lifecycle notification sent to the queue when an image is
// uploaded or deleted.
type Event struct {
	Type     string    `json:"type"`
	ImageID  uuid.UUID `json:"image_id"`
	Filename string    `json:"filename"`
	At       time.Time `json:"at"`
}
