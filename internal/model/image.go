package model

import (
	"time"

	"github.com/google/uuid"
)

// Image describes one stored original. The ID is assigned at upload and is
// the only way an image is addressed externally; everything else is
// descriptive metadata captured at ingestion time.
type Image struct {
	ID        uuid.UUID `json:"id"`
	Filename  string    `json:"filename"`   // name supplied by the uploader, cosmetic only
	MediaType string    `json:"media_type"` // declared content type, allow-listed at upload
	Size      int64     `json:"size"`       // original size in bytes
	Width     int       `json:"width"`      // intrinsic pixel width, from decoding
	Height    int       `json:"height"`     // intrinsic pixel height, from decoding
	Format    string    `json:"format"`     // codec format detected from the bytes
	Extension string    `json:"extension"`  // suffix of the original blob on disk
	CreatedAt time.Time `json:"created_at"`
}
