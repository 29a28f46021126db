package models

import (
	"encoding/json"
	"time"
)

// Document is one versioned configuration document.
type Document struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	UpdatedBy string          `json:"updatedBy,omitempty"`
}

// Revision is the immutable copy of a committed document version.
type Revision struct {
	Key       string          `json:"key"`
	Version   int             `json:"version"`
	Value     json.RawMessage `json:"value,omitempty"`
	UpdatedBy string          `json:"updatedBy,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
