package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is a single direct message. ReadAt is set once, by the recipient.
type Message struct {
	ID             int64        `db:"id" json:"id"`
	ConversationID uuid.UUID    `db:"conversation_id" json:"conversation_id"`
	SenderID       int64        `db:"sender_id" json:"sender_id"`
	Content        *string      `db:"content" json:"content"`
	MediaURL       *string      `db:"media_url" json:"media_url"`
	MediaType      *string      `db:"media_type" json:"media_type"`
	LinkPreview    *LinkPreview `db:"link_preview" json:"link_preview"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	ReadAt         *time.Time   `db:"read_at" json:"read_at"`
}

// LinkPreview is derived from the first URL in a message's content.
type LinkPreview struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
}

// Value stores the preview as JSONB.
func (p *LinkPreview) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	// lib/pq sends []byte as bytea, so hand it text for the JSONB column.
	return string(data), nil
}

// Scan reads a JSONB preview column.
func (p *LinkPreview) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("link preview: unsupported type %T", src)
	}
	return json.Unmarshal(data, p)
}

// SendMessageRequest is the body of POST /conversations/{id}/messages.
type SendMessageRequest struct {
	Content   *string `json:"content"`
	MediaURL  *string `json:"mediaUrl"`
	MediaType *string `json:"mediaType"`
}

// Normalize trims the content and drops blank fields.
func (r *SendMessageRequest) Normalize() {
	r.Content = trimmedOrNil(r.Content)
	r.MediaURL = trimmedOrNil(r.MediaURL)
	r.MediaType = trimmedOrNil(r.MediaType)
	if r.MediaURL == nil {
		r.MediaType = nil
	}
}

// Validate rejects a message with neither content nor media.
func (r *SendMessageRequest) Validate() error {
	if r.Content == nil && r.MediaURL == nil {
		return ErrEmptyMessage
	}
	if r.Content != nil && len(*r.Content) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

type MessageListResponse struct {
	Messages []Message `json:"messages"`
}

// MaxMessageLength bounds message content in bytes.
const MaxMessageLength = 4000

var (
	ErrEmptyMessage   = newError(KindValidation, "message must have content or media")
	ErrMessageTooLong = newError(KindValidation, "message content is too long")
)
