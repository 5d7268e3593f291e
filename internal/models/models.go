package models

import (
	"fmt"
	"time"
)

// Collection identifies one of the two legacy message tables.
type Collection string

const (
	CollectionSunday  Collection = "sunday"
	CollectionSpecial Collection = "special"
)

// Valid reports whether c is one of the known collections.
func (c Collection) Valid() bool {
	return c == CollectionSunday || c == CollectionSpecial
}

// SourceMessage is a row from ssca_sunday_msg or ssca_special_msg.
//
// Date is a free-text char(11) column and may be malformed; DateTS is the
// auxiliary Unix timestamp used as a fallback when it is.
type SourceMessage struct {
	ID          int        `json:"id"`
	Collection  Collection `json:"collection"`
	Date        string     `json:"date"`
	DateTS      int64      `json:"date_ts"`
	Speaker     string     `json:"speaker"`
	Theme       string     `json:"theme"`
	Gospel      bool       `json:"gospel"`
	AudioFile   string     `json:"audio_file,omitempty"`
	YoutubeLink string     `json:"youtube_link,omitempty"`
}

// Key returns the ledger key for this record, e.g. "sunday_123".
func (m SourceMessage) Key() string {
	return RecordKey(m.Collection, m.ID)
}

// RecordKey builds the ledger key for a source record.
func RecordKey(collection Collection, sourceID int) string {
	return fmt.Sprintf("%s_%d", collection, sourceID)
}

// Meeting is the normalized target record, one per migrated message.
//
// AudioObjectKey is set at insert time when the source row names an
// audio file; VideoURL is empty until the link pass attaches it. Both
// map to nullable columns.
type Meeting struct {
	ID               string    `json:"id"`
	Date             time.Time `json:"date"`
	Speaker          string    `json:"speaker"`
	Topic            string    `json:"topic"`
	AudioObjectKey   string    `json:"audio_object_key,omitempty"`
	VideoURL         string    `json:"video_url,omitempty"`
	IsGospel         bool      `json:"is_gospel"`
	IsSpecialMeeting bool      `json:"is_special_meeting"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Validate checks that the meeting can be persisted.
func (m *Meeting) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("meeting id is required")
	}
	if m.Date.IsZero() {
		return fmt.Errorf("meeting date is required")
	}
	if m.Speaker == "" {
		return fmt.Errorf("meeting speaker is required")
	}
	return nil
}
