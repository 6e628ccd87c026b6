package repository

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

var ErrInvalidCursor = errors.New("invalid page cursor")

// Cursor is a keyset position: the (start, document key) of the last
// record of a page. Callers treat its encoded form as opaque.
type Cursor struct {
	StartAt time.Time `json:"s"`
	DocKey  string    `json:"k"`
}

func (c Cursor) Encode() string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeCursor(s string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil || c.DocKey == "" || c.StartAt.IsZero() {
		return nil, ErrInvalidCursor
	}
	c.StartAt = c.StartAt.UTC()
	return &c, nil
}
