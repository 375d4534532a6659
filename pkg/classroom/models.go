package classroom

import (
	"encoding/json"
	"strings"
	"time"
)

// PostID is a post's unique identifier. The portal emits numeric ids
// today, but the record format allows strings, so both are accepted.
type PostID string

// UnmarshalJSON accepts a JSON string or number.
func (id *PostID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = PostID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = PostID(n.String())
	return nil
}

func (id PostID) String() string {
	return string(id)
}

// Post represents one remote post record from the portal's listing
// endpoint. Remote payloads carry many more fields; only the ones this
// system consumes are decoded.
type Post struct {
	ID        PostID `json:"id"`
	PhotoURL  string `json:"original_photo_url"`
	HTML      string `json:"html"`
	Author    string `json:"author"`
	CreatedAt string `json:"created_at"`
}

// createdAtLayout parses ISO-8601 timestamps with optional fractional
// seconds, after the trailing zone marker has been stripped.
const createdAtLayout = "2006-01-02T15:04:05.999999999"

// CreatedTime parses the post's creation timestamp as a naive UTC
// instant. The portal emits UTC times with a trailing "Z" marker.
func (p *Post) CreatedTime() (time.Time, error) {
	raw := strings.TrimSuffix(strings.TrimSpace(p.CreatedAt), "Z")
	t, err := time.ParseInLocation(createdAtLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
