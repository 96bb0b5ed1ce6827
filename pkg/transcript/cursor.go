package transcript

import (
	"encoding/base64"
	"encoding/json"

	"github.com/grovetools/claudelogs/errors"
)

// Cursor marks the last item of a page. Value is the numeric sort key of
// that item: epoch milliseconds for time keys, otherwise the count or size.
// ID is the item's session id and places the cursor inside a run of equal
// values.
type Cursor struct {
	Value     float64   `json:"value"`
	ID        string    `json:"id,omitempty"`
	SortBy    SortField `json:"sortBy"`
	SortOrder SortOrder `json:"sortOrder"`
}

// EncodeCursor returns the opaque token for c.
func EncodeCursor(c Cursor) string {
	data, _ := json.Marshal(c)
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeCursor parses a token produced by EncodeCursor.
func DecodeCursor(token string) (Cursor, error) {
	var c Cursor
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return c, errors.Wrap(err, errors.ErrCodeInvalidCursor, "cursor is not base64")
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, errors.Wrap(err, errors.ErrCodeInvalidCursor, "cursor is not a JSON object")
	}
	if !c.SortBy.Valid() || !c.SortOrder.Valid() {
		return c, errors.New(errors.ErrCodeInvalidCursor, "cursor has an unknown sort").
			WithDetail("sortBy", string(c.SortBy)).
			WithDetail("sortOrder", string(c.SortOrder))
	}
	return c, nil
}
