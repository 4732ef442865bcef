package cursor

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrInvalidFormat    = errors.New("invalid cursor format")
	ErrInvalidSignature = errors.New("invalid cursor signature")
)

// Position marks where the next page starts: after the item with AfterID,
// within the listing that was filtered by Project. Offset is the index of
// the next item and is used when AfterID is no longer listed.
type Position struct {
	AfterID int    `json:"after_id"`
	Offset  int    `json:"offset"`
	Project string `json:"project,omitempty"`
}

// Pagination is the paging block of a list response.
type Pagination struct {
	HasNext    bool   `json:"has_next"`
	NextCursor string `json:"next_cursor"`
}

// Codec signs and verifies opaque page tokens.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

func (c *Codec) signature(encoded string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Encode returns "<payload>.<signature>", both URL-safe base64.
func (c *Codec) Encode(pos Position) string {
	jsonData, _ := json.Marshal(pos)
	encoded := base64.RawURLEncoding.EncodeToString(jsonData)

	return encoded + "." + c.signature(encoded)
}

func (c *Codec) Decode(token string) (Position, error) {
	parts := strings.Split(token, ".")

	if len(parts) != 2 {
		return Position{}, ErrInvalidFormat
	}

	if !hmac.Equal([]byte(parts[1]), []byte(c.signature(parts[0]))) {
		return Position{}, ErrInvalidSignature
	}

	decoded, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return Position{}, ErrInvalidFormat
	}

	var pos Position
	if err := json.Unmarshal(decoded, &pos); err != nil || pos.AfterID < 0 || pos.Offset < 0 {
		return Position{}, ErrInvalidFormat
	}

	return pos, nil
}
