// Package symbol defines the wire units of a datablast transfer.
//
// A transfer is a stream of short text payloads, each small enough to fit in
// one QR code. Two kinds exist:
//   - Meta: identifies the transfer (sequence id, length, hash, name)
//   - Content: carries one indexed chunk of the file bytes
//
// Parse turns a captured string into a Symbol; String renders the canonical
// wire form. Both are pure and safe for concurrent use.
package symbol

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Version is the only supported Meta protocol version.
const Version = 0

// HashHexLen is the length of a hex-encoded SHA3-256 digest.
const HashHexLen = 64

// Symbol is either a Meta or a Content value.
// The set of implementations is closed; callers use a type switch.
type Symbol interface {
	fmt.Stringer
	// ID returns the sequence id the symbol belongs to.
	ID() uint8
	isSymbol()
}

// Meta describes a whole transfer.
// ContentLength is [file length in bytes, number of content chunks].
type Meta struct {
	Version       uint32   `json:"ver"`
	SequenceID    uint8    `json:"seq_id"`
	TotalFrames   uint64   `json:"frames"`
	CurrentFrame  uint64   `json:"cur_frame"`
	ContentLength []uint64 `json:"content_len"`
	ContentHash   string   `json:"sha3"`
	FileName      string   `json:"name"`
}

// Content carries one chunk of the file.
type Content struct {
	SequenceID uint8
	ChunkIndex uint64
	Data       []byte
}

func (Meta) isSymbol()    {}
func (Content) isSymbol() {}

// ID implements Symbol.
func (m Meta) ID() uint8 { return m.SequenceID }

// ID implements Symbol.
func (c Content) ID() uint8 { return c.SequenceID }

// FileLength returns content_len[0], or 0 when the field is malformed.
func (m Meta) FileLength() uint64 {
	if len(m.ContentLength) != 2 {
		return 0
	}
	return m.ContentLength[0]
}

// ChunkCount returns content_len[1], or 0 when the field is malformed.
func (m Meta) ChunkCount() uint64 {
	if len(m.ContentLength) != 2 {
		return 0
	}
	return m.ContentLength[1]
}

// String renders the canonical JSON object.
func (m Meta) String() string {
	if m.ContentLength == nil {
		m.ContentLength = []uint64{}
	}
	// Marshal of this struct cannot fail: every field is a plain scalar,
	// string or slice of integers.
	b, _ := json.Marshal(m)
	return string(b)
}

// String renders <2-hex seq><hex index>@<base64 data>.
func (c Content) String() string {
	return fmt.Sprintf("%02x%x@%s", c.SequenceID, c.ChunkIndex, base64.StdEncoding.EncodeToString(c.Data))
}

// Format renders any symbol in its wire form.
func Format(s Symbol) string {
	return s.String()
}

// decodeMeta reads a Meta object. Every key must be present with exactly
// its lowercase name and a non-null, well-typed value; other keys are
// ignored.
func decodeMeta(text string) (Meta, bool) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Meta{}, false
	}
	var m Meta
	for _, f := range []struct {
		key string
		dst any
	}{
		{"ver", &m.Version},
		{"seq_id", &m.SequenceID},
		{"frames", &m.TotalFrames},
		{"cur_frame", &m.CurrentFrame},
		{"content_len", &m.ContentLength},
		{"sha3", &m.ContentHash},
		{"name", &m.FileName},
	} {
		v, ok := raw[f.key]
		if !ok || string(v) == "null" || json.Unmarshal(v, f.dst) != nil {
			return Meta{}, false
		}
	}
	return m, true
}

// Parse decodes a captured string.
//
// The text is first tried as a Meta object. Only an object carrying every
// Meta key with a well-typed value counts as Meta; anything else is parsed
// as Content. A Meta that fails Validate yields a *MetaError, a malformed
// Content yields a *ContentError.
func Parse(text string) (Symbol, error) {
	if m, ok := decodeMeta(text); ok {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		return m, nil
	}
	c, err := ParseContent(text)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ParseContent decodes the Content wire form only.
func ParseContent(text string) (Content, error) {
	prefix, data, ok := strings.Cut(text, "@")
	if !ok {
		return Content{}, &ContentError{Kind: NoDataPart}
	}
	if len(prefix) < 2 {
		return Content{}, &ContentError{Kind: InvalidSequenceIDPart}
	}
	seq, err := strconv.ParseUint(prefix[:2], 16, 8)
	if err != nil {
		return Content{}, &ContentError{Kind: InvalidSequenceIDPart, Err: err}
	}
	if len(prefix) == 2 {
		return Content{}, &ContentError{Kind: InvalidPieceIDPart}
	}
	idx, err := strconv.ParseUint(prefix[2:], 16, 64)
	if err != nil {
		return Content{}, &ContentError{Kind: InvalidPieceIDPart, Err: err}
	}
	if strings.ContainsAny(data, "\r\n") {
		return Content{}, &ContentError{Kind: InvalidDataPart, Err: errors.New("line break in payload")}
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return Content{}, &ContentError{Kind: InvalidDataPart, Err: err}
	}
	return Content{SequenceID: uint8(seq), ChunkIndex: idx, Data: raw}, nil
}
