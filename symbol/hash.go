package symbol

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Sum returns the SHA3-256 digest of data.
func Sum(data []byte) [32]byte {
	return sha3.Sum256(data)
}

// HashHex returns the lowercase hex SHA3-256 digest of data.
func HashHex(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Validate checks version, content_len shape and the hash field.
func (m Meta) Validate() error {
	if m.Version != Version {
		return &MetaError{Kind: UnknownVersion, Got: int(m.Version)}
	}
	if len(m.ContentLength) != 2 {
		return &MetaError{Kind: InvalidLengthOfContentLen, Got: len(m.ContentLength)}
	}
	if len(m.ContentHash) != HashHexLen {
		return &MetaError{Kind: InvalidLengthOfHashField, Got: len(m.ContentHash)}
	}
	if _, err := hex.DecodeString(m.ContentHash); err != nil {
		return &MetaError{Kind: HashFieldNotHex}
	}
	return nil
}

// Hash decodes the sha3 field. Upper and lower case hex decode to the
// same digest.
func (m Meta) Hash() ([32]byte, error) {
	var out [32]byte
	if len(m.ContentHash) != HashHexLen {
		return out, &MetaError{Kind: InvalidLengthOfHashField, Got: len(m.ContentHash)}
	}
	if _, err := hex.Decode(out[:], []byte(m.ContentHash)); err != nil {
		return out, &MetaError{Kind: HashFieldNotHex}
	}
	return out, nil
}
