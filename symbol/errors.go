package symbol

import "fmt"

// ContentErrorKind classifies Content parse failures.
type ContentErrorKind int

const (
	// NoDataPart means the '@' separator is missing.
	NoDataPart ContentErrorKind = iota
	// InvalidSequenceIDPart means the first two prefix characters are not hex.
	InvalidSequenceIDPart
	// InvalidPieceIDPart means the chunk index is missing or not hex.
	InvalidPieceIDPart
	// InvalidDataPart means the payload is not standard base64.
	InvalidDataPart
)

func (k ContentErrorKind) String() string {
	switch k {
	case NoDataPart:
		return "no data part"
	case InvalidSequenceIDPart:
		return "invalid sequence id part"
	case InvalidPieceIDPart:
		return "invalid piece id part"
	case InvalidDataPart:
		return "invalid data part"
	default:
		return fmt.Sprintf("content error %d", int(k))
	}
}

// ContentError is returned for a string that is neither a Meta object nor
// a well-formed Content symbol.
type ContentError struct {
	Kind ContentErrorKind
	Err  error
}

func (e *ContentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid content symbol: %s: %v", e.Kind, e.Err)
	}
	return "invalid content symbol: " + e.Kind.String()
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

// Is matches any *ContentError with the same Kind.
func (e *ContentError) Is(target error) bool {
	t, ok := target.(*ContentError)
	return ok && t.Kind == e.Kind
}

// MetaErrorKind classifies Meta validation failures.
type MetaErrorKind int

const (
	// UnknownVersion means ver is not 0.
	UnknownVersion MetaErrorKind = iota
	// InvalidLengthOfContentLen means content_len does not have two entries.
	InvalidLengthOfContentLen
	// InvalidLengthOfHashField means sha3 is not 64 characters.
	InvalidLengthOfHashField
	// HashFieldNotHex means sha3 contains a non-hex character.
	HashFieldNotHex
)

func (k MetaErrorKind) String() string {
	switch k {
	case UnknownVersion:
		return "unknown version"
	case InvalidLengthOfContentLen:
		return "invalid length of content_len"
	case InvalidLengthOfHashField:
		return "invalid length of hash field"
	case HashFieldNotHex:
		return "hash field not hex"
	default:
		return fmt.Sprintf("meta error %d", int(k))
	}
}

// MetaError is returned for a structurally complete Meta object that fails
// validation. Got holds the offending value where one exists (the version,
// the content_len length or the hash length).
type MetaError struct {
	Kind MetaErrorKind
	Got  int
}

func (e *MetaError) Error() string {
	switch e.Kind {
	case UnknownVersion, InvalidLengthOfContentLen, InvalidLengthOfHashField:
		return fmt.Sprintf("invalid meta symbol: %s (got %d)", e.Kind, e.Got)
	default:
		return "invalid meta symbol: " + e.Kind.String()
	}
}

// Is matches any *MetaError with the same Kind.
func (e *MetaError) Is(target error) bool {
	t, ok := target.(*MetaError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNoDataPart            = &ContentError{Kind: NoDataPart}
	ErrInvalidSequenceIDPart = &ContentError{Kind: InvalidSequenceIDPart}
	ErrInvalidPieceIDPart    = &ContentError{Kind: InvalidPieceIDPart}
	ErrInvalidDataPart       = &ContentError{Kind: InvalidDataPart}

	ErrUnknownVersion            = &MetaError{Kind: UnknownVersion}
	ErrInvalidLengthOfContentLen = &MetaError{Kind: InvalidLengthOfContentLen}
	ErrInvalidLengthOfHashField  = &MetaError{Kind: InvalidLengthOfHashField}
	ErrHashFieldNotHex           = &MetaError{Kind: HashFieldNotHex}
)

// ErrorKind returns a short label for a parse error, used as a metrics and
// log dimension. Unknown errors map to "other".
func ErrorKind(err error) string {
	switch e := err.(type) {
	case *ContentError:
		return "content: " + e.Kind.String()
	case *MetaError:
		return "meta: " + e.Kind.String()
	default:
		return "other"
	}
}
