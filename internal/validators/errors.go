package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrInvalidID         = errors.New("invalid document id")
	ErrInvalidType       = errors.New("invalid document type")
	ErrInvalidTag        = errors.New("invalid tag")
	ErrInvalidVersion    = errors.New("invalid version")
	ErrInvalidChangeType = errors.New("invalid change type")
	ErrInvalidActorID    = errors.New("invalid actor id")
	ErrInvalidTimestamp  = errors.New("invalid logical timestamp")
	ErrInvalidHash       = errors.New("invalid content hash")
	ErrMissingDocument   = errors.New("document is required")
	ErrDocumentMismatch  = errors.New("document id does not match change id")
)
