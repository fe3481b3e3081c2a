package structdef

import "errors"

var (
	ErrNotStructPtr = errors.New("expected pointer to struct")
	ErrUnsupported  = errors.New("unsupported type")

	// schema definition
	ErrUnknownFieldType = errors.New("unknown field type")
	ErrInvalidID        = errors.New("field id out of range")
	ErrDuplicateID      = errors.New("duplicate field id")
	ErrDuplicateName    = errors.New("duplicate field name")
	ErrEmptyName        = errors.New("empty field name")
	ErrInvalidOption    = errors.New("option not valid for field type")

	// values
	ErrMissingField  = errors.New("required field missing")
	ErrUnknownField  = errors.New("unknown field")
	ErrTypeMismatch  = errors.New("type mismatch")
	ErrOutOfRange    = errors.New("value out of range")
	ErrTooLong       = errors.New("value exceeds max length")
	ErrUnknownFormat = errors.New("unknown text encoding")

	// wire
	ErrEmpty          = errors.New("no records in content")
	ErrBadMagic       = errors.New("invalid magic")
	ErrVersion        = errors.New("unsupported format version")
	ErrChecksum       = errors.New("crc mismatch")
	ErrMalformed      = errors.New("malformed content")
	ErrSchemaMismatch = errors.New("schema fingerprint mismatch")
)
