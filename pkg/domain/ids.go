// Package domain holds the typed identifiers shared across registry packages.
//
// Each record kind gets its own UUID-backed type so a MotifID can never be
// passed where a SequenceID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "seqreg/pkg/domain-errors"
)

// SequenceID identifies a sequence for the lifetime of a session.
type SequenceID uuid.UUID

// MotifID identifies a motif for the lifetime of a session.
type MotifID uuid.UUID

// NewSequenceID returns a fresh random SequenceID.
func NewSequenceID() SequenceID { return SequenceID(uuid.New()) }

// NewMotifID returns a fresh random MotifID.
func NewMotifID() MotifID { return MotifID(uuid.New()) }

func (id SequenceID) String() string { return uuid.UUID(id).String() }
func (id MotifID) String() string    { return uuid.UUID(id).String() }

func (id SequenceID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id MotifID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id SequenceID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id MotifID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }

func (id *SequenceID) UnmarshalText(b []byte) error {
	parsed, err := ParseSequenceID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *MotifID) UnmarshalText(b []byte) error {
	parsed, err := ParseMotifID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseSequenceID parses a non-nil UUID string into a SequenceID.
func ParseSequenceID(s string) (SequenceID, error) {
	u, err := parseUUID(s, "sequence id")
	return SequenceID(u), err
}

// ParseMotifID parses a non-nil UUID string into a MotifID.
func ParseMotifID(s string) (MotifID, error) {
	u, err := parseUUID(s, "motif id")
	return MotifID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}
