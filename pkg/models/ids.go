package models

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// HighlightID is a typed ID for highlights
type HighlightID struct {
	uuid uuid.UUID
}

func NewHighlightID() HighlightID {
	return HighlightID{uuid: uuid.New()}
}

func ParseHighlightID(s string) (HighlightID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return HighlightID{}, fmt.Errorf("invalid highlight ID: %w", err)
	}
	return HighlightID{uuid: id}, nil
}

func (h HighlightID) UUID() uuid.UUID { return h.uuid }
func (h HighlightID) String() string  { return h.uuid.String() }
func (h HighlightID) IsZero() bool    { return h.uuid == uuid.Nil }

func (h HighlightID) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.uuid.String())
}

func (h *HighlightID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &h.uuid)
}

func (h HighlightID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(h.uuid.String())
}

func (h *HighlightID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, &h.uuid)
}

// BookID is a typed ID for books
type BookID struct {
	uuid uuid.UUID
}

func NewBookID() BookID {
	return BookID{uuid: uuid.New()}
}

func ParseBookID(s string) (BookID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return BookID{}, fmt.Errorf("invalid book ID: %w", err)
	}
	return BookID{uuid: id}, nil
}

func (b BookID) UUID() uuid.UUID { return b.uuid }
func (b BookID) String() string  { return b.uuid.String() }
func (b BookID) IsZero() bool    { return b.uuid == uuid.Nil }

func (b BookID) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.uuid.String())
}

func (b *BookID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &b.uuid)
}

func (b BookID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(b.uuid.String())
}

func (b *BookID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, &b.uuid)
}

// ReviewID is a typed ID for review records
type ReviewID struct {
	uuid uuid.UUID
}

func NewReviewID() ReviewID {
	return ReviewID{uuid: uuid.New()}
}

func ParseReviewID(s string) (ReviewID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ReviewID{}, fmt.Errorf("invalid review ID: %w", err)
	}
	return ReviewID{uuid: id}, nil
}

func (r ReviewID) UUID() uuid.UUID { return r.uuid }
func (r ReviewID) String() string  { return r.uuid.String() }
func (r ReviewID) IsZero() bool    { return r.uuid == uuid.Nil }

func (r ReviewID) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.uuid.String())
}

func (r *ReviewID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &r.uuid)
}

func (r ReviewID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(r.uuid.String())
}

func (r *ReviewID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, &r.uuid)
}

// OperationID is a typed ID for sync-queue operations
type OperationID struct {
	uuid uuid.UUID
}

func NewOperationID() OperationID {
	return OperationID{uuid: uuid.New()}
}

func ParseOperationID(s string) (OperationID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return OperationID{}, fmt.Errorf("invalid operation ID: %w", err)
	}
	return OperationID{uuid: id}, nil
}

func (o OperationID) UUID() uuid.UUID { return o.uuid }
func (o OperationID) String() string  { return o.uuid.String() }
func (o OperationID) IsZero() bool    { return o.uuid == uuid.Nil }

func (o OperationID) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.uuid.String())
}

func (o *OperationID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &o.uuid)
}

func (o OperationID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(o.uuid.String())
}

func (o *OperationID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, &o.uuid)
}

func unmarshalJSONID(data []byte, target *uuid.UUID) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*target = id
	return nil
}

func unmarshalCBORID(data []byte, target *uuid.UUID) error {
	var s string
	if err := cbor.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*target = id
	return nil
}
