package validators

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MKhiriev/go-doc-vault/models"
)

// Field names accepted by [DocumentValidator.Validate].
const (
	// Document fields.
	FieldID      = "id"
	FieldType    = "type"
	FieldTags    = "tags"
	FieldVersion = "version"

	// SyncChange fields.
	FieldChangeType = "change_type"
	FieldActorID    = "actor_id"
	FieldTimestamp  = "timestamp"
	FieldHash       = "hash"

	// FieldDocument checks that create and update changes carry a document
	// with the change's id, and validates that document.
	FieldDocument = "document"
)

const (
	maxIDLength   = 128
	maxTypeLength = 64
	maxTagLength  = 64
)

// DocumentValidator validates [models.Document] and [models.SyncChange]
// values, by value or by pointer.
type DocumentValidator struct{}

// NewDocumentValidator returns a [DocumentValidator] as a [Validator].
func NewDocumentValidator() Validator {
	return &DocumentValidator{}
}

// Validate dispatches on the dynamic type of v. It returns
// [ErrUnsupportedType] for anything that is not a document or a change, and
// the first failing rule otherwise.
func (d *DocumentValidator) Validate(ctx context.Context, v any, fields ...string) error {
	switch value := v.(type) {
	case models.Document:
		return d.validateDocument(ctx, &value, fields...)
	case *models.Document:
		if value == nil {
			return ErrMissingDocument
		}
		return d.validateDocument(ctx, value, fields...)

	case models.SyncChange:
		return d.validateChange(ctx, value, fields...)
	case *models.SyncChange:
		if value == nil {
			return ErrUnsupportedType
		}
		return d.validateChange(ctx, *value, fields...)

	default:
		return ErrUnsupportedType
	}
}

// validateDocument checks a stored or received document.
//
// Default fields: ID, Type, Tags, Version.
func (d *DocumentValidator) validateDocument(_ context.Context, doc *models.Document, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldID, FieldType, FieldTags, FieldVersion}
	}

	for _, f := range fields {
		switch f {
		case FieldID:
			if !validID(doc.ID) {
				return fmt.Errorf("%w: %q", ErrInvalidID, doc.ID)
			}
		case FieldType:
			if !validName(doc.Type, maxTypeLength) {
				return fmt.Errorf("%w: %q", ErrInvalidType, doc.Type)
			}
		case FieldTags:
			for _, tag := range doc.Metadata.Tags {
				if !validName(tag, maxTagLength) {
					return fmt.Errorf("%w: %q", ErrInvalidTag, tag)
				}
			}
		case FieldVersion:
			if doc.Version < 1 {
				return ErrInvalidVersion
			}
		default:
			return ErrUnknownField
		}
	}
	return nil
}

// validateChange checks a change received from another replica.
//
// Default fields: ID, ChangeType, ActorID, Timestamp, Hash, Document. Hash
// and Document only apply to create and update changes.
func (d *DocumentValidator) validateChange(ctx context.Context, ch models.SyncChange, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldID, FieldChangeType, FieldActorID, FieldTimestamp, FieldHash, FieldDocument}
	}
	carriesDoc := ch.Type == models.ChangeCreate || ch.Type == models.ChangeUpdate

	for _, f := range fields {
		switch f {
		case FieldID:
			if !validID(ch.ID) {
				return fmt.Errorf("%w: %q", ErrInvalidID, ch.ID)
			}
		case FieldChangeType:
			if !carriesDoc && ch.Type != models.ChangeDelete {
				return fmt.Errorf("%w: %q", ErrInvalidChangeType, ch.Type)
			}
		case FieldActorID:
			if !validID(ch.ActorID) {
				return fmt.Errorf("%w: %q", ErrInvalidActorID, ch.ActorID)
			}
		case FieldTimestamp:
			if ch.Timestamp < 1 {
				return ErrInvalidTimestamp
			}
		case FieldHash:
			if carriesDoc && ch.Hash == "" {
				return ErrInvalidHash
			}
		case FieldDocument:
			if !carriesDoc {
				continue
			}
			if ch.Document == nil {
				return ErrMissingDocument
			}
			if ch.Document.ID != ch.ID {
				return ErrDocumentMismatch
			}
			if err := d.validateDocument(ctx, ch.Document, FieldType, FieldTags, FieldVersion); err != nil {
				return fmt.Errorf("document %s: %w", ch.ID, err)
			}
		default:
			return ErrUnknownField
		}
	}
	return nil
}

// validID accepts non-empty printable strings without surrounding spaces.
func validID(s string) bool {
	if s == "" || len(s) > maxIDLength || !utf8.ValidString(s) || strings.TrimSpace(s) != s {
		return false
	}
	return !strings.ContainsFunc(s, unicode.IsControl)
}

// validName accepts non-empty printable strings of at most limit runes
// without surrounding spaces.
func validName(s string, limit int) bool {
	if s == "" || utf8.RuneCountInString(s) > limit || !utf8.ValidString(s) || strings.TrimSpace(s) != s {
		return false
	}
	return !strings.ContainsFunc(s, unicode.IsControl)
}
