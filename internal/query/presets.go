package query

import (
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-doc-vault/models"
)

// Presets AND their condition onto whatever the builder already holds, so
// they compose with each other and with Where.

// CreatedAfter keeps documents created strictly after t.
func (b *Builder) CreatedAfter(t time.Time) *Builder {
	return b.Where("createdAt", OpGt, t)
}

// UpdatedAfter keeps documents updated strictly after t.
func (b *Builder) UpdatedAfter(t time.Time) *Builder {
	return b.Where("updatedAt", OpGt, t)
}

// ByType keeps documents of docType.
func (b *Builder) ByType(docType string) *Builder {
	return b.Where("type", OpEq, docType)
}

// Recent keeps documents updated in the last hours hours, newest first.
func (b *Builder) Recent(hours int) *Builder {
	since := b.now().Add(-time.Duration(hours) * time.Hour)
	return b.Where("updatedAt", OpGte, since).OrderBy("updatedAt", Desc)
}

// BySyncStatus keeps documents whose row is in status.
func (b *Builder) BySyncStatus(status models.SyncStatus) *Builder {
	return b.Where("syncStatus", OpEq, status)
}

// NeedsSync keeps documents that were never delivered or whose last delivery
// failed.
func (b *Builder) NeedsSync() *Builder {
	if b.err != nil {
		return b
	}
	b.and(sq.Or{
		sq.Eq{"sync_status": string(models.SyncStatusLocal)},
		sq.Eq{"sync_status": string(models.SyncStatusError)},
	})
	return b
}

// ByVersionRange keeps documents with lo <= version <= hi.
func (b *Builder) ByVersionRange(lo, hi int64) *Builder {
	return b.Where("version", OpGte, lo).And("version", OpLte, hi)
}
