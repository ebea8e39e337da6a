// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package query builds filtered, sorted and paginated document queries on
// top of the storage SELECT.
//
// Conditions fold left: every And or Or wraps everything built so far, so
//
//	Where(a).Or(b).And(c)
//
// reads as ((a OR b) AND c). Errors are recorded on the builder and returned
// by ToSQL or Execute.
package query

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-doc-vault/models"
)

var (
	ErrMissingWhere     = errors.New("and/or require a preceding where")
	ErrUnknownField     = errors.New("unknown query field")
	ErrUnknownOperator  = errors.New("unknown query operator")
	ErrInvalidDirection = errors.New("order direction must be asc or desc")
	ErrInvalidPaging    = errors.New("limit and offset must not be negative")
)

// fields maps the public field names onto columns. Nothing else can reach
// the SQL text.
var fields = map[string]string{
	"id":         "id",
	"type":       "type",
	"createdAt":  "created_at",
	"updatedAt":  "updated_at",
	"version":    "version",
	"syncStatus": "sync_status",
}

// Operator is a comparison accepted by Where, And and Or.
type Operator string

const (
	OpEq   Operator = "="
	OpNeq  Operator = "!="
	OpGt   Operator = ">"
	OpLt   Operator = "<"
	OpGte  Operator = ">="
	OpLte  Operator = "<="
	OpLike Operator = "LIKE"
)

// Direction is an ORDER BY direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Executor runs a SELECT built on top of SelectBuilder and returns the
// decrypted documents. store.DocumentStorage satisfies it.
type Executor interface {
	SelectBuilder() sq.SelectBuilder
	QueryDocuments(ctx context.Context, q sq.SelectBuilder) ([]*models.Document, error)
}

// Builder is a fluent document query. It is not safe for concurrent use.
type Builder struct {
	exec   Executor
	cond   sq.Sqlizer
	orders []string
	limit  *uint64
	offset *uint64
	err    error
	now    func() time.Time
}

// New starts an empty query against exec.
func New(exec Executor) *Builder {
	return &Builder{exec: exec, now: time.Now}
}

// Where adds a condition. A second Where is combined with AND.
func (b *Builder) Where(field string, op Operator, value any) *Builder {
	pred, ok := b.predicate(field, op, value)
	if !ok {
		return b
	}
	b.and(pred)
	return b
}

// And combines the conditions built so far with pred using AND.
func (b *Builder) And(field string, op Operator, value any) *Builder {
	if b.err == nil && b.cond == nil {
		b.err = fmt.Errorf("%w: And(%s)", ErrMissingWhere, field)
	}
	return b.Where(field, op, value)
}

// Or combines the conditions built so far with pred using OR.
func (b *Builder) Or(field string, op Operator, value any) *Builder {
	if b.err == nil && b.cond == nil {
		b.err = fmt.Errorf("%w: Or(%s)", ErrMissingWhere, field)
	}
	pred, ok := b.predicate(field, op, value)
	if !ok {
		return b
	}
	b.cond = sq.Or{b.cond, pred}
	return b
}

// OrderBy appends a sort key. An empty direction means ascending.
func (b *Builder) OrderBy(field string, dir Direction) *Builder {
	if b.err != nil {
		return b
	}
	col, ok := fields[field]
	if !ok {
		b.err = fmt.Errorf("%w: %q", ErrUnknownField, field)
		return b
	}
	switch Direction(strings.ToLower(string(dir))) {
	case "", Asc:
		b.orders = append(b.orders, col+" ASC")
	case Desc:
		b.orders = append(b.orders, col+" DESC")
	default:
		b.err = fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
	}
	return b
}

// Limit caps the number of documents returned.
func (b *Builder) Limit(n int) *Builder {
	if b.err != nil {
		return b
	}
	if n < 0 {
		b.err = fmt.Errorf("%w: limit %d", ErrInvalidPaging, n)
		return b
	}
	u := uint64(n)
	b.limit = &u
	return b
}

// Offset skips the first n documents.
func (b *Builder) Offset(n int) *Builder {
	if b.err != nil {
		return b
	}
	if n < 0 {
		b.err = fmt.Errorf("%w: offset %d", ErrInvalidPaging, n)
		return b
	}
	u := uint64(n)
	b.offset = &u
	return b
}

// ToSQL renders the query with ? placeholders.
func (b *Builder) ToSQL() (string, []any, error) {
	q, err := b.build()
	if err != nil {
		return "", nil, err
	}
	return q.PlaceholderFormat(sq.Question).ToSql()
}

// Execute runs the query and returns the matching documents.
func (b *Builder) Execute(ctx context.Context) ([]*models.Document, error) {
	q, err := b.build()
	if err != nil {
		return nil, err
	}
	return b.exec.QueryDocuments(ctx, q)
}

func (b *Builder) build() (sq.SelectBuilder, error) {
	if b.err != nil {
		return sq.SelectBuilder{}, b.err
	}
	q := b.exec.SelectBuilder()
	if b.cond != nil {
		q = q.Where(b.cond)
	}
	if len(b.orders) > 0 {
		q = q.OrderBy(b.orders...)
	}
	if b.limit != nil {
		q = q.Limit(*b.limit)
	}
	if b.offset != nil {
		if b.limit == nil {
			// SQLite only accepts OFFSET after a LIMIT.
			q = q.Limit(math.MaxInt64)
		}
		q = q.Offset(*b.offset)
	}
	return q, nil
}

func (b *Builder) and(pred sq.Sqlizer) {
	if b.cond == nil {
		b.cond = pred
		return
	}
	b.cond = sq.And{b.cond, pred}
}

func (b *Builder) predicate(field string, op Operator, value any) (sq.Sqlizer, bool) {
	if b.err != nil {
		return nil, false
	}
	col, ok := fields[field]
	if !ok {
		b.err = fmt.Errorf("%w: %q", ErrUnknownField, field)
		return nil, false
	}

	v := columnValue(value)
	switch Operator(strings.ToUpper(string(op))) {
	case OpEq:
		return sq.Eq{col: v}, true
	case OpNeq:
		return sq.NotEq{col: v}, true
	case OpGt:
		return sq.Gt{col: v}, true
	case OpLt:
		return sq.Lt{col: v}, true
	case OpGte:
		return sq.GtOrEq{col: v}, true
	case OpLte:
		return sq.LtOrEq{col: v}, true
	case OpLike:
		return sq.Like{col: v}, true
	}
	b.err = fmt.Errorf("%w: %q", ErrUnknownOperator, op)
	return nil, false
}

// columnValue converts values to the representation stored in the columns:
// times become Unix milliseconds, sync statuses plain strings.
func columnValue(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.UnixMilli()
	case *time.Time:
		if val == nil {
			return nil
		}
		return val.UnixMilli()
	case models.SyncStatus:
		return string(val)
	}
	return v
}
