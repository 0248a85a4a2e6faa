package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

var ErrNotFound = errors.New("record not found")

type Repository[T any] interface {
	Create(ctx context.Context, arg *T) (*T, error)
	GetByID(ctx context.Context, id string) (*T, error)
	UpdateByID(ctx context.Context, id string, arg *T) (*T, error)
	DeleteByID(ctx context.Context, id string) error
}

// crud implements Repository for any model keyed by an "id" column.
type crud[T any] struct {
	db bun.IDB
}

func (r crud[T]) Create(ctx context.Context, m *T) (*T, error) {
	if m == nil {
		return nil, fmt.Errorf("%T model is nil", m)
	}

	if _, err := r.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return nil, err
	}

	return m, nil
}

func (r crud[T]) GetByID(ctx context.Context, id string) (*T, error) {
	m := new(T)
	if err := r.db.NewSelect().Model(m).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, notFound(err)
	}

	return m, nil
}

func (r crud[T]) UpdateByID(ctx context.Context, id string, m *T) (*T, error) {
	if m == nil {
		return nil, fmt.Errorf("%T model is nil", m)
	}

	if _, err := r.db.NewUpdate().Model(m).Where("id = ?", id).Exec(ctx); err != nil {
		return nil, err
	}

	return m, nil
}

func (r crud[T]) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.NewDelete().Model((*T)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
