package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/storefront/pkg/db/option"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var onIDConflict = clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}

type gormStore[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return gormStore[T]{db: db}
}

func (s gormStore[T]) WithTrx(tx *gorm.DB) Repository[T] {
	return gormStore[T]{db: tx}
}

func (s gormStore[T]) where(ctx context.Context, query *T, opts []option.QueryOption) *gorm.DB {
	stmt := s.db.WithContext(ctx).Where(query)
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	return stmt
}

func (s gormStore[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	var rows []*T
	if err := s.where(ctx, query, opts).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s gormStore[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	row := new(T)
	err := s.where(ctx, query, opts).Take(row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return row, nil
}

func (s gormStore[T]) Create(ctx context.Context, resource *T) error {
	return s.db.WithContext(ctx).Create(resource).Error
}

func (s gormStore[T]) CreateIfAbsent(ctx context.Context, resource *T) (bool, error) {
	res := s.db.WithContext(ctx).Clauses(onIDConflict).Create(resource)
	return res.RowsAffected > 0, res.Error
}

func (s gormStore[T]) Update(ctx context.Context, id int64, fields map[string]any) error {
	return s.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(fields).Error
}

func (s gormStore[T]) DeleteWhere(ctx context.Context, query *T) (int64, error) {
	res := s.db.WithContext(ctx).Where(query).Delete(new(T))
	return res.RowsAffected, res.Error
}
