package repository

import (
	"context"

	"userhub/internal/domain"
)

// ComponentRepository stores application components.
type ComponentRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, component *domain.Component) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Component, error)
	GetByName(ctx context.Context, name string) (*domain.Component, error)
	List(ctx context.Context, skip, limit int) ([]domain.Component, error)
}

// InterfaceTypeRepository stores interface type definitions.
type InterfaceTypeRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, it *domain.InterfaceType) (int64, error)
	Get(ctx context.Context, id int64) (*domain.InterfaceType, error)
	GetByName(ctx context.Context, name string) (*domain.InterfaceType, error)
	List(ctx context.Context, skip, limit int) ([]domain.InterfaceType, error)
}

// InterfaceRepository stores interfaces bound to components.
type InterfaceRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, iface *domain.Interface) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Interface, error)
	List(ctx context.Context, skip, limit int) ([]domain.Interface, error)
}
