package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"userhub/internal/domain"
	"userhub/internal/repository"
)

// CatalogService manages the component / interface registry referenced by topics.
type CatalogService interface {
	CreateComponent(ctx context.Context, name, description string) (*domain.Component, error)
	ListComponents(ctx context.Context, skip, limit int) ([]domain.Component, error)
	CreateInterfaceType(ctx context.Context, name, description string) (*domain.InterfaceType, error)
	ListInterfaceTypes(ctx context.Context, skip, limit int) ([]domain.InterfaceType, error)
	CreateInterface(ctx context.Context, name, description string, componentID, interfaceTypeID int64) (*domain.Interface, error)
	ListInterfaces(ctx context.Context, skip, limit int) ([]domain.Interface, error)
}

type catalogService struct {
	components     repository.ComponentRepository
	interfaceTypes repository.InterfaceTypeRepository
	interfaces     repository.InterfaceRepository
}

func NewCatalogService(
	components repository.ComponentRepository,
	interfaceTypes repository.InterfaceTypeRepository,
	interfaces repository.InterfaceRepository,
) CatalogService {
	return &catalogService{
		components:     components,
		interfaceTypes: interfaceTypes,
		interfaces:     interfaces,
	}
}

func (s *catalogService) CreateComponent(ctx context.Context, name, description string) (*domain.Component, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: component name is required", ErrInvalid)
	}

	if _, err := s.components.GetByName(ctx, name); err == nil {
		return nil, fmt.Errorf("component %q: %w", name, ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	component := &domain.Component{
		Name:        name,
		Description: description,
		Active:      true,
	}
	if _, err := s.components.Create(ctx, component); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("component %q: %w", name, ErrConflict)
		}
		return nil, err
	}
	return component, nil
}

func (s *catalogService) ListComponents(ctx context.Context, skip, limit int) ([]domain.Component, error) {
	skip, limit = clampPage(skip, limit)
	return s.components.List(ctx, skip, limit)
}

func (s *catalogService) CreateInterfaceType(ctx context.Context, name, description string) (*domain.InterfaceType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: interface type name is required", ErrInvalid)
	}

	if _, err := s.interfaceTypes.GetByName(ctx, name); err == nil {
		return nil, fmt.Errorf("interface type %q: %w", name, ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	it := &domain.InterfaceType{
		Name:        name,
		Description: description,
	}
	if _, err := s.interfaceTypes.Create(ctx, it); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("interface type %q: %w", name, ErrConflict)
		}
		return nil, err
	}
	return it, nil
}

func (s *catalogService) ListInterfaceTypes(ctx context.Context, skip, limit int) ([]domain.InterfaceType, error) {
	skip, limit = clampPage(skip, limit)
	return s.interfaceTypes.List(ctx, skip, limit)
}

func (s *catalogService) CreateInterface(ctx context.Context, name, description string, componentID, interfaceTypeID int64) (*domain.Interface, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: interface name is required", ErrInvalid)
	}

	if _, err := s.components.Get(ctx, componentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("component %d: %w", componentID, ErrNotFound)
		}
		return nil, err
	}
	if _, err := s.interfaceTypes.Get(ctx, interfaceTypeID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("interface type %d: %w", interfaceTypeID, ErrNotFound)
		}
		return nil, err
	}

	iface := &domain.Interface{
		Name:            name,
		Description:     description,
		ComponentID:     componentID,
		InterfaceTypeID: interfaceTypeID,
		Active:          true,
	}
	if _, err := s.interfaces.Create(ctx, iface); err != nil {
		return nil, err
	}
	return iface, nil
}

func (s *catalogService) ListInterfaces(ctx context.Context, skip, limit int) ([]domain.Interface, error) {
	skip, limit = clampPage(skip, limit)
	return s.interfaces.List(ctx, skip, limit)
}

func clampPage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return skip, limit
}
