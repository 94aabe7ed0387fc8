package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"userhub/internal/domain"
	"userhub/internal/repository"
)

// UserUpdate carries the optional fields of a partial user update.
type UserUpdate struct {
	Name   *string
	Email  *string
	Active *bool
}

// UserService implements the user lifecycle operations behind the API.
type UserService interface {
	Create(ctx context.Context, name, email string) (*domain.User, error)
	Get(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context, skip, limit int) ([]domain.User, error)
	Update(ctx context.Context, id int64, upd UserUpdate) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
	Activate(ctx context.Context, id int64) (*domain.User, error)
	Deactivate(ctx context.Context, id int64) (*domain.User, error)
}

type userService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) Create(ctx context.Context, name, email string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalid)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("user with email %s: %w", email, ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	user := &domain.User{
		Name:   name,
		Email:  email,
		Active: true,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("user with email %s: %w", email, ErrConflict)
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) Get(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("user with id %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) List(ctx context.Context, skip, limit int) ([]domain.User, error) {
	skip, limit = clampPage(skip, limit)
	return s.users.List(ctx, skip, limit)
}

func (s *userService) Update(ctx context.Context, id int64, upd UserUpdate) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if email == "" {
			return nil, fmt.Errorf("%w: email must not be empty", ErrInvalid)
		}
		if email != user.Email {
			if _, err := s.users.GetByEmail(ctx, email); err == nil {
				return nil, fmt.Errorf("user with email %s: %w", email, ErrConflict)
			} else if !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
		}
		user.Email = email
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrInvalid)
		}
		user.Name = name
	}
	if upd.Active != nil {
		user.Active = *upd.Active
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("user with email %s: %w", user.Email, ErrConflict)
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) Delete(ctx context.Context, id int64) error {
	exists, err := s.users.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("user with id %d: %w", id, ErrNotFound)
	}
	return s.users.Delete(ctx, id)
}

func (s *userService) Activate(ctx context.Context, id int64) (*domain.User, error) {
	return s.setActive(ctx, id, true)
}

func (s *userService) Deactivate(ctx context.Context, id int64) (*domain.User, error) {
	return s.setActive(ctx, id, false)
}

func (s *userService) setActive(ctx context.Context, id int64, active bool) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if active {
		user.Activate()
	} else {
		user.Deactivate()
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
