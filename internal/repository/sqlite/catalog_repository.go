package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"userhub/internal/domain"
	"userhub/internal/repository"
)

const (
	createComponentsTable = `
CREATE TABLE IF NOT EXISTS components (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`
	createInterfaceTypesTable = `
CREATE TABLE IF NOT EXISTS interface_types (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
`
	createInterfacesTable = `
CREATE TABLE IF NOT EXISTS interfaces (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	component_id INTEGER NOT NULL REFERENCES components(id),
	interface_type_id INTEGER NOT NULL REFERENCES interface_types(id),
	active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`
)

type ComponentRepository struct {
	db *sql.DB
}

func NewComponentRepository(db *sql.DB) repository.ComponentRepository {
	return &ComponentRepository{db: db}
}

func (r *ComponentRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createComponentsTable); err != nil {
		return fmt.Errorf("create components table: %w", err)
	}
	return nil
}

func (r *ComponentRepository) Create(ctx context.Context, component *domain.Component) (int64, error) {
	now := time.Now().UTC()
	component.CreatedAt = now
	component.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO components (name, description, active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)`,
		component.Name,
		component.Description,
		component.Active,
		component.CreatedAt,
		component.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert component: %w", repository.ErrDuplicate)
		}
		return 0, fmt.Errorf("insert component: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("component last insert id: %w", err)
	}
	component.ID = id
	return id, nil
}

func (r *ComponentRepository) Get(ctx context.Context, id int64) (*domain.Component, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, description, active, created_at, updated_at
FROM components
WHERE id = ?`,
		id,
	)
	return scanComponent(row)
}

func (r *ComponentRepository) GetByName(ctx context.Context, name string) (*domain.Component, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, description, active, created_at, updated_at
FROM components
WHERE name = ?`,
		name,
	)
	return scanComponent(row)
}

func (r *ComponentRepository) List(ctx context.Context, skip, limit int) ([]domain.Component, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, description, active, created_at, updated_at
FROM components
ORDER BY id
LIMIT ? OFFSET ?`,
		limit,
		skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	defer rows.Close()

	var components []domain.Component
	for rows.Next() {
		component, err := scanComponent(rows)
		if err != nil {
			return nil, err
		}
		components = append(components, *component)
	}
	return components, rows.Err()
}

func scanComponent(row interface {
	Scan(dest ...any) error
}) (*domain.Component, error) {
	var component domain.Component
	if err := row.Scan(
		&component.ID,
		&component.Name,
		&component.Description,
		&component.Active,
		&component.CreatedAt,
		&component.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("component: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan component: %w", err)
	}
	return &component, nil
}

type InterfaceTypeRepository struct {
	db *sql.DB
}

func NewInterfaceTypeRepository(db *sql.DB) repository.InterfaceTypeRepository {
	return &InterfaceTypeRepository{db: db}
}

func (r *InterfaceTypeRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createInterfaceTypesTable); err != nil {
		return fmt.Errorf("create interface_types table: %w", err)
	}
	return nil
}

func (r *InterfaceTypeRepository) Create(ctx context.Context, it *domain.InterfaceType) (int64, error) {
	it.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO interface_types (name, description, created_at)
VALUES (?, ?, ?)`,
		it.Name,
		it.Description,
		it.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert interface type: %w", repository.ErrDuplicate)
		}
		return 0, fmt.Errorf("insert interface type: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("interface type last insert id: %w", err)
	}
	it.ID = id
	return id, nil
}

func (r *InterfaceTypeRepository) Get(ctx context.Context, id int64) (*domain.InterfaceType, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, description, created_at
FROM interface_types
WHERE id = ?`,
		id,
	)
	return scanInterfaceType(row)
}

func (r *InterfaceTypeRepository) GetByName(ctx context.Context, name string) (*domain.InterfaceType, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, description, created_at
FROM interface_types
WHERE name = ?`,
		name,
	)
	return scanInterfaceType(row)
}

func (r *InterfaceTypeRepository) List(ctx context.Context, skip, limit int) ([]domain.InterfaceType, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, description, created_at
FROM interface_types
ORDER BY id
LIMIT ? OFFSET ?`,
		limit,
		skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list interface types: %w", err)
	}
	defer rows.Close()

	var types []domain.InterfaceType
	for rows.Next() {
		it, err := scanInterfaceType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, *it)
	}
	return types, rows.Err()
}

func scanInterfaceType(row interface {
	Scan(dest ...any) error
}) (*domain.InterfaceType, error) {
	var it domain.InterfaceType
	if err := row.Scan(
		&it.ID,
		&it.Name,
		&it.Description,
		&it.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("interface type: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan interface type: %w", err)
	}
	return &it, nil
}

type InterfaceRepository struct {
	db *sql.DB
}

func NewInterfaceRepository(db *sql.DB) repository.InterfaceRepository {
	return &InterfaceRepository{db: db}
}

func (r *InterfaceRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createInterfacesTable); err != nil {
		return fmt.Errorf("create interfaces table: %w", err)
	}
	return nil
}

func (r *InterfaceRepository) Create(ctx context.Context, iface *domain.Interface) (int64, error) {
	now := time.Now().UTC()
	iface.CreatedAt = now
	iface.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO interfaces (name, description, component_id, interface_type_id, active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		iface.Name,
		iface.Description,
		iface.ComponentID,
		iface.InterfaceTypeID,
		iface.Active,
		iface.CreatedAt,
		iface.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert interface: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("interface last insert id: %w", err)
	}
	iface.ID = id
	return id, nil
}

func (r *InterfaceRepository) Get(ctx context.Context, id int64) (*domain.Interface, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, description, component_id, interface_type_id, active, created_at, updated_at
FROM interfaces
WHERE id = ?`,
		id,
	)
	return scanInterface(row)
}

func (r *InterfaceRepository) List(ctx context.Context, skip, limit int) ([]domain.Interface, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, description, component_id, interface_type_id, active, created_at, updated_at
FROM interfaces
ORDER BY id
LIMIT ? OFFSET ?`,
		limit,
		skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}
	defer rows.Close()

	var interfaces []domain.Interface
	for rows.Next() {
		iface, err := scanInterface(rows)
		if err != nil {
			return nil, err
		}
		interfaces = append(interfaces, *iface)
	}
	return interfaces, rows.Err()
}

func scanInterface(row interface {
	Scan(dest ...any) error
}) (*domain.Interface, error) {
	var iface domain.Interface
	if err := row.Scan(
		&iface.ID,
		&iface.Name,
		&iface.Description,
		&iface.ComponentID,
		&iface.InterfaceTypeID,
		&iface.Active,
		&iface.CreatedAt,
		&iface.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("interface: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan interface: %w", err)
	}
	return &iface, nil
}
