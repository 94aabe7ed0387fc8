package domain

import "time"

// Component is an application component that owns interfaces.
type Component struct {
	ID          int64
	Name        string
	Description string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InterfaceType classifies interfaces (queue, topic, REST, ...).
type InterfaceType struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
}

// Interface binds a component to an interface type.
type Interface struct {
	ID              int64
	Name            string
	Description     string
	ComponentID     int64
	InterfaceTypeID int64
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
