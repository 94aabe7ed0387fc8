package domain

import "time"

// User is a managed account record exposed through the API.
type User struct {
	ID        int64
	Name      string
	Email     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Activate marks the user as active.
func (u *User) Activate() {
	u.Active = true
	u.UpdatedAt = time.Now().UTC()
}

// Deactivate marks the user as inactive.
func (u *User) Deactivate() {
	u.Active = false
	u.UpdatedAt = time.Now().UTC()
}
