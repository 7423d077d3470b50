package model

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

// Role is the closed set of account roles.  The zero value is not a valid
// role so an unset field can never be mistaken for a customer or manager.
type Role uint8

const (
	RoleCustomer Role = iota + 1 // registers for events
	RoleManager                  // creates events
)

// ErrInvalidRole is returned when a string does not name a known role.
var ErrInvalidRole = errors.New("invalid role")

// ParseRole converts the wire form ("manager" / "customer") into a Role.
// Matching is exact; "Manager" is rejected.
func ParseRole(s string) (Role, error) {
	switch s {
	case "customer":
		return RoleCustomer, nil
	case "manager":
		return RoleManager, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// String returns the wire form of the role.
func (r Role) String() string {
	switch r {
	case RoleCustomer:
		return "customer"
	case RoleManager:
		return "manager"
	}
	return "unknown"
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool { return r == RoleCustomer || r == RoleManager }

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, ErrInvalidRole
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Value stores the role in the users.role ENUM column.
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, ErrInvalidRole
	}
	return r.String(), nil
}

// Scan reads the users.role column.
func (r *Role) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	}
	return fmt.Errorf("%w: cannot scan %T", ErrInvalidRole, src)
}

// User mirrors the `users` table.  PasswordHash never leaves the process.
type User struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
}
