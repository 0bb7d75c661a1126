package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Preferences is the free-form settings blob stored in users.preferences.
type Preferences map[string]any

func (p Preferences) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

func (p *Preferences) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = Preferences{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("preferences: unsupported scan type")
	}
	out := Preferences{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
	}
	*p = out
	return nil
}

// User represents an account row in the `users` table.
type User struct {
	ID           int64       `db:"id" json:"id"`
	Username     string      `db:"username" json:"username"`
	Email        string      `db:"email" json:"email"`
	PasswordHash string      `db:"password_hash" json:"-"`
	Preferences  Preferences `db:"preferences" json:"preferences"`
	IsActive     bool        `db:"is_active" json:"isActive"`
	LastActiveAt *time.Time  `db:"last_active_at" json:"lastActiveAt,omitempty"`
	LastLoginAt  *time.Time  `db:"last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updatedAt"`
}
