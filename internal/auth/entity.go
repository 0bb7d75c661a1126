package auth

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	userentity "github.com/vapmail16/synonym-quest-sub000/internal/user/entity"
)

// DeviceInfo describes the client that opened a session.
type DeviceInfo struct {
	UserAgent  string `json:"userAgent,omitempty"`
	IPAddress  string `json:"ipAddress,omitempty"`
	DeviceType string `json:"deviceType,omitempty"`
}

func (d DeviceInfo) Value() (driver.Value, error) { return json.Marshal(d) }

func (d *DeviceInfo) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = DeviceInfo{}
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	}
	return errors.New("device info: unsupported scan type")
}

// Session is a row of user_sessions. Token and RefreshToken are the
// currently valid pair; rotation replaces both.
type Session struct {
	ID               string     `db:"id" json:"id"`
	UserID           int64      `db:"user_id" json:"userId"`
	Token            string     `db:"token" json:"-"`
	RefreshToken     string     `db:"refresh_token" json:"-"`
	DeviceInfo       DeviceInfo `db:"device_info" json:"deviceInfo"`
	ExpiresAt        time.Time  `db:"expires_at" json:"expiresAt"`
	RefreshExpiresAt time.Time  `db:"refresh_expires_at" json:"refreshExpiresAt"`
	IsActive         bool       `db:"is_active" json:"isActive"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"lastUsedAt"`
}

// TokenPair is returned to clients after login, register and refresh.
type TokenPair struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// AuthResult bundles the user with a fresh token pair.
type AuthResult struct {
	User *userentity.User `json:"user"`
	TokenPair
}

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	UserID    int64
	SessionID string
	User      *userentity.User
}
