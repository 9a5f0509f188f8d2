package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is a dashboard account, local (bcrypt) or provisioned from LDAP.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Email        string     `bun:"email,unique" json:"email"`
	PasswordHash string     `bun:"password_hash" json:"-"`
	TokenVersion int        `bun:"token_version" json:"token_version"`
	Roles        []string   `bun:"roles,array" json:"roles"`
	Provider     string     `bun:"provider" json:"provider"`
	Name         string     `bun:"name" json:"name"`
	CreatedAt    time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	LastLoginAt  *time.Time `bun:"last_login_at" json:"last_login_at"`
}

// RefreshToken stores the hash of an issued refresh token so it can be
// rotated and revoked.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rt"`

	ID         uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	UserID     uuid.UUID `bun:"user_id,type:uuid" json:"user_id"`
	JTI        string    `bun:"jti" json:"jti"`
	TokenHash  string    `bun:"token_hash" json:"-"`
	DeviceInfo *string   `bun:"device_info" json:"device_info"`
	Revoked    bool      `bun:"revoked" json:"revoked"`
	CreatedAt  time.Time `bun:"created_at" json:"created_at"`
	ExpiresAt  time.Time `bun:"expires_at" json:"expires_at"`
}
