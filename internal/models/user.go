package models

import "github.com/google/uuid"

// DefaultAvatar is shown for players that never picked one.
const DefaultAvatar = "👤"

// User is the identity a connection authenticates as. Balances live behind the
// ledger, so only display fields travel with it.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"name"`
	Avatar   string    `json:"avatar"`
}

// DisplayAvatar returns the avatar or the default placeholder.
func (u User) DisplayAvatar() string {
	if u.Avatar == "" {
		return DefaultAvatar
	}
	return u.Avatar
}
