package security

import (
	"time"

	"github.com/google/uuid"
)

// Maker makes a new token
type Maker interface {
	// CreateToken issues a token for userID carrying permissions.
	CreateToken(userID uuid.UUID, permissions []string, duration time.Duration) (string, *Payload, error)

	// VerifyToken checks if the token is valid or not
	VerifyToken(token string) (*Payload, error)
}
