package auth

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/robertarktes/hotel-reservations/internal/domain"
)

type Role string

const (
	RoleClient     Role = "CLIENT"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPERADMIN"
)

// Elevated roles may act on reservations they do not own and review refunds.
func (r Role) Elevated() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Caller is the authenticated identity extracted from a request token.
type Caller struct {
	ID   uuid.UUID
	Role Role
}

// Authorize enforces the ownership rule shared by all engine operations:
// non-elevated callers may only touch resources they own.
func Authorize(caller Caller, ownerID uuid.UUID) error {
	if caller.Role.Elevated() {
		return nil
	}
	if caller.ID != ownerID {
		return domain.ErrForbidden
	}
	return nil
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SignToken issues an HS512 token carrying the caller's id and role.
func SignToken(secret string, caller Caller, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims{
		Role: string(caller.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString([]byte(secret))
}

// VerifyToken parses and validates a bearer token, returning the caller it
// identifies.
func VerifyToken(secret, tokenString string) (Caller, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS512 {
			return nil, errors.Newf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Caller{}, err
	}
	if !token.Valid {
		return Caller{}, errors.New("invalid token")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return Caller{}, errors.Wrap(err, "parse subject")
	}
	role := Role(c.Role)
	switch role {
	case RoleClient, RoleAdmin, RoleSuperAdmin:
	default:
		return Caller{}, errors.Newf("unknown role %q", c.Role)
	}
	return Caller{ID: id, Role: role}, nil
}
