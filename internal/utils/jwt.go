package utils // package utils provides helpers for operator token handling

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleOperator is the role claim value that unlocks the merchant view and
// the administrative REST surface.
const RoleOperator = "OPERATOR"

// NewOperatorToken builds and signs an HS256 JWT carrying the OPERATOR
// role.  It takes the signing secret, an identifier for the operator
// station, and a TTL in minutes.  The JWT includes standard claims:
// subject (sub), role, expiration (exp) and issued at (iat).
func NewOperatorToken(secret, subject string, ttlMin int) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": RoleOperator,
		"exp":  now.Add(time.Duration(ttlMin) * time.Minute).Unix(),
		"iat":  now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// VerifyOperatorToken parses a token and reports whether it is valid and
// carries the OPERATOR role.  It is used by the websocket upgrade handler,
// where the token arrives as a query parameter rather than an
// Authorization header.
func VerifyOperatorToken(secret, raw string) (bool, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return false, err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return false, nil
	}
	role, _ := claims["role"].(string)
	return role == RoleOperator, nil
}
