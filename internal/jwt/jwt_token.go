package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

// CreateIdentityToken signs a visitor identity token. validUntil of zero uses
// the default TTL.
func CreateIdentityToken(identity Identity, validUntil int64) (string, error) {
	secret := identitySecret()
	if len(secret) == 0 {
		return "", fmt.Errorf("identity token secret not configured")
	}

	if validUntil == 0 {
		validUntil = time.Now().Add(IdentityTokenTTL).Unix()
	}

	claims := jwt.MapClaims{
		"customerId": identity.CustomerID,
		"exp":        validUntil,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseIdentityToken validates the signature and expiry and returns the
// embedded identity. Any failure is returned as-is; callers treat a bad token
// the same as no token and mint a fresh identity.
func ParseIdentityToken(tokenString string) (Identity, error) {
	if len(tokenString) == 0 {
		return Identity{}, fmt.Errorf("token string is empty")
	}

	secret := identitySecret()
	if len(secret) == 0 {
		return Identity{}, fmt.Errorf("identity token secret not configured")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return Identity{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("invalid token claims")
	}

	customerID, _ := claims["customerId"].(string)
	if customerID == "" {
		return Identity{}, fmt.Errorf("token missing customerId")
	}

	return Identity{CustomerID: customerID}, nil
}
