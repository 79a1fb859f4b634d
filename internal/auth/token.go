package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// AccessTokenTTL bounds the signed bearer token; clients exchange the
	// device token for a fresh one via /api/auth/refresh.
	AccessTokenTTL = 12 * time.Hour
	// DeviceTokenTTL bounds the persistent device credential.
	DeviceTokenTTL = 30 * 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

// MintAccessToken signs a short-lived HS256 token for the user.
func MintAccessToken(userID uint, staff bool) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   strconv.FormatUint(uint64(userID), 10),
		"staff": staff,
		"iat":   now.Unix(),
		"exp":   now.Add(AccessTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(Secret()))
}

// ParseAccessToken validates a signed token and returns the user id and
// staff claim.
func ParseAccessToken(raw string) (uint, bool, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return []byte(Secret()), nil
	})
	if err != nil || !token.Valid {
		return 0, false, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	id64, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id64 == 0 {
		return 0, false, ErrInvalidToken
	}
	staff, _ := claims["staff"].(bool)
	return uint(id64), staff, nil
}

// NewDeviceToken generates a random device token and its storage hash.
// Only the hash is persisted; the raw value goes back to the caller once.
func NewDeviceToken() (raw, hash string, err error) {
	b := make([]byte, 32)
	if _, err = rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	return raw, HashToken(raw), nil
}

// HashToken returns the hex sha256 of a raw device token.
func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}
