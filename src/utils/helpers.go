package utils

import (
	"fmt"
	"os"
	"time"

	"homestay/src/config"
	"homestay/src/models"
	"homestay/src/types"

	"github.com/golang-jwt/jwt/v4"
)

var jwtKey = []byte(os.Getenv("JWT_SECRET"))

// GenerateJWT issues a signed token for the user with the subject set to the
// numeric user id, which is what AuthMiddleware resolves back to a record.
func GenerateJWT(user *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := types.Claims{
		Username: user.Email,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

// ParseStayDate parses a check-in/check-out date off the wire, anchored to
// UTC midnight.
func ParseStayDate(value string) (time.Time, error) {
	t, err := time.Parse(config.STAY_DATE_FORMAT, value)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
