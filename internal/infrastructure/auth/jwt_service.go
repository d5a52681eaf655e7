package auth

import (
	"fmt"
	"time"

	"github.com/CeoSolace/stealth-bte/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

const sessionTTL = 24 * time.Hour

// GenerateToken issues a session JWT for an already-authenticated user.
// Authentication itself happens at the external identity boundary.
func GenerateToken(user *models.User, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("JWT secret not set")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":    user.ID,
		"discord_id": user.DiscordID,
		"role":       string(user.Role),
		"exp":        time.Now().Add(sessionTTL).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// ParseToken validates the signature and extracts the caller identity.
func ParseToken(tokenStr, secret string) (models.Caller, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return models.Caller{}, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Caller{}, fmt.Errorf("invalid token claims")
	}
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return models.Caller{}, fmt.Errorf("invalid user_id in token")
	}
	discordID, _ := claims["discord_id"].(string)
	role, _ := claims["role"].(string)

	return models.Caller{
		UserID:    int64(userID),
		DiscordID: discordID,
		Role:      models.Role(role),
	}, nil
}
