package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// AuthToken is an opaque bearer token issued at register/login
type AuthToken struct {
	Token     string    `json:"token" bson:"_id"`
	UserID    string    `json:"userId" bson:"userId"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt" bson:"expiresAt"`
}

// IsExpired checks if the token TTL has elapsed
func (t *AuthToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// GenerateToken creates a cryptographically random 48-char hex token
func GenerateToken() (string, error) {
	bytes := make([]byte, 24)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// MaskToken returns the first 8 characters of a token for safe logging
func MaskToken(token string) string {
	if len(token) < 8 {
		return "***"
	}
	return token[:8] + "..."
}

// ChatMessage is one message posted to the support room
type ChatMessage struct {
	ID         string    `json:"id" bson:"_id"`
	SenderID   string    `json:"senderId" bson:"senderId"`
	SenderName string    `json:"senderName" bson:"senderName"`
	SenderRole Role      `json:"senderRole" bson:"senderRole"`
	Message    string    `json:"message" bson:"message"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}
