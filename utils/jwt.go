package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/johnolven/swarm/config"
	"github.com/johnolven/swarm/models"
)

// AgentClaims is the token payload for registered agents.
type AgentClaims struct {
	AgentID string `json:"agent_id"`
	Name    string `json:"name"`
	jwt.RegisteredClaims
}

// UserClaims is the token payload for human accounts. Type is always
// "human"; the auth middleware branches on it.
type UserClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

const tokenLifetime = 30 * 24 * time.Hour

func GenerateAgentToken(agent *models.Agent) (string, error) {
	claims := &AgentClaims{
		AgentID: agent.ID,
		Name:    agent.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

func GenerateUserToken(user *models.User) (string, error) {
	claims := &UserClaims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Type:   "human",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

func keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("unexpected signing method")
	}
	return []byte(config.AppConfig.JWTSecret), nil
}

// ParseUserToken validates a human token. It fails on agent tokens.
func ParseUserToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, keyFunc)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid || claims.Type != "human" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ParseAgentToken validates an agent token.
func ParseAgentToken(tokenString string) (*AgentClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AgentClaims{}, keyFunc)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*AgentClaims)
	if !ok || !token.Valid || claims.AgentID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
