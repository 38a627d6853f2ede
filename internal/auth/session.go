// Package auth signs and verifies the Ed25519 JWTs that identify socket users.
package auth

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/models"
)

// Claims is the token body. Subject carries the user id.
type Claims struct {
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

// Sessions holds the key pair and token lifetime.
type Sessions struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	expire     time.Duration
}

// Init generates a fresh ed25519 key pair. An expire of 0 issues tokens
// without an exp claim.
func Init(expire time.Duration) (*Sessions, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Sessions{privateKey: priv, publicKey: pub, expire: expire}, nil
}

// InitFromKeys decodes base64 keys. privateKey may be empty for a verify-only
// deployment.
func InitFromKeys(privateKey, publicKey string, expire time.Duration) (*Sessions, error) {
	pub, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key has %d bytes, want %d", len(pub), ed25519.PublicKeySize)
	}
	s := &Sessions{publicKey: ed25519.PublicKey(pub), expire: expire}
	if privateKey != "" {
		priv, err := base64.StdEncoding.DecodeString(privateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decode private key: %w", err)
		}
		if len(priv) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("private key has %d bytes, want %d", len(priv), ed25519.PrivateKeySize)
		}
		s.privateKey = ed25519.PrivateKey(priv)
	}
	return s, nil
}

// CreateJWT signs a token for user.
func (s *Sessions) CreateJWT(user models.User) (string, error) {
	if s.privateKey == nil {
		return "", errors.New("no signing key configured")
	}
	now := time.Now()
	claims := Claims{
		Name:   user.Username,
		Avatar: user.Avatar,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  user.ID.String(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.expire > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.expire))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(s.privateKey)
}

// AuthenticateJWT verifies tokenString and returns the user it names.
func (s *Sessions) AuthenticateJWT(tokenString string) (models.User, error) {
	var claims Claims
	t, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.publicKey, nil
	})
	if err != nil {
		return models.User{}, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return models.User{}, errors.New("invalid token")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.User{}, fmt.Errorf("invalid sub in jwt: %w", err)
	}
	name := claims.Name
	if name == "" {
		name = "Player-" + id.String()[:8]
	}
	return models.User{ID: id, Username: name, Avatar: claims.Avatar}, nil
}
