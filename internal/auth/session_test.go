package auth

import (
	"crypto/ed25519"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndAuthenticate(t *testing.T) {
	s, err := Init(time.Hour)
	require.NoError(t, err)

	user := models.User{ID: uuid.New(), Username: "ada", Avatar: "owl"}
	token, err := s.CreateJWT(user)
	require.NoError(t, err)

	got, err := s.AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, user, got)
}

func TestAuthenticateDefaultsName(t *testing.T) {
	s, err := Init(0)
	require.NoError(t, err)
	id := uuid.New()
	token, err := s.CreateJWT(models.User{ID: id})
	require.NoError(t, err)

	got, err := s.AuthenticateJWT(token)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got.Username, "Player-"))
}

func TestAuthenticateRejects(t *testing.T) {
	s, err := Init(time.Hour)
	require.NoError(t, err)
	other, err := Init(time.Hour)
	require.NoError(t, err)

	foreign, err := other.CreateJWT(models.User{ID: uuid.New()})
	require.NoError(t, err)
	_, err = s.AuthenticateJWT(foreign)
	assert.Error(t, err)

	_, err = s.AuthenticateJWT("not.a.token")
	assert.Error(t, err)

	expired := &Sessions{privateKey: s.privateKey, publicKey: s.publicKey, expire: -time.Minute}
	old, err := expired.CreateJWT(models.User{ID: uuid.New()})
	require.NoError(t, err)
	_, err = s.AuthenticateJWT(old)
	assert.Error(t, err)
}

func TestInitFromKeys(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	enc := base64.StdEncoding.EncodeToString

	s, err := InitFromKeys(enc(priv), enc(pub), time.Hour)
	require.NoError(t, err)
	token, err := s.CreateJWT(models.User{ID: uuid.New(), Username: "bo"})
	require.NoError(t, err)

	verifier, err := InitFromKeys("", enc(pub), time.Hour)
	require.NoError(t, err)
	got, err := verifier.AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "bo", got.Username)

	_, err = verifier.CreateJWT(models.User{ID: uuid.New()})
	assert.Error(t, err)
	_, err = InitFromKeys("", enc(pub[:10]), time.Hour)
	assert.Error(t, err)
}
