package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/arena/ws?token=abc", nil)
	assert.Equal(t, "abc", requestToken(r))

	r = httptest.NewRequest(http.MethodGet, "/arena/ws", nil)
	r.Header.Set("Authorization", "Bearer def")
	assert.Equal(t, "def", requestToken(r))

	r = httptest.NewRequest(http.MethodGet, "/arena/ws", nil)
	r.Header.Set("Cookie", "theme=dark; auth_token=ghi; lang=en")
	assert.Equal(t, "ghi", requestToken(r))

	r = httptest.NewRequest(http.MethodGet, "/arena/ws", nil)
	assert.Empty(t, requestToken(r))
}
