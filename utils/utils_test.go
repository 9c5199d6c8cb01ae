package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "circulacao interrompida na estacao marques de pombal",
		NormalizeText("Circulação interrompida na Estação Marquês de Pombal"))
	assert.Equal(t, "", NormalizeText(""))
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/inbox", nil)
	r.RemoteAddr = "10.0.0.7:51234"
	assert.Equal(t, "10.0.0.7", GetClientIP(r))

	r.Header.Set("X-Forwarded-For", "192.0.2.1, 10.0.0.1")
	assert.Equal(t, "192.0.2.1", GetClientIP(r))

	r.Header.Set("X-Real-Ip", "198.51.100.4")
	assert.Equal(t, "198.51.100.4", GetClientIP(r))
}

func TestGenerateAdminKey(t *testing.T) {
	key := GenerateAdminKey()
	assert.Len(t, key, 32)
	assert.Regexp(t, "^[0-9A-Za-z]+$", key)
	assert.NotEqual(t, key, GenerateAdminKey())
}
