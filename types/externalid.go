package types

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ExternalDisruptionID identifies a notice published by an external source
type ExternalDisruptionID struct {
	Type       string `json:"type" msgpack:"type"`
	ExternalID string `json:"id" msgpack:"id"`
}

// ErrInvalidToken is returned when an ExternalDisruptionID token can't be decoded
var ErrInvalidToken = errors.New("invalid external disruption token")

// String returns a human readable representation of the ID
func (id ExternalDisruptionID) String() string {
	return id.Type + ":" + id.ExternalID
}

// Token returns a URL-safe encoding of the ID that can be reversed with ParseExternalDisruptionIDToken
func (id ExternalDisruptionID) Token() string {
	return base64.RawURLEncoding.EncodeToString([]byte(id.Type + "/" + id.ExternalID))
}

// ParseExternalDisruptionIDToken decodes a token obtained with ExternalDisruptionID.Token
func ParseExternalDisruptionIDToken(token string) (ExternalDisruptionID, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ExternalDisruptionID{}, ErrInvalidToken
	}
	parts := strings.SplitN(string(b), "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		return ExternalDisruptionID{}, ErrInvalidToken
	}
	return ExternalDisruptionID{
		Type:       parts[0],
		ExternalID: parts[1],
	}, nil
}
