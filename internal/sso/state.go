package sso

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

// ErrInvalidState indica que el parámetro state no se pudo decodificar.
var ErrInvalidState = errors.New("invalid state parameter")

type loginState struct {
	Next string `json:"next"`
}

// EncodeState serializa el destino post-login para el round-trip por el provider.
func EncodeState(next string) string {
	raw, _ := json.Marshal(loginState{Next: next})
	return base64.URLEncoding.EncodeToString(raw)
}

// DecodeState recupera el destino post-login desde el parámetro state.
func DecodeState(state string) (string, error) {
	if strings.TrimSpace(state) == "" {
		return "", ErrInvalidState
	}
	raw, err := base64.URLEncoding.DecodeString(state)
	if err != nil {
		return "", ErrInvalidState
	}
	var decoded loginState
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", ErrInvalidState
	}
	if decoded.Next == "" {
		return "", ErrInvalidState
	}
	return decoded.Next, nil
}
