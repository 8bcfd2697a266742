package session

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoToken is returned when a login payload carries no token.
var ErrNoToken = errors.New("login payload has no token")

// LoginBlob builds the blob persisted after a successful login: the payload
// as received plus a normalized token and token_type at the top level.
func LoginBlob(payload []byte) ([]byte, error) {
	doc, ok := parse(payload)
	if !ok {
		return nil, ErrNoToken
	}
	token, ok := rule{paths: paths("token", "access_token"), match: firstNonEmpty, numbers: true}.extract(doc)
	if !ok {
		return nil, ErrNoToken
	}
	scheme, _ := doc["token_type"].(string)
	if strings.TrimSpace(scheme) == "" {
		scheme = DefaultScheme
	}
	doc["token"] = token
	doc["token_type"] = scheme
	return json.Marshal(doc)
}
