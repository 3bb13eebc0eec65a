package formsg

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"
)

// Modes select which FormSG environment signs the webhooks.
const (
	ModeProduction = "production"
	ModeStaging    = "staging"
)

var signingPublicKeys = map[string]string{
	ModeProduction: "3Tt8VduXsjjd4IrpdCd7BAkdZl/vUCstu9UvTX84FWw=",
	ModeStaging:    "rjv41kYqZwcbe3r3ymMEEKQ+Vd+DPuogN+Gzq3lP2Og=",
}

// SigningPublicKey resolves the webhook verification key. A non-empty override
// takes precedence over the key of mode.
func SigningPublicKey(mode, override string) (ed25519.PublicKey, error) {
	encoded := strings.TrimSpace(override)
	if encoded == "" {
		var ok bool
		encoded, ok = signingPublicKeys[strings.ToLower(strings.TrimSpace(mode))]
		if !ok {
			return nil, fmt.Errorf("formsg: unknown mode %q", mode)
		}
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("formsg: decode signing public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("formsg: signing public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}
