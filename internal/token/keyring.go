package token

import (
	"errors"
	"fmt"
)

// MinSecretLength is the shortest HMAC secret accepted for HS256.
const MinSecretLength = 32

// Keyring holds the signing key and the keys of prior rotations.
// It is read-only after construction and safe for concurrent use.
type Keyring struct {
	currentID string
	keys      map[string][]byte
}

// NewKeyring builds a keyring that signs with current and verifies with
// current plus every previous key.
func NewKeyring(currentID string, current []byte, previous map[string][]byte) (*Keyring, error) {
	if currentID == "" {
		return nil, errors.New("signing key id is required")
	}
	if len(current) < MinSecretLength {
		return nil, fmt.Errorf("signing key %q must be at least %d bytes", currentID, MinSecretLength)
	}

	keys := make(map[string][]byte, len(previous)+1)
	for kid, secret := range previous {
		if len(secret) < MinSecretLength {
			return nil, fmt.Errorf("verification key %q must be at least %d bytes", kid, MinSecretLength)
		}
		keys[kid] = append([]byte(nil), secret...)
	}
	keys[currentID] = append([]byte(nil), current...)

	return &Keyring{currentID: currentID, keys: keys}, nil
}

func (k *Keyring) signingKey() (string, []byte) {
	return k.currentID, k.keys[k.currentID]
}

func (k *Keyring) lookup(kid string) ([]byte, bool) {
	key, ok := k.keys[kid]
	return key, ok
}
