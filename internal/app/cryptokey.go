package app

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// parseHexKey decodes the 32-byte hex-encoded crypto key. An empty key
// generates a random one for local/dev runs, logging loudly so nobody
// mistakes it for a stable key across restarts.
func parseHexKey(hexKey string) ([]byte, error) {
	if hexKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generating dev crypto key: %w", err)
		}
		slog.Warn("RELAYHUB_CRYPTO_KEY not set, using an ephemeral dev key: encrypted credentials will not survive a restart")
		return key, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding hex key: %w", err)
	}
	return key, nil
}
