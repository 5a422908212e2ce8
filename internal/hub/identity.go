package hub

import (
	"crypto/rand"
	"fmt"
)

// idAlphabet is the symbol set peer ids are drawn from.
const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// idLength is chosen so that collision probability within one hub's live
// population is negligible.
const idLength = 12

// maxIDAttempts bounds the retry-on-collision loop; reaching it would mean
// the registry is saturated to the point of being a bigger problem than id
// generation.
const maxIDAttempts = 16

// randomID returns one candidate identifier. Side-effect-free apart from
// entropy consumption; callers retry on collision against the registry.
func randomID() (string, error) {
	buf := make([]byte, idLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("hub: reading entropy: %w", err)
	}
	out := make([]byte, idLength)
	for i, b := range buf {
		out[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(out), nil
}

// defaultName derives a display name from the leading characters of an id,
// used when the handshake carries no usable name parameter.
func defaultName(id string) string {
	const n = 6
	if len(id) < n {
		return id
	}
	return id[:n]
}
