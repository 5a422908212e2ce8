package hub

import (
	"encoding/json"
	"errors"
)

var (
	errCollision     = errors.New("hub: id collision inserting new peer")
	errWelcomeFailed = errors.New("hub: could not enqueue welcome frame")
)

// encode renders a typed frame struct to its single-line JSON wire form.
func encode(v any) ([]byte, error) {
	return json.Marshal(v)
}
