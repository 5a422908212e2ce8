// Package msg defines the hub's wire envelope: a set of tagged-union JSON
// frames exchanged between a peer and the hub. Each frame kind has a typed
// struct and constructor; Decode reads just enough to learn a frame's type
// before dispatching to type-specific decoding.
package msg

import (
	"encoding/json"
	"fmt"
)

// Type values, one per frame kind in the wire vocabulary.
const (
	TypeOffer            = "offer"
	TypeAnswer           = "answer"
	TypeICECandidate     = "ice-candidate"
	TypeGetPeers         = "get-peers"
	TypeUpdateName       = "update-name"
	TypeRegistered       = "registered"
	TypePeerList         = "peer-list"
	TypeNewPeer          = "new-peer"
	TypePeerDisconnected = "peer-disconnected"
	TypePeerNameUpdated  = "peer-name-updated"
	TypeNameUpdatedAck   = "name-updated-ack"
	TypeError            = "error"
)

// MaxFrameBytes is the default ceiling on an encoded frame and the hard limit
// Decode applies. The session additionally enforces the configured
// hub.max_frame_bytes (internal/config) before calling Decode.
const MaxFrameBytes = 64 * 1024

// Envelope is the minimal shape every inbound frame must satisfy: a type
// discriminator plus whatever the concrete frame needs. Directed frames
// (offer/answer/ice-candidate) additionally carry "to", and the hub adds
// "from"/"name" before forwarding without otherwise touching the payload —
// the opaque fields live in Raw and are never unmarshaled into named fields.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// Decode parses a raw inbound frame far enough to learn its type, keeping
// the rest as opaque bytes for type-specific decoding or pass-through
// forwarding. Returns an error for anything that isn't a JSON object with a
// string "type" field.
func Decode(data []byte) (Envelope, error) {
	if len(data) > MaxFrameBytes {
		return Envelope{}, fmt.Errorf("msg: frame exceeds %d bytes", MaxFrameBytes)
	}
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return Envelope{}, fmt.Errorf("msg: invalid message format: %w", err)
	}
	if probe.Type == "" {
		return Envelope{}, fmt.Errorf("msg: missing type field")
	}
	return Envelope{Type: probe.Type, Raw: json.RawMessage(data)}, nil
}

// Directed carries the fields common to offer/answer/ice-candidate frames.
// Every other field is kept as raw JSON in rawBody so the hub never inspects
// or loses negotiation fields it doesn't know about; Opaque is not populated
// by DecodeDirected.
type Directed struct {
	Type    string                 `json:"type"`
	To      string                 `json:"to"`
	From    string                 `json:"from,omitempty"`
	Name    string                 `json:"name,omitempty"`
	Opaque  map[string]any         `json:"-"`
	rawBody map[string]json.RawMessage
}

// DecodeDirected parses a directed frame, validating that "to" is present,
// and retains every other field byte-for-byte in rawBody for later
// re-encoding by WithSender.
func DecodeDirected(data []byte) (Directed, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Directed{}, fmt.Errorf("msg: invalid message format: %w", err)
	}

	var d Directed
	if raw, ok := fields["type"]; ok {
		_ = json.Unmarshal(raw, &d.Type)
	}
	if raw, ok := fields["to"]; ok {
		_ = json.Unmarshal(raw, &d.To)
	}
	if d.To == "" {
		return Directed{}, fmt.Errorf("msg: directed frame missing non-empty \"to\"")
	}

	delete(fields, "type")
	delete(fields, "to")
	delete(fields, "from")
	delete(fields, "name")
	d.rawBody = fields
	return d, nil
}

// WithSender returns the bytes to forward: the original opaque fields plus
// type/to/from/name, added exactly once, nothing else touched.
func (d Directed) WithSender(fromID, fromName string) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.rawBody)+4)
	for k, v := range d.rawBody {
		out[k] = v
	}
	typeJSON, _ := json.Marshal(d.Type)
	toJSON, _ := json.Marshal(d.To)
	fromJSON, _ := json.Marshal(fromID)
	nameJSON, _ := json.Marshal(fromName)
	out["type"] = typeJSON
	out["to"] = toJSON
	out["from"] = fromJSON
	out["name"] = nameJSON
	return json.Marshal(out)
}

// PeerRef is the {id, name} shape used in peer listings and arrival events.
type PeerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Registered is sent once, first, after a successful handshake.
type Registered struct {
	Type     string    `json:"type"`
	PeerID   string    `json:"peerId"`
	YourName string    `json:"yourName"`
	Peers    []PeerRef `json:"peers"`
}

func NewRegistered(peerID, yourName string, peers []PeerRef) Registered {
	return Registered{Type: TypeRegistered, PeerID: peerID, YourName: yourName, Peers: peers}
}

// PeerList replies to get-peers.
type PeerList struct {
	Type  string    `json:"type"`
	Peers []PeerRef `json:"peers"`
}

func NewPeerList(peers []PeerRef) PeerList {
	return PeerList{Type: TypePeerList, Peers: peers}
}

// NewPeerEvent is broadcast on arrival.
type NewPeerEvent struct {
	Type string  `json:"type"`
	Peer PeerRef `json:"peer"`
}

func NewNewPeerEvent(peer PeerRef) NewPeerEvent {
	return NewPeerEvent{Type: TypeNewPeer, Peer: peer}
}

// PeerDisconnected is broadcast on departure.
type PeerDisconnected struct {
	Type   string `json:"type"`
	PeerID string `json:"peerId"`
}

func NewPeerDisconnected(peerID string) PeerDisconnected {
	return PeerDisconnected{Type: TypePeerDisconnected, PeerID: peerID}
}

// PeerNameUpdated is broadcast on rename.
type PeerNameUpdated struct {
	Type   string `json:"type"`
	PeerID string `json:"peerId"`
	Name   string `json:"name"`
}

func NewPeerNameUpdated(peerID, name string) PeerNameUpdated {
	return PeerNameUpdated{Type: TypePeerNameUpdated, PeerID: peerID, Name: name}
}

// NameUpdatedAck is sent to the renaming peer.
type NameUpdatedAck struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

func NewNameUpdatedAck(name string) NameUpdatedAck {
	return NameUpdatedAck{Type: TypeNameUpdatedAck, Name: name}
}

// ErrorFrame is a non-fatal, per-request diagnostic.
type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewErrorFrame(message string) ErrorFrame {
	return ErrorFrame{Type: TypeError, Message: message}
}

// UpdateNameRequest is the peer->hub update-name frame.
type UpdateNameRequest struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// DecodeUpdateName parses an update-name frame's name field.
func DecodeUpdateName(data []byte) (UpdateNameRequest, error) {
	var req UpdateNameRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return UpdateNameRequest{}, fmt.Errorf("msg: invalid message format: %w", err)
	}
	return req, nil
}
