package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/Mesh/internal/domain"
)

var ErrMalformedMessage = errors.New("malformed message")

type MessageType string

const (
	MsgInit         MessageType = "init"
	MsgJoin         MessageType = "join"
	MsgLeave        MessageType = "leave"
	MsgOffer        MessageType = "offer"
	MsgAnswer       MessageType = "answer"
	MsgICECandidate MessageType = "ice-candidate"
	MsgPeers        MessageType = "peers"
	MsgNewPeer      MessageType = "new-peer"
	MsgPeerLeave    MessageType = "peer-leave"
	MsgStatusUpdate MessageType = "status-update"
	MsgPing         MessageType = "ping"
	MsgPong         MessageType = "pong"
	MsgError        MessageType = "error"
)

// Error codes carried in the data field of an error message.
const (
	ErrCodeRoomFull     = "room-full"
	ErrCodeRoomNotFound = "room-not-found"
	ErrCodeNotJoined    = "not-joined"
	ErrCodeAlreadyIn    = "already-joined"
	ErrCodeRateLimited  = "rate-limited"
	ErrCodeUnavailable  = "unavailable"
)

// Handshake reports whether t is relayed between peers untouched.
func (t MessageType) Handshake() bool {
	switch t {
	case MsgOffer, MsgAnswer, MsgICECandidate:
		return true
	}
	return false
}

func (t MessageType) known() bool {
	switch t {
	case MsgInit, MsgJoin, MsgLeave, MsgOffer, MsgAnswer, MsgICECandidate,
		MsgPeers, MsgNewPeer, MsgPeerLeave, MsgStatusUpdate, MsgPing, MsgPong, MsgError:
		return true
	}
	return false
}

// Envelope is the wire form of every relay message. Data is opaque and is
// forwarded byte for byte; only the routing fields are read or written.
type Envelope struct {
	Type     MessageType     `json:"type"`
	RoomID   domain.RoomCode `json:"roomId,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	SenderID domain.ClientID `json:"senderId,omitempty"`
	Target   domain.ClientID `json:"target,omitempty"`
	Username string          `json:"username,omitempty"`
}

// DecodeEnvelope parses one inbound frame. Any failure wraps ErrMalformedMessage.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	if !env.Type.known() {
		return Envelope{}, fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, env.Type)
	}
	return env, nil
}

// NewEnvelope builds a server message whose data is v encoded as JSON.
func NewEnvelope(t MessageType, v any) (Envelope, error) {
	env := Envelope{Type: t}
	if v == nil {
		return env, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, err
	}
	env.Data = b
	return env, nil
}

// Encode writes the routing fields as JSON and appends Data exactly as it
// arrived. Data must already be valid JSON.
func (e Envelope) Encode() (Frame, error) {
	data := e.Data
	e.Data = nil

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return nil, err
	}
	head := bytes.TrimRight(buf.Bytes(), "\n")
	if len(data) == 0 {
		return Frame(head), nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: data is not valid JSON", ErrMalformedMessage)
	}

	out := make([]byte, 0, len(head)+len(data)+len(`,"data":`))
	out = append(out, head[:len(head)-1]...)
	out = append(out, `,"data":`...)
	out = append(out, data...)
	out = append(out, '}')
	return Frame(out), nil
}
