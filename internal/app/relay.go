package app

import (
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/event"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// ConnResolver is what the relay needs from the directory.
type ConnResolver interface {
	ConnOf(uid domain.UserID) (domain.ConnID, bool)
	ByConn(conn domain.ConnID) (domain.User, bool)
}

// CallTarget addresses the other party of a call, by uid or by connection.
type CallTarget struct {
	Conn domain.ConnID
	UID  domain.UserID
}

// CallPayload is what the callee receives. From carries the caller's
// socketId so the callee can address its reply.
type CallPayload struct {
	From      domain.User                `json:"from"`
	Offer     *webrtc.SessionDescription `json:"offer,omitempty"`
	Answer    *webrtc.SessionDescription `json:"answer,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
}

// SignalRelay forwards call setup between two connections. It keeps no
// state; SDP and candidates pass through untouched.
type SignalRelay struct {
	users     ConnResolver
	transport core.Transport
}

func NewSignalRelay(users ConnResolver, transport core.Transport) *SignalRelay {
	return &SignalRelay{users: users, transport: transport}
}

func (r *SignalRelay) resolve(t CallTarget) (domain.ConnID, bool) {
	if t.UID != "" {
		return r.users.ConnOf(t.UID)
	}
	if t.Conn != "" && r.transport.Has(t.Conn) {
		return t.Conn, true
	}
	return "", false
}

func (r *SignalRelay) from(conn domain.ConnID) domain.User {
	u, _ := r.users.ByConn(conn)
	u.ConnID = conn
	return u
}

// forward reports whether the target resolved. Unresolvable targets are
// dropped without telling the sender.
func (r *SignalRelay) forward(from domain.ConnID, t CallTarget, name string, p CallPayload) bool {
	to, ok := r.resolve(t)
	if !ok {
		log.Debug().
			Str("module", "app.relay").
			Str("event", name).
			Str("to", string(t.Conn)).
			Str("to_uid", string(t.UID)).
			Msg("target unresolved, dropped")
		return false
	}
	p.From = r.from(from)
	r.transport.Send(to, core.Event{Type: name, Data: p})
	return true
}

func (r *SignalRelay) InitiateCall(from domain.ConnID, t CallTarget, offer webrtc.SessionDescription) bool {
	return r.forward(from, t, event.IncomingCall, CallPayload{Offer: &offer})
}

func (r *SignalRelay) AnswerCall(from domain.ConnID, t CallTarget, answer webrtc.SessionDescription) bool {
	return r.forward(from, t, event.CallAnswered, CallPayload{Answer: &answer})
}

// RelayICECandidate forwards only non-empty candidates.
func (r *SignalRelay) RelayICECandidate(from domain.ConnID, t CallTarget, c *webrtc.ICECandidateInit) bool {
	if c == nil || c.Candidate == "" {
		return false
	}
	return r.forward(from, t, event.CallCandidate, CallPayload{Candidate: c})
}

func (r *SignalRelay) RejectCall(from domain.ConnID, t CallTarget) bool {
	return r.forward(from, t, event.CallRejected, CallPayload{})
}

func (r *SignalRelay) EndCall(from domain.ConnID, t CallTarget) bool {
	return r.forward(from, t, event.CallEnded, CallPayload{})
}
