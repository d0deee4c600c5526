// Package orch is the relay protocol engine: it turns inbound signaling
// messages into membership changes and relayed frames.
package orch

import (
	"context"
	"errors"

	"github.com/dkeye/Mesh/internal/app"
	"github.com/dkeye/Mesh/internal/core"
	"github.com/dkeye/Mesh/internal/domain"
	"github.com/rs/zerolog/log"
)

type Orchestrator struct {
	Registry *app.Registry
	Rooms    *app.Directory
	Members  *app.Membership
	Policy   app.Policy
	// JoinLimiter throttles join attempts per session. Nil disables it.
	JoinLimiter *app.RateLimiter
}

// Connect registers a new transport, assigns it a fresh identity and pushes
// the init message carrying that identity.
func (o *Orchestrator) Connect(conn core.SignalConnection, username string, cancel context.CancelFunc) core.MemberSession {
	var sess core.MemberSession
	for {
		id := domain.NewClientID()
		user, err := domain.NewUser(id, username)
		if err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("username", username).Msg("invalid username, using default")
			user, _ = domain.NewUser(id, "")
		}
		sess = core.NewMemberSession(domain.NewMember(user), conn)
		if o.Registry.Bind(sess, cancel) {
			break
		}
	}

	hello, _ := core.NewEnvelope(core.MsgInit, sess.ID())
	o.send(sess, hello)
	return sess
}

// Disconnect releases everything held by sess. Calling it more than once is safe.
func (o *Orchestrator) Disconnect(sess core.MemberSession) {
	o.leaveRoom(sess)
	o.Registry.Unbind(sess.ID())
	o.JoinLimiter.Forget(string(sess.ID()))
}

// HandleFrame processes one inbound frame of sess. Frames of one session must
// be handled sequentially.
func (o *Orchestrator) HandleFrame(ctx context.Context, sess core.MemberSession, data []byte) {
	env, err := core.DecodeEnvelope(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sess.ID())).Msg("dropping message")
		return
	}

	switch {
	case env.Type == core.MsgJoin:
		o.handleJoin(ctx, sess, env)
	case env.Type == core.MsgLeave:
		o.handleLeave(sess)
	case env.Type.Handshake():
		o.handleRelay(sess, env)
	case env.Type == core.MsgStatusUpdate:
		o.handleStatus(sess, env)
	case env.Type == core.MsgPing:
		o.send(sess, core.Envelope{Type: core.MsgPong})
	default:
		log.Warn().Str("module", "orch").Str("sid", string(sess.ID())).Str("type", string(env.Type)).Msg("unexpected message from client")
	}
}

func (o *Orchestrator) send(sess core.MemberSession, env core.Envelope) {
	frame, err := env.Encode()
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode message")
		return
	}
	if err := sess.Signal().TrySend(frame); err != nil && !errors.Is(err, core.ErrConnClosed) {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sess.ID())).Str("type", string(env.Type)).Msg("send")
	}
}

func (o *Orchestrator) sendError(sess core.MemberSession, code string) {
	env, _ := core.NewEnvelope(core.MsgError, code)
	o.send(sess, env)
}

// applyPolicy hands members that could not keep up to the backpressure policy.
func (o *Orchestrator) applyPolicy(room domain.RoomCode, res core.PublishResult) {
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(room, slow) {
		case app.KickMember:
			log.Warn().Str("module", "orch").Str("room", string(room)).Str("sid", string(slow.ID())).Msg("kicking slow member")
			o.Kick(slow)
		case app.NoAction:
		}
	}
}

// Kick drops the connection of sess without flushing its queue. Its read
// loop then runs the regular disconnect path.
func (o *Orchestrator) Kick(sess core.MemberSession) {
	o.Registry.Cancel(sess.ID())
	sess.Signal().Close()
}
