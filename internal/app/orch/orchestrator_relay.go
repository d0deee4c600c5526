package orch

import (
	"encoding/json"

	"github.com/dkeye/Mesh/internal/core"
	"github.com/dkeye/Mesh/internal/domain"
	"github.com/rs/zerolog/log"
)

// handleRelay forwards a handshake message. The payload is never decoded.
func (o *Orchestrator) handleRelay(sess core.MemberSession, env core.Envelope) {
	sid := sess.ID()
	code, ok := sess.Room()
	if !ok {
		o.sendError(sess, core.ErrCodeNotJoined)
		return
	}
	if env.RoomID != "" && env.RoomID != code {
		log.Warn().Str("module", "orch").Str("sid", string(sid)).Str("room", string(env.RoomID)).Msg("relay for foreign room dropped")
		return
	}
	if env.Target == sid {
		return
	}

	out := core.Envelope{
		Type:     env.Type,
		RoomID:   code,
		Data:     env.Data,
		SenderID: sid,
		Target:   env.Target,
	}
	frame, err := out.Encode()
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("encode relay")
		return
	}

	if env.Target != "" {
		res, ok := o.Members.Unicast(code, env.Target, frame)
		if !ok {
			log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("target", string(env.Target)).Msg("relay target gone")
			return
		}
		o.applyPolicy(code, res)
		return
	}
	o.applyPolicy(code, o.Members.Broadcast(code, sid, frame))
}

func (o *Orchestrator) handleStatus(sess core.MemberSession, env core.Envelope) {
	sid := sess.ID()
	code, ok := sess.Room()
	if !ok {
		o.sendError(sess, core.ErrCodeNotJoined)
		return
	}
	var p domain.Presence
	if err := json.Unmarshal(env.Data, &p); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("bad status payload")
		return
	}
	sess.SetPresence(p)

	out := core.Envelope{
		Type:     core.MsgStatusUpdate,
		RoomID:   code,
		Data:     env.Data,
		SenderID: sid,
		Username: sess.Meta().User.Username,
	}
	frame, err := out.Encode()
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Msg("encode status")
		return
	}
	o.applyPolicy(code, o.Members.Broadcast(code, sid, frame))
}
