package orch

import (
	"context"
	"errors"

	"github.com/dkeye/Mesh/internal/core"
	"github.com/dkeye/Mesh/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) handleJoin(ctx context.Context, sess core.MemberSession, env core.Envelope) {
	sid := sess.ID()
	if current, ok := sess.Room(); ok {
		log.Warn().Str("module", "orch").Str("sid", string(sid)).Str("room", string(current)).Msg("join while already in a room")
		o.sendError(sess, core.ErrCodeAlreadyIn)
		return
	}
	if !o.JoinLimiter.Allow(string(sid)) {
		log.Warn().Str("module", "orch").Str("sid", string(sid)).Msg("join rate limited")
		o.sendError(sess, core.ErrCodeRateLimited)
		return
	}

	room, err := o.Rooms.GetRoom(ctx, env.RoomID)
	if errors.Is(err, core.ErrRoomNotFound) {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(env.RoomID)).Msg("join unknown room")
		o.sendError(sess, core.ErrCodeRoomNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("room", string(env.RoomID)).Msg("room lookup")
		o.sendError(sess, core.ErrCodeUnavailable)
		return
	}

	// Not visible to other goroutines until admitted.
	if env.Username != "" {
		if err := sess.Meta().User.SetUsername(env.Username); err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("rename on join")
		}
	}
	username := sess.Meta().User.Username

	adm, err := o.Members.Admit(room, sess, func(peers []domain.ClientID) (core.Frame, core.Frame) {
		peersMsg, _ := core.NewEnvelope(core.MsgPeers, peers)
		peersMsg.RoomID = room.Code
		newPeer, _ := core.NewEnvelope(core.MsgNewPeer, sid)
		newPeer.RoomID = room.Code
		newPeer.Username = username
		toSelf, _ := peersMsg.Encode()
		toOthers, _ := newPeer.Encode()
		return toSelf, toOthers
	})
	if errors.Is(err, core.ErrRoomFull) {
		o.sendError(sess, core.ErrCodeRoomFull)
		sess.Signal().Close()
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("room", string(room.Code)).Msg("admit")
		o.sendError(sess, core.ErrCodeUnavailable)
		return
	}

	sess.EnterRoom(room.Code)

	// The janitor may have expired the room between the lookup and Admit.
	// It evaluates occupancy and deletes under the store lock, so once we
	// are admitted a second lookup either sees the deletion or the room is
	// kept for as long as we stay.
	if _, err := o.Rooms.GetRoom(ctx, room.Code); errors.Is(err, core.ErrRoomNotFound) {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room.Code)).Msg("room expired during join")
		o.leaveRoom(sess)
		o.sendError(sess, core.ErrCodeRoomNotFound)
		return
	}

	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room.Code)).Int("peers", len(adm.Peers)).Msg("joined")
	o.applyPolicy(room.Code, adm.Announced)
}

func (o *Orchestrator) handleLeave(sess core.MemberSession) {
	if !o.leaveRoom(sess) {
		o.sendError(sess, core.ErrCodeNotJoined)
	}
}

// leaveRoom removes sess from its room and tells the remaining members.
// Only the first call after a join does anything.
func (o *Orchestrator) leaveRoom(sess core.MemberSession) bool {
	code, ok := sess.LeaveRoom()
	if !ok {
		return false
	}
	sid := sess.ID()
	farewell, _ := core.NewEnvelope(core.MsgPeerLeave, sid)
	farewell.RoomID = code
	frame, err := farewell.Encode()
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode peer-leave")
	}
	res, removed := o.Members.Remove(code, sid, frame)
	if !removed {
		return false
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(code)).Int("notified", res.SendTo).Msg("left")
	o.applyPolicy(code, res)
	return true
}
