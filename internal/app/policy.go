package app

import (
	"github.com/dkeye/Mesh/internal/core"
	"github.com/dkeye/Mesh/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
)

// Policy decides what happens to a member whose outbound queue is full.
type Policy interface {
	OnBackPressure(room domain.RoomCode, member core.MemberSession) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.RoomCode, core.MemberSession) BackpressureAction {
	return KickMember
}

// TolerantPolicy never kicks; the frame is simply lost for the slow member.
type TolerantPolicy struct{}

func (TolerantPolicy) OnBackPressure(domain.RoomCode, core.MemberSession) BackpressureAction {
	return NoAction
}
