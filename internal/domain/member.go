package domain

// Presence is the last status a member reported about its own media.
type Presence struct {
	Muted    bool `json:"muted"`
	VideoOff bool `json:"videoOff"`
}

// Member represents user's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	User     *User
	Presence Presence
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(user *User) *Member {
	return &Member{User: user}
}
