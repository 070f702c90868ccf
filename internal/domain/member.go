package domain

// Member is one entry of a room's presence list. ConnID points at a single
// representative connection when the identity holds several.
type Member struct {
	Identity string `json:"identity"`
	ConnID   string `json:"connectionId"`
}

type PresenceAction string

const (
	PresenceJoined PresenceAction = "joined"
	PresenceLeft   PresenceAction = "left"
)
