package domain

// DestKind discriminates the two delivery targets.
type DestKind int

const (
	DestUser DestKind = iota
	DestRoom
)

// Destination is an explicitly tagged delivery target. Callers state
// whether they address a user or a room; nothing is inferred from the
// shape of the id.
type Destination struct {
	Kind DestKind
	ID   string
}

func UserDest(id UserID) Destination { return Destination{Kind: DestUser, ID: string(id)} }
func RoomDest(id RoomID) Destination { return Destination{Kind: DestRoom, ID: string(id)} }

// ParseDest interprets a bare destination id arriving from producers
// that still encode rooms by prefix. Used only at the queue boundary;
// internal callers construct tagged destinations directly.
func ParseDest(id string) Destination {
	if _, ok := RoomTypeOf(RoomID(id)); ok {
		return RoomDest(RoomID(id))
	}
	return UserDest(UserID(id))
}
