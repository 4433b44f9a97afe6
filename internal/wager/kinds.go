package wager

import "github.com/Somebody914/Wager-Bot/internal/store"

// Kind is the match format of a wager. Exactly one of the optional fields is
// meaningful, selected by Type.
type Kind struct {
	Type store.WagerKind

	// Team only.
	TeamID   string
	TeamSize int

	// OpenRoster only.
	SeatsPerSide int
}

func Solo() Kind {
	return Kind{Type: store.KindSolo, TeamSize: 1}
}

func Team(teamID string, size int) Kind {
	return Kind{Type: store.KindTeam, TeamID: teamID, TeamSize: size}
}

func OpenRoster(seatsPerSide int) Kind {
	return Kind{Type: store.KindOpenRoster, SeatsPerSide: seatsPerSide}
}

func (k Kind) validate() error {
	switch k.Type {
	case store.KindSolo:
		return nil
	case store.KindTeam:
		if k.TeamID == "" {
			return &ValidationError{Field: "team_id", Message: "required for team wagers"}
		}
		if k.TeamSize < 2 {
			return &ValidationError{Field: "team_size", Message: "must be at least 2"}
		}
		return nil
	case store.KindOpenRoster:
		if k.SeatsPerSide < 1 {
			return &ValidationError{Field: "seats_per_side", Message: "must be at least 1"}
		}
		return nil
	default:
		return &ValidationError{Field: "kind", Message: "unknown kind"}
	}
}

// size reported in the wagers.team_size column: players per side.
func (k Kind) sideSize() int {
	switch k.Type {
	case store.KindTeam:
		return k.TeamSize
	case store.KindOpenRoster:
		return k.SeatsPerSide
	default:
		return 1
	}
}

func kindOf(w *store.Wager) Kind {
	switch w.Kind {
	case store.KindTeam:
		return Team(w.TeamID, w.TeamSize)
	case store.KindOpenRoster:
		return OpenRoster(w.TeamSize)
	default:
		return Solo()
	}
}
