// Package types contains the JSON wire shapes shared by the lineup API and
// its HTTP client.
package types

import "github.com/okian/formation/internal/domain/model"

// Placement is one player's placement as returned by GET /teams/{id}/lineup.
type Placement struct {
	PlayerID      string  `json:"player_id"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	IsCaptain     bool    `json:"is_captain"`
	DisplayName   string  `json:"display_name"`
	PhotoRef      string  `json:"photo_ref,omitempty"`
	PositionLabel string  `json:"position_label"`
	JerseyNumber  int     `json:"jersey_number"`
	Version       uint64  `json:"version"`
}

// Lineup is the response body of GET /teams/{id}/lineup.
type Lineup struct {
	TeamID     string      `json:"team_id"`
	Placements []Placement `json:"placements"`
}

// PlacementUpdate is the request body of PUT /players/{id}/placement.
type PlacementUpdate struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Version uint64  `json:"version"`
}

// PlacementAck is the response body of a successful placement write.
type PlacementAck struct {
	PlayerID string  `json:"player_id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Version  uint64  `json:"version"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FromModel converts a domain lineup to its wire shape.
func FromModel(l model.Lineup) Lineup {
	out := Lineup{TeamID: l.TeamID, Placements: make([]Placement, len(l.Placements))}
	for i, p := range l.Placements {
		out.Placements[i] = Placement{
			PlayerID:      p.PlayerID,
			X:             p.X,
			Y:             p.Y,
			IsCaptain:     p.IsCaptain,
			DisplayName:   p.DisplayName,
			PhotoRef:      p.PhotoRef,
			PositionLabel: p.PositionLabel,
			JerseyNumber:  p.JerseyNumber,
			Version:       p.Version,
		}
	}
	return out
}

// ToModel converts a wire lineup to the domain shape.
func (l Lineup) ToModel() model.Lineup {
	out := model.Lineup{TeamID: l.TeamID, Placements: make([]model.PlayerPlacement, len(l.Placements))}
	for i, p := range l.Placements {
		out.Placements[i] = model.PlayerPlacement{
			PlayerID:      p.PlayerID,
			X:             p.X,
			Y:             p.Y,
			IsCaptain:     p.IsCaptain,
			DisplayName:   p.DisplayName,
			PhotoRef:      p.PhotoRef,
			PositionLabel: p.PositionLabel,
			JerseyNumber:  p.JerseyNumber,
			Version:       p.Version,
		}
	}
	return out
}
