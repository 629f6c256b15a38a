// Package seed reads lineup fixtures from YAML or JSON files.
//
// A seed file holds a list of lineups:
//
//	lineups:
//	  - team_id: home
//	    placements:
//	      - player_id: p1
//	        x: 0.5
//	        y: 0.9
//	        is_captain: true
//	        display_name: Alex Keeper
package seed

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/okian/formation/internal/domain/model"
)

type fileLineup struct {
	TeamID     string          `koanf:"team_id"`
	Placements []filePlacement `koanf:"placements"`
}

type filePlacement struct {
	PlayerID      string  `koanf:"player_id"`
	X             float64 `koanf:"x"`
	Y             float64 `koanf:"y"`
	IsCaptain     bool    `koanf:"is_captain"`
	DisplayName   string  `koanf:"display_name"`
	PhotoRef      string  `koanf:"photo_ref"`
	PositionLabel string  `koanf:"position_label"`
	JerseyNumber  int     `koanf:"jersey_number"`
}

// Load parses path and returns its lineups in file order. The parser is
// picked from the extension: .yaml, .yml or .json.
func Load(_ context.Context, path string) ([]model.Lineup, error) {
	parser, err := parserFor(path)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrLoadSeed, path, err)
	}

	var raw []fileLineup
	if err := k.UnmarshalWithConf("lineups", &raw, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrLoadSeed, path, err)
	}

	out := make([]model.Lineup, 0, len(raw))
	for i, fl := range raw {
		if strings.TrimSpace(fl.TeamID) == "" {
			return nil, fmt.Errorf("%w: lineup %d has no team_id", ErrInvalidSeed, i)
		}
		l := model.Lineup{TeamID: fl.TeamID, Placements: make([]model.PlayerPlacement, 0, len(fl.Placements))}
		for _, fp := range fl.Placements {
			l.Placements = append(l.Placements, model.PlayerPlacement{
				PlayerID:      fp.PlayerID,
				X:             fp.X,
				Y:             fp.Y,
				IsCaptain:     fp.IsCaptain,
				DisplayName:   fp.DisplayName,
				PhotoRef:      fp.PhotoRef,
				PositionLabel: fp.PositionLabel,
				JerseyNumber:  fp.JerseyNumber,
			})
		}
		out = append(out, l)
	}
	return out, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}
