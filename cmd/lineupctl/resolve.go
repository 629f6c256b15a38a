package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/okian/formation/internal/domain/model"
)

// similarityThreshold is the minimum Levenshtein similarity for a typo match.
const similarityThreshold = 0.7

var (
	errNoMatch   = errors.New("no player matches")
	errAmbiguous = errors.New("player name is ambiguous")
)

// resolvePlayer finds the placement query refers to: a player ID, a display
// name, a fragment of one display name, or a close misspelling of one.
func resolvePlayer(l model.Lineup, query string) (model.PlayerPlacement, error) {
	query = strings.TrimSpace(query)
	if i := l.Index(query); i >= 0 {
		return l.Placements[i], nil
	}

	names := make([]string, len(l.Placements))
	for i, p := range l.Placements {
		names[i] = p.DisplayName
		if strings.EqualFold(p.DisplayName, query) {
			return p, nil
		}
	}

	ranks := fuzzy.RankFindNormalizedFold(query, names)
	switch len(ranks) {
	case 0:
	case 1:
		return l.Placements[ranks[0].OriginalIndex], nil
	default:
		sort.Sort(ranks)
		candidates := make([]string, len(ranks))
		for i, r := range ranks {
			candidates[i] = fmt.Sprintf("%s (%s)", r.Target, l.Placements[r.OriginalIndex].PlayerID)
		}
		return model.PlayerPlacement{}, fmt.Errorf("%w: %q matches %s", errAmbiguous, query, strings.Join(candidates, ", "))
	}

	best, bestScore := -1, 0.0
	lower := strings.ToLower(query)
	for i, name := range names {
		full := strings.ToLower(name)
		maxLen := float64(max(len(lower), len(full)))
		if maxLen == 0 {
			continue
		}
		similarity := 1 - float64(fuzzy.LevenshteinDistance(lower, full))/maxLen
		if similarity > similarityThreshold && similarity > bestScore {
			best, bestScore = i, similarity
		}
	}
	if best < 0 {
		return model.PlayerPlacement{}, fmt.Errorf("%w: %q", errNoMatch, query)
	}
	return l.Placements[best], nil
}
