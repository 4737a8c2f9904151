package crawler

import (
	"sort"
	"strings"

	"nhlcrawl-backend/lib/nhl"
	"nhlcrawl-backend/lib/tabular"
)

const (
	sideHome = "home"
	sideAway = "away"

	sideColumn     = "side"
	columnPrefix   = "player_"
	positionGoalie = "Goalie"
)

var sideOrder = []string{sideHome, sideAway}

// BuildGameStats reshapes a raw box score into one flat row per non-goalie
// player across both sides, home rows first. Players within a side are
// visited in sorted-id order so that the same box score always produces the
// same table.
func BuildGameStats(box nhl.BoxScore) (*tabular.Table, error) {
	if box.Teams == nil {
		return nil, &MalformedResponseError{Missing: "teams"}
	}

	var records []map[string]any
	for _, side := range sideOrder {
		team, ok := box.Teams[side]
		if !ok {
			return nil, &MalformedResponseError{Missing: "teams." + side}
		}
		for _, id := range sortedPlayerIDs(team.Players) {
			player := team.Players[id]
			if isGoalie(player) {
				continue
			}
			record := flattenPlayer(player)
			record[sideColumn] = side
			records = append(records, record)
		}
	}

	return tabular.FromRecords(records), nil
}

// flattenPlayer applies the column rules: underscore-joined paths, the
// player_ prefix on every column, and no literal dots left in any name.
// The side column is injected afterwards and never carries the prefix.
func flattenPlayer(player map[string]any) map[string]any {
	flat := tabular.FlattenMap(player, "_")

	out := make(map[string]any, len(flat))
	for col, value := range flat {
		col = columnPrefix + col
		// source keys may themselves contain dots, the flattening
		// separator alone doesn't rule them out
		col = strings.ReplaceAll(col, ".", "_")
		out[col] = value
	}
	return out
}

func isGoalie(player map[string]any) bool {
	return nestedString(player, "position", "name") == positionGoalie ||
		nestedString(player, "person", "primaryPosition", "name") == positionGoalie
}

// nestedString walks a path of nested maps and returns the string leaf, or
// "" when any step is absent or the wrong shape.
func nestedString(m map[string]any, path ...string) string {
	var current any = m
	for _, key := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		current = node[key]
	}
	s, _ := current.(string)
	return s
}

func sortedPlayerIDs(players map[string]map[string]any) []string {
	ids := make([]string, 0, len(players))
	for id := range players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
