package nhl

// Schedule is the response of GET /schedule, one entry per calendar date in
// the requested range.
type Schedule struct {
	Dates []ScheduleDate `json:"dates"`
}

type ScheduleDate struct {
	Date  string `json:"date"`
	Games []Game `json:"games"`
}

type Game struct {
	GamePk int64 `json:"gamePk"`
}

// BoxScore is the response of GET /game/{id}/boxscore. Player records are
// left as raw maps: the schema varies between skaters and goalies and
// carries optional fields, flattening downstream deals with the shape.
type BoxScore struct {
	Teams map[string]BoxScoreTeam `json:"teams"`
}

type BoxScoreTeam struct {
	Players map[string]map[string]any `json:"players"`
}
