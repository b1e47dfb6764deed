package sources

import (
	"context"
	"net/url"
	"strings"

	"datagen-backend/internal/model"

	"github.com/spf13/cast"
)

// TheSportsDB 某个联赛的全部球队
type TheSportsDB struct {
	client  *Client
	baseURL string
}

func NewTheSportsDB(client *Client, baseURL string) *TheSportsDB {
	return &TheSportsDB{client: client, baseURL: baseURL}
}

func (a *TheSportsDB) Name() string { return "TheSportsDB API" }

const defaultLeague = "English Premier League"

// 请求中出现的词到联赛名，先命中者生效
var leagueHints = []struct {
	hint   string
	league string
}{
	{"nba", "NBA"},
	{"basketball", "NBA"},
	{"nfl", "NFL"},
	{"american football", "NFL"},
	{"baseball", "MLB"},
	{"mlb", "MLB"},
	{"hockey", "NHL"},
	{"nhl", "NHL"},
	{"la liga", "Spanish La Liga"},
	{"spain", "Spanish La Liga"},
	{"bundesliga", "German Bundesliga"},
	{"germany", "German Bundesliga"},
	{"serie a", "Italian Serie A"},
	{"italy", "Italian Serie A"},
	{"ligue 1", "French Ligue 1"},
	{"france", "French Ligue 1"},
	{"mls", "American Major League Soccer"},
}

func leagueFor(request string) string {
	lower := strings.ToLower(request)
	for _, h := range leagueHints {
		if strings.Contains(lower, h.hint) {
			return h.league
		}
	}
	return defaultLeague
}

type sportsTeams struct {
	Teams []struct {
		ID         string      `json:"idTeam"`
		Team       string      `json:"strTeam"`
		ShortName  string      `json:"strTeamShort"`
		League     string      `json:"strLeague"`
		Country    string      `json:"strCountry"`
		Stadium    string      `json:"strStadium"`
		Location   string      `json:"strLocation"`
		Capacity   interface{} `json:"intStadiumCapacity"`
		FormedYear interface{} `json:"intFormedYear"`
		Website    string      `json:"strWebsite"`
	} `json:"teams"`
}

func (a *TheSportsDB) Fetch(ctx context.Context, q Query) (*model.GenerationResult, error) {
	var resp sportsTeams
	query := url.Values{"l": {leagueFor(q.Request)}}
	if err := a.client.GetJSON(ctx, a.baseURL, "/api/v1/json/3/search_all_teams.php", query, &resp); err != nil {
		return nil, sourceErr(a.Name(), err)
	}

	rows := make([]*model.Row, 0, len(resp.Teams))
	for _, t := range resp.Teams {
		rows = append(rows, model.RowFromPairs(
			"id", t.ID,
			"team", t.Team,
			"short_name", t.ShortName,
			"league", t.League,
			"country", t.Country,
			"stadium", t.Stadium,
			"location", t.Location,
			"stadium_capacity", cast.ToInt(t.Capacity),
			"formed_year", cast.ToInt(t.FormedYear),
			"website", t.Website,
		))
	}
	return result(a.Name(), rows, q.Rows)
}
