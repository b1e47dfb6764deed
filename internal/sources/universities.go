package sources

import (
	"context"
	"net/url"
	"strings"

	"datagen-backend/internal/model"
)

// Universities 按国家检索高校
type Universities struct {
	client  *Client
	baseURL string
}

func NewUniversities(client *Client, baseURL string) *Universities {
	return &Universities{client: client, baseURL: baseURL}
}

func (a *Universities) Name() string { return "Hipolabs Universities API" }

const defaultUniversityCountry = "United States"

var educationStopWords = map[string]bool{
	"university": true, "universities": true, "college": true, "colleges": true, "school": true,
	"schools": true, "education": true, "educational": true, "list": true, "data": true,
	"institutions": true, "higher": true, "top": true, "show": true, "with": true, "their": true,
	"names": true, "websites": true, "domains": true, "student": true, "students": true,
}

type university struct {
	Name          string   `json:"name"`
	Country       string   `json:"country"`
	AlphaTwoCode  string   `json:"alpha_two_code"`
	StateProvince *string  `json:"state-province"`
	WebPages      []string `json:"web_pages"`
	Domains       []string `json:"domains"`
}

// countryOf 取第一个不是停用词的关键词作为国家
func countryOf(keywords []string) string {
	for _, k := range keywords {
		if !educationStopWords[strings.ToLower(k)] {
			return k
		}
	}
	return defaultUniversityCountry
}

func (a *Universities) Fetch(ctx context.Context, q Query) (*model.GenerationResult, error) {
	var unis []university
	query := url.Values{"country": {countryOf(q.Keywords)}}
	if err := a.client.GetJSON(ctx, a.baseURL, "/search", query, &unis); err != nil {
		return nil, sourceErr(a.Name(), err)
	}
	// 猜出来的国家没有结果时退回默认国家
	if len(unis) == 0 && query.Get("country") != defaultUniversityCountry {
		query.Set("country", defaultUniversityCountry)
		if err := a.client.GetJSON(ctx, a.baseURL, "/search", query, &unis); err != nil {
			return nil, sourceErr(a.Name(), err)
		}
	}

	rows := make([]*model.Row, 0, len(unis))
	for _, u := range unis {
		var state interface{}
		if u.StateProvince != nil {
			state = *u.StateProvince
		}
		rows = append(rows, model.RowFromPairs(
			"name", u.Name,
			"country", u.Country,
			"country_code", u.AlphaTwoCode,
			"state_province", state,
			"website", first(u.WebPages),
			"domain", first(u.Domains),
		))
	}
	return result(a.Name(), rows, q.Rows)
}

func first(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[0]
}
