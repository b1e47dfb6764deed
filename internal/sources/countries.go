package sources

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"datagen-backend/internal/model"
)

// RESTCountries 各国人口、面积和首都，按人口降序
type RESTCountries struct {
	client  *Client
	baseURL string
}

func NewRESTCountries(client *Client, baseURL string) *RESTCountries {
	return &RESTCountries{client: client, baseURL: baseURL}
}

func (a *RESTCountries) Name() string { return "REST Countries API" }

type restCountry struct {
	Name struct {
		Common   string `json:"common"`
		Official string `json:"official"`
	} `json:"name"`
	CCA3       string   `json:"cca3"`
	Capital    []string `json:"capital"`
	Region     string   `json:"region"`
	Subregion  string   `json:"subregion"`
	Population int64    `json:"population"`
	Area       float64  `json:"area"`
}

func (a *RESTCountries) Fetch(ctx context.Context, q Query) (*model.GenerationResult, error) {
	query := url.Values{"fields": {"name,cca3,capital,region,subregion,population,area"}}
	var countries []restCountry
	if err := a.client.GetJSON(ctx, a.baseURL, "/v3.1/all", query, &countries); err != nil {
		return nil, sourceErr(a.Name(), err)
	}

	sort.SliceStable(countries, func(i, j int) bool {
		return countries[i].Population > countries[j].Population
	})

	rows := make([]*model.Row, 0, len(countries))
	for _, c := range countries {
		density := 0.0
		if c.Area > 0 {
			density = float64(c.Population) / c.Area
		}
		rows = append(rows, model.RowFromPairs(
			"country", c.Name.Common,
			"official_name", c.Name.Official,
			"code", c.CCA3,
			"capital", strings.Join(c.Capital, "; "),
			"region", c.Region,
			"subregion", c.Subregion,
			"population", c.Population,
			"area_km2", c.Area,
			"density_per_km2", density,
		))
	}
	return result(a.Name(), rows, q.Rows)
}
