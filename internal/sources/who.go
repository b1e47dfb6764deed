package sources

import (
	"context"
	"net/url"

	"datagen-backend/internal/model"

	"github.com/spf13/cast"
)

// WHO 全球卫生观察站的出生时预期寿命
type WHO struct {
	client  *Client
	baseURL string
}

func NewWHO(client *Client, baseURL string) *WHO {
	return &WHO{client: client, baseURL: baseURL}
}

func (a *WHO) Name() string { return "WHO Global Health Observatory API" }

const whoLifeExpectancy = "WHOSIS_000001"

type whoResponse struct {
	Value []struct {
		SpatialDimType string      `json:"SpatialDimType"`
		SpatialDim     string      `json:"SpatialDim"`
		TimeDim        interface{} `json:"TimeDim"`
		Dim1           string      `json:"Dim1"`
		NumericValue   interface{} `json:"NumericValue"`
		Low            interface{} `json:"Low"`
		High           interface{} `json:"High"`
	} `json:"value"`
}

var whoSexLabels = map[string]string{
	"SEX_BTSX": "both",
	"SEX_MLE":  "male",
	"SEX_FMLE": "female",
}

func (a *WHO) Fetch(ctx context.Context, q Query) (*model.GenerationResult, error) {
	query := url.Values{}
	query.Set("$filter", "SpatialDimType eq 'COUNTRY' and Dim1 eq 'SEX_BTSX'")
	query.Set("$orderby", "TimeDim desc")
	query.Set("$top", cast.ToString(q.Rows))

	var resp whoResponse
	if err := a.client.GetJSON(ctx, a.baseURL, "/api/"+whoLifeExpectancy, query, &resp); err != nil {
		return nil, sourceErr(a.Name(), err)
	}

	rows := make([]*model.Row, 0, len(resp.Value))
	for _, v := range resp.Value {
		if v.NumericValue == nil {
			continue
		}
		sex := whoSexLabels[v.Dim1]
		if sex == "" {
			sex = v.Dim1
		}
		rows = append(rows, model.RowFromPairs(
			"country_code", v.SpatialDim,
			"year", cast.ToInt(v.TimeDim),
			"sex", sex,
			"life_expectancy_years", cast.ToFloat64(v.NumericValue),
			"low_estimate", nullableFloat(v.Low),
			"high_estimate", nullableFloat(v.High),
		))
	}
	return result(a.Name(), rows, q.Rows)
}

func nullableFloat(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil
	}
	return f
}
