package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"datagen-backend/internal/model"

	"github.com/spf13/cast"
)

// OpenSky 当前在空中的航班状态向量
type OpenSky struct {
	client  *Client
	baseURL string
}

func NewOpenSky(client *Client, baseURL string) *OpenSky {
	return &OpenSky{client: client, baseURL: baseURL}
}

func (a *OpenSky) Name() string { return "OpenSky Network API" }

// 状态向量是定长数组，下标含义见 OpenSky REST 文档
const (
	stateICAO24 = iota
	stateCallsign
	stateOriginCountry
	stateTimePosition
	stateLastContact
	stateLongitude
	stateLatitude
	stateBaroAltitude
	stateOnGround
	stateVelocity
	stateTrueTrack
	stateVerticalRate
	stateMinFields
)

type openSkyStates struct {
	Time   int64           `json:"time"`
	States [][]interface{} `json:"states"`
}

func (a *OpenSky) Fetch(ctx context.Context, q Query) (*model.GenerationResult, error) {
	var resp openSkyStates
	if err := a.client.GetJSON(ctx, a.baseURL, "/api/states/all", nil, &resp); err != nil {
		return nil, sourceErr(a.Name(), err)
	}

	rows := make([]*model.Row, 0, q.Rows)
	for _, s := range resp.States {
		if len(s) < stateMinFields {
			continue
		}
		onGround := cast.ToBool(s[stateOnGround])
		if onGround {
			continue
		}
		rows = append(rows, model.RowFromPairs(
			"icao24", cast.ToString(s[stateICAO24]),
			"callsign", strings.TrimSpace(cast.ToString(s[stateCallsign])),
			"origin_country", cast.ToString(s[stateOriginCountry]),
			"longitude", nullableFloat(s[stateLongitude]),
			"latitude", nullableFloat(s[stateLatitude]),
			"altitude_m", nullableFloat(s[stateBaroAltitude]),
			"velocity_ms", nullableFloat(s[stateVelocity]),
			"heading_deg", nullableFloat(s[stateTrueTrack]),
			"vertical_rate_ms", nullableFloat(s[stateVerticalRate]),
			"last_contact", unixTime(s[stateLastContact]),
		))
		if len(rows) == q.Rows {
			break
		}
	}
	if len(rows) == 0 && len(resp.States) > 0 {
		return nil, sourceErr(a.Name(), fmt.Errorf("no airborne aircraft in %d state vectors", len(resp.States)))
	}
	return result(a.Name(), rows, q.Rows)
}

func unixTime(v interface{}) interface{} {
	sec, err := cast.ToInt64E(v)
	if err != nil || sec <= 0 {
		return nil
	}
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
