package sources

import (
	"context"
	"net/url"
	"strconv"

	"datagen-backend/internal/model"
	"datagen-backend/pkg/logger"

	"github.com/sourcegraph/conc/iter"
	"github.com/spf13/cast"
)

const (
	placeholderValue  = "N/A"
	statusOK          = "ok"
	statusUnavailable = "unavailable"
	maxCityRequests   = 8
)

type city struct {
	Name      string
	Country   string
	Latitude  float64
	Longitude float64
}

// 逐城市查询的城市列表，顺序即输出顺序
var worldCities = []city{
	{"New York", "United States", 40.7128, -74.0060},
	{"London", "United Kingdom", 51.5074, -0.1278},
	{"Tokyo", "Japan", 35.6762, 139.6503},
	{"Paris", "France", 48.8566, 2.3522},
	{"Sydney", "Australia", -33.8688, 151.2093},
	{"Beijing", "China", 39.9042, 116.4074},
	{"Mumbai", "India", 19.0760, 72.8777},
	{"Sao Paulo", "Brazil", -23.5505, -46.6333},
	{"Cairo", "Egypt", 30.0444, 31.2357},
	{"Moscow", "Russia", 55.7558, 37.6173},
	{"Los Angeles", "United States", 34.0522, -118.2437},
	{"Berlin", "Germany", 52.5200, 13.4050},
	{"Toronto", "Canada", 43.6532, -79.3832},
	{"Mexico City", "Mexico", 19.4326, -99.1332},
	{"Seoul", "South Korea", 37.5665, 126.9780},
	{"Singapore", "Singapore", 1.3521, 103.8198},
	{"Dubai", "United Arab Emirates", 25.2048, 55.2708},
	{"Istanbul", "Turkey", 41.0082, 28.9784},
	{"Lagos", "Nigeria", 6.5244, 3.3792},
	{"Buenos Aires", "Argentina", -34.6037, -58.3816},
	{"Jakarta", "Indonesia", -6.2088, 106.8456},
	{"Madrid", "Spain", 40.4168, -3.7038},
	{"Rome", "Italy", 41.9028, 12.4964},
	{"Bangkok", "Thailand", 13.7563, 100.5018},
	{"Nairobi", "Kenya", -1.2921, 36.8219},
	{"Johannesburg", "South Africa", -26.2041, 28.0473},
	{"Chicago", "United States", 41.8781, -87.6298},
	{"Stockholm", "Sweden", 59.3293, 18.0686},
	{"Lima", "Peru", -12.0464, -77.0428},
	{"Auckland", "New Zealand", -36.8485, 174.7633},
}

func citiesFor(rows int) []city {
	if rows <= 0 || rows > len(worldCities) {
		return worldCities
	}
	return worldCities[:rows]
}

func coords(c city) url.Values {
	return url.Values{
		"latitude":  {strconv.FormatFloat(c.Latitude, 'f', 4, 64)},
		"longitude": {strconv.FormatFloat(c.Longitude, 'f', 4, 64)},
	}
}

type openMeteoCurrent struct {
	Current map[string]interface{} `json:"current"`
}

// perCity 并发查询每个城市；单个城市失败时该行用占位值填充，行数和字段不变
func perCity(ctx context.Context, source string, cities []city, measures []string,
	fetch func(ctx context.Context, c city) (map[string]interface{}, error)) ([]*model.Row, error) {
	mapper := iter.Mapper[city, *model.Row]{MaxGoroutines: maxCityRequests}

	rows := mapper.Map(cities, func(c *city) *model.Row {
		row := model.RowFromPairs("city", c.Name, "country", c.Country, "latitude", c.Latitude, "longitude", c.Longitude)
		current, err := fetch(ctx, *c)
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"source": source,
				"city":   c.Name,
			}).Warnf("city lookup failed, using placeholder row: %v", err)
			for _, m := range measures {
				row.Set(m, placeholderValue)
			}
			row.Set("observed_at", placeholderValue)
			row.Set("status", statusUnavailable)
			return row
		}
		for _, m := range measures {
			if v, ok := current[m]; ok && v != nil {
				row.Set(m, cast.ToFloat64(v))
			} else {
				row.Set(m, nil)
			}
		}
		row.Set("observed_at", cast.ToString(current["time"]))
		row.Set("status", statusOK)
		return row
	})

	unavailable := 0
	for _, row := range rows {
		if v, _ := row.Get("status"); v == statusUnavailable {
			unavailable++
		}
	}
	// 全部城市都失败时不返回一整表占位值
	if len(rows) > 0 && unavailable == len(rows) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrAllItemsFailed
	}
	return rows, nil
}

// OpenMeteoWeather 主要城市的当前天气
type OpenMeteoWeather struct {
	client  *Client
	baseURL string
}

func NewOpenMeteoWeather(client *Client, baseURL string) *OpenMeteoWeather {
	return &OpenMeteoWeather{client: client, baseURL: baseURL}
}

func (a *OpenMeteoWeather) Name() string { return "Open-Meteo Weather API" }

var weatherMeasures = []string{"temperature_2m", "relative_humidity_2m", "apparent_temperature", "precipitation", "wind_speed_10m"}

func (a *OpenMeteoWeather) Fetch(ctx context.Context, q Query) (*model.GenerationResult, error) {
	rows, err := perCity(ctx, a.Name(), citiesFor(q.Rows), weatherMeasures,
		func(ctx context.Context, c city) (map[string]interface{}, error) {
			query := coords(c)
			query.Set("current", joinComma(weatherMeasures))
			query.Set("timezone", "UTC")
			var resp openMeteoCurrent
			if err := a.client.GetJSON(ctx, a.baseURL, "/v1/forecast", query, &resp); err != nil {
				return nil, err
			}
			return resp.Current, nil
		})
	if err != nil {
		return nil, sourceErr(a.Name(), err)
	}
	return result(a.Name(), rows, q.Rows)
}

// OpenMeteoAirQuality 主要城市的当前空气质量
type OpenMeteoAirQuality struct {
	client  *Client
	baseURL string
}

func NewOpenMeteoAirQuality(client *Client, baseURL string) *OpenMeteoAirQuality {
	return &OpenMeteoAirQuality{client: client, baseURL: baseURL}
}

func (a *OpenMeteoAirQuality) Name() string { return "Open-Meteo Air Quality API" }

var airQualityMeasures = []string{"us_aqi", "pm10", "pm2_5", "carbon_monoxide", "nitrogen_dioxide", "ozone"}

func (a *OpenMeteoAirQuality) Fetch(ctx context.Context, q Query) (*model.GenerationResult, error) {
	rows, err := perCity(ctx, a.Name(), citiesFor(q.Rows), airQualityMeasures,
		func(ctx context.Context, c city) (map[string]interface{}, error) {
			query := coords(c)
			query.Set("current", joinComma(airQualityMeasures))
			query.Set("timezone", "UTC")
			var resp openMeteoCurrent
			if err := a.client.GetJSON(ctx, a.baseURL, "/v1/air-quality", query, &resp); err != nil {
				return nil, err
			}
			return resp.Current, nil
		})
	if err != nil {
		return nil, sourceErr(a.Name(), err)
	}
	return result(a.Name(), rows, q.Rows)
}
