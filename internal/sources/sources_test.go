package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"datagen-backend/internal/apperr"
	"datagen-backend/internal/classifier"
	"datagen-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return NewClient(config.SourcesConfig{Timeout: 2 * time.Second})
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprint(w, body)
}

func TestCoinGeckoFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/coins/markets", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "5", r.URL.Query().Get("per_page"))
		coins := "["
		for i := 1; i <= 6; i++ {
			if i > 1 {
				coins += ","
			}
			coins += fmt.Sprintf(`{"id":"coin-%d","symbol":"c%d","name":"Coin %d","current_price":%d.5,"market_cap":%d000,"market_cap_rank":%d,"total_volume":10,"price_change_percentage_24h":-1.2,"last_updated":"2026-01-01T00:00:00Z"}`, i, i, i, i, i, i)
		}
		writeJSON(w, coins+"]")
	}))
	defer srv.Close()

	res, err := NewCoinGecko(newTestClient(), srv.URL).Fetch(context.Background(), Query{Rows: 5})
	require.NoError(t, err)

	assert.Equal(t, "CoinGecko API", res.Source)
	assert.Len(t, res.Data, 5)
	assert.Equal(t, []string{"rank", "id", "symbol", "name", "price_usd", "market_cap_usd", "volume_24h_usd", "change_24h_pct", "last_updated"}, []string(res.Fields))
	name, _ := res.Data[0].Get("name")
	assert.Equal(t, "Coin 1", name)
}

func TestFrankfurterSortsCurrencies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "USD", r.URL.Query().Get("from"))
		writeJSON(w, `{"amount":1,"base":"USD","date":"2026-01-02","rates":{"JPY":150.0,"EUR":0.9,"GBP":0.8}}`)
	}))
	defer srv.Close()

	res, err := NewFrankfurter(newTestClient(), srv.URL).Fetch(context.Background(), Query{Rows: 2})
	require.NoError(t, err)
	require.Len(t, res.Data, 2)
	first, _ := res.Data[0].Get("currency")
	second, _ := res.Data[1].Get("currency")
	assert.Equal(t, "EUR", first)
	assert.Equal(t, "GBP", second)
}

func TestOpenMeteoDegradesFailedCity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// London 的请求失败
		if r.URL.Query().Get("latitude") == "51.5074" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		writeJSON(w, `{"current":{"time":"2026-01-01T12:00","temperature_2m":21.5,"relative_humidity_2m":40,"apparent_temperature":20,"precipitation":0,"wind_speed_10m":12.3}}`)
	}))
	defer srv.Close()

	res, err := NewOpenMeteoWeather(newTestClient(), srv.URL).Fetch(context.Background(), Query{Rows: 3})
	require.NoError(t, err)
	require.Len(t, res.Data, 3)

	for _, row := range res.Data {
		assert.Equal(t, []string(res.Fields), row.Keys())
	}

	city, _ := res.Data[1].Get("city")
	status, _ := res.Data[1].Get("status")
	temp, _ := res.Data[1].Get("temperature_2m")
	assert.Equal(t, "London", city)
	assert.Equal(t, statusUnavailable, status)
	assert.Equal(t, placeholderValue, temp)

	temp, _ = res.Data[0].Get("temperature_2m")
	status, _ = res.Data[0].Get("status")
	assert.Equal(t, 21.5, temp)
	assert.Equal(t, statusOK, status)
}

func TestOpenMeteoAllCitiesFailing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewOpenMeteoAirQuality(newTestClient(), srv.URL).Fetch(context.Background(), Query{Rows: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllItemsFailed)
}

func TestFallbackChainUsesFirstSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/random/api/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})
	mux.HandleFunc("/dummy/users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		writeJSON(w, `{"users":[{"id":1,"firstName":"Ada","lastName":"Lovelace","age":36},{"id":2,"firstName":"Alan","lastName":"Turing","age":41}]}`)
	})
	placeholderCalled := false
	mux.HandleFunc("/placeholder/users", func(w http.ResponseWriter, r *http.Request) {
		placeholderCalled = true
		writeJSON(w, `[]`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient()
	chain := NewFallbackChain(
		NewRandomUser(client, srv.URL+"/random"),
		NewDummyJSON(client, srv.URL+"/dummy"),
		NewJSONPlaceholder(client, srv.URL+"/placeholder"),
	)
	res, err := chain.Fetch(context.Background(), Query{Rows: 2})
	require.NoError(t, err)

	assert.Equal(t, "DummyJSON API", res.Source)
	assert.Len(t, res.Data, 2)
	assert.False(t, placeholderCalled)
}

func TestFallbackChainAllFailing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 空数组也算失败
		if r.URL.Path == "/users" {
			writeJSON(w, `[]`)
			return
		}
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient()
	chain := NewFallbackChain(NewRandomUser(client, srv.URL), NewJSONPlaceholder(client, srv.URL))
	_, err := chain.Fetch(context.Background(), Query{Rows: 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllSourcesFailed)
	assert.ErrorIs(t, err, ErrNoRows)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
}

func TestWorldBankSkipsAggregatesAndNulls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/country/all/indicator/NY.GDP.MKTP.CD", r.URL.Path)
		writeJSON(w, `[{"page":1,"pages":1},[
			{"indicator":{"id":"NY.GDP.MKTP.CD","value":"GDP (current US$)"},"country":{"id":"1W","value":"World"},"countryiso3code":"","date":"2024","value":1.0e14},
			{"indicator":{"id":"NY.GDP.MKTP.CD","value":"GDP (current US$)"},"country":{"id":"AF","value":"Afghanistan"},"countryiso3code":"AFG","date":"2024","value":null},
			{"indicator":{"id":"NY.GDP.MKTP.CD","value":"GDP (current US$)"},"country":{"id":"FR","value":"France"},"countryiso3code":"FRA","date":"2024","value":3.1e12}
		]]`)
	}))
	defer srv.Close()

	res, err := NewWorldBank(newTestClient(), srv.URL, WorldBankGDP).Fetch(context.Background(), Query{Rows: 10})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	country, _ := res.Data[0].Get("country")
	assert.Equal(t, "France", country)
	assert.Equal(t, "World Bank API (GDP)", res.Source)
}

func TestWorldBankErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[{"message":[{"id":"120","key":"Invalid value"}]}]`)
	}))
	defer srv.Close()

	_, err := NewWorldBank(newTestClient(), srv.URL, WorldBankGovExpense).Fetch(context.Background(), Query{Rows: 10})
	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, "World Bank API (Government Expense)", srcErr.Source)
}

func TestOpenSkySkipsGroundedAircraft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"time":1700000000,"states":[
			["abc123","DLH4   ","Germany",1700000000,1700000000,8.5,50.0,10000.0,false,230.5,90.0,0.0],
			["def456","GRND1  ","France",1700000000,1700000000,2.3,48.8,null,true,0.0,0.0,null],
			["789aaa",null,"Spain",null,1700000000,null,null,null,false,null,null,null]
		]}`)
	}))
	defer srv.Close()

	res, err := NewOpenSky(newTestClient(), srv.URL).Fetch(context.Background(), Query{Rows: 10})
	require.NoError(t, err)
	require.Len(t, res.Data, 2)

	callsign, _ := res.Data[0].Get("callsign")
	assert.Equal(t, "DLH4", callsign)
	lat, _ := res.Data[1].Get("latitude")
	assert.Nil(t, lat)
	contact, _ := res.Data[0].Get("last_contact")
	assert.Equal(t, "2023-11-14T22:13:20Z", contact)
}

func TestUniversitiesFallsBackToDefaultCountry(t *testing.T) {
	var countries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		country := r.URL.Query().Get("country")
		countries = append(countries, country)
		if country != defaultUniversityCountry {
			writeJSON(w, `[]`)
			return
		}
		writeJSON(w, `[{"name":"MIT","country":"United States","alpha_two_code":"US","state-province":null,"web_pages":["https://mit.edu"],"domains":["mit.edu"]}]`)
	}))
	defer srv.Close()

	res, err := NewUniversities(newTestClient(), srv.URL).Fetch(context.Background(), Query{
		Keywords: []string{"list", "universities", "atlantis"},
		Rows:     5,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"atlantis", defaultUniversityCountry}, countries)
	website, _ := res.Data[0].Get("website")
	assert.Equal(t, "https://mit.edu", website)
}

func TestSourceTimeoutIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		writeJSON(w, `[]`)
	}))
	defer srv.Close()

	client := NewClient(config.SourcesConfig{Timeout: 20 * time.Millisecond})
	_, err := NewRESTCountries(client, srv.URL).Fetch(context.Background(), Query{Rows: 5})
	require.Error(t, err)
	assert.True(t, apperr.IsTimeout(err))
}

func TestRegistryCoversAllCategories(t *testing.T) {
	reg := NewRegistry(config.SourcesConfig{Timeout: time.Second})
	for _, c := range classifier.AllCategories {
		assert.NotNil(t, reg.For(c), c)
	}
	assert.Same(t, reg.For(classifier.MLDatasets), reg.For(classifier.AITraining))
	assert.Equal(t, "Hugging Face Models API (image)", reg.For(classifier.ComputerVision).Name())
	assert.Equal(t, "Hugging Face Datasets API (text)", reg.For(classifier.NLPDatasets).Name())
	assert.IsType(t, &FallbackChain{}, reg.For(classifier.General))
	assert.Len(t, reg.Labels(), len(classifier.AllCategories))
}

func TestRegistryBaseURLOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[{"name":{"common":"India","official":"Republic of India"},"cca3":"IND","capital":["New Delhi"],"region":"Asia","subregion":"Southern Asia","population":1400000000,"area":3287590},
			{"name":{"common":"Iceland","official":"Iceland"},"cca3":"ISL","capital":["Reykjavik"],"region":"Europe","subregion":"Northern Europe","population":370000,"area":103000}]`)
	}))
	defer srv.Close()

	reg := NewRegistry(config.SourcesConfig{
		Timeout:  time.Second,
		BaseURLs: map[string]string{"restcountries": srv.URL},
	})
	res, err := reg.For(classifier.Demographics).Fetch(context.Background(), Query{Rows: 1})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	country, _ := res.Data[0].Get("country")
	assert.Equal(t, "India", country)
}

func TestStatusErrorMessage(t *testing.T) {
	err := &StatusError{URL: "http://x/y", StatusCode: 404, Body: "not found"}
	assert.Contains(t, err.Error(), "404")
	assert.False(t, errors.Is(err, ErrNoRows))
}
