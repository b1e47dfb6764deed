package sources

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"datagen-backend/internal/model"
	"datagen-backend/pkg/logger"
)

// FallbackChain 依次尝试多个通用数据源，第一个成功的结果生效
type FallbackChain struct {
	adapters []Adapter
}

func NewFallbackChain(adapters ...Adapter) *FallbackChain {
	return &FallbackChain{adapters: adapters}
}

func (c *FallbackChain) Name() string {
	names := make([]string, len(c.adapters))
	for i, a := range c.adapters {
		names[i] = a.Name()
	}
	return "General fallback (" + strings.Join(names, ", ") + ")"
}

func (c *FallbackChain) Fetch(ctx context.Context, q Query) (*model.GenerationResult, error) {
	var errs []error
	for _, a := range c.adapters {
		res, err := a.Fetch(ctx, q)
		if err == nil {
			return res, nil
		}
		errs = append(errs, err)
		logger.WithFields(map[string]interface{}{
			"source": a.Name(),
		}).Warnf("fallback source failed: %v", err)
		// 父 ctx 已结束，后面的数据源也不会成功
		if ctx.Err() != nil {
			break
		}
	}
	errs = append([]error{ErrAllSourcesFailed}, errs...)
	return nil, sourceErr("general", errors.Join(errs...))
}

// RandomUser 随机生成的用户档案
type RandomUser struct {
	client  *Client
	baseURL string
}

func NewRandomUser(client *Client, baseURL string) *RandomUser {
	return &RandomUser{client: client, baseURL: baseURL}
}

func (a *RandomUser) Name() string { return "RandomUser API" }

type randomUsers struct {
	Results []struct {
		Gender string `json:"gender"`
		Name   struct {
			First string `json:"first"`
			Last  string `json:"last"`
		} `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Location struct {
			City    string `json:"city"`
			State   string `json:"state"`
			Country string `json:"country"`
		} `json:"location"`
		DOB struct {
			Age int `json:"age"`
		} `json:"dob"`
		Login struct {
			Username string `json:"username"`
		} `json:"login"`
		Registered struct {
			Date string `json:"date"`
		} `json:"registered"`
	} `json:"results"`
}

func (a *RandomUser) Fetch(ctx context.Context, q Query) (*model.GenerationResult, error) {
	query := url.Values{}
	query.Set("results", strconv.Itoa(q.Rows))
	query.Set("noinfo", "")
	var resp randomUsers
	if err := a.client.GetJSON(ctx, a.baseURL, "/api/", query, &resp); err != nil {
		return nil, sourceErr(a.Name(), err)
	}

	rows := make([]*model.Row, 0, len(resp.Results))
	for i, u := range resp.Results {
		rows = append(rows, model.RowFromPairs(
			"id", i+1,
			"first_name", u.Name.First,
			"last_name", u.Name.Last,
			"username", u.Login.Username,
			"email", u.Email,
			"phone", u.Phone,
			"gender", u.Gender,
			"age", u.DOB.Age,
			"city", u.Location.City,
			"country", u.Location.Country,
			"registered_at", u.Registered.Date,
		))
	}
	return result(a.Name(), rows, q.Rows)
}

// DummyJSON 示例用户数据
type DummyJSON struct {
	client  *Client
	baseURL string
}

func NewDummyJSON(client *Client, baseURL string) *DummyJSON {
	return &DummyJSON{client: client, baseURL: baseURL}
}

func (a *DummyJSON) Name() string { return "DummyJSON API" }

type dummyUsers struct {
	Users []struct {
		ID        int    `json:"id"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Username  string `json:"username"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
		Gender    string `json:"gender"`
		Age       int    `json:"age"`
		Address   struct {
			City    string `json:"city"`
			Country string `json:"country"`
		} `json:"address"`
		Company struct {
			Name  string `json:"name"`
			Title string `json:"title"`
		} `json:"company"`
	} `json:"users"`
}

func (a *DummyJSON) Fetch(ctx context.Context, q Query) (*model.GenerationResult, error) {
	query := url.Values{"limit": {strconv.Itoa(q.Rows)}}
	var resp dummyUsers
	if err := a.client.GetJSON(ctx, a.baseURL, "/users", query, &resp); err != nil {
		return nil, sourceErr(a.Name(), err)
	}

	rows := make([]*model.Row, 0, len(resp.Users))
	for _, u := range resp.Users {
		rows = append(rows, model.RowFromPairs(
			"id", u.ID,
			"first_name", u.FirstName,
			"last_name", u.LastName,
			"username", u.Username,
			"email", u.Email,
			"phone", u.Phone,
			"gender", u.Gender,
			"age", u.Age,
			"city", u.Address.City,
			"country", u.Address.Country,
			"company", u.Company.Name,
			"job_title", u.Company.Title,
		))
	}
	return result(a.Name(), rows, q.Rows)
}

// JSONPlaceholder 固定的十个示例用户
type JSONPlaceholder struct {
	client  *Client
	baseURL string
}

func NewJSONPlaceholder(client *Client, baseURL string) *JSONPlaceholder {
	return &JSONPlaceholder{client: client, baseURL: baseURL}
}

func (a *JSONPlaceholder) Name() string { return "JSONPlaceholder API" }

type placeholderUser struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Website  string `json:"website"`
	Address  struct {
		City string `json:"city"`
	} `json:"address"`
	Company struct {
		Name string `json:"name"`
	} `json:"company"`
}

func (a *JSONPlaceholder) Fetch(ctx context.Context, q Query) (*model.GenerationResult, error) {
	var users []placeholderUser
	if err := a.client.GetJSON(ctx, a.baseURL, "/users", nil, &users); err != nil {
		return nil, sourceErr(a.Name(), err)
	}

	rows := make([]*model.Row, 0, len(users))
	for _, u := range users {
		rows = append(rows, model.RowFromPairs(
			"id", u.ID,
			"name", u.Name,
			"username", u.Username,
			"email", u.Email,
			"phone", u.Phone,
			"website", u.Website,
			"city", u.Address.City,
			"company", u.Company.Name,
		))
	}
	return result(a.Name(), rows, q.Rows)
}
