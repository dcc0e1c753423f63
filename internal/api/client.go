package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/papaburgs/vigilant-umbrella/internal/gate"
	"github.com/papaburgs/vigilant-umbrella/internal/types"
)

// Client is the typed gateway to the game API. Every request passes through
// the shared rate gate before it touches the network; nothing else in the
// program talks to the API directly.
type Client struct {
	baseURL    string
	token      string
	gate       *gate.Gate
	hc         *http.Client
	maxRetries int
}

func New(baseURL, token string, g *gate.Gate, maxRetries int) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		gate:       g,
		hc:         &http.Client{Timeout: 10 * time.Second},
		maxRetries: maxRetries,
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  *meta           `json:"meta"`
	Error *apiErrBody     `json:"error"`
}

type meta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type apiErrBody struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// do issues one request with bounded retries. 429 locks the gate fleet-wide
// and retries; 5xx and network failures retry up to maxRetries with a growing
// sleep; everything else is classified and returned to the caller.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	var retries429, retriesOther int
	for {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return err
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		if err := c.gate.Latch(ctx); err != nil {
			return err
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			retriesOther++
			if retriesOther > c.maxRetries {
				return fmt.Errorf("%w: %v", ErrTransient, err)
			}
			sleepCtx(ctx, time.Duration(retriesOther)*time.Second)
			continue
		}

		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("%w: reading response: %v", ErrTransient, err)
		}

		if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
			if out == nil {
				return nil
			}
			var env envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				return fmt.Errorf("decoding response envelope: %w", err)
			}
			if err := json.Unmarshal(env.Data, out); err != nil {
				return fmt.Errorf("decoding response data: %w", err)
			}
			return nil
		}

		var env envelope
		var code int
		message := http.StatusText(resp.StatusCode)
		if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil {
			code = env.Error.Code
			message = env.Error.Message
		}
		apiErr := classify(resp.StatusCode, code, message)

		if resp.StatusCode == http.StatusTooManyRequests {
			retries429++
			if retries429 > 5 {
				return apiErr
			}
			c.gate.Lock()
			sleepCtx(ctx, time.Second)
			continue
		}

		if Retryable(apiErr) {
			retriesOther++
			if retriesOther > c.maxRetries {
				return apiErr
			}
			slog.Debug("retrying after transient api error", "path", path, "status", resp.StatusCode)
			sleepCtx(ctx, time.Duration(retriesOther)*time.Second)
			continue
		}

		return apiErr
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// doPaged walks a paged collection, appending each page's data into collect.
func (c *Client) doPaged(ctx context.Context, path string, collect func(json.RawMessage) (int, error)) error {
	page := 1
	const perPage = 20 // can't see ever changing this
	for {
		url := fmt.Sprintf("%s?limit=%d&page=%d", path, perPage, page)
		var raw json.RawMessage
		if err := c.do(ctx, http.MethodGet, url, nil, &raw); err != nil {
			return err
		}
		n, err := collect(raw)
		if err != nil {
			return err
		}
		if n < perPage {
			return nil
		}
		page++
	}
}

// RegisterResult is the payload from a successful registration.
type RegisterResult struct {
	Token string      `json:"token"`
	Agent types.Agent `json:"agent"`
}

// Register creates a new agent. Runs unauthenticated; the returned token must
// be persisted by the caller.
func (c *Client) Register(ctx context.Context, symbol, faction string) (RegisterResult, error) {
	var out RegisterResult
	body := map[string]string{"symbol": symbol, "faction": faction}
	err := c.do(ctx, http.MethodPost, "/register", body, &out)
	return out, err
}

func (c *Client) GetAgent(ctx context.Context) (types.Agent, error) {
	var out types.Agent
	err := c.do(ctx, http.MethodGet, "/my/agent", nil, &out)
	return out, err
}

func (c *Client) ListShips(ctx context.Context) ([]types.Ship, error) {
	var ships []types.Ship
	err := c.doPaged(ctx, "/my/ships", func(raw json.RawMessage) (int, error) {
		var page []types.Ship
		if err := json.Unmarshal(raw, &page); err != nil {
			return 0, err
		}
		ships = append(ships, page...)
		return len(page), nil
	})
	return ships, err
}

func (c *Client) GetShip(ctx context.Context, symbol string) (types.Ship, error) {
	var out types.Ship
	err := c.do(ctx, http.MethodGet, "/my/ships/"+symbol, nil, &out)
	return out, err
}

// NavigateResult carries the updated nav and fuel after a navigate order.
type NavigateResult struct {
	Nav  types.ShipNav  `json:"nav"`
	Fuel types.ShipFuel `json:"fuel"`
}

func (c *Client) Navigate(ctx context.Context, ship, waypoint string) (NavigateResult, error) {
	var out NavigateResult
	body := map[string]string{"waypointSymbol": waypoint}
	err := c.do(ctx, http.MethodPost, "/my/ships/"+ship+"/navigate", body, &out)
	return out, err
}

func (c *Client) Dock(ctx context.Context, ship string) (types.ShipNav, error) {
	var out struct {
		Nav types.ShipNav `json:"nav"`
	}
	err := c.do(ctx, http.MethodPost, "/my/ships/"+ship+"/dock", nil, &out)
	return out.Nav, err
}

func (c *Client) Orbit(ctx context.Context, ship string) (types.ShipNav, error) {
	var out struct {
		Nav types.ShipNav `json:"nav"`
	}
	err := c.do(ctx, http.MethodPost, "/my/ships/"+ship+"/orbit", nil, &out)
	return out.Nav, err
}

// ExtractResult is the payload from a successful extraction.
type ExtractResult struct {
	Extraction types.Extraction `json:"extraction"`
	Cooldown   types.Cooldown   `json:"cooldown"`
	Cargo      types.ShipCargo  `json:"cargo"`
}

func (c *Client) Extract(ctx context.Context, ship string) (ExtractResult, error) {
	var out ExtractResult
	err := c.do(ctx, http.MethodPost, "/my/ships/"+ship+"/extract", nil, &out)
	return out, err
}

// RefuelResult is the payload from a successful refuel.
type RefuelResult struct {
	Agent       types.Agent       `json:"agent"`
	Fuel        types.ShipFuel    `json:"fuel"`
	Transaction types.Transaction `json:"transaction"`
}

func (c *Client) Refuel(ctx context.Context, ship string) (RefuelResult, error) {
	var out RefuelResult
	err := c.do(ctx, http.MethodPost, "/my/ships/"+ship+"/refuel", nil, &out)
	return out, err
}

// TradeResult is the payload from a buy or sell transaction.
type TradeResult struct {
	Agent       types.Agent       `json:"agent"`
	Cargo       types.ShipCargo   `json:"cargo"`
	Transaction types.Transaction `json:"transaction"`
}

func (c *Client) SellCargo(ctx context.Context, ship, good string, units int) (TradeResult, error) {
	var out TradeResult
	body := map[string]any{"symbol": good, "units": units}
	err := c.do(ctx, http.MethodPost, "/my/ships/"+ship+"/sell", body, &out)
	return out, err
}

func (c *Client) BuyCargo(ctx context.Context, ship, good string, units int) (TradeResult, error) {
	var out TradeResult
	body := map[string]any{"symbol": good, "units": units}
	err := c.do(ctx, http.MethodPost, "/my/ships/"+ship+"/purchase", body, &out)
	return out, err
}

func (c *Client) GetMarket(ctx context.Context, system, waypoint string) (types.Market, error) {
	var out types.Market
	err := c.do(ctx, http.MethodGet, "/systems/"+system+"/waypoints/"+waypoint+"/market", nil, &out)
	return out, err
}

func (c *Client) GetWaypoint(ctx context.Context, system, waypoint string) (types.Waypoint, error) {
	var out types.Waypoint
	err := c.do(ctx, http.MethodGet, "/systems/"+system+"/waypoints/"+waypoint, nil, &out)
	return out, err
}

func (c *Client) ListSystemWaypoints(ctx context.Context, system string) ([]types.Waypoint, error) {
	var waypoints []types.Waypoint
	err := c.doPaged(ctx, "/systems/"+system+"/waypoints", func(raw json.RawMessage) (int, error) {
		var page []types.Waypoint
		if err := json.Unmarshal(raw, &page); err != nil {
			return 0, err
		}
		waypoints = append(waypoints, page...)
		return len(page), nil
	})
	return waypoints, err
}

func (c *Client) ListContracts(ctx context.Context) ([]types.Contract, error) {
	var contracts []types.Contract
	err := c.doPaged(ctx, "/my/contracts", func(raw json.RawMessage) (int, error) {
		var page []types.Contract
		if err := json.Unmarshal(raw, &page); err != nil {
			return 0, err
		}
		contracts = append(contracts, page...)
		return len(page), nil
	})
	return contracts, err
}
