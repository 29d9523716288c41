package restaurants

import (
	"context"
	"encoding/json"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/campus-foodmap/foodmap/internal/log"
)

// Messages of a ConnectionReport.
const (
	MessageConnected        = "서버 연결이 정상입니다."
	MessageConnectionFailed = "서버 연결에 실패했습니다."
)

// ConnectionReport is the outcome of TestConnection.
type ConnectionReport struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Health  json.RawMessage `json:"health,omitempty"`
	API     json.RawMessage `json:"api,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// EndpointReport is the outcome of TestEndpoint.
type EndpointReport struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// TestConnection checks the API's health endpoint and its restaurant
// listing. Neither response is cached.
func (c *Client) TestConnection(ctx context.Context) ConnectionReport {
	var health, api []byte
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		health, err = c.send(ctx, http.MethodGet, pathHealth, http.NoBody)
		return err
	})
	eg.Go(func() error {
		var err error
		api, err = c.send(ctx, http.MethodGet, pathRestaurants, http.NoBody)
		return err
	})
	if err := eg.Wait(); err != nil {
		log.Warn(ctx).Err(err).Msg("restaurants: connection test failed")
		return ConnectionReport{
			Message: MessageConnectionFailed,
			Error:   err.Error(),
		}
	}
	log.Info(ctx).Msg("restaurants: connection test succeeded")
	return ConnectionReport{
		Success: true,
		Message: MessageConnected,
		Health:  rawJSON(health),
		API:     rawJSON(api),
	}
}

// TestEndpoint fetches a single API path.
func (c *Client) TestEndpoint(ctx context.Context, path string) EndpointReport {
	b, err := c.send(ctx, http.MethodGet, path, http.NoBody)
	if err != nil {
		return EndpointReport{Error: err.Error()}
	}
	return EndpointReport{Success: true, Data: rawJSON(b)}
}

// rawJSON returns b if it is valid JSON, and b quoted as a string otherwise.
func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	if json.Valid(b) {
		return b
	}
	q, _ := json.Marshal(string(b))
	return q
}
