package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/castellet/agentgate/pkg/api"
)

// mapHTTPError turns a non-2xx response into an *api.APIError, using the
// server's error body when it parses.
func mapHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil {
		var errResp api.ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != nil {
			return errResp.Error
		}
	}
	return api.NewServerError(fmt.Sprintf("unexpected status %d from server", resp.StatusCode))
}
