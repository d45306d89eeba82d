package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Response is the OneBusAway "where" API envelope. Data is decoded into the
// endpoint-specific payload type T.
type Response[T any] struct {
	Code        int    `json:"code"`
	CurrentTime int64  `json:"currentTime"`
	Text        string `json:"text"`
	Version     int    `json:"version"`
	Data        *T     `json:"data"`
}

// ErrMissingData is returned when an envelope carries no data object.
var ErrMissingData = errors.New("response has no data object")

// APIError is an envelope whose code reports a failure.
type APIError struct {
	Code int
	Text string
}

func (e *APIError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("api returned code %d", e.Code)
	}
	return fmt.Sprintf("api returned code %d: %s", e.Code, e.Text)
}

// DecodeResponse parses body into an envelope. A zero code is accepted since
// some deployments omit it; any other non-200 code is an APIError.
func DecodeResponse[T any](body []byte) (*Response[T], error) {
	var resp Response[T]
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if resp.Code != 0 && resp.Code != http.StatusOK {
		return nil, &APIError{Code: resp.Code, Text: resp.Text}
	}
	if resp.Data == nil {
		return nil, ErrMissingData
	}
	return &resp, nil
}
