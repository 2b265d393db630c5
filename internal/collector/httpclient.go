package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"SmartPortfolio/internal/model"
)

func newRestClient(baseURL string, timeout time.Duration, proxy string) *resty.Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	if proxy != "" {
		client.SetProxy(proxy)
	}
	return client
}

// getJSON performs a GET and decodes the body into out.
func getJSON(ctx context.Context, client *resty.Client, provider, path string, params map[string]string, out any) error {
	resp, err := client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return fmt.Errorf("%s request %s: %w", provider, path, err)
	}
	if resp.IsError() {
		return &APIError{
			Provider:   provider,
			StatusCode: resp.StatusCode(),
			Endpoint:   path,
			Message:    truncate(resp.String(), 200),
		}
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s decode %s: %w", provider, path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// number accepts JSON numbers, numeric strings and null. Anything that does
// not parse to a finite float is treated as absent.
type number struct {
	v *float64
}

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		n.v = nil
		return nil
	}
	s = strings.Trim(s, `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// "NA", "-", "None" and friends
		n.v = nil
		return nil
	}
	n.v = model.Float(f)
	return nil
}

// Ptr returns the parsed value, or nil when absent.
func (n number) Ptr() *float64 { return n.v }

// first returns the first non-nil value.
func first(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
