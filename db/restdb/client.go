package restdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"code.cloudfoundry.org/lager/v3"

	"github.com/funnelmon/funnelmon/db"
)

// RestStoreConfig points the REST stores at a PostgREST endpoint. BaseURL
// includes the API prefix, e.g. https://example.net/rest/v1.
type RestStoreConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
	APIKey  string `yaml:"api_key" json:"api_key"`
}

// Client is a thin PostgREST reader shared by the REST-backed stores. Every
// table read is a GET with predicate query parameters; the server answers
// with a JSON array of rows.
type Client struct {
	logger     lager.Logger
	conf       RestStoreConfig
	httpClient *http.Client
}

func NewClient(logger lager.Logger, conf RestStoreConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		logger:     logger,
		conf:       conf,
		httpClient: httpClient,
	}
}

// Ping verifies the endpoint is reachable, the readiness check uses it.
// Any response below 500 counts as up.
func (c *Client) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.conf.BaseURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.conf.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.conf.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// fetch reads rows from a table. Row fields come back with whatever JSON
// types the server chose, so rows are generic maps; the stores coerce them.
func (c *Client) fetch(ctx context.Context, table string, params QueryParams) ([]map[string]interface{}, error) {
	url := c.conf.BaseURL + "/" + table
	if encoded := params.Encode(); encoded != "" {
		url += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.conf.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.conf.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("failed-to-query-table", err, lager.Data{"table": table})
		return nil, &db.StoreError{Store: table, Op: "fetch", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("table-query-failed", nil, lager.Data{"table": table, "statusCode": resp.StatusCode})
		return nil, &db.StoreError{Store: table, Op: "fetch", StatusCode: resp.StatusCode}
	}

	var rows []map[string]interface{}
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&rows); err != nil {
		c.logger.Error("failed-to-decode-table-rows", err, lager.Data{"table": table})
		return nil, &db.StoreError{Store: table, Op: "decode", Err: err}
	}
	return rows, nil
}

// stringField coerces a row field to its string form; numbers keep their
// exact wire representation via json.Number.
func stringField(row map[string]interface{}, column string) string {
	p := stringFieldPtr(row, column)
	if p == nil {
		return ""
	}
	return *p
}

func stringFieldPtr(row map[string]interface{}, column string) *string {
	v, found := row[column]
	if !found || v == nil {
		return nil
	}
	var s string
	switch value := v.(type) {
	case string:
		s = value
	case json.Number:
		s = value.String()
	case bool:
		s = strconv.FormatBool(value)
	default:
		s = fmt.Sprintf("%v", value)
	}
	return &s
}

func boolField(row map[string]interface{}, column string) bool {
	v, found := row[column]
	if !found || v == nil {
		return false
	}
	switch value := v.(type) {
	case bool:
		return value
	case string:
		parsed, err := strconv.ParseBool(value)
		return err == nil && parsed
	}
	return false
}

// timeField parses a stored timestamp. PostgREST emits RFC3339 for
// timestamptz; bare timestamps come through without a zone suffix and are
// taken as UTC at face value.
func timeField(row map[string]interface{}, column string) (time.Time, error) {
	raw := stringField(row, column)
	if raw == "" {
		return time.Time{}, fmt.Errorf("column %s: empty timestamp", column)
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("column %s: unparsable timestamp %q", column, raw)
}
