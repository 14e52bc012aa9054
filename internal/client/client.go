// Package client is an HTTP client for the tree inventory API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/futaoo/INTERVAL/internal/trees"
)

var ErrNotFound = errors.New("not found")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// RecordInput is the body for creating or updating a tree record. RecordDate
// is YYYY-MM-DD or RFC 3339.
type RecordInput struct {
	RecordType        *string `json:"recordType"`
	RecordDescription *string `json:"recordDescription"`
	RecordDate        *string `json:"recordDate"`
}

type recordResponse struct {
	Message string           `json:"message"`
	Record  trees.TreeRecord `json:"record"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WorldStatistics returns statistics over every tree.
func (c *Client) WorldStatistics(ctx context.Context) (trees.Statistics, error) {
	var out trees.Statistics
	err := c.do(ctx, http.MethodGet, "/api/electoral", nil, &out)
	return out, err
}

// Statistics returns statistics for one electoral division.
func (c *Client) Statistics(ctx context.Context, divisionID int) (trees.Statistics, error) {
	var out trees.Statistics
	err := c.do(ctx, http.MethodGet, "/api/electoral/"+strconv.Itoa(divisionID), nil, &out)
	return out, err
}

func (c *Client) FilterStatistics(ctx context.Context, req trees.FilterRequest) (trees.FilterStatistics, error) {
	var out trees.FilterStatistics
	err := c.do(ctx, http.MethodPost, "/api/trees", req, &out)
	return out, err
}

func (c *Client) Tree(ctx context.Context, treeID int) (trees.TreeDetail, error) {
	var out trees.TreeDetail
	err := c.do(ctx, http.MethodGet, "/api/trees/"+strconv.Itoa(treeID), nil, &out)
	return out, err
}

func (c *Client) Species(ctx context.Context) ([]trees.Species, error) {
	var out struct {
		Species []trees.Species `json:"species"`
	}
	err := c.do(ctx, http.MethodGet, "/api/species", nil, &out)
	return out.Species, err
}

func (c *Client) Conditions(ctx context.Context) ([]string, error) {
	var out struct {
		Conditions []trees.ConditionOut `json:"conditions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/conditions", nil, &out); err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(out.Conditions))
	for _, cond := range out.Conditions {
		labels = append(labels, cond.Condition)
	}
	return labels, nil
}

func (c *Client) StyleCombinations(ctx context.Context) ([]trees.StyleCombination, error) {
	var out []trees.StyleCombination
	err := c.do(ctx, http.MethodGet, "/api/styles", nil, &out)
	return out, err
}

func (c *Client) ElectoralLabels(ctx context.Context) ([]trees.ElectoralLabel, error) {
	var out []trees.ElectoralLabel
	err := c.do(ctx, http.MethodGet, "/api/electoral_label", nil, &out)
	return out, err
}

func (c *Client) CreateRecord(ctx context.Context, treeID int, in RecordInput) (trees.TreeRecord, error) {
	var out recordResponse
	err := c.do(ctx, http.MethodPost, recordsPath(treeID), in, &out)
	return out.Record, err
}

func (c *Client) UpdateRecord(ctx context.Context, treeID, recordID int, in RecordInput) (trees.TreeRecord, error) {
	var out recordResponse
	err := c.do(ctx, http.MethodPut, recordsPath(treeID)+"/"+strconv.Itoa(recordID), in, &out)
	return out.Record, err
}

func (c *Client) DeleteRecord(ctx context.Context, treeID, recordID int) (trees.TreeRecord, error) {
	var out recordResponse
	err := c.do(ctx, http.MethodDelete, recordsPath(treeID)+"/"+strconv.Itoa(recordID), nil, &out)
	return out.Record, err
}

func recordsPath(treeID int) string {
	return "/api/trees/" + strconv.Itoa(treeID) + "/records"
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	logRequest(method, path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logError(path, err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	logResponse(method, path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		logError(path, err)
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := http.StatusText(resp.StatusCode)
	if json.Unmarshal(raw, &body) == nil {
		switch {
		case body.Message != "":
			msg = body.Message
		case body.Error != "":
			msg = body.Error
		}
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
