package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/futaoo/INTERVAL/internal/trees"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL})
}

func TestFilterStatisticsPostsRequest(t *testing.T) {
	lo, hi := 5.0, 10.0
	public := true

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/trees", r.URL.Path)

		var got map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, 5.0, got["height_min"])
		assert.Equal(t, 10.0, got["height_max"])
		assert.Equal(t, true, got["is_public"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"electoralName":"Area of Interest","totalTrees":1,"treeIds":[7],"activities":[]}`))
	})

	out, err := c.FilterStatistics(context.Background(), trees.FilterRequest{HeightMin: &lo, HeightMax: &hi, IsPublic: &public})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.TotalTrees)
	assert.Equal(t, []int{7}, out.TreeIDs)
	assert.Equal(t, "Area of Interest", out.ElectoralName)
}

func TestNotFoundWrapsSentinel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Tree not found"}`))
	})

	_, err := c.Tree(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Tree not found", apiErr.Message)
}

func TestInternalErrorMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal server error"}`))
	})

	_, err := c.WorldStatistics(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "Internal server error", apiErr.Message)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestReferenceLists(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/conditions":
			_, _ = w.Write([]byte(`{"conditions":[{"condition":"Fair"},{"condition":"Good"}]}`))
		case "/api/species":
			_, _ = w.Write([]byte(`{"species":[{"species_id":1,"species_code":"ACPS","common_name":"Sycamore"}]}`))
		case "/api/styles":
			_, _ = w.Write([]byte(`[{"species_id":1,"spread_category":"Up to 300 cm","is_public":true}]`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	conds, err := c.Conditions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fair", "Good"}, conds)

	species, err := c.Species(ctx)
	require.NoError(t, err)
	require.Len(t, species, 1)
	assert.Equal(t, "Sycamore", species[0].CommonName)

	combos, err := c.StyleCombinations(ctx)
	require.NoError(t, err)
	require.Len(t, combos, 1)
	assert.Equal(t, "Up to 300 cm", combos[0].SpreadCategory)
}

func TestRecordPaths(t *testing.T) {
	var seen []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		_, _ = w.Write([]byte(`{"message":"ok","record":{"record_id":3,"tree_id":12}}`))
	})
	ctx := context.Background()
	kind := "Pruning"

	rec, err := c.CreateRecord(ctx, 12, RecordInput{RecordType: &kind})
	require.NoError(t, err)
	assert.Equal(t, 3, rec.RecordID)

	_, err = c.UpdateRecord(ctx, 12, 3, RecordInput{RecordType: &kind})
	require.NoError(t, err)
	_, err = c.DeleteRecord(ctx, 12, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"POST /api/trees/12/records",
		"PUT /api/trees/12/records/3",
		"DELETE /api/trees/12/records/3",
	}, seen)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://trees.example:8080/")
	cfg := LoadFromEnv()
	assert.Equal(t, "http://trees.example:8080", cfg.BaseURL)
	assert.NoError(t, cfg.Validate())

	t.Setenv("API_BASE_URL", "")
	assert.Equal(t, DefaultBaseURL, LoadFromEnv().BaseURL)

	assert.ErrorIs(t, Config{BaseURL: "not a url"}.Validate(), ErrMissingBaseURL)
}
