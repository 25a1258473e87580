package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	feed domain.WireFeed
	err  error
}

func (s stubFetcher) Fetch(context.Context) (domain.WireFeed, error) { return s.feed, s.err }

func TestFetchOnce_PrintsJSONLines(t *testing.T) {
	feed := domain.WireFeed{Features: []domain.WireFeature{
		{ID: "ev1", Properties: domain.WireProperties{Mag: 2.5, Place: "10km N of X", Time: 1700000000000, URL: "https://e/ev1"}},
		{ID: "ev2", Properties: domain.WireProperties{Mag: 4.1, Place: "Y", Time: 1700000001000, URL: "https://e/ev2"}},
	}}
	var out bytes.Buffer

	err := fetchOnce(context.Background(), stubFetcher{feed: feed}, &out, slog.Default(), observability.NewMetricsForTesting())

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var first domain.Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, domain.Event{
		ID:               "ev1",
		Magnitude:        2.5,
		Place:            "10km N of X",
		OccurredAtMillis: 1700000000000,
		DetailURL:        "https://e/ev1",
	}, first)
	assert.Contains(t, lines[1], `"id":"ev2"`)
}

func TestFetchOnce_EmptyFeedPrintsNothing(t *testing.T) {
	var out bytes.Buffer

	err := fetchOnce(context.Background(), stubFetcher{}, &out, slog.Default(), observability.NewMetricsForTesting())

	require.NoError(t, err)
	assert.Empty(t, out.String())
}

func TestFetchOnce_ReturnsCycleError(t *testing.T) {
	var out bytes.Buffer
	fetchErr := &domain.NetworkError{StatusCode: 503, Body: "unavailable"}

	err := fetchOnce(context.Background(), stubFetcher{err: fetchErr}, &out, slog.Default(), observability.NewMetricsForTesting())

	require.Error(t, err)
	assert.Equal(t, fetchErr.Error(), err.Error())
	assert.Empty(t, out.String())
}

func TestStderrLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := stderrLogger(&buf, "warn")

	logger.Info("hidden")
	logger.Warn("fetch cycle failed")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=\"fetch cycle failed\"")
	assert.Contains(t, buf.String(), "service=quake-feed")
}
