package azure

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempopilot/coach-gateway/internal/domain"
	"github.com/tempopilot/coach-gateway/internal/tools"
)

// fakeStreamer scripts one result per attempt, in order.
type fakeStreamer struct {
	results []attemptResult
	calls   []string // deployments, in call order
}

type attemptResult struct {
	stream *Stream
	err    error
}

func (f *fakeStreamer) StreamChat(ctx context.Context, deployment string, msgs []domain.Message, defs []tools.Definition) (*Stream, error) {
	f.calls = append(f.calls, deployment)
	if len(f.results) == 0 {
		return nil, errors.New("unexpected extra attempt")
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.stream, r.err
}

func okStream(deployment string) *Stream {
	return &Stream{Body: io.NopCloser(strings.NewReader("")), Deployment: deployment}
}

func newTestFailover(fs *fakeStreamer, fallback string, pathWarning bool) (*Failover, *[]time.Duration) {
	f := NewFailover(fs, "primary", fallback, pathWarning, testLog())
	var slept []time.Duration
	f.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return f, &slept
}

func TestFailoverFirstAttemptSucceeds(t *testing.T) {
	fs := &fakeStreamer{results: []attemptResult{{stream: okStream("primary")}}}
	f, slept := newTestFailover(fs, "fallback", false)

	stream, err := f.Start(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "primary", stream.Deployment)
	assert.Equal(t, []string{"primary"}, fs.calls)
	assert.Empty(t, *slept)
}

func TestFailoverBackoffSchedule(t *testing.T) {
	fs := &fakeStreamer{results: []attemptResult{
		{err: &UpstreamError{Deployment: "primary", Status: 500}},
		{err: &UpstreamError{Deployment: "primary", Status: 500}},
		{stream: okStream("primary")},
	}}
	f, slept := newTestFailover(fs, "fallback", false)

	stream, err := f.Start(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "primary", stream.Deployment)
	assert.Equal(t, []string{"primary", "primary", "primary"}, fs.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}

func TestFailoverFallsBackAfterPrimaryExhausted(t *testing.T) {
	fs := &fakeStreamer{results: []attemptResult{
		{err: &UpstreamError{Deployment: "primary", Status: 500}},
		{err: &UpstreamError{Deployment: "primary", Status: 500}},
		{err: &UpstreamError{Deployment: "primary", Status: 500}},
		{stream: okStream("fallback")},
	}}
	f, _ := newTestFailover(fs, "fallback", false)

	stream, err := f.Start(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "fallback", stream.Deployment)
	assert.Equal(t, []string{"primary", "primary", "primary", "fallback"}, fs.calls)
}

func TestFailoverAllAttemptsFail(t *testing.T) {
	fs := &fakeStreamer{results: []attemptResult{
		{err: &UpstreamError{Deployment: "primary", Status: 500}},
		{err: &UpstreamError{Deployment: "primary", Status: 502}},
		{err: &UpstreamError{Deployment: "primary", Status: 500}},
		{err: &UpstreamError{Deployment: "fallback", Status: 500}},
	}}
	f, _ := newTestFailover(fs, "fallback", false)

	_, err := f.Start(context.Background(), nil, nil)
	require.Error(t, err)

	var ee *ExhaustedError
	require.ErrorAs(t, err, &ee)
	assert.Len(t, fs.calls, 4)
}

func TestFailoverNoFallbackConfigured(t *testing.T) {
	fs := &fakeStreamer{results: []attemptResult{
		{err: &UpstreamError{Deployment: "primary", Status: 500}},
		{err: &UpstreamError{Deployment: "primary", Status: 500}},
		{err: &UpstreamError{Deployment: "primary", Status: 500}},
	}}
	f, _ := newTestFailover(fs, "", false)

	_, err := f.Start(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Equal(t, []string{"primary", "primary", "primary"}, fs.calls)

	var ee *ExhaustedError
	assert.ErrorAs(t, err, &ee)
}

func TestFailover404KeepsRetryingThenConfigError(t *testing.T) {
	fs := &fakeStreamer{results: []attemptResult{
		{err: &UpstreamError{Deployment: "primary", Status: 404}},
		{err: &UpstreamError{Deployment: "primary", Status: 404}},
		{err: &UpstreamError{Deployment: "primary", Status: 404}},
		{err: &UpstreamError{Deployment: "fallback", Status: 404}},
	}}
	f, _ := newTestFailover(fs, "fallback", false)

	_, err := f.Start(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Len(t, fs.calls, 4, "a 404 must not short-circuit the retry loop")

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "fallback", ce.Deployment)
	assert.Equal(t, hintVerifyConfig, ce.Hint)
}

func TestFailoverConfigErrorHintsAtEndpointPath(t *testing.T) {
	fs := &fakeStreamer{results: []attemptResult{
		{err: &UpstreamError{Deployment: "primary", Status: 404}},
		{err: &UpstreamError{Deployment: "primary", Status: 500}},
		{err: &UpstreamError{Deployment: "primary", Status: 500}},
		{err: &UpstreamError{Deployment: "fallback", Status: 500}},
	}}
	f, _ := newTestFailover(fs, "fallback", true)

	_, err := f.Start(context.Background(), nil, nil)
	require.Error(t, err)

	var ce *ConfigError
	require.ErrorAs(t, err, &ce, "one 404 anywhere in the sequence marks the run as misconfigured")
	assert.Equal(t, hintEndpointPath, ce.Hint)
}

func TestFailoverStopsWhenContextCancelledDuringBackoff(t *testing.T) {
	fs := &fakeStreamer{results: []attemptResult{
		{err: &UpstreamError{Deployment: "primary", Status: 500}},
	}}
	f := NewFailover(fs, "primary", "fallback", false, testLog())
	f.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	_, err := f.Start(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Len(t, fs.calls, 1)

	var ee *ExhaustedError
	assert.ErrorAs(t, err, &ee)
}

func TestSleepCtxHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sleepCtx(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
