package httpmiddleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func response(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(""))}
}

func TestRetryRecoversAfterServerError(t *testing.T) {
	calls := 0
	rt := Retry(discardLogger(), 3, time.Millisecond)(RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		calls++
		if calls < 3 {
			return response(http.StatusServiceUnavailable), nil
		}
		return response(http.StatusOK), nil
	}))

	req, err := http.NewRequest(http.MethodGet, "http://broker.local/ltp", nil)
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUpAfterAttempts(t *testing.T) {
	calls := 0
	rt := Retry(discardLogger(), 2, time.Millisecond)(RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		calls++
		return response(http.StatusBadGateway), nil
	}))

	req, err := http.NewRequest(http.MethodGet, "http://broker.local/ltp", nil)
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, 2, calls)
}

func TestRetrySkipsNonReplayablePost(t *testing.T) {
	calls := 0
	rt := Retry(discardLogger(), 3, time.Millisecond)(RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		calls++
		return response(http.StatusServiceUnavailable), nil
	}))

	req, err := http.NewRequest(http.MethodPost, "http://broker.local/placeorder", strings.NewReader(`{}`))
	require.NoError(t, err)
	req.GetBody = nil // тело нельзя воспроизвести

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestRetryReplaysBufferedBody(t *testing.T) {
	var bodies []string
	inner := RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		b, _ := io.ReadAll(req.Body)
		bodies = append(bodies, string(b))
		if len(bodies) < 2 {
			return response(http.StatusServiceUnavailable), nil
		}
		return response(http.StatusOK), nil
	})
	rt := Wrap(inner, ReplayableBody, Retry(discardLogger(), 3, time.Millisecond))

	req, err := http.NewRequest(http.MethodPut, "http://mirror.local/contents/doc.json",
		bytes.NewReader([]byte(`{"a":1}`)))
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{`{"a":1}`, `{"a":1}`}, bodies)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "abcd********", MaskToken("abcdefghijkl"))
	assert.Equal(t, "***", MaskToken("key"))
}
