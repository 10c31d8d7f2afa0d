package upload

import (
	"context"
	"errors"
	"io/ioutil"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bodgit/acep/palette"
	"github.com/jarcoal/httpmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = "http://192.168.1.50/"

type recorder struct {
	mu       sync.Mutex
	requests []string
	bodies   []string
	types    []string
	attempts map[string]int
	// fail returns a non-nil error or status for the given attempt
	fail func(url string, attempt int) (int, error)
}

func (r *recorder) responder(req *http.Request) (*http.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	url := req.URL.String()
	r.attempts[url]++
	r.requests = append(r.requests, strings.TrimPrefix(url, base))
	r.types = append(r.types, req.Header.Get("Content-Type"))

	var body string
	if req.Body != nil {
		b, _ := ioutil.ReadAll(req.Body)
		body = string(b)
	}
	r.bodies = append(r.bodies, body)

	if r.fail != nil {
		status, err := r.fail(url, r.attempts[url])
		if err != nil {
			return nil, err
		}
		if status != 0 {
			return httpmock.NewStringResponse(status, "error"), nil
		}
	}
	return httpmock.NewStringResponse(http.StatusOK, "OK"), nil
}

func newTestClient(t *testing.T, r *recorder) (*Client, *[]time.Duration) {
	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	t.Cleanup(httpmock.DeactivateAndReset)

	r.attempts = make(map[string]int)
	httpmock.RegisterNoResponder(r.responder)

	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)

	c := NewClient(logger)
	c.HTTPClient = hc

	var slept []time.Duration
	c.Sleep = func(d time.Duration) { slept = append(slept, d) }
	return c, &slept
}

func TestUpload(t *testing.T) {
	r := &recorder{}
	c, slept := newTestClient(t, r)

	res, err := c.Upload(context.Background(), "192.168.1.50", "", []string{"abcd", "efgh", "ab"})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, Done, res.State)
	assert.Equal(t, 3, res.Sent)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 5, res.Attempts)
	assert.NoError(t, res.ShowErr)

	assert.Equal(t, []string{
		"EPDz_",
		"abcdiodaLOAD_",
		"efghiodaLOAD_",
		"abacdaLOAD_",
		"SHOW_",
	}, r.requests)
	assert.Equal(t, []string{"", "abcd", "efgh", "ab", ""}, r.bodies)
	for _, ct := range r.types {
		assert.Equal(t, "application/octet-stream", ct)
	}
	assert.Equal(t, []time.Duration{DefaultSettle}, *slept)
}

func TestSingleChunk(t *testing.T) {
	r := &recorder{}
	c, _ := newTestClient(t, r)

	res, err := c.Upload(context.Background(), "http://192.168.1.50", "EPDx_", []string{"aa"})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, []string{"EPDx_", "aaacdaLOAD_", "SHOW_"}, r.requests)
}

func TestRetriesSucceedOnThirdAttempt(t *testing.T) {
	r := &recorder{
		fail: func(url string, attempt int) (int, error) {
			if attempt < 3 {
				return http.StatusInternalServerError, nil
			}
			return 0, nil
		},
	}
	c, _ := newTestClient(t, r)

	res, err := c.Upload(context.Background(), "192.168.1.50", "", []string{"abcd", "efgh"})
	require.NoError(t, err)
	assert.Equal(t, Done, res.State)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 4*3, res.Attempts)
	assert.NoError(t, res.ShowErr)
}

func TestAlwaysFailing(t *testing.T) {
	r := &recorder{
		fail: func(string, int) (int, error) {
			return 0, errors.New("connection refused")
		},
	}
	c, slept := newTestClient(t, r)

	res, err := c.Upload(context.Background(), "192.168.1.50", "", []string{"abcd", "efgh"})
	require.Error(t, err)
	assert.Equal(t, Failed, res.State)
	assert.False(t, res.OK())
	assert.Equal(t, 0, res.Sent)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "EPDz_", te.Command)
	assert.Equal(t, 3, te.Attempts)
	assert.Contains(t, err.Error(), "connection refused")

	// Nothing after the init command
	assert.Equal(t, []string{"EPDz_", "EPDz_", "EPDz_"}, r.requests)
	assert.Empty(t, *slept)
}

func TestChunkFailureAborts(t *testing.T) {
	r := &recorder{
		fail: func(url string, attempt int) (int, error) {
			if strings.HasPrefix(url, base+"efgh") {
				return http.StatusServiceUnavailable, nil
			}
			return 0, nil
		},
	}
	c, slept := newTestClient(t, r)

	res, err := c.Upload(context.Background(), "192.168.1.50", "", []string{"abcd", "efgh", "ijkl"})
	require.Error(t, err)
	assert.Equal(t, Failed, res.State)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 3, res.Total)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "<chunk>iodaLOAD_", te.Command)
	assert.EqualError(t, te.Err, "HTTP 503 Service Unavailable")

	assert.Equal(t, []string{
		"EPDz_",
		"abcdiodaLOAD_",
		"efghiodaLOAD_",
		"efghiodaLOAD_",
		"efghiodaLOAD_",
	}, r.requests)
	assert.Empty(t, *slept)
}

func TestShowFailureStillDone(t *testing.T) {
	r := &recorder{
		fail: func(url string, attempt int) (int, error) {
			if url == base+"SHOW_" {
				return http.StatusInternalServerError, nil
			}
			return 0, nil
		},
	}
	c, _ := newTestClient(t, r)

	res, err := c.Upload(context.Background(), "192.168.1.50", "", []string{"abcd"})
	require.NoError(t, err)
	assert.Equal(t, Done, res.State)
	assert.True(t, res.OK())
	assert.Equal(t, 1, res.Sent)
	assert.Error(t, res.ShowErr)
}

func TestNoChunks(t *testing.T) {
	r := &recorder{}
	c, _ := newTestClient(t, r)

	_, err := c.Upload(context.Background(), "192.168.1.50", "", nil)
	assert.Error(t, err)
	assert.Empty(t, r.requests)
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://10.0.0.2/", BaseURL("10.0.0.2"))
	assert.Equal(t, "http://10.0.0.2:8080/", BaseURL("10.0.0.2:8080"))
	assert.Equal(t, "https://panel.local/", BaseURL("https://panel.local/"))
}

func TestStateString(t *testing.T) {
	for s, name := range map[State]string{Init: "init", Sending: "sending", Finalizing: "finalizing", Done: "done", Failed: "failed"} {
		assert.Equal(t, name, s.String())
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(nil)
	assert.Equal(t, DefaultRetries, c.Retries)
	assert.Equal(t, DefaultSettle, c.Settle)
	hc, ok := c.HTTPClient.(*http.Client)
	require.True(t, ok)
	assert.Equal(t, DefaultTimeout, hc.Timeout)
}

func TestDefaultInitCommand(t *testing.T) {
	r := &recorder{}
	c, _ := newTestClient(t, r)

	_, err := c.Upload(context.Background(), "192.168.1.50", "", []string{"ab"})
	require.NoError(t, err)
	require.NotEmpty(t, r.requests)
	assert.Equal(t, palette.DefaultInitCommand, r.requests[0])
}
