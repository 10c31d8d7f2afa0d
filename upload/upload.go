/*
Package upload implements the protocol used to push a packed image to the
panel controller over HTTP.

Every command is a POST to the controller's base address with the command
token appended to the path:

	EPDz_               initialise a send sequence
	<chunk>iodaLOAD_    append a chunk, more follow
	<chunk>acdaLOAD_    append the final chunk
	SHOW_               refresh the panel

The controller rebuilds the image purely from the order chunks arrive in so a
session is strictly sequential. Each command is tried up to three times and a
command that never succeeds ends the session without sending anything else.
SHOW_ is sent after a settle delay and its failure does not undo the
delivered image.
*/
package upload

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Protocol tokens
const (
	continueMarker = "iodaLOAD_"
	commitMarker   = "acdaLOAD_"
	showCommand    = "SHOW_"
)

// Defaults
const (
	DefaultRetries = 3
	DefaultTimeout = 30 * time.Second
	DefaultSettle  = 5 * time.Second
)

// HTTPClient is satisfied by *http.Client
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TransportError is returned once a command has used up all of its attempts.
type TransportError struct {
	Command  string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("upload: %s failed after %d attempts: %v", e.Command, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client sends images to panel controllers. The zero value is not usable,
// use NewClient.
type Client struct {
	HTTPClient HTTPClient
	Logger     *logrus.Logger

	// Retries is the number of attempts per command
	Retries int
	// Settle is how long to wait between the final chunk and SHOW_
	Settle time.Duration
	// Sleep is used to wait out Settle
	Sleep func(time.Duration)
}

// NewClient returns a client with the default timeout, retry budget and
// settle delay. A nil logger discards all output.
func NewClient(logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(ioutil.Discard)
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		Logger:     logger,
		Retries:    DefaultRetries,
		Settle:     DefaultSettle,
		Sleep:      time.Sleep,
	}
}

// BaseURL returns the address commands are appended to. A bare host or
// host:port is treated as plain HTTP.
func BaseURL(host string) string {
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	if !strings.HasSuffix(host, "/") {
		host += "/"
	}
	return host
}

func (c *Client) post(ctx context.Context, url string, body string) error {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(ioutil.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return nil
}
