// Package services talks to a running dbpoold over its stats endpoints.
package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/soldatov-s/go-dbpool/app"
)

const (
	// Default value of remote request timeout
	defaultRemoteTimeout = time.Second * 3
)

var ErrRemoteStatus = errors.New("remote service answered with bad status")

// RemoteStatus is the status of every enity of a remote service, keyed by
// enity full name.
type RemoteStatus map[string]json.RawMessage

type statusAnsw struct {
	Result RemoteStatus `json:"result"`
}

// Client requests a remote dbpoold.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultRemoteTimeout},
	}
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}

	response, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer response.Body.Close()

	contents, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return contents, errors.Wrapf(ErrRemoteStatus, "%s: %d", endpoint, response.StatusCode)
	}

	return contents, nil
}

// Ready checks that every enity of the remote service is ready.
func (c *Client) Ready(ctx context.Context) error {
	_, err := c.get(ctx, app.ReadyEndpoint)
	return err
}

// Status fetches the status report of the remote service.
func (c *Client) Status(ctx context.Context) (RemoteStatus, error) {
	contents, err := c.get(ctx, app.StatusEndpoint)
	if err != nil {
		return nil, err
	}

	answ := &statusAnsw{}
	if len(contents) == 0 {
		return RemoteStatus{}, nil
	}

	if err := json.Unmarshal(contents, answ); err != nil {
		return nil, errors.Wrap(err, "unmarshal status")
	}

	return answ.Result, nil
}
