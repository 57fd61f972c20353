// Package master implements the client side of the cluster registration
// protocol: a fleet process registers with a central coordinator, logs in to
// receive its shard assignment, and reports ready once every shard is up.
package master

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/graxinc/errutil"
)

// ErrNotRegistered is returned when Login or Ready is called before a
// successful Register.
var ErrNotRegistered = errors.New("cluster is not registered")

type registerRequest struct {
	ShardCount int      `json:"shardCount"`
	Callback   callback `json:"callback"`
}

type callback struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

type registerResponse struct {
	ID string `json:"id"`
}

// LoginResponse is the coordinator's shard assignment for this cluster.
type LoginResponse struct {
	ShardList   []int `json:"shardList"`
	TotalShards int   `json:"totalShards"`
}

// Client talks to the cluster coordinator. The zero value is not usable;
// construct with NewClient.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *slog.Logger

	clusterID string
}

func NewClient(baseURL, token string, log *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

// ClusterID is the identity assigned at registration, empty before Register
// succeeds.
func (c *Client) ClusterID() string {
	return c.clusterID
}

// Register announces this cluster to the coordinator, handing over the
// callback the coordinator can use to reach the cluster's own API, and
// stores the assigned cluster ID for the rest of the handshake.
func (c *Client) Register(ctx context.Context, shardCount int, callbackURL, callbackToken string) error {
	req := registerRequest{
		ShardCount: shardCount,
		Callback:   callback{URL: callbackURL, Token: callbackToken},
	}

	var resp registerResponse
	if err := c.do(ctx, http.MethodPost, "/clusters", req, &resp); err != nil {
		return errutil.With(err)
	}
	if resp.ID == "" {
		return errutil.With(errors.New("coordinator returned an empty cluster id"))
	}

	c.clusterID = resp.ID
	c.log.Info("cluster registered", "cluster_id", c.clusterID)
	return nil
}

// Login asks the coordinator for this cluster's shard assignment. Must be
// called after Register.
func (c *Client) Login(ctx context.Context) (*LoginResponse, error) {
	if c.clusterID == "" {
		return nil, errutil.With(ErrNotRegistered)
	}

	var resp LoginResponse
	path := fmt.Sprintf("/clusters/%s/login", c.clusterID)
	if err := c.do(ctx, http.MethodPut, path, nil, &resp); err != nil {
		return nil, errutil.With(err)
	}

	c.log.Info("cluster logged in", "cluster_id", c.clusterID,
		"shards", len(resp.ShardList), "total_shards", resp.TotalShards)
	return &resp, nil
}

// Ready tells the coordinator every shard in this cluster is serving. Must
// be called after Register.
func (c *Client) Ready(ctx context.Context) error {
	if c.clusterID == "" {
		return errutil.With(ErrNotRegistered)
	}

	path := fmt.Sprintf("/clusters/%s/ready", c.clusterID)
	if err := c.do(ctx, http.MethodPut, path, nil, nil); err != nil {
		return errutil.With(err)
	}

	c.log.Info("cluster marked ready", "cluster_id", c.clusterID)
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errutil.With(err)
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return errutil.With(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errutil.With(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errutil.With(fmt.Errorf("coordinator returned %d: %s", resp.StatusCode, msg))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errutil.With(err)
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return nil
}
