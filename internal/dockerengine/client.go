package dockerengine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"

	"github.com/xrayctl/enginegate/internal/core"
)

// Compile-time check that Client satisfies the capability surface.
var _ core.EngineClient = (*Client)(nil)

// Client is an EngineClient backed by the Docker SDK. One Client wraps one
// daemon connection and is safe for use by a single lease holder at a time,
// which is what the pool's exclusivity contract guarantees.
type Client struct {
	cli *client.Client
}

// Dialer returns an EngineDialer that opens Docker connections from the
// environment (DOCKER_HOST, DOCKER_API_VERSION, ...). This is the default
// dialer wired by enginegate.New.
func Dialer() core.EngineDialer {
	return func(ctx context.Context) (core.EngineClient, error) {
		return Dial(ctx)
	}
}

// Dial opens a connection to the Docker daemon and verifies it with a ping,
// so a dead daemon surfaces at acquire time rather than on the first
// operation.
func Dial(ctx context.Context) (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	if _, err := cli.Ping(ctx); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("ping docker daemon: %w", err)
	}
	return &Client{cli: cli}, nil
}

// List returns summaries of containers matching the filter, including
// stopped ones.
func (c *Client) List(ctx context.Context, filter core.Filter) ([]core.ContainerSummary, error) {
	opts := container.ListOptions{All: true}
	if args := filterArgs(filter); args.Len() > 0 {
		opts.Filters = args
	}

	listed, err := c.cli.ContainerList(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	summaries := make([]core.ContainerSummary, 0, len(listed))
	for _, ct := range listed {
		summaries = append(summaries, toSummary(ct))
	}
	return summaries, nil
}

// Inspect returns the detail for one container.
func (c *Client) Inspect(ctx context.Context, id string) (core.ContainerDetail, error) {
	resp, err := c.cli.ContainerInspect(ctx, id)
	if err != nil {
		return core.ContainerDetail{}, fmt.Errorf("inspect container %s: %w", id, err)
	}
	return toDetail(resp), nil
}

// Stats returns a one-shot resource usage snapshot. The SDK call is made
// with streaming disabled, so exactly one sample is read.
func (c *Client) Stats(ctx context.Context, id string) (core.ContainerStats, error) {
	resp, err := c.cli.ContainerStats(ctx, id, false)
	if err != nil {
		return core.ContainerStats{}, fmt.Errorf("stats for container %s: %w", id, err)
	}
	defer resp.Body.Close()

	var raw container.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return core.ContainerStats{}, fmt.Errorf("decode stats for container %s: %w", id, err)
	}
	return toStats(id, raw), nil
}

// Start starts the container.
func (c *Client) Start(ctx context.Context, id string) error {
	if err := c.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return fmt.Errorf("start container %s: %w", id, err)
	}
	return nil
}

// Stop stops the container using the engine's default grace period.
func (c *Client) Stop(ctx context.Context, id string) error {
	if err := c.cli.ContainerStop(ctx, id, container.StopOptions{}); err != nil {
		return fmt.Errorf("stop container %s: %w", id, err)
	}
	return nil
}

// Restart restarts the container using the engine's default grace period.
func (c *Client) Restart(ctx context.Context, id string) error {
	if err := c.cli.ContainerRestart(ctx, id, container.StopOptions{}); err != nil {
		return fmt.Errorf("restart container %s: %w", id, err)
	}
	return nil
}

// Ping is the lightweight probe used by pool health checks.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.cli.Ping(ctx); err != nil {
		return fmt.Errorf("ping docker daemon: %w", err)
	}
	return nil
}

// Close releases the daemon connection.
func (c *Client) Close() error {
	return c.cli.Close()
}

// filterArgs translates a Filter into Docker list filters.
func filterArgs(f core.Filter) filters.Args {
	args := filters.NewArgs()
	if f.Name != "" {
		args.Add("name", f.Name)
	}
	if f.Label != "" {
		args.Add("label", f.Label)
	}
	return args
}
