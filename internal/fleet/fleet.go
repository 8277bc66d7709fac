// Package fleet tracks which game-server instances are alive and hands out
// placement targets for brand-new rooms.
package fleet

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"go.uber.org/zap"
)

var ErrNoInstances = errors.New("fleet: no server instances available")

// Instance is one live game server, addressed by the host clients connect to.
type Instance struct {
	Host string
}

// Discoverer reads current fleet membership from wherever the deployment
// platform records it.
type Discoverer interface {
	Instances(ctx context.Context) ([]Instance, error)
}

// DockerDiscoverer lists running containers carrying the configured label;
// the label's value is the instance's public host.
type DockerDiscoverer struct {
	cli   *client.Client
	label string
}

func NewDockerDiscoverer(label string) (*DockerDiscoverer, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	return &DockerDiscoverer{cli: cli, label: label}, nil
}

func (d *DockerDiscoverer) Instances(ctx context.Context) ([]Instance, error) {
	containers, err := d.cli.ContainerList(ctx, container.ListOptions{
		Filters: filters.NewArgs(filters.Arg("label", d.label)),
	})
	if err != nil {
		return nil, err
	}
	var out []Instance
	for _, c := range containers {
		if host := c.Labels[d.label]; host != "" {
			out = append(out, Instance{Host: host})
		}
	}
	// Stable order keeps the round-robin cursor meaningful across refreshes.
	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	return out, nil
}

// StaticDiscoverer is a fixed member list, for development and tests.
type StaticDiscoverer []Instance

func (s StaticDiscoverer) Instances(context.Context) ([]Instance, error) {
	return s, nil
}

// Selector is the round-robin placement picker. Membership is refreshed
// periodically, not per call: placement is rare relative to room lifetime and
// perfect balance is not a goal.
type Selector struct {
	disc Discoverer
	log  *zap.Logger

	mu        sync.Mutex
	instances []Instance
	cursor    int
}

func NewSelector(disc Discoverer, log *zap.Logger) *Selector {
	return &Selector{disc: disc, log: log}
}

func (s *Selector) Refresh(ctx context.Context) error {
	instances, err := s.disc.Instances(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.instances = instances
	if len(instances) == 0 {
		s.cursor = 0
	} else {
		s.cursor %= len(instances)
	}
	s.mu.Unlock()
	return nil
}

// Run refreshes membership on the given interval until ctx is cancelled.
// Refresh failures keep the previous member list.
func (s *Selector) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.log.Warn("fleet refresh failed", zap.Error(err))
			}
		}
	}
}

// Next returns the next instance in rotation, wrapping around.
func (s *Selector) Next() (Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.instances) == 0 {
		return Instance{}, ErrNoInstances
	}
	inst := s.instances[s.cursor]
	s.cursor = (s.cursor + 1) % len(s.instances)
	return inst, nil
}
