package hue

import (
	"context"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"
)

// Discoverer finds bridges reachable from the local network
type Discoverer interface {
	Discover(ctx context.Context) ([]DiscoveredBridge, error)
}

// NupnpDiscoverer queries the meethue nupnp discovery service through huego
type NupnpDiscoverer struct {
	discover func(ctx context.Context) ([]huego.Bridge, error)
}

// NewNupnpDiscoverer creates a discoverer backed by huego.DiscoverAllContext
func NewNupnpDiscoverer() *NupnpDiscoverer {
	return &NupnpDiscoverer{discover: huego.DiscoverAllContext}
}

// Discover returns the bridges in the order reported by the discovery service
func (d *NupnpDiscoverer) Discover(ctx context.Context) ([]DiscoveredBridge, error) {
	bridges, err := d.discover(ctx)
	if err != nil {
		return nil, err
	}

	found := make([]DiscoveredBridge, 0, len(bridges))
	for _, b := range bridges {
		found = append(found, DiscoveredBridge{ID: b.ID, IPAddress: b.Host})
	}

	log.Debug().Int("bridges", len(found)).Msg("nupnp discovery finished")
	return found, nil
}

// StaticDiscoverer always reports a single configured bridge
type StaticDiscoverer struct {
	Address string
}

// Discover returns the configured bridge
func (d StaticDiscoverer) Discover(ctx context.Context) ([]DiscoveredBridge, error) {
	return []DiscoveredBridge{{IPAddress: d.Address}}, nil
}
