package presence

import (
	"context"
	"time"

	"github.com/dokzlo13/huepresence/internal/hue"
)

// Handshaker performs the unauthenticated user creation handshake
type Handshaker interface {
	CreateUser(ctx context.Context, appName, deviceName string) (*hue.Credentials, error)
}

// API is the authenticated part of the bridge used to manage sensors
type API interface {
	Sensors(ctx context.Context) ([]hue.Sensor, error)
	CreateSensor(ctx context.Context, sensor *hue.GenericFlag) (*hue.GenericFlag, error)
	UpdateSensorState(ctx context.Context, id string, state hue.FlagState) (*hue.FlagAck, error)
}

// Connector creates bridge clients for an address
type Connector interface {
	Unauthenticated(address string) Handshaker
	Authenticated(address string, credentials hue.Credentials) API
}

// HueConnector creates hue.Client instances
type HueConnector struct {
	Timeout time.Duration
}

// NewHueConnector creates a connector with the given HTTP timeout
func NewHueConnector(timeout time.Duration) *HueConnector {
	return &HueConnector{Timeout: timeout}
}

// Unauthenticated returns a client without credentials
func (c *HueConnector) Unauthenticated(address string) Handshaker {
	return hue.NewClient(address, nil, c.Timeout)
}

// Authenticated returns a client bound to the given credentials
func (c *HueConnector) Authenticated(address string, credentials hue.Credentials) API {
	return hue.NewClient(address, &credentials, c.Timeout)
}
