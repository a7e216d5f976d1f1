// Package presence toggles a named generic flag sensor on a Hue bridge.
//
// The connection lifecycle is modelled by types: Discover yields a Bridge,
// Bridge.Connect yields a Session, and only a Session can set presence.
package presence

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huepresence/internal/config"
	"github.com/dokzlo13/huepresence/internal/hue"
)

// Attributes of sensors created by SetPresence
const (
	SensorModelID   = "software"
	SensorSwVersion = "1.0"
)

// Config contains everything the bridge client needs besides the network
type Config struct {
	Credentials  *hue.Credentials // nil triggers the link button handshake
	AppName      string
	DeviceName   string
	Manufacturer string
	Stdout       io.Writer
	Stderr       io.Writer
}

func (c Config) stdout() io.Writer {
	if c.Stdout == nil {
		return os.Stdout
	}
	return c.Stdout
}

func (c Config) stderr() io.Writer {
	if c.Stderr == nil {
		return os.Stderr
	}
	return c.Stderr
}

// Bridge is a discovered but not yet authenticated bridge
type Bridge struct {
	address   string
	connector Connector
	cfg       Config
}

// NewBridge creates a Bridge for a known address
func NewBridge(address string, connector Connector, cfg Config) *Bridge {
	return &Bridge{
		address:   address,
		connector: connector,
		cfg:       cfg,
	}
}

// Discover returns a Bridge bound to the first bridge reported by the discoverer
func Discover(ctx context.Context, discoverer hue.Discoverer, connector Connector, cfg Config) (*Bridge, error) {
	bridges, err := discoverer.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover bridges: %w", err)
	}
	if len(bridges) == 0 {
		return nil, ErrDiscovery
	}

	log.Debug().
		Int("found", len(bridges)).
		Str("address", bridges[0].IPAddress).
		Msg("Bridge discovered")

	return NewBridge(bridges[0].IPAddress, connector, cfg), nil
}

// Address returns the bridge address
func (b *Bridge) Address() string {
	return b.address
}

// Connect authenticates against the bridge, reusing configured credentials
// or creating a new user when none are configured
func (b *Bridge) Connect(ctx context.Context) (*Session, error) {
	credentials := b.cfg.Credentials
	if credentials == nil {
		created, err := b.createCredentials(ctx)
		if err != nil {
			return nil, err
		}
		credentials = created
	}

	return &Session{
		address: b.address,
		cfg:     b.cfg,
		api:     b.connector.Authenticated(b.address, *credentials),
	}, nil
}

func (b *Bridge) createCredentials(ctx context.Context) (*hue.Credentials, error) {
	handshaker := b.connector.Unauthenticated(b.address)

	user, err := handshaker.CreateUser(ctx, b.cfg.AppName, b.cfg.DeviceName)
	if err != nil {
		if hue.IsLinkButtonNotPressed(err) {
			fmt.Fprintf(b.cfg.stderr(), "Press the Link button on %s and re-run.\n", b.address)
		}
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	log.Info().Str("address", b.address).Msg("Created a new user")

	out := b.cfg.stdout()
	fmt.Fprintf(out, "Created a new user on %s:\n", b.address)
	fmt.Fprintf(out, "%s=\"%s\"\n", config.CredentialsEnv, user)

	return user, nil
}

// Session is a connected bridge. The zero value is not connected.
type Session struct {
	address string
	cfg     Config
	api     API
}

// Outcome describes a successful SetPresence call
type Outcome struct {
	Sensor  *hue.GenericFlag
	Created bool
}

// Address returns the bridge address
func (s *Session) Address() string {
	if s == nil {
		return ""
	}
	return s.address
}

// SetPresence sets the flag of the generic flag sensor called name,
// creating the sensor first when the bridge has none
func (s *Session) SetPresence(ctx context.Context, name string, value bool) (*Outcome, error) {
	if s == nil || s.api == nil {
		return nil, ErrUsage
	}

	sensor, created, err := s.getOrCreatePresenceSensor(ctx, name)
	if err != nil {
		return nil, err
	}

	sensor.State.Flag = value
	ack, err := s.api.UpdateSensorState(ctx, sensor.ID, sensor.State)
	if err != nil {
		return nil, fmt.Errorf("failed to update sensor '%s': %w", name, err)
	}
	if ack == nil || ack.Flag == nil || *ack.Flag != value {
		return nil, &UpdateFailedError{Sensor: sensor, Requested: value}
	}

	log.Info().
		Str("sensor", sensor.Name).
		Str("id", sensor.ID).
		Bool("flag", value).
		Msg("Presence updated")

	return &Outcome{Sensor: sensor, Created: created}, nil
}

func (s *Session) getOrCreatePresenceSensor(ctx context.Context, name string) (*hue.GenericFlag, bool, error) {
	sensor, err := s.getPresenceSensor(ctx, name)
	if err != nil {
		return nil, false, err
	}
	if sensor != nil {
		return sensor, false, nil
	}

	sensor, err = s.createPresenceSensor(ctx, name)
	if err != nil {
		return nil, false, err
	}
	return sensor, true, nil
}

func (s *Session) getPresenceSensor(ctx context.Context, name string) (*hue.GenericFlag, error) {
	sensors, err := s.api.Sensors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sensors: %w", err)
	}

	for _, sensor := range sensors {
		flag, ok := sensor.GenericFlag()
		if ok && flag.Name == name {
			return flag, nil
		}
	}
	return nil, nil
}

func (s *Session) createPresenceSensor(ctx context.Context, name string) (*hue.GenericFlag, error) {
	sensor := &hue.GenericFlag{
		Name:             name,
		Type:             hue.TypeGenericFlag,
		ModelID:          SensorModelID,
		SwVersion:        SensorSwVersion,
		ManufacturerName: s.cfg.Manufacturer,
		UniqueID:         uuid.NewString(),
		State:            hue.FlagState{Flag: false},
	}

	created, err := s.api.CreateSensor(ctx, sensor)
	if err != nil {
		return nil, fmt.Errorf("failed to create sensor '%s': %w", name, err)
	}

	fmt.Fprintf(s.cfg.stdout(), "Created sensor %s\n", created.Name)
	return created, nil
}
