package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huepresence/internal/config"
	"github.com/dokzlo13/huepresence/internal/hue"
	"github.com/dokzlo13/huepresence/internal/ledger"
	"github.com/dokzlo13/huepresence/internal/presence"
)

// ErrLedgerDisabled is returned by History when no database is configured
var ErrLedgerDisabled = errors.New("ledger is disabled (set database.path)")

// App runs discovery, connect and set-presence in order.
type App struct {
	cfg      *config.Config
	services *Services
	stdout   io.Writer
	stderr   io.Writer
}

// New creates a new App from the configuration.
func New(cfg *config.Config) (*App, error) {
	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithServices(cfg, services), nil
}

// NewWithServices creates an App around prepared services.
func NewWithServices(cfg *config.Config, services *Services) *App {
	return &App{
		cfg:      cfg,
		services: services,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
}

// SetOutput redirects the informational output of the bridge client.
func (a *App) SetOutput(stdout, stderr io.Writer) {
	a.stdout = stdout
	a.stderr = stderr
}

// SensorName picks the sensor name: hook script, then presence.name, then hostname.
func (a *App) SensorName(hostname string, value bool) (string, error) {
	if a.services.Hook != nil {
		name, err := a.services.Hook.SensorName(hostname, value)
		if err != nil {
			return "", err
		}
		if name != "" {
			return name, nil
		}
	}
	if a.cfg.Presence.Name != "" {
		return a.cfg.Presence.Name, nil
	}
	return hostname, nil
}

func (a *App) presenceConfig() presence.Config {
	return presence.Config{
		Credentials:  hue.ParseCredentials(a.cfg.Hue.Credentials),
		AppName:      a.cfg.Hue.AppName,
		DeviceName:   a.cfg.Hue.DeviceName,
		Manufacturer: a.cfg.Presence.Manufacturer,
		Stdout:       a.stdout,
		Stderr:       a.stderr,
	}
}

// Run sets the presence flag of the sensor derived from hostname.
func (a *App) Run(ctx context.Context, hostname string, value bool) error {
	name, err := a.SensorName(hostname, value)
	if err != nil {
		return err
	}

	pcfg := a.presenceConfig()

	bridge, err := presence.Discover(ctx, a.services.Discoverer, a.services.Connector, pcfg)
	if err != nil {
		a.record(ledger.EventPresenceFailed, name, "", map[string]any{"error": err.Error()})
		return err
	}
	log.Info().Str("bridge", bridge.Address()).Msg("Using Hue bridge")

	session, err := bridge.Connect(ctx)
	if err != nil {
		a.record(ledger.EventPresenceFailed, name, bridge.Address(), map[string]any{"error": err.Error()})
		return err
	}
	if pcfg.Credentials == nil {
		a.record(ledger.EventUserCreated, name, bridge.Address(), map[string]any{
			"app":    pcfg.AppName,
			"device": pcfg.DeviceName,
		})
	}

	outcome, err := session.SetPresence(ctx, name, value)
	if err != nil {
		a.record(ledger.EventPresenceFailed, name, bridge.Address(), map[string]any{
			"flag":  value,
			"error": err.Error(),
		})
		return err
	}

	if outcome.Created {
		a.record(ledger.EventSensorCreated, name, bridge.Address(), map[string]any{
			"id":       outcome.Sensor.ID,
			"uniqueid": outcome.Sensor.UniqueID,
		})
	}
	a.record(ledger.EventPresenceSet, name, bridge.Address(), map[string]any{
		"id":   outcome.Sensor.ID,
		"flag": value,
	})
	a.prune()

	return nil
}

// record appends to the ledger when enabled; failures are only logged.
func (a *App) record(eventType ledger.EventType, sensor, bridge string, payload map[string]any) {
	if a.services.Ledger == nil {
		return
	}
	if err := a.services.Ledger.Append(eventType, sensor, bridge, payload); err != nil {
		log.Warn().Err(err).Str("event", string(eventType)).Msg("Failed to write ledger entry")
	}
}

func (a *App) prune() {
	if a.services.Ledger == nil {
		return
	}
	retention := time.Duration(a.cfg.Ledger.RetentionDays) * 24 * time.Hour
	deleted, err := a.services.Ledger.DeleteOlderThan(retention)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to prune ledger")
		return
	}
	if deleted > 0 {
		log.Debug().Int64("deleted", deleted).Msg("Ledger pruned")
	}
}

// History returns the newest ledger entries for the sensor derived from hostname.
func (a *App) History(hostname string, limit int) ([]*ledger.Entry, error) {
	if a.services.Ledger == nil {
		return nil, ErrLedgerDisabled
	}
	name, err := a.SensorName(hostname, false)
	if err != nil {
		return nil, err
	}
	entries, err := a.services.Ledger.History(name, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return entries, nil
}

// Close releases all resources.
func (a *App) Close() error {
	if a.services != nil {
		return a.services.Close()
	}
	return nil
}
