package app

import (
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huepresence/internal/config"
	"github.com/dokzlo13/huepresence/internal/db"
	"github.com/dokzlo13/huepresence/internal/hue"
	"github.com/dokzlo13/huepresence/internal/ledger"
	"github.com/dokzlo13/huepresence/internal/lua"
	"github.com/dokzlo13/huepresence/internal/presence"
)

// Services is a container for everything a run needs.
// DB, Ledger and Hook are nil when not configured.
type Services struct {
	Discoverer hue.Discoverer
	Connector  presence.Connector

	DB     *db.DB
	Ledger *ledger.Ledger
	Hook   *lua.Hook
}

// NewServices creates all services from the configuration.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{
		Discoverer: newDiscoverer(cfg),
		Connector:  presence.NewHueConnector(cfg.Hue.Timeout.Duration()),
	}

	if cfg.Database.Path != "" {
		database, err := db.Open(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		s.DB = database
		s.Ledger = ledger.New(database.DB)
		log.Debug().Str("path", cfg.Database.Path).Msg("Ledger opened")
	}

	if cfg.Presence.Script != "" {
		hook, err := lua.LoadHook(cfg.Presence.Script)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Hook = hook
		log.Debug().Str("script", cfg.Presence.Script).Msg("Hook script loaded")
	}

	return s, nil
}

func newDiscoverer(cfg *config.Config) hue.Discoverer {
	if cfg.Hue.Bridge != "" {
		return hue.StaticDiscoverer{Address: cfg.Hue.Bridge}
	}
	return hue.NewNupnpDiscoverer()
}

// Close releases all resources.
func (s *Services) Close() error {
	if s.Hook != nil {
		s.Hook.Close()
	}
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}
