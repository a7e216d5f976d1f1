package hue

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SensorType is the v1 "type" tag of a sensor
type SensorType string

// Known sensor types (v1 API). Unknown types are kept as-is.
const (
	TypeGenericFlag   SensorType = "CLIPGenericFlag"
	TypeGenericStatus SensorType = "CLIPGenericStatus"
	TypeCLIPPresence  SensorType = "CLIPPresence"
	TypeZLLPresence   SensorType = "ZLLPresence"
	TypeDaylight      SensorType = "Daylight"
)

// Credentials represents a whitelisted user on the bridge
type Credentials struct {
	Username  string `json:"username"`
	ClientKey string `json:"clientkey"`
}

// ParseCredentials splits "<username>:<clientkey>" on the first colon.
// Returns nil for an empty value.
func ParseCredentials(value string) *Credentials {
	if value == "" {
		return nil
	}
	username, clientKey, _ := strings.Cut(value, ":")
	return &Credentials{Username: username, ClientKey: clientKey}
}

// String renders credentials in the "<username>:<clientkey>" form
func (c Credentials) String() string {
	return fmt.Sprintf("%s:%s", c.Username, c.ClientKey)
}

// Sensor represents any sensor returned by the bridge (v1 API)
type Sensor struct {
	ID               string          `json:"-"`
	Name             string          `json:"name"`
	Type             SensorType      `json:"type"`
	ModelID          string          `json:"modelid"`
	SwVersion        string          `json:"swversion"`
	ManufacturerName string          `json:"manufacturername"`
	UniqueID         string          `json:"uniqueid,omitempty"`
	State            json.RawMessage `json:"state,omitempty"`
}

// GenericFlag returns the sensor as a generic flag sensor.
// The second result is false for any other sensor type.
func (s Sensor) GenericFlag() (*GenericFlag, bool) {
	if s.Type != TypeGenericFlag {
		return nil, false
	}

	flag := &GenericFlag{
		ID:               s.ID,
		Name:             s.Name,
		Type:             s.Type,
		ModelID:          s.ModelID,
		SwVersion:        s.SwVersion,
		ManufacturerName: s.ManufacturerName,
		UniqueID:         s.UniqueID,
	}
	if len(s.State) > 0 {
		// A malformed state leaves the flag false
		_ = json.Unmarshal(s.State, &flag.State)
	}
	return flag, true
}

// FlagState is the state of a generic flag sensor
type FlagState struct {
	Flag bool `json:"flag"`
}

// GenericFlag represents a CLIPGenericFlag sensor
type GenericFlag struct {
	ID               string     `json:"id,omitempty"`
	Name             string     `json:"name"`
	Type             SensorType `json:"type"`
	ModelID          string     `json:"modelid"`
	SwVersion        string     `json:"swversion"`
	ManufacturerName string     `json:"manufacturername"`
	UniqueID         string     `json:"uniqueid"`
	State            FlagState  `json:"state"`
}

// FlagAck is the state acknowledged by the bridge after an update.
// Flag is nil when the bridge did not report the flag.
type FlagAck struct {
	Flag *bool `json:"flag,omitempty"`
}

// DiscoveredBridge is one entry of a nupnp discovery response
type DiscoveredBridge struct {
	ID        string `json:"id"`
	IPAddress string `json:"internalipaddress"`
}
