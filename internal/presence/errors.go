package presence

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dokzlo13/huepresence/internal/hue"
)

var (
	// ErrDiscovery is returned when no bridge was found on the network
	ErrDiscovery = errors.New("did not find any Hue bridges on the network")

	// ErrAuthentication wraps every failed user creation handshake
	ErrAuthentication = errors.New("failed to authenticate with the Hue bridge")

	// ErrUsage is returned when the bridge API is used before Connect succeeded
	ErrUsage = errors.New("call Connect() before using the API")
)

// UpdateFailedError is returned when the bridge acknowledged a flag value
// other than the requested one
type UpdateFailedError struct {
	Sensor    *hue.GenericFlag
	Requested bool
}

func (e *UpdateFailedError) Error() string {
	dump, err := json.Marshal(e.Sensor)
	if err != nil {
		dump = []byte(fmt.Sprintf("%+v", e.Sensor))
	}
	return fmt.Sprintf("Failed to update sensor state:\n%s", dump)
}
