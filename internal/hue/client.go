package hue

import (
	"bytes"
	"cmp"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Client provides access to the Hue v1 API of a single bridge.
// Without credentials only CreateUser is usable.
type Client struct {
	address     string
	credentials *Credentials
	httpClient  *http.Client
}

// NewClient creates a new Hue client
func NewClient(address string, credentials *Credentials, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	// Create HTTP client that ignores TLS verification (Hue bridge uses self-signed cert)
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}

	return &Client{
		address:     address,
		credentials: credentials,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Close closes the client
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Address returns the bridge address
func (c *Client) Address() string {
	return c.address
}

func (c *Client) baseURL() string {
	if strings.Contains(c.address, "://") {
		return strings.TrimSuffix(c.address, "/")
	}
	return "http://" + c.address
}

func (c *Client) v1URL(path string) string {
	if c.credentials == nil {
		return fmt.Sprintf("%s/api/%s", c.baseURL(), path)
	}
	return fmt.Sprintf("%s/api/%s/%s", c.baseURL(), c.credentials.Username, path)
}

func (c *Client) v1Request(ctx context.Context, method, url string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(data))
	}

	return data, nil
}

// result is one entry of a v1 response list
type result struct {
	Success map[string]json.RawMessage `json:"success,omitempty"`
	Error   *APIError                  `json:"error,omitempty"`
}

// isResultList reports whether a v1 response body is a list of success/error entries
func isResultList(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// decodeResults parses a v1 response list and returns the first bridge error, if any
func decodeResults(data []byte) ([]result, error) {
	var results []result
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to decode bridge response: %w", err)
	}
	for _, r := range results {
		if r.Error != nil {
			return nil, r.Error
		}
	}
	return results, nil
}

// CreateUser registers a new application on the bridge (requires the link button)
func (c *Client) CreateUser(ctx context.Context, appName, deviceName string) (*Credentials, error) {
	body := map[string]any{
		"devicetype":        fmt.Sprintf("%s#%s", appName, deviceName),
		"generateclientkey": true,
	}

	data, err := c.v1Request(ctx, http.MethodPost, c.baseURL()+"/api", body)
	if err != nil {
		return nil, err
	}

	results, err := decodeResults(data)
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		raw, ok := r.Success["username"]
		if !ok {
			continue
		}
		var creds Credentials
		if err := json.Unmarshal(raw, &creds.Username); err != nil {
			return nil, err
		}
		if key, ok := r.Success["clientkey"]; ok {
			if err := json.Unmarshal(key, &creds.ClientKey); err != nil {
				return nil, err
			}
		}

		log.Debug().Str("address", c.address).Str("devicetype", body["devicetype"].(string)).Msg("User created")
		return &creds, nil
	}

	return nil, fmt.Errorf("bridge did not return a username")
}

// Sensors returns all sensors ordered by numeric ID (v1 API)
func (c *Client) Sensors(ctx context.Context) ([]Sensor, error) {
	data, err := c.v1Request(ctx, http.MethodGet, c.v1URL("sensors"), nil)
	if err != nil {
		return nil, err
	}
	if isResultList(data) {
		if _, err := decodeResults(data); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("unexpected sensors response: %s", string(data))
	}

	var raw map[string]Sensor
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	sensors := make([]Sensor, 0, len(raw))
	for id, sensor := range raw {
		sensor.ID = id
		sensors = append(sensors, sensor)
	}
	slices.SortFunc(sensors, func(a, b Sensor) int {
		return compareIDs(a.ID, b.ID)
	})

	log.Debug().Int("sensors", len(sensors)).Msg("Sensors fetched")
	return sensors, nil
}

func compareIDs(a, b string) int {
	ai, errA := strconv.Atoi(a)
	bi, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return cmp.Compare(ai, bi)
	}
	return cmp.Compare(a, b)
}

// CreateSensor creates a generic flag sensor and returns it with its new ID
func (c *Client) CreateSensor(ctx context.Context, sensor *GenericFlag) (*GenericFlag, error) {
	data, err := c.v1Request(ctx, http.MethodPost, c.v1URL("sensors"), sensor)
	if err != nil {
		return nil, err
	}

	results, err := decodeResults(data)
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		raw, ok := r.Success["id"]
		if !ok {
			continue
		}
		created := *sensor
		if err := json.Unmarshal(raw, &created.ID); err != nil {
			return nil, err
		}

		log.Debug().Str("id", created.ID).Str("name", created.Name).Msg("Sensor created")
		return &created, nil
	}

	return nil, fmt.Errorf("bridge did not return an id for sensor '%s'", sensor.Name)
}

// UpdateSensorState pushes a new flag state and returns what the bridge acknowledged
func (c *Client) UpdateSensorState(ctx context.Context, id string, state FlagState) (*FlagAck, error) {
	data, err := c.v1Request(ctx, http.MethodPut, c.v1URL(fmt.Sprintf("sensors/%s/state", id)), state)
	if err != nil {
		return nil, err
	}

	results, err := decodeResults(data)
	if err != nil {
		return nil, err
	}

	var ack FlagAck
	for _, r := range results {
		for key, raw := range r.Success {
			if !strings.HasSuffix(key, "/state/flag") {
				continue
			}
			var flag bool
			if err := json.Unmarshal(raw, &flag); err != nil {
				return nil, err
			}
			ack.Flag = &flag
		}
	}

	log.Debug().Str("id", id).Bool("flag", state.Flag).Msg("Sensor state updated")
	return &ack, nil
}
