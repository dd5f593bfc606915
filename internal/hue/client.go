package hue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Client talks to the Hue bridge over the v1 REST API.
type Client struct {
	address    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new Hue client
func NewClient(address, token string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		address: address,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Connect verifies the bridge is reachable and the token is valid.
func (c *Client) Connect(ctx context.Context) error {
	resp, err := c.request(ctx, "GET", "config", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to Hue bridge: %w", err)
	}
	resp.Body.Close()

	if _, err := c.GetLights(ctx); err != nil {
		return fmt.Errorf("bridge token rejected: %w", err)
	}

	log.Info().Str("address", c.address).Msg("Connected to Hue bridge")
	return nil
}

// Close closes the client
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) url(path string) string {
	return fmt.Sprintf("http://%s/api/%s/%s", c.address, c.token, path)
}

func (c *Client) request(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

// GetLights returns all lights known to the bridge.
func (c *Client) GetLights(ctx context.Context) ([]Light, error) {
	resp, err := c.request(ctx, "GET", "lights", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lights: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch lights: unexpected status code %d", resp.StatusCode)
	}

	var raw map[string]Light
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode lights: %w", err)
	}

	lights := make([]Light, 0, len(raw))
	for id, light := range raw {
		light.ID = id
		lights = append(lights, light)
	}

	return lights, nil
}

// GetScenes returns all scenes known to the bridge.
func (c *Client) GetScenes(ctx context.Context) ([]Scene, error) {
	resp, err := c.request(ctx, "GET", "scenes", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scenes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch scenes: unexpected status code %d", resp.StatusCode)
	}

	var raw map[string]Scene
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode scenes: %w", err)
	}

	scenes := make([]Scene, 0, len(raw))
	for id, scene := range raw {
		scene.ID = id
		scenes = append(scenes, scene)
	}

	return scenes, nil
}

// GetGroups returns all groups known to the bridge.
func (c *Client) GetGroups(ctx context.Context) ([]Group, error) {
	resp, err := c.request(ctx, "GET", "groups", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch groups: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch groups: unexpected status code %d", resp.StatusCode)
	}

	var raw map[string]Group
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode groups: %w", err)
	}

	groups := make([]Group, 0, len(raw))
	for id, group := range raw {
		group.ID = id
		groups = append(groups, group)
	}

	return groups, nil
}

// ActivateScene recalls a scene on the group of all lights (group 0).
// The bridge applies the scene's stored state to its member lights only.
func (c *Client) ActivateScene(ctx context.Context, sceneID string) error {
	body := strings.NewReader(fmt.Sprintf(`{"scene":%q}`, sceneID))
	resp, err := c.request(ctx, "PUT", "groups/0/action", body)
	if err != nil {
		return fmt.Errorf("failed to activate scene %s: %w", sceneID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to activate scene %s: %s", sceneID, string(body))
	}

	log.Debug().Str("scene", sceneID).Msg("Scene activated")
	return nil
}

// SetLightState turns a single light on or off.
func (c *Client) SetLightState(ctx context.Context, lightID string, on bool) error {
	body := strings.NewReader(fmt.Sprintf(`{"on":%t}`, on))
	resp, err := c.request(ctx, "PUT", fmt.Sprintf("lights/%s/state", lightID), body)
	if err != nil {
		return fmt.Errorf("failed to set light %s state: %w", lightID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to set light %s state: %s", lightID, string(body))
	}

	log.Debug().Str("light", lightID).Bool("on", on).Msg("Light state set")
	return nil
}

// Address returns the bridge address
func (c *Client) Address() string {
	return c.address
}
