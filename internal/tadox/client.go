// Package tadox implements a client for the Tadoº X API.
//
// Tadoº X homes are served by two APIs: my.tado.com (account, presence,
// mobile devices) and hops.tado.com (rooms & devices). Both use the same
// OAuth2 bearer token, obtained through the device authorization flow (see
// NewTokenSource).
package tadox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
)

const (
	myAPIURL   = "https://my.tado.com/api/v2"
	hopsAPIURL = "https://hops.tado.com"
)

// ErrNotFound indicates the requested resource does not exist.
var ErrNotFound = errors.New("not found")

// An APIError is returned when the Tado API rejects a request.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return "tado: " + strconv.Itoa(e.StatusCode) + " " + e.Message
}

// A TokenInvalidator discards a cached access token so that the next request
// is made with a freshly obtained one.
type TokenInvalidator interface {
	Invalidate()
}

// A Client calls the Tadoº X APIs for one home. HomeId must be set before
// calling any of the home-scoped methods; GetMe works without it.
type Client struct {
	HTTPClient *http.Client
	HomeId     int

	// Auth, if set, is invalidated when the server rejects the current
	// token, and the request is retried once.
	Auth TokenInvalidator

	// overridden in tests
	myURL   string
	hopsURL string
}

// New returns a Client using the provided http.Client for transport. The
// http.Client is expected to inject the OAuth2 bearer token (see
// NewTokenSource and oauth2.NewClient).
func New(httpClient *http.Client) *Client {
	return &Client{
		HTTPClient: httpClient,
		myURL:      myAPIURL,
		hopsURL:    hopsAPIURL,
	}
}

// GetMe returns the user's account information, including the homes it has access to.
func (c *Client) GetMe(ctx context.Context) (Me, error) {
	return call[Me](ctx, c, http.MethodGet, c.myURL+"/me", nil)
}

// GetHomeState returns the home's presence state.
func (c *Client) GetHomeState(ctx context.Context) (HomeState, error) {
	return call[HomeState](ctx, c, http.MethodGet, c.myURL+"/homes/"+strconv.Itoa(c.HomeId)+"/state", nil)
}

// SetPresence sets the home's presence to HOME or AWAY.
func (c *Client) SetPresence(ctx context.Context, presence Presence) error {
	body := struct {
		Presence Presence `json:"presence"`
	}{Presence: presence}
	_, err := call[empty](ctx, c, http.MethodPut, c.myURL+"/homes/"+strconv.Itoa(c.HomeId)+"/presence", body)
	return err
}

// GetMobileDevices returns all mobile devices registered to the home.
func (c *Client) GetMobileDevices(ctx context.Context) ([]MobileDevice, error) {
	return call[[]MobileDevice](ctx, c, http.MethodGet, c.myURL+"/homes/"+strconv.Itoa(c.HomeId)+"/mobileDevices", nil)
}

// GetRooms returns all rooms with their current state.
func (c *Client) GetRooms(ctx context.Context) ([]Room, error) {
	return call[[]Room](ctx, c, http.MethodGet, c.homeURL("/rooms"), nil)
}

// GetRoomsAndDevices returns all rooms with the devices installed in them.
func (c *Client) GetRoomsAndDevices(ctx context.Context) (RoomsAndDevices, error) {
	return call[RoomsAndDevices](ctx, c, http.MethodGet, c.homeURL("/roomsAndDevices"), nil)
}

// SetRoomTemperature sets a room's target temperature through manual control.
// A zero duration creates a manual control that lasts until the next schedule change.
func (c *Client) SetRoomTemperature(ctx context.Context, roomId int, temperature float64, durationSeconds int) error {
	mc := ManualControl{
		Setting:     ManualControlSetting{Power: "ON", Temperature: &Temperature{Value: temperature}},
		Termination: ManualControlTermination{Type: "NEXT_TIME_BLOCK"},
	}
	if durationSeconds > 0 {
		mc.Termination = ManualControlTermination{Type: "TIMER", RemainingTimeInSeconds: &durationSeconds}
	}
	_, err := call[empty](ctx, c, http.MethodPost, c.homeURL("/rooms/"+strconv.Itoa(roomId)+"/manualControl"), mc)
	return err
}

// SetRoomOff turns off heating for a room (frost protection).
func (c *Client) SetRoomOff(ctx context.Context, roomId int, durationSeconds int) error {
	mc := ManualControl{
		Setting:     ManualControlSetting{Power: "OFF"},
		Termination: ManualControlTermination{Type: "NEXT_TIME_BLOCK"},
	}
	if durationSeconds > 0 {
		mc.Termination = ManualControlTermination{Type: "TIMER", RemainingTimeInSeconds: &durationSeconds}
	}
	_, err := call[empty](ctx, c, http.MethodPost, c.homeURL("/rooms/"+strconv.Itoa(roomId)+"/manualControl"), mc)
	return err
}

// ResumeSchedule removes a room's manual control, resuming its schedule.
func (c *Client) ResumeSchedule(ctx context.Context, roomId int) error {
	_, err := call[empty](ctx, c, http.MethodDelete, c.homeURL("/rooms/"+strconv.Itoa(roomId)+"/manualControl"), nil)
	return err
}

// Boost activates boost mode for one room.
func (c *Client) Boost(ctx context.Context, roomId int) error {
	_, err := call[empty](ctx, c, http.MethodPost, c.homeURL("/rooms/"+strconv.Itoa(roomId)+"/boost"), nil)
	return err
}

// BoostAll activates boost mode for all rooms.
func (c *Client) BoostAll(ctx context.Context) error {
	_, err := call[empty](ctx, c, http.MethodPost, c.homeURL("/quickActions/boost"), nil)
	return err
}

// ResumeAllSchedules resumes the schedule for all rooms.
func (c *Client) ResumeAllSchedules(ctx context.Context) error {
	_, err := call[empty](ctx, c, http.MethodPost, c.homeURL("/quickActions/resumeSchedule"), nil)
	return err
}

// SetOpenWindowDetection enables or disables open window detection for a room.
func (c *Client) SetOpenWindowDetection(ctx context.Context, roomId int, enabled bool) error {
	method := http.MethodPost
	if !enabled {
		method = http.MethodDelete
	}
	_, err := call[empty](ctx, c, method, c.homeURL("/rooms/"+strconv.Itoa(roomId)+"/openWindow"), nil)
	return err
}

// SetChildLock enables or disables the child lock on a device.
func (c *Client) SetChildLock(ctx context.Context, serialNumber string, enabled bool) error {
	body := struct {
		ChildLockEnabled bool `json:"childLockEnabled"`
	}{ChildLockEnabled: enabled}
	_, err := call[empty](ctx, c, http.MethodPatch, c.homeURL("/roomsAndDevices/devices/"+serialNumber), body)
	return err
}

// SetDeviceTemperatureOffset sets the temperature offset for a measuring
// device (radiator valve or temperature sensor).
func (c *Client) SetDeviceTemperatureOffset(ctx context.Context, serialNumber string, offset float64) error {
	body := struct {
		TemperatureOffset float64 `json:"temperatureOffset"`
	}{TemperatureOffset: offset}
	_, err := call[empty](ctx, c, http.MethodPatch, c.homeURL("/roomsAndDevices/devices/"+serialNumber), body)
	return err
}

func (c *Client) homeURL(endpoint string) string {
	return c.hopsURL + "/homes/" + strconv.Itoa(c.HomeId) + endpoint
}

type empty struct{}

func call[T any](ctx context.Context, c *Client, method, url string, body any) (T, error) {
	var response T

	var buf []byte
	if body != nil {
		var err error
		if buf, err = json.Marshal(body); err != nil {
			return response, fmt.Errorf("encode request: %w", err)
		}
	}

	resp, err := c.do(ctx, method, url, buf)
	if err != nil {
		return response, fmt.Errorf("tado: %w", err)
	}
	// a 401 means the server no longer accepts the current token, even if it
	// hasn't locally expired. get a fresh token and retry the request once.
	if resp.StatusCode == http.StatusUnauthorized && c.Auth != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		c.Auth.Invalidate()
		if resp, err = c.do(ctx, method, url, buf); err != nil {
			return response, fmt.Errorf("tado: %w", err)
		}
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		if _, ok := any(response).(empty); ok {
			// caller doesn't care about the response body
			_, _ = io.Copy(io.Discard, resp.Body)
			return response, nil
		}
		if err = json.NewDecoder(resp.Body).Decode(&response); err != nil {
			err = fmt.Errorf("decode response: %w", err)
		}
		return response, err
	case http.StatusNoContent:
		return response, nil
	case http.StatusNotFound:
		return response, ErrNotFound
	default:
		message := resp.Status
		if msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512)); len(msg) > 0 {
			message = string(msg)
		}
		return response, &APIError{StatusCode: resp.StatusCode, Message: message}
	}
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.HTTPClient.Do(req)
}

// LogValue makes APIError loggable as a structured attribute.
func (e *APIError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("code", e.StatusCode),
		slog.String("message", e.Message),
	)
}
