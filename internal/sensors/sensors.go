// Package sensors collects reference temperatures from external thermometers
// over MQTT. Each configured sensor listens on one topic; payloads are either
// a bare number ("21.5") or a JSON object with a "temperature" field, which
// covers the common zigbee2mqtt and ESPHome publishing formats.
package sensors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type Configuration struct {
	Broker   string `mapstructure:"broker" yaml:"broker"`
	ClientID string `mapstructure:"client-id" yaml:"client-id"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	// MaxAge is how long a reading remains usable. Stale readings are
	// treated as absent, so a dead sensor stops driving offset decisions.
	MaxAge time.Duration `mapstructure:"max-age" yaml:"max-age"`
}

const defaultMaxAge = 30 * time.Minute

type reading struct {
	value    float64
	received time.Time
}

// A Receiver subscribes to the configured topics and retains the most recent
// reading per topic. Readings older than MaxAge are discarded on read.
type Receiver struct {
	cfg    Configuration
	topics []string
	logger *slog.Logger

	client   mqtt.Client
	lock     sync.RWMutex
	readings map[string]reading
}

func New(cfg Configuration, topics []string, logger *slog.Logger) *Receiver {
	if cfg.Broker == "" {
		cfg.Broker = "tcp://localhost:1883"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "tadox-monitor"
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaultMaxAge
	}
	return &Receiver{
		cfg:      cfg,
		topics:   topics,
		logger:   logger,
		readings: make(map[string]reading, len(topics)),
	}
}

// Run connects to the broker and receives readings until ctx is canceled.
func (r *Receiver) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(r.cfg.Broker).
		SetClientID(r.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if r.cfg.Username != "" {
		opts.SetUsername(r.cfg.Username)
		opts.SetPassword(r.cfg.Password)
	}

	// (re-)subscribe on every (re-)connect
	opts.OnConnect = func(client mqtt.Client) {
		for _, topic := range r.topics {
			token := client.Subscribe(topic, 0, r.onMessage)
			token.Wait()
			if err := token.Error(); err != nil {
				r.logger.Error("subscribe failed", slog.String("topic", topic), slog.Any("err", err))
			}
		}
	}

	r.client = mqtt.NewClient(opts)
	if token := r.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	r.logger.Debug("connected", slog.String("broker", r.cfg.Broker), slog.Int("topics", len(r.topics)))

	<-ctx.Done()
	r.client.Disconnect(250)
	return nil
}

// Get returns the latest reading for the topic. ok is false when no reading
// has been received, or the last one is older than MaxAge.
func (r *Receiver) Get(topic string) (float64, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	last, ok := r.readings[topic]
	if !ok || time.Since(last.received) > r.cfg.MaxAge {
		return 0, false
	}
	return last.value, true
}

func (r *Receiver) onMessage(_ mqtt.Client, msg mqtt.Message) {
	value, err := parseTemperature(msg.Payload())
	if err != nil {
		r.logger.Warn("discarding unparsable reading", slog.String("topic", msg.Topic()), slog.Any("err", err))
		return
	}
	r.lock.Lock()
	r.readings[msg.Topic()] = reading{value: value, received: time.Now()}
	r.lock.Unlock()
	r.logger.Debug("reading received", slog.String("topic", msg.Topic()), slog.Float64("value", value))
}

func parseTemperature(payload []byte) (float64, error) {
	body := strings.TrimSpace(string(payload))
	if value, err := strconv.ParseFloat(body, 64); err == nil {
		return value, nil
	}
	var structured struct {
		Temperature *float64 `json:"temperature"`
	}
	if err := json.Unmarshal(payload, &structured); err != nil {
		return 0, err
	}
	if structured.Temperature == nil {
		return 0, fmt.Errorf("no temperature in payload %q", body)
	}
	return *structured.Temperature, nil
}
