package offsetsync

import (
	"context"
	"log/slog"

	"github.com/clambin/tadox-monitor/internal/poller"
)

// Configuration for the offset syncer. Each RoomConfiguration pairs a
// measuring device with the external thermometer it should follow.
type Configuration struct {
	Enabled    bool                `mapstructure:"enabled" yaml:"enabled"`
	Hysteresis float64             `mapstructure:"hysteresis" yaml:"hysteresis"`
	Rooms      []RoomConfiguration `mapstructure:"rooms" yaml:"rooms"`
}

// A RoomConfiguration maps a device (by serial number) to the sensor
// providing the room's reference temperature.
type RoomConfiguration struct {
	Device string `mapstructure:"device" yaml:"device"`
	Sensor string `mapstructure:"sensor" yaml:"sensor"`
}

// A TemperatureSource provides the current reading of an external
// thermometer. ok is false when no (recent) reading is available.
type TemperatureSource interface {
	Get(name string) (value float64, ok bool)
}

// A Syncer runs one offset sync cycle for every update received from the
// Poller. Cycles are processed sequentially: a new cycle doesn't start until
// the previous one's batch has fully settled. A poller interval shorter than
// the batch round-trip would make updates queue up; guarding against that is
// a deployment concern, not handled here.
type Syncer struct {
	Poller   poller.Poller
	Executor *Executor
	Sensors  TemperatureSource

	rooms      []RoomConfiguration
	hysteresis float64
	logger     *slog.Logger
}

func New(p poller.Poller, client DeviceSetter, sensors TemperatureSource, cfg Configuration, logger *slog.Logger) *Syncer {
	return &Syncer{
		Poller:     p,
		Executor:   &Executor{TadoClient: client, Logger: logger},
		Sensors:    sensors,
		rooms:      cfg.Rooms,
		hysteresis: cfg.Hysteresis,
		logger:     logger,
	}
}

func (s *Syncer) Run(ctx context.Context) error {
	s.logger.Debug("started", slog.Int("rooms", len(s.rooms)), slog.Float64("hysteresis", s.hysteresis))
	defer s.logger.Debug("stopped")

	ch := s.Poller.Subscribe()
	defer s.Poller.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-ch:
			s.sync(ctx, update)
		}
	}
}

// sync runs one cycle: evaluate every configured room against the snapshot
// and write the offsets that need updating in one batch. Rooms with missing
// data are skipped; they never block the sync for other rooms.
func (s *Syncer) sync(ctx context.Context, update poller.Update) {
	request := make(BatchRequest)

	for _, room := range s.rooms {
		device, ok := update.GetDevice(room.Device)
		if !ok {
			s.logger.Debug("device not found in update. skipping", slog.String("device", room.Device))
			continue
		}

		var reference *float64
		if value, ok := s.Sensors.Get(room.Sensor); ok {
			reference = &value
		} else {
			s.logger.Debug("no reference temperature. skipping", slog.String("sensor", room.Sensor))
		}

		var currentOffset float64
		if device.TemperatureOffset != nil {
			currentOffset = *device.TemperatureOffset
		}

		decision := Decide(room.Device, reference, device.TemperatureAsMeasured, currentOffset, s.hysteresis)
		if !decision.NeedsUpdate {
			continue
		}
		request[decision.SerialNumber] = decision.Offset
		s.logger.Info("offset out of sync",
			slog.String("device", room.Device),
			slog.Float64("reference", *reference),
			slog.Float64("measured", *device.TemperatureAsMeasured),
			slog.Float64("current", currentOffset),
			slog.Float64("new", decision.Offset),
		)
	}

	if len(request) == 0 {
		s.logger.Debug("no offset updates needed")
		return
	}

	// partial failures are reported by the executor; they don't fail the cycle
	if _, err := s.Executor.ExecuteBatch(ctx, request); err != nil {
		s.logger.Error("offset sync failed", slog.Any("err", err))
	}
}
