// Package poller periodically fetches a snapshot of the home's state from the
// Tadoº X API and publishes it to all subscribers.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/clambin/tadox-monitor/internal/tadox"
	"github.com/clambin/tadox-monitor/pkg/pubsub"
)

type Poller interface {
	Subscribe() chan Update
	Unsubscribe(ch chan Update)
	Refresh()
}

type TadoGetter interface {
	GetHomeState(ctx context.Context) (tadox.HomeState, error)
	GetMobileDevices(ctx context.Context) ([]tadox.MobileDevice, error)
	GetRooms(ctx context.Context) ([]tadox.Room, error)
	GetRoomsAndDevices(ctx context.Context) (tadox.RoomsAndDevices, error)
}

var _ Poller = &TadoPoller{}

type TadoPoller struct {
	TadoClient TadoGetter
	*pubsub.Publisher[Update]
	interval time.Duration
	logger   *slog.Logger
	refresh  chan struct{}
}

func New(tadoClient TadoGetter, interval time.Duration, logger *slog.Logger) *TadoPoller {
	return &TadoPoller{
		TadoClient: tadoClient,
		Publisher:  pubsub.New[Update](logger.With(slog.String("component", "registry"))),
		interval:   interval,
		logger:     logger,
		refresh:    make(chan struct{}),
	}
}

func (p *TadoPoller) Run(ctx context.Context) error {
	p.logger.Debug("started", slog.Duration("interval", p.interval))
	defer p.logger.Debug("stopped")

	timer := time.NewTicker(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		case <-p.refresh:
		}

		if err := p.poll(ctx); err != nil {
			p.logger.Error("failed to get tado state", slog.Any("err", err))
		}
	}
}

// Refresh polls for new data, without waiting for the next tick.
func (p *TadoPoller) Refresh() {
	p.refresh <- struct{}{}
}

func (p *TadoPoller) poll(ctx context.Context) error {
	start := time.Now()
	update, err := p.update(ctx)
	if err == nil {
		p.Publisher.Publish(update)
		p.logger.Debug("poll completed", slog.Duration("duration", time.Since(start)))
	}
	return err
}

func (p *TadoPoller) update(ctx context.Context) (update Update, err error) {
	update.HomeState, err = p.TadoClient.GetHomeState(ctx)
	if err == nil {
		update.MobileDevices, err = p.getMobileDevices(ctx)
	}
	var rooms []tadox.Room
	if err == nil {
		rooms, err = p.TadoClient.GetRooms(ctx)
	}
	var roomsAndDevices tadox.RoomsAndDevices
	if err == nil {
		roomsAndDevices, err = p.TadoClient.GetRoomsAndDevices(ctx)
	}
	if err == nil {
		update.Rooms, update.Devices = joinRoomsAndDevices(rooms, roomsAndDevices)
		update.LastUpdated = time.Now()
	}
	return update, err
}

func (p *TadoPoller) getMobileDevices(ctx context.Context) (MobileDevices, error) {
	devices, err := p.TadoClient.GetMobileDevices(ctx)
	if err != nil {
		return nil, err
	}
	geoTracked := make(MobileDevices, 0, len(devices))
	for _, device := range devices {
		if device.Settings.GeoTrackingEnabled {
			geoTracked = append(geoTracked, device)
		}
	}
	return geoTracked, nil
}

// joinRoomsAndDevices combines the room states from /rooms with the device
// inventory from /roomsAndDevices into one consistent view. Devices that
// aren't assigned to a room (bridge, wall thermostat) are reported separately.
func joinRoomsAndDevices(rooms []tadox.Room, roomsAndDevices tadox.RoomsAndDevices) ([]Room, map[string]tadox.Device) {
	devicesPerRoom := make(map[int][]tadox.Device, len(roomsAndDevices.Rooms))
	allDevices := make(map[string]tadox.Device)

	for _, room := range roomsAndDevices.Rooms {
		devicesPerRoom[room.RoomId] = room.Devices
		for _, device := range room.Devices {
			allDevices[device.SerialNumber] = device
		}
	}
	for _, device := range roomsAndDevices.OtherDevices {
		allDevices[device.SerialNumber] = device
	}

	joined := make([]Room, 0, len(rooms))
	for _, room := range rooms {
		joined = append(joined, Room{Room: room, Devices: devicesPerRoom[room.Id]})
	}
	return joined, allDevices
}
