package poller

import (
	"log/slog"
	"time"

	"github.com/clambin/tadox-monitor/internal/tadox"
)

// An Update is one consistent snapshot of the home's state. Updates are
// immutable: each cycle re-derives a fresh one from the API.
type Update struct {
	HomeState     tadox.HomeState
	MobileDevices MobileDevices
	Rooms         []Room
	Devices       map[string]tadox.Device
	LastUpdated   time.Time
}

// A Room is a room's current state, combined with the devices installed in it.
type Room struct {
	tadox.Room
	Devices []tadox.Device
}

// Home reports whether the home is in HOME mode.
func (u Update) Home() bool {
	return u.HomeState.Presence == tadox.PresenceHome
}

// GetRoom returns the room with the given name.
func (u Update) GetRoom(name string) (Room, bool) {
	for _, room := range u.Rooms {
		if room.Name == name {
			return room, true
		}
	}
	return Room{}, false
}

// GetDevice returns the device with the given serial number.
func (u Update) GetDevice(serialNumber string) (tadox.Device, bool) {
	device, ok := u.Devices[serialNumber]
	return device, ok
}

type MobileDevices []tadox.MobileDevice

// Presence splits the geotracked mobile devices in devices at home and devices away.
func (m MobileDevices) Presence() (home, away []string) {
	for _, device := range m {
		if device.AtHome() {
			home = append(home, device.Name)
		} else {
			away = append(away, device.Name)
		}
	}
	return home, away
}

func (m MobileDevices) LogValue() slog.Value {
	devices := make([]slog.Attr, 0, len(m))
	for _, device := range m {
		devices = append(devices, slog.Group(device.Name,
			slog.Bool("geotracked", device.Settings.GeoTrackingEnabled),
			slog.Bool("home", device.AtHome()),
		))
	}
	return slog.GroupValue(devices...)
}
