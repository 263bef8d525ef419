// Package testutils builds poller updates for tests.
package testutils

import (
	"github.com/clambin/tadox-monitor/internal/poller"
	"github.com/clambin/tadox-monitor/internal/tadox"
)

func Update(options ...UpdateOption) poller.Update {
	u := poller.Update{Devices: make(map[string]tadox.Device)}
	for _, option := range options {
		option(&u)
	}
	return u
}

type UpdateOption func(*poller.Update)

func WithHome(presence tadox.Presence) UpdateOption {
	return func(u *poller.Update) {
		u.HomeState.Presence = presence
	}
}

func WithMobileDevice(id int, name string, options ...MobileDeviceOption) UpdateOption {
	return func(u *poller.Update) {
		m := tadox.MobileDevice{Id: id, Name: name}
		for _, option := range options {
			option(&m)
		}
		u.MobileDevices = append(u.MobileDevices, m)
	}
}

type MobileDeviceOption func(*tadox.MobileDevice)

func WithLocation(atHome bool) MobileDeviceOption {
	return func(m *tadox.MobileDevice) {
		m.Settings.GeoTrackingEnabled = true
		m.Location = &tadox.MobileDeviceLocation{AtHome: atHome}
	}
}

func WithRoom(id int, name string, insideTemperature, targetTemperature float64, options ...RoomOption) UpdateOption {
	return func(u *poller.Update) {
		room := poller.Room{
			Room: tadox.Room{
				Id:               id,
				Name:             name,
				SensorDataPoints: &tadox.SensorDataPoints{InsideTemperature: &tadox.Temperature{Value: insideTemperature}},
				Setting:          &tadox.RoomSetting{Power: "ON", Temperature: &tadox.Temperature{Value: targetTemperature}},
			},
		}
		for _, option := range options {
			option(&room)
		}
		u.Rooms = append(u.Rooms, room)
		for _, device := range room.Devices {
			u.Devices[device.SerialNumber] = device
		}
	}
}

type RoomOption func(*poller.Room)

func WithManualControl(remainingTimeInSeconds int) RoomOption {
	return func(room *poller.Room) {
		termination := tadox.ManualControlTermination{Type: "NEXT_TIME_BLOCK"}
		if remainingTimeInSeconds > 0 {
			termination = tadox.ManualControlTermination{Type: "TIMER", RemainingTimeInSeconds: &remainingTimeInSeconds}
		}
		room.ManualControlTermination = &termination
	}
}

func WithDevice(serialNumber string, options ...DeviceOption) RoomOption {
	return func(room *poller.Room) {
		device := tadox.Device{
			SerialNumber: serialNumber,
			Type:         "VA04",
			BatteryState: "NORMAL",
			Connection:   &tadox.Connection{State: "CONNECTED"},
			RoomId:       &room.Id,
		}
		for _, option := range options {
			option(&device)
		}
		room.Devices = append(room.Devices, device)
	}
}

type DeviceOption func(*tadox.Device)

func WithMeasuredTemperature(value float64) DeviceOption {
	return func(device *tadox.Device) {
		device.TemperatureAsMeasured = &value
	}
}

func WithOffset(value float64) DeviceOption {
	return func(device *tadox.Device) {
		device.TemperatureOffset = &value
	}
}
