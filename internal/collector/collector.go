// Package collector exposes the latest poller update as Prometheus metrics.
package collector

import (
	"context"
	"log/slog"
	"sync"

	"github.com/clambin/tadox-monitor/internal/poller"
	"github.com/clambin/tadox-monitor/internal/tadox"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	tadoRoomTemperatureCelsius = prometheus.NewDesc(
		prometheus.BuildFQName("tadox", "room", "temperature_celsius"),
		"Current temperature of this room in degrees celsius",
		[]string{"room_name"},
		nil,
	)
	tadoRoomTargetTempCelsius = prometheus.NewDesc(
		prometheus.BuildFQName("tadox", "room", "target_temp_celsius"),
		"Target temperature of this room in degrees celsius",
		[]string{"room_name"},
		nil,
	)
	tadoRoomHumidityPercentage = prometheus.NewDesc(
		prometheus.BuildFQName("tadox", "room", "humidity_percentage"),
		"Current humidity percentage in this room",
		[]string{"room_name"},
		nil,
	)
	tadoRoomHeatingPercentage = prometheus.NewDesc(
		prometheus.BuildFQName("tadox", "room", "heating_percentage"),
		"Current heating percentage in this room (0-100)",
		[]string{"room_name"},
		nil,
	)
	tadoRoomPowerState = prometheus.NewDesc(
		prometheus.BuildFQName("tadox", "room", "power_state"),
		"Power state of this room",
		[]string{"room_name"},
		nil,
	)
	tadoRoomManualControl = prometheus.NewDesc(
		prometheus.BuildFQName("tadox", "room", "manual_control"),
		"1 if the room is under manual control",
		[]string{"room_name"},
		nil,
	)
	tadoRoomOpenWindow = prometheus.NewDesc(
		prometheus.BuildFQName("tadox", "room", "open_window"),
		"1 if an open window has been detected in this room",
		[]string{"room_name"},
		nil,
	)
	tadoDeviceBatteryStatus = prometheus.NewDesc(
		prometheus.BuildFQName("tadox", "device", "battery_status"),
		"Tado device battery status. 1 if the battery is normal",
		[]string{"serial_number", "type", "room_name"},
		nil,
	)
	tadoDeviceConnectionStatus = prometheus.NewDesc(
		prometheus.BuildFQName("tadox", "device", "connection_status"),
		"Tado device connection status",
		[]string{"serial_number", "type", "room_name", "firmware"},
		nil,
	)
	tadoDeviceTemperatureCelsius = prometheus.NewDesc(
		prometheus.BuildFQName("tadox", "device", "temperature_celsius"),
		"Raw (uncorrected) temperature measured by this device in degrees celsius",
		[]string{"serial_number", "type", "room_name"},
		nil,
	)
	tadoDeviceTemperatureOffsetCelsius = prometheus.NewDesc(
		prometheus.BuildFQName("tadox", "device", "temperature_offset_celsius"),
		"Temperature offset currently configured on this device in degrees celsius",
		[]string{"serial_number", "type", "room_name"},
		nil,
	)
	tadoMobileDeviceStatus = prometheus.NewDesc(
		prometheus.BuildFQName("tadox", "mobile", "device_status"),
		"Tado mobile device status. 1 if the device is \"home\"",
		[]string{"name"},
		nil,
	)
	tadoHomeState = prometheus.NewDesc(
		prometheus.BuildFQName("tadox", "home", "state"),
		"State of the home. Always 1. Label home_state specifies the state",
		[]string{"home_state"},
		nil,
	)
)

var _ prometheus.Collector = &Collector{}

type Collector struct {
	Poller     poller.Poller
	Logger     *slog.Logger
	lock       sync.RWMutex
	lastUpdate *poller.Update
}

func (c *Collector) Run(ctx context.Context) error {
	c.Logger.Debug("started")
	defer c.Logger.Debug("stopped")

	ch := c.Poller.Subscribe()
	defer c.Poller.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-ch:
			c.lock.Lock()
			c.lastUpdate = &update
			c.lock.Unlock()
		}
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- tadoRoomTemperatureCelsius
	ch <- tadoRoomTargetTempCelsius
	ch <- tadoRoomHumidityPercentage
	ch <- tadoRoomHeatingPercentage
	ch <- tadoRoomPowerState
	ch <- tadoRoomManualControl
	ch <- tadoRoomOpenWindow
	ch <- tadoDeviceBatteryStatus
	ch <- tadoDeviceConnectionStatus
	ch <- tadoDeviceTemperatureCelsius
	ch <- tadoDeviceTemperatureOffsetCelsius
	ch <- tadoMobileDeviceStatus
	ch <- tadoHomeState
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.lastUpdate == nil {
		return
	}
	c.collectRooms(ch)
	c.collectMobileDevices(ch)
	ch <- prometheus.MustNewConstMetric(tadoHomeState, prometheus.GaugeValue, 1, string(c.lastUpdate.HomeState.Presence))
}

func (c *Collector) collectRooms(ch chan<- prometheus.Metric) {
	for _, room := range c.lastUpdate.Rooms {
		if room.SensorDataPoints != nil {
			if room.SensorDataPoints.InsideTemperature != nil {
				ch <- prometheus.MustNewConstMetric(tadoRoomTemperatureCelsius, prometheus.GaugeValue, room.SensorDataPoints.InsideTemperature.Value, room.Name)
			}
			if room.SensorDataPoints.Humidity != nil {
				ch <- prometheus.MustNewConstMetric(tadoRoomHumidityPercentage, prometheus.GaugeValue, room.SensorDataPoints.Humidity.Percentage, room.Name)
			}
		}
		if room.Setting != nil {
			ch <- prometheus.MustNewConstMetric(tadoRoomPowerState, prometheus.GaugeValue, boolToFloat(room.Setting.Power == "ON"), room.Name)
			if room.Setting.Temperature != nil {
				ch <- prometheus.MustNewConstMetric(tadoRoomTargetTempCelsius, prometheus.GaugeValue, room.Setting.Temperature.Value, room.Name)
			}
		}
		if room.HeatingPower != nil {
			ch <- prometheus.MustNewConstMetric(tadoRoomHeatingPercentage, prometheus.GaugeValue, room.HeatingPower.Percentage, room.Name)
		}
		ch <- prometheus.MustNewConstMetric(tadoRoomManualControl, prometheus.GaugeValue, boolToFloat(room.ManualControlTermination != nil), room.Name)
		ch <- prometheus.MustNewConstMetric(tadoRoomOpenWindow, prometheus.GaugeValue, boolToFloat(room.OpenWindow != nil), room.Name)

		for _, device := range room.Devices {
			c.collectDevice(ch, device, room.Name)
		}
	}
}

func (c *Collector) collectDevice(ch chan<- prometheus.Metric, device tadox.Device, roomName string) {
	connected := device.Connection != nil && device.Connection.State == "CONNECTED"
	firmware := device.FirmwareVersion
	ch <- prometheus.MustNewConstMetric(tadoDeviceConnectionStatus, prometheus.GaugeValue, boolToFloat(connected), device.SerialNumber, device.Type, roomName, firmware)

	if device.BatteryState != "" {
		ch <- prometheus.MustNewConstMetric(tadoDeviceBatteryStatus, prometheus.GaugeValue, boolToFloat(device.BatteryState == "NORMAL"), device.SerialNumber, device.Type, roomName)
	}
	if device.TemperatureAsMeasured != nil {
		ch <- prometheus.MustNewConstMetric(tadoDeviceTemperatureCelsius, prometheus.GaugeValue, *device.TemperatureAsMeasured, device.SerialNumber, device.Type, roomName)
	}
	if device.TemperatureOffset != nil {
		ch <- prometheus.MustNewConstMetric(tadoDeviceTemperatureOffsetCelsius, prometheus.GaugeValue, *device.TemperatureOffset, device.SerialNumber, device.Type, roomName)
	}
}

func (c *Collector) collectMobileDevices(ch chan<- prometheus.Metric) {
	for _, device := range c.lastUpdate.MobileDevices {
		ch <- prometheus.MustNewConstMetric(tadoMobileDeviceStatus, prometheus.GaugeValue, boolToFloat(device.AtHome()), device.Name)
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
