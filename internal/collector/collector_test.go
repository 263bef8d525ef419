package collector

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/clambin/tadox-monitor/internal/poller/testutils"
	"github.com/clambin/tadox-monitor/internal/tadox"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	p := testutils.NewPoller()
	c := Collector{Poller: p, Logger: slog.New(slog.DiscardHandler)}

	// nothing is reported before the first update
	assert.Zero(t, testutil.CollectAndCount(&c))

	go func() { _ = c.Run(t.Context()) }()

	p.Publish(testutils.Update(
		testutils.WithHome(tadox.PresenceHome),
		testutils.WithMobileDevice(1, "owner", testutils.WithLocation(true)),
		testutils.WithRoom(1, "Living room", 20.5, 21.0,
			testutils.WithManualControl(300),
			testutils.WithDevice("RU0123456789", testutils.WithMeasuredTemperature(22.5), testutils.WithOffset(-2.0)),
		),
		testutils.WithRoom(2, "Study", 19.0, 17.0),
	))

	assert.Eventually(t, func() bool {
		return testutil.CollectAndCount(&c) > 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, testutil.CollectAndCompare(&c, strings.NewReader(`
# HELP tadox_home_state State of the home. Always 1. Label home_state specifies the state
# TYPE tadox_home_state gauge
tadox_home_state{home_state="HOME"} 1

# HELP tadox_mobile_device_status Tado mobile device status. 1 if the device is "home"
# TYPE tadox_mobile_device_status gauge
tadox_mobile_device_status{name="owner"} 1

# HELP tadox_room_temperature_celsius Current temperature of this room in degrees celsius
# TYPE tadox_room_temperature_celsius gauge
tadox_room_temperature_celsius{room_name="Living room"} 20.5
tadox_room_temperature_celsius{room_name="Study"} 19

# HELP tadox_room_target_temp_celsius Target temperature of this room in degrees celsius
# TYPE tadox_room_target_temp_celsius gauge
tadox_room_target_temp_celsius{room_name="Living room"} 21
tadox_room_target_temp_celsius{room_name="Study"} 17

# HELP tadox_room_manual_control 1 if the room is under manual control
# TYPE tadox_room_manual_control gauge
tadox_room_manual_control{room_name="Living room"} 1
tadox_room_manual_control{room_name="Study"} 0

# HELP tadox_device_temperature_celsius Raw (uncorrected) temperature measured by this device in degrees celsius
# TYPE tadox_device_temperature_celsius gauge
tadox_device_temperature_celsius{room_name="Living room",serial_number="RU0123456789",type="VA04"} 22.5

# HELP tadox_device_temperature_offset_celsius Temperature offset currently configured on this device in degrees celsius
# TYPE tadox_device_temperature_offset_celsius gauge
tadox_device_temperature_offset_celsius{room_name="Living room",serial_number="RU0123456789",type="VA04"} -2
`),
		"tadox_home_state",
		"tadox_mobile_device_status",
		"tadox_room_temperature_celsius",
		"tadox_room_target_temp_celsius",
		"tadox_room_manual_control",
		"tadox_device_temperature_celsius",
		"tadox_device_temperature_offset_celsius",
	))
}
