package tadox

// Temperature contains a temperature in degrees Celsius.
type Temperature struct {
	Value float64 `json:"value"`
}

// Percentage contains a percentage (0-100%).
type Percentage struct {
	Percentage float64 `json:"percentage"`
}

type Me struct {
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Homes []HomeBase `json:"homes"`
}

type HomeBase struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
}

type Presence string

const (
	PresenceHome Presence = "HOME"
	PresenceAway Presence = "AWAY"
)

type HomeState struct {
	Presence Presence `json:"presence"`
}

type MobileDevice struct {
	Id       int                   `json:"id"`
	Name     string                `json:"name"`
	Settings MobileDeviceSettings  `json:"settings"`
	Location *MobileDeviceLocation `json:"location,omitempty"`
}

type MobileDeviceSettings struct {
	GeoTrackingEnabled bool `json:"geoTrackingEnabled"`
}

type MobileDeviceLocation struct {
	AtHome bool `json:"atHome"`
	Stale  bool `json:"stale"`
}

// AtHome reports whether the device is geotracked and currently at home.
func (m MobileDevice) AtHome() bool {
	return m.Settings.GeoTrackingEnabled && m.Location != nil && m.Location.AtHome
}

type Connection struct {
	State string `json:"state"`
}

type Room struct {
	Id                       int                       `json:"id"`
	Name                     string                    `json:"name"`
	SensorDataPoints         *SensorDataPoints         `json:"sensorDataPoints,omitempty"`
	Setting                  *RoomSetting              `json:"setting,omitempty"`
	ManualControlTermination *ManualControlTermination `json:"manualControlTermination,omitempty"`
	BoostMode                *BoostMode                `json:"boostMode,omitempty"`
	OpenWindow               *OpenWindow               `json:"openWindow,omitempty"`
	NextScheduleChange       *NextScheduleChange       `json:"nextScheduleChange,omitempty"`
	HeatingPower             *Percentage               `json:"heatingPower,omitempty"`
	Connection               *Connection               `json:"connection,omitempty"`
}

type SensorDataPoints struct {
	InsideTemperature *Temperature `json:"insideTemperature,omitempty"`
	Humidity          *Percentage  `json:"humidity,omitempty"`
}

type RoomSetting struct {
	Power       string       `json:"power"`
	Temperature *Temperature `json:"temperature,omitempty"`
}

type ManualControlTermination struct {
	Type                   string `json:"type"`
	RemainingTimeInSeconds *int   `json:"remainingTimeInSeconds,omitempty"`
}

// BoostMode is present on a Room while boost is active. Its content is not used.
type BoostMode struct{}

// OpenWindow is present on a Room while an open window has been detected. Its content is not used.
type OpenWindow struct{}

type NextScheduleChange struct {
	Start   string       `json:"start,omitempty"`
	Setting *RoomSetting `json:"setting,omitempty"`
}

type Device struct {
	SerialNumber          string         `json:"serialNumber"`
	Type                  string         `json:"type"`
	FirmwareVersion       string         `json:"firmwareVersion"`
	Connection            *Connection    `json:"connection,omitempty"`
	BatteryState          string         `json:"batteryState,omitempty"`
	TemperatureAsMeasured *float64       `json:"temperatureAsMeasured,omitempty"`
	TemperatureOffset     *float64       `json:"temperatureOffset,omitempty"`
	MountingState         *MountingState `json:"mountingState,omitempty"`
	ChildLockEnabled      bool           `json:"childLockEnabled,omitempty"`
	RoomId                *int           `json:"roomId,omitempty"`
}

type MountingState struct {
	Value string `json:"value"`
}

type RoomWithDevices struct {
	RoomId   int      `json:"roomId"`
	RoomName string   `json:"roomName"`
	Devices  []Device `json:"devices"`
}

type RoomsAndDevices struct {
	Rooms        []RoomWithDevices `json:"rooms"`
	OtherDevices []Device          `json:"otherDevices,omitempty"`
}

// ManualControl is the payload for a room's manualControl endpoint.
type ManualControl struct {
	Setting     ManualControlSetting     `json:"setting"`
	Termination ManualControlTermination `json:"termination"`
}

type ManualControlSetting struct {
	Power       string       `json:"power"`
	Temperature *Temperature `json:"temperature,omitempty"`
}
