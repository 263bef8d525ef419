package show

import (
	"context"
	"fmt"
	"os"

	"github.com/clambin/go-common/charmer"
	"github.com/clambin/tadox-monitor/internal/tadox"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"
)

var Cmd = cobra.Command{
	Use:   "show",
	Short: "Show the rooms, devices and mobile devices registered for the account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := charmer.GetLogger(cmd)
		ctx := cmd.Context()

		ts, err := tadox.NewTokenSource(ctx, viper.GetString("tado.token-file"), logger)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		c := tadox.New(oauth2.NewClient(ctx, ts))
		c.Auth = ts
		me, err := c.GetMe(ctx)
		if err != nil {
			return fmt.Errorf("tado: me: %w", err)
		}
		if len(me.Homes) == 0 {
			return fmt.Errorf("no homes registered for this account")
		}
		c.HomeId = me.Homes[0].Id

		e := yaml.NewEncoder(os.Stdout)
		defer func() { _ = e.Close() }()
		return Show(ctx, c, e)
	},
}

type Encoder interface {
	Encode(any) error
}

type TadoGetter interface {
	GetRoomsAndDevices(context.Context) (tadox.RoomsAndDevices, error)
	GetMobileDevices(context.Context) ([]tadox.MobileDevice, error)
}

type roomEntry struct {
	Id      int
	Name    string
	Devices []deviceEntry
}

type deviceEntry struct {
	SerialNumber string
	Type         string
	Offset       *float64 `yaml:",omitempty"`
}

type mobileDeviceEntry struct {
	Id         int
	Name       string
	GeoTracked bool
}

type report struct {
	Rooms         []roomEntry
	OtherDevices  []deviceEntry `yaml:",omitempty"`
	MobileDevices []mobileDeviceEntry
}

// Show writes the account's rooms, devices and mobile devices to e.
func Show(ctx context.Context, c TadoGetter, e Encoder) error {
	var r report

	roomsAndDevices, err := c.GetRoomsAndDevices(ctx)
	if err != nil {
		return fmt.Errorf("tado: roomsAndDevices: %w", err)
	}
	for _, room := range roomsAndDevices.Rooms {
		entry := roomEntry{Id: room.RoomId, Name: room.RoomName}
		for _, device := range room.Devices {
			entry.Devices = append(entry.Devices, deviceEntry{
				SerialNumber: device.SerialNumber,
				Type:         device.Type,
				Offset:       device.TemperatureOffset,
			})
		}
		r.Rooms = append(r.Rooms, entry)
	}
	for _, device := range roomsAndDevices.OtherDevices {
		r.OtherDevices = append(r.OtherDevices, deviceEntry{
			SerialNumber: device.SerialNumber,
			Type:         device.Type,
		})
	}

	mobileDevices, err := c.GetMobileDevices(ctx)
	if err != nil {
		return fmt.Errorf("tado: mobileDevices: %w", err)
	}
	for _, device := range mobileDevices {
		r.MobileDevices = append(r.MobileDevices, mobileDeviceEntry{
			Id:         device.Id,
			Name:       device.Name,
			GeoTracked: device.Settings.GeoTrackingEnabled,
		})
	}

	return e.Encode(r)
}
