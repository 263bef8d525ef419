package cmd

import (
	"log/slog"
	"os"
	"time"

	"github.com/clambin/go-common/charmer"
	"github.com/clambin/tadox-monitor/internal/cmd/monitor"
	"github.com/clambin/tadox-monitor/internal/cmd/show"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFilename string
	RootCmd        = cobra.Command{
		Use:   "tadox-monitor",
		Short: "Monitor for Tadoº X smart thermostats",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			charmer.SetJSONLogger(cmd, viper.GetBool("debug"))
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&configFilename, "config", "", "Configuration file")
	RootCmd.PersistentFlags().Bool("debug", false, "Log debug messages")
	_ = viper.BindPFlag("debug", RootCmd.PersistentFlags().Lookup("debug"))

	RootCmd.AddCommand(&monitor.Cmd, &show.Cmd)
}

var args = charmer.Arguments{
	"debug":                 charmer.Argument{Default: false, Help: "Log debug messages"},
	"tado.token-file":       charmer.Argument{Default: "", Help: "Path of the Tadoº token cache"},
	"poller.interval":       charmer.Argument{Default: 860 * time.Second, Help: "Poller interval"},
	"exporter.addr":         charmer.Argument{Default: ":9090", Help: "Address of Prometheus exporter"},
	"health.addr":           charmer.Argument{Default: ":8080", Help: "Address of /health endpoint"},
	"api.addr":              charmer.Argument{Default: ":8081", Help: "Address of the REST API"},
	"mqtt.broker":           charmer.Argument{Default: "tcp://localhost:1883", Help: "MQTT broker for reference temperature sensors"},
	"mqtt.client-id":        charmer.Argument{Default: "tadox-monitor", Help: "MQTT client id"},
	"mqtt.username":         charmer.Argument{Default: "", Help: "MQTT username"},
	"mqtt.password":         charmer.Argument{Default: "", Help: "MQTT password"},
	"mqtt.max-age":          charmer.Argument{Default: 30 * time.Minute, Help: "Discard sensor readings older than this"},
	"geofencing.enabled":    charmer.Argument{Default: false, Help: "Switch home/away based on mobile device location"},
	"offsetsync.enabled":    charmer.Argument{Default: false, Help: "Sync device temperature offsets against reference sensors"},
	"offsetsync.hysteresis": charmer.Argument{Default: 0.5, Help: "Minimum offset change (ºC) before an update is sent"},
	"slack.token":           charmer.Argument{Default: "", Help: "Slack token (empty: no Slack bot)"},
}

func initConfig() {
	if configFilename != "" {
		viper.SetConfigFile(configFilename)
	} else {
		viper.AddConfigPath("/etc/tadox-monitor/")
		viper.AddConfigPath("$HOME/.tadox-monitor")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
	}

	if err := charmer.SetDefaults(viper.GetViper(), args); err != nil {
		panic("failed to set viper defaults: " + err.Error())
	}

	viper.SetEnvPrefix("TADOX_MONITOR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		slog.Error("failed to read config file", "err", err)
		os.Exit(1)
	}
}
