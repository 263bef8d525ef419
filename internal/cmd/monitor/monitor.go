package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/clambin/go-common/slackbot"
	"github.com/clambin/go-common/taskmanager"
	"github.com/clambin/go-common/taskmanager/httpserver"
	promserver "github.com/clambin/go-common/taskmanager/prometheus"
	"github.com/clambin/go-common/charmer"
	"github.com/clambin/tadox-monitor/internal/api"
	"github.com/clambin/tadox-monitor/internal/bot"
	"github.com/clambin/tadox-monitor/internal/collector"
	"github.com/clambin/tadox-monitor/internal/geofence"
	"github.com/clambin/tadox-monitor/internal/health"
	"github.com/clambin/tadox-monitor/internal/notifier"
	"github.com/clambin/tadox-monitor/internal/offsetsync"
	"github.com/clambin/tadox-monitor/internal/poller"
	"github.com/clambin/tadox-monitor/internal/sensors"
	"github.com/clambin/tadox-monitor/internal/tadox"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Cmd = cobra.Command{
	Use:   "monitor",
	Short: "Monitor Tadoº X rooms and devices",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := charmer.GetLogger(cmd)
		logger.Info("starting tadox-monitor", "version", cmd.Root().Version)
		defer logger.Info("tadox-monitor stopped")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		m, err := New(ctx, viper.GetViper(), cmd.Root().Version, prometheus.DefaultRegisterer, logger)
		if err != nil {
			return err
		}
		return m.Run(ctx)
	},
}

func New(ctx context.Context, cfg *viper.Viper, version string, registry prometheus.Registerer, logger *slog.Logger) (*taskmanager.Manager, error) {
	client, err := connect(ctx, cfg, registry, logger)
	if err != nil {
		return nil, fmt.Errorf("tado: %w", err)
	}
	tasks, err := makeTasks(cfg, client, version, registry, logger)
	if err != nil {
		return nil, err
	}
	return taskmanager.New(tasks...), nil
}

// connect builds an authenticated Tado client and resolves the home id.
func connect(ctx context.Context, cfg *viper.Viper, registry prometheus.Registerer, logger *slog.Logger) (*tadox.Client, error) {
	ts, err := tadox.NewTokenSource(ctx, cfg.GetString("tado.token-file"), logger.With("component", "auth"))
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}

	client := tadox.New(instrumentedTadoClient(ctx, ts, registry))
	client.Auth = ts
	me, err := client.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("me: %w", err)
	}
	if len(me.Homes) == 0 {
		return nil, errors.New("no homes registered for this account")
	}
	client.HomeId = me.Homes[0].Id
	logger.Info("connected to Tado", "home", me.Homes[0].Name)
	return client, nil
}

func makeTasks(cfg *viper.Viper, client *tadox.Client, version string, registry prometheus.Registerer, l *slog.Logger) ([]taskmanager.Task, error) {
	var tasks []taskmanager.Task

	// Poller
	p := poller.New(client, cfg.GetDuration("poller.interval"), l.With("component", "poller"))
	tasks = append(tasks, p)

	// Collector
	coll := &collector.Collector{Poller: p, Logger: l.With("component", "collector")}
	if registry != nil {
		registry.MustRegister(coll)
	}
	tasks = append(tasks, coll)

	// Prometheus server
	tasks = append(tasks, promserver.New(promserver.WithAddr(cfg.GetString("exporter.addr"))))

	// Health endpoint
	h := health.New(p, l.With("component", "health"))
	tasks = append(tasks, h)
	r := http.NewServeMux()
	r.Handle("/health", h)
	tasks = append(tasks, httpserver.New(cfg.GetString("health.addr"), r))

	// REST API
	executor := &offsetsync.Executor{TadoClient: client, Logger: l.With("component", "executor")}
	tasks = append(tasks, httpserver.New(
		cfg.GetString("api.addr"),
		api.New(client, executor, p, l.With("component", "api")),
	))

	// Offset syncer, fed by MQTT reference sensors
	syncCfg := offsetsync.Configuration{
		Enabled:    cfg.GetBool("offsetsync.enabled"),
		Hysteresis: cfg.GetFloat64("offsetsync.hysteresis"),
	}
	if err := cfg.UnmarshalKey("offsetsync.rooms", &syncCfg.Rooms); err != nil {
		return nil, fmt.Errorf("offsetsync configuration: %w", err)
	}
	if syncCfg.Enabled {
		if len(syncCfg.Rooms) == 0 {
			l.Warn("offset sync enabled but no rooms configured. syncer will not run")
		} else {
			mqttCfg := sensors.Configuration{
				Broker:   cfg.GetString("mqtt.broker"),
				ClientID: cfg.GetString("mqtt.client-id"),
				Username: cfg.GetString("mqtt.username"),
				Password: cfg.GetString("mqtt.password"),
				MaxAge:   cfg.GetDuration("mqtt.max-age"),
			}
			topics := make([]string, 0, len(syncCfg.Rooms))
			for _, room := range syncCfg.Rooms {
				topics = append(topics, room.Sensor)
			}
			receiver := sensors.New(mqttCfg, topics, l.With("component", "sensors"))
			tasks = append(tasks,
				receiver,
				offsetsync.New(p, client, receiver, syncCfg, l.With("component", "offsetsync")),
			)
		}
	}

	// Slack bot
	var b *slackbot.SlackBot
	notifiers := notifier.Notifiers{&notifier.SLogNotifier{Logger: l.With("component", "notifier")}}
	if token := cfg.GetString("slack.token"); token != "" {
		b = slackbot.New(
			token,
			slackbot.WithName("tadox-monitor "+version),
			slackbot.WithLogger(l.With(slog.String("component", "slackbot"))),
		)
		tasks = append(tasks,
			b,
			bot.New(client, b, p, l.With(slog.String("component", "bot"))),
		)
		notifiers = append(notifiers, &notifier.SlackNotifier{
			SlackSender: slack.New(token),
			Logger:      l.With("component", "notifier"),
		})
	}

	// Geofencing
	if cfg.GetBool("geofencing.enabled") {
		tasks = append(tasks, geofence.New(p, client, notifiers, l.With("component", "geofence")))
	}

	return tasks, nil
}
