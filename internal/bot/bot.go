// Package bot implements a Slack bot to interact with the home: report rooms,
// users and device offsets, set room temperatures, switch home/away.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/clambin/tadox-monitor/internal/poller"
	"github.com/clambin/tadox-monitor/internal/tadox"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

type Bot struct {
	TadoClient
	SlackApp
	poller  poller.Poller
	logger  *slog.Logger
	update  poller.Update
	lock    sync.RWMutex
	updated bool
}

type TadoClient interface {
	SetPresence(ctx context.Context, presence tadox.Presence) error
	SetRoomTemperature(ctx context.Context, roomId int, temperature float64, durationSeconds int) error
	ResumeSchedule(ctx context.Context, roomId int) error
}

type SlackApp interface {
	AddSlashCommand(string, func(slack.SlashCommand, *socketmode.Client))
	Run(ctx context.Context) error
}

func New(tadoClient TadoClient, app SlackApp, p poller.Poller, logger *slog.Logger) *Bot {
	b := Bot{
		TadoClient: tadoClient,
		SlackApp:   app,
		poller:     p,
		logger:     logger,
	}

	b.SlackApp.AddSlashCommand("/rooms", b.doAndPost(b.onRooms))
	b.SlackApp.AddSlashCommand("/users", b.doAndPost(b.onUsers))
	b.SlackApp.AddSlashCommand("/offsets", b.doAndPost(b.onOffsets))
	b.SlackApp.AddSlashCommand("/setroom", b.doAndPost(b.onSetRoom))
	b.SlackApp.AddSlashCommand("/sethome", b.doAndPost(b.onSetHome))
	b.SlackApp.AddSlashCommand("/refresh", b.doAndPost(b.onRefresh))

	return &b
}

// Run the bot until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Debug("bot started")
	defer b.logger.Debug("bot stopped")
	errCh := make(chan error)
	go func() { errCh <- b.SlackApp.Run(ctx) }()

	ch := b.poller.Subscribe()
	defer b.poller.Unsubscribe(ch)

	for {
		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("bot: %w", err)
			}
		case <-ctx.Done():
			return nil
		case update := <-ch:
			b.setUpdate(update)
		}
	}
}

func (b *Bot) setUpdate(update poller.Update) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.update = update
	b.updated = true
}

func (b *Bot) getUpdate() (poller.Update, bool) {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.update, b.updated
}

var noUpdate = slack.Attachment{
	Color: "bad",
	Text:  "no updates yet. please check back later",
}

func (b *Bot) onRooms(_ context.Context, _ ...string) slack.Attachment {
	update, ok := b.getUpdate()
	if !ok {
		return noUpdate
	}

	text := make([]string, 0, len(update.Rooms))
	for _, room := range update.Rooms {
		if room.SensorDataPoints == nil || room.SensorDataPoints.InsideTemperature == nil {
			continue
		}
		text = append(text, fmt.Sprintf("%s: %.1fºC (%s)",
			room.Name,
			room.SensorDataPoints.InsideTemperature.Value,
			roomState(room),
		))
	}

	if len(text) == 0 {
		return slack.Attachment{Color: "bad", Text: "no rooms found"}
	}
	slices.Sort(text)
	return slack.Attachment{
		Color: "good",
		Title: "rooms:",
		Text:  strings.Join(text, "\n"),
	}
}

func roomState(room poller.Room) string {
	if room.Setting == nil || room.Setting.Power != "ON" || room.Setting.Temperature == nil {
		return "off"
	}
	target := fmt.Sprintf("target: %.1f", room.Setting.Temperature.Value)
	if mc := room.ManualControlTermination; mc != nil {
		if mc.RemainingTimeInSeconds != nil {
			return fmt.Sprintf("%s, MANUAL for %ds", target, *mc.RemainingTimeInSeconds)
		}
		return target + ", MANUAL"
	}
	return target
}

func (b *Bot) onUsers(_ context.Context, _ ...string) slack.Attachment {
	update, ok := b.getUpdate()
	if !ok {
		return noUpdate
	}

	text := make([]string, 0, len(update.MobileDevices))
	for _, device := range update.MobileDevices {
		location := map[bool]string{true: "home", false: "away"}[device.AtHome()]
		text = append(text, device.Name+": "+location)
	}

	return slack.Attachment{
		Title: "users:",
		Text:  strings.Join(text, "\n"),
	}
}

func (b *Bot) onOffsets(_ context.Context, _ ...string) slack.Attachment {
	update, ok := b.getUpdate()
	if !ok {
		return noUpdate
	}

	text := make([]string, 0, len(update.Devices))
	for serialNumber, device := range update.Devices {
		if device.TemperatureOffset == nil {
			continue
		}
		line := fmt.Sprintf("%s: offset %+.1fºC", serialNumber, *device.TemperatureOffset)
		if device.TemperatureAsMeasured != nil {
			line += fmt.Sprintf(" (measured: %.1fºC)", *device.TemperatureAsMeasured)
		}
		text = append(text, line)
	}

	if len(text) == 0 {
		return slack.Attachment{Color: "bad", Text: "no devices with a temperature offset found"}
	}
	slices.Sort(text)
	return slack.Attachment{
		Color: "good",
		Title: "offsets:",
		Text:  strings.Join(text, "\n"),
	}
}

func (b *Bot) onSetRoom(ctx context.Context, args ...string) slack.Attachment {
	update, ok := b.getUpdate()
	if !ok {
		return noUpdate
	}

	roomId, roomName, auto, temperature, durationSeconds, err := parseSetRoomCommand(update, args...)
	if err != nil {
		return slack.Attachment{Color: "bad", Text: "invalid command: " + err.Error()}
	}

	if auto {
		err = b.TadoClient.ResumeSchedule(ctx, roomId)
	} else {
		err = b.TadoClient.SetRoomTemperature(ctx, roomId, temperature, durationSeconds)
	}
	if err != nil {
		return slack.Attachment{Color: "bad", Text: "failed: " + err.Error()}
	}

	b.poller.Refresh()

	var text string
	if auto {
		text = "Resuming schedule for " + roomName
	} else {
		text = fmt.Sprintf("Setting target temperature for %s to %.1fºC", roomName, temperature)
		if durationSeconds > 0 {
			text += fmt.Sprintf(" for %ds", durationSeconds)
		}
	}
	return slack.Attachment{Color: "good", Text: text}
}

func (b *Bot) onSetHome(ctx context.Context, args ...string) slack.Attachment {
	var presence tadox.Presence
	if len(args) == 1 {
		switch args[0] {
		case "home":
			presence = tadox.PresenceHome
		case "away":
			presence = tadox.PresenceAway
		}
	}
	if presence == "" {
		return slack.Attachment{Color: "bad", Text: "missing parameter\nUsage: set home [home|away]"}
	}

	if err := b.TadoClient.SetPresence(ctx, presence); err != nil {
		return slack.Attachment{Color: "bad", Text: "failed: " + err.Error()}
	}

	b.poller.Refresh()

	return slack.Attachment{Color: "good", Text: "set home to " + args[0] + " mode"}
}

func (b *Bot) onRefresh(_ context.Context, _ ...string) slack.Attachment {
	b.poller.Refresh()
	return slack.Attachment{Text: "refreshing Tado data"}
}

func (b *Bot) doAndPost(f func(context.Context, ...string) slack.Attachment) func(cmd slack.SlashCommand, c *socketmode.Client) {
	return func(cmd slack.SlashCommand, c *socketmode.Client) {
		a := f(context.Background(), tokenizeText(cmd.Text)...)
		if _, _, err := c.PostMessage(cmd.ChannelID, slack.MsgOptionAttachments(a)); err != nil {
			b.logger.Error("failed to post response", "err", err)
		}
	}
}

func tokenizeText(input string) []string {
	cleanInput := input
	for _, quote := range []string{"“", "”", "'"} {
		cleanInput = strings.ReplaceAll(cleanInput, quote, "\"")
	}
	r := regexp.MustCompile(`[^\s"]+|"([^"]*)"`)
	output := r.FindAllString(cleanInput, -1)

	for index, word := range output {
		output[index] = strings.Trim(word, "\"")
	}
	return output
}
