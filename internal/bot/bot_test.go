package bot

import (
	"context"
	"log/slog"
	"testing"

	"github.com/clambin/tadox-monitor/internal/poller/testutils"
	"github.com/clambin/tadox-monitor/internal/tadox"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSlackApp struct {
	commands map[string]func(slack.SlashCommand, *socketmode.Client)
}

func (f *fakeSlackApp) AddSlashCommand(command string, handler func(slack.SlashCommand, *socketmode.Client)) {
	if f.commands == nil {
		f.commands = make(map[string]func(slack.SlashCommand, *socketmode.Client))
	}
	f.commands[command] = handler
}

func (f *fakeSlackApp) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

type fakeTadoClient struct {
	presence    tadox.Presence
	temperature float64
	duration    int
	resumed     bool
	err         error
}

func (f *fakeTadoClient) SetPresence(_ context.Context, presence tadox.Presence) error {
	f.presence = presence
	return f.err
}

func (f *fakeTadoClient) SetRoomTemperature(_ context.Context, _ int, temperature float64, durationSeconds int) error {
	f.temperature = temperature
	f.duration = durationSeconds
	return f.err
}

func (f *fakeTadoClient) ResumeSchedule(_ context.Context, _ int) error {
	f.resumed = true
	return f.err
}

func newTestBot(client TadoClient) (*Bot, *fakeSlackApp, *testutils.Poller) {
	app := fakeSlackApp{}
	p := testutils.NewPoller()
	b := New(client, &app, p, slog.New(slog.DiscardHandler))
	return b, &app, p
}

func TestBot_RegistersCommands(t *testing.T) {
	_, app, _ := newTestBot(&fakeTadoClient{})
	for _, command := range []string{"/rooms", "/users", "/offsets", "/setroom", "/sethome", "/refresh"} {
		assert.Contains(t, app.commands, command)
	}
}

func TestBot_OnRooms(t *testing.T) {
	b, _, _ := newTestBot(&fakeTadoClient{})

	a := b.onRooms(t.Context())
	assert.Equal(t, noUpdate, a)

	b.setUpdate(testutils.Update(
		testutils.WithRoom(1, "living room", 20.5, 21.0),
		testutils.WithRoom(2, "study", 19.0, 17.0, testutils.WithManualControl(300)),
	))

	a = b.onRooms(t.Context())
	assert.Equal(t, "good", a.Color)
	assert.Equal(t, "living room: 20.5ºC (target: 21.0)\nstudy: 19.0ºC (target: 17.0, MANUAL for 300s)", a.Text)
}

func TestBot_OnUsers(t *testing.T) {
	b, _, _ := newTestBot(&fakeTadoClient{})

	b.setUpdate(testutils.Update(
		testutils.WithMobileDevice(1, "A", testutils.WithLocation(true)),
		testutils.WithMobileDevice(2, "B", testutils.WithLocation(false)),
	))

	a := b.onUsers(t.Context())
	assert.Equal(t, "A: home\nB: away", a.Text)
}

func TestBot_OnOffsets(t *testing.T) {
	b, _, _ := newTestBot(&fakeTadoClient{})

	b.setUpdate(testutils.Update(
		testutils.WithRoom(1, "living room", 20.5, 21.0,
			testutils.WithDevice("RU1", testutils.WithMeasuredTemperature(22.5), testutils.WithOffset(-2.0)),
			testutils.WithDevice("RU2"),
		),
	))

	a := b.onOffsets(t.Context())
	assert.Equal(t, "good", a.Color)
	assert.Equal(t, "RU1: offset -2.0ºC (measured: 22.5ºC)", a.Text)
}

func TestBot_OnSetRoom(t *testing.T) {
	client := fakeTadoClient{}
	b, _, p := newTestBot(&client)

	a := b.onSetRoom(t.Context(), "living room", "21.5")
	assert.Equal(t, noUpdate, a)

	b.setUpdate(testutils.Update(testutils.WithRoom(1, "living room", 20.5, 21.0)))

	a = b.onSetRoom(t.Context(), "living room", "21.5", "1h")
	require.Equal(t, "good", a.Color)
	assert.Equal(t, "Setting target temperature for living room to 21.5ºC for 3600s", a.Text)
	assert.Equal(t, 21.5, client.temperature)
	assert.Equal(t, 3600, client.duration)
	assert.Equal(t, int32(1), p.Refreshed.Load())

	a = b.onSetRoom(t.Context(), "living room", "auto")
	require.Equal(t, "good", a.Color)
	assert.Equal(t, "Resuming schedule for living room", a.Text)
	assert.True(t, client.resumed)

	a = b.onSetRoom(t.Context(), "study", "21.5")
	assert.Equal(t, "bad", a.Color)
}

func TestBot_OnSetHome(t *testing.T) {
	client := fakeTadoClient{}
	b, _, p := newTestBot(&client)

	a := b.onSetHome(t.Context(), "away")
	require.Equal(t, "good", a.Color)
	assert.Equal(t, tadox.PresenceAway, client.presence)
	assert.Equal(t, int32(1), p.Refreshed.Load())

	a = b.onSetHome(t.Context(), "upstairs")
	assert.Equal(t, "bad", a.Color)

	a = b.onSetHome(t.Context())
	assert.Equal(t, "bad", a.Color)
}

func TestBot_OnRefresh(t *testing.T) {
	b, _, p := newTestBot(&fakeTadoClient{})
	b.onRefresh(t.Context())
	assert.Equal(t, int32(1), p.Refreshed.Load())
}
