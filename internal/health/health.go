// Package health serves the latest poller update as a liveness probe.
// Device serial numbers are redacted, as the output may end up in bug reports.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/clambin/tadox-monitor/internal/poller"
	"github.com/clambin/tadox-monitor/internal/tadox"
)

type Health struct {
	poller.Poller
	logger  *slog.Logger
	update  poller.Update
	updated bool
	lock    sync.RWMutex
}

func New(p poller.Poller, logger *slog.Logger) *Health {
	return &Health{
		Poller: p,
		logger: logger,
	}
}

func (h *Health) Run(ctx context.Context) error {
	h.logger.Debug("started")
	defer h.logger.Debug("stopped")

	ch := h.Poller.Subscribe()
	defer h.Poller.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-ch:
			h.lock.Lock()
			h.update = update
			h.updated = true
			h.lock.Unlock()
		}
	}
}

func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.lock.RLock()
	defer h.lock.RUnlock()
	if !h.updated {
		http.Error(w, "no update yet", http.StatusServiceUnavailable)
		h.Poller.Refresh()
		return
	}

	w.Header().Set("Content-Type", "application/json")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(redact(h.update)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

const redacted = "**REDACTED**"

func redact(update poller.Update) poller.Update {
	rooms := make([]poller.Room, len(update.Rooms))
	for i, room := range update.Rooms {
		room.Devices = redactDevices(room.Devices)
		rooms[i] = room
	}
	update.Rooms = rooms

	devices := make(map[string]tadox.Device, len(update.Devices))
	var n int
	for _, device := range update.Devices {
		device.SerialNumber = redacted
		devices[deviceKey(n)] = device
		n++
	}
	update.Devices = devices
	return update
}

func redactDevices(devices []tadox.Device) []tadox.Device {
	redactedDevices := make([]tadox.Device, len(devices))
	for i, device := range devices {
		device.SerialNumber = redacted
		redactedDevices[i] = device
	}
	return redactedDevices
}

func deviceKey(n int) string {
	return "device_" + strconv.Itoa(n)
}
