package bot

import (
	"fmt"
	"strconv"
	"time"

	"github.com/clambin/tadox-monitor/internal/poller"
)

func parseSetRoomCommand(update poller.Update, args ...string) (roomId int, roomName string, auto bool, temperature float64, durationSeconds int, err error) {
	if len(args) < 2 {
		err = fmt.Errorf("missing parameters\nUsage: set room <room> [auto|<temperature> [<duration>]]")
		return
	}

	roomName = args[0]
	room, ok := update.GetRoom(roomName)
	if !ok {
		err = fmt.Errorf("invalid room name: %s", roomName)
		return
	}
	roomId = room.Id

	if args[1] == "auto" {
		auto = true
		return
	}

	temperature, err = strconv.ParseFloat(args[1], 64)
	if err != nil {
		err = fmt.Errorf("invalid target temperature: %q", args[1])
		return
	}

	if len(args) > 2 {
		var duration time.Duration
		if duration, err = time.ParseDuration(args[2]); err != nil {
			err = fmt.Errorf("invalid duration: %q", args[2])
			return
		}
		durationSeconds = int(duration.Seconds())
	}

	return
}
