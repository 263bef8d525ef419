package offsetsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Offsets outside this range are rejected by the devices themselves.
const (
	MinOffset = -9.9
	MaxOffset = 9.9
)

// ErrInvalidRequest is returned when a batch request is structurally invalid (nil).
var ErrInvalidRequest = errors.New("invalid batch request")

// A ValidationError marks a single batch entry whose offset is outside the
// hardware-allowed range. The entry is never sent to the device: silently
// clamping a wildly wrong value would hide the underlying problem.
type ValidationError struct {
	Offset float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("offset %.2f outside allowed range [%.1f, %.1f]", e.Offset, MinOffset, MaxOffset)
}

// A BatchRequest maps device serial numbers to the offset to be written.
type BatchRequest map[string]float64

// A BatchResult holds the outcome of every entry in a batch: nil for a
// successful write, the write or validation error otherwise.
type BatchResult struct {
	Outcomes map[string]error
}

func (r BatchResult) Total() int { return len(r.Outcomes) }

func (r BatchResult) Succeeded() int {
	var n int
	for _, err := range r.Outcomes {
		if err == nil {
			n++
		}
	}
	return n
}

func (r BatchResult) Failed() int { return r.Total() - r.Succeeded() }

// FailedDevices returns the serial numbers of all failed entries, sorted for
// deterministic reporting.
func (r BatchResult) FailedDevices() []string {
	devices := make([]string, 0, len(r.Outcomes))
	for serialNumber, err := range r.Outcomes {
		if err != nil {
			devices = append(devices, serialNumber)
		}
	}
	sort.Strings(devices)
	return devices
}

// A DeviceSetter writes one temperature offset to one remote device.
type DeviceSetter interface {
	SetDeviceTemperatureOffset(ctx context.Context, serialNumber string, offset float64) error
}

// An Executor writes batches of temperature offsets to their devices. All
// writes in a batch are dispatched concurrently and the Executor waits for
// all of them to settle. One device's failure never affects the others: the
// writes are independent remote resources and there is no rollback.
type Executor struct {
	TadoClient DeviceSetter
	Logger     *slog.Logger
}

// ExecuteBatch validates and writes all offsets in the request. It returns an
// error only for a structurally invalid (nil) request; individual validation
// and write failures are reported in the BatchResult. An empty request is a
// valid no-op and issues no remote calls.
//
// Every invocation logs one summary line with the success/failure/total
// counts, plus one line per failed device.
func (e *Executor) ExecuteBatch(ctx context.Context, request BatchRequest) (BatchResult, error) {
	if request == nil {
		return BatchResult{}, ErrInvalidRequest
	}

	result := BatchResult{Outcomes: make(map[string]error, len(request))}
	if len(request) == 0 {
		e.logResult(result)
		return result, nil
	}

	var lock sync.Mutex
	var g errgroup.Group
	for serialNumber, offset := range request {
		if offset < MinOffset || offset > MaxOffset {
			result.Outcomes[serialNumber] = &ValidationError{Offset: offset}
			continue
		}
		g.Go(func() error {
			err := e.TadoClient.SetDeviceTemperatureOffset(ctx, serialNumber, offset)
			lock.Lock()
			result.Outcomes[serialNumber] = err
			lock.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	e.logResult(result)
	return result, nil
}

func (e *Executor) logResult(result BatchResult) {
	e.Logger.Info(fmt.Sprintf("Batch offset update completed: %d successful, %d failed out of %d total",
		result.Succeeded(), result.Failed(), result.Total(),
	))
	for _, serialNumber := range result.FailedDevices() {
		e.Logger.Error("failed to update offset",
			slog.String("device", serialNumber),
			slog.Any("err", result.Outcomes[serialNumber]),
		)
	}
}
