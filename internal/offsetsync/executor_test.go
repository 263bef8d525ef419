package offsetsync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeviceSetter struct {
	lock    sync.Mutex
	calls   map[string]float64
	failing map[string]error
}

func (f *fakeDeviceSetter) SetDeviceTemperatureOffset(_ context.Context, serialNumber string, offset float64) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]float64)
	}
	f.calls[serialNumber] = offset
	return f.failing[serialNumber]
}

func TestExecutor_ExecuteBatch(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("nil request is invalid", func(t *testing.T) {
		e := Executor{TadoClient: &fakeDeviceSetter{}, Logger: logger}
		_, err := e.ExecuteBatch(t.Context(), nil)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("empty request is a no-op", func(t *testing.T) {
		setter := fakeDeviceSetter{}
		e := Executor{TadoClient: &setter, Logger: logger}
		result, err := e.ExecuteBatch(t.Context(), BatchRequest{})
		require.NoError(t, err)
		assert.Zero(t, result.Total())
		assert.Empty(t, setter.calls)
	})

	t.Run("all writes succeed", func(t *testing.T) {
		setter := fakeDeviceSetter{}
		e := Executor{TadoClient: &setter, Logger: logger}
		result, err := e.ExecuteBatch(t.Context(), BatchRequest{"RU1": -2.5, "RU2": 1.0, "RU3": 0})
		require.NoError(t, err)
		assert.Equal(t, 3, result.Total())
		assert.Equal(t, 3, result.Succeeded())
		assert.Zero(t, result.Failed())
		assert.Equal(t, map[string]float64{"RU1": -2.5, "RU2": 1.0, "RU3": 0}, setter.calls)
	})

	t.Run("one failure doesn't affect the others", func(t *testing.T) {
		setter := fakeDeviceSetter{failing: map[string]error{"RU2": errors.New("device unreachable")}}
		e := Executor{TadoClient: &setter, Logger: logger}
		result, err := e.ExecuteBatch(t.Context(), BatchRequest{"RU1": -2.5, "RU2": 1.0, "RU3": 0.5})
		require.NoError(t, err)
		assert.Equal(t, 3, result.Total())
		assert.Equal(t, 2, result.Succeeded())
		assert.Equal(t, 1, result.Failed())
		assert.Equal(t, []string{"RU2"}, result.FailedDevices())
		// the failed device was still attempted
		assert.Len(t, setter.calls, 3)
	})

	t.Run("invalid offsets are rejected before dispatch", func(t *testing.T) {
		setter := fakeDeviceSetter{}
		e := Executor{TadoClient: &setter, Logger: logger}
		result, err := e.ExecuteBatch(t.Context(), BatchRequest{
			"RU1": 9.9,   // at the limit: valid
			"RU2": -9.9,  // at the limit: valid
			"RU3": 9.91,  // out of range
			"RU4": -10.0, // out of range
		})
		require.NoError(t, err)
		assert.Equal(t, 4, result.Total())
		assert.Equal(t, 2, result.Succeeded())
		assert.Equal(t, []string{"RU3", "RU4"}, result.FailedDevices())

		var validationErr *ValidationError
		require.ErrorAs(t, result.Outcomes["RU3"], &validationErr)
		assert.Equal(t, 9.91, validationErr.Offset)

		// out of range entries never reach the client
		assert.Equal(t, map[string]float64{"RU1": 9.9, "RU2": -9.9}, setter.calls)
	})

	// every entry is accounted for, whatever its outcome
	t.Run("counts always add up", func(t *testing.T) {
		setter := fakeDeviceSetter{failing: map[string]error{"RU1": errors.New("err")}}
		e := Executor{TadoClient: &setter, Logger: logger}
		request := BatchRequest{"RU1": 1, "RU2": 2, "RU3": 100}
		result, err := e.ExecuteBatch(t.Context(), request)
		require.NoError(t, err)
		assert.Equal(t, len(request), result.Total())
		assert.Equal(t, result.Total(), result.Succeeded()+result.Failed())
	})
}
