package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDrawBounds(t *testing.T) {
	j := Jitter{}
	base := 10 * time.Millisecond
	for i := 0; i < 200; i++ {
		d := j.draw(base)
		require.GreaterOrEqual(t, d, base/2)
		require.LessOrEqual(t, d, base+base/2)
	}
}

func TestDrawScalesWithBase(t *testing.T) {
	j := Jitter{}
	small := j.draw(10 * time.Millisecond)
	large := j.draw(10 * time.Minute)
	require.Greater(t, large, small)
}

func TestDrawRespectsMin(t *testing.T) {
	j := Jitter{Min: time.Second}
	require.Equal(t, time.Second, j.draw(time.Millisecond))
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	j := Jitter{}
	err := j.Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNop(t *testing.T) {
	require.NoError(t, Nop{}.Sleep(context.Background(), time.Hour))
}
