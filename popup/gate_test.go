package popup

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGate(t *testing.T) {
	gate := NewGate()

	require.False(t, gate.Held())
	require.True(t, gate.TryAcquire())
	require.True(t, gate.Held())

	// second acquire must fail while the slot is taken
	require.False(t, gate.TryAcquire())

	gate.Release()
	require.False(t, gate.Held())
	require.True(t, gate.TryAcquire())
	gate.Release()

	// releasing a free gate must stay a no-op
	gate.Release()
	require.True(t, gate.TryAcquire())
	require.False(t, gate.TryAcquire())
}
