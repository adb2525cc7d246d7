package python

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lexcodex/langbridge/rpc"
	"github.com/lexcodex/langbridge/rpc/rpctest"
	"github.com/lexcodex/langbridge/services"
)

func TestServerManagerReusesServerPerFile(t *testing.T) {
	fake := rpctest.NewServer(jediHandler)
	m := NewServerManager(testOptions(fake), services.DefaultRegistry())
	defer m.Dispose()

	a1, err := m.Server("/src/a.py")
	require.NoError(t, err)
	a2, err := m.Server("/src/a.py")
	require.NoError(t, err)
	require.Same(t, a1, a2)

	b, err := m.Server("/src/b.py")
	require.NoError(t, err)
	require.NotSame(t, a1, b)
	require.Equal(t, 2, m.Len())
	require.Equal(t, 0, fake.Spawns())
}

func TestServerManagerForwardsCalls(t *testing.T) {
	fake := rpctest.NewServer(jediHandler)
	m := NewServerManager(testOptions(fake), services.DefaultRegistry())
	defer m.Dispose()
	ctx := context.Background()

	completions, err := m.GetCompletions(ctx, "/src/a.py", "os.", 0, 3)
	require.NoError(t, err)
	require.Equal(t, "join", completions[0].Text)

	_, err = m.GetDefinitions(ctx, "/src/a.py", "os.", 0, 3)
	require.NoError(t, err)
	_, err = m.GetReferences(ctx, "/src/a.py", "os.", 0, 3)
	require.NoError(t, err)
	require.Equal(t, 1, fake.Spawns())
}

func TestServerManagerDispose(t *testing.T) {
	fake := rpctest.NewServer(jediHandler)
	m := NewServerManager(testOptions(fake), services.DefaultRegistry())
	ctx := context.Background()

	_, err := m.GetCompletions(ctx, "/src/a.py", "os.", 0, 3)
	require.NoError(t, err)
	m.Dispose()
	m.Dispose()
	require.True(t, fake.Killed())

	_, err = m.GetCompletions(ctx, "/src/a.py", "os.", 0, 3)
	require.ErrorIs(t, err, rpc.ErrDisposed)
	_, err = m.Server("/src/a.py")
	require.ErrorIs(t, err, rpc.ErrDisposed)
}
