package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type memStore struct {
	states map[string]json.RawMessage
}

func (m *memStore) Save(name string, state json.RawMessage) error {
	m.states[name] = state
	return nil
}

func (m *memStore) Load(name string) (json.RawMessage, bool, error) {
	state, ok := m.states[name]
	return state, ok, nil
}

type counterController struct {
	Count    int `json:"count"`
	disposed bool
}

func (c *counterController) Serialize() (any, error) { return c, nil }

func (c *counterController) Dispose() error {
	c.disposed = true
	return nil
}

func counterFactory(created *[]*counterController) Factory {
	return func(ctx context.Context, state json.RawMessage) (Controller, error) {
		c := &counterController{}
		if state != nil {
			if err := json.Unmarshal(state, c); err != nil {
				return nil, err
			}
		}
		*created = append(*created, c)
		return c, nil
	}
}

func TestPackageLifecycleRestoresState(t *testing.T) {
	store := &memStore{states: map[string]json.RawMessage{}}
	var created []*counterController
	pkg := NewPackage("counter", counterFactory(&created), store, nil)
	ctx := context.Background()

	_, err := pkg.Serialize()
	require.ErrorIs(t, err, ErrNotActive)

	require.NoError(t, pkg.Activate(ctx))
	require.NoError(t, pkg.Activate(ctx))
	require.Len(t, created, 1)
	require.True(t, pkg.Active())

	created[0].Count = 3
	state, err := pkg.Serialize()
	require.NoError(t, err)
	require.JSONEq(t, `{"count":3}`, string(state))

	require.NoError(t, pkg.Deactivate(ctx))
	require.NoError(t, pkg.Deactivate(ctx))
	require.True(t, created[0].disposed)
	require.False(t, pkg.Active())
	require.Nil(t, pkg.Controller())

	require.NoError(t, pkg.Activate(ctx))
	require.Len(t, created, 2)
	require.Equal(t, 3, created[1].Count)
}

func TestPackageWithoutStore(t *testing.T) {
	var created []*counterController
	pkg := NewPackage("counter", counterFactory(&created), nil, nil)
	ctx := context.Background()
	require.NoError(t, pkg.Activate(ctx))
	require.NoError(t, pkg.Deactivate(ctx))
	require.True(t, created[0].disposed)
}

func TestPackageActivateFailure(t *testing.T) {
	boom := errors.New("boom")
	pkg := NewPackage("broken", func(ctx context.Context, state json.RawMessage) (Controller, error) {
		return nil, boom
	}, nil, nil)
	require.ErrorIs(t, pkg.Activate(context.Background()), boom)
	require.False(t, pkg.Active())
}
