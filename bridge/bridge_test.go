package bridge

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/langbridge/autocomplete"
	"github.com/lexcodex/langbridge/hack"
	"github.com/lexcodex/langbridge/internal/config"
	"github.com/lexcodex/langbridge/persistence"
	"github.com/lexcodex/langbridge/python"
	"github.com/lexcodex/langbridge/rpc"
	"github.com/lexcodex/langbridge/rpc/rpctest"
)

func fakeHandler(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "JediService/get_completions":
		return []python.Completion{{Text: "f", Type: "function", Params: []string{"a", "b=1"}}}, nil
	case "HackService/getDiagnostics":
		return [][]hack.DiagnosticPart{{{Path: "/www/a.php", Descr: "bad", Line: 1, Start: 1, End: 1}}}, nil
	}
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: method}
}

func testEnv(t *testing.T, fake *rpctest.Server) *Environment {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default(dir)
	store, err := persistence.NewStateStore(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return &Environment{
		Config:   cfg,
		Registry: NewRegistry(cfg),
		Store:    store,
		MakerFactory: func(rpc.ProcessDescriptor) rpc.ProcessMaker {
			return fake.Maker()
		},
	}
}

func TestPythonPackageLifecycle(t *testing.T) {
	fake := rpctest.NewServer(fakeHandler)
	env := testEnv(t, fake)
	pkg := NewPythonPackage(env)
	ctx := context.Background()

	require.NoError(t, pkg.Activate(ctx))
	controller := pkg.Controller().(*PythonController)
	result := controller.Provider.GetSuggestions(ctx, autocomplete.Request{File: "/src/a.py", Prefix: "f"})
	require.Equal(t, autocomplete.StatusOK, result.Status)
	require.Equal(t, "f(${1:a})", result.Suggestions[0].Snippet)

	controller.SetSettings(autocomplete.Settings{AutocompleteArguments: true, IncludeOptionalArguments: true})
	require.NoError(t, pkg.Deactivate(ctx))
	require.True(t, fake.Killed())

	require.NoError(t, pkg.Activate(ctx))
	defer pkg.Deactivate(ctx)
	restored := pkg.Controller().(*PythonController)
	require.True(t, restored.Settings().IncludeOptionalArguments)
	result = restored.Provider.GetSuggestions(ctx, autocomplete.Request{File: "/src/a.py", Prefix: "f"})
	require.Equal(t, "f(${1:a}, ${2:b=1})", result.Suggestions[0].Snippet)
}

func TestPythonPackageDegradesAfterDeactivate(t *testing.T) {
	fake := rpctest.NewServer(fakeHandler)
	env := testEnv(t, fake)
	pkg := NewPythonPackage(env)
	ctx := context.Background()

	require.NoError(t, pkg.Activate(ctx))
	controller := pkg.Controller().(*PythonController)
	require.NoError(t, pkg.Deactivate(ctx))

	result := controller.Provider.GetSuggestions(ctx, autocomplete.Request{File: "/src/a.py", Prefix: "f"})
	require.Equal(t, autocomplete.StatusDegraded, result.Status)
	require.ErrorIs(t, result.Err, rpc.ErrDisposed)
}

func TestHackPackageLifecycle(t *testing.T) {
	fake := rpctest.NewServer(fakeHandler)
	env := testEnv(t, fake)
	pkg := NewHackPackage(env, "/www/a.php")
	ctx := context.Background()

	require.NoError(t, pkg.Activate(ctx))
	controller := pkg.Controller().(*HackController)
	require.Equal(t, env.Config.Workspace, controller.Language.BasePath())
	diags, err := controller.Language.GetDiagnostics(ctx, "/www/a.php", "")
	require.NoError(t, err)
	require.Len(t, diags, 1)

	state, err := pkg.Serialize()
	require.NoError(t, err)
	require.JSONEq(t, `{"basePath":"`+env.Config.Workspace+`"}`, string(state))

	require.NoError(t, pkg.Deactivate(ctx))
	require.True(t, fake.Killed())
	saved, ok, err := env.Store.Load(HackPackage)
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, string(state), string(saved))
}

func TestNewRegistryFromServicesDir(t *testing.T) {
	cfg := config.Default(t.TempDir())
	cfg.ServicesDir = t.TempDir()
	_, err := NewRegistry(cfg).Get()
	require.ErrorIs(t, err, rpc.ErrConfiguration)
}
