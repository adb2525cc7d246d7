package hack

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/langbridge/rpc"
	"github.com/lexcodex/langbridge/rpc/rpctest"
	"github.com/lexcodex/langbridge/services"
)

func hackHandler(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "HackService/getDiagnostics":
		return [][]DiagnosticPart{{{Path: "/www/a.php", Descr: "Unbound name", Code: 2049, Line: 2, Start: 1, End: 3}}}, nil
	case "HackService/formatSource":
		var args struct {
			Contents string `json:"contents"`
		}
		_ = json.Unmarshal(params, &args)
		return args.Contents + "\n", nil
	case "HackService/getTypeAtPos":
		return map[string]any{"type": nil}, nil
	case "HackService/findReferences":
		return nil, nil
	}
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: method}
}

func newTestServer(fake *rpctest.Server) *Server {
	return NewServer(ServerOptions{
		Command:  "hh-bridge",
		BasePath: "/www",
		MakerFactory: func(d rpc.ProcessDescriptor) rpc.ProcessMaker {
			return fake.Maker()
		},
	}, services.DefaultRegistry())
}

func TestServerLanguageRoundTrip(t *testing.T) {
	fake := rpctest.NewServer(hackHandler)
	server := newTestServer(fake)
	lang := NewLanguage(true, "/www", "/www/a.php", server.Lazy())
	defer lang.Dispose()
	require.Equal(t, 0, fake.Spawns())

	ctx := context.Background()
	diags, err := lang.GetDiagnostics(ctx, "/www/a.php", "<?hh\nfoo();")
	require.NoError(t, err)
	require.Len(t, diags, 1)
	require.Equal(t, uint32(1), diags[0].Range.Start.Line)

	formatted, err := lang.FormatSource(ctx, "<?hh", 0, 4)
	require.NoError(t, err)
	require.Equal(t, "<?hh\n", formatted)
	require.JSONEq(t, `{"basePath":"/www","contents":"<?hh","start":0,"end":4}`,
		string(fake.LastParams("HackService/formatSource")))

	_, ok, err := lang.GetType(ctx, "/www/a.php", "", "$x", 1, 1)
	require.NoError(t, err)
	require.False(t, ok)

	refs, err := lang.FindReferences(ctx, "/www/a.php", "", 1, 1)
	require.NoError(t, err)
	require.Nil(t, refs)

	_, err = lang.GetTypeCoverage(ctx, "/www/a.php")
	var remote *rpc.RemoteError
	require.ErrorAs(t, err, &remote)
	require.True(t, remote.IsMethodNotFound())
	require.Equal(t, 1, fake.Spawns())
}

func TestServerDisposeThroughLanguage(t *testing.T) {
	fake := rpctest.NewServer(hackHandler)
	server := newTestServer(fake)
	lang := NewLanguage(true, "/www", "", server.Lazy())

	_, err := lang.GetDiagnostics(context.Background(), "/www/a.php", "")
	require.NoError(t, err)
	lang.Dispose()
	require.True(t, server.IsDisposed())
	require.True(t, fake.Killed())

	_, err = lang.GetDiagnostics(context.Background(), "/www/a.php", "")
	require.ErrorIs(t, err, rpc.ErrDisposed)
}

func TestNewServerDescriptor(t *testing.T) {
	var got rpc.ProcessDescriptor
	fake := rpctest.NewServer(hackHandler)
	NewServer(ServerOptions{
		Command:  "hh-bridge",
		Args:     []string{"--json"},
		BasePath: "/www",
		MakerFactory: func(d rpc.ProcessDescriptor) rpc.ProcessMaker {
			got = d
			return fake.Maker()
		},
	}, services.DefaultRegistry())
	require.Equal(t, "hh-bridge", got.Executable())
	require.Equal(t, []string{"--json", "--root", "/www"}, got.Args())
	require.Equal(t, "/www", got.Dir())
}
