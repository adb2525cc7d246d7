package rpc

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProcessDescriptorIsImmutable(t *testing.T) {
	args := []string{"server.py", "-s", "a.py"}
	env := map[string]string{"PYTHONPATH": "/vendor"}
	d := NewProcessDescriptor("python", args, "/srv", env)

	args[0] = "mutated"
	env["PYTHONPATH"] = "mutated"
	require.Equal(t, []string{"server.py", "-s", "a.py"}, d.Args())
	require.Equal(t, "/vendor", d.EnvOverrides()["PYTHONPATH"])

	got := d.Args()
	got[0] = "mutated"
	require.Equal(t, "server.py", d.Args()[0])
}

func TestProcessDescriptorEnvOverridesWin(t *testing.T) {
	t.Setenv("LANGBRIDGE_TEST_VAR", "inherited")
	d := NewProcessDescriptor("python", nil, "", map[string]string{"LANGBRIDGE_TEST_VAR": "override"})
	env := d.Env()
	last := ""
	for _, kv := range env {
		if strings.HasPrefix(kv, "LANGBRIDGE_TEST_VAR=") {
			last = kv
		}
	}
	require.Equal(t, "LANGBRIDGE_TEST_VAR=override", last)
}

func TestMakerReportsMissingExecutable(t *testing.T) {
	d := NewProcessDescriptor("langbridge-definitely-missing-binary", nil, "", nil)
	_, err := d.Maker(slog.Default())(context.Background())
	require.ErrorIs(t, err, ErrExecutableNotFound)
}

func TestWaitDrainsStderrFirst(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	d := NewProcessDescriptor("sh", []string{"-c", "echo last words >&2; exit 3"}, "", nil)

	proc, err := d.Maker(logger)(context.Background())
	require.NoError(t, err)
	waitErr := proc.Wait()
	require.Error(t, waitErr)
	require.Contains(t, buf.String(), "last words")
	require.Equal(t, waitErr, proc.Wait())
}
