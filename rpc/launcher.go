package rpc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"sync"
)

// ProcessDescriptor is the immutable command line and environment of an
// external service process.
type ProcessDescriptor struct {
	executable string
	args       []string
	dir        string
	env        map[string]string
}

// NewProcessDescriptor copies its inputs so later mutation by the caller has no effect.
func NewProcessDescriptor(executable string, args []string, dir string, env map[string]string) ProcessDescriptor {
	d := ProcessDescriptor{
		executable: executable,
		args:       append([]string(nil), args...),
		dir:        dir,
		env:        make(map[string]string, len(env)),
	}
	for k, v := range env {
		d.env[k] = v
	}
	return d
}

// Executable returns the program to run.
func (d ProcessDescriptor) Executable() string { return d.executable }

// Dir returns the working directory, empty for the caller's.
func (d ProcessDescriptor) Dir() string { return d.dir }

// Args returns a copy of the argument list.
func (d ProcessDescriptor) Args() []string {
	return append([]string(nil), d.args...)
}

// EnvOverrides returns a copy of the environment overrides.
func (d ProcessDescriptor) EnvOverrides() map[string]string {
	out := make(map[string]string, len(d.env))
	for k, v := range d.env {
		out[k] = v
	}
	return out
}

// Env returns the inherited environment with overrides appended. Later
// entries win for exec.Cmd, so overrides take precedence.
func (d ProcessDescriptor) Env() []string {
	env := os.Environ()
	keys := make([]string, 0, len(d.env))
	for k := range d.env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+d.env[k])
	}
	return env
}

// Process is a running external process whose stdio carries the RPC stream.
type Process interface {
	io.ReadWriteCloser
	Pid() int
	Kill() error
	Wait() error
}

// ProcessMaker spawns the process. It is invoked lazily, on first use.
type ProcessMaker func(ctx context.Context) (Process, error)

// Maker returns a ProcessMaker that spawns d with piped stdio. Stderr is
// forwarded to logger at debug level.
func (d ProcessDescriptor) Maker(logger *slog.Logger) ProcessMaker {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context) (Process, error) {
		return spawn(ctx, d, logger)
	}
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	cancel context.CancelFunc

	// stderrDone is closed once stderr has been drained to EOF.
	stderrDone chan struct{}

	waitOnce sync.Once
	waitErr  error
}

func spawn(ctx context.Context, d ProcessDescriptor, logger *slog.Logger) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := exec.LookPath(d.executable)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrExecutableNotFound, d.executable)
	}

	// The process outlives the request that triggered the spawn.
	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, path, d.args...)
	cmd.Dir = d.dir
	cmd.Env = d.Env()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start process: %w", err)
	}

	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			logger.Debug("process stderr",
				slog.String("executable", d.executable),
				slog.Int("pid", cmd.Process.Pid),
				slog.String("line", scanner.Text()),
			)
		}
	}()

	return &execProcess{cmd: cmd, stdin: stdin, stdout: stdout, cancel: cancel, stderrDone: stderrDone}, nil
}

func (p *execProcess) Read(b []byte) (int, error)  { return p.stdout.Read(b) }
func (p *execProcess) Write(b []byte) (int, error) { return p.stdin.Write(b) }

func (p *execProcess) Close() error {
	_ = p.stdout.Close()
	return p.stdin.Close()
}

func (p *execProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *execProcess) Kill() error {
	p.cancel()
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

func (p *execProcess) Wait() error {
	p.waitOnce.Do(func() {
		// cmd.Wait closes the stderr pipe, so the drain must finish first.
		<-p.stderrDone
		p.waitErr = p.cmd.Wait()
	})
	return p.waitErr
}
