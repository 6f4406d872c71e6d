// Package converter runs the external CSV to RDF conversion routine
package converter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

// Executor abstracts command execution for testability
type Executor interface {
	Run(ctx context.Context, dir, binary string, args []string, onOutput func(string)) error
}

// Option configures the command
type Option func(*Command)

// WithExecutor injects a custom executor (primarily for tests)
func WithExecutor(exec Executor) Option {
	return func(c *Command) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithDir sets the working directory of the conversion routine
func WithDir(dir string) Option {
	return func(c *Command) {
		c.dir = dir
	}
}

// Command implements uploads.Converter by running an external program with
// the CSV path and measure column appended to its arguments
type Command struct {
	binary string
	args   []string
	dir    string
	exec   Executor
	logger *slog.Logger
}

// New constructs a Command from a command line such as
// ["python3", "optimized_script.py"]
func New(commandLine []string, opts ...Option) (*Command, error) {
	if len(commandLine) == 0 || strings.TrimSpace(commandLine[0]) == "" {
		return nil, errors.New("converter command required")
	}
	c := &Command{
		binary: commandLine[0],
		args:   append([]string(nil), commandLine[1:]...),
		exec:   commandExecutor{},
		logger: slog.Default().With("component", "converter"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Convert runs the conversion routine and waits for it to finish. On failure
// the error carries the last line the routine printed
func (c *Command) Convert(ctx context.Context, csvPath, measure string) error {
	args := append(append([]string(nil), c.args...), csvPath, measure)

	var mu sync.Mutex
	var last string
	err := c.exec.Run(ctx, c.dir, c.binary, args, func(line string) {
		c.logger.Debug("converter output", "line", line)
		if strings.TrimSpace(line) == "" {
			return
		}
		mu.Lock()
		last = strings.TrimSpace(line)
		mu.Unlock()
	})
	if err != nil {
		mu.Lock()
		defer mu.Unlock()
		if last != "" {
			return &Error{Message: last, Err: err}
		}
		return &Error{Message: err.Error(), Err: err}
	}
	return nil
}

// Error is returned when the conversion routine fails. Its message is the
// routine's own error output
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// maxOutputLine is the longest single line of converter output accepted
const maxOutputLine = 1 << 20

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, dir, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Dir = dir
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxOutputLine)
		for scanner.Scan() {
			onOutput(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
