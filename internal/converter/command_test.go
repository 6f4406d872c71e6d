package converter

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	dir    string
	binary string
	args   []string
	output []string
	err    error
}

func (f *fakeExecutor) Run(ctx context.Context, dir, binary string, args []string, onOutput func(string)) error {
	f.dir = dir
	f.binary = binary
	f.args = args
	for _, line := range f.output {
		onOutput(line)
	}
	return f.err
}

func TestNewRequiresCommand(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New([]string{"  "})
	assert.Error(t, err)
}

func TestConvertArguments(t *testing.T) {
	executor := &fakeExecutor{}
	cmd, err := New([]string{"python3", "optimized_script.py"}, WithExecutor(executor), WithDir("/work"))
	require.NoError(t, err)

	require.NoError(t, cmd.Convert(context.Background(), "uploads/report.csv", "value"))

	assert.Equal(t, "/work", executor.dir)
	assert.Equal(t, "python3", executor.binary)
	assert.Equal(t, []string{"optimized_script.py", "uploads/report.csv", "value"}, executor.args)

	// Arguments do not leak between calls
	require.NoError(t, cmd.Convert(context.Background(), "uploads/other.csv", "total"))
	assert.Equal(t, []string{"optimized_script.py", "uploads/other.csv", "total"}, executor.args)
}

func TestConvertErrorUsesLastOutputLine(t *testing.T) {
	exitErr := errors.New("wait command: exit status 1")
	executor := &fakeExecutor{
		output: []string{
			"Traceback (most recent call last):",
			`  File "optimized_script.py", line 10, in run`,
			"KeyError: 'value'",
			"",
		},
		err: exitErr,
	}
	cmd, err := New([]string{"python3", "optimized_script.py"}, WithExecutor(executor))
	require.NoError(t, err)

	err = cmd.Convert(context.Background(), "in.csv", "value")
	require.Error(t, err)
	assert.Equal(t, "KeyError: 'value'", err.Error())
	assert.ErrorIs(t, err, exitErr)

	var convErr *Error
	assert.ErrorAs(t, err, &convErr)
}

func TestConvertErrorWithoutOutput(t *testing.T) {
	executor := &fakeExecutor{err: errors.New("start command: executable file not found")}
	cmd, err := New([]string{"missing-binary"}, WithExecutor(executor))
	require.NoError(t, err)

	err = cmd.Convert(context.Background(), "in.csv", "value")
	require.Error(t, err)
	assert.Equal(t, "start command: executable file not found", err.Error())
}

func TestCommandExecutor(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	var mu sync.Mutex
	var lines []string
	err = commandExecutor{}.Run(context.Background(), t.TempDir(), sh, []string{"-c", "echo converted; echo oops >&2; exit 3"}, func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	})

	require.Error(t, err)
	assert.ElementsMatch(t, []string{"converted", "oops"}, lines)
}

func TestCommandExecutorLongLine(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	var mu sync.Mutex
	var lines []string
	script := `i=0; s=x; while [ $i -lt 17 ]; do s="$s$s"; i=$((i+1)); done; echo "$s"; echo done`
	err = commandExecutor{}.Run(context.Background(), t.TempDir(), sh, []string{"-c", script}, func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	})

	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Len(t, lines[0], 1<<17)
	assert.Equal(t, "done", lines[1])
}
