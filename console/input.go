// Package console is the keyboard and text surface of the monitor: an input
// loop toggling sensor flags and a reporter printing metric snapshots.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/term"

	"github.com/Swind/go-rt-monitor/core"
)

// ErrQuit is returned by InputSurface.Run when the quit key is pressed.
var ErrQuit = errors.New("quit requested")

// DefaultPollInterval is the input polling period.
const DefaultPollInterval = 100 * time.Millisecond

// ctrlC arrives as a byte once the terminal is raw.
const ctrlC = 0x03

// SensorToggler flips a task's sensor flag, e.g. *core.MetricsStore.
type SensorToggler interface {
	ToggleSensor(name string) (bool, error)
}

// InputOptions configures an InputSurface.
type InputOptions struct {
	// Bindings maps a key to the task whose sensor it toggles. Keys are
	// matched case-insensitively. Defaults to DefaultBindings.
	Bindings map[rune]string

	// QuitKey defaults to 'q'.
	QuitKey rune

	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration

	// Out receives the prompt and toggle confirmations. Defaults to os.Stdout.
	Out io.Writer

	Logger core.Logger
}

// DefaultBindings binds 'a' to airbag and 'b' to abs.
func DefaultBindings() map[rune]string {
	return map[rune]string{
		'a': "airbag",
		'b': "abs",
	}
}

// InputSurface turns key presses into sensor toggles. It is a UI concern and
// never runs on a real-time thread.
type InputSurface struct {
	toggler  SensorToggler
	bindings map[rune]string
	quit     rune
	poll     time.Duration
	out      io.Writer
	logger   core.Logger
}

// NewInputSurface creates an input surface.
func NewInputSurface(toggler SensorToggler, opts InputOptions) *InputSurface {
	in := &InputSurface{
		toggler:  toggler,
		bindings: make(map[rune]string),
		quit:     unicode.ToLower(opts.QuitKey),
		poll:     opts.PollInterval,
		out:      opts.Out,
		logger:   opts.Logger,
	}
	bindings := opts.Bindings
	if bindings == nil {
		bindings = DefaultBindings()
	}
	for k, task := range bindings {
		in.bindings[unicode.ToLower(k)] = task
	}
	if in.quit == 0 {
		in.quit = 'q'
	}
	if in.poll <= 0 {
		in.poll = DefaultPollInterval
	}
	if in.out == nil {
		in.out = os.Stdout
	}
	if in.logger == nil {
		in.logger = core.NewNoOpLogger()
	}
	return in
}

// Prompt describes the bindings, e.g. "Press 'a' to toggle airbag, 'b' to
// toggle abs, 'q' to quit."
func (in *InputSurface) Prompt() string {
	keys := make([]rune, 0, len(in.bindings))
	for k := range in.bindings {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("'%c' to toggle %s", k, in.bindings[k]))
	}
	parts = append(parts, fmt.Sprintf("'%c' to quit", in.quit))
	return "Press " + strings.Join(parts, ", ") + "."
}

// Run reads keys from r until the quit key (ErrQuit), end of input (nil) or
// ctx cancellation (ctx.Err()). Keys are buffered by a reader goroutine and
// handled on every poll tick. A reader blocked in Read outlives Run; pass a
// reader that is closed at exit.
func (in *InputSurface) Run(ctx context.Context, r io.Reader) error {
	keys := make(chan rune, 64)
	readErr := make(chan error, 1)
	go func() {
		defer close(keys)
		br := bufio.NewReader(r)
		for {
			c, _, err := br.ReadRune()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case keys <- c:
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(in.out, in.Prompt())

	ticker := time.NewTicker(in.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		for drained := false; !drained; {
			select {
			case c, ok := <-keys:
				if !ok {
					return in.inputClosed(readErr)
				}
				if err := in.HandleKey(c); err != nil {
					return err
				}
			default:
				drained = true
			}
		}
	}
}

func (in *InputSurface) inputClosed(readErr <-chan error) error {
	var err error
	select {
	case err = <-readErr:
	default:
	}
	if err == nil || errors.Is(err, io.EOF) {
		in.logger.Info("input closed")
		return nil
	}
	return fmt.Errorf("read input: %w", err)
}

// HandleKey applies one key press. Unbound keys are ignored.
func (in *InputSurface) HandleKey(c rune) error {
	c = unicode.ToLower(c)
	if c == in.quit || c == ctrlC {
		fmt.Fprintln(in.out, "Exiting.")
		return ErrQuit
	}

	task, ok := in.bindings[c]
	if !ok {
		return nil
	}
	active, err := in.toggler.ToggleSensor(task)
	if err != nil {
		in.logger.Warn("sensor toggle failed", core.F("task", task), core.F("error", err))
		return nil
	}
	fmt.Fprintf(in.out, "Sensor %s toggled to %s\n", task, sensorState(active))
	return nil
}

func sensorState(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

// RawTerminal switches f to raw mode so single key presses are delivered
// without Enter or echo. It returns a restore function. Non-terminals are
// left untouched.
func RawTerminal(f *os.File) (restore func() error, err error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return func() error { return nil }, nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("raw terminal: %w", err)
	}
	return func() error { return term.Restore(fd, state) }, nil
}

// IsTerminal reports whether f is a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// CRLFWriter translates "\n" into "\r\n". Raw mode disables the terminal's
// own output translation.
type CRLFWriter struct {
	W io.Writer
}

func (w CRLFWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(w.W, strings.ReplaceAll(string(p), "\n", "\r\n")); err != nil {
		return 0, err
	}
	return len(p), nil
}
