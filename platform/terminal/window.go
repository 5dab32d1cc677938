// Package terminal renders the window as a Bubble Tea program in the
// controlling terminal. Key presses and terminal resizes are reported as
// window events.
package terminal

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/GoCodeAlone/doodle/events"
	"github.com/GoCodeAlone/doodle/platform"
)

// Option configures the terminal window.
type Option func(*settings)

type settings struct {
	input     io.Reader
	output    io.Writer
	altScreen bool
}

// WithInput reads key presses from r instead of stdin.
func WithInput(r io.Reader) Option {
	return func(s *settings) { s.input = r }
}

// WithOutput renders to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(s *settings) { s.output = w }
}

// WithAltScreen renders in the terminal's alternate screen buffer.
func WithAltScreen() Option {
	return func(s *settings) { s.altScreen = true }
}

// Window is a platform.Window backed by a Bubble Tea program running on its
// own goroutine.
type Window struct {
	title string

	mu      sync.Mutex
	width   int
	height  int
	pending []events.Event
	closed  bool

	program *tea.Program
	done    chan struct{}
	runErr  error
}

var _ platform.Window = (*Window)(nil)

// Opener returns a platform.Opener that starts a terminal window.
func Opener(opts ...Option) platform.Opener {
	return func(props platform.Props) (platform.Window, error) {
		return Open(props, opts...)
	}
}

// Open starts the Bubble Tea program and returns once it is running.
func Open(props platform.Props, opts ...Option) (*Window, error) {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	w := &Window{
		title:  props.Title,
		width:  props.Width,
		height: props.Height,
		done:   make(chan struct{}),
	}

	teaOpts := []tea.ProgramOption{tea.WithoutSignalHandler()}
	if s.input != nil {
		teaOpts = append(teaOpts, tea.WithInput(s.input))
	}
	if s.output != nil {
		teaOpts = append(teaOpts, tea.WithOutput(s.output))
	}
	if s.altScreen {
		teaOpts = append(teaOpts, tea.WithAltScreen())
	}

	w.program = tea.NewProgram(newModel(w), teaOpts...)

	go func() {
		defer close(w.done)
		_, err := w.program.Run()
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			w.mu.Lock()
			w.runErr = err
			w.mu.Unlock()
		}
		// The program stopping on its own is a close request.
		w.push(events.WindowClose{})
	}()

	return w, nil
}

func (w *Window) Title() string { return w.title }

func (w *Window) Width() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width
}

func (w *Window) Height() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.height
}

func (w *Window) PollEvents() []events.Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	evs := w.pending
	w.pending = nil
	return evs
}

func (w *Window) Present(stats platform.FrameStats) error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return platform.ErrWindowClosed
	}

	select {
	case <-w.done:
		// Program already gone; the queued close event ends the loop.
		return nil
	default:
	}
	w.program.Send(frameMsg(stats))
	return nil
}

func (w *Window) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return platform.ErrWindowClosed
	}
	w.closed = true
	w.mu.Unlock()

	w.program.Quit()
	<-w.done

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.runErr != nil {
		return fmt.Errorf("terminal program: %w", w.runErr)
	}
	return nil
}

func (w *Window) push(ev events.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if r, ok := ev.(events.WindowResize); ok {
		w.width, w.height = r.Width, r.Height
	}
	w.pending = append(w.pending, ev)
}

type frameMsg platform.FrameStats

type model struct {
	win   *Window
	keys  keyMap
	stats platform.FrameStats
	width int

	titleStyle  lipgloss.Style
	statStyle   lipgloss.Style
	footerStyle lipgloss.Style
}

func newModel(w *Window) model {
	return model{
		win:  w,
		keys: defaultKeyMap(),
		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F8F8F2")).
			Background(lipgloss.Color("#6272A4")).
			Padding(0, 1),
		statStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B")),
		footerStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4")),
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.SetWindowTitle(m.win.title)
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Close):
			m.win.push(events.WindowClose{})
		case key.Matches(msg, m.keys.Refresh):
			m.win.push(events.WindowRefresh{})
		default:
			m.win.push(events.KeyPressed{Key: msg.String()})
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.win.push(events.WindowResize{Width: msg.Width, Height: msg.Height})
		return m, nil

	case frameMsg:
		m.stats = platform.FrameStats(msg)
		return m, nil
	}
	return m, nil
}

// View implements tea.Model.
func (m model) View() string {
	var b strings.Builder
	title := m.titleStyle.Render(m.win.title)
	if m.width > 0 {
		title = lipgloss.PlaceHorizontal(m.width, lipgloss.Left, title)
	}
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString(m.statStyle.Render(fmt.Sprintf("frame %d  %.1f fps  %s  %s",
		m.stats.Index, m.stats.FPS, m.stats.Elapsed.Truncate(time.Millisecond), m.stats.State)))
	b.WriteString("\n\n")
	b.WriteString(m.footerStyle.Render(m.keys.Close.Help().Key + ": " + m.keys.Close.Help().Desc))
	b.WriteString("\n")
	return b.String()
}
