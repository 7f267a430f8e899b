package loom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/cancelreader"
	"github.com/muesli/termenv"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Terminal is everything the app loop needs from a terminal backend.
type Terminal interface {
	EnterRawMode() error
	LeaveRawMode() error
	// PollEvent waits up to timeout for the next input or resize event.
	// ok is false when the timeout passed with nothing to report.
	PollEvent(timeout time.Duration) (ev Event, ok bool, err error)
	WritePatches(patches []Patch) error
	ViewportSize() (Size, error)
}

// Screen is a Terminal on a tty: raw mode through x/term, the alternate
// screen, SIGWINCH resizes and a cancellable key reader.
type Screen struct {
	in  *os.File
	out io.Writer
	fd  int
	w   *patchWriter
	log *log.Logger

	mu       sync.Mutex
	oldState *term.State
	reader   cancelreader.CancelReader
	sig      chan os.Signal
	events   chan Event
	errs     chan error
	done     chan struct{}
}

// NewScreen returns a Screen reading keys from in and drawing to out. The
// color profile comes from cfg.ColorProfile, with "auto" detected from out's
// environment.
func NewScreen(in *os.File, out *os.File, cfg Config) (*Screen, error) {
	if in == nil || out == nil {
		return nil, errors.New("screen: nil file")
	}
	profile, err := colorProfile(cfg.ColorProfile, out)
	if err != nil {
		return nil, err
	}
	s := &Screen{
		in:  in,
		out: out,
		fd:  int(out.Fd()),
		log: cfg.logger(),
	}
	s.w = newPatchWriter(out, profile)
	if cfg.DebugFlush {
		s.w.debug = s.log
	}
	return s, nil
}

func colorProfile(name string, out io.Writer) (termenv.Profile, error) {
	switch name {
	case "", "auto":
		return termenv.NewOutput(out).EnvColorProfile(), nil
	case "truecolor":
		return termenv.TrueColor, nil
	case "256":
		return termenv.ANSI256, nil
	case "16":
		return termenv.ANSI, nil
	case "none":
		return termenv.Ascii, nil
	}
	return termenv.Ascii, fmt.Errorf("unknown color profile %q", name)
}

// EnterRawMode switches to raw mode and the alternate screen and starts
// reading input. Calling it twice is a no-op.
func (s *Screen) EnterRawMode() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.oldState != nil {
		return nil
	}
	old, err := term.MakeRaw(int(s.in.Fd()))
	if err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	reader, err := cancelreader.NewReader(s.in)
	if err != nil {
		term.Restore(int(s.in.Fd()), old)
		return fmt.Errorf("failed to open input: %w", err)
	}
	s.oldState = old
	s.reader = reader
	s.events = make(chan Event, 16)
	s.errs = make(chan error, 1)
	s.done = make(chan struct{})
	s.sig = make(chan os.Signal, 1)

	// alternate screen, clear, home, hide cursor
	io.WriteString(s.out, "\x1b[?1049h\x1b[2J\x1b[H\x1b[?25l")
	s.w.reset()

	signal.Notify(s.sig, syscall.SIGWINCH)
	chunks := make(chan []byte, 16)
	go s.readInput(chunks)
	go s.decodeInput(chunks)
	go s.watchResize()
	return nil
}

// LeaveRawMode stops input, leaves the alternate screen and restores the
// terminal. Calling it when not in raw mode is a no-op.
func (s *Screen) LeaveRawMode() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.oldState == nil {
		return nil
	}
	s.reader.Cancel()
	signal.Stop(s.sig)
	close(s.done)

	// reset style, show cursor, leave alternate screen
	io.WriteString(s.out, "\x1b[0m\x1b[?25h\x1b[?1049l")
	err := term.Restore(int(s.in.Fd()), s.oldState)
	s.oldState = nil
	s.reader.Close()
	if err != nil {
		return fmt.Errorf("failed to restore terminal: %w", err)
	}
	return nil
}

func (s *Screen) readInput(chunks chan<- []byte) {
	defer close(chunks)
	buf := make([]byte, 256)
	for {
		n, err := s.reader.Read(buf)
		if n > 0 {
			chunks <- bytes.Clone(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, cancelreader.ErrCanceled) && !errors.Is(err, io.EOF) {
				s.fail(fmt.Errorf("failed to read input: %w", err))
			}
			return
		}
	}
}

func (s *Screen) decodeInput(chunks <-chan []byte) {
	d := &keyDecoder{in: chunks}
	for {
		k, ok, err := d.next()
		if err != nil {
			return
		}
		if !ok {
			continue
		}
		select {
		case s.events <- KeyEvent{Key: k}:
		case <-s.done:
			return
		}
	}
}

func (s *Screen) watchResize() {
	for {
		select {
		case <-s.sig:
			size, err := s.ViewportSize()
			if err != nil {
				s.log.Printf("loom: %v", err)
				continue
			}
			select {
			case s.events <- ResizeEvent{Size: size}:
			case <-s.done:
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Screen) fail(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

// PollEvent implements Terminal.
func (s *Screen) PollEvent(timeout time.Duration) (Event, bool, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case ev := <-s.events:
		return ev, true, nil
	case err := <-s.errs:
		return nil, false, err
	case <-t.C:
		return nil, false, nil
	}
}

// WritePatches implements Terminal.
func (s *Screen) WritePatches(patches []Patch) error {
	return s.w.write(patches)
}

// ViewportSize reports the terminal size in cells.
func (s *Screen) ViewportSize() (Size, error) {
	ws, err := unix.IoctlGetWinsize(s.fd, unix.TIOCGWINSZ)
	if err == nil {
		return Size{Width: int(ws.Col), Height: int(ws.Row)}, nil
	}
	w, h, err := term.GetSize(s.fd)
	if err != nil {
		return Size{}, fmt.Errorf("failed to get terminal size: %w", err)
	}
	return Size{Width: w, Height: h}, nil
}

// patchWriter turns cell patches into escape sequences. The cursor is only
// moved when a patch does not continue the previous one, and SGR is only
// written when the style changes.
type patchWriter struct {
	out     io.Writer
	profile termenv.Profile
	debug   *log.Logger

	buf       bytes.Buffer
	lastStyle Style
	styled    bool
}

func newPatchWriter(out io.Writer, profile termenv.Profile) *patchWriter {
	return &patchWriter{out: out, profile: profile}
}

// reset forgets the terminal's current style.
func (w *patchWriter) reset() {
	w.styled = false
}

func (w *patchWriter) write(patches []Patch) error {
	if len(patches) == 0 {
		return nil
	}
	w.buf.Reset()
	cx, cy := -1, -1
	moves := 0
	for _, p := range patches {
		// continuation cells are covered by the wide glyph before them
		if p.Cell.Continuation() {
			continue
		}
		if p.X != cx || p.Y != cy {
			w.buf.WriteString("\x1b[")
			w.buf.WriteString(strconv.Itoa(p.Y + 1))
			w.buf.WriteByte(';')
			w.buf.WriteString(strconv.Itoa(p.X + 1))
			w.buf.WriteByte('H')
			moves++
		}
		if !w.styled || p.Cell.Style != w.lastStyle {
			w.buf.WriteString(w.sgr(p.Cell.Style))
			w.lastStyle, w.styled = p.Cell.Style, true
		}
		w.buf.WriteRune(p.Cell.Rune)
		cx, cy = p.X+max(runewidth.RuneWidth(p.Cell.Rune), 1), p.Y
	}
	w.buf.WriteString("\x1b[0m")
	w.styled = false
	if w.debug != nil {
		w.debug.Printf("flush: %d patches, %d cursor moves, %d bytes", len(patches), moves, w.buf.Len())
	}
	if _, err := w.out.Write(w.buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

var attrCodes = []struct {
	attr Attribute
	code string
}{
	{AttrBold, "1"},
	{AttrDim, "2"},
	{AttrItalic, "3"},
	{AttrUnderline, "4"},
	{AttrBlink, "5"},
	{AttrInverse, "7"},
	{AttrStrikethrough, "9"},
}

// sgr returns the escape sequence selecting st from a reset state, with
// colors degraded to the writer's profile.
func (w *patchWriter) sgr(st Style) string {
	params := []string{"0"}
	for _, a := range attrCodes {
		if st.Attr.Has(a.attr) {
			params = append(params, a.code)
		}
	}
	if c := w.color(st.FG); c != nil {
		if seq := c.Sequence(false); seq != "" {
			params = append(params, seq)
		}
	}
	if c := w.color(st.BG); c != nil {
		if seq := c.Sequence(true); seq != "" {
			params = append(params, seq)
		}
	}
	return "\x1b[" + strings.Join(params, ";") + "m"
}

func (w *patchWriter) color(c Color) termenv.Color {
	switch c.Mode {
	case Color16:
		return w.profile.Convert(termenv.ANSIColor(c.Index))
	case Color256:
		return w.profile.Convert(termenv.ANSI256Color(c.Index))
	case ColorRGB:
		return w.profile.Convert(termenv.RGBColor(c.Hex()))
	}
	return nil
}
