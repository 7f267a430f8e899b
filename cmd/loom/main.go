// loom previews a template in the terminal against a YAML state file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/kungfusheep/loom"
	"github.com/kungfusheep/loom/template"
	"github.com/kungfusheep/loom/value"
	"gopkg.in/yaml.v3"
)

var (
	statePath  = flag.String("state", "", "YAML file holding the initial state")
	configPath = flag.String("config", "", "YAML config file")
	logPath    = flag.String("log", "", "append diagnostics to this file")
	watch      = flag.Bool("watch", false, "reload the template and state files when they change")
	dump       = flag.String("dump", "", "render a single WxH frame to stdout and exit")
)

var (
	errStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	hintStyle = lipgloss.NewStyle().Faint(true)
)

func usage(w io.Writer) {
	fmt.Fprintf(w, "usage: loom [flags] template.loom\n\n")
	flag.CommandLine.SetOutput(w)
	flag.PrintDefaults()
	fmt.Fprintf(w, "\ntemplate functions: %s\n", strings.Join(template.Builtins(), ", "))
}

func main() {
	flag.Usage = func() { usage(flag.CommandLine.Output()) }
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("loom:")+" "+err.Error())
		if errors.Is(err, loom.ErrNotTerminal) {
			fmt.Fprintln(os.Stderr, hintStyle.Render("use -dump WxH to render without a terminal"))
		}
		os.Exit(1)
	}
}

func run(templatePath string) error {
	cfg, err := loom.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	logger, closeLog, err := openLog(*logPath)
	if err != nil {
		return err
	}
	defer closeLog()
	cfg.Logger = logger

	src, err := os.ReadFile(templatePath)
	if err != nil {
		return err
	}
	state, err := loadState(*statePath)
	if err != nil {
		return err
	}

	if *dump != "" {
		size, err := parseSize(*dump)
		if err != nil {
			return err
		}
		return dumpFrame(os.Stdout, string(src), state, cfg, size)
	}

	p := &previewer{log: logger}
	cfg.OnEvent = p.onEvent
	p.rt, err = loom.NewRuntime(string(src), state, cfg)
	if err != nil {
		return err
	}
	screen, err := loom.NewScreen(os.Stdin, os.Stdout, cfg)
	if err != nil {
		return err
	}
	app, err := loom.NewApp(screen, p.rt, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *watch {
		w, err := newWatcher(templatePath, *statePath, logger, app.Send)
		if err != nil {
			return err
		}
		defer w.close()
		go w.run(ctx)
	}
	return app.Run(ctx)
}

// previewer applies file changes on the app loop, where the runtime may be
// touched.
type previewer struct {
	rt  *loom.Runtime
	log *log.Logger
}

func (p *previewer) onEvent(ev loom.Event, s *value.State) {
	u, ok := ev.(loom.UserEvent)
	if !ok {
		return
	}
	switch c := u.Payload.(type) {
	case templateChanged:
		if err := p.rt.Reload(string(c)); err != nil {
			p.log.Printf("loom: reload: %v", err)
			return
		}
		p.log.Printf("loom: template reloaded")
	case stateChanged:
		paths := s.Replace(c.root)
		p.log.Printf("loom: state reloaded, %d paths changed", len(paths))
	}
}

func openLog(path string) (*log.Logger, func(), error) {
	if path == "" {
		return log.New(io.Discard, "", 0), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log: %w", err)
	}
	return log.New(f, "", log.LstdFlags|log.Lmicroseconds), func() { f.Close() }, nil
}

func loadState(path string) (*value.State, error) {
	if path == "" {
		return value.NewState(nil), nil
	}
	root, err := readState(path)
	if err != nil {
		return nil, err
	}
	return value.NewStateValue(root), nil
}

// readState decodes a YAML mapping into a state root.
func readState(path string) (value.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return value.Undefined, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return value.Undefined, fmt.Errorf("failed to parse state %s: %w", path, err)
	}
	return value.From(m), nil
}

// parseSize reads "WxH".
func parseSize(s string) (loom.Size, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return loom.Size{}, fmt.Errorf("invalid size %q, want WxH", s)
	}
	w, werr := strconv.Atoi(ws)
	h, herr := strconv.Atoi(hs)
	if werr != nil || herr != nil || w < 1 || h < 1 {
		return loom.Size{}, fmt.Errorf("invalid size %q, want WxH", s)
	}
	return loom.Size{Width: w, Height: h}, nil
}

func dumpFrame(out io.Writer, src string, state *value.State, cfg loom.Config, size loom.Size) error {
	cfg.InitialSize = size
	rt, err := loom.NewRuntime(src, state, cfg)
	if err != nil {
		return err
	}
	if _, err := rt.Tick(nil, nil); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, rt.Frame().StringTrimmed())
	return err
}
