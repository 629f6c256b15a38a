// Command editor is a terminal lineup editor. Drag a marker with the left
// mouse button to move a player; Esc or leaving the window cancels the drag,
// r reloads the lineup and q quits.
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"

	"github.com/okian/formation/internal/adapters/paint/terminal"
	"github.com/okian/formation/internal/adapters/remote"
	app "github.com/okian/formation/internal/app"
	"github.com/okian/formation/internal/config"
	"github.com/okian/formation/pkg/logger"
)

const eventBuffer = 64

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		os.Stderr.WriteString("failed to read .env: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	team := flag.String("team", cfg.TeamID, "team to edit")
	flag.Parse()
	if *team == "" {
		os.Stderr.WriteString("a team is required: -team or FORMATION_TEAM_ID\n")
		os.Exit(2)
	}

	// The screen owns stdout, so logs go to a file.
	logFile, err := os.OpenFile(cfg.EditorLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		os.Stderr.WriteString("failed to open log file: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logFile.Close()
	if err := logger.Init(logger.WithWriter(logFile), logger.WithJSON(cfg.LogJSON)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	_ = logger.SetLevelString(cfg.LogLevel)

	if err := run(ctx, cfg, *team); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, team string) error {
	log := logger.Get().Named("editor")

	client, err := remote.New(cfg.RemoteURL,
		remote.WithTimeout(cfg.RemoteTimeout()),
		remote.WithBreaker(uint32(cfg.BreakerMaxFailures), cfg.BreakerOpenTimeout()),
	)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	screen.EnableMouse(tcell.MouseDragEvents)
	screen.EnableFocus()

	editor := app.NewEditor(client,
		app.WithEditorLogger(log),
		app.WithSaveQueueSize(cfg.SaveQueueSize),
		app.WithSaveWorkers(cfg.SaveWorkerCount),
		app.WithSaveTimeout(cfg.SaveTimeout()),
		app.WithClampOnRender(cfg.ClampOnRender),
		// Save results arrive on worker goroutines; wake the event loop.
		app.WithOnChange(func() { _ = screen.PostEvent(tcell.NewEventInterrupt(nil)) }),
	)
	editor.Start(ctx)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod())
		defer cancel()
		_ = editor.Close(shutdownCtx)
	}()

	u := newUI(screen, editor, float64(cfg.EditorMarkerSize), log)
	u.measure()
	if err := editor.Load(ctx, team); err != nil {
		log.Warn(ctx, "initial load failed", logger.String("team_id", team), logger.Error(err))
	}
	u.draw()
	u.loop(ctx)
	return nil
}

// ui maps tcell events onto the editor session.
type ui struct {
	screen     tcell.Screen
	painter    *terminal.Painter
	editor     *app.Editor
	markerSize float64
	pressed    bool
	logger     logger.Logger
}

func newUI(screen tcell.Screen, editor *app.Editor, markerSize float64, l logger.Logger) *ui {
	return &ui{
		screen:     screen,
		painter:    terminal.New(screen),
		editor:     editor,
		markerSize: markerSize,
		logger:     l,
	}
}

func (u *ui) measure() {
	u.editor.Measure(u.painter.Surface(u.markerSize))
}

func (u *ui) draw() {
	u.painter.Paint(u.editor.Frame(), u.editor.Status())
}

func (u *ui) loop(ctx context.Context) {
	events := make(chan tcell.Event, eventBuffer)
	go func() {
		for {
			ev := u.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			events <- ev
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok || !u.handle(ctx, ev) {
				return
			}
		}
	}
}

// handle applies one event and redraws. It returns false to quit.
func (u *ui) handle(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		u.screen.Sync()
		u.measure()
	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape:
			u.cancel(ctx)
		case ev.Key() == tcell.KeyCtrlC, ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
			u.cancel(ctx)
			return false
		case ev.Key() == tcell.KeyRune && ev.Rune() == 'r':
			if err := u.editor.Reload(ctx); err != nil {
				u.logger.Warn(ctx, "reload failed", logger.Error(err))
			}
		}
	case *tcell.EventFocus:
		if !ev.Focused {
			u.cancel(ctx)
		}
	case *tcell.EventMouse:
		u.mouse(ctx, ev)
	}
	u.draw()
	return true
}

func (u *ui) mouse(ctx context.Context, ev *tcell.EventMouse) {
	x, y := ev.Position()
	pt := u.painter.ToSurface(x, y)
	down := ev.Buttons()&tcell.Button1 != 0

	switch {
	case down && !u.pressed:
		u.pressed = true
		u.editor.PointerDown(ctx, pt)
	case down:
		u.editor.PointerMove(ctx, pt)
	case u.pressed:
		u.pressed = false
		u.editor.PointerMove(ctx, pt)
		if _, _, err := u.editor.PointerUp(ctx); err != nil {
			u.logger.Warn(ctx, "drag not committed", logger.Error(err))
		}
	}
}

func (u *ui) cancel(ctx context.Context) {
	u.pressed = false
	u.editor.Cancel(ctx)
}
