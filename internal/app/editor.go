package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/formation/internal/adapters/mq/queue"
	"github.com/okian/formation/internal/adapters/mq/worker"
	"github.com/okian/formation/internal/domain/geometry"
	"github.com/okian/formation/internal/domain/lineup"
	"github.com/okian/formation/internal/domain/model"
	"github.com/okian/formation/internal/domain/placement"
	"github.com/okian/formation/internal/domain/render"
	"github.com/okian/formation/pkg/logger"
)

// Remote is the lineup service as seen by the editor. remote.Client
// satisfies it.
type Remote interface {
	lineup.Fetcher
	worker.Writer
}

// Editor is one interactive editing session for a team: the lineup store,
// the drag controller, the edit-mode renderer and the save pipeline.
//
// Pointer positions are absolute surface coordinates. Only one pointer is
// tracked, so at most one drag is in progress.
type Editor struct {
	store    *lineup.Store
	ctrl     *placement.Controller
	renderer *render.Renderer
	queue    *queue.InMemoryQueue
	pool     *worker.Pool

	mu       sync.Mutex
	active   string
	down     geometry.Point
	teamID   string
	loadErr  error
	saveErr  error
	lastSave model.SaveStatus

	queueSize     int
	workerCount   int
	saveTimeout   time.Duration
	clampOnRender bool
	onChange      func()

	unsubscribe func()
	closeOnce   sync.Once
	logger      logger.Logger
}

// NewEditor builds an editor talking to remote. Call Start before the first
// commit so saves have workers.
func NewEditor(remote Remote, opts ...EditorOption) *Editor {
	e := &Editor{
		queueSize:     256,
		workerCount:   2,
		saveTimeout:   5 * time.Second,
		clampOnRender: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("editor")
	}

	e.queue = queue.NewInMemoryQueue(queue.WithCapacity(e.queueSize))
	e.pool = worker.NewPool(e.workerCount, e.queue, remote, worker.WithSaveTimeout(e.saveTimeout))
	e.store = lineup.NewStore(remote, e.pool, lineup.WithLogger(e.logger.Named("lineup")))
	e.ctrl = placement.New(placement.WithLogger(e.logger.Named("placement")))
	e.renderer = render.New(
		render.WithMode(render.Edit),
		render.WithClampOnRender(e.clampOnRender),
		render.WithLogger(e.logger.Named("render")),
	)
	e.unsubscribe = e.store.Subscribe(e.saved)
	return e
}

// Start runs the save workers until ctx ends or Close.
func (e *Editor) Start(ctx context.Context) {
	e.pool.Start(ctx)
}

// Close stops accepting saves and waits for queued ones to finish.
func (e *Editor) Close(ctx context.Context) error {
	var err error
	e.closeOnce.Do(func() {
		e.unsubscribe()
		e.ctrl.CancelAll(ctx)
		err = e.pool.Shutdown(ctx)
	})
	return err
}

// Load fetches teamID. On failure the previous lineup stays displayed and
// the error is kept for Status until the next successful load.
func (e *Editor) Load(ctx context.Context, teamID string) error {
	e.mu.Lock()
	e.teamID = teamID
	e.mu.Unlock()

	_, err := e.store.Load(ctx, teamID)

	e.mu.Lock()
	e.loadErr = err
	e.mu.Unlock()
	return err
}

// Reload fetches the last requested team again.
func (e *Editor) Reload(ctx context.Context) error {
	e.mu.Lock()
	teamID := e.teamID
	e.mu.Unlock()
	if teamID == "" {
		return ErrNoTeam
	}
	return e.Load(ctx, teamID)
}

// Measure is the layout callback of the drawing surface. An unusable pitch
// is ignored by the renderer and disables dragging in the controller.
func (e *Editor) Measure(p geometry.Pitch) bool {
	e.ctrl.Measure(p)
	return e.renderer.Measure(p)
}

// Frame lays out the current lineup with any drag in progress.
func (e *Editor) Frame() render.Frame {
	return e.renderer.Render(e.store.Lineup(), e.ctrl)
}

// PointerDown starts a drag on the top-most marker under pt. It reports
// whether a drag started.
func (e *Editor) PointerDown(ctx context.Context, pt geometry.Point) bool {
	e.mu.Lock()
	busy := e.active != ""
	e.mu.Unlock()
	if busy {
		return false
	}

	m, ok := e.Frame().HitTest(pt)
	if !ok {
		return false
	}
	p, ok := e.store.Placement(m.PlayerID)
	if !ok {
		return false
	}
	if _, err := e.ctrl.Begin(ctx, p); err != nil {
		e.logger.Debug(ctx, "drag not started", logger.String("player_id", p.PlayerID), logger.Error(err))
		return false
	}

	e.mu.Lock()
	e.active = p.PlayerID
	e.down = pt
	e.mu.Unlock()
	return true
}

// PointerMove moves the drag in progress to follow pt.
func (e *Editor) PointerMove(ctx context.Context, pt geometry.Point) {
	e.mu.Lock()
	id, down := e.active, e.down
	e.mu.Unlock()
	if id == "" {
		return
	}
	d := pt.Sub(down)
	if _, err := e.ctrl.Move(ctx, id, d.X, d.Y); err != nil {
		e.logger.Debug(ctx, "move without drag", logger.String("player_id", id), logger.Error(err))
	}
}

// PointerUp commits the drag in progress and issues its save. ok is false
// when no drag was in progress.
func (e *Editor) PointerUp(ctx context.Context) (req model.SaveRequest, ok bool, err error) {
	e.mu.Lock()
	id := e.active
	e.active = ""
	e.mu.Unlock()
	if id == "" {
		return model.SaveRequest{}, false, nil
	}

	change, err := e.ctrl.Release(ctx, id)
	if err != nil {
		return model.SaveRequest{}, false, nil
	}
	req, err = e.store.Apply(ctx, change)
	if err != nil {
		e.logger.Warn(ctx, "commit not applied", logger.String("player_id", id), logger.Error(err))
		return model.SaveRequest{}, false, err
	}
	return req, true, nil
}

// Cancel drops the drag in progress without committing it, e.g. on Esc or
// when the surface loses focus.
func (e *Editor) Cancel(ctx context.Context) {
	e.mu.Lock()
	e.active = ""
	e.mu.Unlock()
	e.ctrl.CancelAll(ctx)
}

// Dragging returns the player being dragged.
func (e *Editor) Dragging() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active, e.active != ""
}

// Lineup returns a copy of the held lineup.
func (e *Editor) Lineup() model.Lineup {
	return e.store.Lineup()
}

// Status is a one-line summary for the editor's status bar.
func (e *Editor) Status() string {
	e.mu.Lock()
	teamID, loadErr, saveErr, last := e.teamID, e.loadErr, e.saveErr, e.lastSave
	e.mu.Unlock()

	switch {
	case loadErr != nil:
		return fmt.Sprintf("team %s: load failed, press r to retry (%v)", teamID, loadErr)
	case !e.store.Loaded():
		return "loading..."
	}
	if unsaved := e.store.Unsaved(); len(unsaved) > 0 {
		msg := fmt.Sprintf("team %s: %d unsaved", teamID, len(unsaved))
		if saveErr != nil {
			msg += fmt.Sprintf(" (%v)", saveErr)
		}
		return msg
	}
	if last == model.SaveOK {
		return fmt.Sprintf("team %s: saved", teamID)
	}
	return fmt.Sprintf("team %s", teamID)
}

func (e *Editor) saved(res model.SaveResult) {
	e.mu.Lock()
	e.lastSave = res.Status
	if res.Status == model.SaveOK {
		e.saveErr = nil
	} else {
		e.saveErr = res.Err
	}
	e.mu.Unlock()

	if e.onChange != nil {
		e.onChange()
	}
}
