// Command lineupctl inspects and edits lineups on a running lineup service.
//
//	lineupctl show   -team T
//	lineupctl move   -team T -player <id or name> -x X -y Y
//	lineupctl render -team T -w 300 -h 450 -o pitch.png
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/formation/internal/adapters/mq/queue"
	"github.com/okian/formation/internal/adapters/mq/worker"
	"github.com/okian/formation/internal/adapters/paint/raster"
	"github.com/okian/formation/internal/adapters/remote"
	"github.com/okian/formation/internal/config"
	"github.com/okian/formation/internal/domain/geometry"
	"github.com/okian/formation/internal/domain/lineup"
	"github.com/okian/formation/internal/domain/model"
	"github.com/okian/formation/internal/domain/render"
	"github.com/okian/formation/pkg/logger"
)

var errUsage = errors.New("usage: lineupctl show|move|render [flags]")

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
	// Diagnostics go to stderr; stdout carries command output.
	if err := logger.Init(logger.WithWriter(os.Stderr), logger.WithJSON(cfg.LogJSON)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("warn")
	}

	if err := run(ctx, cfg, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "lineupctl:", err)
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	flags := flag.NewFlagSet("lineupctl "+args[0], flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	team := flags.String("team", cfg.TeamID, "team id")
	remoteURL := flags.String("remote", cfg.RemoteURL, "lineup service base URL")

	switch args[0] {
	case "show":
		if err := flags.Parse(args[1:]); err != nil {
			return err
		}
		client, err := newClient(cfg, *remoteURL)
		if err != nil {
			return err
		}
		return show(ctx, client, *team, out)

	case "move":
		player := flags.String("player", "", "player id or display name")
		x := flags.Float64("x", -1, "normalized x in [0,1]")
		y := flags.Float64("y", -1, "normalized y in [0,1]")
		if err := flags.Parse(args[1:]); err != nil {
			return err
		}
		if *player == "" || !model.ValidCoordinate(*x) || !model.ValidCoordinate(*y) {
			return fmt.Errorf("%w: move needs -player and -x, -y in [0,1]", errUsage)
		}
		client, err := newClient(cfg, *remoteURL)
		if err != nil {
			return err
		}
		return move(ctx, cfg, client, *team, *player, *x, *y, out)

	case "render":
		width := flags.Int("w", int(render.DefaultPitch.Width), "image width")
		height := flags.Int("h", int(render.DefaultPitch.Height), "image height")
		output := flags.String("o", "pitch.png", "output file")
		if err := flags.Parse(args[1:]); err != nil {
			return err
		}
		if *width < 1 || *height < 1 {
			return fmt.Errorf("%w: -w and -h must be positive", errUsage)
		}
		client, err := newClient(cfg, *remoteURL)
		if err != nil {
			return err
		}
		pitch := geometry.New(float64(*width), float64(*height), cfg.MarkerSize)
		return renderPNG(ctx, cfg, client, *team, pitch, *output, out)

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func newClient(cfg *config.Config, baseURL string) (*remote.Client, error) {
	return remote.New(baseURL,
		remote.WithTimeout(cfg.RemoteTimeout()),
		remote.WithBreaker(uint32(cfg.BreakerMaxFailures), cfg.BreakerOpenTimeout()),
	)
}

func show(ctx context.Context, client *remote.Client, team string, out io.Writer) error {
	l, err := client.Lineup(ctx, team)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "PLAYER\tNAME\tPOS\t#\tX\tY\tVERSION\n")
	for _, p := range l.Placements {
		name := p.DisplayName
		if p.IsCaptain {
			name += " (C)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.3f\t%.3f\t%d\n",
			p.PlayerID, name, p.PositionLabel, p.JerseyNumber, p.X, p.Y, p.Version)
	}
	return tw.Flush()
}

// move applies one placement through a lineup store and waits for its save.
func move(ctx context.Context, cfg *config.Config, client *remote.Client, team, query string, x, y float64, out io.Writer) error {
	q := queue.NewInMemoryQueue(queue.WithCapacity(1))
	pool := worker.NewPool(1, q, client, worker.WithSaveTimeout(cfg.SaveTimeout()))
	pool.Start(ctx)
	defer func() { _ = pool.Shutdown(context.WithoutCancel(ctx)) }()

	store := lineup.NewStore(client, pool)
	results := make(chan model.SaveResult, 1)
	unsubscribe := store.Subscribe(func(res model.SaveResult) {
		select {
		case results <- res:
		default:
		}
	})
	defer unsubscribe()

	l, err := store.Load(ctx, team)
	if err != nil {
		return err
	}
	p, err := resolvePlayer(l, query)
	if err != nil {
		return err
	}
	req, err := store.ApplyPlacement(ctx, p.PlayerID, x, y)
	if err != nil {
		return err
	}

	wait := cfg.SaveTimeout() + time.Second
	select {
	case res := <-results:
		if res.Status != model.SaveOK {
			return fmt.Errorf("save %s: %w", res.Status, res.Err)
		}
		fmt.Fprintf(out, "moved %s (%s) to (%.3f, %.3f), version %d\n", p.PlayerID, p.DisplayName, x, y, req.Version)
		return nil
	case <-time.After(wait):
		return fmt.Errorf("save of %s not confirmed after %s", p.PlayerID, wait)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func renderPNG(ctx context.Context, cfg *config.Config, client *remote.Client, team string, pitch geometry.Pitch, path string, out io.Writer) error {
	l, err := client.Lineup(ctx, team)
	if err != nil {
		return err
	}

	r := render.New(render.WithClampOnRender(cfg.ClampOnRender))
	if !r.Measure(pitch) {
		return fmt.Errorf("%w: unusable pitch %vx%v", errUsage, pitch.Width, pitch.Height)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := raster.New().Encode(f, r.Render(l, nil)); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s (%d players)\n", path, len(l.Placements))
	return nil
}
