// Command rillcast is a headless livestreaming client: it broadcasts or
// watches rooms from the terminal, or exposes the same flows as a local
// control API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"rillcast/internal/app"
	"rillcast/internal/core/domain"
	httphandlers "rillcast/internal/handlers/http"
	"rillcast/internal/infrastructure/permissions"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const usage = `usage: rillcast <command> [flags]

commands:
  serve         run the local control API
  broadcast     go live from this machine (-title)
  watch         watch a room (-room)
  rooms         list live rooms in the directory
  permissions   show, request or reset camera/microphone grants (status|request|reset)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "rillcast:", err)
		os.Exit(1)
	}
}

func run(command string, args []string, in io.Reader, out io.Writer) error {
	switch command {
	case "serve":
		return serve(args, in, out)
	case "broadcast":
		return broadcast(args, in, out)
	case "watch":
		return watch(args, in, out)
	case "rooms":
		return rooms(args, in, out)
	case "permissions":
		return permissionsCmd(args, in, out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n\n%s", command, usage)
	}
}

// commonFlags are accepted by every subcommand.
type commonFlags struct {
	configPath string
	logFormat  string
}

func newFlagSet(name string, cf *commonFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("rillcast "+name, flag.ContinueOnError)
	fs.StringVar(&cf.configPath, "config", "", "path to config.yaml (default: search configs/)")
	fs.StringVar(&cf.logFormat, "log-format", "", "log encoding: console or json (default: logging.format)")
	return fs
}

func setup(cf commonFlags, in io.Reader, out io.Writer) (*runtime, error) {
	cfg, err := loadConfig(cf.configPath)
	if err != nil {
		return nil, err
	}
	return newRuntime(cfg, cf.logFormat, in, out)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func serve(args []string, in io.Reader, out io.Writer) error {
	var cf commonFlags
	fs := newFlagSet("serve", &cf)
	addr := fs.String("addr", "", "listen address (overrides server.address)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := setup(cf, in, out)
	if err != nil {
		return err
	}
	defer rt.close()
	if *addr != "" {
		rt.cfg.Server.Address = *addr
	}

	if rt.cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	rc := httphandlers.RouterConfig{
		App:    rt.app,
		Config: rt.cfg,
		Logger: rt.zap,
		Health: rt.health,
	}
	if rt.cfg.Monitoring.PrometheusEnabled {
		rc.Gatherer = rt.registry
	}

	srv := &http.Server{
		Addr:         rt.cfg.Server.Address,
		Handler:      httphandlers.NewRouter(rc),
		ReadTimeout:  rt.cfg.Server.ReadTimeout,
		WriteTimeout: rt.cfg.Server.WriteTimeout,
	}

	sigCtx, stop := signalContext()
	defer stop()
	g, ctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		rt.log.Infow("control API listening", "address", srv.Addr, "media_mode", rt.cfg.Media.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	if rt.cfg.Permissions.Mode == string(permissions.ModePrompt) {
		watcher, err := permissions.NewGrantsWatcher(rt.cfg.Permissions.GrantsFile, rt.log)
		if err != nil {
			rt.log.Warnw("permission changes will not be picked up automatically", "error", err)
		} else {
			g.Go(func() error {
				return watcher.Run(ctx, func() {
					rt.app.Permissions.CheckPermissions(ctx)
				})
			})
		}
	}

	g.Go(func() error {
		<-ctx.Done()
		rt.log.Info("shutting down control API")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), rt.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			rt.log.Errorw("error during server shutdown", "error", err)
			if closeErr := srv.Close(); closeErr != nil {
				rt.log.Errorw("error force closing server", "error", closeErr)
			}
		}
		return nil
	})

	return g.Wait()
}

func broadcast(args []string, in io.Reader, out io.Writer) error {
	var cf commonFlags
	fs := newFlagSet("broadcast", &cf)
	title := fs.String("title", "", "stream title")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := setup(cf, in, out)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, stop := signalContext()
	defer stop()

	if err := rt.app.Auth.SignIn(ctx); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}

	fmt.Fprintln(out, "Starting broadcast...")
	room, err := rt.app.GoLive(ctx, *title)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "LIVE in room %s\nViewers can join with: rillcast watch -room %s\n", room, room)

	rt.app.Session.Watch(newViewerCounter(out).observe)

	<-ctx.Done()
	fmt.Fprintln(out, "Ending stream...")
	return nil
}

// viewerCounter prints the broadcast's viewer count when it changes. Session
// watchers run on media SDK goroutines.
type viewerCounter struct {
	mu   sync.Mutex
	out  io.Writer
	last int
}

func newViewerCounter(out io.Writer) *viewerCounter {
	return &viewerCounter{out: out, last: -1}
}

func (v *viewerCounter) observe(m domain.SessionMetadata) {
	if !m.IsLive {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if m.ViewerCount == v.last {
		return
	}
	v.last = m.ViewerCount
	fmt.Fprintf(v.out, "viewers: %d\n", m.ViewerCount)
}

func watch(args []string, in io.Reader, out io.Writer) error {
	var cf commonFlags
	fs := newFlagSet("watch", &cf)
	room := fs.String("room", "", "room id to watch")
	poll := fs.Duration("poll", 500*time.Millisecond, "status refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *room == "" {
		return errors.New("watch: -room is required")
	}

	rt, err := setup(cf, in, out)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, stop := signalContext()
	defer stop()

	if err := rt.app.Auth.SignIn(ctx); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}

	fmt.Fprintln(out, "Connecting to stream...")
	if err := rt.app.Watch(ctx, domain.RoomID(*room)); err != nil {
		return err
	}

	ticker := time.NewTicker(*poll)
	defer ticker.Stop()

	var last app.ViewerState
	for {
		vs := rt.app.ViewerState()
		if vs.Phase != last.Phase || vs.TrackID != last.TrackID || vs.InRoom != last.InRoom {
			printViewerState(out, vs)
			last = vs
		}

		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "Leaving stream...")
			return nil
		case <-ticker.C:
		}
	}
}

func printViewerState(out io.Writer, vs app.ViewerState) {
	switch vs.Phase {
	case app.PhaseConnecting:
		fmt.Fprintln(out, "Connecting to stream...")
	case app.PhaseWaiting:
		fmt.Fprintf(out, "Waiting for streamer... (%d in room)\n", vs.InRoom)
	case app.PhaseLive:
		fmt.Fprintf(out, "LIVE: receiving track %s from %s (%d in room)\n", vs.TrackID, vs.HostPeerID, vs.InRoom)
	case app.PhaseError:
		fmt.Fprintf(out, "Error: %s\n", vs.Error)
	case app.PhaseIdle:
		fmt.Fprintln(out, "Not connected")
	}
}

func rooms(args []string, in io.Reader, out io.Writer) error {
	var cf commonFlags
	fs := newFlagSet("rooms", &cf)
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := setup(cf, in, out)
	if err != nil {
		return err
	}
	defer rt.close()

	if !rt.repos.UsingRedis() {
		fmt.Fprintln(out, "note: the directory is in memory; enable redis to see other machines' broadcasts")
	}

	streams, err := rt.app.Directory.List(context.Background())
	if err != nil {
		return err
	}
	if len(streams) == 0 {
		fmt.Fprintln(out, "No live streams.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROOM\tTITLE\tHOST\tVIEWERS\tSTARTED")
	for _, s := range streams {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.RoomID, s.Title, s.Host, s.Viewers, s.StartedAt.Format(time.Kitchen))
	}
	return tw.Flush()
}

func permissionsCmd(args []string, in io.Reader, out io.Writer) error {
	var cf commonFlags
	fs := newFlagSet("permissions", &cf)
	if err := fs.Parse(args); err != nil {
		return err
	}
	action := "status"
	if fs.NArg() > 0 {
		action = fs.Arg(0)
	}

	rt, err := setup(cf, in, out)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := context.Background()
	switch action {
	case "status":
		rt.app.Permissions.CheckPermissions(ctx)
	case "request":
		rt.app.Permissions.RequestPermissions(ctx)
	case "reset":
		if err := rt.grants.Reset(); err != nil {
			return err
		}
		fmt.Fprintf(out, "cleared %s\n", rt.grants.Path())
		return nil
	default:
		return fmt.Errorf("permissions: unknown action %q (status|request|reset)", action)
	}

	st := rt.app.Permissions.State()
	fmt.Fprintf(out, "camera:     %s\nmicrophone: %s\n", st.Camera, st.Microphone)
	return nil
}
