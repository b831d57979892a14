package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/chitra/internal/app"
	"github.com/ayusman/chitra/internal/capture"
	"github.com/ayusman/chitra/internal/config"
	"github.com/ayusman/chitra/internal/detector"
	"github.com/ayusman/chitra/internal/painter"
	"github.com/ayusman/chitra/internal/palette"
	"github.com/ayusman/chitra/internal/server"
	"github.com/ayusman/chitra/internal/store"
	"github.com/ayusman/chitra/internal/tray"
)

// sessionRetention is how long closed session records are kept.
const sessionRetention = 30 * 24 * time.Hour

type options struct {
	configPath string
	addr       string
	cameraID   int
	noCamera   bool
	mock       bool
	tray       bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "config file (default ~/.chitra/config.yaml)")
	flag.StringVar(&opts.addr, "addr", "", "listen address, overrides config")
	flag.IntVar(&opts.cameraID, "camera", -1, "camera device id, overrides config")
	flag.BoolVar(&opts.noCamera, "no-camera", false, "serve uploaded frames only, no local camera")
	flag.BoolVar(&opts.mock, "mock", false, "use the mock hand detector")
	flag.BoolVar(&opts.tray, "tray", false, "show the system tray menu")
	flag.Parse()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chitra: %v\n", err)
		os.Exit(1)
	}
	if opts.addr != "" {
		cfg.Addr = opts.addr
	}
	if opts.cameraID >= 0 {
		cfg.Camera.DeviceID = opts.cameraID
	}
	cfg.Tray = cfg.Tray || opts.tray

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
		}),
	)
	slog.SetDefault(logger)

	if err := run(cfg, opts, logger); err != nil {
		logger.Error("chitra stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, opts options, logger *slog.Logger) error {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(filepath.Join(cfg.DataDir, "chitra.db"))
	if err != nil {
		return err
	}
	defer st.Close()

	if n, err := st.Sessions().CloseAll(); err != nil {
		logger.Warn("close stale sessions", "err", err)
	} else if n > 0 {
		logger.Debug("closed stale sessions", "count", n)
	}
	if _, err := st.Sessions().PruneBefore(time.Now().Add(-sessionRetention)); err != nil {
		logger.Warn("prune sessions", "err", err)
	}

	pal, err := palette.New(cfg.Camera.Width, nil, cfg.Painter.HeaderDir)
	if err != nil {
		return err
	}
	defer pal.Close()

	recorder := app.NewRecorder(st.Sessions(), cfg.Painter.Persist, logger)
	manager := painter.NewManager(painter.Options{
		Width:     cfg.Camera.Width,
		Height:    cfg.Camera.Height,
		Palette:   pal,
		Color:     cfg.Painter.Color,
		Thickness: cfg.Painter.Thickness,
		Annotate:  cfg.Painter.Annotate,
	}, recorder)
	defer manager.Close()
	app.LoadDefaults(manager, st.Settings(), logger)

	det := newDetector(cfg.Detector, opts.mock, logger)

	var camera capture.Camera
	if opts.noCamera {
		blank := capture.NewBlankCamera(cfg.Camera.Width, cfg.Camera.Height)
		defer blank.Release()
		camera = blank
	} else {
		camera = capture.NewCamera(cfg.Camera)
	}

	pipeline := app.New(app.Config{
		Camera:   camera,
		Detector: det,
		Manager:  manager,
		Logger:   logger,
	})

	srv := server.New(server.Config{
		StaticDir: findWebDir(cfg.WebDir),
		Store:     st,
		Manager:   manager,
		Detector:  det,
		Source:    pipeline,
		PublicURL: cfg.Painter.PublicURL,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx, cfg.Addr)
	})
	g.Go(func() error {
		return recorder.Run(ctx)
	})
	g.Go(func() error {
		// uploaded frames keep working without a camera
		if err := pipeline.Run(ctx); err != nil {
			logger.Error("camera pipeline unavailable", "err", err)
		}
		return nil
	})

	logger.Info("chitra ready", "addr", cfg.Addr, "size", fmt.Sprintf("%dx%d", cfg.Camera.Width, cfg.Camera.Height))

	if !cfg.Tray {
		return g.Wait()
	}
	return runTray(ctx, stop, g, pipeline, cfg.Addr, logger)
}

// runTray blocks on the tray menu. The tray needs the main thread, so the
// services keep running in the errgroup.
func runTray(ctx context.Context, stop context.CancelFunc, g *errgroup.Group, pipeline *app.App, addr string, logger *slog.Logger) error {
	t := tray.New()
	t.OnToggle(pipeline.SetEnabled)
	t.OnClear(func() {
		sess, err := pipeline.Session()
		if err == nil {
			err = sess.Clear()
		}
		if err != nil {
			logger.Warn("clear canvas", "err", err)
		}
	})
	t.OnOpen(func() {
		if err := openBrowser(browserURL(addr)); err != nil {
			logger.Warn("open browser", "err", err)
		}
	})
	t.OnQuit(stop)

	states, cancel := pipeline.SubscribeStates()
	defer cancel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-states:
				t.SetState(s)
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- g.Wait()
		t.Quit()
	}()

	t.Run()
	stop()
	return <-errCh
}

func newDetector(cfg detector.Config, mock bool, logger *slog.Logger) detector.Detector {
	if mock {
		logger.Info("using mock hand detection")
		return detector.NewMockDetector()
	}
	mp, err := detector.NewMediaPipeDetector(cfg)
	if err != nil {
		logger.Warn("MediaPipe not available, using mock detector", "err", err)
		return detector.NewMockDetector()
	}
	logger.Info("using MediaPipe hand detection")
	return mp
}

// findWebDir returns dir if set, else the first web directory found in
// "web", "../web", "../../web" or ~/.chitra/web. Empty means none.
func findWebDir(dir string) string {
	candidates := []string{dir, "web", "../web", "../../web"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, config.DirName, "web"))
	}

	for _, p := range candidates {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func browserURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "linux", "freebsd", "openbsd":
		cmd = exec.Command("xdg-open", url)
	default:
		return errors.New("no browser launcher for " + runtime.GOOS)
	}
	return cmd.Start()
}
