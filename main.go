package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gogpu/gg"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/zlnvch/drawguess/credentials"
	"github.com/zlnvch/drawguess/drawing"
	"github.com/zlnvch/drawguess/logger"
	"github.com/zlnvch/drawguess/session"
	"github.com/zlnvch/drawguess/store"
	"github.com/zlnvch/drawguess/store/memory"
	"github.com/zlnvch/drawguess/store/redis"
	"github.com/zlnvch/drawguess/surface/raster"
	"github.com/zlnvch/drawguess/transport/ws"
)

const (
	releaseVersion = "0.1.0"
)

func main() {
	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func openDurableRegion(ctx context.Context, cfg *Config) (store.Region, func(), error) {
	if cfg.durableStore != storeRedis {
		return memory.NewMemoryRegion(), func() {}, nil
	}
	region, err := redis.NewRedisRegion(ctx, cfg.devMode, cfg.redisEndpoint, cfg.redisNamespace)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create redis store: %w", err)
	}
	return region, func() { region.Close() }, nil
}

func run(ctx context.Context, cfg *Config) error {
	log := logger.Init(logger.Options{Level: cfg.logLevel, Pretty: cfg.pretty})
	if log.GetLevel() <= zerolog.DebugLevel {
		gg.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	durable, closeDurable, err := openDurableRegion(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDurable()

	creds := credentials.NewCredentialStore(durable, memory.NewMemoryRegion(), log)
	client := ws.NewClient(cfg.serverURL, cfg.sendRate, log)
	defer client.Close()

	canvas := raster.NewRasterSurface(cfg.canvasWidth, cfg.canvasHeight)
	defer canvas.Close()
	replayer := drawing.NewReplayer(canvas, log)
	replayer.Attach(client)
	defer replayer.Detach()

	controller := session.New(client, creds, log, cfg.lang)
	defer controller.Close()

	// Local drawing is allowed only while logged in
	capture := drawing.NewCaptureEngine(canvas, client, log)
	cancelPermission := controller.Watch(func(s session.State) {
		if s.Authenticated() != capture.CanDraw() {
			capture.SetCanDraw(s.Authenticated())
		}
	})
	defer cancelPermission()

	ended := make(chan session.State, 1)
	cancelWatch := controller.Watch(watchSession(log, ended))
	defer cancelWatch()

	if err := controller.Start(ctx); err != nil {
		return err
	}

	if err := authenticate(ctx, cfg, controller); err != nil {
		return err
	}

	if cfg.script != "" {
		if state := waitFor(ctx, controller, notLoading); state.Authenticated() {
			if err := playGestureFile(ctx, cfg.script, capture, canvas, log); err != nil {
				log.Error().Err(err).Msg("Error playing gesture script")
			}
		} else {
			log.Warn().Str("phase", state.Phase.String()).Msg("Not logged in, skipping gesture script")
		}
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down...")
	case state := <-ended:
		log.Warn().Str("message", state.Message).Msg("Session ended")
	}

	if !cfg.remember {
		// Moves the password into the session region, which dies with the process
		if err := creds.SetAutoLoginEnabled(context.Background(), false); err != nil {
			log.Error().Err(err).Msg("Error disabling auto login")
		}
	}

	if cfg.output != "" {
		if err := canvas.SavePNG(cfg.output); err != nil {
			return fmt.Errorf("failed to save canvas: %w", err)
		}
		log.Info().Str("path", cfg.output).Msg("Canvas saved")
	}
	return nil
}

// watchSession logs every new message and signals ended once a session that
// was connected goes back to disconnected.
func watchSession(log zerolog.Logger, ended chan<- session.State) func(session.State) {
	var last session.State
	wasConnected := false
	return func(s session.State) {
		if s.Message != "" && s.Message != last.Message {
			log.Info().Str("phase", s.Phase.String()).Msg(s.Message)
		}
		if s.Phase != last.Phase {
			log.Debug().Str("from", last.Phase.String()).Str("to", s.Phase.String()).Msg("Session phase changed")
		}
		if s.Phase == session.PhaseConnected || s.Phase == session.PhaseAuthenticated {
			wasConnected = true
		}
		if wasConnected && s.Phase == session.PhaseDisconnected {
			select {
			case ended <- s:
			default:
			}
		}
		last = s
	}
}

// authenticate registers and logs in with the configured account, or falls
// back to auto-login and finally to an anonymous viewer connection.
func authenticate(ctx context.Context, cfg *Config, controller *session.Controller) error {
	if cfg.username == "" {
		attempted, err := controller.AutoLogin(ctx)
		if err != nil || attempted {
			return err
		}
		return controller.Connect(ctx)
	}

	if cfg.register {
		if err := controller.Register(ctx, cfg.username, cfg.password); err != nil {
			return err
		}
		if state := waitFor(ctx, controller, notLoading); state.Loading {
			return ctx.Err()
		}
	}

	return controller.Login(ctx, cfg.username, cfg.password)
}

func notLoading(s session.State) bool {
	return !s.Loading
}

// waitFor blocks until done holds for the controller state or ctx ends.
func waitFor(ctx context.Context, controller *session.Controller, done func(session.State) bool) session.State {
	reached := make(chan session.State, 1)
	cancel := controller.Watch(func(s session.State) {
		if done(s) {
			select {
			case reached <- s:
			default:
			}
		}
	})
	defer cancel()

	select {
	case s := <-reached:
		return s
	case <-ctx.Done():
		return controller.State()
	}
}
