package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	storeMemory = "memory"
	storeRedis  = "redis"
)

type Config struct {
	serverURL      string
	durableStore   string
	redisEndpoint  string
	redisNamespace string
	devMode        bool
	username       string
	password       string
	register       bool
	remember       bool
	lang           string
	logLevel       string
	pretty         bool
	canvasWidth    int
	canvasHeight   int
	output         string
	script         string
	sendRate       float64
	version        bool
}

func (c *Config) validate() error {
	switch c.durableStore {
	case storeMemory:
	case storeRedis:
		if c.redisEndpoint == "" {
			return errors.New("--redis-endpoint is required when --durable-store is redis")
		}
	default:
		return fmt.Errorf("invalid durable store (must be memory or redis): %q", c.durableStore)
	}
	if c.canvasWidth <= 0 || c.canvasHeight <= 0 {
		return fmt.Errorf("invalid canvas size (must be positive): %dx%d", c.canvasWidth, c.canvasHeight)
	}
	if c.password != "" && c.username == "" {
		return errors.New("--password requires --username")
	}
	if c.username != "" && c.password == "" {
		return errors.New("--username requires --password")
	}
	if c.register && c.username == "" {
		return errors.New("--register requires --username and --password")
	}
	if c.serverURL == "" {
		return errors.New("--server-url must not be empty")
	}
	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("DRAWGUESS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "drawguess",
		Short:         "Headless draw-and-guess client that records the shared canvas to a PNG.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.serverURL, "server-url", "s", "ws://localhost:8080/ws", "websocket url of the game server (env: DRAWGUESS_SERVER_URL)")
	fs.StringVar(&cfg.durableStore, "durable-store", storeMemory, "where durable credentials live: memory or redis (env: DRAWGUESS_DURABLE_STORE)")
	fs.StringVar(&cfg.redisEndpoint, "redis-endpoint", "", "redis address for the durable store (env: DRAWGUESS_REDIS_ENDPOINT)")
	fs.StringVar(&cfg.redisNamespace, "redis-namespace", "default", "key namespace inside redis, one per client profile (env: DRAWGUESS_REDIS_NAMESPACE)")
	fs.BoolVar(&cfg.devMode, "dev-mode", false, "connect to redis without tls (env: DRAWGUESS_DEV_MODE)")
	fs.StringVarP(&cfg.username, "username", "u", "", "account to log in with (env: DRAWGUESS_USERNAME)")
	fs.StringVarP(&cfg.password, "password", "p", "", "password for --username (env: DRAWGUESS_PASSWORD)")
	fs.BoolVar(&cfg.register, "register", false, "register the account before logging in (env: DRAWGUESS_REGISTER)")
	fs.BoolVar(&cfg.remember, "remember", true, "keep auto-login enabled after exit (env: DRAWGUESS_REMEMBER)")
	fs.StringVar(&cfg.lang, "lang", "en", "language of user-facing messages: en or vi (env: DRAWGUESS_LANG)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "trace, debug, info, warn or error (env: DRAWGUESS_LOG_LEVEL)")
	fs.BoolVar(&cfg.pretty, "pretty", false, "human readable log output (env: DRAWGUESS_PRETTY)")
	fs.IntVar(&cfg.canvasWidth, "canvas-width", 960, "width of the local canvas in pixels (env: DRAWGUESS_CANVAS_WIDTH)")
	fs.IntVar(&cfg.canvasHeight, "canvas-height", 540, "height of the local canvas in pixels (env: DRAWGUESS_CANVAS_HEIGHT)")
	fs.StringVarP(&cfg.output, "output", "o", "canvas.png", "png file the canvas is written to on exit, empty to skip (env: DRAWGUESS_OUTPUT)")
	fs.StringVar(&cfg.script, "script", "", "json lines file of pointer gestures drawn once logged in (env: DRAWGUESS_SCRIPT)")
	fs.Float64Var(&cfg.sendRate, "send-rate", 20, "outbound draw events per second (env: DRAWGUESS_SEND_RATE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: DRAWGUESS_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("drawguess v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
