// Command skillup-session drives a goSession client from the shell: log in,
// call the SkillUp API with automatic token refresh, and check route access.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	goSession "github.com/MrEthical07/goSession"
)

type options struct {
	configPath string
	baseURL    string
	stateDir   string
	redisAddr  string
	verbose    bool
}

// app is built lazily by each command from the persistent flags.
type app struct {
	client  *goSession.Client
	cookies *cookieFile
	closers []func()
	out     io.Writer
}

func (a *app) Close() {
	if a.cookies != nil {
		if err := a.cookies.Save(); err != nil {
			slog.Warn("cookies not saved", "error", err)
		}
	}
	if a.client != nil {
		a.client.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "skillup-session",
		Short: "Manage a SkillUp session from the command line",
		Long: `skillup-session keeps a SkillUp login between invocations.

The access token and profile are stored under --state (or in Redis with
--redis-addr); the refresh cookie is kept next to them. API calls made with
"request" refresh the access token once on a 401 and retry.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file")
	flags.StringVar(&opts.baseURL, "base-url", "", "API base URL (overrides config and "+goSession.EnvBaseURL+")")
	flags.StringVar(&opts.stateDir, "state", defaultStateDir(), "directory holding the session and cookies")
	flags.StringVar(&opts.redisAddr, "redis-addr", "", `store the session in Redis at this address ("memory" starts an in-process server)`)
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging on stderr")

	root.AddCommand(
		loginCmd(opts),
		signupCmd(opts),
		logoutCmd(opts),
		refreshCmd(opts),
		whoamiCmd(opts),
		forgotPasswordCmd(opts),
		resetPasswordCmd(opts),
		requestCmd(opts),
		authorizeCmd(opts),
	)
	return root
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".skillup-session"
	}
	return dir + string(os.PathSeparator) + "skillup-session"
}

func openApp(cmd *cobra.Command, opts *options) (*app, error) {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg, err := goSession.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.baseURL != "" {
		cfg.API.BaseURL = opts.baseURL
	}
	if opts.stateDir != "" {
		if err := os.MkdirAll(opts.stateDir, 0o700); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
		cfg.Storage.FileDir = opts.stateDir
	}

	a := &app{out: cmd.OutOrStdout()}

	jar, err := openCookieFile(opts.stateDir, cfg.API.BaseURL, cfg.API.RefreshPath, cfg.API.LogoutPath)
	if err != nil {
		return nil, err
	}
	a.cookies = jar

	builder := goSession.New().
		WithConfig(cfg).
		WithLogger(logger).
		WithHTTPClient(jar.HTTPClient())

	if opts.redisAddr != "" {
		addr := opts.redisAddr
		if addr == "memory" {
			mr, err := miniredis.Run()
			if err != nil {
				return nil, fmt.Errorf("start miniredis: %w", err)
			}
			a.closers = append(a.closers, mr.Close)
			addr = mr.Addr()
			logger.Info("using miniredis", "addr", addr)
		}
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		builder.WithRedis(rdb)
	}

	client, err := builder.Build()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.client = client
	return a, nil
}

// withApp opens the app around run and always closes it.
func withApp(opts *options, run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, opts)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, a, args)
	}
}
