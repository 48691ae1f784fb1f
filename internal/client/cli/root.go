package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iudanet/campussync/internal/client/api"
	"github.com/iudanet/campussync/internal/client/iocli"
	"github.com/iudanet/campussync/internal/client/storage/boltdb"
	"github.com/iudanet/campussync/internal/config"
)

// BuildInfo сведения о сборке (задаются через ldflags)
type BuildInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

// App состояние одного запуска campusctl
type App struct {
	envErr  error
	cli     *Cli
	storage *boltdb.Storage
	cfg     config.Sync
}

// NewRootCmd создает корневую команду campusctl.
// Значения по умолчанию берутся из CAMPUS_* переменных окружения, флаги имеют приоритет.
func NewRootCmd(build BuildInfo, lookup config.LookupFunc) *cobra.Command {
	cmd, _ := newRootCmd(build, lookup)
	return cmd
}

func newRootCmd(build BuildInfo, lookup config.LookupFunc) (*cobra.Command, *App) {
	app := &App{cfg: config.DefaultSync()}
	app.envErr = app.cfg.ApplyEnv(lookup)

	cmd := &cobra.Command{
		Use:          "campusctl",
		Short:        "Campus feed client with optimistic reactions and realtime counters",
		Version:      fmt.Sprintf("%s (built %s, commit %s)", build.Version, build.BuildDate, build.GitCommit),
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start a session
  campusctl login alice

  # Read the first two pages of the feed
  campusctl feed --pages 2

  # Toggle a like
  campusctl like <post-id>

  # Follow live counters
  campusctl watch <post-id> <post-id>
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.open(cmd)
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return app.close()
	}

	cmd.PersistentFlags().StringVar(&app.cfg.ServerURL, "server", app.cfg.ServerURL, "Server URL")
	cmd.PersistentFlags().StringVar(&app.cfg.DBPath, "db", app.cfg.DBPath, "Path to local database")
	cmd.PersistentFlags().StringVar(&app.cfg.LogLevel, "log-level", app.cfg.LogLevel, "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().IntVar(&app.cfg.PageSize, "page-size", app.cfg.PageSize, "Feed page size")
	cmd.PersistentFlags().DurationVar(&app.cfg.MutationTimeout, "timeout", app.cfg.MutationTimeout, "Remote mutation timeout")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newStatusCmd(app))
	cmd.AddCommand(newFeedCmd(app))
	cmd.AddCommand(newLikeCmd(app))
	cmd.AddCommand(newPostCmd(app))
	cmd.AddCommand(newCommentCmd(app))
	cmd.AddCommand(newWatchCmd(app))

	return cmd, app
}

func (a *App) open(cmd *cobra.Command) error {
	if a.envErr != nil {
		return fmt.Errorf("invalid environment: %w", a.envErr)
	}
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := config.NewLogger(cmd.ErrOrStderr(), a.cfg.LogLevel)

	st, err := boltdb.New(cmd.Context(), a.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.storage = st

	io := iocli.New(cmd.InOrStdin(), cmd.OutOrStdout())
	a.cli = New(io, api.NewClient(a.cfg.ServerURL), st, st, a.cfg, logger)
	return nil
}

func (a *App) close() error {
	if a.storage == nil {
		return nil
	}
	err := a.storage.Close()
	a.storage = nil
	return err
}

func newLoginCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "login [actor-id]",
		Short: "Start a session as the given actor",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var actorID string
			if len(args) == 1 {
				actorID = args[0]
			}
			return app.cli.runLogin(cmd.Context(), actorID)
		},
	}
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.cli.runLogout(cmd.Context())
		},
	}
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session and server status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.cli.runStatus(cmd.Context())
		},
	}
}

func newFeedCmd(app *App) *cobra.Command {
	var pages int
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "List the campus feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pages < 1 {
				return fmt.Errorf("--pages must be at least 1")
			}
			return app.cli.runFeed(cmd.Context(), pages)
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 1, "Number of pages to load")
	return cmd
}

func newLikeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "like <post-id>",
		Short: "Toggle your like on a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.cli.runLike(cmd.Context(), args[0])
		},
	}
}

func newPostCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "post <text>...",
		Short: "Publish a post",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.cli.runPost(cmd.Context(), strings.Join(args, " "))
		},
	}
}

func newCommentCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <post-id> [text]...",
		Short: "Comment on a post (reads the text from stdin when omitted)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.cli.runComment(cmd.Context(), args[0], strings.Join(args[1:], " "))
		},
	}
}

func newWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <post-id>...",
		Short: "Follow live like and comment counters",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.cli.runWatch(cmd.Context(), args)
		},
	}
}

// Execute запускает campusctl с окружением процесса и возвращает код выхода
func Execute(ctx context.Context, build BuildInfo) int {
	cmd, app := newRootCmd(build, os.LookupEnv)
	// PersistentPostRunE не вызывается, если команда завершилась ошибкой
	defer func() {
		_ = app.close()
	}()

	if err := cmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
