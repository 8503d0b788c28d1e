package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/taskmap/pkg/bridge"
	"github.com/matzehuels/taskmap/pkg/buildinfo"
	"github.com/matzehuels/taskmap/pkg/cache"
	"github.com/matzehuels/taskmap/pkg/config"
	taskerr "github.com/matzehuels/taskmap/pkg/errors"
	"github.com/matzehuels/taskmap/pkg/graph"
	"github.com/matzehuels/taskmap/pkg/layout/layered"
	"github.com/matzehuels/taskmap/pkg/observability"
	"github.com/matzehuels/taskmap/pkg/storage"
	"github.com/matzehuels/taskmap/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "taskmap"

	// defaultSnapshot is the snapshot name used when --name is not given.
	defaultSnapshot = "default"

	// shortIDLen is how many id characters the CLI prints.
	shortIDLen = 8
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Flags shared by every command.
	verbose    bool
	configPath string
	storageURL string
	name       string
	noCache    bool

	cfg config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Taskmap lays out tasks as a hierarchical map",
		Long: `Taskmap keeps tasks, subtasks and todos as a tree of nodes, lays them
out automatically, and stores named snapshots in a file directory, SQLite,
Redis or MongoDB.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	flags.StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/taskmap/config.toml)")
	flags.StringVar(&c.storageURL, "storage", "", "storage URL (file path, sqlite://, redis://, mongodb://)")
	flags.StringVarP(&c.name, "name", "n", defaultSnapshot, "snapshot name")
	flags.BoolVar(&c.noCache, "no-cache", false, "disable the layered layout cache")
	_ = root.RegisterFlagCompletionFunc("name", c.completeSnapshotNames)

	// Editing
	root.AddCommand(c.newCommand())
	root.AddCommand(c.addCommand())
	root.AddCommand(c.renameCommand())
	root.AddCommand(c.doneCommand())
	root.AddCommand(c.titleCommand())
	root.AddCommand(c.moveCommand())
	root.AddCommand(c.swapCommand())
	root.AddCommand(c.rmCommand())
	root.AddCommand(c.pinCommand())
	root.AddCommand(c.layoutCommand())

	// Viewing
	root.AddCommand(c.showCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.tuiCommand())
	root.AddCommand(c.serveCommand())

	// Snapshots
	root.AddCommand(c.listCommand())
	root.AddCommand(c.deleteCommand())
	root.AddCommand(c.pushCommand())
	root.AddCommand(c.pullCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.downloadCommand())

	// Housekeeping
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup loads the config file and applies it underneath the flags.
func (c *CLI) setup() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = LogInfo
	}
	if c.verbose {
		level = LogDebug
	}
	c.SetLogLevel(level)
	if level == LogDebug {
		observability.Install(observability.NewLogHooks(c.Logger))
	}

	if c.storageURL == "" {
		c.storageURL = cfg.Storage.URL
	}
	if err := taskerr.ValidateSnapshotName(c.name); err != nil {
		return err
	}
	c.Logger.Debug("configured", "storage", c.storageURL, "name", c.name)
	return nil
}

// versionCommand prints build information.
func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	}
}

// =============================================================================
// Store Factory
// =============================================================================

// newStore creates an empty store configured from the loaded settings.
func (c *CLI) newStore(opts ...store.Option) *store.Store {
	cfg := c.cfg
	base := []store.Option{
		store.WithLogger(c.Logger),
		store.WithSpacing(cfg.Layout.LevelSpacing, cfg.Layout.NodeSpacing),
		store.WithHistoryDepth(cfg.History.Depth),
		store.WithTimings(cfg.Animation.AutoFormat(), cfg.Animation.EdgeRefresh()),
		store.WithBatchTitle(cfg.BatchTitle),
	}
	return store.New(append(base, opts...)...)
}

// session is one store bound to one named snapshot in a backend.
type session struct {
	store   *store.Store
	backend storage.Backend
	shell   *bridge.Shell
	name    string
	logger  *log.Logger
	untrace func()
}

// openSession loads the current snapshot. With create set, a snapshot that
// does not exist yet starts out empty instead of failing.
func (c *CLI) openSession(ctx context.Context, create bool, opts ...store.Option) (*session, error) {
	backend, err := storage.Open(ctx, c.storageURL)
	if err != nil {
		return nil, err
	}

	s := c.newStore(opts...)
	sess := &session{
		store:   s,
		backend: backend,
		shell:   bridge.NewShell(bridge.Static{Name: c.name}, backend),
		name:    c.name,
		logger:  c.Logger,
		untrace: traceEvents(c.Logger, s),
	}

	if _, err := bridge.Load(ctx, sess.shell, s); err != nil {
		if !create || !taskerr.IsNotFound(err) {
			sess.close()
			return nil, err
		}
		c.Logger.Debug("starting new snapshot", "name", c.name)
	}
	return sess, nil
}

func (s *session) save(ctx context.Context) error {
	_, err := bridge.Save(ctx, s.shell, s.store)
	return err
}

func (s *session) close() {
	s.untrace()
	s.store.Close()
	if err := s.backend.Close(); err != nil {
		s.logger.Warn("close storage", "err", err)
	}
}

// edit runs fn against the current snapshot and saves the result.
func (c *CLI) edit(ctx context.Context, fn func(*store.Store) error) error {
	sess, err := c.openSession(ctx, true)
	if err != nil {
		return err
	}
	defer sess.close()

	if err := fn(sess.store); err != nil {
		return err
	}
	return sess.save(ctx)
}

// view runs fn against the current snapshot without saving.
func (c *CLI) view(ctx context.Context, fn func(*store.Store) error) error {
	sess, err := c.openSession(ctx, false)
	if err != nil {
		return err
	}
	defer sess.close()
	return fn(sess.store)
}

// =============================================================================
// Layered Layout Options
// =============================================================================

// layeredOptions builds Graphviz options from the config, overridden by a
// non-empty direction. The caller closes the returned cache.
func (c *CLI) layeredOptions(direction string) (layered.Options, error) {
	if direction == "" {
		direction = c.cfg.Layered.Direction
	}
	dir, err := layered.ParseDirection(direction)
	if err != nil {
		return layered.Options{}, err
	}
	cc, err := newCache(c.noCache)
	if err != nil {
		return layered.Options{}, err
	}
	return layered.Options{
		Direction: dir,
		NodeSep:   c.cfg.Layered.NodeSep,
		RankSep:   c.cfg.Layered.RankSep,
		Cache:     cc,
		CacheTTL:  c.cfg.Layered.CacheTTL.Duration,
	}, nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	fc, err := openFileCache()
	if err != nil {
		return nil, err
	}
	return fc, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/taskmap/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// downloadsDir is where "download" writes when no directory is given.
func downloadsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Downloads"), nil
}

// =============================================================================
// Node References
// =============================================================================

// resolveNode finds the node ref names: an exact id, a unique id prefix, or
// a unique label (case-insensitive).
func resolveNode(snap graph.Snapshot, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", taskerr.New(taskerr.ErrCodeInvalidInput, "empty task reference")
	}
	if _, ok := snap.Node(ref); ok {
		return ref, nil
	}

	var byPrefix, byLabel []string
	for _, n := range snap.Nodes {
		if strings.HasPrefix(n.ID, ref) {
			byPrefix = append(byPrefix, n.ID)
		}
		if strings.EqualFold(n.Data.Label, ref) {
			byLabel = append(byLabel, n.ID)
		}
	}
	for _, matches := range [][]string{byPrefix, byLabel} {
		switch len(matches) {
		case 0:
			continue
		case 1:
			return matches[0], nil
		default:
			return "", taskerr.New(taskerr.ErrCodeInvalidInput, "%q matches %d tasks", ref, len(matches))
		}
	}
	return "", taskerr.New(taskerr.ErrCodeNotFound, "no task matches %q", ref)
}

// shortID trims an id for display.
func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}
