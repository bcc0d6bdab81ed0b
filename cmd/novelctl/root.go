package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/novelforge/novelforge/internal/client"
)

var errNotLoggedIn = errors.New("not logged in: run `novelctl login` first")

// cli carries state shared by every command.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger

	configFlag string
	serverFlag string
	jsonOutput bool

	cfgPath string
	cfg     Config
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "novelctl",
		Short: "Command line client for NovelForge",
		Long: `novelctl talks to a NovelForge server: list novels and chapters,
edit chapters with debounced autosave, reorder chapters and queue AI drafts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
	}
	root.SetIn(c.stdin)
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFlag, "config", "", "config file (default $HOME/.novelctl.yaml)")
	flags.StringVar(&c.serverFlag, "server", "", "server base URL, overrides the config file")
	flags.BoolVar(&c.jsonOutput, "json", false, "print JSON instead of tables")

	root.AddCommand(
		newLoginCmd(c),
		newLogoutCmd(c),
		newNovelsCmd(c),
		newChaptersCmd(c),
		newGenerateCmd(c),
		newStatusCmd(c),
		newDashboardCmd(c),
	)
	return root
}

func (c *cli) load() error {
	path, err := configPath(c.configFlag)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	if c.serverFlag != "" {
		cfg.Server = c.serverFlag
	}
	c.cfgPath = path
	c.cfg = cfg
	return nil
}

// api returns a client authenticated with the stored token.
func (c *cli) api() (*client.Client, error) {
	if !c.cfg.loggedIn() {
		return nil, errNotLoggedIn
	}
	return client.New(c.cfg.Server, c.cfg.Token, c.cfg.Timeout), nil
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) printf(format string, args ...any) {
	fmt.Fprintf(c.stdout, format, args...)
}
