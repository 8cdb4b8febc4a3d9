package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// config holds every flag the server understands. Zero-value db is treated
// as "no persistence wanted" and selects the print store instead of bbolt.
type config struct {
	directory         string
	botSocket         string
	archivesDirectory string
	archiveDelayMin   int
	archiveCheckMin   int
	ip                string
	port              int
	dbURI             string
}

func (c *config) archiveDelay() time.Duration { return time.Duration(c.archiveDelayMin) * time.Minute }
func (c *config) archiveCheck() time.Duration { return time.Duration(c.archiveCheckMin) * time.Minute }

func newCmd(cfg *config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("WEBGAME")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "webgame-server",
		Short:         "Real-time multiplayer game server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.directory, "directory", "./public", "directory of static files to serve (env: WEBGAME_DIRECTORY)")
	fs.StringVar(&cfg.botSocket, "bot", "/tmp/webgame-bots.sock", "unix socket path of the bot invitation bridge (env: WEBGAME_BOT)")
	fs.StringVar(&cfg.archivesDirectory, "archives-directory", "webgame_archives", "directory archived games are written to (env: WEBGAME_ARCHIVES_DIRECTORY)")
	fs.IntVar(&cfg.archiveDelayMin, "archive-delay", 24, "retention period, in minutes, after which an idle game is archived (env: WEBGAME_ARCHIVE_DELAY)")
	fs.IntVar(&cfg.archiveCheckMin, "archive-check", 120, "interval, in minutes, between archiver sweeps (env: WEBGAME_ARCHIVE_CHECK)")
	fs.StringVar(&cfg.ip, "ip", "127.0.0.1", "address to bind to (env: WEBGAME_IP)")
	fs.IntVar(&cfg.port, "port", 8002, "port to listen on (env: WEBGAME_PORT)")
	fs.StringVar(&cfg.dbURI, "db-uri", "webgame_db", "bbolt database file path, empty disables persistence (env: WEBGAME_DB_URI)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}
