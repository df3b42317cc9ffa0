package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"impressa/internal/client"
	"impressa/internal/config"
	"impressa/internal/constants"
	"impressa/internal/logger"
)

// cli carries flag values and the state built by PersistentPreRunE.
type cli struct {
	cfgFile  string
	clientID string
	password string

	v      *viper.Viper
	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "impressa",
		Short: "Print client: log in, list printers, send jobs and watch job events.",
		Long: `impressa is a terminal client for the print service. Without a subcommand it
opens an interactive session: log in, then list printers, send print jobs and
watch job notifications as the backend pushes them.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			config.LoadDotEnv()
			cfg, err := config.LoadWith(c.v, c.cfgFile)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log.Development, cfg.Log.Level)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger = log
			return nil
		},

		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},

		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runInteractive(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String("server", constants.DefaultServerURL, "backend base URL")
	flags.Bool("dashboard", false, "serve the local status dashboard")
	flags.Bool("no-stream", false, "do not open the notification stream")
	flags.StringVar(&c.clientID, "user", "", "client id used to log in")
	flags.StringVar(&c.password, "password", "", "password used to log in")

	_ = c.v.BindPFlag("server.url", flags.Lookup("server"))
	_ = c.v.BindPFlag("dashboard.enabled", flags.Lookup("dashboard"))

	cmd.AddCommand(
		newPrintersCmd(c),
		newPrintCmd(c),
		newWatchCmd(c),
		newVersionCmd(),
	)
	return cmd
}

// streamEnabled honors --no-stream on top of the stream.enabled setting.
func (c *cli) streamEnabled(cmd *cobra.Command) bool {
	off, _ := cmd.Flags().GetBool("no-stream")
	return c.cfg.Stream.Enabled && !off
}

func (c *cli) runInteractive(cmd *cobra.Command) error {
	a, err := newApp(cmd.Context(), c.cfg, c.logger, cmd.OutOrStdout(), c.streamEnabled(cmd))
	if err != nil {
		return err
	}
	defer a.Close()

	runner := &client.Runner{
		Controller: a.ctrl,
		Terminal:   a.term,
		In:         cmd.InOrStdin(),
		Logger:     a.log,
		ClientID:   c.clientID,
		Password:   c.password,
		Fields:     a.fields(),
	}
	return runner.Run(cmd.Context())
}

// login authenticates a non-interactive command with the --user and
// --password flags.
func (c *cli) login(cmd *cobra.Command, a *app) error {
	if c.clientID == "" || c.password == "" {
		return errors.New("--user and --password are required")
	}
	a.ctrl.Start()
	if err := a.ctrl.Login(cmd.Context(), c.clientID, c.password); err != nil {
		return fmt.Errorf("%s: %w", constants.MsgLoginFailed, err)
	}
	return nil
}
