package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roman-kulish/wardriver/internal/export"
)

// cli carries what the persistent pre-run prepares for every command.
type cli struct {
	configPath string
	logLevel   slog.LevelVar
	config     *Config
	logger     *slog.Logger
}

// NewRootCommand builds the wardriver command tree.
func NewRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "wardriver",
		Short: "Wardriving logger",
		Long: `Wardriver records the access points reported by a host scanner into a local
database, one session per run, and uploads finished sessions to WiGLE.`,
		Version:           Version,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: c.prepare,
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to the configuration file")

	root.AddCommand(
		c.runCommand(),
		c.importCommand(),
		c.exportCommand(),
		c.uploadCommand(),
		c.sessionsCommand(),
	)

	return root
}

func (c *cli) prepare(cmd *cobra.Command, _ []string) error {
	c.logger = NewLogger(os.Stderr, &c.logLevel)

	if c.configPath == "" {
		c.config = DefaultConfig()
	} else {
		config, err := LoadConfig(c.configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration file %s: %w", c.configPath, err)
		}
		c.config = config
	}

	c.logLevel.Set(c.config.Settings.LogLevel)

	if err := c.config.Validate(); err != nil {
		c.logger.Error(err.Error())
	}

	return nil
}

func (c *cli) runCommand() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Record scan cycles into a new session",
		Long: `Import legacy files, start a new session and record the scan cycles read from
the configured scanner command, or from --input (standard input by default), one
JSON object per line. Stops on SIGINT/SIGTERM or at the end of the input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			input := os.Stdin
			if inputPath != "" && inputPath != "-" {
				f, err := os.Open(inputPath)
				if err != nil {
					return fmt.Errorf("opening input: %w", err)
				}
				defer f.Close()
				input = f
			}

			return Run(cmd.Context(), c.config, input, c.logger)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "-", "File to read scan cycles from, - for standard input")

	return cmd
}

func (c *cli) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Import legacy CSV files from the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := Import(cmd.Context(), c.config, c.logger)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d files, %d observations\n", report.Files, report.Observations)
			if len(report.Failed) > 0 {
				return fmt.Errorf("%d files could not be imported: %v", len(report.Failed), report.Failed)
			}
			return nil
		},
	}
}

func (c *cli) exportCommand() *cobra.Command {
	var (
		sessionID  int64
		formatName string
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a session as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			format, err := export.ParseFormat(formatName)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputPath != "" && outputPath != "-" {
				f, createErr := os.Create(outputPath)
				if createErr != nil {
					return fmt.Errorf("creating output: %w", createErr)
				}
				defer func() {
					if cErr := f.Close(); cErr != nil && err == nil {
						err = cErr
					}
				}()
				out = f
			}

			return Export(cmd.Context(), c.config, out, sessionID, format, c.logger)
		},
	}

	cmd.Flags().Int64VarP(&sessionID, "session", "s", 0, "Session ID")
	cmd.Flags().StringVarP(&formatName, "format", "f", string(export.FormatCSV), "Output format: csv or wigle")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "-", "Output file, - for standard output")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

func (c *cli) uploadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upload",
		Short: "Upload every pending session now",
		Long: `Upload every session not yet accepted by WiGLE. Sessions without observations
are kept. Next to a live "wardriver run" the session being recorded is uploaded
as it stands and later observations stay local.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := Upload(cmd.Context(), c.config, c.logger)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d of %d pending sessions\n", len(report.Uploaded), report.Pending)
			if len(report.Failed) > 0 {
				return errors.New("some sessions could not be uploaded, see the log")
			}
			return nil
		},
	}
}

func (c *cli) sessionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Sessions(cmd.Context(), c.config, cmd.OutOrStdout(), c.logger)
		},
	}
}
