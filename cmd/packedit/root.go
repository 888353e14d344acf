package main

import (
	"fmt"
	"io"

	"packedit/internal/config"
	"packedit/internal/log"

	"github.com/spf13/cobra"
)

// terminalAnnotation marks commands that take over the terminal, so log
// lines must not reach stdout while they run
const terminalAnnotation = "terminal"

type rootOptions struct {
	cfgFile string
	debug   bool
	logJSON bool
	logFile string
}

var (
	opts rootOptions
	cfg  *config.Config
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "packedit",
		Short: "Edit the contents of unpacked PackFiles",
		Long: `
	'########:::::'###:::::'######::'##:::'##:'########:'########::'####:'########:
	 ##.... ##:::'## ##:::'##... ##: ##::'##:: ##.....:: ##.... ##:. ##::... ##..::
	 ##:::: ##::'##:. ##:: ##:::..:: ##:'##::: ##::::::: ##:::: ##:: ##::::: ##::::
	 ########::'##:::. ##: ##::::::: #####:::: ######::: ##:::: ##:: ##::::: ##::::
	 ##.....::: #########: ##::::::: ##. ##::: ##...:::: ##:::: ##:: ##::::: ##::::
	 ##:::::::: ##.... ##: ##::: ##: ##:. ##:: ##::::::: ##:::: ##:: ##::::: ##::::
	 ##:::::::: ##:::: ##:. ######:: ##::. ##: ########: ########::'####:::: ##::::
	..:::::::::..:::::..:::......:::..::::..::........::........:::....:::::..:::::

Packedit opens the tables, texts and images of an unpacked PackFile folder
in a terminal or desktop editor and writes your edits back to disk.
		`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is $HOME/.config/packedit/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "log debug lines")
	rootCmd.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false, "log one JSON object per line")
	rootCmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "append log lines to this file")

	// Add subcommands
	rootCmd.AddCommand(tuiCmd())
	rootCmd.AddCommand(guiCmd())
	rootCmd.AddCommand(lsCmd())
	rootCmd.AddCommand(catCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(configCmd())

	return rootCmd
}

// setup loads the configuration and configures logging for every command
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if opts.cfgFile != "" {
		cfg, err = config.LoadConfigFile(opts.cfgFile)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if cmd.Flags().Changed("debug") {
		cfg.Log.Debug = opts.debug
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Log.JSON = opts.logJSON
	}
	if opts.logFile != "" {
		cfg.Log.File = opts.logFile
	}

	log.Configure(logOptions(cmd, cfg)...)
	log.SetDebug(cfg.Log.Debug)
	return nil
}

func logOptions(cmd *cobra.Command, cfg *config.Config) []log.Option {
	var lo []log.Option
	if cfg.Log.JSON {
		lo = append(lo, log.WithJSON())
	}
	_, terminal := cmd.Annotations[terminalAnnotation]
	switch {
	case terminal && cfg.Log.File != "":
		lo = append(lo, log.WithFileOnly(cfg.Log.File))
	case terminal:
		lo = append(lo, log.WithOutput(io.Discard))
	case cfg.Log.File != "":
		lo = append(lo, log.WithOutput(cmd.ErrOrStderr()), log.WithFile(cfg.Log.File))
	default:
		lo = append(lo, log.WithOutput(cmd.ErrOrStderr()))
	}
	return lo
}
