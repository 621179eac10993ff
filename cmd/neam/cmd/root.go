package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gonkalabs/neam-go/internal/config"
)

var (
	configFile string
	v          *viper.Viper

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "neam",
	Short: "Named entity automated markup",
	Long: `neam marks up plain text with TEI-style named-entity elements.

An annotator (a NER sidecar, an LLM, Gemini or a gazetteer) reports the
entities it finds as tag and phrase pairs; neam locates each phrase in the
text and wraps it in the element its tag maps to, leaving everything else
untouched.`,
	SilenceUsage: true,
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute(version, commit string) {
	Version = version
	Commit = commit

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./.neam.yaml or $HOME/.neam.yaml)")
	rootCmd.PersistentFlags().String("tags", "", "tag map file (.properties, .yaml or .json)")
	rootCmd.PersistentFlags().String("annotator", "", "annotator: "+strings.Join(config.Annotators, ", "))
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	v = config.NewViper(configFile)

	for key, flag := range map[string]string{
		"tags":      "tags",
		"annotator": "annotator",
		"log_level": "log-level",
	} {
		if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("failed to bind %s flag: %v", flag, err))
		}
	}

	cobra.CheckErr(config.ReadConfig(v))
	configureLogging(v.GetString("log_level"))

	if used := v.ConfigFileUsed(); used != "" {
		slog.Debug("config file loaded", "path", used)
	}
}

// configureLogging installs the default slog logger on stderr.
func configureLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// loadConfig resolves the configuration from flags, file and environment.
func loadConfig() (*config.Cfg, error) {
	cfg, err := config.Load(v)
	if err != nil {
		slog.Error("config error", "err", err)
		return nil, err
	}
	return cfg, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "neam %s (%s)\n", Version, Commit)
	},
}
