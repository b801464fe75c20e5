// Package cmd implements the nbi-settings command line.
package cmd

import (
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/notebook-intelligence/nbi-settings/client"
	"github.com/notebook-intelligence/nbi-settings/pkg/version"
)

type subCommandGroup string

const (
	subCommandGroupBasic    subCommandGroup = "basic"
	subCommandGroupAdvanced subCommandGroup = "advanced"
)

const (
	ServerURLEnvVar   = "NBI_SERVER_URL"
	AccessTokenEnvVar = "NBI_TOKEN"
)

const defaultServerURL = "http://127.0.0.1:8080"

var (
	rootCmdServerURL   string
	rootCmdAccessToken string
	rootCmdLogLevel    string
)

var (
	apiClient *client.Client
	logger    = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "nbi-settings",
	Short: "Notebook Intelligence settings service and terminal tools",
	Long: "nbi-settings runs the Notebook Intelligence configuration service and provides\n" +
		"terminal front-ends for it: the settings panel, MCP server toggles, model selection,\n" +
		"the ask-user question dialog and the assistant markdown renderer.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		l, err := newLogger(rootCmdLogLevel)
		if err != nil {
			return err
		}
		logger = l

		serverURL := rootCmdServerURL
		if serverURL == "" {
			serverURL = os.Getenv(ServerURLEnvVar)
		}
		if serverURL == "" {
			serverURL = defaultServerURL
		}
		token := rootCmdAccessToken
		if token == "" {
			token = os.Getenv(AccessTokenEnvVar)
		}
		apiClient = client.NewClient(serverURL, token, &http.Client{})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.Version = version.GetVersion()

	rootCmd.PersistentFlags().StringVar(
		&rootCmdServerURL,
		"server-url",
		"",
		fmt.Sprintf("base URL of the nbi-settings server (overrides env var %s, default %s)", ServerURLEnvVar, defaultServerURL),
	)
	rootCmd.PersistentFlags().StringVar(
		&rootCmdAccessToken,
		"access-token",
		"",
		fmt.Sprintf("access token for the nbi-settings API (overrides env var %s)", AccessTokenEnvVar),
	)
	rootCmd.PersistentFlags().StringVar(
		&rootCmdLogLevel,
		"log-level",
		"warn",
		"log level: debug, info, warn or error",
	)
}

// Execute runs the root command.
func Execute() error {
	organizeCommands(rootCmd)
	rootCmd.SetOut(os.Stdout)
	return rootCmd.Execute()
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level '%s': %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// organizeCommands sorts the subcommands of root into cobra groups according to
// their "group" annotation and orders them by their "order" annotation.
func organizeCommands(root *cobra.Command) {
	cobra.EnableCommandSorting = false

	for _, g := range []struct {
		id    subCommandGroup
		title string
	}{
		{subCommandGroupBasic, "Basic Commands:"},
		{subCommandGroupAdvanced, "Advanced Commands:"},
	} {
		if !root.ContainsGroup(string(g.id)) {
			root.AddGroup(&cobra.Group{ID: string(g.id), Title: g.title})
		}
	}

	cmds := append([]*cobra.Command(nil), root.Commands()...)
	sort.SliceStable(cmds, func(i, j int) bool {
		return commandOrder(cmds[i]) < commandOrder(cmds[j])
	})
	root.RemoveCommand(cmds...)
	for _, c := range cmds {
		if g, ok := c.Annotations["group"]; ok {
			c.GroupID = g
		}
	}
	root.AddCommand(cmds...)
}

func commandOrder(c *cobra.Command) int {
	n, err := strconv.Atoi(c.Annotations["order"])
	if err != nil {
		return 1 << 16
	}
	return n
}
