package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tesserabio/tessera-cli/pkg/config"
	"github.com/tesserabio/tessera-cli/pkg/output"
)

type Config struct {
	ConfigPath   string
	OutputWriter io.Writer
}

type runtimeState struct {
	configPath           string
	cfg                  *config.Config
	environmentOverride  string
	accountOverride      string
	outputFormat         string
	tokenStorageOverride string
	refreshTokenOverride string
	nonInteractive       bool
	verbose              bool
	writer               io.Writer
	log                  *zap.SugaredLogger
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		ConfigPath:   config.DefaultConfigPath(),
		OutputWriter: os.Stdout,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{configPath: cfg.ConfigPath, writer: cfg.OutputWriter}

	root := &cobra.Command{
		Use:           "tessctl",
		Short:         "Tessera platform CLI",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Attach the runtime to the executed context so cancellation
			// from ExecuteContext reaches every command.
			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey{}, rt))
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.configPath == "" {
				rt.configPath = config.DefaultConfigPath()
			}
			if rt.environmentOverride == "" {
				rt.environmentOverride = os.Getenv("TESSCTL_ENVIRONMENT")
			}
			if rt.accountOverride == "" {
				rt.accountOverride = os.Getenv("TESSCTL_ACCOUNT")
			}
			if rt.outputFormat == "" {
				rt.outputFormat = os.Getenv("TESSCTL_OUTPUT")
			}
			if rt.tokenStorageOverride == "" {
				rt.tokenStorageOverride = os.Getenv("TESSCTL_TOKEN_STORAGE")
			}
			if rt.refreshTokenOverride == "" {
				rt.refreshTokenOverride = os.Getenv("TESSCTL_REFRESH_TOKEN")
			}
			if !rt.nonInteractive {
				rt.nonInteractive = strings.EqualFold(os.Getenv("TESSCTL_NON_INTERACTIVE"), "true")
			}
			if !rt.verbose {
				rt.verbose = strings.EqualFold(os.Getenv("TESSCTL_VERBOSE"), "true")
			}
			rt.log = buildLogger(rt.verbose)

			if cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}

			loaded, err := config.Load(rt.configPath)
			if err != nil {
				return &Error{Code: CodeConfigError, Err: err}
			}
			rt.cfg = loaded
			return nil
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath, "Path to config file")
	root.PersistentFlags().StringVarP(&rt.environmentOverride, "environment", "e", "", "Environment: staging or production")
	root.PersistentFlags().StringVar(&rt.accountOverride, "account", "", "Account identifier scoping stored credentials")
	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: table, json, yaml")
	root.PersistentFlags().StringVar(&rt.tokenStorageOverride, "token-storage", "", "Token storage backend: keychain, file, or auto")
	root.PersistentFlags().StringVar(&rt.refreshTokenOverride, "refresh-token", "", "Refresh token for non-interactive use, exchanged on first need")
	root.PersistentFlags().BoolVar(&rt.nonInteractive, "non-interactive", false, "Fail instead of opening a browser")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		NewLoginCommand(),
		NewLogoutCommand(),
		NewStatusCommand(),
		NewWhoamiCommand(),
		NewAppsCommand(),
		NewRunsCommand(),
		NewCompletionCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func buildLogger(verbose bool) *zap.SugaredLogger {
	if !verbose {
		return zap.NewNop().Sugar()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}

func (rt *runtimeState) ResolveEnvironment() (config.Environment, error) {
	if rt.environmentOverride != "" {
		return config.ParseEnvironment(rt.environmentOverride)
	}
	if rt.cfg != nil {
		return rt.cfg.CurrentEnvironmentOrDefault()
	}
	return config.ParseEnvironment("")
}

func (rt *runtimeState) Account() string {
	if rt.accountOverride != "" {
		return rt.accountOverride
	}
	if rt.cfg != nil {
		return rt.cfg.Account()
	}
	return "default"
}

func (rt *runtimeState) OutputFormat() (output.Format, error) {
	if rt.outputFormat != "" {
		return output.ParseFormat(rt.outputFormat)
	}
	if rt.cfg != nil && rt.cfg.Settings.OutputFormat != "" {
		return output.ParseFormat(rt.cfg.Settings.OutputFormat)
	}
	return output.FormatTable, nil
}

func (rt *runtimeState) TokenStorage() string {
	if rt.tokenStorageOverride != "" {
		return rt.tokenStorageOverride
	}
	if rt.cfg != nil && rt.cfg.Settings.TokenStorage != "" {
		return rt.cfg.Settings.TokenStorage
	}
	return "auto"
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) Logger() *zap.SugaredLogger {
	if rt.log != nil {
		return rt.log
	}
	return zap.NewNop().Sugar()
}

func (rt *runtimeState) ResolveEndpoints() (config.Endpoints, error) {
	env, err := rt.ResolveEnvironment()
	if err != nil {
		return config.Endpoints{}, &Error{Code: CodeConfigError, Err: err}
	}
	if rt.cfg == nil {
		return config.Endpoints{}, &Error{Code: CodeConfigError, Err: errors.New("config not loaded")}
	}
	ep, err := rt.cfg.ResolveEndpoints(env)
	if err != nil {
		return config.Endpoints{}, &Error{Code: CodeConfigError, Err: err}
	}
	return ep, nil
}
