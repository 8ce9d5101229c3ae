package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/dashcraft/internal/config"
	"github.com/existflow/dashcraft/internal/logger"
	"github.com/existflow/dashcraft/internal/tui"
	"github.com/existflow/dashcraft/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	logLevel    string
	logFile     string
	logConsole  bool
	serverURL   string
	projectFlag string
	assumeYes   bool
)

var rootCmd = &cobra.Command{
	Use:   "dashcraft",
	Short: "Dashcraft - dashboard wireframes from the terminal",
	Long: `Dashcraft builds dashboard wireframes: projects hold screens, screens
hold elements, and collaborators comment on elements.

Run 'dashcraft' without arguments to open the current project in the
interactive editor.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			logger.Warn("Failed to load config, using defaults", logger.F("error", err))
			cfg = config.DefaultConfig()
		}

		configChanged := false
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
			configChanged = true
		}
		if cmd.Flags().Changed("log-file") {
			cfg.LogFile = logFile
			configChanged = true
		}
		if cmd.Flags().Changed("log-console") {
			cfg.LogConsole = logConsole
			configChanged = true
		}
		if cmd.Flags().Changed("server") {
			cfg.Server = serverURL
			configChanged = true
		}

		if configChanged {
			if err := cfg.Save(); err != nil {
				logger.Warn("Failed to save config", logger.F("error", err))
			}
		}
		appConfig = cfg

		logConfig := logger.Config{
			Level:      logger.ParseLevel(cfg.LogLevel),
			FilePath:   cfg.LogFile,
			MaxSize:    10 * 1024 * 1024, // 10MB
			MaxAge:     7,
			MaxBackups: 5,
			Console:    cfg.LogConsole,
		}
		if err := logger.Init(logConfig); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		logger.Info("Dashcraft started", logger.F("command", cmd.Name()))
		return nil
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		events := tui.NewEvents()
		s, err := openSession(ctx, workspace.Options{Notifier: events, OnStatus: events.Status})
		if err != nil {
			return err
		}

		logger.Info("Launching TUI", logger.F("project", s.ws.Project().ID))
		m := tui.NewModel(s.ws, tui.Options{
			Events:             events,
			DefaultElementType: appConfig.DefaultElementType,
			ConfirmDelete:      appConfig.ConfirmDelete,
		})
		p := tea.NewProgram(m, tea.WithAltScreen())

		_, runErr := p.Run()
		closeErr := s.close()
		if runErr != nil {
			logger.Error("TUI error", logger.F("error", runErr))
			return fmt.Errorf("failed to run TUI: %w", runErr)
		}
		if closeErr != nil {
			return closeErr
		}

		logger.Info("TUI exited normally")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Info("Dashcraft exiting", logger.F("command", cmd.Name()))
		logger.Close()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file")
	rootCmd.PersistentFlags().BoolVar(&logConsole, "log-console", false, "Enable console logging")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Server URL (saved to config)")
	rootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "P", "", "Project id (defaults to the project selected with 'project use')")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(screenCmd)
	rootCmd.AddCommand(elementCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(notificationsCmd)
}
