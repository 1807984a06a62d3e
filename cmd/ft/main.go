package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"focustrack/internal/app"
	"focustrack/internal/config"
	"focustrack/internal/dashboard"
	"focustrack/internal/tracker"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// opTimeout bounds one-shot commands, including the sync roundtrips
// they may need while signed in.
const opTimeout = 30 * time.Second

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Focus", "Watch").
func newApp(operation string, display tracker.Display) (*app.App, error) {
	paths, err := app.DefaultPaths()
	if err != nil {
		return nil, fmt.Errorf("resolving paths: %w", err)
	}

	cfg, err := config.ReadFromFile(paths.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.New(cfg, operation, display)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// transition applies one state change and prints the resulting totals.
func transition(operation string, next tracker.State, headline string) error {
	a, err := newApp(operation, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rec, err := a.Transition(ctx, next)
	if err != nil {
		return fmt.Errorf("switching state: %w", err)
	}

	fmt.Println(headline)
	fmt.Printf("Today: %s focused, %s distracted\n",
		tracker.FormatClock(rec.FocusedMs), tracker.FormatClock(rec.DistractedMs))
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "ft",
	Short: "Personal focus time tracker",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := app.DefaultPaths()
		if err != nil {
			return fmt.Errorf("failed to resolve paths: %w", err)
		}

		// Generate a new device ID
		deviceID := uuid.New().String()

		cfg := config.NewConfig(deviceID, paths.BaseDir)
		if err := config.Init(paths.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", paths.ConfigPath)
		fmt.Printf("Device ID: %s\n", deviceID)
		fmt.Printf("Base Dir:  %s\n", paths.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := app.DefaultPaths()
		if err != nil {
			return fmt.Errorf("failed to resolve paths: %w", err)
		}

		cfg, err := config.ReadFromFile(paths.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", paths.ConfigPath)
		fmt.Printf("Device ID:   %s\n", cfg.DeviceID)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Store:       %s\n", cfg.Store.Type)
		if cfg.Sync.Server != "" {
			fmt.Printf("Sync Server: %s\n", cfg.Sync.Server)
		}
		return nil
	},
}

// focus command
var focusCmd = &cobra.Command{
	Use:   "focus",
	Short: "Start counting time as focused",
	RunE: func(cmd *cobra.Command, args []string) error {
		return transition("Focus", tracker.StateFocus, "Focusing.")
	},
}

// distract command
var distractCmd = &cobra.Command{
	Use:   "distract",
	Short: "Start counting time as distracted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return transition("Distract", tracker.StateDistract, "Distracted.")
	},
}

// stop command
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop counting time",
	RunE: func(cmd *cobra.Command, args []string) error {
		return transition("Stop", tracker.StateNone, "Stopped.")
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View today's totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Status", nil)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		u, err := a.Status(ctx)
		if err != nil {
			return err
		}

		account := "anonymous (this device)"
		if u.UserID != "" {
			account = u.UserID
		}
		state := "stopped"
		switch u.State {
		case tracker.StateFocus:
			state = "focusing"
		case tracker.StateDistract:
			state = "distracted"
		}

		fmt.Printf("Account:    %s\n", account)
		fmt.Printf("State:      %s\n", state)
		fmt.Printf("Focused:    %s\n", u.FocusClock)
		fmt.Printf("Distracted: %s\n", u.DistractClock)
		fmt.Printf("Focus:      %s\n", u.FocusPercent)
		return nil
	},
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show the live tracking dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		surface := dashboard.NewSurface()
		a, err := newApp("Watch", surface)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		p := tea.NewProgram(dashboard.NewModel(a.SetState), tea.WithAltScreen())
		surface.Attach(p)
		defer surface.Detach()

		errc := make(chan error, 1)
		go func() { errc <- a.Watch(ctx) }()

		_, perr := p.Run()
		cancel()
		werr := <-errc
		if perr != nil {
			return fmt.Errorf("running dashboard: %w", perr)
		}
		return werr
	},
}

// login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to a sync server",
	RunE: func(cmd *cobra.Command, args []string) error {
		server, _ := cmd.Flags().GetString("server")
		token, _ := cmd.Flags().GetString("token")

		a, err := newApp("Login", nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if server == "" {
			server = a.DefaultServer()
		}
		if server == "" {
			return fmt.Errorf("no server URL: pass --server or set sync.server in the config")
		}

		if token == "" {
			fmt.Fprintf(os.Stderr, "Token for %s: ", server)
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("reading token: %w", err)
			}
			token = strings.TrimSpace(string(raw))
		}
		if token == "" {
			return fmt.Errorf("empty token")
		}

		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		userID, err := a.Login(ctx, server, token)
		if err != nil {
			return err
		}

		fmt.Printf("Signed in as %s\n", userID)
		fmt.Println("Today's local totals will be merged into the account.")
		return nil
	},
}

// logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and track anonymously",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Logout", nil)
		if err != nil {
			return err
		}
		defer a.Close()

		userID, ok := a.SignedIn()
		if !ok {
			fmt.Println("Not signed in.")
			return nil
		}

		if err := a.Logout(); err != nil {
			return fmt.Errorf("signing out: %w", err)
		}

		fmt.Printf("Signed out of %s. Tracking anonymously on this device.\n", userID)
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(focusCmd)
	rootCmd.AddCommand(distractCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().String("server", "", "Sync server URL (defaults to sync.server from the config)")
	loginCmd.Flags().String("token", "", "Account token (prompted when omitted)")
	rootCmd.AddCommand(logoutCmd)
}
