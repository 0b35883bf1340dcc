package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/yourusername/espinput-cli/internal/client"
	"github.com/yourusername/espinput-cli/internal/config"
	"github.com/yourusername/espinput-cli/internal/emulator"
	"github.com/yourusername/espinput-cli/internal/logging"
	"github.com/yourusername/espinput-cli/internal/output"
	"github.com/yourusername/espinput-cli/internal/reconcile"
	"github.com/yourusername/espinput-cli/internal/state"
)

var (
	configPath  string
	baseURL     string
	timeout     time.Duration
	strictCount bool
	jsonOutput  bool
	noColor     bool
	debugMode   bool

	// Color functions
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	keyColor     = color.New(color.FgYellow)
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "espinput",
	Short: "ESP8266 input store client",
	Long: `espinput is a command-line client for the input store served by an
ESP8266 soft access point.

It lists, creates, edits and deletes text inputs on the device, and can run
a local emulator of the device API for development.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// listCmd lists every input on the device
var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all inputs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings()
		if err != nil {
			return err
		}

		s := newSynchronizer(cfg, false)
		defer s.Close()

		<-s.LoadAll(cmd.Context())

		cs := s.State()
		if listSort {
			cs.Items = output.SortedByID(cs.Items)
		}
		return finish(cs)
	},
}

var listSort bool

// stateCmd loads the list and prints the client state summary
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show client state after loading the list",
	Long:  `Loads the device list into a fresh client state and prints its summary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings()
		if err != nil {
			return err
		}

		s := newSynchronizer(cfg, false)
		defer s.Close()

		<-s.LoadAll(cmd.Context())

		if jsonOutput {
			return printJSON(s.Store().Summary())
		}
		printSummary(os.Stdout, s.Store())
		return nil
	},
}

// getCmd fetches one input
var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a single input",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		cfg, err := loadSettings()
		if err != nil {
			return err
		}

		rec, err := newClient(cfg).Get(cmd.Context(), id)
		if err != nil {
			printError(err.Error())
			return err
		}

		if jsonOutput {
			return printJSON(rec)
		}

		output.PrintRecordDetail(os.Stdout, rec)
		return nil
	},
}

// createCmd creates an input
var createCmd = &cobra.Command{
	Use:     "create <message...>",
	Aliases: []string{"add"},
	Short:   "Create an input",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := strings.Join(args, " ")
		if strings.TrimSpace(message) == "" {
			return errBlankMessage
		}

		cfg, err := loadSettings()
		if err != nil {
			return err
		}

		s := newSynchronizer(cfg, false)
		defer s.Close()

		<-s.LoadAll(cmd.Context())
		<-s.CreateRecord(cmd.Context(), message)
		return finish(s.State())
	},
}

// updateCmd replaces the message of an input
var updateCmd = &cobra.Command{
	Use:     "update <id> <message...>",
	Aliases: []string{"edit"},
	Short:   "Replace the message of an input",
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		message := strings.Join(args[1:], " ")
		if strings.TrimSpace(message) == "" {
			return errBlankMessage
		}

		cfg, err := loadSettings()
		if err != nil {
			return err
		}

		s := newSynchronizer(cfg, false)
		defer s.Close()

		<-s.LoadAll(cmd.Context())
		<-s.UpdateRecord(cmd.Context(), id, message)
		return finish(s.State())
	},
}

// deleteCmd deletes an input
var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete an input",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		cfg, err := loadSettings()
		if err != nil {
			return err
		}

		s := newSynchronizer(cfg, false)
		defer s.Close()

		<-s.LoadAll(cmd.Context())
		<-s.DeleteRecord(cmd.Context(), id)
		return finish(s.State())
	},
}

// infoCmd prints how to reach the device
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show device connection details",
	Long:  `Prints the access point credentials and base URL used to reach the device.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings()
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cfg.Device)
		}

		infoColor.Println("Connect to the device access point, then use the URL below.")
		keyColor.Print("SSID: ")
		fmt.Println(cfg.Device.SSID)
		keyColor.Print("Passphrase: ")
		fmt.Println(cfg.Device.Passphrase)
		keyColor.Print("URL: ")
		fmt.Println(cfg.Device.BaseURL)
		keyColor.Print("Timeout: ")
		fmt.Println(cfg.Client.Timeout)

		return nil
	},
}

// serveCmd runs the device emulator
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local emulator of the device API",
	Long: `Serves the /input API from memory so the client can be used without the
device. Point --base-url at the printed address.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings()
		if err != nil {
			return err
		}

		addr := cfg.Emulator.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		successColor.Printf("✓ Emulator listening on http://%s\n", addr)
		fmt.Println("Press Ctrl+C to stop")

		if err := emulator.Serve(ctx, addr, emulator.NewStore(nil)); err != nil {
			printError(fmt.Sprintf("Emulator failed: %v", err))
			return err
		}

		infoColor.Println("Emulator stopped")
		return nil
	},
}

var serveAddr string

// configCmd is the parent command for configuration subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

// configShowCmd prints the effective configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if jsonOutput {
			return printJSON(cfg)
		}

		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

// configValidateCmd validates config file
var configValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) > 0 {
			path = args[0]
		}

		cfg, err := config.LoadConfig(path)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		successColor.Println("✓ Configuration is valid")
		fmt.Printf("  Device: %s\n", cfg.Device.BaseURL)
		fmt.Printf("  Timeout: %s\n", cfg.Client.Timeout)
		fmt.Printf("  Message TTL: %s\n", cfg.Sync.MessageTTL)

		return nil
	},
}

var configInitForce bool

// configInitCmd creates default config
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.GetConfigPath()
		}

		if err := config.WriteDefault(path, configInitForce); err != nil {
			return err
		}

		successColor.Printf("✓ Created config file at %s\n", path)
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/espinput/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Device base URL (overrides config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Request timeout (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&strictCount, "strict-count", false, "Reject lists whose count disagrees with their length")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	// Add top-level commands
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(serveCmd)

	// Add config subcommands
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configInitCmd)

	listCmd.Flags().BoolVar(&listSort, "sort", false, "Sort by ID instead of device order")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing file")

	// Disable color if requested, enable debug logging if requested
	cobra.OnInitialize(func() {
		if noColor {
			color.NoColor = true
		}
		if debugMode {
			logging.SetDebug(true)
		}
	})
}

func main() {
	// Initialize logging
	if err := logging.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", err)
	}
	defer logging.Close()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		var reqErr *client.RequestError
		if !errors.Is(err, errReported) && !errors.As(err, &reqErr) {
			printError(err.Error())
		}
		logging.Close()
		os.Exit(1)
	}
}

var (
	errBlankMessage = errors.New("message must not be blank")
	// errReported marks failures already shown to the user
	errReported = errors.New("operation failed")
)

// Helper functions

// loadSettings loads the config file and applies flag overrides
func loadSettings() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if baseURL != "" {
		normalized, err := config.NormalizeBaseURL(baseURL)
		if err != nil {
			return nil, err
		}
		cfg.Device.BaseURL = normalized
	}
	if timeout > 0 {
		cfg.Client.Timeout = config.Duration(timeout)
	}
	if strictCount {
		cfg.Client.StrictCount = true
	}

	logging.Debug().
		Str("baseURL", cfg.Device.BaseURL).
		Dur("timeout", cfg.Client.Timeout.Std()).
		Msg("settings loaded")

	return cfg, nil
}

func newClient(cfg *config.Config) *client.Client {
	var opts []client.Option
	if cfg.Client.StrictCount {
		opts = append(opts, client.WithStrictCount())
	}
	return client.NewClient(cfg.Device.BaseURL, cfg.Client.Timeout.Std(), opts...)
}

// newSynchronizer builds a Synchronizer over a fresh store. Message expiry
// only matters for long-lived sessions.
func newSynchronizer(cfg *config.Config, interactive bool) *reconcile.Synchronizer {
	var opts []reconcile.Option
	if interactive {
		opts = append(opts, reconcile.WithMessageTTL(cfg.Sync.MessageTTL.Std()))
	}
	if cfg.Sync.StaleGuard {
		opts = append(opts, reconcile.WithStaleGuard())
	}
	return reconcile.New(newClient(cfg), state.NewStore(), opts...)
}

// finish prints the final state of a one-shot command and turns a failure
// into an exit error
func finish(cs state.ClientState) error {
	if jsonOutput {
		if err := printJSON(cs); err != nil {
			return err
		}
	} else if cs.HasError() {
		printError(cs.ErrorMessage)
	} else {
		output.PrintState(os.Stdout, cs, output.TerminalWidth())
		fmt.Printf("Total: %d\n", len(cs.Items))
	}

	if cs.HasError() {
		return errReported
	}
	return nil
}

// printSummary writes the store summary as aligned key/value lines
func printSummary(w io.Writer, store *state.Store) {
	summary := store.Summary()
	keys := make([]string, 0, len(summary))
	for k := range summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		keyColor.Fprintf(w, "%-15s ", k+":")
		fmt.Fprintln(w, summary[k])
	}
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid id: %q", s)
	}
	return id, nil
}

func printJSON(data interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printError(msg string) {
	if noColor {
		fmt.Fprintln(os.Stderr, "Error:", msg)
	} else {
		errorColor.Fprint(os.Stderr, "✗ Error: ")
		fmt.Fprintln(os.Stderr, msg)
	}
}
