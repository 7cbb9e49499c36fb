package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/voicewin/voicewin/internal/bus"
	"github.com/voicewin/voicewin/internal/config"
	"github.com/voicewin/voicewin/internal/daemon"
	"github.com/voicewin/voicewin/internal/deps"
	"github.com/voicewin/voicewin/internal/history"
	"github.com/voicewin/voicewin/internal/llm"
	"github.com/voicewin/voicewin/internal/pipeline"
	"github.com/voicewin/voicewin/internal/provider"
	"github.com/voicewin/voicewin/internal/transcriber"
	"github.com/voicewin/voicewin/internal/tui"
	"github.com/voicewin/voicewin/internal/vad"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "voicewin",
	Short:        "Push-to-talk dictation into any focused window",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		toggleCmd(),
		simpleCmd("press", "Act as a trigger key press", bus.CmdPress),
		simpleCmd("release", "Act as a trigger key release", bus.CmdRelease),
		simpleCmd("status", "Get current recording status", bus.CmdStatus),
		simpleCmd("stop", "Stop the daemon", bus.CmdQuit),
		versionCmd(),
		historyCmd(),
		transcribeCmd(),
		doctorCmd(),
		configureCmd(),
	)
}

func sendCommand(cmd byte, arg string) (string, error) {
	dir, err := bus.DefaultDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate runtime directory: %w", err)
	}
	return bus.SendCommand(dir, cmd, arg)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.GetConfigPath()
			if err != nil {
				return err
			}
			mgr, err := config.NewManager(path)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			dir, err := bus.DefaultDir()
			if err != nil {
				return fmt.Errorf("failed to locate runtime directory: %w", err)
			}
			d, err := daemon.New(mgr, dir)
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}
			return d.Run()
		},
	}
}

func toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Toggle recording on/off",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := sendCommand(bus.CmdToggle, "")
			if err != nil {
				return fmt.Errorf("failed to toggle recording: %w", err)
			}
			fmt.Println(resp)
			return nil
		},
	}
}

// simpleCmd sends a single argument-less command and prints the reply.
func simpleCmd(use, short string, c byte) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := sendCommand(c, "")
			if err != nil {
				return fmt.Errorf("%s: %w", use, err)
			}
			fmt.Println(resp)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print client and daemon versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("voicewin %s\n", daemon.Version)
			resp, err := sendCommand(bus.CmdVersion, "")
			if err != nil {
				fmt.Println("daemon: not running")
				return nil
			}
			fmt.Printf("daemon: %s\n", resp)
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [count]",
		Short: "Show recent transcripts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			resp, err := sendCommand(bus.CmdHistory, arg)
			if err != nil {
				return fmt.Errorf("failed to get history: %w", err)
			}
			entries, err := parseHistoryReply(resp)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("no transcripts yet")
				return nil
			}
			for _, e := range entries {
				fmt.Println(formatEntry(e))
			}
			return nil
		},
	}
}

func parseHistoryReply(resp string) ([]history.Entry, error) {
	body, ok := strings.CutPrefix(resp, "OK ")
	if !ok {
		return nil, fmt.Errorf("daemon: %s", strings.TrimPrefix(resp, "ERR "))
	}
	var entries []history.Entry
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		return nil, fmt.Errorf("invalid history reply: %w", err)
	}
	return entries, nil
}

func formatEntry(e history.Entry) string {
	return fmt.Sprintf("%s  [%s %s %v]  %s",
		e.Time.Local().Format("2006-01-02 15:04:05"),
		e.Provider, e.Mode, e.Elapsed.Round(time.Millisecond), e.Text)
}

func transcribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <file.wav>",
		Short: "Transcribe a 16 kHz WAV file with the configured provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			audio, err := transcriber.DecodeWAV(f)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			settings := cfg.ToPipelineSettings()
			// streaming providers share a credential with their batch endpoint
			settings.Provider = provider.BaseProviderName(settings.Provider)

			p := pipeline.New(transcriber.NewRegistry(), llm.NewRegistry(), vad.NewTrimmer(vad.NewEnergyClassifier()))
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			result, err := p.Run(ctx, audio, settings, func(status string) {
				fmt.Fprintln(os.Stderr, status)
			})
			if err != nil {
				return err
			}
			fmt.Println(result.Text)
			return nil
		},
	}
}

func loadConfig() (*config.Config, error) {
	path, err := config.GetConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check helper programs, configuration and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			problems := 0

			fmt.Println("Programs:")
			for i, st := range deps.CheckAll() {
				t := deps.Tools[i]
				switch {
				case st.Installed:
					fmt.Printf("  [x] %-12s %s\n", t.Name, st.Version)
				case t.Required:
					problems++
					fmt.Printf("  [ ] %-12s missing (%s)\n", t.Name, t.Purpose)
				default:
					fmt.Printf("  [-] %-12s not installed (%s)\n", t.Name, t.Purpose)
				}
			}

			fmt.Println("Configuration:")
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				problems++
				fmt.Printf("  [ ] %v\n", err)
			} else {
				fmt.Println("  [x] valid")
			}

			fmt.Println("Credentials:")
			problems += reportKey(cfg, cfg.Transcription.Provider, "transcription")
			if cfg.Enhancement.Enabled {
				problems += reportKey(cfg, cfg.Enhancement.Provider, "enhancement")
			}

			if problems > 0 {
				return fmt.Errorf("%d problem(s) found", problems)
			}
			return nil
		},
	}
}

func reportKey(cfg *config.Config, name, purpose string) int {
	key := cfg.APIKey(name)
	p := provider.Get(provider.BaseProviderName(name))
	switch {
	case key == "":
		fmt.Printf("  [ ] %s (%s): no API key, set it in config or $%s\n", name, purpose, provider.EnvVarForProvider(name))
		return 1
	case p != nil && !p.ValidateAPIKey(key):
		fmt.Printf("  [ ] %s (%s): key does not start with %q\n", name, purpose, p.KeyPrefix)
		return 1
	}
	fmt.Printf("  [x] %s (%s)\n", name, purpose)
	return 0
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration wizard for voicewin.
This will guide you through setting up:
- Transcription provider, model and language
- Provider API keys
- The global hotkey and its mode
- LLM enhancement, voice activity detection and notifications`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.LoadFile(path)
	if errors.Is(err, config.ErrConfigNotFound) {
		cfg = config.DefaultConfig()
	} else if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration wizard error: %w", err)
	}
	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := result.Config.Save(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println(tui.StyleSuccess.Render("Configuration saved to " + path))
	fmt.Println("A running daemon picks up the changes automatically.")
	return nil
}
