package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"claw/internal/config"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up claw config and credentials",
	Long:  "Interactive wizard that creates ~/.config/claw/ with config.toml and credentials.toml.",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	// If --config flag was explicitly set, do a project-local init.
	if cfgPath != "" {
		return runLocalInit()
	}
	return runGlobalInit()
}

// runGlobalInit is the interactive wizard for ~/.config/claw/.
func runGlobalInit() error {
	reader := bufio.NewReader(os.Stdin)

	configDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	cfgFile, err := config.GlobalConfigPath()
	if err != nil {
		return err
	}
	credsFile, err := config.CredentialsPath()
	if err != nil {
		return err
	}

	// 1. Detect existing setup.
	if _, err := os.Stat(credsFile); err == nil {
		fmt.Printf("Existing credentials found at %s\n", credsFile)
		fmt.Print("Re-run setup? [y/N]: ")
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	// 2. Create config directory.
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	// 3. Prompt for Discord bot token (masked input).
	fmt.Print("Discord bot token (input is hidden): ")
	tokenBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println() // newline after hidden input
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(string(tokenBytes))

	// 4. If empty, check env var and offer to save it.
	if token == "" {
		if envToken := os.Getenv("DISCORD_TOKEN"); envToken != "" {
			fmt.Print("DISCORD_TOKEN env var detected. Save it to credentials.toml? [Y/n]: ")
			answer, _ := reader.ReadString('\n')
			answer = strings.TrimSpace(strings.ToLower(answer))
			if answer == "" || answer == "y" || answer == "yes" {
				token = envToken
			}
		}
	}

	// 5. Write credentials.toml (0600), preserving existing fields.
	creds, err := config.LoadCredentials()
	if err != nil {
		creds = &config.Credentials{}
	}
	if token != "" {
		creds.DiscordToken = token
	}
	if err := config.SaveCredentials(creds); err != nil {
		return err
	}
	fmt.Printf("Credentials saved: %s\n", credsFile)

	// 6. Create config.toml with defaults (if not exists).
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		if err := os.WriteFile(cfgFile, []byte(configTemplate), 0o644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Config created: %s\n", cfgFile)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgFile)
	}

	// 7. Initialize DB via LoadMinimal.
	cfg, err := config.LoadMinimal(cfgFile)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Printf("Database initialized: %s\n", cfg.DBPath)
	serviceInstalled, err := maybeInstallServiceFromInit(
		runtime.GOOS,
		reader,
		os.Stdout,
		cfg,
		cfgFile,
		installCurrentService,
	)
	if err != nil {
		return fmt.Errorf("install service: %w", err)
	}

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit your config to pick a tool:  %s\n", cfgFile)
	if serviceInstalled {
		fmt.Printf("  2. Check service status:             claw service status\n")
		fmt.Printf("  3. Browse jobs:                      claw tui\n")
	} else {
		fmt.Printf("  2. Start the daemon:                 claw start\n")
		fmt.Printf("  3. Browse jobs:                      claw tui\n")
	}
	return nil
}

// runLocalInit creates a project-local config file at the --config path.
func runLocalInit() error {
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := os.WriteFile(cfgPath, []byte(configTemplate), 0o644); err != nil {
			return fmt.Errorf("write config template: %w", err)
		}
		fmt.Printf("Created config template: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Printf("Database initialized: %s\n", cfg.DBPath)
	fmt.Println("Edit the config file, set your Discord token, then run: claw start")
	return nil
}

func maybeInstallServiceFromInit(
	goos string,
	reader *bufio.Reader,
	out io.Writer,
	cfg *config.Config,
	cfgPath string,
	installFn func(*config.Config, string) error,
) (bool, error) {
	if goos != "darwin" {
		return false, nil
	}

	fmt.Fprint(out, "Install as system service (auto-start on login)? [y/N]: ")
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	if answer != "y" && answer != "yes" {
		return false, nil
	}

	if err := installFn(cfg, cfgPath); err != nil {
		return false, err
	}
	fmt.Fprintf(out, "Service installed: %s\n", "io.claw.daemon")
	return true, nil
}

const configTemplate = `# claw configuration
#
# Token: store in ~/.config/claw/credentials.toml or set the DISCORD_TOKEN
# env var. The env var always wins.
#
# Data files (DB) default to ~/.local/share/claw/
# State files (logs, PID) default to ~/.local/state/claw/
# Override with XDG_DATA_HOME / XDG_STATE_HOME or set paths explicitly below.

log_level = "info"              # debug|info|warn|error

[daemon]
poll_interval = "5s"            # how often the scheduler checks for pending jobs

[worker]
tool = "gemini"                 # gemini|claude|codex, or any CLI on PATH
# display_name = "Gemini"       # label used in chat history context

# [discord]
# token = ""                    # discouraged; prefer credentials.toml or DISCORD_TOKEN
`
