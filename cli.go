package sbpatch

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type CLIConfig struct {
	Project        string
	Page           string
	BaseURL        string
	Cookie         string
	Local          string
	Fuzz           int
	DryRun         bool
	CheckStaleness bool
	SettleDelayMs  int
	Reverse        bool
	NoAnimation    bool
	Completion     string
}

var cfg = &CLIConfig{}

var rootCmd = &cobra.Command{
	Use:   "sbpatch",
	Short: "Apply a unified diff from stdin or clipboard to a live document.",
	Long: `Apply a unified diff from stdin (pipe) or clipboard to a page of a
scrapbox-compatible document store, or to a local file through Neovim.

Examples:
  pbpaste | sbpatch --project notes --page todo --dry-run
  git diff | sbpatch --local notes.md`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Completion != "" {
			return handleCompletion(cmd)
		}

		if cfg.Local == "" && (cfg.Project == "" || cfg.Page == "") {
			return fmt.Errorf("either --local or both --project and --page are required")
		}

		diffText, err := readDiffText()
		if err != nil {
			return err
		}

		sess, doc, err := buildSession()
		if err != nil {
			return err
		}
		defer sess.Close()

		opts := Options{
			Fuzz:           cfg.Fuzz,
			CheckStaleness: cfg.CheckStaleness,
			SettleDelay:    time.Duration(cfg.SettleDelayMs) * time.Millisecond,
			DryRun:         cfg.DryRun,
		}

		if cfg.DryRun {
			res, err := sess.Patch(context.Background(), doc, diffText, opts)
			if err != nil {
				return err
			}
			fmt.Println(res.Target)
			return nil
		}

		ui := NewTUI(sess, cfg.NoAnimation)
		return ui.Run(func() (*Result, error) {
			return sess.Patch(context.Background(), doc, diffText, opts)
		})
	},
}

func readDiffText() (string, error) {
	content, err := NewDiffSource().Read()
	if err != nil {
		return "", fmt.Errorf("failed to read diff input: %w", err)
	}
	if content == "" {
		return "", fmt.Errorf("empty diff input")
	}

	diffText := ExtractDiff(content)
	if cfg.Reverse {
		p, err := ParsePatch(diffText)
		if err != nil {
			return "", err
		}
		diffText = p.Reverse().Format()
	}
	return diffText, nil
}

func buildSession() (*Session, string, error) {
	if cfg.Local != "" {
		host, err := NewNvimHost()
		if err != nil {
			return nil, "", fmt.Errorf("failed to start nvim host: %w", err)
		}
		sess, err := NewSession(host, host)
		if err != nil {
			host.Close()
			return nil, "", err
		}
		return sess, cfg.Local, nil
	}

	cookie := cfg.Cookie
	if cookie == "" {
		cookie = os.Getenv("SCRAPBOX_SID")
	}
	store, err := NewStore(cfg.BaseURL, cfg.Project, cookie)
	if err != nil {
		return nil, "", err
	}
	if !cfg.DryRun {
		return nil, "", fmt.Errorf("remote pages support --dry-run only: applying requires a live input bridge")
	}
	sess, err := NewSession(store, nil)
	if err != nil {
		return nil, "", err
	}
	return sess, cfg.Page, nil
}

func handleCompletion(cmd *cobra.Command) error {
	switch cfg.Completion {
	case "bash":
		return cmd.Root().GenBashCompletion(os.Stdout)
	case "zsh":
		return cmd.Root().GenZshCompletion(os.Stdout)
	case "fish":
		return cmd.Root().GenFishCompletion(os.Stdout, true)
	case "powershell":
		return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
	default:
		return fmt.Errorf("unsupported shell for completion: %s", cfg.Completion)
	}
}

func init() {
	rootCmd.Flags().StringVar(&cfg.Completion, "completion", "", "Generate completion script")
	rootCmd.Flags().StringVarP(&cfg.Project, "project", "p", "", "Remote project name")
	rootCmd.Flags().StringVar(&cfg.Page, "page", "", "Remote page title")
	rootCmd.Flags().StringVar(&cfg.BaseURL, "base-url", "", "Remote store base URL")
	rootCmd.Flags().StringVar(&cfg.Cookie, "cookie", "", "Session cookie (default $SCRAPBOX_SID)")
	rootCmd.Flags().StringVarP(&cfg.Local, "local", "l", "", "Patch a local file through Neovim")
	rootCmd.Flags().IntVar(&cfg.Fuzz, "fuzz", 0, "Tolerated mismatched context lines per hunk")
	rootCmd.Flags().BoolVarP(&cfg.DryRun, "dry-run", "n", false, "Print the computed target text, mutate nothing")
	rootCmd.Flags().BoolVar(&cfg.CheckStaleness, "check-staleness", false, "Abort if the document changed since the snapshot")
	rootCmd.Flags().IntVar(&cfg.SettleDelayMs, "settle-delay", 0, "Pause after each slow-path mutation in milliseconds")
	rootCmd.Flags().BoolVarP(&cfg.Reverse, "reverse", "R", false, "Apply the diff reversed (undo an applied patch)")
	rootCmd.Flags().BoolVar(&cfg.NoAnimation, "no-animation", false, "Disable spinner")

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
}

func Execute() error {
	return rootCmd.Execute()
}
