package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/formdeck/formdeck/pkg/assistant"
	"github.com/formdeck/formdeck/pkg/config"
	"github.com/formdeck/formdeck/pkg/forms"
	"github.com/formdeck/formdeck/pkg/logging"
	"github.com/formdeck/formdeck/pkg/providers"
	"github.com/formdeck/formdeck/pkg/session"
	"github.com/formdeck/formdeck/pkg/store"
)

var chatFormID string

// chatCmd edits one form interactively from the terminal.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Edit a form interactively from the terminal",
	Long: `Opens a chat loop against one form. Plain input is sent to the AI as
an instruction; slash commands drive the approval protocol:

  /fields    show the current fields
  /preview   show the pending change as a diff
  /approve   persist the pending change
  /revert    discard the pending change
  /quit      exit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatFormID, "form", "demo", "form id to edit")
}

func runChat(ctx context.Context) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("chat requires an interactive terminal")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogFile, false)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logger.Close()

	provider, err := providers.New(ctx, cfg)
	if err != nil {
		return err
	}
	st, cleanup, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	manager, err := session.NewManager(st, 16)
	if err != nil {
		return err
	}
	sess, err := manager.Get(ctx, chatFormID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("form %q does not exist", chatFormID)
		}
		return err
	}

	orchestrator := assistant.New(provider, logger, cfg.RequestTimeout)

	fmt.Printf("Editing form %q with %s. Type an instruction, or /quit to exit.\n", chatFormID, cfg.Provider)
	printFields(sess.Buffer())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			if sess.Dirty() {
				fmt.Println("Note: unsaved changes were discarded.")
			}
			return nil

		case "/fields":
			printFields(sess.Buffer())

		case "/preview":
			if preview, ok := sess.PendingPreview(); ok {
				fmt.Print(preview)
			} else {
				fmt.Println("Nothing is pending.")
			}

		case "/approve":
			diff, err := sess.Approve(ctx, manager.Store())
			if err != nil {
				printChatError(err)
				continue
			}
			fmt.Printf("Saved: %d created, %d updated, %d deleted.\n",
				len(diff.Created), len(diff.Updated), len(diff.Deleted))

		case "/revert":
			if _, err := sess.Revert(); err != nil {
				printChatError(err)
				continue
			}
			fmt.Println("Reverted.")

		default:
			runChatTurn(ctx, sess, orchestrator, line)
		}
	}
}

func runChatTurn(ctx context.Context, sess *session.EditSession, orchestrator *assistant.Orchestrator, message string) {
	turn, current, err := sess.BeginTurn()
	if err != nil {
		printChatError(err)
		return
	}

	fmt.Println("Thinking...")
	result := orchestrator.Process(ctx, assistant.Request{
		Message:        message,
		FormDefinition: current,
	})
	if !result.Success {
		printChatError(result.Err)
		return
	}
	if err := sess.StageResult(turn, *result.FormDefinition); err != nil {
		printChatError(err)
		return
	}

	if preview, ok := sess.PendingPreview(); ok {
		fmt.Print(preview)
	}
	fmt.Println("Proposed change staged. /approve to save, /revert to discard.")
}

func printChatError(err error) {
	switch {
	case errors.Is(err, session.ErrEditPending):
		fmt.Println("A change is already pending. /approve or /revert it first.")
	case errors.Is(err, session.ErrNoPendingEdit):
		fmt.Println("Nothing is pending.")
	default:
		fmt.Printf("Error: %v\n", err)
	}
}

func printFields(def forms.FormDefinition) {
	if len(def.Fields) == 0 {
		fmt.Println("(no fields)")
		return
	}
	titler := cases.Title(language.English)
	for _, f := range def.Fields {
		required := ""
		if f.Required {
			required = " (required)"
		}
		fmt.Printf("  %2d. %-30s %s%s\n", f.Order, f.Label, titler.String(string(f.Type)), required)
	}
}
