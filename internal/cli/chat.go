package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parthardas/helpdesk/pkg/conversation"
	"github.com/parthardas/helpdesk/pkg/dispatch"
)

var chatDomain string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a domain from the terminal",
	Long: `Start an interactive terminal session against a single domain. Type
"exit" or "quit" to leave.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatDomain, "domain", "", "domain to chat with (default from config)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lg, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer lg.Close()
	log := lg.GetZerolog()

	provider, err := buildProvider(cfg, log)
	if err != nil {
		return err
	}

	bundles, err := buildBundles(cfg, provider, log)
	if err != nil {
		return err
	}
	defer closeBundles(bundles)

	domain := chatDomain
	if domain == "" {
		domain = cfg.Domains.Default
	}
	bundle, ok := bundles[domain]
	if !ok {
		return fmt.Errorf("domain %q is not enabled", domain)
	}

	state := conversation.NewState(conversation.NewSessionID(), domain)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Connected to the %s domain (session %s). Type \"exit\" to leave.\n", domain, state.SessionID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		state.BeginTurn(input)
		result, err := bundle.Loop.Run(cmd.Context(), state)
		if err != nil {
			if errors.Is(err, dispatch.ErrTurnTimeout) {
				fmt.Fprintln(out, "That took too long, please try again.")
				continue
			}
			return err
		}

		fmt.Fprintln(out, state.Response)
		log.Debug().
			Str("session_id", state.SessionID).
			Strs("trail", result.Trail).
			Str("outcome", result.Outcome).
			Msg("Turn completed")
	}

	fmt.Fprintln(out, "Goodbye.")
	return scanner.Err()
}
