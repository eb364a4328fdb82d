package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tiger-trader/internal/agents"
)

// addAgentCommands wires the AI assistant commands.
func addAgentCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAgentCmd(app))
}

func requireAssistant(app *App) (*agents.Assistant, error) {
	if app.LLMClient == nil {
		return nil, fmt.Errorf("no OpenAI API key configured; set agent.openai_api_key or OPENAI_API_KEY")
	}
	if err := requireExecutor(app); err != nil {
		return nil, err
	}
	return agents.NewAssistant(app.LLMClient, app.Executor, app.Logger), nil
}

func newAgentCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "AI trading assistant",
		Long: `Drive the account through a conversational AI assistant. The
assistant uses the same tools and safety gate as the order commands; it
cannot bypass a blocked order.`,
	}

	var verbose bool
	askCmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the assistant a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assistant, err := requireAssistant(app)
			if err != nil {
				return err
			}
			output := NewOutput(cmd)

			cot, err := assistant.Ask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(cot)
			}
			if verbose {
				printToolCalls(cot)
			}
			output.Println(cot.Response)
			return nil
		},
	}
	askCmd.Flags().BoolVar(&verbose, "verbose", false, "show tool calls made by the assistant")
	cmd.AddCommand(askCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "chat",
		Short: "Interactive chat session with the assistant",
		RunE: func(cmd *cobra.Command, args []string) error {
			assistant, err := requireAssistant(app)
			if err != nil {
				return err
			}
			return runChatLoop(cmd, assistant)
		},
	})

	return cmd
}

func printToolCalls(cot *agents.ChainOfThought) {
	dim := color.New(color.Faint)
	for _, call := range cot.ToolCalls {
		dim.Printf("  -> %s(%s)\n", call.ToolName, call.Arguments)
	}
}

// runChatLoop reads user lines from stdin until EOF or an exit command.
func runChatLoop(cmd *cobra.Command, assistant *agents.Assistant) error {
	prompt := color.New(color.FgCyan, color.Bold)
	answer := color.New(color.FgWhite)
	errColor := color.New(color.FgRed)

	fmt.Println("Tiger Trader assistant. Type 'exit' to quit, 'reset' to clear the conversation.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		prompt.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return nil
		case line == "reset":
			assistant.Reset()
			fmt.Println("Conversation cleared.")
			continue
		}

		cot, err := assistant.Ask(cmd.Context(), line)
		if err != nil {
			errColor.Printf("error: %v\n", err)
			continue
		}
		printToolCalls(cot)
		answer.Println(cot.Response)
	}
}
