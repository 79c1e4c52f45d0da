// Package cli defines the cobra commands. Commands own all console I/O;
// the pipeline below them is driven through callbacks.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robbybarnes/zendesk-voice-summary/config"
	"github.com/robbybarnes/zendesk-voice-summary/internal/app"
	"github.com/robbybarnes/zendesk-voice-summary/internal/output"
	"github.com/robbybarnes/zendesk-voice-summary/internal/pipeline"
	"github.com/robbybarnes/zendesk-voice-summary/internal/version"
	"github.com/robbybarnes/zendesk-voice-summary/internal/zendesk"
)

type Dependencies struct {
	App    *app.App
	Config *config.Config
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	var (
		noPost       bool
		skipExisting bool
		assumeYes    bool
	)

	rootCmd := &cobra.Command{
		Use:   "voicesummary [ticket...]",
		Short: "Summarize Zendesk voice calls into ticket notes",
		Long: "Downloads the voice recordings attached to Zendesk tickets, transcribes them " +
			"with Whisper, generates a call summary, and posts it back to the ticket as a " +
			"private note. Tickets can be given as plain ids or agent URLs; with no " +
			"arguments, ids and run options are collected interactively.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// doctor and list run without credentials; processing does not.
			if err := deps.Config.Validate(); err != nil {
				return err
			}

			f := output.NewFormatter(os.Stdout)
			scanner := bufio.NewScanner(os.Stdin)

			opts := pipeline.Options{
				Post:         !noPost,
				SkipExisting: skipExisting,
			}

			var ticketIDs []string
			if len(args) == 0 {
				ticketIDs, opts = interactiveSetup(scanner, f, opts)
			} else {
				var err error
				ticketIDs, err = ticketIDsFromArgs(args)
				if err != nil {
					return err
				}
			}
			if len(ticketIDs) == 0 {
				f.Info("No tickets to process")
				return nil
			}

			confirm := confirmClosedPrompt(scanner, f, assumeYes)
			orch := deps.App.NewOrchestrator(f, confirm)

			batch := orch.Run(cmd.Context(), ticketIDs, opts)

			f.BatchReport(batch)
			if batch.HasFailures() {
				return fmt.Errorf("%d of %d tickets failed", len(batch.Failed()), batch.Attempted())
			}
			return nil
		},
	}

	rootCmd.Flags().BoolVar(&noPost, "no-post", false, "generate summaries without posting them to tickets")
	rootCmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "reuse transcripts and summaries already on disk")
	rootCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "answer yes to all prompts")

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	rootCmd.AddCommand(NewListCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))

	return rootCmd
}

// ticketIDsFromArgs turns command arguments into ticket ids. Arguments may
// be plain ids, "#123" style references, or agent/API URLs.
func ticketIDsFromArgs(args []string) ([]string, error) {
	ids := make([]string, 0, len(args))
	for _, arg := range args {
		id, ok := zendesk.ExtractTicketID(arg)
		if !ok {
			return nil, fmt.Errorf("cannot determine ticket id from %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// interactiveSetup runs the zero-argument session: collect ticket ids, ask
// about posting and transcript reuse, then wait for a final go-ahead. The
// prompted answers replace the flag values for this run.
func interactiveSetup(scanner *bufio.Scanner, f *output.Formatter, defaults pipeline.Options) ([]string, pipeline.Options) {
	ids := collectTicketIDs(scanner, f)
	if len(ids) == 0 {
		return nil, defaults
	}

	fmt.Printf("\nFound %d valid ticket(s): %s\n\n", len(ids), strings.Join(ids, ", "))

	opts := defaults
	opts.Post = promptYesNo(scanner, "Post summaries to Zendesk? (y/n) [default: y]: ", true)
	opts.SkipExisting = promptYesNo(scanner, "Skip recordings with existing transcripts? (y/n) [default: n]: ", false)

	fmt.Printf("\nProcessing %d ticket(s)\n", len(ids))
	fmt.Printf("   Post to Zendesk: %s\n", yesNo(opts.Post))
	fmt.Printf("   Skip existing: %s\n", yesNo(opts.SkipExisting))
	fmt.Print("\nPress Enter to continue or Ctrl+C to cancel...")
	scanner.Scan()

	return ids, opts
}

// collectTicketIDs prompts for ticket ids or URLs, comma-separated or one
// per line. An empty line finishes once at least one line was entered.
func collectTicketIDs(scanner *bufio.Scanner, f *output.Formatter) []string {
	fmt.Println("Enter ticket numbers or URLs (comma-separated or one per line)")
	fmt.Println("Press Enter on an empty line when done:")

	var ids []string
	entered := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			if entered {
				break
			}
			continue
		}
		entered = true
		for _, piece := range strings.Split(line, ",") {
			piece = strings.TrimSpace(piece)
			if piece == "" {
				continue
			}
			id, ok := zendesk.ExtractTicketID(piece)
			if !ok {
				f.Warning(fmt.Sprintf("Cannot determine ticket id from %q", piece))
				continue
			}
			ids = append(ids, id)
		}
	}
	return ids
}

// promptYesNo asks a y/n question; empty or unrecognized input takes the
// default.
func promptYesNo(scanner *bufio.Scanner, prompt string, def bool) bool {
	fmt.Print(prompt)
	if !scanner.Scan() {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return def
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// confirmClosedPrompt builds the callback invoked when a closed ticket is
// about to be processed with posting enabled. Proceeding means the summary
// goes to the console only; the note cannot be added.
func confirmClosedPrompt(scanner *bufio.Scanner, f *output.Formatter, assumeYes bool) pipeline.ConfirmClosedFunc {
	return func(t *pipeline.Ticket) bool {
		if assumeYes {
			f.Warning(fmt.Sprintf("Ticket %s is closed; summary will be shown instead of posted", t.ID))
			return true
		}
		fmt.Printf("Ticket %s is closed and cannot receive notes. Summarize anyway? [y/N]: ", t.ID)
		if !scanner.Scan() {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		return answer == "y" || answer == "yes"
	}
}
