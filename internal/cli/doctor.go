package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/robbybarnes/zendesk-voice-summary/internal/output"
)

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := output.NewFormatter(os.Stdout)
			ok := true

			if deps.Config.ZendeskEmail != "" && deps.Config.ZendeskPassword != "" {
				f.SetupCheck("Zendesk credentials", true, "configured for "+deps.Config.ZendeskDomain)
			} else {
				f.SetupCheck("Zendesk credentials", false, "not set. Set ZENDESK_EMAIL and ZENDESK_PASSWORD or add to config")
				ok = false
			}

			if deps.Config.OpenAIAPIKey != "" {
				f.SetupCheck("OpenAI API key", true, "configured")
			} else {
				f.SetupCheck("OpenAI API key", false, "not set. Set OPENAI_API_KEY or add to config")
				ok = false
			}

			if _, err := time.LoadLocation(deps.Config.Timezone); err == nil {
				f.SetupCheck("Timezone", true, deps.Config.Timezone)
			} else {
				f.SetupCheck("Timezone", false, deps.Config.Timezone+" is not a known zone; UTC will be used")
			}

			if dirWritable(deps.Config.ArtifactsDir) {
				f.SetupCheck("Artifacts directory", true, deps.Config.ArtifactsDir)
			} else {
				f.SetupCheck("Artifacts directory", false, deps.Config.ArtifactsDir+" is not writable")
				ok = false
			}

			if ok {
				f.Success("\nAll prerequisites met.")
			} else {
				f.Warning("\nSome prerequisites are missing.")
			}
			return nil
		},
	}
}

func dirWritable(dir string) bool {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return false
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return true
}
