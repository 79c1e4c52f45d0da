package cli

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robbybarnes/zendesk-voice-summary/internal/output"
)

var (
	recordingArtifact = regexp.MustCompile(`^parent(\d+)_item(.+)\.(mp3|txt)$`)
	summaryArtifact   = regexp.MustCompile(`^parent(\d+)_combined_summary\.txt$`)
)

type artifactCounts struct {
	audio       int
	transcripts int
	hasSummary  bool
}

func NewListCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List processed tickets and their artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := output.NewFormatter(os.Stdout)

			entries, err := os.ReadDir(deps.Config.ArtifactsDir)
			if err != nil {
				if os.IsNotExist(err) {
					f.Info("No artifacts found")
					return nil
				}
				return err
			}

			byTicket := map[string]*artifactCounts{}
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				name := e.Name()
				if m := summaryArtifact.FindStringSubmatch(name); m != nil {
					counts(byTicket, m[1]).hasSummary = true
					continue
				}
				if m := recordingArtifact.FindStringSubmatch(name); m != nil {
					c := counts(byTicket, m[1])
					if strings.HasSuffix(name, ".mp3") {
						c.audio++
					} else {
						c.transcripts++
					}
				}
			}

			if len(byTicket) == 0 {
				f.Info("No artifacts found")
				return nil
			}

			ids := make([]string, 0, len(byTicket))
			for id := range byTicket {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			f.ArtifactListHeader(deps.Config.ArtifactsDir)
			for _, id := range ids {
				c := byTicket[id]
				f.ArtifactListItem(id, c.audio, c.transcripts, c.hasSummary)
			}
			return nil
		},
	}
}

func counts(m map[string]*artifactCounts, ticketID string) *artifactCounts {
	c, ok := m[ticketID]
	if !ok {
		c = &artifactCounts{}
		m[ticketID] = c
	}
	return c
}
