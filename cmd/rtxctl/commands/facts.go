package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rtxops/rtxctl/pkg/engine"
)

func newFactsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facts",
		Short: "Collect device facts",
		Long: `Collect facts about each device from "show environment":
model, firmware revision, serial number, MAC addresses, CPU and memory
usage, boot time and uptime.`,
		Example: `  # Facts for every device as JSON
  rtxctl facts -o json

  # Facts for one group
  rtxctl facts --group branch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Info().Strs("hosts", hosts).Strs("groups", groups).Msg("Collecting facts")

			return withApp(cmd.Context(), func(a *app) error {
				results, runErr := a.runFleet(cmd.Context(), func(ctx context.Context, e *engine.Engine) (interface{}, error) {
					facts, err := e.Facts(ctx)
					if facts == nil {
						return nil, err
					}
					return facts, err
				})
				if results == nil {
					return runErr
				}
				if err := printResults(results, renderFacts); err != nil {
					return err
				}
				return runErr
			})
		},
	}

	return cmd
}

func renderFacts(w io.Writer, value interface{}) {
	f, ok := value.(*engine.DeviceFacts)
	if !ok {
		return
	}
	fmt.Fprintf(w, "model:    %s\n", f.Model)
	fmt.Fprintf(w, "revision: %s\n", f.Revision)
	if f.Serial != "" {
		fmt.Fprintf(w, "serial:   %s\n", f.Serial)
	}
	if len(f.MACAddresses) > 0 {
		fmt.Fprintf(w, "mac:      %s\n", strings.Join(f.MACAddresses, ", "))
	}
	fmt.Fprintf(w, "cpu:      %d%%\n", f.CPUPercent)
	fmt.Fprintf(w, "memory:   %d%%\n", f.MemoryPercent)
	if f.Uptime != "" {
		fmt.Fprintf(w, "uptime:   %s\n", f.Uptime)
	}
}
