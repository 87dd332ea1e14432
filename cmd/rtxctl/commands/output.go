package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rtxops/rtxctl/pkg/engine"
)

// textFunc renders one device result for the text output format.
type textFunc func(w io.Writer, value interface{})

// printValue writes v in the selected output format.
func printValue(w io.Writer, v interface{}, text func(io.Writer)) error {
	switch outputFormat {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	case "text", "":
		text(w)
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (must be text, json or yaml)", outputFormat)
	}
}

// printResults writes fleet results to stdout. In text form each device
// gets a header followed by render's output, or its error.
func printResults(results []engine.FleetResult, render textFunc) error {
	return printValue(os.Stdout, results, func(w io.Writer) {
		for _, r := range results {
			status := okStyle.Render("ok")
			if r.Err != nil {
				status = failedStyle.Render("failed")
			}
			fmt.Fprintf(w, "%s %s %s\n", hostStyle.Render("== "+r.Host), status,
				mutedStyle.Render(r.Duration.Round(time.Millisecond).String()))
			if r.Value != nil {
				render(w, r.Value)
			}
			if r.Err != nil {
				fmt.Fprintln(w, failedStyle.Render("error: ")+r.Err.Error())
			}
			fmt.Fprintln(w)
		}
	})
}

func printLines(w io.Writer, prefix string, lines []string) {
	for _, l := range lines {
		fmt.Fprintf(w, "%s%s\n", prefix, l)
	}
}

func printWarnings(w io.Writer, warnings []string) {
	printLines(w, warningStyle.Render("warning: "), warnings)
}

// printDiff writes a configuration diff; Unified is already formatted.
func printDiff(w io.Writer, d *engine.ConfigDiff) {
	if d == nil {
		return
	}
	if !d.Changed {
		fmt.Fprintln(w, "no differences")
		return
	}
	for _, line := range strings.Split(strings.TrimSuffix(d.Unified, "\n"), "\n") {
		fmt.Fprintln(w, styleDiffLine(line))
	}
}
