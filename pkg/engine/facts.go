package engine

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rtxops/rtxctl/pkg/console"
	"github.com/rtxops/rtxctl/pkg/transports"
)

// OpFacts names the facts operation.
const OpFacts = "facts"

// EnvironmentCommand reports hardware, firmware and load information.
const EnvironmentCommand = "show environment"

// DeviceFacts is what the device reports about itself.
type DeviceFacts struct {
	Model         string    `json:"model" yaml:"model"`
	Revision      string    `json:"revision" yaml:"revision"`
	Serial        string    `json:"serial,omitempty" yaml:"serial,omitempty"`
	MACAddresses  []string  `json:"mac_addresses,omitempty" yaml:"mac_addresses,omitempty"`
	CPUPercent    int       `json:"cpu_percent" yaml:"cpu_percent"`
	MemoryPercent int       `json:"memory_percent" yaml:"memory_percent"`
	BootTime      string    `json:"boot_time,omitempty" yaml:"boot_time,omitempty"`
	Uptime        string    `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	CollectedAt   time.Time `json:"collected_at" yaml:"collected_at"`
}

var (
	revisionRe = regexp.MustCompile(`(?m)^(\S+) Rev\.(\S+)`)
	serialRe   = regexp.MustCompile(`serial=(\S+)`)
	macRe      = regexp.MustCompile(`MAC-Address=([0-9A-Fa-f:]+)`)
	cpuRe      = regexp.MustCompile(`CPU:\s*(\d+)%\(5sec\)`)
	memoryRe   = regexp.MustCompile(`Memory:\s*(\d+)% used`)
	bootRe     = regexp.MustCompile(`(?m)^Boot time:\s*(.+?)\s*$`)
	uptimeRe   = regexp.MustCompile(`(?m)^(?:Elapsed time from boot|Uptime):\s*(.+?)\s*$`)
)

// Facts collects device facts from "show environment".
func (e *Engine) Facts(ctx context.Context) (*DeviceFacts, error) {
	ctx, op := e.begin(ctx, OpFacts, []string{EnvironmentCommand})

	var out []string
	err := e.withConsole(ctx, func(*console.Guard) error {
		var err error
		out, err = e.transport.RunCommands(ctx, transports.Commands(EnvironmentCommand))
		return err
	})
	if err != nil {
		return nil, op.end(e.classify(err, "failed to collect facts"))
	}

	var text string
	if len(out) > 0 {
		text = out[0]
	}
	facts := ParseEnvironment(text)
	facts.CollectedAt = e.now().UTC()

	e.log(ctx).Info().
		Str("model", facts.Model).
		Str("revision", facts.Revision).
		Msg("Facts collected")

	return facts, op.end(nil)
}

// ParseEnvironment extracts facts from "show environment" output. Missing
// fields are left empty.
func ParseEnvironment(text string) *DeviceFacts {
	facts := &DeviceFacts{}

	if m := revisionRe.FindStringSubmatch(text); m != nil {
		facts.Model = m[1]
		facts.Revision = m[2]
	}
	if m := serialRe.FindStringSubmatch(text); m != nil {
		facts.Serial = m[1]
	}
	for _, m := range macRe.FindAllStringSubmatch(text, -1) {
		facts.MACAddresses = append(facts.MACAddresses, strings.ToLower(m[1]))
	}
	if m := cpuRe.FindStringSubmatch(text); m != nil {
		facts.CPUPercent, _ = strconv.Atoi(m[1])
	}
	if m := memoryRe.FindStringSubmatch(text); m != nil {
		facts.MemoryPercent, _ = strconv.Atoi(m[1])
	}
	if m := bootRe.FindStringSubmatch(text); m != nil {
		facts.BootTime = m[1]
	}
	if m := uptimeRe.FindStringSubmatch(text); m != nil {
		facts.Uptime = m[1]
	}

	return facts
}
