package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/modelhost"
	"scribe/internal/preflight"
)

type statusReport struct {
	Accelerator acceleratorReport  `json:"accelerator"`
	Checks      []preflight.Result `json:"checks"`
	Server      preflight.Result   `json:"server"`
	Models      []modelhost.Status `json:"models,omitempty"`
}

type acceleratorReport struct {
	Device   string `json:"device"`
	Detected bool   `json:"detected"`
	Name     string `json:"name,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show environment checks and server model status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := collectStatus(cmd, cfg)
			if asJSON {
				return writeJSON(cmd, report)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderStatus(report, shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func collectStatus(cmd *cobra.Command, cfg *config.Config) statusReport {
	probe := preflight.ProbeAccelerator(cfg.Compute.Device)
	report := statusReport{
		Accelerator: acceleratorReport{Device: probe.Device, Detected: probe.Detected, Name: probe.Name},
		Checks:      preflight.RunAll(cmd.Context(), cfg),
		Server:      preflight.CheckServerFromConfig(cmd.Context(), cfg),
	}
	if report.Server.Passed {
		models, err := fetchModels(cmd.Context(), cfg)
		if err != nil {
			report.Server.Detail = fmt.Sprintf("%s (models unavailable: %v)", report.Server.Detail, err)
		}
		report.Models = models
	}
	return report
}

func renderStatus(report statusReport, colorize bool) string {
	var lines []string

	lines = append(lines, renderSectionHeader("Environment", colorize)...)
	accel := preflight.AcceleratorProbe{Device: report.Accelerator.Device, Detected: report.Accelerator.Detected, Name: report.Accelerator.Name}
	accelKind := statusOK
	if !accel.Detected {
		accelKind = statusWarn
	}
	lines = append(lines, renderStatusLine("Compute device", accelKind, accel.Detail(), colorize))
	for _, check := range report.Checks {
		lines = append(lines, renderStatusLine(check.Name, statusFor(check.Passed), check.Detail, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Server", colorize)...)
	serverKind := statusOK
	if !report.Server.Passed {
		serverKind = statusWarn
	}
	lines = append(lines, renderStatusLine(report.Server.Name, serverKind, report.Server.Detail, colorize))

	out := strings.Join(lines, "\n") + "\n"
	if len(report.Models) > 0 {
		out += "\n" + renderModelsTable(report.Models) + "\n"
	}
	return out
}

func renderModelsTable(models []modelhost.Status) string {
	rows := make([][]string, 0, len(models))
	for _, m := range models {
		lastAccess := "-"
		if m.LastAccess != nil {
			lastAccess = m.LastAccess.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{
			m.Kind,
			m.Model,
			yesNo(m.Alive),
			yesNo(m.Processing),
			strconv.Itoa(m.InFlight),
			lastAccess,
			idleLabel(m.IdleTimeoutSeconds),
		})
	}
	return renderTable(
		[]string{"Kind", "Model", "Loaded", "Busy", "In flight", "Last access", "Idle timeout"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignCenter, alignCenter, alignRight, alignLeft, alignRight},
	)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func idleLabel(seconds int) string {
	if seconds <= 0 {
		return "never"
	}
	return (time.Duration(seconds) * time.Second).String()
}
