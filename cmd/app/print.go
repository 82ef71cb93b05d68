package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/magebay99/multiexporter-hack/internal/exportservice"
	"github.com/magebay99/multiexporter-hack/internal/history"
	"github.com/magebay99/multiexporter-hack/internal/prefs"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
	headColor = color.New(color.FgCyan, color.Bold)
)

func printPlan(w io.Writer, v exportservice.PlanView) {
	headColor.Fprintf(w, "%s (%s)\n", v.Scene, v.Format)
	if !v.Valid() {
		warnColor.Fprintln(w, v.Summary)
		return
	}
	fmt.Fprintln(w, v.Summary)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, j := range v.Jobs {
		if j.IsWhole() {
			fmt.Fprintf(tw, "  artboard %d\t(whole)\n", j.Artboard)
			continue
		}
		fmt.Fprintf(tw, "  artboard %d\tlayer %d\n", j.Artboard, j.Layer)
	}
	tw.Flush()
}

func printReport(w io.Writer, r *exportservice.ExportReport) {
	res := r.Result
	for _, t := range r.Targets {
		fmt.Fprintf(w, "  would write %s\n", t.Path)
	}
	for _, e := range res.Succeeded {
		okColor.Fprintf(w, "  ✓ %s", e.Label)
		fmt.Fprintf(w, "  %s\n", e.Path)
	}
	for _, s := range res.Skipped {
		warnColor.Fprintf(w, "  - %s (%s)\n", s.Label, s.Reason)
	}
	for _, f := range res.Failed {
		errColor.Fprintf(w, "  ✗ %s: %v\n", f.Label, f.Err)
	}

	summary := fmt.Sprintf("%d of %d exported in %d attempt(s)", res.Exported, res.Total, res.Attempts)
	switch {
	case res.Cancelled:
		warnColor.Fprintf(w, "%s, cancelled\n", summary)
	case !res.OK():
		errColor.Fprintf(w, "%s, %d failed\n", summary, len(res.Failed))
	default:
		okColor.Fprintln(w, summary)
	}
}

func printPrefs(w io.Writer, cfg prefs.Config) error {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	_, err = w.Write(out)
	return err
}

func printFormats(w io.Writer, formats []exportservice.FormatInfo) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tEXT\tISOLATION\tCONTROLS")
	for _, f := range formats {
		fmt.Fprintf(tw, "%s\t.%s\t%t\t%v\n", f.Name, f.Extension, f.Isolation, f.Controls)
	}
	tw.Flush()
}

func printRuns(w io.Writer, runs []history.Run, total int) {
	if len(runs) == 0 {
		warnColor.Fprintln(w, "no runs recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tFORMAT\tEXPORTED\tFAILED\tSKIPPED\tATTEMPTS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%d\t%d\t%d\n",
			r.ID, r.Started.Local().Format(time.DateTime), r.Format,
			r.Exported, r.Total, r.Failed, r.Skipped, r.Attempts)
	}
	tw.Flush()
	if total > len(runs) {
		fmt.Fprintf(w, "%d of %d runs\n", len(runs), total)
	}
}

func printOutcomes(w io.Writer, outcomes []history.Outcome) {
	if len(outcomes) == 0 {
		warnColor.Fprintln(w, "no matches")
		return
	}
	for _, o := range outcomes {
		c := okColor
		switch o.Status {
		case history.StatusFailed:
			c = errColor
		case history.StatusSkipped:
			c = warnColor
		}
		c.Fprintf(w, "%-8s", o.Status)
		fmt.Fprintf(w, " %s  %s", o.Label, o.Path)
		if o.Detail != "" {
			fmt.Fprintf(w, "  (%s)", o.Detail)
		}
		fmt.Fprintf(w, "  run %s\n", o.RunID)
	}
}

func printDrift(w io.Writer, drift []history.Drift) {
	if len(drift) == 0 {
		okColor.Fprintln(w, "all exported files match the history")
		return
	}
	for _, d := range drift {
		errColor.Fprintf(w, "%-8s", d.Kind)
		fmt.Fprintf(w, " %s  (run %s)\n", d.Outcome.Path, d.Outcome.RunID)
	}
}
