// Package planner turns the artboard and layer selectors into the ordered
// list of export jobs and the human-readable summary shown before a run.
package planner

import (
	"fmt"
	"slices"

	"github.com/magebay99/multiexporter-hack/internal/document"
	"github.com/magebay99/multiexporter-hack/internal/prefs"
)

// Whole marks a job that exports the combined artboard image.
const Whole = -1

// Job is one output file: an artboard and either a top-level layer or the
// whole artboard. The positions locate the job in the plan's selections.
type Job struct {
	Artboard    int `json:"artboard"`
	Layer       int `json:"layer"`
	ArtboardPos int `json:"artboard_pos"`
	LayerPos    int `json:"layer_pos"`
}

// IsWhole reports whether j exports the combined artboard image.
func (j Job) IsWhole() bool { return j.Layer == Whole }

func (j Job) key() [2]int { return [2]int{j.Artboard, j.Layer} }

// Plan is the result of one planning pass.
type Plan struct {
	Artboards     []int  `json:"artboards"`
	Layers        []int  `json:"layers"`
	WholeArtboard bool   `json:"whole_artboard"`
	Jobs          []Job  `json:"jobs"`
	Total         int    `json:"total"`
	Summary       string `json:"summary"`

	artboardNames []string
	layerCount    int
	qualified     bool
}

// QualifiedNames reports whether output files are named "artboard-layer".
// It is decided by the first plan and kept by Narrow, so a retried job
// writes the same file name as its first attempt.
func (p Plan) QualifiedNames() bool { return p.qualified }

// Valid reports whether the plan selects anything to export.
func (p Plan) Valid() bool {
	return len(p.Artboards) > 0 && (len(p.Layers) > 0 || p.WholeArtboard)
}

// Compute plans an export of doc with the selectors in cfg. reserved is the
// preferences layer, which is never enumerated.
func Compute(doc document.Document, cfg prefs.Config, reserved string) Plan {
	artboards := doc.Artboards()
	layers := doc.Layers()
	included := document.Included(reserved)

	p := Plan{layerCount: len(layers)}
	for _, a := range artboards {
		p.artboardNames = append(p.artboardNames, a.Name)
	}

	switch sel := cfg.Artboards; {
	case sel.Is(prefs.All):
		for i, a := range artboards {
			if slices.ContainsFunc(layers, func(l document.Layer) bool {
				return l.Name() == a.Name && included(l)
			}) {
				p.Artboards = append(p.Artboards, i)
			}
		}
	case sel.Is(prefs.Current):
		if active := doc.ActiveArtboard(); active >= 0 && active < len(artboards) {
			p.Artboards = append(p.Artboards, active)
		}
	case sel.IsIndex():
		if sel.Index >= 0 && sel.Index < len(artboards) {
			p.Artboards = append(p.Artboards, sel.Index)
		}
	}

	switch sel := cfg.Layers; {
	case sel.Is(prefs.All):
		for i, l := range layers {
			if included(l) && !document.IsAdditional(l) {
				p.Layers = append(p.Layers, i)
			}
		}
	case sel.Is(prefs.Selected):
		for i, l := range layers {
			if included(l) && !document.IsAdditional(l) && l.HasSelectedArtwork() {
				p.Layers = append(p.Layers, i)
			}
		}
		// Legacy: the active artboard index is always appended as a layer
		// index, even when it is already listed, names no layer, or names a
		// hidden or reserved layer. With the preferences layer at index 0 and
		// artboard 0 active this plans a job for the preferences layer that
		// the exporter then skips for having no bounds.
		p.Layers = append(p.Layers, doc.ActiveArtboard())
	case sel.Is(prefs.None):
		p.WholeArtboard = true
	case sel.IsIndex():
		if sel.Index >= 0 && sel.Index < len(layers) {
			p.Layers = append(p.Layers, sel.Index)
		}
	}

	for ai, a := range p.Artboards {
		if p.WholeArtboard {
			p.Jobs = append(p.Jobs, Job{Artboard: a, Layer: Whole, ArtboardPos: ai, LayerPos: Whole})
		}
		for li, l := range p.Layers {
			p.Jobs = append(p.Jobs, Job{Artboard: a, Layer: l, ArtboardPos: ai, LayerPos: li})
		}
	}
	p.Total = len(p.Jobs)
	p.Summary = p.summarize()
	p.qualified = len(p.Artboards) > 1
	return p
}

// Narrow returns a plan holding exactly the failed jobs, deduplicated by
// artboard and layer index in first-seen order.
func (p Plan) Narrow(failed []Job) Plan {
	n := Plan{artboardNames: p.artboardNames, layerCount: p.layerCount, qualified: p.qualified}
	seen := make(map[[2]int]bool, len(failed))
	for _, j := range failed {
		if seen[j.key()] {
			continue
		}
		seen[j.key()] = true

		ai := slices.Index(n.Artboards, j.Artboard)
		if ai < 0 {
			ai = len(n.Artboards)
			n.Artboards = append(n.Artboards, j.Artboard)
		}
		job := Job{Artboard: j.Artboard, Layer: j.Layer, ArtboardPos: ai, LayerPos: Whole}
		if j.IsWhole() {
			n.WholeArtboard = true
		} else {
			li := slices.Index(n.Layers, j.Layer)
			if li < 0 {
				li = len(n.Layers)
				n.Layers = append(n.Layers, j.Layer)
			}
			job.LayerPos = li
		}
		n.Jobs = append(n.Jobs, job)
	}
	n.Total = len(n.Jobs)
	n.Summary = n.summarize()
	return n
}

func (p Plan) summarize() string {
	a, l := len(p.Artboards), len(p.Layers)
	if a == 0 {
		return "Please select valid artboards / layers"
	}
	suffix := ""
	if p.WholeArtboard {
		if l == 0 {
			return fmt.Sprintf("Will export %d of %d artboards", a, len(p.artboardNames))
		}
		suffix = fmt.Sprintf(" (and %d artboard images)", a)
	}
	switch {
	case a > 1 && l > 1:
		return fmt.Sprintf("Will export %d files (%d layers × %d artboards)%s", p.Total, l, a, suffix)
	case l > 0 && a == 1:
		return fmt.Sprintf("Will export %d of %d layers on artboard \"%s\"%s", l, p.layerCount, p.artboardName(p.Artboards[0]), suffix)
	case l > 0:
		return fmt.Sprintf("Will export %d layers on %d artboards%s", l, a, suffix)
	}
	return "Please select valid artboards / layers"
}

func (p Plan) artboardName(i int) string {
	if i < 0 || i >= len(p.artboardNames) {
		return ""
	}
	return p.artboardNames[i]
}
