package exporter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magebay99/multiexporter-hack/internal/apperr"
	"github.com/magebay99/multiexporter-hack/internal/document"
	"github.com/magebay99/multiexporter-hack/internal/format"
	"github.com/magebay99/multiexporter-hack/internal/geom"
	"github.com/magebay99/multiexporter-hack/internal/planner"
	"github.com/magebay99/multiexporter-hack/internal/prefs"
	"github.com/magebay99/multiexporter-hack/internal/synth"
)

// pass is the state of one walk over a plan's jobs.
type pass struct {
	o       *Orchestrator
	log     *slog.Logger
	doc     document.Document
	cfg     prefs.Config
	plan    planner.Plan
	profile format.Profile
	opts    format.Options
	isolate bool

	artboards []document.Artboard
	layers    []document.Layer
	shown     []bool

	// Per artboard.
	current int
	hidden  bool
	shared  *synth.Synthesis

	failures []Failure

	// saving is set while the encoder runs, so a recovered panic is filed
	// as an encode failure rather than a synthesis one.
	saving bool
}

// endArtboard releases what the previous artboard's jobs set up.
func (p *pass) endArtboard() {
	if p.shared != nil {
		if err := p.shared.Close(); err != nil {
			p.log.Warn("export: close canvas", slog.String("error", err.Error()))
		}
		p.shared = nil
	}
	if p.hidden {
		p.restoreVisibility()
	}
}

func (p *pass) restoreVisibility() {
	for i, l := range p.layers {
		if i < len(p.shown) && l.Visible() != p.shown[i] {
			l.SetVisible(p.shown[i])
		}
	}
	p.hidden = false
}

// hideAll hides every top-level layer except the additional ones.
func (p *pass) hideAll() {
	for _, l := range p.layers {
		l.SetVisible(document.IsAdditional(l))
	}
	p.hidden = true
}

func (p *pass) run(ctx context.Context, job planner.Job) (label, path string, skip SkipReason, err error) {
	artboard := p.artboards[job.Artboard]
	if !job.IsWhole() && (job.Layer < 0 || job.Layer >= len(p.layers)) {
		// the legacy "selected" entry may name no layer
		return fmt.Sprintf("%s-layer%d", artboard.Name, job.Layer), "", SkipNoLayer, nil
	}
	if job.IsWhole() {
		label = artboard.Name
	} else if p.plan.QualifiedNames() {
		label = artboard.Name + "-" + p.layers[job.Layer].Name()
	} else {
		label = p.layers[job.Layer].Name()
	}

	defer func() {
		if r := recover(); r != nil {
			if p.saving {
				err = apperr.Encode(label, recovered(r))
			} else {
				err = apperr.Synthesis(label, recovered(r))
			}
			p.saving = false
		}
	}()

	if job.IsWhole() {
		path, err = p.runWhole(ctx, artboard, label)
		return label, path, "", err
	}
	path, skip, err = p.runLayer(ctx, artboard, job.Layer, label)
	return label, path, skip, err
}

func (p *pass) save(ctx context.Context, doc document.Document, artboard int, label string) (string, error) {
	p.saving = true
	path, err := p.profile.Save(ctx, p.o.enc, doc, basePath(p.cfg, label), p.opts, artboard, label)
	p.saving = false
	if err != nil {
		return "", apperr.Encode(label, err)
	}
	return path, nil
}

func (p *pass) first() geom.Rect { return p.artboards[0].Rect }

func (p *pass) runWhole(ctx context.Context, artboard document.Artboard, label string) (string, error) {
	if !p.isolate {
		return p.save(ctx, p.doc, artboard.Index, label)
	}
	rect := artboard.Rect
	syn, err := p.o.synth.Build(p.doc, synth.Frame{
		Artboard: rect,
		Canvas:   synth.CanvasFrame(p.first(), rect.Width(), rect.Height()),
		Offset:   synth.BaseOffset(p.first(), rect),
	}, document.Included(p.o.reserved))
	if err != nil {
		return "", apperr.Synthesis(label, err)
	}
	defer p.closeCanvas(syn)
	return p.save(ctx, syn.Canvas, 0, label)
}

func (p *pass) runLayer(ctx context.Context, artboard document.Artboard, index int, label string) (string, SkipReason, error) {
	layer := p.layers[index]
	bounds, ok := document.Bounds(layer)
	if !ok {
		return "", SkipNoBounds, nil
	}
	if !bounds.Valid() {
		return "", SkipDegenerate, nil
	}
	rect := artboard.Rect
	visible := geom.Intersects(rect, bounds)

	if !p.isolate {
		if !p.hidden {
			p.hideAll()
		}
		layer.SetVisible(true)
		defer layer.SetVisible(false)
		path, err := p.save(ctx, p.doc, artboard.Index, label)
		return path, "", err
	}

	if p.cfg.TrimEdges {
		crop := geom.Clamp(bounds, rect)
		if !visible || !crop.Valid() {
			return "", SkipNothingVisible, nil
		}
		off := synth.BaseOffset(p.first(), rect).Add(rect.Left-crop.Left, rect.Top-crop.Top)
		syn, err := p.o.synth.Build(p.doc, synth.Frame{
			Artboard: rect,
			Canvas:   synth.CanvasFrame(p.first(), crop.Width(), crop.Height()),
			Offset:   off,
		}, document.IsAdditional)
		if err != nil {
			return "", "", apperr.Synthesis(label, err)
		}
		defer p.closeCanvas(syn)
		if _, err := p.o.synth.Isolate(syn, layer, syn.Depth[index]); err != nil {
			return "", "", apperr.Synthesis(label, err)
		}
		path, err := p.save(ctx, syn.Canvas, 0, label)
		return path, "", err
	}

	if p.shared == nil {
		w, h := p.doc.Size()
		syn, err := p.o.synth.Build(p.doc, synth.Frame{
			Artboard: rect,
			Canvas:   synth.CanvasFrame(p.first(), w, h),
			Offset:   synth.BaseOffset(p.first(), rect),
		}, document.IsAdditional)
		if err != nil {
			return "", "", apperr.Synthesis(label, err)
		}
		p.shared = syn
	}
	if visible {
		copied, err := p.o.synth.Isolate(p.shared, layer, p.shared.Depth[index])
		if err != nil {
			return "", "", apperr.Synthesis(label, err)
		}
		defer func() {
			if err := p.shared.Canvas.RemoveLayer(copied); err != nil {
				p.log.Warn("export: remove isolated layer", slog.String("layer", label), slog.String("error", err.Error()))
			}
		}()
	}
	path, err := p.save(ctx, p.shared.Canvas, 0, label)
	return path, "", err
}

func (p *pass) closeCanvas(syn *synth.Synthesis) {
	if err := syn.Close(); err != nil {
		p.log.Warn("export: close canvas", slog.String("error", err.Error()))
	}
}
