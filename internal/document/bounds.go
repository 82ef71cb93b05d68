package document

import "github.com/magebay99/multiexporter-hack/internal/geom"

// Bounds returns the union of every non-guide item and every child layer
// beneath l. ok is false for empty or guide-only layers.
func Bounds(l Layer) (geom.Rect, bool) {
	return subtreeBounds(l, false)
}

// VisibleBounds is Bounds restricted to visible child layers, which is the
// content a layer copy carries over.
func VisibleBounds(l Layer) (geom.Rect, bool) {
	return subtreeBounds(l, true)
}

func subtreeBounds(l Layer, visibleOnly bool) (geom.Rect, bool) {
	var rects []geom.Rect
	for _, it := range l.Items() {
		if it.Guide() {
			continue
		}
		if r, ok := it.VisibleBounds(); ok {
			rects = append(rects, r)
		}
	}
	for _, child := range l.Layers() {
		if visibleOnly && !child.Visible() {
			continue
		}
		if r, ok := subtreeBounds(child, visibleOnly); ok {
			rects = append(rects, r)
		}
	}
	return geom.UnionAll(rects...)
}
