package encoder

import (
	"bytes"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"
	"strconv"
	"strings"

	"github.com/magebay99/multiexporter-hack/internal/format"
)

var defaultFill = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}

func renderRaster(s scene, kind format.Kind, opts format.Options) ([]byte, error) {
	scale := opts.HorizontalScale / 100
	if scale <= 0 {
		scale = 1
	}
	w := max(1, int(math.Ceil(s.frame.Width()*scale)))
	h := max(1, int(math.Ceil(s.frame.Height()*scale)))
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	transparent := opts.Transparency && kind != format.JPG
	if !transparent {
		draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	}
	for _, l := range s.layers {
		for _, b := range l.boxes {
			r := image.Rect(
				int(math.Floor((b.rect.Left-s.frame.Left)*scale)),
				int(math.Floor((s.frame.Top-b.rect.Top)*scale)),
				int(math.Ceil((b.rect.Right-s.frame.Left)*scale)),
				int(math.Ceil((s.frame.Top-b.rect.Bottom)*scale)),
			).Intersect(img.Bounds())
			if r.Empty() {
				continue
			}
			draw.Draw(img, r, image.NewUniform(parseColor(b.fill)), image.Point{}, draw.Over)
		}
	}

	var buf bytes.Buffer
	var err error
	switch kind {
	case format.JPG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case format.PNG8:
		pal := append(color.Palette{color.Transparent}, palette.WebSafe...)
		p := image.NewPaletted(img.Bounds(), pal)
		draw.Draw(p, p.Bounds(), img, image.Point{}, draw.Src)
		err = png.Encode(&buf, p)
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// parseColor reads "#rgb" or "#rrggbb". Anything else is mid grey.
func parseColor(s string) color.RGBA {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return defaultFill
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return defaultFill
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
