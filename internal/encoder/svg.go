package encoder

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
)

func renderSVG(s scene) ([]byte, error) {
	var buf bytes.Buffer
	w, h := s.frame.Width(), s.frame.Height()
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`+"\n",
		num(w), num(h), num(w), num(h))
	for _, l := range s.layers {
		buf.WriteString(`  <g id="`)
		if err := xml.EscapeText(&buf, []byte(l.name)); err != nil {
			return nil, err
		}
		buf.WriteString("\">\n")
		for _, b := range l.boxes {
			fill := b.fill
			if fill == "" {
				fill = "#808080"
			}
			fmt.Fprintf(&buf, `    <rect x="%s" y="%s" width="%s" height="%s" fill="`,
				num(b.rect.Left-s.frame.Left), num(s.frame.Top-b.rect.Top), num(b.rect.Width()), num(b.rect.Height()))
			if err := xml.EscapeText(&buf, []byte(fill)); err != nil {
				return nil, err
			}
			buf.WriteString("\"/>\n")
		}
		buf.WriteString("  </g>\n")
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes(), nil
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
