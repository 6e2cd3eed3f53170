package render

import (
	"bytes"
	"fmt"
	"html"
	"time"

	"github.com/plexgraph/plexgraph/lod"
	"github.com/plexgraph/plexgraph/models"
)

// SVGOptions configures the headless SVG export.
type SVGOptions struct {
	Background string
	FontSize   float64
	Timestamp  bool
}

// DefaultSVGOptions returns the export defaults.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{Background: "#f8f8f8", FontSize: 10}
}

// ExportSVG renders a visible set to a static SVG document using the same
// screen-space projection as the live pipeline. Used by the CLI's headless
// mode and the server's visualization endpoint.
func ExportSVG(vs lod.VisibleSet, vp models.Viewport, opts SVGOptions) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<svg width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f" xmlns="http://www.w3.org/2000/svg">
<rect width="100%%" height="100%%" fill="%s"/>
`, vp.Width, vp.Height, vp.Width, vp.Height, opts.Background)

	byID := make(map[string]*models.Node, len(vs.Nodes))
	for _, n := range vs.Nodes {
		byID[n.ID] = n
	}

	for _, e := range vs.Edges {
		src := byID[e.Source]
		dst := byID[e.Target]
		if src == nil || dst == nil {
			continue
		}
		x1, y1 := vp.ModelToScreen(src.X, src.Y)
		x2, y2 := vp.ModelToScreen(dst.X, dst.Y)
		color := e.Color
		if color == "" {
			color = "#666666"
		}
		fmt.Fprintf(&buf, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="%.2f" stroke-opacity="%.2f"/>
`, x1, y1, x2, y2, color, maxf(e.Width, 0.5), e.Opacity)
	}

	for _, n := range vs.Nodes {
		sx, sy := vp.ModelToScreen(n.X, n.Y)
		color := n.Color
		if color == "" {
			color = "#4285F4"
		}
		fmt.Fprintf(&buf, `<circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s" stroke="rgba(0,0,0,0.3)" stroke-width="0.5"/>
`, sx, sy, n.Radius*vp.Zoom, color)

		if vs.Tier.Labels() && n.Label != "" {
			fmt.Fprintf(&buf, `<text x="%.2f" y="%.2f" font-family="sans-serif" font-size="%.1f" fill="#333333" text-anchor="middle">%s</text>
`, sx, sy+n.Radius*vp.Zoom+opts.FontSize+2, opts.FontSize, html.EscapeString(n.Label))
		}
	}

	if opts.Timestamp {
		fmt.Fprintf(&buf, `<text x="5" y="%.0f" font-family="sans-serif" font-size="8" fill="#808080">%s</text>
`, vp.Height-5, time.Now().Format("2006-01-02 15:04:05"))
	}

	buf.WriteString(`</svg>`)
	return buf.Bytes()
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
