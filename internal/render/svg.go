package render

import (
	"fmt"
	"html"
	"strings"
)

// SVG draws the bars into a standalone SVG document of the viewport size.
func SVG(bars []Bar, vp Viewport) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		num(vp.Width), num(vp.Height), num(vp.Width), num(vp.Height))
	for _, bar := range bars {
		fmt.Fprintf(&b, `<rect x="%s" y="%s" width="%s" height="%s"/>`,
			num(bar.X), num(bar.Y), num(bar.Width), num(bar.Height))
		fmt.Fprintf(&b, `<text x="%s" y="%s" text-anchor="middle">%s</text>`,
			num(bar.LabelX), num(bar.LabelY), html.EscapeString(bar.Label))
	}
	b.WriteString(`</svg>`)
	return b.String()
}

func num(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
