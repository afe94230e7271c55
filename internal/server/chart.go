package server

import (
	"fmt"
	"html"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/automateda/internal/score"
)

const (
	chartBarHeight = 22
	chartBarGap    = 6
	chartPlotWidth = 420
	chartCharWidth = 7
	chartTop       = 36
)

// barChart renders scores as a horizontal SVG bar chart titled
// "Feature Utility Score". Scores arrive sorted descending, so the first
// feature is drawn at the top and the lowest at the bottom.
func barChart(scores []score.FeatureScore) template.HTML {
	if len(scores) == 0 {
		return ""
	}
	labelChars, maxScore := 0, 0.0
	for _, s := range scores {
		labelChars = max(labelChars, utf8.RuneCountInString(s.Name))
		maxScore = max(maxScore, s.Score)
	}
	labelWidth := labelChars*chartCharWidth + 12
	width := labelWidth + chartPlotWidth + 60
	height := chartTop + len(scores)*(chartBarHeight+chartBarGap) + 10

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" class="chart" width="%d" height="%d" viewBox="0 0 %d %d" role="img" aria-label="Feature Utility Score">`, width, height, width, height)
	fmt.Fprintf(&b, `<text x="%d" y="20" text-anchor="middle" font-size="15">Feature Utility Score</text>`, width/2)
	fmt.Fprintf(&b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#444"/>`, labelWidth, chartTop-4, labelWidth, height-10)
	for i, s := range scores {
		y := chartTop + i*(chartBarHeight+chartBarGap)
		w := 0
		if maxScore > 0 {
			w = int(s.Score / maxScore * chartPlotWidth)
		}
		name := html.EscapeString(s.Name)
		fmt.Fprintf(&b, `<text x="%d" y="%d" text-anchor="end" font-size="12">%s</text>`, labelWidth-6, y+chartBarHeight/2+4, name)
		fmt.Fprintf(&b, `<rect x="%d" y="%d" width="%d" height="%d" fill="#1f77b4"><title>%s: %.4f</title></rect>`, labelWidth, y, w, chartBarHeight, name, s.Score)
		fmt.Fprintf(&b, `<text x="%d" y="%d" font-size="11">%.3f</text>`, labelWidth+w+4, y+chartBarHeight/2+4, s.Score)
	}
	b.WriteString(`</svg>`)
	return template.HTML(b.String())
}
