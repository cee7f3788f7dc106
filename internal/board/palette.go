package board

import (
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Amber matches the phosphor color of real BVG departure boards.
var (
	amber     = mustHex("#ffaa00")
	black     = color.RGBA{A: 0xff}
	dimAmber  = blend(amber, black, 0.55)
	ruleAmber = blend(amber, black, 0.35)
)

func mustHex(s string) color.RGBA {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// blend mixes two colors in Lab space, which keeps the amber hue
// perceptually stable as it darkens toward the background.
func blend(a, b color.RGBA, t float64) color.RGBA {
	ca, _ := colorful.MakeColor(a)
	cb, _ := colorful.MakeColor(b)
	r, g, bl := ca.BlendLab(cb, t).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: bl, A: 0xff}
}
