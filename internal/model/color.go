package model

// Color is the closed set of category colors an event may carry.
type Color string

const (
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorPurple Color = "purple"
	ColorOrange Color = "orange"
	ColorGray   Color = "gray"
)

// StyleTokens are the concrete presentation values for a Color.
type StyleTokens struct {
	// Class is the CSS class used by the server-rendered calendar page.
	Class string
	// Hex is the fill color for the class.
	Hex string
	// ANSI is the 256-color terminal code used by the TUI.
	ANSI string
}

var colorStyles = map[Color]StyleTokens{
	ColorBlue:   {Class: "ev-blue", Hex: "#3b82f6", ANSI: "33"},
	ColorGreen:  {Class: "ev-green", Hex: "#22c55e", ANSI: "34"},
	ColorRed:    {Class: "ev-red", Hex: "#ef4444", ANSI: "196"},
	ColorYellow: {Class: "ev-yellow", Hex: "#eab308", ANSI: "220"},
	ColorPurple: {Class: "ev-purple", Hex: "#a855f7", ANSI: "135"},
	ColorOrange: {Class: "ev-orange", Hex: "#f97316", ANSI: "208"},
	ColorGray:   {Class: "ev-gray", Hex: "#6b7280", ANSI: "244"},
}

// Colors lists the palette in display order.
var Colors = []Color{ColorBlue, ColorGreen, ColorRed, ColorYellow, ColorPurple, ColorOrange, ColorGray}

func (c Color) Valid() bool {
	_, ok := colorStyles[c]
	return ok
}

// Style returns the tokens for c. Empty or unknown colors map to gray.
func (c Color) Style() StyleTokens {
	if s, ok := colorStyles[c]; ok {
		return s
	}
	return colorStyles[ColorGray]
}
