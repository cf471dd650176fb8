package captions

import (
	"fmt"
	"math"
	"os"
	"strings"
)

// Style carries the ASS styling derived from the style profile.
type Style struct {
	FontName     string
	FontSize     int
	PrimaryColor string // ASS &HAABBGGRR form
	OutlineWidth int
	MarginV      int
	PlayResX     int
	PlayResY     int
}

// DefaultStyle matches the 1080x1920 vertical layout.
func DefaultStyle() Style {
	return Style{
		FontName:     "Noto Sans CJK KR",
		FontSize:     54,
		PrimaryColor: "&H00FFFFFF",
		OutlineWidth: 3,
		MarginV:      220,
		PlayResX:     1080,
		PlayResY:     1920,
	}
}

// WriteASS writes cues as an ASS file with separate body and intro
// styles. Body captions anchor bottom-center above the safe margin;
// intro titles sit mid-frame, larger and yellow.
func WriteASS(path string, cues []Cue, style Style) error {
	if style.PlayResX == 0 {
		style = DefaultStyle()
	}

	var b strings.Builder
	fmt.Fprintf(&b, `[Script Info]
ScriptType: v4.00+
PlayResX: %d
PlayResY: %d
WrapStyle: 0

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Body,%s,%d,%s,&H000000FF,&H00000000,&H80000000,-1,0,0,0,100,100,0,0,1,%d,1,2,40,40,%d,1
Style: Intro,%s,%d,&H0000FFFF,&H000000FF,&H00000000,&H80000000,-1,0,0,0,100,100,0,0,1,%d,2,5,40,40,0,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`,
		style.PlayResX, style.PlayResY,
		style.FontName, style.FontSize, style.PrimaryColor, style.OutlineWidth, style.MarginV,
		style.FontName, style.FontSize*13/10, style.OutlineWidth+1,
	)

	for _, c := range cues {
		styleName := "Body"
		if c.Layer == LayerIntro {
			styleName = "Intro"
		}
		text := strings.ReplaceAll(c.Text, "\n", "\\N")
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,%s,,0,0,0,,%s\n",
			assTime(c.Start), assTime(c.End), styleName, text)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write ass: %w", err)
	}
	return nil
}

// assTime formats seconds as H:MM:SS.CC (centisecond precision).
func assTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	cs := int(math.Round(sec * 100))
	h := cs / 360_000
	cs -= h * 360_000
	m := cs / 6000
	cs -= m * 6000
	s := cs / 100
	cs -= s * 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}
