// Package card draws a small PNG forecast card for the next three days.
package card

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/lox/clearyfi/internal/forecast"
)

const (
	Width  = 640
	Height = 260

	maxDays    = 3
	margin     = 20
	gap        = 16
	panelTop   = 64
	lineHeight = 22
)

var ErrNoDays = errors.New("card: no forecast days")

var face = basicfont.Face7x13

// Render draws the card for city from the first three days. The background
// follows the first day's condition.
func Render(city string, days []forecast.Day) ([]byte, error) {
	if len(days) == 0 {
		return nil, ErrNoDays
	}
	if len(days) > maxDays {
		days = days[:maxDays]
	}

	pal := PaletteFor(forecast.ClassifyDay(days[0]))
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(rgba(pal.Background)), image.Point{}, draw.Src)

	drawText(img, Transliterate(city), margin, 32, rgba(pal.Text))
	drawText(img, "3-day car care outlook", margin, 50, rgba(pal.TextMuted))

	panelW := (Width - 2*margin - (maxDays-1)*gap) / maxDays
	for i, d := range days {
		x := margin + i*(panelW+gap)
		drawPanel(img, image.Rect(x, panelTop, x+panelW, Height-margin), d, pal)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode card: %w", err)
	}
	return buf.Bytes(), nil
}

func drawPanel(img *image.RGBA, r image.Rectangle, d forecast.Day, pal Palette) {
	draw.Draw(img, r, image.NewUniform(rgba(pal.CardBorder)), image.Point{}, draw.Src)
	draw.Draw(img, r.Inset(2), image.NewUniform(rgba(pal.Card)), image.Point{}, draw.Src)

	x := r.Min.X + 12
	y := r.Min.Y + 24
	text, muted, accent, warn := rgba(pal.Text), rgba(pal.TextMuted), rgba(pal.Accent), rgba(pal.AccentAlt)

	drawText(img, d.Date, x, y, text)
	y += lineHeight
	drawText(img, strings.ReplaceAll(string(forecast.ClassifyDay(d)), "_", " "), x, y, muted)
	y += lineHeight + 6
	drawText(img, fmt.Sprintf("%.1f C  (%.0f..%.0f)", d.TempAvg, d.TempMin, d.TempMax), x, y, text)
	y += lineHeight
	drawText(img, fmt.Sprintf("humidity %.0f%%", d.Humidity), x, y, muted)
	y += lineHeight
	drawText(img, "wash: "+forecast.ClassifyWash(d).String(), x, y, accent)
	if d.Mud {
		y += lineHeight
		drawText(img, "MUD RISK", x, y, warn)
	}
}

func drawText(img *image.RGBA, s string, x, y int, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(s)
}

var cyrillic = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e", 'ж': "zh",
	'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n", 'о': "o",
	'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "kh", 'ц': "ts",
	'ч': "ch", 'ш': "sh", 'щ': "shch", 'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu",
	'я': "ya",
}

// Transliterate maps Cyrillic to Latin and replaces anything else outside
// printable ASCII with '?', since the bitmap face only has ASCII glyphs.
func Transliterate(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 0x20 && r < 0x7f:
			b.WriteRune(r)
		default:
			lower := []rune(strings.ToLower(string(r)))[0]
			lat, ok := cyrillic[lower]
			if !ok {
				b.WriteByte('?')
				continue
			}
			if lower != r && lat != "" {
				lat = strings.ToUpper(lat[:1]) + lat[1:]
			}
			b.WriteString(lat)
		}
	}
	return b.String()
}
