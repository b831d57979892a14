package palette

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	background = color.RGBA{R: 32, G: 32, B: 32, A: 255}
	highlight  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	clearFill  = color.RGBA{R: 120, G: 120, B: 120, A: 255}
)

// swatchMargin is the vertical inset of each swatch inside the strip.
const swatchMargin = 15

// renderHeaders draws one header per swatch with that swatch outlined.
func (p *Palette) renderHeaders() ([]gocv.Mat, error) {
	headers := make([]gocv.Mat, 0, len(p.swatches))
	for i := range p.swatches {
		img := p.renderStrip(i)
		mat, err := gocv.ImageToMatRGB(img)
		if err != nil {
			closeAll(headers)
			return nil, fmt.Errorf("convert header %d: %w", i, err)
		}
		headers = append(headers, mat)
	}
	return headers, nil
}

// renderStrip draws the menu strip as an RGBA image.
func (p *Palette) renderStrip(active int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	for i, s := range p.swatches {
		box := image.Rect(s.Min, swatchMargin, s.Max, p.height-swatchMargin)

		if i == active && !s.Clear {
			draw.Draw(img, box.Inset(-4), image.NewUniform(highlight), image.Point{}, draw.Src)
		}

		fill := s.Color
		if s.Clear {
			fill = clearFill
		}
		draw.Draw(img, box, image.NewUniform(fill), image.Point{}, draw.Src)

		label(img, box, strings.ToUpper(s.Name), textColor(fill))
	}

	return img
}

// label centers text inside box.
func label(img *image.RGBA, box image.Rectangle, text string, col color.Color) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
	}
	width := d.MeasureString(text).Ceil()
	x := box.Min.X + (box.Dx()-width)/2
	y := box.Min.Y + (box.Dy()+face.Ascent)/2
	d.Dot = fixed.P(x, y)
	d.DrawString(text)
}

// textColor picks black or white for legibility on fill.
func textColor(fill color.RGBA) color.Color {
	luma := 299*int(fill.R) + 587*int(fill.G) + 114*int(fill.B)
	if luma > 128*1000 {
		return color.Black
	}
	return color.White
}
