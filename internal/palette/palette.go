// Package palette provides the header menu: color swatches laid out as
// horizontal bands across the top of the frame, and the header images shown
// for each selection.
package palette

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gocv.io/x/gocv"
)

// Layout constants. Band positions are expressed for ReferenceWidth and
// scaled to the actual frame width.
const (
	ReferenceWidth = 1280
	HeaderHeight   = 125
)

// ErrNotEnoughHeaders is returned when a header directory holds fewer images
// than there are color swatches.
var ErrNotEnoughHeaders = errors.New("not enough header images")

// Swatch is one selectable band of the header menu.
type Swatch struct {
	Name  string
	Min   int // exclusive left edge
	Max   int // exclusive right edge
	Color color.RGBA
	Clear bool // selecting clears the canvas instead of changing color
}

// Contains reports whether x lies strictly inside the band.
func (s Swatch) Contains(x int) bool {
	return s.Min < x && x < s.Max
}

// DefaultSwatches is the stock menu: red, blue, green, an eraser that paints
// black (no ink), and a clear action.
var DefaultSwatches = []Swatch{
	{Name: "red", Min: 170, Max: 295, Color: color.RGBA{R: 255, A: 255}},
	{Name: "blue", Min: 436, Max: 561, Color: color.RGBA{B: 255, A: 255}},
	{Name: "green", Min: 700, Max: 825, Color: color.RGBA{G: 255, A: 255}},
	{Name: "eraser", Min: 980, Max: 1105, Color: color.RGBA{A: 255}},
	{Name: "clear", Min: 1150, Max: 1275, Clear: true},
}

// Palette is the loaded header menu. Header images are read-only after New.
type Palette struct {
	swatches []Swatch
	headers  []gocv.Mat
	width    int
	height   int
}

// New builds a palette for frames of the given width. Swatch bands are
// scaled from ReferenceWidth. When headerDir holds PNG files they are used as
// header images (sorted by name, one per color swatch); otherwise headers
// are rendered.
func New(width int, swatches []Swatch, headerDir string) (*Palette, error) {
	if width <= 0 {
		return nil, fmt.Errorf("invalid palette width %d", width)
	}
	if len(swatches) == 0 {
		swatches = DefaultSwatches
	}

	p := &Palette{
		swatches: scale(swatches, width),
		width:    width,
		height:   HeaderHeight,
	}

	var err error
	if files := headerFiles(headerDir); len(files) > 0 {
		p.headers, err = p.loadHeaders(files)
	} else {
		p.headers, err = p.renderHeaders()
	}
	if err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

func scale(swatches []Swatch, width int) []Swatch {
	out := make([]Swatch, len(swatches))
	for i, s := range swatches {
		s.Min = s.Min * width / ReferenceWidth
		s.Max = s.Max * width / ReferenceWidth
		out[i] = s
	}
	return out
}

// Height returns the height of the menu strip in pixels.
func (p *Palette) Height() int {
	return p.height
}

// Len returns the number of swatches.
func (p *Palette) Len() int {
	return len(p.swatches)
}

// Swatch returns the i-th swatch.
func (p *Palette) Swatch(i int) Swatch {
	return p.swatches[i]
}

// Index finds a swatch by name.
func (p *Palette) Index(name string) (int, bool) {
	return indexOf(p.swatches, name)
}

// DefaultIndex finds a drawable color among DefaultSwatches.
func DefaultIndex(name string) (int, bool) {
	i, ok := indexOf(DefaultSwatches, name)
	if !ok || DefaultSwatches[i].Clear {
		return 0, false
	}
	return i, true
}

func indexOf(swatches []Swatch, name string) (int, bool) {
	for i, s := range swatches {
		if strings.EqualFold(s.Name, name) {
			return i, true
		}
	}
	return 0, false
}

// Hit returns the swatch under pt. Points outside the menu strip or between
// bands miss.
func (p *Palette) Hit(pt image.Point) (int, bool) {
	if pt.Y >= p.height {
		return 0, false
	}
	for i, s := range p.swatches {
		if s.Contains(pt.X) {
			return i, true
		}
	}
	return 0, false
}

// Header returns the header image for swatch i. The Mat is owned by the
// palette and must not be modified or closed.
func (p *Palette) Header(i int) gocv.Mat {
	if i < 0 || i >= len(p.headers) {
		return p.headers[0]
	}
	return p.headers[i]
}

// Close releases the header images.
func (p *Palette) Close() {
	for i := range p.headers {
		p.headers[i].Close()
	}
	p.headers = nil
}

// headerFiles lists PNG files in dir sorted by name.
func headerFiles(dir string) []string {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files
}

// loadHeaders reads one image per color swatch, in order. Clear swatches
// reuse the first header since selecting them never changes the display.
func (p *Palette) loadHeaders(files []string) ([]gocv.Mat, error) {
	var loaded []gocv.Mat
	for _, s := range p.swatches {
		if s.Clear {
			continue
		}
		if len(loaded) >= len(files) {
			closeAll(loaded)
			return nil, fmt.Errorf("%w: have %d, need one per color swatch", ErrNotEnoughHeaders, len(files))
		}

		path := files[len(loaded)]
		img := gocv.IMRead(path, gocv.IMReadColor)
		if img.Empty() {
			img.Close()
			closeAll(loaded)
			return nil, fmt.Errorf("read header %s: empty image", path)
		}

		if img.Cols() != p.width || img.Rows() != p.height {
			resized := gocv.NewMat()
			gocv.Resize(img, &resized, image.Pt(p.width, p.height), 0, 0, gocv.InterpolationLinear)
			img.Close()
			img = resized
		}
		loaded = append(loaded, img)
	}

	headers := make([]gocv.Mat, len(p.swatches))
	next := 0
	for i, s := range p.swatches {
		switch {
		case !s.Clear:
			headers[i] = loaded[next]
			next++
		case len(loaded) > 0:
			headers[i] = loaded[0].Clone()
		default:
			headers[i] = gocv.NewMat()
		}
	}

	return headers, nil
}

func closeAll(mats []gocv.Mat) {
	for i := range mats {
		mats[i].Close()
	}
}
