package render

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strconv"

	"ladder_go/internal/ladder"

	"github.com/disintegration/imaging"
)

// FrameWriter saves every snapshot as a PNG: one coloured cell per column,
// with size and volume cells drawn as bars scaled to the column maximum.
type FrameWriter struct {
	dir       string
	cellW     int
	rowH      int
	colors    [ladder.Columns]color.NRGBA
	barColors [ladder.Columns]color.NRGBA
}

// NewFrameWriter creates dir if needed. colors holds one RGB triple per column.
func NewFrameWriter(dir string, cellW, rowH int, colors [][]int) (*FrameWriter, error) {
	if len(colors) != ladder.Columns {
		return nil, fmt.Errorf("expected %d column colours, got %d", ladder.Columns, len(colors))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create frame directory: %w", err)
	}

	fw := &FrameWriter{dir: dir, cellW: cellW, rowH: rowH}
	for i, rgb := range colors {
		if len(rgb) != 3 {
			return nil, fmt.Errorf("column colour %d must have 3 components", i)
		}
		fw.colors[i] = color.NRGBA{R: uint8(rgb[0]), G: uint8(rgb[1]), B: uint8(rgb[2]), A: 255}
		fw.barColors[i] = shade(fw.colors[i])
	}
	return fw, nil
}

// Path returns where the frame for seq is written.
func (f *FrameWriter) Path(seq uint64) string {
	return filepath.Join(f.dir, fmt.Sprintf("frame_%06d.png", seq))
}

// Publish renders and saves one frame.
func (f *FrameWriter) Publish(snap ladder.Snapshot) error {
	img := f.Render(snap)
	if err := imaging.Save(img, f.Path(snap.Seq)); err != nil {
		return fmt.Errorf("failed to save frame: %w", err)
	}
	return nil
}

// Render draws the snapshot without saving it.
func (f *FrameWriter) Render(snap ladder.Snapshot) *image.NRGBA {
	rows := len(snap.Rows)
	img := imaging.New(f.cellW*ladder.Columns, max(rows, 1)*f.rowH, color.NRGBA{A: 255})

	var maxes [ladder.Columns]int64
	values := make([][ladder.Columns]int64, rows)
	for r, row := range snap.Rows {
		for c, cell := range row {
			if c == ladder.ColPrice || cell == "" {
				continue
			}
			v, err := strconv.ParseInt(cell, 10, 64)
			if err != nil || v <= 0 {
				continue
			}
			values[r][c] = v
			maxes[c] = max(maxes[c], v)
		}
	}

	for r := range snap.Rows {
		for c := 0; c < ladder.Columns; c++ {
			pos := image.Pt(c*f.cellW, r*f.rowH)
			img = imaging.Paste(img, imaging.New(f.cellW, f.rowH, f.colors[c]), pos)

			if v := values[r][c]; v > 0 {
				w := max(int(int64(f.cellW)*v/maxes[c]), 1)
				img = imaging.Paste(img, imaging.New(w, f.rowH, f.barColors[c]), pos)
			}
		}
	}
	return img
}

func shade(c color.NRGBA) color.NRGBA {
	return color.NRGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: 255}
}

func scale(v uint8) uint8 {
	return uint8(int(v) * 3 / 5)
}
