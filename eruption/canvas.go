package eruption

import "fmt"

const (
	// CanvasSize is the number of cells in a canvas: 144 addressable cells
	// followed by 36 extension cells.
	CanvasSize = 144 + 36
	// BytesPerCell is the serialized width of one cell.
	BytesPerCell = 4
)

// Canvas is a full frame of cell colors. Its length is fixed at CanvasSize.
type Canvas struct {
	cells [CanvasSize]Color
}

// NewCanvas returns a canvas with every cell transparent black.
func NewCanvas() *Canvas {
	return &Canvas{}
}

// CanvasFromBytes rebuilds a canvas from its flat RGBA serialization.
func CanvasFromBytes(b []byte) (*Canvas, error) {
	if len(b) != CanvasSize*BytesPerCell {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrCanvasSize, len(b), CanvasSize*BytesPerCell)
	}

	c := &Canvas{}
	for i := range c.cells {
		o := i * BytesPerCell
		c.cells[i] = RGBA(b[o], b[o+1], b[o+2], b[o+3])
	}
	return c, nil
}

// Len returns the number of cells.
func (c *Canvas) Len() int {
	return len(c.cells)
}

// At returns the color of cell i. It panics if i is out of range.
func (c *Canvas) At(i int) Color {
	return c.cells[i]
}

// Set paints cell i. It panics if i is out of range.
func (c *Canvas) Set(i int, color Color) {
	c.cells[i] = color
}

// Fill paints every cell with color.
func (c *Canvas) Fill(color Color) {
	for i := range c.cells {
		c.cells[i] = color
	}
}

// Bytes serializes the canvas as R,G,B,A per cell in index order.
func (c *Canvas) Bytes() []byte {
	out := make([]byte, 0, CanvasSize*BytesPerCell)
	for _, cell := range c.cells {
		out = append(out, cell.R, cell.G, cell.B, cell.A)
	}
	return out
}
