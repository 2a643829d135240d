// Package tiles provides the value types shared by all tile sources:
// tile coordinates, output formats, content encodings, and per-source
// descriptive metadata.
package tiles

import (
	"fmt"
	"strconv"
	"strings"
)

// Coord addresses a single tile: zoom level, column, row.
type Coord struct {
	Z uint8
	X uint32
	Y uint32
}

// String renders the coordinate in its comma form, "z,x,y".
func (c Coord) String() string {
	return fmt.Sprintf("%d,%d,%d", c.Z, c.X, c.Y)
}

// Path renders the coordinate in its slash form, "z/x/y", as used in
// URL paths and tile directory trees.
func (c Coord) Path() string {
	return fmt.Sprintf("%d/%d/%d", c.Z, c.X, c.Y)
}

// InBounds reports whether the column and row fit the coordinate's zoom
// level ([0, 2^z) on both axes).
func (c Coord) InBounds() bool {
	if c.Z >= 32 {
		// Any uint32 column/row fits once the axis exceeds 2^32 tiles.
		return true
	}
	n := uint64(1) << c.Z
	return uint64(c.X) < n && uint64(c.Y) < n
}

// ParseCoord parses the comma form produced by String.
func ParseCoord(s string) (Coord, error) {
	return parse(s, ",")
}

// ParsePath parses the slash form produced by Path.
func ParsePath(s string) (Coord, error) {
	return parse(s, "/")
}

func parse(s, sep string) (Coord, error) {
	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return Coord{}, fmt.Errorf("invalid tile coordinate %q: want z%sx%sy", s, sep, sep)
	}
	z, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return Coord{}, fmt.Errorf("invalid zoom %q: %w", parts[0], err)
	}
	x, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return Coord{}, fmt.Errorf("invalid column %q: %w", parts[1], err)
	}
	y, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return Coord{}, fmt.Errorf("invalid row %q: %w", parts[2], err)
	}
	return Coord{Z: uint8(z), X: uint32(x), Y: uint32(y)}, nil
}
