package graph

import (
	"fmt"
	"io"
)

// Dump writes every node and its edges in sorted order:
//
//	x
//	  x < y
//	  x > 5
//
// Neighbor edges come first, then bounds (lower, upper).
func (g *Graph) Dump(w io.Writer) error {
	for _, name := range g.Names() {
		n, _ := g.Node(name)
		if _, err := fmt.Fprintln(w, name); err != nil {
			return err
		}
		for _, other := range n.Neighbors() {
			for _, e := range n.Readings(other) {
				if _, err := fmt.Fprintf(w, "  %s\n", e); err != nil {
					return err
				}
			}
		}
		for _, b := range n.Bounds() {
			if _, err := fmt.Fprintf(w, "  %s\n", b); err != nil {
				return err
			}
		}
	}
	return nil
}
