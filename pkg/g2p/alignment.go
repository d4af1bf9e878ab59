package g2p

import "sort"

// Deleted marks an arc whose input produced no surviving output. Normalize
// re-attaches such arcs to a neighbouring output where one exists.
const Deleted = -1

// Arc relates one input rune position to one output rune position.
type Arc struct {
	In  int
	Out int
}

// Alignment is a many-to-many relation between input and output rune
// positions, ordered by input position then output position.
type Alignment []Arc

// Identity returns the alignment {(i, i) : 0 <= i < n}.
func Identity(n int) Alignment {
	a := make(Alignment, n)
	for i := range a {
		a[i] = Arc{i, i}
	}
	return a
}

// Sort orders arcs by input position, then output position. Deleted arcs
// sort as if their output equalled their input.
func (a Alignment) Sort() {
	sort.SliceStable(a, func(i, j int) bool {
		x, y := a[i], a[j]
		xo, yo := x.Out, y.Out
		if xo == Deleted {
			xo = x.In
		}
		if yo == Deleted {
			yo = y.In
		}
		if x.In != y.In {
			return x.In < y.In
		}
		return xo < yo
	})
}

// Invert swaps the direction of every arc. Only meaningful for alignments
// without deletions.
func (a Alignment) Invert() Alignment {
	inv := make(Alignment, len(a))
	for i, arc := range a {
		inv[i] = Arc{In: arc.Out, Out: arc.In}
	}
	return inv
}

// Compose chains a with b into direct arcs from the inputs of a to the
// outputs of b. Deleted arcs in a stay deleted.
//
// For example, [(0,1), (1,4)] composed with [(0,0), (1,2), (1,3), (4,2)]
// is [(0,2), (0,3), (1,2)].
func (a Alignment) Compose(b Alignment) Alignment {
	outs := make(map[int][]int)
	for _, arc := range b {
		outs[arc.In] = append(outs[arc.In], arc.Out)
	}
	var result Alignment
	seen := make(map[Arc]struct{})
	add := func(arc Arc) {
		if _, ok := seen[arc]; ok {
			return
		}
		seen[arc] = struct{}{}
		result = append(result, arc)
	}
	for _, arc := range a {
		if arc.Out == Deleted {
			add(Arc{arc.In, Deleted})
			continue
		}
		for _, out := range outs[arc.Out] {
			add(Arc{arc.In, out})
		}
	}
	return result
}

// Normalize sorts the alignment and resolves deleted arcs.
//
// An input position carrying a deletion loses any other arcs it had. Each
// deletion is then re-attached to the nearest preceding surviving output,
// or the nearest following one, and stays Deleted only when the output is
// empty. Duplicates are suppressed, preserving order.
func (a Alignment) Normalize() Alignment {
	deleted := make(map[int]bool)
	for _, arc := range a {
		if arc.Out == Deleted {
			deleted[arc.In] = true
		}
	}
	edges := make(Alignment, 0, len(a))
	for _, arc := range a {
		if deleted[arc.In] && arc.Out != Deleted {
			continue
		}
		edges = append(edges, arc)
	}
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].In < edges[j].In })
	for i, arc := range edges {
		if arc.Out != Deleted {
			continue
		}
		resolved := Deleted
		for j := i - 1; j >= 0; j-- {
			if edges[j].Out != Deleted {
				resolved = edges[j].Out
				break
			}
		}
		if resolved == Deleted {
			for j := i + 1; j < len(edges); j++ {
				if edges[j].Out != Deleted {
					resolved = edges[j].Out
					break
				}
			}
		}
		edges[i].Out = resolved
	}
	result := make(Alignment, 0, len(edges))
	seen := make(map[Arc]struct{}, len(edges))
	for _, arc := range edges {
		if _, ok := seen[arc]; ok {
			continue
		}
		seen[arc] = struct{}{}
		result = append(result, arc)
	}
	return result
}

// shiftOut returns a copy of the alignment with every output position
// moved by delta. Deleted arcs are left alone.
func (a Alignment) shiftOut(delta int) Alignment {
	shifted := make(Alignment, len(a))
	for i, arc := range a {
		shifted[i] = arc
		if arc.Out != Deleted {
			shifted[i].Out += delta
		}
	}
	return shifted
}

// shift returns a copy of the alignment with input positions moved by di
// and output positions moved by do. Deleted arcs keep their marker.
func (a Alignment) shift(di, do int) Alignment {
	shifted := make(Alignment, len(a))
	for i, arc := range a {
		shifted[i] = Arc{In: arc.In + di, Out: arc.Out}
		if arc.Out != Deleted {
			shifted[i].Out += do
		}
	}
	return shifted
}

// block is a minimal monotone segment of an alignment: the inclusive rune
// spans [InStart, InEnd] and [OutStart, OutEnd] align as a unit. OutStart
// and OutEnd are Deleted for segments with no surviving output.
type block struct {
	InStart, InEnd   int
	OutStart, OutEnd int
}

// blocks decomposes the alignment into its minimal monotone segments.
// Within a segment arcs may cross; between segments they never do.
func (a Alignment) blocks() []block {
	if len(a) == 0 {
		return nil
	}
	key := func(arc Arc) Arc {
		if arc.Out == Deleted {
			return Arc{arc.In, arc.In}
		}
		return arc
	}
	isort := make(Alignment, len(a))
	copy(isort, a)
	sort.SliceStable(isort, func(i, j int) bool {
		x, y := key(isort[i]), key(isort[j])
		if x.In != y.In {
			return x.In < y.In
		}
		return x.Out < y.Out
	})
	osort := make(Alignment, len(a))
	copy(osort, a)
	sort.SliceStable(osort, func(i, j int) bool {
		x, y := key(osort[i]), key(osort[j])
		if x.Out != y.Out {
			return x.Out < y.Out
		}
		return x.In < y.In
	})

	var segments []block
	open := false
	var istart, iend, ostart, oend int
	flush := func() {
		if open {
			segments = append(segments, block{istart, iend, ostart, oend})
			open = false
		}
	}
	for n := range isort {
		iedge, oedge := isort[n], osort[n]
		nonOverlapping := open && oend != Deleted && iedge.In > iend && oedge.In > oend
		if iedge == oedge || nonOverlapping {
			flush()
			if iedge == oedge {
				segments = append(segments, block{iedge.In, iedge.In, iedge.Out, iedge.Out})
				continue
			}
		}
		if !open {
			open = true
			istart = iedge.In
			ostart = oedge.Out
			iend = oedge.In
			oend = iedge.Out
		} else {
			if oedge.In > iend {
				iend = oedge.In
			}
			if oend == Deleted {
				oend = iedge.Out
			} else if iedge.Out != Deleted && iedge.Out > oend {
				oend = iedge.Out
			}
		}
	}
	flush()
	return mergeOverlapping(segments)
}

func mergeOverlapping(segments []block) []block {
	if len(segments) <= 1 {
		return segments
	}
	cur := segments[0]
	var merged []block
	for _, seg := range segments[1:] {
		var outputOutside bool
		if seg.OutStart == Deleted || cur.OutEnd == Deleted {
			outputOutside = !(seg.OutStart == Deleted && cur.OutEnd == Deleted)
		} else {
			outputOutside = seg.OutStart > cur.OutEnd
		}
		if seg.InStart > cur.InEnd && outputOutside {
			merged = append(merged, cur)
			cur = seg
		} else {
			cur.InEnd = seg.InEnd
			cur.OutEnd = seg.OutEnd
		}
	}
	return append(merged, cur)
}

// SubstringAlignment pairs an input substring with the output substring it
// produced.
type SubstringAlignment struct {
	In  string
	Out string
}

// SubstringAlignments returns the minimal monotone decomposition of the
// alignment as substring pairs over the given input and output.
//
// For input "ABCDEFF", output "aabbcdef" and arcs
// [(0,0) (0,1) (1,2) (1,3) (2,4) (3,5) (4,6) (5,7) (6,7)] it returns
// [("A","aa") ("B","bb") ("C","c") ("D","d") ("E","e") ("FF","f")].
func SubstringAlignments(input, output string, a Alignment) []SubstringAlignment {
	in := []rune(input)
	out := []rune(output)
	var subs []SubstringAlignment
	for _, seg := range a.blocks() {
		sub := SubstringAlignment{In: string(in[seg.InStart : seg.InEnd+1])}
		if seg.OutStart != Deleted {
			sub.Out = string(out[seg.OutStart : seg.OutEnd+1])
		}
		subs = append(subs, sub)
	}
	return subs
}
