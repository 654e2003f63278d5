package world

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInconsistentTower reports a column whose runs do not cover the full
// [MinY, MaxY) range. It indicates a bug in chunk construction and is
// surfaced instead of silently producing wrong volumes.
var ErrInconsistentTower = errors.New("world: material tower does not cover full column height")

// run is one vertical stretch of a single material. Top is the exclusive
// upper block coordinate of the stretch; the lower bound is the previous
// run's Top (or MinY for the first run).
type run struct {
	material Material
	top      int
}

// Tower is the run-length representation of one XZ column: an ordered list of
// (material, cumulative top) pairs covering every block from MinY to MaxY.
// Towers are immutable after construction so in-flight samples stay valid.
type Tower struct {
	runs []run
}

// BuildTower compresses a dense bottom-up column (column[0] is the block at
// MinY) into runs. The column must cover the full height exactly.
func BuildTower(column []Material) (Tower, error) {
	if len(column) != MaxY-MinY {
		return Tower{}, fmt.Errorf("%w: got %d blocks, want %d", ErrInconsistentTower, len(column), MaxY-MinY)
	}
	var runs []run
	for i, m := range column {
		y := MinY + i + 1
		if len(runs) > 0 && runs[len(runs)-1].material == m {
			runs[len(runs)-1].top = y
			continue
		}
		runs = append(runs, run{material: m, top: y})
	}
	return Tower{runs: runs}, nil
}

// AirTower returns a column made entirely of air.
func AirTower() Tower {
	return Tower{runs: []run{{material: Air, top: MaxY}}}
}

func (t Tower) validate() error {
	if len(t.runs) == 0 || t.runs[len(t.runs)-1].top != MaxY {
		return ErrInconsistentTower
	}
	prev := MinY
	for _, r := range t.runs {
		if r.top <= prev {
			return ErrInconsistentTower
		}
		prev = r.top
	}
	return nil
}

// Span is one tower run in a form usable outside the package, for storage
// encodings. Top is the exclusive upper block coordinate.
type Span struct {
	Material Material
	Top      int
}

// Spans returns the tower's runs bottom to top.
func (t Tower) Spans() []Span {
	out := make([]Span, len(t.runs))
	for i, r := range t.runs {
		out[i] = Span{Material: r.material, Top: r.top}
	}
	return out
}

// TowerFromSpans rebuilds a tower from stored spans, validating the
// full-coverage invariant.
func TowerFromSpans(spans []Span) (Tower, error) {
	runs := make([]run, len(spans))
	for i, s := range spans {
		runs[i] = run{material: s.Material, top: s.Top}
	}
	t := Tower{runs: runs}
	if err := t.validate(); err != nil {
		return Tower{}, err
	}
	return t, nil
}

// MaterialAt returns the material of the block containing height y.
func (t Tower) MaterialAt(y int) Material {
	if y < MinY || y >= MaxY {
		return Air
	}
	i := sort.Search(len(t.runs), func(i int) bool { return t.runs[i].top > y })
	return t.runs[i].material
}

// Intersect apportions the real-valued interval [yLo, yHi) across the runs it
// overlaps, reporting each material's contributed height through emit. Heights
// outside the world's vertical range count as air, so the emitted heights
// always sum to exactly yHi-yLo. Partial blocks at the interval ends are
// fractionally apportioned to the run they fall in.
func (t Tower) Intersect(yLo, yHi float64, emit func(m Material, height float64)) {
	if yHi <= yLo {
		return
	}
	if below := float64(MinY) - yLo; below > 0 {
		if below > yHi-yLo {
			below = yHi - yLo
		}
		emit(Air, below)
		yLo = MinY
	}
	if above := yHi - float64(MaxY); above > 0 {
		if above > yHi-yLo {
			above = yHi - yLo
		}
		emit(Air, above)
		yHi = MaxY
	}
	if yHi <= yLo {
		return
	}

	// First run whose top lies above the interval start.
	i := sort.Search(len(t.runs), func(i int) bool { return float64(t.runs[i].top) > yLo })
	cursor := yLo
	for ; i < len(t.runs) && cursor < yHi; i++ {
		top := float64(t.runs[i].top)
		if top > yHi {
			top = yHi
		}
		emit(t.runs[i].material, top-cursor)
		cursor = top
	}
}
