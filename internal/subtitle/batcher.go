package subtitle

import "time"

// Batcher partitions an ordered list of lines into scenes and
// batches (spec.md §4.3).
type Batcher struct {
	SceneThreshold time.Duration
	MinBatchSize   int
	MaxBatchSize   int
	PreventOverlap bool
}

// NewBatcher applies the documented defaults when fields are zero.
func NewBatcher(sceneThreshold time.Duration, minBatchSize, maxBatchSize int, preventOverlap bool) *Batcher {
	if sceneThreshold <= 0 {
		sceneThreshold = 30 * time.Second
	}
	if minBatchSize <= 0 {
		minBatchSize = 4
	}
	if maxBatchSize <= 0 {
		maxBatchSize = 30
	}
	return &Batcher{
		SceneThreshold: sceneThreshold,
		MinBatchSize:   minBatchSize,
		MaxBatchSize:   maxBatchSize,
		PreventOverlap: preventOverlap,
	}
}

// BatchLines implements the algorithm in spec.md §4.3: split into
// scenes at large gaps, then split each scene into batches obeying
// min/max batch size, preferring the largest internal gap, never
// producing a batch smaller than MinBatchSize. Numbers scenes/batches
// contiguously from 1.
func (b *Batcher) BatchLines(lines []*Line) []*Scene {
	if len(lines) == 0 {
		return nil
	}

	sceneGroups := b.splitIntoScenes(lines)

	scenes := make([]*Scene, 0, len(sceneGroups))
	for i, group := range sceneGroups {
		sceneNumber := i + 1
		batchGroups := b.splitIntoBatches(group)
		batches := make([]*Batch, 0, len(batchGroups))
		for j, bg := range batchGroups {
			batches = append(batches, &Batch{
				Scene:     sceneNumber,
				Number:    j + 1,
				Originals: bg,
			})
		}
		scenes = append(scenes, &Scene{Number: sceneNumber, Batches: batches})
	}

	if b.PreventOverlap {
		FixOverlaps(lines)
	}

	return scenes
}

func (b *Batcher) splitIntoScenes(lines []*Line) [][]*Line {
	var scenes [][]*Line
	current := []*Line{lines[0]}

	for i := 1; i < len(lines); i++ {
		prev, next := lines[i-1], lines[i]
		var gap time.Duration
		if prev.End != nil && next.Start != nil {
			gap = *next.Start - *prev.End
		}
		if gap >= b.SceneThreshold {
			scenes = append(scenes, current)
			current = []*Line{next}
		} else {
			current = append(current, next)
		}
	}
	scenes = append(scenes, current)
	return scenes
}

// splitIntoBatches recursively splits a scene's lines at the largest
// internal gap until every batch is within [MinBatchSize,
// MaxBatchSize], preferring the earliest split on ties, and never
// producing a batch smaller than MinBatchSize unless the whole scene
// is already smaller than MinBatchSize.
func (b *Batcher) splitIntoBatches(lines []*Line) [][]*Line {
	if len(lines) <= b.MaxBatchSize {
		return [][]*Line{lines}
	}

	splitIdx := b.largestGapSplit(lines)
	if splitIdx <= 0 {
		return [][]*Line{lines}
	}

	left := lines[:splitIdx]
	right := lines[splitIdx:]

	if len(left) < b.MinBatchSize || len(right) < b.MinBatchSize {
		return [][]*Line{lines}
	}

	result := b.splitIntoBatches(left)
	result = append(result, b.splitIntoBatches(right)...)
	return result
}

// largestGapSplit returns the index (1..len-1) of the first
// occurrence of the largest gap, constrained so both sides keep at
// least MinBatchSize lines.
func (b *Batcher) largestGapSplit(lines []*Line) int {
	best := -1
	var bestGap time.Duration = -1

	lo := b.MinBatchSize
	hi := len(lines) - b.MinBatchSize
	if lo < 1 {
		lo = 1
	}
	if hi > len(lines)-1 {
		hi = len(lines) - 1
	}

	for i := lo; i <= hi; i++ {
		prev, next := lines[i-1], lines[i]
		var gap time.Duration
		if prev.End != nil && next.Start != nil {
			gap = *next.Start - *prev.End
		}
		if gap > bestGap {
			bestGap = gap
			best = i
		}
	}
	return best
}

// FixOverlaps adjusts the end of line i to start of line i+1 minus
// 1ms whenever they overlap, never pushing end below start (spec.md
// §4.1 edge-case policy).
func FixOverlaps(lines []*Line) {
	for i := 0; i < len(lines)-1; i++ {
		cur, next := lines[i], lines[i+1]
		if cur.End == nil || next.Start == nil {
			continue
		}
		if *cur.End > *next.Start {
			adjusted := *next.Start - time.Millisecond
			if cur.Start != nil && adjusted < *cur.Start {
				adjusted = *cur.Start
			}
			cur.End = &adjusted
		}
	}
}
