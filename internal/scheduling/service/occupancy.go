package service

import (
	"sort"

	"banya/pkg/model"
)

// OccupancyIndex answers "is this technician/resource free for this span"
// against a fixed snapshot of busy intervals. Built once per availability
// query so the slot loop never touches the repository.
type OccupancyIndex struct {
	busy map[string][]model.Interval
}

// NewOccupancyIndex copies and sorts the busy intervals per identifier.
func NewOccupancyIndex(busy map[string][]model.Interval) *OccupancyIndex {
	indexed := make(map[string][]model.Interval, len(busy))
	for uid, intervals := range busy {
		sorted := make([]model.Interval, len(intervals))
		copy(sorted, intervals)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })
		indexed[uid] = sorted
	}
	return &OccupancyIndex{busy: indexed}
}

// IsFree reports whether uid has no busy interval overlapping span. An
// identifier with no recorded intervals is free.
func (o *OccupancyIndex) IsFree(uid string, span model.Interval) bool {
	for _, interval := range o.busy[uid] {
		// Sorted by start, so nothing later can reach back into the span.
		if !interval.Start.Before(span.End) {
			return true
		}
		if interval.Overlaps(span) {
			return false
		}
	}
	return true
}
