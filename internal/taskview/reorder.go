// Package taskview holds the local state of the task screens: the list with
// its client-side order, the create form and the create/edit/delete manager.
//
// The types here own their task slices exclusively. Remote calls go through a
// service.Service; results are reconciled into local state by id.
package taskview

import (
	"taskman/internal/service"
)

// Move returns a copy of s with the element at from removed and reinserted at
// to. All other elements keep their relative order. from == to and
// out-of-range indices return an unchanged copy.
func Move[T any](s []T, from, to int) []T {
	out := make([]T, len(s))
	copy(out, s)
	if from == to || from < 0 || to < 0 || from >= len(s) || to >= len(s) {
		return out
	}
	moved := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = moved
	return out
}

// MergeByID replaces the task with updated.ID by updated. Tasks with other
// ids are untouched; if no task matches, the list is returned unchanged.
func MergeByID(tasks []service.Task, updated service.Task) []service.Task {
	return ReplaceByID(tasks, updated.ID, updated)
}

// ReplaceByID returns a copy of tasks with the task whose id is id replaced by with.
func ReplaceByID(tasks []service.Task, id string, with service.Task) []service.Task {
	out := make([]service.Task, len(tasks))
	for i, t := range tasks {
		if t.ID == id {
			out[i] = with
		} else {
			out[i] = t
		}
	}
	return out
}

// RemoveByID returns tasks without the task whose id is id.
func RemoveByID(tasks []service.Task, id string) []service.Task {
	out := make([]service.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

// IndexOf returns the position of task id, or -1.
func IndexOf(tasks []service.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// DateOnly cuts a date-time string down to its YYYY-MM-DD prefix.
// Strings shorter than ten characters are returned as is.
func DateOnly(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}
