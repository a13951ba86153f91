// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package queue

import (
	"github.com/MKhiriev/go-offline-keeper/models"
)

type item struct {
	op    models.SyncOperation
	seq   uint64
	index int
}

// before orders by priority rank, then enqueue time, then insertion order.
func before(a, b *item) bool {
	if ra, rb := a.op.Priority.Rank(), b.op.Priority.Rank(); ra != rb {
		return ra < rb
	}
	if !a.op.EnqueuedAt.Equal(b.op.EnqueuedAt) {
		return a.op.EnqueuedAt.Before(b.op.EnqueuedAt)
	}
	return a.seq < b.seq
}

func compare(a, b *item) int {
	switch {
	case before(a, b):
		return -1
	case before(b, a):
		return 1
	default:
		return 0
	}
}

// opHeap implements heap.Interface.
type opHeap []*item

func (h opHeap) Len() int { return len(h) }

func (h opHeap) Less(i, j int) bool { return before(h[i], h[j]) }

func (h opHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *opHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *opHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}
