package engine

import "github.com/joshsymonds/emailmanager/internal/gmail"

// Batch is the unit of one bulk trash call. Seq numbers batches from 1 in
// assembly order.
type Batch struct {
	Seq int
	IDs []gmail.MessageID
}

// Batcher accumulates listed ids into fixed-size batches, preserving listing
// order. It does no I/O and keeps no timing state.
type Batcher struct {
	size int
	buf  []gmail.MessageID
	seq  int
}

// NewBatcher returns a batcher emitting batches of the given size.
func NewBatcher(size int) *Batcher {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Batcher{size: size}
}

// Feed appends a page's ids to the buffer and returns every batch that
// filled up as a result.
func (b *Batcher) Feed(page Page) []Batch {
	b.buf = append(b.buf, page.IDs...)
	var out []Batch
	for len(b.buf) >= b.size {
		ids := make([]gmail.MessageID, b.size)
		copy(ids, b.buf[:b.size])
		b.buf = b.buf[b.size:]
		b.seq++
		out = append(out, Batch{Seq: b.seq, IDs: ids})
	}
	return out
}

// Flush returns the final partial batch, if any. Call it once after the
// pager signals end of listing.
func (b *Batcher) Flush() (Batch, bool) {
	if len(b.buf) == 0 {
		return Batch{}, false
	}
	ids := make([]gmail.MessageID, len(b.buf))
	copy(ids, b.buf)
	b.buf = nil
	b.seq++
	return Batch{Seq: b.seq, IDs: ids}, true
}
