package market

// fifo is a fixed-capacity queue that drops the oldest entry on overflow.
type fifo[T any] struct {
	buf   []T
	start int
	size  int
}

func newFIFO[T any](capacity int) *fifo[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &fifo[T]{buf: make([]T, capacity)}
}

func (q *fifo[T]) Push(v T) {
	if q.size < len(q.buf) {
		q.buf[(q.start+q.size)%len(q.buf)] = v
		q.size++
		return
	}
	q.buf[q.start] = v
	q.start = (q.start + 1) % len(q.buf)
}

func (q *fifo[T]) Len() int { return q.size }

// At returns the i-th entry, oldest first.
func (q *fifo[T]) At(i int) T {
	return q.buf[(q.start+i)%len(q.buf)]
}

// Items copies the contents, oldest first.
func (q *fifo[T]) Items() []T {
	out := make([]T, q.size)
	for i := range out {
		out[i] = q.At(i)
	}
	return out
}
