package mnm

import "container/heap"

type nodeQueueIndex interface {
	SetIndex(index int)
	GetIndex() int
}

// nodeQueue is a priority queue that keeps each element informed of its heap
// position so its priority can be updated in place.
type nodeQueue[T nodeQueueIndex] struct {
	data []T
	less func(t1, t2 T) bool
}

func newNodeQueue[T nodeQueueIndex](less func(t1, t2 T) bool) *nodeQueue[T] {
	return &nodeQueue[T]{less: less}
}

func (q *nodeQueue[T]) Reset() {
	clear(q.data)
	q.data = q.data[:0]
}

func (q *nodeQueue[T]) Poll() T { return heap.Pop(q).(T) }

func (q *nodeQueue[T]) Offer(value T) { heap.Push(q, value) }

func (q *nodeQueue[T]) Update(value T) { heap.Fix(q, value.GetIndex()) }

func (q *nodeQueue[T]) Empty() bool { return len(q.data) == 0 }

func (q *nodeQueue[T]) Push(x any) {
	v := x.(T)
	v.SetIndex(len(q.data))
	q.data = append(q.data, v)
}

func (q *nodeQueue[T]) Pop() any {
	n := len(q.data)
	res := q.data[n-1]
	var zero T
	q.data[n-1] = zero
	q.data = q.data[:n-1]
	res.SetIndex(-1)
	return res
}

func (q *nodeQueue[T]) Len() int { return len(q.data) }

func (q *nodeQueue[T]) Less(i, j int) bool { return q.less(q.data[i], q.data[j]) }

func (q *nodeQueue[T]) Swap(i, j int) {
	q.data[i], q.data[j] = q.data[j], q.data[i]
	q.data[i].SetIndex(i)
	q.data[j].SetIndex(j)
}
