package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	From int
	Seq  int
}

func TestQueue_New(t *testing.T) {
	q := New[message]()
	require.NotNil(t, q)
	assert.True(t, q.Empty())
	assert.Equal(t, 0, q.Len())
}

func TestQueue_PushPop(t *testing.T) {
	q := New[message]()

	_, ok := q.Pop()
	assert.False(t, ok, "pop on empty queue")

	q.Push(message{From: 1, Seq: 1}, message{From: 2, Seq: 2})
	first, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, first.Seq)
	assert.Equal(t, 1, q.Len())
}

func TestQueue_BoundedDropsOldest(t *testing.T) {
	q := NewBounded[message](3)
	for i := 1; i <= 5; i++ {
		q.Push(message{Seq: i})
	}

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, uint64(2), q.Dropped())

	items := q.Drain()
	require.Len(t, items, 3)
	assert.Equal(t, 3, items[0].Seq)
	assert.Equal(t, 5, items[2].Seq)
}

func TestQueue_BoundedBatchOverflow(t *testing.T) {
	q := NewBounded[message](2)
	q.Push(message{Seq: 1}, message{Seq: 2}, message{Seq: 3}, message{Seq: 4})

	items := q.Drain()
	require.Len(t, items, 2)
	assert.Equal(t, 3, items[0].Seq)
	assert.Equal(t, 4, items[1].Seq)
}

func TestQueue_Drain(t *testing.T) {
	q := New[message]()
	q.Push(message{Seq: 1}, message{Seq: 2})

	items := q.Drain()
	assert.Len(t, items, 2)
	assert.True(t, q.Empty())

	// the returned slice must not alias the queue's new storage
	q.Push(message{Seq: 3})
	assert.Equal(t, 1, items[0].Seq)
}

func TestQueue_DrainN(t *testing.T) {
	q := New[message]()
	q.Push(message{Seq: 1}, message{Seq: 2}, message{Seq: 3})

	batch := q.DrainN(2)
	require.Len(t, batch, 2)
	assert.Equal(t, 2, batch[1].Seq)
	assert.Equal(t, 1, q.Len())

	rest := q.DrainN(10)
	require.Len(t, rest, 1)
	assert.Equal(t, 3, rest[0].Seq)
	assert.True(t, q.Empty())
}

func TestQueue_Clear(t *testing.T) {
	q := New[message]()
	q.Push(message{Seq: 1})
	q.Clear()
	assert.True(t, q.Empty())
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := New[message]()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Push(message{From: w, Seq: i})
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 800, q.Len())
}
