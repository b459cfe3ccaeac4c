package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	b := New()
	id1, ch1 := b.Subscribe(4)
	_, ch2 := b.Subscribe(4)

	ev := b.PublishNew(TaskCreated, "task-1", map[string]string{MetaParentID: ""})
	require.NotEmpty(t, ev.ID)

	got1 := <-ch1
	got2 := <-ch2
	assert.Equal(t, ev, got1)
	assert.Equal(t, ev, got2)

	b.Unsubscribe(id1)
	_, open := <-ch1
	assert.False(t, open)
}

func TestBus_DropsWhenFull(t *testing.T) {
	b := New()
	_, ch := b.Subscribe(1)
	b.PublishNew(TaskUpdated, "a", nil)
	b.PublishNew(TaskUpdated, "b", nil)

	got := <-ch
	assert.Equal(t, "a", got.ResourceID)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected event %v", extra)
	default:
	}
}

func TestBus_NilIsNoop(t *testing.T) {
	var b *Bus
	assert.NotPanics(t, func() { b.PublishNew(TaskDeleted, "x", nil) })
}
