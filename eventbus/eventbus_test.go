package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := New(4)
	defer b.Destroy(time.Second)

	sub := b.Subscribe()
	b.Publish("hello")

	select {
	case e := <-sub.Events():
		require.Equal(t, "hello", e)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishDropsOldestOnOverflowPerSubscriber(t *testing.T) {
	b := New(2)
	defer b.Destroy(time.Second)

	sub := b.Subscribe()
	b.Publish(1)
	b.Publish(2)
	b.Publish(3)

	time.Sleep(50 * time.Millisecond)

	var got []int
	for i := 0; i < 2; i++ {
		select {
		case e := <-sub.Events():
			got = append(got, e.(int))
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
	require.Equal(t, []int{2, 3}, got)
	require.Equal(t, uint64(1), sub.Dropped())
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New(4)
	defer b.Destroy(time.Second)

	sub := b.Subscribe()
	sub.Unsubscribe()

	_, ok := <-sub.Events()
	require.False(t, ok)
}

func TestDestroyBroadcastsAndClosesQueues(t *testing.T) {
	b := New(4)
	sub := b.Subscribe()

	b.Destroy(time.Second)

	var sawDestroy bool
	for e := range sub.Events() {
		if _, ok := e.(Destroy); ok {
			sawDestroy = true
		}
	}
	require.True(t, sawDestroy)
}

func TestMultipleSubscribersEachGetFIFODelivery(t *testing.T) {
	b := New(8)
	defer b.Destroy(time.Second)

	s1 := b.Subscribe()
	s2 := b.Subscribe()

	b.Publish(1)
	b.Publish(2)
	b.Publish(3)

	for _, sub := range []*Subscription{s1, s2} {
		for i := 1; i <= 3; i++ {
			select {
			case e := <-sub.Events():
				require.Equal(t, i, e)
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for event")
			}
		}
	}
}
