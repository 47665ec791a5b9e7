package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pivx-project/pivx-indexer/common"
)

func TestPublisher_DeliversToSubscriber(t *testing.T) {
	p := NewPublisher(4)
	ch, unsubscribe := p.Subscribe()
	defer unsubscribe()

	p.Publish(NewBlock{Height: 10, Hash: common.BytesToHash([]byte{1})})

	select {
	case evt := <-ch:
		nb, ok := evt.(NewBlock)
		require.True(t, ok)
		assert.Equal(t, uint32(10), nb.Height)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublisher_DropsWhenBufferFull(t *testing.T) {
	p := NewPublisher(1)
	ch, unsubscribe := p.Subscribe()
	defer unsubscribe()

	p.Publish(MempoolChanged{Action: MempoolAdded})
	p.Publish(MempoolChanged{Action: MempoolRemoved}) // dropped, buffer full

	first := <-ch
	mc := first.(MempoolChanged)
	assert.Equal(t, MempoolAdded, mc.Action)

	select {
	case <-ch:
		t.Fatal("expected no second event")
	default:
	}
}

func TestPublisher_UnsubscribeClosesChannel(t *testing.T) {
	p := NewPublisher(1)
	ch, unsubscribe := p.Subscribe()
	unsubscribe()

	_, ok := <-ch
	assert.False(t, ok)
}
