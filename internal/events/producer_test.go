package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishAfterCloseDoesNotPanic(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, TopicOrderStatusChanged, 4)
	p.Close()

	assert.NotPanics(t, func() {
		p.Publish([]byte("order-1"), []byte(`{}`))
	})
	assert.NotPanics(t, p.Close, "close is idempotent")
}

func TestPublishDropsWhenInboxFull(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, TopicOrderStatusChanged, 1)

	assert.NotPanics(t, func() {
		p.Publish([]byte("order-1"), []byte(`{}`))
		p.Publish([]byte("order-2"), []byte(`{}`))
	})
	assert.Len(t, p.inbox, 1, "overflow is dropped, not queued")
}

func TestCloseSignalsWaitClosed(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, TopicOrderStatusChanged, 4)
	p.Start()
	p.Close()
	p.WaitClosed()
}
