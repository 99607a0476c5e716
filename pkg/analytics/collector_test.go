package analytics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestAsyncCollector_Counts(t *testing.T) {
	c := NewAsyncCollector(zaptest.NewLogger(t))
	id := uuid.New()

	for i := 0; i < 5; i++ {
		c.RecordRequest(id)
	}

	assert.Eventually(t, func() bool {
		return c.Count(id) == 5
	}, time.Second, 10*time.Millisecond)
}

func TestAsyncCollector_UnknownContainer(t *testing.T) {
	c := NewAsyncCollector(zaptest.NewLogger(t))
	assert.Zero(t, c.Count(uuid.New()))
}

func TestAsyncCollector_NeverBlocks(t *testing.T) {
	c := NewAsyncCollector(zaptest.NewLogger(t))
	id := uuid.New()

	done := make(chan struct{})
	go func() {
		// Far more events than the buffer holds; extras are dropped.
		for i := 0; i < 100000; i++ {
			c.RecordRequest(id)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("RecordRequest blocked")
	}
}
