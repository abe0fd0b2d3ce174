package mintline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mintlinehq/mintline/config"
)

func TestQueueForAccount_IsStable(t *testing.T) {
	conf := &config.Configuration{
		Queue: config.QueueConfig{BatchQueue: "new:batch_mint", NumberOfQueues: 4},
	}
	q := &Queue{}

	first := q.queueForAccount(conf, testIssuerAddr)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, q.queueForAccount(conf, testIssuerAddr))
	}

	names := QueueNames(conf)
	_, ok := names[first]
	assert.True(t, ok, "account queue %s must be one of the served queues", first)
}

func TestQueueNames(t *testing.T) {
	conf := &config.Configuration{
		Queue: config.QueueConfig{BatchQueue: "new:batch_mint", NumberOfQueues: 3},
	}

	names := QueueNames(conf)
	assert.Len(t, names, 3)
	for i := 1; i <= 3; i++ {
		priority, ok := names[fmt.Sprintf("new:batch_mint_%d", i)]
		assert.True(t, ok)
		assert.Equal(t, 1, priority)
	}
}
