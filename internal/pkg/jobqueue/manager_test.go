package jobqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetManagerSingleton(t *testing.T) {
	m1 := GetManager()
	m2 := GetManager()

	assert.NotNil(t, m1)
	assert.Same(t, m1, m2)
	assert.NotNil(t, m1.GetQueue())
}

func TestManagerStartStop(t *testing.T) {
	host, port, password := resolveTestRedis(t)
	configureTestCache(host, port, password)
	resetJobQueueRedis(t)
	t.Cleanup(func() { resetJobQueueRedis(t) })

	m := GetManager()
	assert.False(t, m.IsRunning())

	m.Start()
	assert.True(t, m.IsRunning())

	// Start is idempotent
	m.Start()
	assert.True(t, m.IsRunning())

	m.Stop()
	assert.False(t, m.IsRunning())
}
