package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserLocks(t *testing.T) {
	t.Run("serializes the same user", func(t *testing.T) {
		locks := newUserLocks()
		counter := 0

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := locks.lock("user_1")
				defer unlock()
				v := counter
				time.Sleep(time.Microsecond)
				counter = v + 1
			}()
		}
		wg.Wait()

		assert.Equal(t, 50, counter)
		assert.Equal(t, 0, locks.size())
	})

	t.Run("different users do not block each other", func(t *testing.T) {
		locks := newUserLocks()

		unlockA := locks.lock("a")
		defer unlockA()

		done := make(chan struct{})
		go func() {
			unlock := locks.lock("b")
			unlock()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("lock for user b blocked on user a")
		}
		assert.Equal(t, 1, locks.size())
	})
}
