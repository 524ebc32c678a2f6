package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoSafe_RecoversPanic(t *testing.T) {
	recovered := make(chan interface{}, 1)
	GoSafe(func() { panic("boom") }, func(r interface{}, stack []byte) {
		assert.NotEmpty(t, stack)
		recovered <- r
	})

	select {
	case r := <-recovered:
		assert.Equal(t, "boom", r)
	case <-time.After(time.Second):
		require.Fail(t, "panic was not recovered")
	}
}

func TestGoSafe_RunsFn(t *testing.T) {
	done := make(chan struct{})
	GoSafe(func() { close(done) }, nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "fn did not run")
	}
}
