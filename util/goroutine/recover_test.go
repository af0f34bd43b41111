package goroutine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRecover_SwallowsPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		defer Recover("test-boundary", zap.NewNop().Sugar())
		panic("boom")
	})
}

func TestRecoverWith_HandsValueToHandler(t *testing.T) {
	var captured interface{}
	assert.NotPanics(t, func() {
		defer RecoverWith("test-boundary", zap.NewNop().Sugar(), func(v interface{}) {
			captured = v
		})
		panic("boom")
	})
	assert.Equal(t, "boom", captured)
}

func TestRecoverWith_NoPanicNoHandlerCall(t *testing.T) {
	called := false
	func() {
		defer RecoverWith("test-boundary", zap.NewNop().Sugar(), func(interface{}) {
			called = true
		})
	}()
	assert.False(t, called)
}

func TestRecoverWith_NilHandler(t *testing.T) {
	assert.NotPanics(t, func() {
		defer RecoverWith("test-boundary", nil, nil)
		panic("boom")
	})
}
