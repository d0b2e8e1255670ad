package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type mockCloser struct {
	shouldFail bool
	closed     bool
	order      *[]string
	name       string
}

func (m *mockCloser) Close() error {
	m.closed = true
	if m.order != nil {
		*m.order = append(*m.order, m.name)
	}
	if m.shouldFail {
		return errors.New("mock close error: " + m.name)
	}
	return nil
}

func TestCloseAndLog(t *testing.T) {
	t.Run("nil closer should not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			CloseAndLog(nil)
		})
	})

	t.Run("successful close", func(t *testing.T) {
		closer := &mockCloser{shouldFail: false}
		CloseAndLog(closer)
		assert.True(t, closer.closed, "Close should have been called")
	})

	t.Run("failed close logs error", func(t *testing.T) {
		closer := &mockCloser{shouldFail: true}
		assert.NotPanics(t, func() {
			CloseAndLog(closer)
		})
		assert.True(t, closer.closed, "Close should have been called even though it failed")
	})
}

func TestCloseAll(t *testing.T) {
	var order []string
	source := &mockCloser{name: "source", order: &order, shouldFail: true}
	target := &mockCloser{name: "target", order: &order, shouldFail: true}
	err := CloseAll(source, nil, target)
	assert.EqualError(t, err, "mock close error: target")
	assert.Equal(t, []string{"target", "source"}, order)
	assert.True(t, source.closed)

	assert.NoError(t, CloseAll())
}
