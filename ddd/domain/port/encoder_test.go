package port

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	base := errors.New("disk gone")

	assert.True(t, IsTransient(MarkTransient(base)))
	assert.False(t, IsUnrecoverable(MarkTransient(base)))

	assert.True(t, IsUnrecoverable(MarkUnrecoverable(base)))
	assert.False(t, IsTransient(MarkUnrecoverable(base)))

	// 未标注的错误按瞬时处理
	assert.True(t, IsTransient(base))
	assert.False(t, IsTransient(nil))
}

func TestMarkNilPassesThrough(t *testing.T) {
	assert.NoError(t, MarkTransient(nil))
	assert.NoError(t, MarkUnrecoverable(nil))
}

func TestMarkedErrorsUnwrap(t *testing.T) {
	base := errors.New("moov atom not found")
	assert.ErrorIs(t, MarkUnrecoverable(base), base)
	assert.ErrorIs(t, MarkTransient(base), base)
}
