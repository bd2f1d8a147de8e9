package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadOfUnseededKeyIsNotFound(t *testing.T) {
	s := New()
	_, ok := s.Read(42)
	assert.False(t, ok)
	assert.Equal(t, uint64(0), s.Timestamp(42))
}

func TestInitStorageSeedsZeroValuesAtTimestampZero(t *testing.T) {
	s := New()
	s.InitStorage()

	v, ok := s.Read(500)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), v)
	assert.Equal(t, uint64(0), s.Timestamp(500))
}

func TestWriteUpsertsValueAndTimestamp(t *testing.T) {
	s := New()

	s.Write(1, 10, 5)
	v, ok := s.Read(1)
	assert.True(t, ok)
	assert.Equal(t, uint64(10), v)
	assert.Equal(t, uint64(5), s.Timestamp(1))

	s.Write(1, 20, 9)
	v, ok = s.Read(1)
	assert.True(t, ok)
	assert.Equal(t, uint64(20), v)
	assert.Equal(t, uint64(9), s.Timestamp(1))
}
