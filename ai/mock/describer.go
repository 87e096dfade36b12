package mock

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync/atomic"
)

// MockImageDescriber is a test double for ai.ImageDescriber.
type MockImageDescriber struct {
	// DescribeImageFunc is called by DescribeImage if set.
	DescribeImageFunc func(ctx context.Context, mimeType string, data []byte) (string, error)

	callCount atomic.Int64
}

// NewMockImageDescriber creates a describer with default deterministic behavior.
func NewMockImageDescriber() *MockImageDescriber {
	return &MockImageDescriber{}
}

// DescribeImage returns a description that is unique per image content.
func (m *MockImageDescriber) DescribeImage(ctx context.Context, mimeType string, data []byte) (string, error) {
	m.callCount.Add(1)

	if m.DescribeImageFunc != nil {
		return m.DescribeImageFunc(ctx, mimeType, data)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	h := fnv.New64a()
	h.Write(data)
	return fmt.Sprintf("%s image of %d bytes, fingerprint %x", mimeType, len(data), h.Sum64()), nil
}

// CallCount returns the number of times DescribeImage was called.
func (m *MockImageDescriber) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom function.
func (m *MockImageDescriber) Reset() {
	m.callCount.Store(0)
	m.DescribeImageFunc = nil
}
