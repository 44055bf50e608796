package tenant

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContextDefaults(t *testing.T) {
	assert.Equal(t, DefaultBranchID, FromContext(context.Background()))
	assert.Equal(t, DefaultBranchID, FromContext(nil))
}

func TestWithBranchClampsNonPositive(t *testing.T) {
	assert.Equal(t, DefaultBranchID, FromContext(WithBranch(context.Background(), 0)))
	assert.Equal(t, DefaultBranchID, FromContext(WithBranch(context.Background(), -7)))
	assert.Equal(t, int64(4), FromContext(WithBranch(context.Background(), 4)))
}

func TestConcurrentRequestsDoNotShareBranch(t *testing.T) {
	var wg sync.WaitGroup
	for i := int64(1); i <= 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			ctx := WithBranch(context.Background(), id)
			assert.Equal(t, id, FromContext(ctx))
		}(i)
	}
	wg.Wait()
}
