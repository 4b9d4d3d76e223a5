package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
)

func TestTypeLocks_SameTypeSerialises(t *testing.T) {
	locks := newTypeLocks()
	release, err := locks.acquire(context.Background(), domain.RecordTypeArticle)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locks.acquire(ctx, domain.RecordTypeArticle, domain.RecordTypeHighlight)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()

	// Nothing the timed-out call took may stay held.
	release, err = locks.acquire(context.Background(), domain.RecordTypeHighlight, domain.RecordTypeArticle)
	require.NoError(t, err)
	release()
}

func TestTypeLocks_UnrelatedTypesRunInParallel(t *testing.T) {
	locks := newTypeLocks()
	release, err := locks.acquire(context.Background(), domain.RecordTypeNote)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	other, err := locks.acquire(ctx, domain.RecordTypeBook)
	require.NoError(t, err)
	other()
}

func TestTypeLocks_DuplicateTypesInOneCall(t *testing.T) {
	locks := newTypeLocks()
	release, err := locks.acquire(context.Background(), domain.RecordTypeBook, domain.RecordTypeBook)
	require.NoError(t, err)
	release()
}

func TestTypeLocks_OpposingOrdersDoNotDeadlock(t *testing.T) {
	locks := newTypeLocks()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			release, err := locks.acquire(context.Background(), domain.RecordTypeArticle, domain.RecordTypeHighlight)
			if err == nil {
				release()
			}
		}()
		go func() {
			defer wg.Done()
			release, err := locks.acquire(context.Background(), domain.RecordTypeHighlight, domain.RecordTypeArticle)
			if err == nil {
				release()
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("lock acquisition deadlocked")
	}
}

func TestLockSets(t *testing.T) {
	for _, source := range domain.SourceNames() {
		assert.NotEmpty(t, syncLockSet[source], "source %s", source)
	}
	assert.Contains(t, syncLockSet[domain.SourceReadwise], domain.RecordTypeHighlight)
	assert.Equal(t, []domain.RecordType{domain.RecordTypeBook, domain.RecordTypeHighlight}, mergeLockSet(domain.RecordTypeBook))
}
