package store

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLockRegistryMutualExclusion(t *testing.T) {
	reg := newLockRegistry()

	release, err := reg.acquire(context.Background(), 1)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := reg.acquire(ctx, 1); err == nil {
		t.Fatal("second acquire on a held slot must block until the context expires")
	}

	release()
	release2, err := reg.acquire(context.Background(), 1)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	release2()
}

func TestLockRegistryIndependentAccounts(t *testing.T) {
	reg := newLockRegistry()

	release1, err := reg.acquire(context.Background(), 1)
	if err != nil {
		t.Fatalf("acquire account 1: %v", err)
	}
	defer release1()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	release2, err := reg.acquire(ctx, 2)
	if err != nil {
		t.Fatalf("holding account 1 must not block account 2: %v", err)
	}
	release2()
}

func TestLockRegistrySerializesWriters(t *testing.T) {
	reg := newLockRegistry()

	const workers = 16
	var inSection int
	var maxInSection int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := reg.acquire(context.Background(), 7)
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			mu.Lock()
			inSection++
			if inSection > maxInSection {
				maxInSection = inSection
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inSection--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	if maxInSection != 1 {
		t.Errorf("critical section concurrency = %d, want 1", maxInSection)
	}
}
