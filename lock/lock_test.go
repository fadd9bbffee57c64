package lock

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"icarus-backend/logger"
)

func TestMemoryLockerSerializesKey(t *testing.T) {
	l := NewMemoryLocker()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "assignment:1")
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	if maxInside != 1 {
		t.Fatalf("max concurrent holders = %d", maxInside)
	}
	if len(l.slots) != 0 {
		t.Fatalf("slots leaked: %d", len(l.slots))
	}
}

func TestMemoryLockerIndependentKeys(t *testing.T) {
	l := NewMemoryLocker()
	r1, err := l.Acquire(context.Background(), "a")
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	defer r1()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r2, err := l.Acquire(ctx, "b")
	if err != nil {
		t.Fatalf("acquire b: %v", err)
	}
	r2()
}

func TestMemoryLockerHonorsContext(t *testing.T) {
	l := NewMemoryLocker()
	release, err := l.Acquire(context.Background(), "a")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx, "a"); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("err = %v, want ErrNotAcquired", err)
	}
}

func TestChainReleasesOnFailure(t *testing.T) {
	first := NewMemoryLocker()
	second := NewMemoryLocker()
	held, err := second.Acquire(context.Background(), "k")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := (Chain{first, second}).Acquire(ctx, "k"); err == nil {
		t.Fatal("expected chain acquire to fail")
	}
	held()

	// first must have been released by the failed chain
	release, err := first.Acquire(context.Background(), "k")
	if err != nil {
		t.Fatalf("first still held: %v", err)
	}
	release()
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	l, err := NewRedisLocker(context.Background(), addr, time.Second, logger.Nop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer l.Close()

	key := "test:" + t.Name()
	release, err := l.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx, key); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("second acquire err = %v", err)
	}
	release()

	again, err := l.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	again()
}

func TestRedisLockerRenewsWhileHeld(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	l, err := NewRedisLocker(context.Background(), addr, 300*time.Millisecond, logger.Nop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer l.Close()

	key := "test:" + t.Name()
	release, err := l.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	// hold well past one TTL
	time.Sleep(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx, key); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("lease expired while held: %v", err)
	}
	release()
	release()

	again, err := l.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	again()
}
