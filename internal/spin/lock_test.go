package spin

import (
	"runtime"
	"sync"
	"testing"
)

func TestLock_ZeroValueUnlocked(t *testing.T) {
	var l Lock
	if l.Held() {
		t.Fatal("zero value lock reports held")
	}
	if !l.TryLock() {
		t.Fatal("TryLock on zero value lock failed")
	}
	if !l.Held() {
		t.Error("expected lock to be held after TryLock")
	}
	if l.TryLock() {
		t.Error("second TryLock succeeded while lock held")
	}
	l.Unlock()
	if l.Held() {
		t.Error("lock still held after Unlock")
	}
}

func TestLock_UnlockUnheldPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic when unlocking an unheld lock")
		}
	}()

	var l Lock
	l.Unlock()
}

// TestLock_MutualExclusion hammers a plain counter from many goroutines.
// Any lost update means two goroutines were inside the critical section together.
func TestLock_MutualExclusion(t *testing.T) {
	const (
		goroutines = 8
		iterations = 5000
	)

	var (
		l       Lock
		counter int
		inside  int
		wg      sync.WaitGroup
	)

	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for i := range iterations {
				l.Lock()
				inside++
				if inside != 1 {
					t.Errorf("critical section entered by %d goroutines", inside)
				}
				counter++
				inside--
				l.Unlock()
				if i%128 == 0 {
					runtime.Gosched()
				}
			}
		}()
	}
	wg.Wait()

	if counter != goroutines*iterations {
		t.Errorf("expected counter %d, got %d", goroutines*iterations, counter)
	}
}

func BenchmarkLock_Uncontended(b *testing.B) {
	var l Lock
	for b.Loop() {
		l.Lock()
		l.Unlock()
	}
}

func BenchmarkLock_Contended(b *testing.B) {
	var l Lock
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			l.Lock()
			l.Unlock()
		}
	})
}
