package dispatch

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSameUserTurnsNeverOverlap(t *testing.T) {
	d := New()

	// An unguarded counter: lost updates show up as a wrong total.
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.WithTurn("u1", func() error {
				v := counter
				counter = v + 1
				return nil
			})
		}()
	}
	wg.Wait()

	if counter != 200 {
		t.Errorf("counter = %d, want 200 (lost update)", counter)
	}
}

func TestDifferentUsersDoNotBlockEachOther(t *testing.T) {
	d := New()

	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = d.WithTurn("u1", func() error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding
	defer close(release)

	done := make(chan struct{})
	go func() {
		_ = d.WithTurn("u2", func() error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("turn for u2 blocked behind u1's turn")
	}
}

func TestLockReleasedOnError(t *testing.T) {
	d := New()

	wantErr := errors.New("turn failed midway")
	if err := d.WithTurn("u1", func() error { return wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}

	done := make(chan struct{})
	go func() {
		_ = d.WithTurn("u1", func() error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock not released after failed turn")
	}
}
