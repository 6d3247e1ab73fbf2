package shared_test

import (
	"sync"
	"testing"

	"github.com/sandai/arena/src/domain/shared"
)

func TestKeyMutex_SerializesSameKey(t *testing.T) {
	var km shared.KeyMutex
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("tournament-1")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("Expected counter 50, got %d", counter)
	}
	if km.Len() != 0 {
		t.Errorf("Expected no retained keys, got %d", km.Len())
	}
}

func TestKeyMutex_IndependentKeys(t *testing.T) {
	var km shared.KeyMutex
	unlockA := km.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("b")
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
}

func TestIDValidate(t *testing.T) {
	if err := shared.SessionID(" ").Validate(); err == nil {
		t.Error("Expected blank session id to fail validation")
	}
	if err := shared.TournamentID("t-1").Validate(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if err := shared.PlayerID("").Validate(); err == nil {
		t.Error("Expected blank player id to fail validation")
	}
}
