package pagesource

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForeignDocument(t *testing.T) {
	p := &RodPage{}
	require.False(t, p.foreignDocument("ads.example"))

	host := "www.ratings.test"
	p.host.Store(&host)
	require.False(t, p.foreignDocument("www.ratings.test"))
	require.True(t, p.foreignDocument("ads.example"))
}

// the hijack router checks hosts on its own goroutine while Navigate
// updates the current host
func TestForeignDocumentConcurrentNavigation(t *testing.T) {
	p := &RodPage{}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			host := "www.ratings.test"
			p.host.Store(&host)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			p.foreignDocument("ads.example")
		}
	}()
	wg.Wait()

	require.True(t, p.foreignDocument("ads.example"))
}
