package driver

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_MonotonicAcrossParts(t *testing.T) {
	var got []float64
	p := newProgress(1000, func(f float64) { got = append(got, f) })

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				p.add(10)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1000), p.bytes())
	assert.Equal(t, 1.0, p.fraction())
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i], got[i-1])
	}

	p.finish()
	assert.Equal(t, 1.0, got[len(got)-1])
}

func TestProgress_UnknownTotal(t *testing.T) {
	var got []float64
	p := newProgress(-1, func(f float64) { got = append(got, f) })

	p.add(500)
	assert.Empty(t, got)
	assert.Equal(t, int64(500), p.bytes())

	p.finish()
	assert.Equal(t, []float64{1}, got)
}

func TestProgress_ClampsOvershoot(t *testing.T) {
	p := newProgress(10, nil)
	p.add(25)
	assert.Equal(t, 1.0, p.fraction())
}
