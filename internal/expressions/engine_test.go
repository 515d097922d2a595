package expressions

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_ClearsWhenFull(t *testing.T) {
	c := newCache(func(expression string) (int, error) { return len(expression), nil })

	for i := range maxCachedPrograms {
		_, err := c.get(strconv.Itoa(i))
		require.NoError(t, err)
	}
	assert.Equal(t, maxCachedPrograms, c.size())

	v, err := c.get("one more")
	require.NoError(t, err)
	assert.Equal(t, 8, v)
	assert.Equal(t, 1, c.size())
}

func TestArgsVars(t *testing.T) {
	vars := Args{"200", " 1.5 ", "ok", ""}.Vars()

	assert.Equal(t, []any{"200", " 1.5 ", "ok", ""}, vars["args"])
	assert.Equal(t, []any{200.0, 1.5, nil, nil}, vars["nums"])
	assert.Equal(t, 4, vars["argc"])
}

func TestArgsVars_Empty(t *testing.T) {
	vars := Args(nil).Vars()
	assert.Equal(t, []any{}, vars["args"])
	assert.Equal(t, []any{}, vars["nums"])
	assert.Equal(t, 0, vars["argc"])
}

// --- cache ---

func TestCache_CompilesOnce(t *testing.T) {
	var calls atomic.Int32
	c := newCache(func(expression string) (int, error) {
		calls.Add(1)
		return len(expression), nil
	})

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := c.get("abc")
			assert.NoError(t, err)
			assert.Equal(t, 3, n)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, c.size())
}

func TestCache_ErrorsAreNotStored(t *testing.T) {
	boom := errors.New("boom")
	c := newCache(func(string) (int, error) { return 0, boom })

	_, err := c.get("x")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.size())
}
