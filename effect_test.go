package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffect(t *testing.T) {
	t.Run("runs on creation and after each dispatch", func(t *testing.T) {
		log := []int{}

		c := MustNew(counter{}, []Command[counter]{increment})

		dispose, err := NewEffect(func() {
			count, _ := c.Field("count")
			log = append(log, count.(int))
		})
		require.NoError(t, err)
		assert.Equal(t, []int{0}, log)

		require.NoError(t, increment.Call(c, 5))
		assert.Equal(t, []int{0, 5}, log)

		dispose()
		require.NoError(t, increment.Call(c, 1))
		assert.Equal(t, []int{0, 5}, log)
	})

	t.Run("tracks the whole container", func(t *testing.T) {
		runs := 0

		c := newTodos(t)

		dispose, err := NewEffect(func() {
			c.Field("items")
			runs++
		})
		require.NoError(t, err)
		defer dispose()

		// tag does not touch items
		require.NoError(t, tag.Call(c, "y", 2))
		require.NoError(t, tag.Call(c, "y", 2))

		assert.Equal(t, 3, runs)
	})

	t.Run("ignores unrelated containers", func(t *testing.T) {
		runs := 0

		a := MustNew(counter{}, []Command[counter]{increment})
		b := MustNew(counter{}, []Command[counter]{increment})

		dispose, err := NewEffect(func() {
			a.Get()
			runs++
		})
		require.NoError(t, err)
		defer dispose()

		require.NoError(t, increment.Call(b, 1))
		assert.Equal(t, 1, runs)

		require.NoError(t, increment.Call(a, 1))
		assert.Equal(t, 2, runs)
	})

	t.Run("reads outside effects are not tracked", func(t *testing.T) {
		c := MustNew(counter{}, []Command[counter]{increment})

		c.Get()
		c.Field("count")

		assert.Equal(t, 0, c.DependentCount())
	})

	t.Run("notifies in registration order", func(t *testing.T) {
		log := []string{}

		c := MustNew(counter{}, []Command[counter]{increment})

		for _, name := range []string{"first", "second", "third"} {
			dispose, err := NewEffect(func() {
				c.Get()
				log = append(log, name)
			})
			require.NoError(t, err)
			defer dispose()
		}

		log = log[:0]
		require.NoError(t, increment.Call(c, 1))

		assert.Equal(t, []string{"first", "second", "third"}, log)
	})

	t.Run("reading twice registers once", func(t *testing.T) {
		runs := 0

		c := MustNew(counter{}, []Command[counter]{increment})

		dispose, err := NewEffect(func() {
			c.Get()
			c.Field("count")
			c.Get()
			runs++
		})
		require.NoError(t, err)
		defer dispose()

		assert.Equal(t, 1, c.DependentCount())

		require.NoError(t, increment.Call(c, 1))
		assert.Equal(t, 2, runs)
		assert.Equal(t, 1, c.DependentCount())
	})

	t.Run("dispose is idempotent", func(t *testing.T) {
		runs := 0

		c := MustNew(counter{}, []Command[counter]{increment})

		dispose, err := NewEffect(func() {
			c.Get()
			runs++
		})
		require.NoError(t, err)

		assert.NotPanics(t, func() {
			dispose()
			dispose()
		})

		require.NoError(t, increment.Call(c, 1))
		assert.Equal(t, 1, runs)
	})

	t.Run("runs on dispatch with cleanup", func(t *testing.T) {
		log := []string{}

		c := MustNew(counter{}, []Command[counter]{increment})

		dispose, err := NewEffect(func() {
			log = append(log, fmt.Sprintf("changed %d", c.Get().Count))

			OnCleanup(func() {
				log = append(log, "cleanup")
			})
		})
		require.NoError(t, err)

		require.NoError(t, increment.Call(c, 10))
		log = append(log, fmt.Sprintf("%d", c.Peek().Count))
		require.NoError(t, increment.Call(c, 10))

		dispose()
		dispose()

		assert.Equal(t, []string{
			"changed 0",
			"cleanup",
			"changed 10",
			"10",
			"cleanup",
			"changed 20",
			"cleanup",
		}, log)
	})

	t.Run("cleanups of owned effects do not pile up on the owner", func(t *testing.T) {
		cleanups := 0

		c := MustNew(counter{}, []Command[counter]{increment})
		o := NewOwner()

		require.NoError(t, o.Run(func() error {
			_, err := NewEffect(func() {
				c.Get()
				OnCleanup(func() { cleanups++ })
			})
			return err
		}))

		require.NoError(t, increment.Call(c, 1))
		require.NoError(t, increment.Call(c, 1))
		assert.Equal(t, 2, cleanups)

		o.Dispose()
		assert.Equal(t, 3, cleanups)

		require.NoError(t, increment.Call(c, 1))
		assert.Equal(t, 3, cleanups)
	})

	t.Run("cleanup inside an owner run within an effect belongs to the owner", func(t *testing.T) {
		log := []string{}

		c := MustNew(counter{}, []Command[counter]{increment})
		o := NewOwner()

		dispose, err := NewEffect(func() {
			c.Get()
			o.Run(func() error {
				OnCleanup(func() { log = append(log, "owner cleanup") })
				return nil
			})
		})
		require.NoError(t, err)
		defer dispose()

		require.NoError(t, increment.Call(c, 1))
		assert.Empty(t, log)

		o.Dispose()
		assert.Equal(t, []string{"owner cleanup", "owner cleanup"}, log)
	})

	t.Run("disposed effects are purged lazily per container", func(t *testing.T) {
		a := MustNew(counter{}, []Command[counter]{increment})
		b := MustNew(counter{}, []Command[counter]{increment})

		dispose, err := NewEffect(func() {
			a.Get()
			b.Get()
		})
		require.NoError(t, err)

		dispose()
		assert.Equal(t, 1, a.DependentCount())
		assert.Equal(t, 1, b.DependentCount())

		require.NoError(t, increment.Call(a, 1))
		assert.Equal(t, 0, a.DependentCount())
		assert.Equal(t, 1, b.DependentCount())

		require.NoError(t, increment.Call(b, 1))
		assert.Equal(t, 0, b.DependentCount())
	})

	t.Run("disposal during a sweep skips the disposed effect", func(t *testing.T) {
		log := []string{}

		c := MustNew(counter{}, []Command[counter]{increment})

		var disposeSecond Disposer

		disposeFirst, err := NewEffect(func() {
			c.Get()
			log = append(log, "first")
			if disposeSecond != nil {
				disposeSecond()
			}
		})
		require.NoError(t, err)
		defer disposeFirst()

		disposeSecond, err = NewEffect(func() {
			c.Get()
			log = append(log, "second")
		})
		require.NoError(t, err)

		log = log[:0]
		require.NoError(t, increment.Call(c, 1))

		assert.Equal(t, []string{"first"}, log)
		assert.Equal(t, 1, c.DependentCount())
	})

	t.Run("stale handles are not revived by slot reuse", func(t *testing.T) {
		runs := 0

		c := MustNew(counter{}, []Command[counter]{increment})

		dispose, err := NewEffect(func() {
			c.Get()
			runs++
		})
		require.NoError(t, err)
		dispose()

		// likely reuses the freed slot
		other, err := NewEffect(func() {})
		require.NoError(t, err)
		defer other()

		require.NoError(t, increment.Call(c, 1))
		assert.Equal(t, 1, runs)
		assert.Equal(t, 0, c.DependentCount())
	})

	t.Run("nested effects restore the outer scope", func(t *testing.T) {
		log := []string{}

		outer := MustNew(counter{}, []Command[counter]{increment})
		inner := MustNew(counter{}, []Command[counter]{increment})
		after := MustNew(counter{}, []Command[counter]{increment})

		var disposers []Disposer
		defer func() {
			for _, d := range disposers {
				d()
			}
		}()

		dispose, err := NewEffect(func() {
			outer.Get()
			log = append(log, "outer")

			d, _ := NewEffect(func() {
				inner.Get()
				log = append(log, "inner")
			})
			disposers = append(disposers, d)

			// read after the nested effect, still recorded against outer
			after.Get()
		})
		require.NoError(t, err)
		disposers = append(disposers, dispose)

		assert.Equal(t, []string{"outer", "inner"}, log)
		assert.Equal(t, 1, after.DependentCount())
		assert.Equal(t, 1, inner.DependentCount())

		log = log[:0]
		require.NoError(t, increment.Call(after, 1))
		assert.Equal(t, []string{"outer", "inner"}, log)

		log = log[:0]
		require.NoError(t, increment.Call(inner, 1))
		// both inner effects created so far are live
		assert.Equal(t, []string{"inner", "inner"}, log)
	})

	t.Run("re-runs can add dependencies", func(t *testing.T) {
		runs := 0

		a := MustNew(counter{}, []Command[counter]{increment})
		b := MustNew(counter{}, []Command[counter]{increment})

		dispose, err := NewEffect(func() {
			if a.Get().Count > 0 {
				b.Get()
			}
			runs++
		})
		require.NoError(t, err)
		defer dispose()

		require.NoError(t, increment.Call(b, 1))
		assert.Equal(t, 1, runs)

		require.NoError(t, increment.Call(a, 1))
		assert.Equal(t, 2, runs)

		require.NoError(t, increment.Call(b, 1))
		assert.Equal(t, 3, runs)
	})

	t.Run("re-entrant dispatch completes before the outer sweep resumes", func(t *testing.T) {
		log := []string{}

		a := MustNew(counter{}, []Command[counter]{increment})
		b := MustNew(counter{}, []Command[counter]{increment})

		d1, err := NewEffect(func() {
			n := a.Get().Count
			log = append(log, fmt.Sprintf("a1 %d", n))
			if n == 1 {
				require.NoError(t, increment.Call(b, 10))
			}
		})
		require.NoError(t, err)
		defer d1()

		d2, err := NewEffect(func() {
			log = append(log, fmt.Sprintf("b %d", b.Get().Count))
		})
		require.NoError(t, err)
		defer d2()

		d3, err := NewEffect(func() {
			log = append(log, fmt.Sprintf("a2 %d", a.Get().Count))
		})
		require.NoError(t, err)
		defer d3()

		log = log[:0]
		require.NoError(t, increment.Call(a, 1))

		assert.Equal(t, []string{"a1 1", "b 10", "a2 1"}, log)
	})

	t.Run("errors are aggregated after the sweep", func(t *testing.T) {
		log := []string{}
		errBoom := errors.New("boom")

		c := MustNew(counter{}, []Command[counter]{increment})

		d1, err := NewEffect(func() error {
			n := c.Get().Count
			log = append(log, "first")
			if n > 0 {
				return errBoom
			}
			return nil
		})
		require.NoError(t, err)
		defer d1()

		d2, err := NewEffect(func() {
			n := c.Get().Count
			log = append(log, "second")
			if n > 0 {
				panic("oops")
			}
		})
		require.NoError(t, err)
		defer d2()

		d3, err := NewEffect(func() {
			c.Get()
			log = append(log, "third")
		})
		require.NoError(t, err)
		defer d3()

		log = log[:0]
		err = increment.Call(c, 1)

		assert.Equal(t, []string{"first", "second", "third"}, log)
		assert.Equal(t, 1, c.Peek().Count)

		require.Error(t, err)
		assert.ErrorIs(t, err, errBoom)

		var panicErr *PanicError
		require.ErrorAs(t, err, &panicErr)
		assert.Equal(t, "oops", panicErr.Value)

		var effectErr *EffectError
		require.ErrorAs(t, err, &effectErr)
		assert.NotZero(t, effectErr.ID)
	})

	t.Run("first run error is returned and the effect stays alive", func(t *testing.T) {
		runs := 0

		c := MustNew(counter{}, []Command[counter]{increment})

		dispose, err := NewEffect(func() {
			c.Get()
			runs++
			if runs == 1 {
				panic(errors.New("not ready"))
			}
		})
		defer dispose()

		assert.EqualError(t, err, "panic: not ready")

		require.NoError(t, increment.Call(c, 1))
		assert.Equal(t, 2, runs)
	})

	t.Run("concurrent effects on separate goroutines", func(t *testing.T) {
		var wg sync.WaitGroup
		var mu sync.Mutex
		log := []int{}

		c := MustNew(counter{}, []Command[counter]{increment})

		dispose, err := NewEffect(func() {
			n := c.Get().Count
			mu.Lock()
			log = append(log, n)
			mu.Unlock()
		})
		require.NoError(t, err)
		defer dispose()

		wg.Go(func() {
			for c.Peek().Count < 5 {
				assert.NoError(t, increment.Call(c, 1))
			}
		})

		wg.Wait()

		assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, log)
	})
}

func TestUntrack(t *testing.T) {
	t.Run("does not track reads", func(t *testing.T) {
		log := []string{}

		c := MustNew(counter{}, []Command[counter]{increment})

		dispose, err := NewEffect(func() {
			n := Untrack(c.Get).Count
			log = append(log, fmt.Sprintf("effect %d", n))
		})
		require.NoError(t, err)
		defer dispose()

		require.NoError(t, increment.Call(c, 10))

		assert.Equal(t, []string{
			"effect 0",
		}, log)
		assert.Equal(t, 0, c.DependentCount())
	})

	t.Run("tracking resumes after untrack", func(t *testing.T) {
		runs := 0

		a := MustNew(counter{}, []Command[counter]{increment})
		b := MustNew(counter{}, []Command[counter]{increment})

		dispose, err := NewEffect(func() {
			Untrack(a.Get)
			b.Get()
			runs++
		})
		require.NoError(t, err)
		defer dispose()

		require.NoError(t, increment.Call(a, 1))
		require.NoError(t, increment.Call(b, 1))

		assert.Equal(t, 2, runs)
	})
}
