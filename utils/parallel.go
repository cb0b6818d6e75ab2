package utils

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
	quarterProcs := float64(ParallelFactor) * .25
	if quarterProcs > 8 {
		ParallelFactor = int(quarterProcs)
	}
}

// Evaluator decides how a batch of independent units of work is run. Units are identified by
// an index in [0, n); a unit must only write to state it owns (its row, its slot), so the
// choice of evaluator never changes results. ForEach returns once every unit has run.
type Evaluator interface {
	ForEach(n int, unit func(i int))
}

// Sequential runs every unit in index order on the calling goroutine.
type Sequential struct{}

// ForEach runs unit(0) ... unit(n-1) in order.
func (Sequential) ForEach(n int, unit func(i int)) {
	for i := 0; i < n; i++ {
		unit(i)
	}
}

// Parallel splits the units into contiguous groups and runs each group on its own goroutine.
// Workers bounds the number of groups; zero or less means ParallelFactor.
type Parallel struct {
	Workers int
}

// NewParallel returns a Parallel evaluator sized by ParallelFactor.
func NewParallel() Parallel {
	return Parallel{Workers: ParallelFactor}
}

// unitPanic carries a panic out of a worker goroutine so it can be raised again by the caller.
type unitPanic struct {
	value interface{}
}

func (p *unitPanic) Error() string {
	return fmt.Sprintf("got panic running unit in parallel: %v", p.value)
}

// ForEach forks one goroutine per group and joins them before returning. A panic inside any
// unit is re-raised on the calling goroutine after all groups have finished.
func (p Parallel) ForEach(n int, unit func(i int)) {
	if n <= 0 {
		return
	}
	numGroups := p.Workers
	if numGroups <= 0 {
		numGroups = ParallelFactor
	}
	if numGroups > n {
		numGroups = n
	}
	if numGroups == 1 {
		Sequential{}.ForEach(n, unit)
		return
	}

	groupSize := int(math.Floor(float64(n) / float64(numGroups)))
	extra := n % numGroups

	var group errgroup.Group
	for groupNum := 0; groupNum < numGroups; groupNum++ {
		from := groupSize * groupNum
		to := groupSize * (groupNum + 1)
		if groupNum == numGroups-1 {
			to += extra
		}
		group.Go(func() (err error) {
			defer func() {
				if thePanic := recover(); thePanic != nil {
					err = &unitPanic{value: thePanic}
				}
			}()
			for i := from; i < to; i++ {
				unit(i)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		var up *unitPanic
		if errors.As(err, &up) {
			panic(up.value)
		}
		panic(err)
	}
}

// orSequential lets callers pass a nil Evaluator to mean Sequential.
func orSequential(ev Evaluator) Evaluator {
	if ev == nil {
		return Sequential{}
	}
	return ev
}

// CollectRows evaluates f at every (x, y) of a width×height grid and returns the values in
// row-major order. Rows are the units of work; row y owns the result segment
// [y*width, (y+1)*width). A nil ev runs sequentially here and in the other collectors.
func CollectRows[T any](ev Evaluator, width, height int, f func(x, y int) T) []T {
	data := make([]T, width*height)
	orSequential(ev).ForEach(height, func(y int) {
		row := data[y*width : (y+1)*width]
		for x := range row {
			row[x] = f(x, y)
		}
	})
	return data
}

// FlatMap evaluates f for every index in [0, n) and concatenates the results in index order.
func FlatMap[T any](ev Evaluator, n int, f func(i int) []T) []T {
	slots := make([][]T, n)
	orSequential(ev).ForEach(n, func(i int) {
		slots[i] = f(i)
	})
	total := 0
	for _, slot := range slots {
		total += len(slot)
	}
	out := make([]T, 0, total)
	for _, slot := range slots {
		out = append(out, slot...)
	}
	return out
}

// FilterMap evaluates f on every item and keeps the results f accepted, in item order.
func FilterMap[T, U any](ev Evaluator, items []T, f func(T) (U, bool)) []U {
	values := make([]U, len(items))
	kept := make([]bool, len(items))
	orSequential(ev).ForEach(len(items), func(i int) {
		values[i], kept[i] = f(items[i])
	})
	out := make([]U, 0, len(items))
	for i, ok := range kept {
		if ok {
			out = append(out, values[i])
		}
	}
	return out
}

// MaxFloat32 returns the largest value over the rows of a width×height grid. rowMax reports the
// maximum of a single row; the per-row results are reduced once every row is done. It returns
// negative infinity when there are no rows.
func MaxFloat32(ev Evaluator, height int, rowMax func(y int) float32) float32 {
	if height <= 0 {
		return float32(math.Inf(-1))
	}
	maxes := make([]float64, height)
	orSequential(ev).ForEach(height, func(y int) {
		maxes[y] = float64(rowMax(y))
	})
	return float32(floats.Max(maxes))
}

// SimpleFunc is for RunInParallel.
type SimpleFunc func(ctx context.Context) error

// RunInParallel runs all functions in parallel, return is elapsed time and an error.
func RunInParallel(ctx context.Context, fs []SimpleFunc) (time.Duration, error) {
	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	var bigError error
	var bigErrorMutex sync.Mutex
	storeError := func(err error) {
		bigErrorMutex.Lock()
		defer bigErrorMutex.Unlock()
		if bigError == nil || !errors.Is(err, context.Canceled) {
			bigError = multierr.Combine(bigError, err)
		}
	}

	helper := func(f SimpleFunc) {
		defer func() {
			if thePanic := recover(); thePanic != nil {
				storeError(fmt.Errorf("got panic running something in parallel: %v", thePanic))
				cancel()
			}
			wg.Done()
		}()
		err := f(ctx)
		if err != nil {
			storeError(err)
			cancel()
		}
	}

	for _, f := range fs {
		wg.Add(1)
		go helper(f)
	}

	wg.Wait()
	return time.Since(start), bigError
}
