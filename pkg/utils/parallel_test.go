package utils

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 为了测试上下文取消而定义的任务类型
type TestTaskWithContext struct {
	ID  int
	Ctx context.Context
}

// 定义测试专用的结果类型
type TestTaskProcessResult struct {
	ID     int
	Status string
	Value  int
}

func TestParallelMap(t *testing.T) {
	// 测试空输入
	t.Run("empty input", func(t *testing.T) {
		var emptyInput []int
		result := ParallelMap(emptyInput, 4, func(i int) int {
			return i * 2
		})
		assert.Empty(t, result)
	})

	// 测试单元素输入 - 应该直接处理，不使用并发
	t.Run("single input", func(t *testing.T) {
		result := ParallelMap([]int{42}, 4, func(i int) int {
			return i * 2
		})
		assert.Equal(t, []int{84}, result)
	})

	// 测试多元素输入 - 确保顺序正确
	t.Run("multiple inputs with order", func(t *testing.T) {
		input := []int{1, 2, 3, 4, 5}
		result := ParallelMap(input, 3, func(i int) int {
			// 添加随机延迟，测试顺序保持
			time.Sleep(time.Duration(rand.Intn(10)) * time.Millisecond)
			return i * 2
		})
		assert.Equal(t, []int{2, 4, 6, 8, 10}, result)
	})

	// 测试并发上限
	t.Run("concurrent execution", func(t *testing.T) {
		input := make([]int, 100)
		for i := range input {
			input[i] = i
		}

		var maxConcurrent, currentConcurrent int32
		ParallelMap(input, 10, func(i int) int {
			current := atomic.AddInt32(&currentConcurrent, 1)
			for {
				m := atomic.LoadInt32(&maxConcurrent)
				if current <= m || atomic.CompareAndSwapInt32(&maxConcurrent, m, current) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&currentConcurrent, -1)
			return i * 2
		})

		assert.LessOrEqual(t, maxConcurrent, int32(10))
		assert.Greater(t, maxConcurrent, int32(1))
	})

	// 测试带有上下文的任务：每个任务都有结果，顺序不变
	t.Run("tasks with context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		const taskCount = 50
		tasks := make([]TestTaskWithContext, taskCount)
		for i := range tasks {
			if i%2 == 0 {
				tasks[i] = TestTaskWithContext{ID: i, Ctx: ctx}
			} else {
				tasks[i] = TestTaskWithContext{ID: i, Ctx: context.Background()}
			}
		}

		results := ParallelMap(tasks, 8, func(task TestTaskWithContext) TestTaskProcessResult {
			if task.Ctx.Err() != nil {
				return TestTaskProcessResult{ID: task.ID, Status: "canceled", Value: -1}
			}
			return TestTaskProcessResult{ID: task.ID, Status: "completed", Value: task.ID * 10}
		})

		require.Len(t, results, taskCount)
		for i, result := range results {
			assert.Equal(t, i, result.ID)
			if i%2 == 0 {
				assert.Equal(t, "canceled", result.Status)
			} else {
				assert.Equal(t, i*10, result.Value)
			}
		}
	})

	// panic 不影响其他任务
	t.Run("panic recovered", func(t *testing.T) {
		result := ParallelMap([]int{1, 2, 3}, 2, func(i int) int {
			if i == 2 {
				panic("boom")
			}
			return i
		})
		require.Len(t, result, 3)
		assert.Equal(t, 1, result[0])
		assert.Equal(t, 3, result[2])
	})
}
