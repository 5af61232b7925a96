package utils

import "github.com/zeromicro/go-zero/core/threading"

// ParallelMap 以最多 workers 个协程并发执行 fn，结果顺序与输入一致。
// 输入不超过 1 个或 workers <= 1 时直接串行执行。fn 内 panic 会被恢复，对应位置保留零值。
func ParallelMap[In any, Out any](input []In, workers int, fn func(In) Out) []Out {
	result := make([]Out, len(input))
	if len(input) == 0 {
		return result
	}
	if len(input) == 1 || workers <= 1 {
		for i, v := range input {
			result[i] = fn(v)
		}
		return result
	}

	workers = min(workers, len(input))
	next := make(chan int, len(input))
	for i := range input {
		next <- i
	}
	close(next)

	group := threading.NewRoutineGroup()
	for w := 0; w < workers; w++ {
		group.RunSafe(func() {
			for i := range next {
				result[i] = fn(input[i])
			}
		})
	}
	group.Wait()
	return result
}
