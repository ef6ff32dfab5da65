package marshal

import (
	"context"
	"runtime"

	"github.com/reglet-dev/hostcall/domain/entities"
	"github.com/sourcegraph/conc/iter"
)

// InvokeBatch runs independent calls concurrently, at most maxParallel at a
// time (GOMAXPROCS when maxParallel <= 0). Results are returned in request
// order; a failure only affects its own slot. The native operations must be
// safe for concurrent use.
func (m *Marshaller) InvokeBatch(ctx context.Context, reqs []entities.CallRequest, maxParallel int) []entities.CallResult {
	if maxParallel <= 0 {
		maxParallel = runtime.GOMAXPROCS(0)
	}
	mapper := iter.Mapper[entities.CallRequest, entities.CallResult]{MaxGoroutines: maxParallel}
	return mapper.Map(reqs, func(req *entities.CallRequest) entities.CallResult {
		return m.Call(ctx, *req)
	})
}
