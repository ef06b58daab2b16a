package worker_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/petrijr/echo/pkg/api"
	"github.com/petrijr/echo/pkg/worker"
)

// ExampleProcessor demonstrates constructing a Processor explicitly and using
// it to process actions from a queue.
func ExampleProcessor() {
	ctx := context.Background()

	reg, err := api.NewPlan().
		Func("Upper", func(ctx context.Context, args []any) (any, error) {
			return strings.ToUpper(args[0].(string)), nil
		}).
		Build()
	if err != nil {
		log.Fatal(err)
	}

	queue := api.NewWorkQueue("main")
	ec := api.NewExecutionContext()
	p := worker.NewWithConfig(api.DirectWorker{}, queue, ec, worker.Config{
		Retry: &api.RetryPolicy{MaxAttempts: 3},
	})

	queue.Assign(api.New("Upper", "echo", reg))

	// Process a single action. In a real application you would call Run in
	// a goroutine or use LocalRunner.
	processed, err := p.ProcessOne(ctx)
	if err != nil {
		log.Fatal(err)
	}

	v, _, _ := ec.Cache().Get(ctx, "Upper")
	fmt.Println(processed, v)
	// Output: true ECHO
}
