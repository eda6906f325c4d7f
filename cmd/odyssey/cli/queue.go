package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pharmacy/jobs"
)

// QueueOps is the subset of JobsCLI used by the dispatch and queue commands.
type QueueOps interface {
	EnqueueDispatch(ctx context.Context, poNumber string) (*asynq.TaskInfo, error)
	InspectQueue(ctx context.Context) (jobs.QueueStats, error)
}

// CommandOutput selects where command results are written.
type CommandOutput struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

func (o *CommandOutput) defaults() {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// DispatchCommand enqueues a dispatch task for poNumber and prints the task id.
func DispatchCommand(ctx context.Context, ops QueueOps, poNumber string, out CommandOutput) int {
	out.defaults()
	poNumber = strings.TrimSpace(poNumber)
	if poNumber == "" {
		_, _ = fmt.Fprintln(out.Stderr, "dispatch: po number is required")
		return 1
	}
	info, err := ops.EnqueueDispatch(ctx, poNumber)
	if err != nil {
		_, _ = fmt.Fprintf(out.Stderr, "dispatch: %v\n", err)
		return 1
	}
	if out.JSONOutput {
		_ = json.NewEncoder(out.Stdout).Encode(map[string]string{
			"po_number": poNumber,
			"task_id":   info.ID,
			"queue":     info.Queue,
		})
		return 0
	}
	_, _ = fmt.Fprintf(out.Stdout, "Enqueued dispatch of %s as task %s on queue %s\n", poNumber, info.ID, info.Queue)
	return 0
}

// QueueCommand prints the state of the default queue.
func QueueCommand(ctx context.Context, ops QueueOps, out CommandOutput) int {
	out.defaults()
	stats, err := ops.InspectQueue(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(out.Stderr, "queue: %v\n", err)
		return 1
	}
	if out.JSONOutput {
		if err := json.NewEncoder(out.Stdout).Encode(stats); err != nil {
			_, _ = fmt.Fprintf(out.Stderr, "queue: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	_, _ = fmt.Fprintf(out.Stdout, "Queue %s\n", stats.Queue)
	_, _ = fmt.Fprintf(out.Stdout, "  pending   %d\n  active    %d\n  scheduled %d\n  retry     %d\n  archived  %d\n",
		stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
	return 0
}
