package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	tclient "go.temporal.io/sdk/client"
)

// ErrAlreadyStarted means today's daily tips workflow already ran or is running.
var ErrAlreadyStarted = errors.New("daily tips workflow already started today")

// Launcher starts the batch workflows on a task queue.
type Launcher struct {
	client tclient.Client
	queue  string
	now    func() time.Time
}

func NewLauncher(c tclient.Client, taskQueue string) *Launcher {
	return &Launcher{client: c, queue: taskQueue, now: time.Now}
}

// DailyTipsID is one workflow id per UTC day, so a second trigger on the
// same day is rejected unless the first run failed.
func DailyTipsID(t time.Time) string {
	return DailyTipsWorkflowID + "-" + t.UTC().Format("20060102")
}

// StartDailyTips starts today's batch. A repeat trigger returns today's id
// with ErrAlreadyStarted and starts nothing.
func (l *Launcher) StartDailyTips(ctx context.Context, in DailyTipsInput) (string, error) {
	id := DailyTipsID(l.now())
	we, err := l.client.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
		ID:                                       id,
		TaskQueue:                                l.queue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, DailyTipsWorkflow, in)
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		return id, fmt.Errorf("%w: %s", ErrAlreadyStarted, id)
	}
	if err != nil {
		return "", fmt.Errorf("start daily tips workflow: %w", err)
	}
	return we.GetID(), nil
}

func (l *Launcher) StartGlobalImpact(ctx context.Context) (string, error) {
	we, err := l.client.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
		ID:        GlobalImpactWorkflowID + "-" + uuid.NewString(),
		TaskQueue: l.queue,
	}, GlobalImpactWorkflow)
	if err != nil {
		return "", fmt.Errorf("start global impact workflow: %w", err)
	}
	return we.GetID(), nil
}
