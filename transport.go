package storecheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRPCWait is the default time to wait for a worker response (60s)
const DefaultRPCWait = 60 * time.Second

// Send transmits a command to the leased browser and waits for its result.
// The wait is bounded by ctx, or DefaultRPCWait when ctx has no deadline.
// Commands that wait hand the worker a shorter timeout (see workerTimeout)
// so its own failure report arrives inside ctx.
func (c *Client) Send(ctx context.Context, action string, args map[string]interface{}) (TaskResponse, error) {
	return c.SendWithTimeout(ctx, action, args, remaining(ctx, DefaultRPCWait))
}

// SendWithTimeout allows specifying a custom timeout (e.g., for release or heavy tasks).
func (c *Client) SendWithTimeout(ctx context.Context, action string, args map[string]interface{}, timeout time.Duration) (TaskResponse, error) {
	if c.lease == nil {
		return TaskResponse{}, NewBrowserError("cannot perform action '%s': browser session not acquired", action)
	}
	if timeout <= 0 {
		// BLPOP reads 0 as "block forever".
		return TaskResponse{}, NewBrowserError("timeout waiting for worker response to %s", action)
	}
	if args == nil {
		args = make(map[string]interface{})
	}

	// 1. Prepare Metadata
	taskID := strings.ReplaceAll(uuid.NewString(), "-", "")
	resultKey := fmt.Sprintf("%sresult:%s", RedisPrefix, taskID)
	queue := fmt.Sprintf("%s%s:tasks", RedisPrefix, c.lease.WorkerName)

	// 2. Construct Payload
	payload := TaskPayload{
		TaskID:      taskID,
		BrowserID:   c.lease.BrowserID,
		WorkerName:  c.lease.WorkerName,
		BrowserType: c.lease.BrowserType,
		Action:      action,
		Args:        args,
		ResultKey:   resultKey,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return TaskResponse{}, NewBrowserError("failed to serialize task payload: %v", err)
	}

	// 3. Send to Redis (RPUSH) with Retry
	err = c.executeWithRetry(ctx, func() error {
		return c.rdb.RPush(ctx, queue, data).Err()
	})
	if err != nil {
		return TaskResponse{}, NewBrowserError("queue %s: %v", action, err)
	}

	// 4. Wait for Result (BLPOP)
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var raw []string
	err = c.executeWithRetry(waitCtx, func() error {
		var rErr error
		raw, rErr = c.rdb.BLPop(waitCtx, timeout, resultKey).Result()
		return rErr
	})
	if err != nil {
		if errors.Is(err, redis.Nil) || waitCtx.Err() != nil {
			return TaskResponse{}, NewBrowserError("timeout waiting for worker response to %s", action)
		}
		return TaskResponse{}, NewBrowserError("redis rpc error: %v", err)
	}

	// 5. Parse Response ([key, value])
	if len(raw) < 2 {
		return TaskResponse{}, NewBrowserError("invalid response from redis")
	}
	var resp TaskResponse
	if err := json.Unmarshal([]byte(raw[1]), &resp); err != nil {
		return TaskResponse{}, NewBrowserError("failed to parse worker response: %v", err)
	}
	return resp, nil
}

// executeWithRetry retries op up to 3 times with exponential backoff
// (0.2s, 0.4s, 0.8s). redis.Nil and context errors are final.
func (c *Client) executeWithRetry(ctx context.Context, op func() error) error {
	const maxAttempts = 3
	backoff := 200 * time.Millisecond

	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.Nil) || ctx.Err() != nil || attempt >= maxAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
