package storecheck

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNoBrowsers is returned by Acquire when every worker's free set is empty.
var ErrNoBrowsers = errors.New("no browsers available")

func freeKey(worker, browserType string) string {
	return fmt.Sprintf("%s%s:%s:free", RedisPrefix, worker, browserType)
}

func busyKey(worker, browserType string) string {
	return fmt.Sprintf("%s%s:%s:busy", RedisPrefix, worker, browserType)
}

// Acquire reserves a free browser of browserType from a randomly ordered
// worker list, moving its id from the worker's free set to its busy set.
func (c *Client) Acquire(ctx context.Context, browserType string) error {
	if c.lease != nil {
		return NewBrowserError("browser %s already acquired", c.lease.BrowserID)
	}

	// 1. Discover workers
	workers, err := c.rdb.SMembers(ctx, WorkersSet).Result()
	if err != nil {
		return NewBrowserError("list workers: %v", err)
	}
	if len(workers) == 0 {
		return fmt.Errorf("%w: no workers registered in %s", ErrNoBrowsers, WorkersSet)
	}
	rand.Shuffle(len(workers), func(i, j int) { workers[i], workers[j] = workers[j], workers[i] })

	// 2. Pop the first free browser
	for _, worker := range workers {
		bid, err := c.rdb.SPop(ctx, freeKey(worker, browserType)).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			c.logger.Warn("worker free set unreadable", zap.String("worker", worker), zap.Error(err))
			continue
		}
		if err := c.rdb.SAdd(ctx, busyKey(worker, browserType), bid).Err(); err != nil {
			// Put it back so the browser is not lost to the pool.
			_ = c.rdb.SAdd(ctx, freeKey(worker, browserType), bid).Err()
			return NewBrowserError("mark browser busy: %v", err)
		}

		c.lease = &FleetLease{
			BrowserID:   bid,
			WorkerName:  worker,
			BrowserType: browserType,
		}
		c.logger.Debug("browser acquired", zap.String("worker", worker), zap.String("browser_id", bid))
		return nil
	}
	return fmt.Errorf("%w: type %q", ErrNoBrowsers, browserType)
}

// Release tells the worker to reset the browser and return it to its free
// set. The lease is dropped even when the worker does not answer.
func (c *Client) Release(ctx context.Context) error {
	if c.lease == nil {
		return nil
	}
	lease := c.lease
	defer func() {
		c.lease = nil
	}()

	c.logger.Debug("sending release command", zap.String("browser_id", lease.BrowserID))
	res, err := c.Send(ctx, "release_browser", nil)
	if err == nil {
		err = res.err("release_browser")
	}
	if rmErr := c.rdb.SRem(ctx, busyKey(lease.WorkerName, lease.BrowserType), lease.BrowserID).Err(); rmErr != nil && err == nil {
		err = NewBrowserError("unmark busy browser: %v", rmErr)
	}
	return err
}
