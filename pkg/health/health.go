package health

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

const checkTimeout = 5 * time.Second

type Checker interface {
	Check(ctx context.Context) error
	Name() string
}

type Health struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

type CheckResult struct {
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type registeredChecker struct {
	checker  Checker
	optional bool
}

// CheckerRegistry runs all checks concurrently. A failing optional check
// degrades the service; a failing required one makes it unhealthy.
type CheckerRegistry struct {
	checkers []registeredChecker
}

func NewCheckerRegistry() *CheckerRegistry {
	return &CheckerRegistry{}
}

func (r *CheckerRegistry) Register(checker Checker) {
	r.checkers = append(r.checkers, registeredChecker{checker: checker})
}

func (r *CheckerRegistry) RegisterOptional(checker Checker) {
	r.checkers = append(r.checkers, registeredChecker{checker: checker, optional: true})
}

func (r *CheckerRegistry) Check(ctx context.Context) Health {
	results := make(map[string]CheckResult, len(r.checkers))
	overall := StatusHealthy

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, rc := range r.checkers {
		wg.Add(1)
		go func(rc registeredChecker) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
			err := rc.checker.Check(checkCtx)
			cancel()

			result := CheckResult{Status: StatusHealthy, Timestamp: time.Now()}
			if err != nil {
				result.Status = StatusUnhealthy
				result.Message = err.Error()
			}

			mu.Lock()
			defer mu.Unlock()
			results[rc.checker.Name()] = result
			switch {
			case err == nil:
			case rc.optional:
				if overall == StatusHealthy {
					overall = StatusDegraded
				}
			default:
				overall = StatusUnhealthy
			}
		}(rc)
	}
	wg.Wait()

	return Health{
		Status:    overall,
		Timestamp: time.Now(),
		Checks:    results,
	}
}

type RedisChecker struct {
	client *redis.Client
}

func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Name() string {
	return "redis"
}

func (c *RedisChecker) Check(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

type MongoDBChecker struct {
	client *mongo.Client
}

func NewMongoDBChecker(client *mongo.Client) *MongoDBChecker {
	return &MongoDBChecker{client: client}
}

func (c *MongoDBChecker) Name() string {
	return "mongodb"
}

func (c *MongoDBChecker) Check(ctx context.Context) error {
	if err := c.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongodb ping failed: %w", err)
	}
	return nil
}

// DirectoryChecker verifies that the file sink directory exists.
type DirectoryChecker struct {
	name string
	dir  string
}

func NewDirectoryChecker(name, dir string) *DirectoryChecker {
	return &DirectoryChecker{name: name, dir: dir}
}

func (c *DirectoryChecker) Name() string {
	return c.name
}

func (c *DirectoryChecker) Check(context.Context) error {
	info, err := os.Stat(c.dir)
	if err != nil {
		return fmt.Errorf("stat %s failed: %w", c.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", c.dir)
	}
	return nil
}
