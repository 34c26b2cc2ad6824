package store

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const changefeedPrefix = "store:changed:"

// Changefeed carries collection-changed events between store instances. The
// gorm driver re-queries a subscribed collection whenever its feed fires.
type Changefeed interface {
	Publish(ctx context.Context, collection string) error
	Subscribe(ctx context.Context, collection string, fn func()) (CancelFunc, error)
}

// LocalChangefeed is an in-process Changefeed for single-instance
// deployments and tests.
type LocalChangefeed struct {
	mu     sync.Mutex
	subs   map[string]map[int]func()
	nextID int
}

// NewLocalChangefeed returns an empty LocalChangefeed.
func NewLocalChangefeed() *LocalChangefeed {
	return &LocalChangefeed{subs: make(map[string]map[int]func())}
}

func (f *LocalChangefeed) Publish(_ context.Context, collection string) error {
	f.mu.Lock()
	var fns []func()
	for _, fn := range f.subs[collection] {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return nil
}

func (f *LocalChangefeed) Subscribe(_ context.Context, collection string, fn func()) (CancelFunc, error) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	if f.subs[collection] == nil {
		f.subs[collection] = make(map[int]func())
	}
	f.subs[collection][id] = fn
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs[collection], id)
			if len(f.subs[collection]) == 0 {
				delete(f.subs, collection)
			}
			f.mu.Unlock()
		})
	}, nil
}

// RedisChangefeed broadcasts collection-changed events over Redis pub/sub so
// every server instance re-queries when any instance writes. One pattern
// subscriber is shared by all subscriptions.
type RedisChangefeed struct {
	rdb *redis.Client

	mu      sync.Mutex
	local   *LocalChangefeed
	started bool
	stop    context.CancelFunc
}

// NewRedisChangefeed returns a Changefeed backed by the given Redis client.
func NewRedisChangefeed(rdb *redis.Client) *RedisChangefeed {
	return &RedisChangefeed{rdb: rdb, local: NewLocalChangefeed()}
}

func (f *RedisChangefeed) Publish(ctx context.Context, collection string) error {
	return f.rdb.Publish(ctx, changefeedPrefix+collection, "1").Err()
}

func (f *RedisChangefeed) Subscribe(ctx context.Context, collection string, fn func()) (CancelFunc, error) {
	if err := f.ensureSubscriber(ctx); err != nil {
		return nil, err
	}
	return f.local.Subscribe(ctx, collection, fn)
}

// ensureSubscriber starts the shared pattern subscriber on first use.
func (f *RedisChangefeed) ensureSubscriber(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return nil
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := f.rdb.PSubscribe(subCtx, changefeedPrefix+"*")
	if _, err := sub.Receive(subCtx); err != nil {
		cancel()
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				collection := strings.TrimPrefix(msg.Channel, changefeedPrefix)
				func() {
					defer func() {
						if r := recover(); r != nil {
							slog.Error("panic in changefeed subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())))
						}
					}()
					_ = f.local.Publish(subCtx, collection)
				}()
			}
		}
	}()

	f.started = true
	f.stop = cancel
	return nil
}

// Close stops the shared pattern subscriber.
func (f *RedisChangefeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stop != nil {
		f.stop()
		f.stop = nil
		f.started = false
	}
	return nil
}
