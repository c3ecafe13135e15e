// Package redisx builds the shared backing-store client. The client is created once at process
// start and passed into every component that needs it; nothing here is a singleton.
package redisx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrEmptyHost = errors.New("redis host is required")
	ErrNotReady  = errors.New("redis did not become ready")
)

// Config is the connection surface consumed from the environment.
type Config struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Addr returns host:port, defaulting the port to 6379.
func (c Config) Addr() string {
	port := c.Port
	if port == 0 {
		port = 6379
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Options converts cfg into go-redis options.
func (c Config) Options() (*redis.Options, error) {
	if c.Host == "" {
		return nil, ErrEmptyHost
	}
	opts := &redis.Options{
		Addr:     c.Addr(),
		Password: c.Password,
		DB:       c.DB,
		PoolSize: c.PoolSize,
	}
	if c.DialTimeout > 0 {
		opts.DialTimeout = c.DialTimeout
	}
	if c.ReadTimeout > 0 {
		opts.ReadTimeout = c.ReadTimeout
	}
	if c.WriteTimeout > 0 {
		opts.WriteTimeout = c.WriteTimeout
	}
	return opts, nil
}

// Connect creates a client and waits for PING to succeed, retrying until ctx expires.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := WaitReady(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// WaitReady pings client with a short backoff until it answers or ctx is done.
func WaitReady(ctx context.Context, client redis.UniversalClient) error {
	backoff := 100 * time.Millisecond
	for {
		err := client.Ping(ctx).Err()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrNotReady, err)
		case <-time.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
}
