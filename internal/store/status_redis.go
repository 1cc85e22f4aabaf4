package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisStatus keeps one hash per job under conv:<id>:status with a TTL so
// finished jobs age out on their own.
type RedisStatus struct {
	client *redis.Client
	keyNS  string
	ttl    time.Duration
}

func NewRedisStatus(redisURL string, ttl time.Duration) (*RedisStatus, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStatus{client: c, keyNS: "conv", ttl: ttl}, nil
}

func (s *RedisStatus) key(jobID string) string {
	return fmt.Sprintf("%s:%s:status", s.keyNS, jobID)
}

func (s *RedisStatus) Set(ctx context.Context, jobID string, st Status) error {
	m := map[string]interface{}{
		"state":      st.State,
		"progress":   st.Progress,
		"message":    st.Message,
		"pages":      st.Pages,
		"pages_done": st.PagesDone,
		"package":    st.Package,
		"error":      st.Error,
	}
	if st.Start != nil {
		m["start"] = st.Start.Format(time.RFC3339Nano)
	}
	if st.End != nil {
		m["end"] = st.End.Format(time.RFC3339Nano)
	}
	if st.Metadata != nil {
		b, _ := json.Marshal(st.Metadata)
		m["metadata"] = string(b)
	}
	key := s.key(jobID)
	if err := s.client.HSet(ctx, key, m).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, key, s.ttl).Err()
}

func (s *RedisStatus) Get(ctx context.Context, jobID string) (Status, bool, error) {
	res, err := s.client.HGetAll(ctx, s.key(jobID)).Result()
	if err != nil {
		return Status{}, false, err
	}
	if len(res) == 0 {
		return Status{}, false, nil
	}
	st := Status{
		State:   res["state"],
		Message: res["message"],
		Package: res["package"],
		Error:   res["error"],
	}
	fmt.Sscan(res["progress"], &st.Progress)
	fmt.Sscan(res["pages"], &st.Pages)
	fmt.Sscan(res["pages_done"], &st.PagesDone)
	if v := res["start"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.Start = &t
		}
	}
	if v := res["end"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.End = &t
		}
	}
	if v := res["metadata"]; v != "" {
		_ = json.Unmarshal([]byte(v), &st.Metadata)
	}
	return st, true, nil
}

func (s *RedisStatus) Close() error { return s.client.Close() }

// Client returns the underlying Redis client for health checks.
func (s *RedisStatus) Client() *redis.Client { return s.client }
