package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps records in one hash per user plus a sorted set of user ids
// scored by first-seen time, so All can return them in arrival order.
type Redis struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedis(rdb *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "rei"
	}
	return &Redis{rdb: rdb, prefix: prefix, now: time.Now}
}

func (r *Redis) userKey(id int64) string { return fmt.Sprintf("%s:user:%d", r.prefix, id) }
func (r *Redis) indexKey() string        { return r.prefix + ":users" }

func (r *Redis) ensure(ctx context.Context, pipe redis.Pipeliner, id int64, now time.Time) {
	ts := now.UnixNano()
	pipe.HSetNX(ctx, r.userKey(id), "id", id)
	pipe.HSetNX(ctx, r.userKey(id), "first_seen", ts)
	pipe.HSet(ctx, r.userKey(id), "last_seen", ts)
	pipe.ZAddNX(ctx, r.indexKey(), redis.Z{Score: float64(ts), Member: id})
}

func (r *Redis) Touch(ctx context.Context, p Profile) (UserRecord, error) {
	now := r.now()
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		r.ensure(ctx, pipe, p.ID, now)
		fields := map[string]any{}
		if name := p.FullName(); name != "" {
			fields["name"] = name
		}
		if p.Username != "" {
			fields["username"] = p.Username
		}
		if p.Language != "" {
			fields["language"] = p.Language
		}
		if len(fields) > 0 {
			pipe.HSet(ctx, r.userKey(p.ID), fields)
		}
		return nil
	})
	if err != nil {
		return UserRecord{}, fmt.Errorf("touch user %d: %w", p.ID, err)
	}
	u, _, err := r.Get(ctx, p.ID)
	return u, err
}

func (r *Redis) RecordDownload(ctx context.Context, userID int64) (UserRecord, error) {
	now := r.now()
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		r.ensure(ctx, pipe, userID, now)
		pipe.HIncrBy(ctx, r.userKey(userID), "downloads", 1)
		return nil
	})
	if err != nil {
		return UserRecord{}, fmt.Errorf("record download %d: %w", userID, err)
	}
	u, _, err := r.Get(ctx, userID)
	return u, err
}

func (r *Redis) Get(ctx context.Context, userID int64) (UserRecord, bool, error) {
	h, err := r.rdb.HGetAll(ctx, r.userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return UserRecord{}, false, fmt.Errorf("get user %d: %w", userID, err)
	}
	if len(h) == 0 {
		return UserRecord{}, false, nil
	}
	return decodeUser(userID, h), true, nil
}

func (r *Redis) All(ctx context.Context) ([]UserRecord, error) {
	ids, err := r.rdb.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	pipe := r.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	parsed := make([]int64, len(ids))
	for i, s := range ids {
		parsed[i], _ = strconv.ParseInt(s, 10, 64)
		cmds[i] = pipe.HGetAll(ctx, r.userKey(parsed[i]))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load users: %w", err)
	}
	out := make([]UserRecord, 0, len(ids))
	for i, c := range cmds {
		h := c.Val()
		if len(h) == 0 {
			continue
		}
		out = append(out, decodeUser(parsed[i], h))
	}
	return out, nil
}

func decodeUser(id int64, h map[string]string) UserRecord {
	u := UserRecord{
		ID:       id,
		Name:     h["name"],
		Username: h["username"],
		Language: h["language"],
	}
	u.Downloads, _ = strconv.Atoi(h["downloads"])
	if ns, err := strconv.ParseInt(h["first_seen"], 10, 64); err == nil {
		u.FirstSeen = time.Unix(0, ns)
	}
	if ns, err := strconv.ParseInt(h["last_seen"], 10, 64); err == nil {
		u.LastSeen = time.Unix(0, ns)
	}
	return u
}
