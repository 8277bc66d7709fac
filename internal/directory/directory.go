// Package directory is the cross-process registry of publicly-visible rooms.
// It is a read replica, never a source of truth: every record carries a TTL
// so a crashed server's leftovers expire on their own, and every reader must
// tolerate "not found yet" and "slightly stale".
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix = "room:"
	// channel carries change notifications: the id of the touched room.
	channel = "rooms.changed"

	// DefaultTTL bounds how long an orphaned record survives its server.
	DefaultTTL = 2 * time.Minute
)

var ErrNotFound = errors.New("directory: record not found")

// Record is the non-authoritative projection of one public room.
type Record struct {
	ID           string `json:"id"`
	Server       string `json:"server"`
	Players      int    `json:"players"`
	Playing      bool   `json:"playing"`
	Speed        int    `json:"speed"`
	Adult        bool   `json:"adult"`
	HostNickname string `json:"hostNickname"`
	HostAvatar   int    `json:"hostAvatar"`
}

type Directory struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func New(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *Directory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Directory{rdb: rdb, ttl: ttl, log: log}
}

// Put writes (or refreshes) a record. Value and expiry land in one atomic SET
// so a crash between the two can never leave an immortal record behind.
func (d *Directory) Put(ctx context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := d.rdb.Set(ctx, keyPrefix+rec.ID, raw, d.ttl).Err(); err != nil {
		return err
	}
	if err := d.rdb.Publish(ctx, channel, rec.ID).Err(); err != nil {
		d.log.Warn("directory publish failed", zap.Error(err))
	}
	return nil
}

func (d *Directory) Get(ctx context.Context, id string) (Record, error) {
	raw, err := d.rdb.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (d *Directory) Delete(ctx context.Context, id string) error {
	if err := d.rdb.Del(ctx, keyPrefix+id).Err(); err != nil {
		return err
	}
	if err := d.rdb.Publish(ctx, channel, id).Err(); err != nil {
		d.log.Warn("directory publish failed", zap.Error(err))
	}
	return nil
}

// List scans the whole table. Records that vanish mid-scan are skipped, not
// errors; that is just TTL cleanup racing us.
func (d *Directory) List(ctx context.Context) ([]Record, error) {
	var out []Record
	iter := d.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := d.rdb.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			d.log.Warn("directory record unreadable", zap.String("key", iter.Val()), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	return out, iter.Err()
}

// Subscribe delivers a tick whenever something in the directory changed.
// Ticks are coalesced: a slow consumer sees at least one tick for a burst of
// changes, not necessarily one per change. The stream ends when ctx does.
func (d *Directory) Subscribe(ctx context.Context) <-chan struct{} {
	sub := d.rdb.Subscribe(ctx, channel)
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sub.Channel():
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out
}
