package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/gokatarajesh/lightning-rounds/internal/question"
)

// Persistence modes accepted by configuration.
const (
	PersistNone  = "none"
	PersistFile  = "file"
	PersistRedis = "redis"
)

// FilePersister writes the whole bank, asked flags included, back to disk.
type FilePersister struct {
	path   string
	source string
}

var _ Persister = (*FilePersister)(nil)

// NewFilePersister saves to path. When path is empty or equals the bank
// source, the bank file itself is rewritten. A separate state file that does
// not exist yet leaves the bank's own flags in place.
func NewFilePersister(path, source string) *FilePersister {
	if path == "" {
		path = source
	}
	return &FilePersister{path: path, source: source}
}

func (p *FilePersister) Restore(_ context.Context, bank []question.Question) error {
	if filepath.Clean(p.path) == filepath.Clean(p.source) {
		return nil
	}
	if _, err := os.Stat(p.path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	saved, err := ReadBank(p.path)
	if err != nil {
		return err
	}
	asked := make(map[int64]bool, len(saved))
	for _, q := range saved {
		asked[q.ID] = q.Asked
	}
	for i := range bank {
		bank[i].Asked = asked[bank[i].ID]
	}
	return nil
}

func (p *FilePersister) MarkAsked(_ context.Context, bank []question.Question, _ int64) error {
	return p.write(bank)
}

func (p *FilePersister) Reset(_ context.Context, bank []question.Question) error {
	return p.write(bank)
}

func (p *FilePersister) write(bank []question.Question) error {
	data, err := json.MarshalIndent(bank, "", "  ")
	if err != nil {
		return fmt.Errorf("encode bank: %w", err)
	}

	dir := filepath.Dir(p.path)
	tmp, err := os.CreateTemp(dir, ".questions-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("replace %s: %w", p.path, err)
	}
	return nil
}

type setStore interface {
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisPersister keeps asked ids in a Redis set so the state survives
// restarts and is shared by every instance reading the same bank file.
// Writes touch single members, and stores re-read the set before each
// operation, so instances never overwrite each other's marks.
type RedisPersister struct {
	client setStore
	key    string
}

var _ Persister = (*RedisPersister)(nil)

func NewRedisPersister(client setStore, key string) *RedisPersister {
	if key == "" {
		key = "lightning:asked"
	}
	return &RedisPersister{client: client, key: key}
}

// Shared reports that other processes may change the asked set.
func (p *RedisPersister) Shared() bool { return true }

func (p *RedisPersister) Restore(ctx context.Context, bank []question.Question) error {
	members, err := p.client.SMembers(ctx, p.key).Result()
	if err != nil {
		return fmt.Errorf("read asked set: %w", err)
	}
	asked := make(map[int64]bool, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		asked[id] = true
	}
	for i := range bank {
		bank[i].Asked = asked[bank[i].ID]
	}
	return nil
}

func (p *RedisPersister) MarkAsked(ctx context.Context, _ []question.Question, id int64) error {
	if err := p.client.SAdd(ctx, p.key, strconv.FormatInt(id, 10)).Err(); err != nil {
		return fmt.Errorf("add to asked set: %w", err)
	}
	return nil
}

func (p *RedisPersister) Reset(ctx context.Context, _ []question.Question) error {
	if err := p.client.Del(ctx, p.key).Err(); err != nil {
		return fmt.Errorf("clear asked set: %w", err)
	}
	return nil
}
