package auth

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/gomodule/redigo/redis"
)

// FileStore keeps the token in a local json file
type FileStore struct {
	Path string
}

// Load reads the token file, a missing file is an empty cache
func (s FileStore) Load(ctx context.Context) (*Token, error) {
	b, err := ioutil.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var t Token
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Save overwrites the token file through a rename so readers never see half a record
func (s FileStore) Save(ctx context.Context, t *Token) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	tmp, err := ioutil.TempFile(filepath.Dir(s.Path), ".token-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path)
}

// RedisStore keeps the token under a single redis key
type RedisStore struct {
	Pool *redis.Pool
	Key  string
}

// NewRedisPool dials addr lazily
func NewRedisPool(addr string) *redis.Pool {
	return &redis.Pool{
		MaxIdle: 1,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", addr)
		},
	}
}

// Load gets the token key, a missing key is an empty cache
func (s RedisStore) Load(ctx context.Context) (*Token, error) {
	conn := s.Pool.Get()
	defer conn.Close()
	b, err := redis.Bytes(conn.Do("GET", s.Key))
	if err == redis.ErrNil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var t Token
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Save overwrites the token key
func (s RedisStore) Save(ctx context.Context, t *Token) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	conn := s.Pool.Get()
	defer conn.Close()
	_, err = conn.Do("SET", s.Key, b)
	return err
}
