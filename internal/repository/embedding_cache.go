package repository

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/dgraph-io/badger/v4"

	"github.com/user/cinematch/internal/logging"
)

const embeddingKeyPrefix = "emb:"

// EmbeddingCache Badger 持久化的句向量缓存，key 为模型与文本的摘要
type EmbeddingCache struct {
	db *badger.DB
}

// OpenEmbeddingCache 打开缓存目录，dir 为空时使用内存模式
func OpenEmbeddingCache(dir string) (*EmbeddingCache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("打开向量缓存失败: %w", err)
	}
	return &EmbeddingCache{db: db}, nil
}

// NewEmbeddingCache 使用已打开的 Badger 实例
func NewEmbeddingCache(db *badger.DB) *EmbeddingCache {
	return &EmbeddingCache{db: db}
}

// Get 读取向量，不存在或读取失败都视为未命中
func (c *EmbeddingCache) Get(key string) ([]float32, bool) {
	var vec []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(embeddingKeyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			vec, err = decodeVector(val)
			return err
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			logging.Warn().Err(err).Str("key", key).Msg("[Embedding] 读取向量缓存失败")
		}
		return nil, false
	}
	return vec, true
}

// Put 写入向量
func (c *EmbeddingCache) Put(key string, vec []float32) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(embeddingKeyPrefix+key), encodeVector(vec))
	})
}

// Len 已缓存的向量数量
func (c *EmbeddingCache) Len() (int, error) {
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(embeddingKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close 关闭底层数据库
func (c *EmbeddingCache) Close() error {
	return c.db.Close()
}

// encodeVector float32 小端序编码
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, x := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("向量数据长度 %d 不是 4 的倍数", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}
