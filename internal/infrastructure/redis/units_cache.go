package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// UnitsCache は書籍の貸出可能冊数のキャッシュを管理する
// 在庫を変更する操作（確定・返却・繰上げ）のたびに無効化する
type UnitsCache struct {
	client *redis.Client
}

// NewUnitsCache は新しい UnitsCache インスタンスを作成する
func NewUnitsCache(client *redis.Client) *UnitsCache {
	return &UnitsCache{client: client}
}

// GetAvailableUnits は書籍の貸出可能冊数をキャッシュから取得する
func (c *UnitsCache) GetAvailableUnits(ctx context.Context, bookID int64) (int, error) {
	key := c.unitsKey(bookID)
	val, err := c.client.Get(ctx, key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

// SetAvailableUnits は書籍の貸出可能冊数をキャッシュに保存する
func (c *UnitsCache) SetAvailableUnits(ctx context.Context, bookID int64, units int, ttl time.Duration) error {
	key := c.unitsKey(bookID)
	if err := c.client.Set(ctx, key, units, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate は書籍のキャッシュを無効化する
func (c *UnitsCache) Invalidate(ctx context.Context, bookID int64) error {
	key := c.unitsKey(bookID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *UnitsCache) unitsKey(bookID int64) string {
	return fmt.Sprintf("books:units:%d", bookID)
}
