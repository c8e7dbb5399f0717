// Package cache puts a Redis read-through layer in front of the board
// repository so that board loads skip the database while nothing changes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yukikurage/project-board-api/internal/models"
	"github.com/yukikurage/project-board-api/internal/repository"
)

// BoardRepository wraps a repository.BoardRepository and caches column and
// card listings in Redis. Writes go to the base repository first and then
// evict every listing they could have changed. Evictions bump a generation
// counter per listing; a fill is dropped when the generation moved since
// the base read began.
type BoardRepository struct {
	repository.BoardRepository
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewBoardRepository creates the caching wrapper. A nil client or zero TTL
// turns caching off.
func NewBoardRepository(base repository.BoardRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *BoardRepository {
	if base == nil {
		panic("cache.NewBoardRepository: base repository is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoardRepository{BoardRepository: base, redis: client, ttl: ttl, logger: logger}
}

func (r *BoardRepository) ListColumns(ctx context.Context, projectID uint64) ([]models.Column, error) {
	key := columnsKey(projectID)
	var columns []models.Column
	if r.load(ctx, key, &columns) {
		return columns, nil
	}

	gen := r.generation(ctx, key)
	columns, err := r.BoardRepository.ListColumns(ctx, projectID)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, gen, columns)
	return columns, nil
}

func (r *BoardRepository) ListCards(ctx context.Context, columnID uint64) ([]models.Card, error) {
	key := cardsKey(columnID)
	var cards []models.Card
	if r.load(ctx, key, &cards) {
		return cards, nil
	}

	gen := r.generation(ctx, key)
	cards, err := r.BoardRepository.ListCards(ctx, columnID)
	if err != nil {
		return nil, err
	}
	if r.store(ctx, key, gen, cards) {
		r.indexCards(ctx, cards)
	}
	return cards, nil
}

func (r *BoardRepository) UpdateCard(ctx context.Context, cardID uint64, fields repository.CardFields) error {
	keys := r.cardKeys(ctx, cardID)
	if fields.ColumnID != nil {
		keys = append(keys, cardsKey(*fields.ColumnID), cardColumnKey(cardID))
	}
	err := r.BoardRepository.UpdateCard(ctx, cardID, fields)
	// evict even on failure; the base may have written part of the row
	r.evict(ctx, keys...)
	return err
}

func (r *BoardRepository) UpdateCardsBatch(ctx context.Context, updates []repository.CardUpdate) error {
	var keys []string
	for _, u := range updates {
		keys = append(keys, r.cardKeys(ctx, u.CardID)...)
		if u.Fields.ColumnID != nil {
			keys = append(keys, cardsKey(*u.Fields.ColumnID), cardColumnKey(u.CardID))
		}
	}
	err := r.BoardRepository.UpdateCardsBatch(ctx, updates)
	r.evict(ctx, keys...)
	return err
}

func (r *BoardRepository) CreateCard(ctx context.Context, card *models.Card) error {
	if err := r.BoardRepository.CreateCard(ctx, card); err != nil {
		return err
	}
	r.evict(ctx, cardsKey(card.ColumnID))
	return nil
}

func (r *BoardRepository) DeleteCard(ctx context.Context, id uint64) error {
	keys := r.cardKeys(ctx, id)
	if err := r.BoardRepository.DeleteCard(ctx, id); err != nil {
		return err
	}
	r.evict(ctx, append(keys, cardColumnKey(id))...)
	return nil
}

func (r *BoardRepository) CreateColumn(ctx context.Context, column *models.Column) error {
	if err := r.BoardRepository.CreateColumn(ctx, column); err != nil {
		return err
	}
	r.evict(ctx, columnsKey(column.ProjectID))
	return nil
}

func (r *BoardRepository) UpdateColumn(ctx context.Context, id uint64, fields repository.ColumnFields) error {
	column, err := r.BoardRepository.FindColumn(ctx, id)
	if err != nil {
		return err
	}
	if err := r.BoardRepository.UpdateColumn(ctx, id, fields); err != nil {
		return err
	}
	r.evict(ctx, columnsKey(column.ProjectID))
	return nil
}

func (r *BoardRepository) DeleteColumn(ctx context.Context, id uint64) error {
	column, err := r.BoardRepository.FindColumn(ctx, id)
	if err != nil {
		return err
	}
	if err := r.BoardRepository.DeleteColumn(ctx, id); err != nil {
		return err
	}
	r.evict(ctx, columnsKey(column.ProjectID), cardsKey(id))
	return nil
}

// cardKeys returns the listing keys a card currently appears under. The
// card's column comes from the index written by ListCards, falling back to
// the base repository.
func (r *BoardRepository) cardKeys(ctx context.Context, cardID uint64) []string {
	if r.redis != nil {
		if v, err := r.redis.Get(ctx, cardColumnKey(cardID)).Uint64(); err == nil {
			return []string{cardsKey(v)}
		}
	}
	card, err := r.BoardRepository.FindCard(ctx, cardID)
	if err != nil {
		return nil
	}
	return []string{cardsKey(card.ColumnID)}
}

func (r *BoardRepository) indexCards(ctx context.Context, cards []models.Card) {
	if r.redis == nil || r.ttl == 0 || len(cards) == 0 {
		return
	}
	pipe := r.redis.Pipeline()
	for _, c := range cards {
		pipe.Set(ctx, cardColumnKey(c.ID), c.ColumnID, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("index cards in redis", zap.Error(err))
	}
}

func (r *BoardRepository) load(ctx context.Context, key string, dst any) bool {
	if r.redis == nil {
		return false
	}
	data, err := r.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("read board cache", zap.String("key", key), zap.Error(err))
			_ = r.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		r.logger.Warn("decode board cache", zap.String("key", key), zap.Error(err))
		_ = r.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

var errStaleFill = errors.New("listing changed during read")

// generation returns the eviction count of a listing. A missing counter is 0.
func (r *BoardRepository) generation(ctx context.Context, key string) int64 {
	if r.redis == nil || r.ttl == 0 {
		return 0
	}
	n, err := r.redis.Get(ctx, generationKey(key)).Int64()
	if err != nil {
		return 0
	}
	return n
}

// store fills key unless a write evicted it after gen was read. It reports
// whether the value was written.
func (r *BoardRepository) store(ctx context.Context, key string, gen int64, v any) bool {
	if r.redis == nil || r.ttl == 0 {
		return false
	}
	data, err := json.Marshal(v)
	if err != nil {
		return false
	}

	genKey := generationKey(key)
	err = r.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
		return true
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		r.logger.Debug("skip stale board cache fill", zap.String("key", key))
	default:
		r.logger.Warn("write board cache", zap.String("key", key), zap.Error(err))
	}
	return false
}

func (r *BoardRepository) evict(ctx context.Context, keys ...string) {
	if r.redis == nil || len(keys) == 0 {
		return
	}
	pipe := r.redis.TxPipeline()
	pipe.Del(ctx, keys...)
	for _, key := range keys {
		genKey := generationKey(key)
		pipe.Incr(ctx, genKey)
		// outlives any base read that started before this write
		pipe.Expire(ctx, genKey, generationTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("evict board cache", zap.Strings("keys", keys), zap.Error(err))
	}
}

const generationTTL = time.Hour

func generationKey(key string) string {
	return "board:gen:" + key
}

func columnsKey(projectID uint64) string {
	return "board:columns:" + strconv.FormatUint(projectID, 10)
}

func cardsKey(columnID uint64) string {
	return "board:cards:" + strconv.FormatUint(columnID, 10)
}

func cardColumnKey(cardID uint64) string {
	return "board:card-column:" + strconv.FormatUint(cardID, 10)
}
