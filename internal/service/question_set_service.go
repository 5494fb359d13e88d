package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/hireflow-backend/internal/config"
	"github.com/stemsi/hireflow-backend/internal/model"
	"github.com/stemsi/hireflow-backend/internal/repository"
	"golang.org/x/sync/singleflight"
)

// QuestionSetService resolves a test into its ordered, weighted question set
// and serves the candidate-facing paper through a Redis cache.
type QuestionSetService struct {
	tx  repository.TxManager
	rdb *redis.Client
	ttl time.Duration
	sf  singleflight.Group
	log zerolog.Logger
}

// NewQuestionSetService creates a new QuestionSetService. A nil rdb disables caching.
func NewQuestionSetService(tx repository.TxManager, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *QuestionSetService {
	return &QuestionSetService{
		tx:  tx,
		rdb: rdb,
		ttl: cfg.PaperCacheTTL,
		log: log.With().Str("component", "question_set_service").Logger(),
	}
}

// Resolve loads a test and its questions through repos, which may be bound
// to a transaction.
func (s *QuestionSetService) Resolve(ctx context.Context, repos repository.Repos, testID int64) (*model.QuestionSet, error) {
	test, err := repos.Tests.GetTest(ctx, testID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("get test: %w", err)
	}
	questions, err := repos.Tests.ListQuestions(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return &model.QuestionSet{Test: *test, Questions: questions}, nil
}

// Snapshot strips correctness flags from qs. Free-form questions carry no options.
func Snapshot(qs *model.QuestionSet) *model.TestPaper {
	paper := &model.TestPaper{
		TestID:    qs.Test.ID,
		Name:      qs.Test.Name,
		Duration:  qs.Test.DurationMinutes,
		Questions: make([]model.QuestionForCandidate, 0, len(qs.Questions)),
	}
	for _, q := range qs.Questions {
		fq := model.QuestionForCandidate{
			ID:      q.ID,
			Text:    q.Text,
			Type:    q.Type,
			Order:   q.Order,
			Weight:  q.Weight,
			Options: []model.OptionForCandidate{},
		}
		if q.Type.IsChoice() {
			for _, o := range q.Options {
				fq.Options = append(fq.Options, model.OptionForCandidate{ID: o.ID, Text: o.Text})
			}
		}
		paper.Questions = append(paper.Questions, fq)
	}
	return paper
}

// Paper returns the candidate-facing paper of a test, cache-aside.
// Concurrent misses for one test share a single database load.
func (s *QuestionSetService) Paper(ctx context.Context, testID int64) (*model.TestPaper, error) {
	if paper, ok := s.cached(ctx, testID); ok {
		return paper, nil
	}

	v, err, _ := s.sf.Do(strconv.FormatInt(testID, 10), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if paper, ok := s.cached(ctx, testID); ok {
			return paper, nil
		}
		qs, err := s.Resolve(ctx, s.tx.Repos(), testID)
		if err != nil {
			return nil, err
		}
		paper := Snapshot(qs)
		s.store(ctx, paper)
		return paper, nil
	})
	if err != nil {
		return nil, err
	}
	// Callers may share the value, so each gets its own copy of the slice.
	paper := *v.(*model.TestPaper)
	paper.Questions = append([]model.QuestionForCandidate(nil), paper.Questions...)
	return &paper, nil
}

func (s *QuestionSetService) cached(ctx context.Context, testID int64) (*model.TestPaper, bool) {
	if s.rdb == nil {
		return nil, false
	}
	data, err := s.rdb.Get(ctx, config.CacheKey.TestPaperKey(testID)).Bytes()
	switch {
	case err == nil:
		var paper model.TestPaper
		if err := json.Unmarshal(data, &paper); err == nil {
			return &paper, true
		}
		s.log.Warn().Int64("test_id", testID).Msg("Discarding undecodable cached paper")
	case !errors.Is(err, redis.Nil):
		s.log.Warn().Err(err).Int64("test_id", testID).Msg("Paper cache read failed")
	}
	return nil, false
}

// Warm writes a freshly built paper into the cache.
func (s *QuestionSetService) Warm(ctx context.Context, qs *model.QuestionSet) {
	s.store(ctx, Snapshot(qs))
}

// Invalidate drops the cached paper of a test.
func (s *QuestionSetService) Invalidate(ctx context.Context, testID int64) error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Del(ctx, config.CacheKey.TestPaperKey(testID)).Err()
}

func (s *QuestionSetService) store(ctx context.Context, paper *model.TestPaper) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(paper)
	if err != nil {
		s.log.Warn().Err(err).Int64("test_id", paper.TestID).Msg("Failed to encode paper")
		return
	}
	if err := s.rdb.Set(ctx, config.CacheKey.TestPaperKey(paper.TestID), data, s.ttl).Err(); err != nil {
		s.log.Warn().Err(err).Int64("test_id", paper.TestID).Msg("Paper cache write failed")
	}
}

// RefreshPaper rebuilds the cached paper of a test from the database.
func (s *QuestionSetService) RefreshPaper(ctx context.Context, testID int64) (*model.TestPaper, error) {
	if err := s.Invalidate(ctx, testID); err != nil {
		return nil, fmt.Errorf("invalidate paper: %w", err)
	}
	paper, err := s.Paper(ctx, testID)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("test_id", testID).Int("questions", len(paper.Questions)).Msg("Paper cache refreshed")
	return paper, nil
}
