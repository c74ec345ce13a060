package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"autoparts/catalog/internal/domain"
	"autoparts/catalog/internal/domain/task"
	"autoparts/catalog/internal/queue"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// EnqueuePrecompute queues one precompute task per query and returns the message IDs.
func (s *Service) EnqueuePrecompute(ctx context.Context, queries []domain.EquivalenceQuery) ([]string, error) {
	ids := make([]string, 0, len(queries))
	for _, q := range queries {
		q.CountryID = s.country(q.CountryID)

		id, err := s.queue.AddTask(ctx, &task.EquivalenceTask{Query: q})
		if err != nil {
			return ids, fmt.Errorf("failed to enqueue article %d: %w", q.ArticleID, err)
		}
		ids = append(ids, id)
	}

	log.Infof("📥 Queued %d equivalents sections for precompute", len(ids))
	return ids, nil
}

// RunWorkers consumes precompute tasks until ctx is cancelled.
func (s *Service) RunWorkers(ctx context.Context, numWorkers int) error {
	var wg sync.WaitGroup

	// Run workers for both regular and retry tasks
	s.runWorkersForStream(ctx, &wg, numWorkers, task.TypeEquivalence, "main")
	s.runWorkersForStream(ctx, &wg, max(1, numWorkers/2), task.TypeEquivalenceRetry, "retry")

	wg.Wait()
	return nil
}

func (s *Service) runWorkersForStream(ctx context.Context, wg *sync.WaitGroup, numWorkers int, taskType, workerType string) {
	// Auto-claimer for this stream
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.minIdleTime)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				consumer := fmt.Sprintf("autoclaimer-%s", workerType)
				claimedMessages, err := s.queue.AutoClaim(ctx, consumer, taskType, s.minIdleTime)
				if err != nil {
					log.Errorf("❌ Failed to auto-claim messages for %s: %v", taskType, err)
					continue
				}
				if len(claimedMessages) > 0 {
					log.Infof("🔄 Auto-claimed %d messages from %s stream", len(claimedMessages), workerType)
					for _, msg := range claimedMessages {
						if err := s.processMessage(ctx, &msg); err != nil {
							log.Errorf("❌ Failed to process auto-claimed message %s: %v", msg.ID, err)
						}
					}
				}
			}
		}
	}()

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			consumer := fmt.Sprintf("%s-worker-%d", workerType, workerID)
			var backoff time.Duration
			log.Infof("🚀 Starting %s worker %d as consumer %s", workerType, workerID, consumer)
			for {
				select {
				case <-ctx.Done():
					log.Infof("🛑 %s worker %d stopping", workerType, workerID)
					return
				default:
					msg, err := s.queue.GetTask(ctx, consumer, taskType)
					if err != nil {
						if ctx.Err() != nil {
							continue
						}
						backoff = nextBackoff(backoff, s.pollBackoff)
						log.Errorf("❌ Failed to get task from %s, retrying in %v: %v", taskType, backoff, err)
						select {
						case <-ctx.Done():
						case <-time.After(backoff):
						}
						continue
					}
					backoff = 0

					if msg != nil {
						if err := s.processMessage(ctx, msg); err != nil {
							log.Errorf("❌ Failed to process message %s: %v", msg.ID, err)
						}
					}
				}
			}
		}(i + 1)
	}
}

// nextBackoff doubles the wait after every consecutive read failure, starting
// at base and capped at maxPollBackoff.
func nextBackoff(prev, base time.Duration) time.Duration {
	if prev <= 0 {
		return base
	}
	return min(prev*2, maxPollBackoff)
}

func (s *Service) processMessage(ctx context.Context, msg *redis.XMessage) error {
	taskType, ok := msg.Values["task_type"].(string)
	if !ok {
		return fmt.Errorf("invalid task type in message %s", msg.ID)
	}

	taskData, err := queue.TaskData(*msg)
	if err != nil {
		return err
	}

	switch taskType {
	case task.TypeEquivalence:
		t, err := task.UnmarshalTask[*task.EquivalenceTask](taskData)
		if err != nil {
			return fmt.Errorf("failed to unmarshal equivalence task data: %w", err)
		}

		if err := s.precompute(ctx, t.Query); err != nil {
			// Add to retry queue instead of failing completely
			retryTask := &task.EquivalenceRetryTask{Query: t.Query, Error: err.Error()}
			if _, addErr := s.queue.AddTask(ctx, retryTask); addErr != nil {
				return fmt.Errorf("failed to add retry task for article %d: %w", t.Query.ArticleID, addErr)
			}
			log.Warnf("🔄 Added article %d to retry queue due to error: %v", t.Query.ArticleID, err)
		}

	case task.TypeEquivalenceRetry:
		t, err := task.UnmarshalTask[*task.EquivalenceRetryTask](taskData)
		if err != nil {
			return fmt.Errorf("failed to unmarshal retry task data: %w", err)
		}

		if err := s.retry(ctx, t); err != nil {
			return fmt.Errorf("failed to retry article %d: %w", t.Query.ArticleID, err)
		}

	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}

	if err := s.queue.AckTask(ctx, taskType, msg.ID); err != nil {
		return fmt.Errorf("failed to ack message %s: %w", msg.ID, err)
	}

	return nil
}

// precompute builds the section for q and stores it.
func (s *Service) precompute(ctx context.Context, q domain.EquivalenceQuery) error {
	section, err := s.buildSection(ctx, q)
	if err != nil {
		return err
	}

	if err := s.repository.SaveSection(ctx, q, section); err != nil {
		return err
	}

	log.Debugf("💾 Stored %d equivalents for article %d", len(section.Equivalents), q.ArticleID)
	return nil
}

func (s *Service) retry(ctx context.Context, t *task.EquivalenceRetryTask) error {
	t.RetryCount++

	log.Infof("🔄 Retrying article %d (attempt %d)", t.Query.ArticleID, t.RetryCount)

	err := s.precompute(ctx, t.Query)
	if err == nil {
		log.Infof("✅ Recovered article %d after %d attempts", t.Query.ArticleID, t.RetryCount)
		return nil
	}

	if t.RetryCount >= s.maxRetries {
		log.Errorf("❌ Giving up on article %d after %d attempts: %v", t.Query.ArticleID, t.RetryCount, err)
		return nil
	}

	next := &task.EquivalenceRetryTask{Query: t.Query, RetryCount: t.RetryCount, Error: err.Error()}
	if _, addErr := s.queue.AddTask(ctx, next); addErr != nil {
		return addErr
	}

	log.Warnf("🔄 Article %d failed again, will retry (attempt %d): %v", t.Query.ArticleID, t.RetryCount, err)
	return nil
}
