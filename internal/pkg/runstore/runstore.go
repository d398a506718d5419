package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/strategiq/swot/internal/models"
	redisc "github.com/strategiq/swot/internal/pkg/redis"
)

// RunStatus represents the lifecycle state of an analysis run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is the metadata kept for a session's latest analysis.
type Run struct {
	SessionID          string    `json:"session_id"`
	PrimaryEntity      string    `json:"primary_entity"`
	ComparisonEntities []string  `json:"comparison_entities"`
	Status             RunStatus `json:"status"`
	Error              string    `json:"error,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

const (
	keyPrefix  = "swot:run:"
	DefaultTTL = 24 * time.Hour
)

// Store keeps per-session run state in Redis: the run metadata, an ordered
// status log, a poll cursor into that log and the final analysis.
type Store struct {
	rc  *redisc.Client
	ttl time.Duration
	now func() time.Time
}

func New(rc *redisc.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rc: rc, ttl: ttl, now: time.Now}
}

func runKey(session string) string      { return keyPrefix + session }
func messagesKey(session string) string { return keyPrefix + session + ":messages" }
func cursorKey(session string) string   { return keyPrefix + session + ":cursor" }
func resultKey(session string) string   { return keyPrefix + session + ":result" }

// Start resets all state for session and records a pending run.
func (s *Store) Start(ctx context.Context, session, primary string, comparisons []string) (*Run, error) {
	now := s.now()
	run := &Run{
		SessionID:          session,
		PrimaryEntity:      primary,
		ComparisonEntities: comparisons,
		Status:             RunPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	data, err := json.Marshal(run)
	if err != nil {
		return nil, err
	}

	pipe := s.rc.Raw().TxPipeline()
	pipe.Del(ctx, messagesKey(session), cursorKey(session), resultKey(session))
	pipe.Set(ctx, runKey(session), data, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("start run %s: %w", session, err)
	}
	return run, nil
}

// Get returns the run metadata, or nil if the session has none.
func (s *Store) Get(ctx context.Context, session string) (*Run, error) {
	data, err := s.rc.Raw().Get(ctx, runKey(session)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var run Run
	return &run, json.Unmarshal(data, &run)
}

// UpdateStatus sets the run status and optional error message.
func (s *Store) UpdateStatus(ctx context.Context, session string, status RunStatus, errMsg string) error {
	run, err := s.Get(ctx, session)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", session)
	}

	run.Status = status
	run.Error = errMsg
	run.UpdatedAt = s.now()

	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return s.rc.Raw().Set(ctx, runKey(session), data, s.ttl).Err()
}

// Append adds a status message to the end of the session log.
func (s *Store) Append(ctx context.Context, session, message string) error {
	pipe := s.rc.Raw().TxPipeline()
	pipe.RPush(ctx, messagesKey(session), message)
	pipe.Expire(ctx, messagesKey(session), s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Messages returns the complete status log.
func (s *Store) Messages(ctx context.Context, session string) ([]string, error) {
	return s.rc.Raw().LRange(ctx, messagesKey(session), 0, -1).Result()
}

// NextMessages returns the messages appended since the previous call and
// advances the cursor. first is true when nothing had been delivered yet.
func (s *Store) NextMessages(ctx context.Context, session string) (messages []string, first bool, err error) {
	last, err := s.rc.Raw().Get(ctx, cursorKey(session)).Int64()
	if err == redis.Nil {
		last, err = 0, nil
	}
	if err != nil {
		return nil, false, err
	}

	messages, err = s.rc.Raw().LRange(ctx, messagesKey(session), last, -1).Result()
	if err != nil {
		return nil, false, err
	}
	if len(messages) == 0 {
		return nil, false, nil
	}

	next := last + int64(len(messages))
	if err := s.rc.Raw().Set(ctx, cursorKey(session), next, s.ttl).Err(); err != nil {
		return nil, false, err
	}
	return messages, last == 0, nil
}

// SetResult stores the finished analysis and marks the run completed.
func (s *Store) SetResult(ctx context.Context, session string, analysis *models.SwotAnalysis) error {
	data, err := json.Marshal(analysis)
	if err != nil {
		return err
	}
	if err := s.rc.Raw().Set(ctx, resultKey(session), data, s.ttl).Err(); err != nil {
		return err
	}
	return s.UpdateStatus(ctx, session, RunCompleted, "")
}

// Result returns the finished analysis, or nil if there is none yet.
func (s *Store) Result(ctx context.Context, session string) (*models.SwotAnalysis, error) {
	data, err := s.rc.Raw().Get(ctx, resultKey(session)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var analysis models.SwotAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", session, err)
	}
	return &analysis, nil
}

// Delete removes every key belonging to session.
func (s *Store) Delete(ctx context.Context, session string) error {
	return s.rc.Del(ctx, runKey(session), messagesKey(session), cursorKey(session), resultKey(session))
}
