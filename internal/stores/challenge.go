package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	challengeRecordVersion1 = 1
)

var (
	ErrChallengeNotFound = errors.New("challenge session not found")
	ErrChallengeExpired  = errors.New("challenge session expired")
	ErrChallengeBackend  = errors.New("challenge session backend unavailable")
)

type ChallengeSession struct {
	Answer    int64
	Attempts  uint16
	CreatedAt int64
	ExpiresAt int64
}

type ChallengeSessionStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewChallengeSessionStore(redisClient redis.UniversalClient, prefix string) *ChallengeSessionStore {
	if prefix == "" {
		prefix = "gcs"
	}
	return &ChallengeSessionStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *ChallengeSessionStore) key(userID string) string {
	return s.prefix + ":" + userID
}

// Save overwrites any previous session for the user. Replacement is the
// one-session-per-user rule, not an error.
func (s *ChallengeSessionStore) Save(
	ctx context.Context,
	userID string,
	record *ChallengeSession,
	ttl time.Duration,
) error {
	encoded, err := encodeChallengeSession(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(userID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return nil
}

func (s *ChallengeSessionStore) Get(ctx context.Context, userID string) (*ChallengeSession, error) {
	data, err := s.redis.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}

	record, err := decodeChallengeSession(data)
	if err != nil {
		return nil, err
	}
	if time.Now().Unix() > record.ExpiresAt {
		_, _ = s.redis.Del(ctx, s.key(userID)).Result()
		return nil, ErrChallengeExpired
	}
	return record, nil
}

// Delete reports whether this caller removed the session. Concurrent
// correct answers race on this bit; only the winner may issue a grant.
func (s *ChallengeSessionStore) Delete(ctx context.Context, userID string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return n > 0, nil
}

// RecordFailure increments the attempt counter under optimistic locking.
// It returns whether the cap was reached (the session is deleted in the
// same transaction) and how many attempts remain otherwise.
func (s *ChallengeSessionStore) RecordFailure(
	ctx context.Context,
	userID string,
	maxAttempts int,
) (bool, int, error) {
	const maxRetries = 4
	key := s.key(userID)

	for i := 0; i < maxRetries; i++ {
		var exceeded bool
		var remaining int
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeChallengeSession(data)
			if err != nil {
				return err
			}
			if time.Now().Unix() > record.ExpiresAt {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrChallengeExpired
			}

			record.Attempts++
			if int(record.Attempts) >= maxAttempts {
				exceeded = true
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return nil
			}
			remaining = maxAttempts - int(record.Attempts)

			ttl := time.Until(time.Unix(record.ExpiresAt, 0))
			if ttl <= 0 {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrChallengeExpired
			}

			updated, err := encodeChallengeSession(record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return false, 0, ErrChallengeNotFound
			}
			if errors.Is(err, ErrChallengeExpired) {
				return false, 0, err
			}
			return false, 0, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
		}
		return exceeded, remaining, nil
	}

	return false, 0, ErrChallengeNotFound
}

// ActiveSessions counts live session keys with SCAN. Intended for admin
// stats, not hot paths.
func (s *ChallengeSessionStore) ActiveSessions(ctx context.Context) (int, error) {
	var cursor uint64
	total := 0
	pattern := s.prefix + ":*"

	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}

func encodeChallengeSession(record *ChallengeSession) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(challengeRecordVersion1)

	if err := binary.Write(&buf, binary.BigEndian, record.Answer); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodeChallengeSession(data []byte) (*ChallengeSession, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != challengeRecordVersion1 {
		return nil, errors.New("invalid challenge session version")
	}

	record := &ChallengeSession{}
	if err := binary.Read(reader, binary.BigEndian, &record.Answer); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	return record, nil
}
