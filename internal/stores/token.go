package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	linkTokenRecordVersion1 = 1
)

var (
	ErrLinkTokenNotFound = errors.New("link token not found")
	ErrLinkTokenExpired  = errors.New("link token expired")
	ErrLinkTokenBackend  = errors.New("link token backend unavailable")
)

type LinkToken struct {
	Resource  string
	BatchID   string
	UserID    string
	IssuedAt  int64
	ExpiresAt int64
}

type LinkTokenStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewLinkTokenStore(redisClient redis.UniversalClient, prefix string) *LinkTokenStore {
	if prefix == "" {
		prefix = "glt"
	}
	return &LinkTokenStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *LinkTokenStore) key(tokenID string) string {
	return s.prefix + ":" + tokenID
}

// Issue stores the record only when tokenID is unused. A false return
// means the id collided and the caller must generate another.
func (s *LinkTokenStore) Issue(
	ctx context.Context,
	tokenID string,
	record *LinkToken,
	ttl time.Duration,
) (bool, error) {
	encoded, err := encodeLinkToken(record)
	if err != nil {
		return false, err
	}
	ok, err := s.redis.SetNX(ctx, s.key(tokenID), encoded, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLinkTokenBackend, err)
	}
	return ok, nil
}

// Get is the authoritative validity check. The encoded expiry is compared
// against the wall clock on every read; Redis key TTLs only reclaim space.
func (s *LinkTokenStore) Get(ctx context.Context, tokenID string) (*LinkToken, error) {
	data, err := s.redis.Get(ctx, s.key(tokenID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrLinkTokenNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrLinkTokenBackend, err)
	}

	record, err := decodeLinkToken(data)
	if err != nil {
		return nil, err
	}
	if time.Now().Unix() >= record.ExpiresAt {
		_, _ = s.redis.Del(ctx, s.key(tokenID)).Result()
		return nil, ErrLinkTokenExpired
	}
	return record, nil
}

// Revoke deletes the record. Revoking an absent or already revoked token
// reports false with no error.
func (s *LinkTokenStore) Revoke(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLinkTokenBackend, err)
	}
	return n > 0, nil
}

// SweepExpired removes records whose encoded expiry has passed but whose
// key is still present. Purely a space optimization; Get stays correct
// without it.
func (s *LinkTokenStore) SweepExpired(ctx context.Context) (int, error) {
	var cursor uint64
	removed := 0
	now := time.Now().Unix()
	pattern := s.prefix + ":*"

	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return removed, fmt.Errorf("%w: %v", ErrLinkTokenBackend, err)
		}

		for _, key := range keys {
			data, err := s.redis.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return removed, fmt.Errorf("%w: %v", ErrLinkTokenBackend, err)
			}
			record, err := decodeLinkToken(data)
			if err != nil {
				continue
			}
			if now >= record.ExpiresAt {
				n, err := s.redis.Del(ctx, key).Result()
				if err != nil {
					return removed, fmt.Errorf("%w: %v", ErrLinkTokenBackend, err)
				}
				removed += int(n)
			}
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

// ActiveCount counts stored token keys with SCAN. Intended for admin
// stats, not hot paths.
func (s *LinkTokenStore) ActiveCount(ctx context.Context) (int, error) {
	var cursor uint64
	total := 0
	pattern := s.prefix + ":*"

	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrLinkTokenBackend, err)
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}

func encodeLinkToken(record *LinkToken) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(linkTokenRecordVersion1)

	if err := binary.Write(&buf, binary.BigEndian, record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.Resource) > 65535 || len(record.BatchID) > 65535 || len(record.UserID) > 65535 {
		return nil, errors.New("link token field length exceeded")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.Resource))); err != nil {
		return nil, err
	}
	buf.WriteString(record.Resource)
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.BatchID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.BatchID)
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.UserID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.UserID)

	return buf.Bytes(), nil
}

func decodeLinkToken(data []byte) (*LinkToken, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != linkTokenRecordVersion1 {
		return nil, errors.New("invalid link token version")
	}

	record := &LinkToken{}
	if err := binary.Read(reader, binary.BigEndian, &record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	readString := func() (string, error) {
		var n uint16
		if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
			return "", err
		}
		raw := make([]byte, n)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return "", err
		}
		return string(raw), nil
	}

	if record.Resource, err = readString(); err != nil {
		return nil, err
	}
	if record.BatchID, err = readString(); err != nil {
		return nil, err
	}
	if record.UserID, err = readString(); err != nil {
		return nil, err
	}

	return record, nil
}
