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
	challengeRecordVersionV1 = 1
)

var (
	ErrChallengeRecordInvalid     = errors.New("challenge record invalid")
	ErrChallengeRedisUnavailable  = errors.New("challenge redis unavailable")
	errChallengeFieldTooLong      = errors.New("challenge record field too long")
	errChallengeUnexpectedVersion = errors.New("invalid challenge record version")
)

// ChallengeRecord is the persisted half of a challenge-response conversation.
type ChallengeRecord struct {
	ServiceName  string
	Challenge    string
	SharedSecret string
}

// ChallengeStore keeps challenge records in Redis. Take is a single GETDEL, so
// two concurrent takers of the same key can never both observe the record.
type ChallengeStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewChallengeStore(redisClient redis.UniversalClient, prefix string) *ChallengeStore {
	if prefix == "" {
		prefix = "agc"
	}
	return &ChallengeStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *ChallengeStore) key(serviceName string) string {
	return s.prefix + ":" + serviceName
}

func (s *ChallengeStore) Put(ctx context.Context, serviceName string, record *ChallengeRecord, ttl time.Duration) error {
	encoded, err := encodeChallengeRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(serviceName), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeRedisUnavailable, err)
	}

	return nil
}

// Take atomically reads and deletes the record. A missing or expired key
// returns (nil, false, nil).
func (s *ChallengeStore) Take(ctx context.Context, serviceName string) (*ChallengeRecord, bool, error) {
	data, err := s.redis.GetDel(ctx, s.key(serviceName)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: %v", ErrChallengeRedisUnavailable, err)
	}

	record, err := decodeChallengeRecord(data)
	if err != nil {
		// The key is gone either way; a corrupt record reads as absent.
		return nil, false, nil
	}

	return record, true, nil
}

func encodeChallengeRecord(record *ChallengeRecord) ([]byte, error) {
	if record == nil {
		return nil, ErrChallengeRecordInvalid
	}

	var buf bytes.Buffer
	buf.WriteByte(challengeRecordVersionV1)

	for _, field := range []string{record.ServiceName, record.Challenge, record.SharedSecret} {
		if len(field) > 65535 {
			return nil, errChallengeFieldTooLong
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

func decodeChallengeRecord(data []byte) (*ChallengeRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != challengeRecordVersionV1 {
		return nil, errChallengeUnexpectedVersion
	}

	fields := make([]string, 3)
	for i := range fields {
		var n uint16
		if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
			return nil, err
		}
		value := make([]byte, n)
		if _, err := io.ReadFull(reader, value); err != nil {
			return nil, err
		}
		fields[i] = string(value)
	}
	if reader.Len() != 0 {
		return nil, ErrChallengeRecordInvalid
	}

	return &ChallengeRecord{
		ServiceName:  fields[0],
		Challenge:    fields[1],
		SharedSecret: fields[2],
	}, nil
}
