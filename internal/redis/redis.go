package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fedutinova/drivescribe/internal/common"
	"github.com/fedutinova/drivescribe/internal/job"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const jobKeyPrefix = "drivescribe:job:"

// Service mirrors job status records so any replica can answer GET /jobs/{id}.
type Service struct {
	client *redis.Client
	ttl    time.Duration
}

func New(redisURL string, statusTTL time.Duration) (*Service, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewFromClient(client, statusTTL), nil
}

func NewFromClient(client *redis.Client, statusTTL time.Duration) *Service {
	return &Service{client: client, ttl: statusTTL}
}

func (s *Service) Close() error {
	return s.client.Close()
}

func (s *Service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func jobKey(id uuid.UUID) string {
	return jobKeyPrefix + id.String()
}

func (s *Service) SaveJob(ctx context.Context, j *job.Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return s.client.Set(ctx, jobKey(j.ID), data, s.ttl).Err()
}

func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	data, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, common.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job status: %w", err)
	}

	var j job.Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job status: %w", err)
	}
	return &j, nil
}
