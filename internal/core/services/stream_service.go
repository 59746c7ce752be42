package services

import (
	"context"
	"errors"
	"fmt"

	"streamhub/internal/core/domain"
	"streamhub/internal/core/ports"

	"go.uber.org/zap"
)

type streamService struct {
	streamRepo ports.StreamRepository
	clock      ports.Clock
	logger     *zap.SugaredLogger
	observer   ports.StreamObserver
}

// NewStreamService creates the stream service. observer may be nil.
func NewStreamService(
	streamRepo ports.StreamRepository,
	clock ports.Clock,
	logger *zap.SugaredLogger,
	observer ports.StreamObserver,
) ports.StreamService {
	return &streamService{
		streamRepo: streamRepo,
		clock:      clock,
		logger:     logger,
		observer:   observer,
	}
}

func (s *streamService) CreateStream(ctx context.Context, title string, description *string) (*domain.Stream, error) {
	now := s.clock.Now()
	stream := &domain.Stream{
		Title:       title,
		Description: description,
		IsLive:      false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.streamRepo.Create(ctx, stream)
	s.observe("create", err)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	s.logger.Infow("stream created", "stream_id", created.ID)
	return created, nil
}

func (s *streamService) GetStream(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	stream, err := s.streamRepo.GetByID(ctx, id)
	s.observe("get", err)
	return stream, err
}

func (s *streamService) ListStreams(ctx context.Context) ([]*domain.Stream, error) {
	streams, err := s.streamRepo.ListAll(ctx)
	s.observe("list", err)
	return streams, err
}

// UpdateStream merges the patch and always stamps updated_at with the
// service clock, overriding any value supplied by the caller.
func (s *streamService) UpdateStream(ctx context.Context, id domain.StreamID, patch domain.StreamPatch) (*domain.Stream, error) {
	now := s.clock.Now()
	patch.UpdatedAt = &now

	updated, err := s.streamRepo.Update(ctx, id, patch)
	s.observe("update", err)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *streamService) DeleteStream(ctx context.Context, id domain.StreamID) (bool, error) {
	deleted, err := s.streamRepo.Delete(ctx, id)
	s.observe("delete", err)
	if err != nil {
		return false, err
	}
	if deleted {
		s.logger.Infow("stream deleted", "stream_id", id)
	}
	return deleted, nil
}

func (s *streamService) observe(op string, err error) {
	if s.observer != nil {
		s.observer.StreamOperation(op, err)
	}
	if err != nil && !errors.Is(err, domain.ErrStreamNotFound) {
		s.logger.Errorw("stream operation failed", "operation", op, "error", err)
	}
}
