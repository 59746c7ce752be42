package memory

import (
	"context"
	"sort"
	"sync"

	"streamhub/internal/core/domain"
	"streamhub/internal/core/ports"

	"github.com/google/uuid"
)

type storedStream struct {
	stream *domain.Stream
	seq    uint64
}

type MemoryStreamRepository struct {
	streams map[domain.StreamID]*storedStream
	seq     uint64
	mu      sync.RWMutex
}

func NewMemoryStreamRepository() ports.StreamRepository {
	return &MemoryStreamRepository{
		streams: make(map[domain.StreamID]*storedStream),
	}
}

func (r *MemoryStreamRepository) Create(ctx context.Context, stream *domain.Stream) (*domain.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record := stream.Clone()
	record.ID = domain.StreamID(uuid.New().String())
	r.seq++
	r.streams[record.ID] = &storedStream{stream: record, seq: r.seq}

	return record.Clone(), nil
}

func (r *MemoryStreamRepository) GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	if !validID(id) {
		return nil, domain.ErrStreamNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, exists := r.streams[id]
	if !exists {
		return nil, domain.ErrStreamNotFound
	}

	return stored.stream.Clone(), nil
}

func (r *MemoryStreamRepository) ListAll(ctx context.Context) ([]*domain.Stream, error) {
	r.mu.RLock()
	records := make([]*storedStream, 0, len(r.streams))
	for _, stored := range r.streams {
		records = append(records, stored)
	}
	r.mu.RUnlock()

	// Newest first; insertion order breaks created_at ties.
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i].stream, records[j].stream
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return records[i].seq > records[j].seq
	})

	streams := make([]*domain.Stream, 0, len(records))
	for _, stored := range records {
		streams = append(streams, stored.stream.Clone())
	}
	return streams, nil
}

func (r *MemoryStreamRepository) Update(ctx context.Context, id domain.StreamID, patch domain.StreamPatch) (*domain.Stream, error) {
	if !validID(id) {
		return nil, domain.ErrStreamNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.streams[id]
	if !exists {
		return nil, domain.ErrStreamNotFound
	}

	// Merge into a copy and swap it in so readers never see a partial merge.
	updated := stored.stream.Clone()
	patch.Apply(updated)
	stored.stream = updated

	return updated.Clone(), nil
}

func (r *MemoryStreamRepository) Delete(ctx context.Context, id domain.StreamID) (bool, error) {
	if !validID(id) {
		return false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.streams[id]; !exists {
		return false, nil
	}

	delete(r.streams, id)
	return true, nil
}

func validID(id domain.StreamID) bool {
	_, err := uuid.Parse(string(id))
	return err == nil
}
