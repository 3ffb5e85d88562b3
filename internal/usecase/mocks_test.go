package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"

	"creator-twin-backend/internal/domain"
	"creator-twin-backend/internal/domain/model"
	"creator-twin-backend/internal/domain/ports/adapter"
	"creator-twin-backend/internal/domain/ports/repository"
)

// --- chat sessions ---

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.ChatSession
	messages map[string][]*model.ChatMessage
	saveErr  error
	msgErr   error
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{
		sessions: make(map[string]*model.ChatSession),
		messages: make(map[string][]*model.ChatMessage),
	}
}

func (r *memSessionRepo) Save(ctx context.Context, tx repository.Tx, s *model.ChatSession) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) SaveMessage(ctx context.Context, tx repository.Tx, m *model.ChatMessage) error {
	if r.msgErr != nil {
		return r.msgErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.messages[m.SessionID] = append(r.messages[m.SessionID], &cp)
	if s, ok := r.sessions[m.SessionID]; ok {
		s.MessageCount++
	}
	return nil
}

func (r *memSessionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memSessionRepo) FindByUserAndCreator(ctx context.Context, tx repository.Tx, userID, creatorID string) (*model.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var match []*model.ChatSession
	for _, s := range r.sessions {
		if s.UserID == userID && s.CreatorID == creatorID {
			match = append(match, s)
		}
	}
	if len(match) == 0 {
		return nil, domain.ErrNotFound
	}
	sort.Slice(match, func(i, j int) bool { return match[i].CreatedAt.Before(match[j].CreatedAt) })
	return match[0], nil
}

func (r *memSessionRepo) ListWithMessagesByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ChatSession
	for _, s := range r.sessions {
		if s.UserID == userID && s.MessageCount > 0 {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *memSessionRepo) FindMessages(ctx context.Context, tx repository.Tx, sessionID string) ([]*model.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messages[sessionID], nil
}

func (r *memSessionRepo) UpdateSummary(ctx context.Context, tx repository.Tx, sessionID, summary string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	s.Summary = summary
	return nil
}

// --- jobs ---

type memVideoJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.VideoJob
}

func newMemVideoJobRepo() *memVideoJobRepo {
	return &memVideoJobRepo{jobs: make(map[string]*model.VideoJob)}
}

func (r *memVideoJobRepo) Save(ctx context.Context, tx repository.Tx, job *model.VideoJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *memVideoJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.VideoJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		return j, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memVideoJobRepo) FetchAndMarkProcessing(ctx context.Context) (*model.VideoJob, error) {
	return nil, domain.ErrNotFound
}

type memChannelJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.ChannelJob
}

func newMemChannelJobRepo() *memChannelJobRepo {
	return &memChannelJobRepo{jobs: make(map[string]*model.ChannelJob)}
}

func (r *memChannelJobRepo) Save(ctx context.Context, tx repository.Tx, job *model.ChannelJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *memChannelJobRepo) FindByIDForUser(ctx context.Context, tx repository.Tx, id, userID string) (*model.ChannelJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok || j.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return j, nil
}

type memCreatorRepo struct {
	mu       sync.Mutex
	creators map[string]*model.Creator
}

func newMemCreatorRepo(ids ...string) *memCreatorRepo {
	r := &memCreatorRepo{creators: make(map[string]*model.Creator)}
	for _, id := range ids {
		r.creators[id] = &model.Creator{ID: id, UserID: "owner-" + id}
	}
	return r
}

func (r *memCreatorRepo) Save(ctx context.Context, tx repository.Tx, c *model.Creator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.creators[c.ID] = &cp
	return nil
}

func (r *memCreatorRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Creator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.creators[id]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

// --- adapters ---

type stubAI struct {
	reply    string
	chatErr  error
	tokens   int
	requests [][]adapter.Message
}

func (a *stubAI) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	a.requests = append(a.requests, messages)
	if a.chatErr != nil {
		return "", a.chatErr
	}
	return a.reply, nil
}

func (a *stubAI) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	if a.tokens > 0 {
		return a.tokens, nil
	}
	n := 0
	for _, m := range messages {
		n += len(m.Content)
	}
	return n, nil
}

type stubRoomService struct {
	participants []adapter.Participant
	listErr      error
	removeErr    error
	deleteErr    error
	removed      []string
	deleted      []string
}

func (s *stubRoomService) ListParticipants(ctx context.Context, roomName string) ([]adapter.Participant, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.participants, nil
}

func (s *stubRoomService) RemoveParticipant(ctx context.Context, roomName, identity string) error {
	if s.removeErr != nil {
		return s.removeErr
	}
	s.removed = append(s.removed, identity)
	return nil
}

func (s *stubRoomService) DeleteRoom(ctx context.Context, roomName string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, roomName)
	return nil
}

type stubResolver struct {
	info *adapter.ChannelInfo
	err  error
}

func (s *stubResolver) ResolveChannel(ctx context.Context, handle string) (*adapter.ChannelInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.info == nil {
		return nil, errors.New("no channel configured")
	}
	return s.info, nil
}
