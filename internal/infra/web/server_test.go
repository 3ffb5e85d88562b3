//go:build !integration

package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"creator-twin-backend/internal/domain"
	"creator-twin-backend/internal/domain/model"
	"creator-twin-backend/internal/domain/ports/adapter"
	"creator-twin-backend/internal/domain/ports/repository"
	"creator-twin-backend/internal/infra/sched"
	"creator-twin-backend/internal/infra/tracker"
	"creator-twin-backend/internal/infra/web"
	"creator-twin-backend/internal/infra/worker"
	"creator-twin-backend/internal/usecase"
)

//
// ---------------- in-memory infra mocks ----------------
//

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.ChatSession
	messages map[string][]*model.ChatMessage
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{
		sessions: make(map[string]*model.ChatSession),
		messages: make(map[string][]*model.ChatMessage),
	}
}

func (r *memSessionRepo) Save(ctx context.Context, tx repository.Tx, s *model.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) SaveMessage(ctx context.Context, tx repository.Tx, m *model.ChatMessage) error {
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
	if s, ok := r.sessions[sessionID]; ok {
		s.Summary = summary
		return nil
	}
	return domain.ErrNotFound
}

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

type stubRooms struct {
	participants map[string][]adapter.Participant
}

func (s *stubRooms) ListParticipants(ctx context.Context, roomName string) ([]adapter.Participant, error) {
	p, ok := s.participants[roomName]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return p, nil
}

func (s *stubRooms) RemoveParticipant(ctx context.Context, roomName, identity string) error {
	if _, ok := s.participants[roomName]; !ok {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (s *stubRooms) DeleteRoom(ctx context.Context, roomName string) error {
	if _, ok := s.participants[roomName]; !ok {
		return domain.ErrRoomNotFound
	}
	delete(s.participants, roomName)
	return nil
}

type stubResolver struct {
	info *adapter.ChannelInfo
}

func (s *stubResolver) ResolveChannel(ctx context.Context, handle string) (*adapter.ChannelInfo, error) {
	if s.info == nil {
		return nil, domain.ErrNotFound
	}
	return s.info, nil
}

type noopFinalizer struct{}

func (noopFinalizer) FinalizeConversation(ctx context.Context, sessionID, creatorID string) error {
	return nil
}

type noopFetcher struct{}

func (noopFetcher) FetchTranscript(ctx context.Context, videoID string) (string, error) {
	return "", domain.ErrNotFound
}

//
// -------------------- test helpers --------------------
//

func newLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

type testEnv struct {
	router   *chi.Mux
	auth     *web.AuthManager
	sessions *memSessionRepo
	video    *memVideoJobRepo
	channel  *memChannelJobRepo
	rooms    *stubRooms
	runner   *sched.Runner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := newLogger()

	sessions := newMemSessionRepo()
	videoJobs := newMemVideoJobRepo()
	channelJobs := newMemChannelJobRepo()
	creators := newMemCreatorRepo("creator-1")
	rooms := &stubRooms{participants: map[string][]adapter.Participant{}}
	resolver := &stubResolver{info: &adapter.ChannelInfo{ChannelID: "UC1", ChannelName: "Chan"}}

	tr := tracker.NewConversationTracker(time.Hour, time.Hour, noopFinalizer{}, log)
	proc := worker.NewVideoJobProcessor(videoJobs, nil, noopFetcher{}, time.Hour, 100, log)
	pool := worker.NewPool(1, log)
	runner := sched.NewRunner(tr, proc, pool, log)
	t.Cleanup(runner.Stop)

	convUC := usecase.NewConversationUseCase(sessions, tr)
	jobUC := usecase.NewJobUseCase(videoJobs, channelJobs, creators, resolver)
	voiceUC := usecase.NewVoiceUseCase(rooms, log)

	auth := web.NewAuthManager("test-secret", time.Hour)
	srv := web.NewServer(convUC, jobUC, voiceUC, runner, auth, nil, 0, log)

	return &testEnv{
		router:   srv.Routes(),
		auth:     auth,
		sessions: sessions,
		video:    videoJobs,
		channel:  channelJobs,
		rooms:    rooms,
		runner:   runner,
	}
}

func (e *testEnv) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		tok, err := e.auth.Mint(userID)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v, body=%s", err, rec.Body.String())
	}
	return out
}

func transcriptionBody(text string) map[string]any {
	return map[string]any{
		"roomName":      "room-1",
		"creatorId":     "creator-1",
		"participantId": "fan-1",
		"trackId":       "track-1",
		"text":          text,
	}
}

//
// -------------------- tests --------------------
//

func TestTranscription_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	body := transcriptionBody("")
	rec := env.do(t, http.MethodPost, "/api/v1/voice/transcription", "fan-1", body)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d, body=%s", rec.Code, rec.Body.String())
	}
	got := decodeBody(t, rec)
	want := "Missing required fields: roomName, creatorId, participantId, text"
	if got["error"] != want {
		t.Fatalf("want %q, got %q", want, got["error"])
	}
}

func TestTranscription_InvalidSpeaker(t *testing.T) {
	env := newTestEnv(t)

	body := transcriptionBody("hello")
	body["speaker"] = "narrator"
	rec := env.do(t, http.MethodPost, "/api/v1/voice/transcription", "fan-1", body)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d, body=%s", rec.Code, rec.Body.String())
	}
	got := decodeBody(t, rec)
	want := "Invalid speaker: must be 'user' or 'assistant'"
	if got["error"] != want {
		t.Fatalf("want %q, got %q", want, got["error"])
	}
}

func TestTranscription_InvalidTimestamp(t *testing.T) {
	env := newTestEnv(t)

	body := transcriptionBody("hello")
	body["timestamp"] = "yesterday at noon"
	rec := env.do(t, http.MethodPost, "/api/v1/voice/transcription", "fan-1", body)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d, body=%s", rec.Code, rec.Body.String())
	}
	got := decodeBody(t, rec)
	want := "Invalid timestamp: expected RFC3339"
	if got["error"] != want {
		t.Fatalf("want %q, got %q", want, got["error"])
	}
}

func TestTranscription_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/voice/transcription", "", transcriptionBody("hi"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", rec.Code)
	}
}

func TestTranscription_PersistsAndReusesSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/voice/transcription", "fan-1", transcriptionBody("first"))
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
	}
	got := decodeBody(t, rec)
	if got["success"] != true || got["messageId"] == "" {
		t.Fatalf("unexpected body: %v", got)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/voice/transcription", "fan-1", transcriptionBody("second"))
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200 on second fragment, got %d", rec.Code)
	}

	if n := len(env.sessions.sessions); n != 1 {
		t.Fatalf("two fragments for one pair must share a session, got %d sessions", n)
	}
}

func TestGetVideoJob(t *testing.T) {
	env := newTestEnv(t)

	now := time.Now()
	env.video.jobs["job-1"] = &model.VideoJob{
		ID:              "job-1",
		CreatorID:       "creator-1",
		Status:          model.JobStatusProcessing,
		Progress:        40,
		VideosProcessed: 2,
		VideoIDs:        []string{"a", "b", "c", "d", "e"},
		CreatedAt:       now,
	}

	rec := env.do(t, http.MethodGet, "/api/v1/jobs/video/job-1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
	}
	got := decodeBody(t, rec)
	if got["status"] != "processing" || got["progress"] != float64(40) || got["totalVideos"] != float64(5) {
		t.Fatalf("unexpected body: %v", got)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/jobs/video/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rec.Code)
	}
}

func TestGetChannelJob_OwnerScopingIsLeakSafe(t *testing.T) {
	env := newTestEnv(t)

	env.channel.jobs["job-1"] = &model.ChannelJob{
		ID:        "job-1",
		UserID:    "owner",
		ChannelID: "UC1",
		Status:    model.JobStatusPending,
		CreatedAt: time.Now(),
	}

	recMissing := env.do(t, http.MethodGet, "/api/v1/jobs/channel/ghost", "owner", nil)
	recForeign := env.do(t, http.MethodGet, "/api/v1/jobs/channel/job-1", "intruder", nil)

	if recMissing.Code != http.StatusNotFound || recForeign.Code != http.StatusNotFound {
		t.Fatalf("want 404/404, got %d/%d", recMissing.Code, recForeign.Code)
	}
	// Identical bodies: a caller cannot tell foreign from nonexistent.
	if recMissing.Body.String() != recForeign.Body.String() {
		t.Fatalf("bodies differ: %q vs %q", recMissing.Body.String(), recForeign.Body.String())
	}

	recOwner := env.do(t, http.MethodGet, "/api/v1/jobs/channel/job-1", "owner", nil)
	if recOwner.Code != http.StatusOK {
		t.Fatalf("owner read: want 200, got %d", recOwner.Code)
	}
	got := decodeBody(t, recOwner)
	if got["jobId"] != "job-1" || got["channelId"] != "UC1" {
		t.Fatalf("unexpected body: %v", got)
	}
}

func TestCreateVideoJob(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/jobs/video", "creator-user", map[string]any{
		"creatorId": "creator-1",
		"videoIds":  []string{"v1", "v2"},
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("want 202, got %d, body=%s", rec.Code, rec.Body.String())
	}
	got := decodeBody(t, rec)
	if got["status"] != "pending" || got["totalVideos"] != float64(2) {
		t.Fatalf("unexpected body: %v", got)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/jobs/video", "creator-user", map[string]any{"creatorId": "creator-1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for empty videoIds, got %d", rec.Code)
	}
}

func TestCreateChannelJob(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/jobs/channel", "user-1", map[string]any{"handle": "@chan"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("want 202, got %d, body=%s", rec.Code, rec.Body.String())
	}
	got := decodeBody(t, rec)
	if got["channelId"] != "UC1" || got["status"] != "pending" {
		t.Fatalf("unexpected body: %v", got)
	}
}

func TestEndSession_MissingRoomIsSuccess(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/voice/end-session", "", map[string]any{"roomName": "ghost"})
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
	}
	got := decodeBody(t, rec)
	if got["success"] != true {
		t.Fatalf("want success, got %v", got)
	}
	if _, present := got["participantsRemoved"]; present {
		t.Fatalf("already-gone room must omit participantsRemoved: %v", got)
	}
}

func TestEndSession_LiveRoom(t *testing.T) {
	env := newTestEnv(t)
	env.rooms.participants["room-1"] = []adapter.Participant{{Identity: "fan-1"}, {Identity: "agent-1"}}

	rec := env.do(t, http.MethodPost, "/api/v1/voice/end-session", "", map[string]any{"roomName": "room-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
	}
	got := decodeBody(t, rec)
	if got["participantsRemoved"] != float64(2) {
		t.Fatalf("want 2 removed, got %v", got)
	}
}

func TestEndSession_MissingRoomName(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/voice/end-session", "", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
}

func TestBackgroundJobs_StartAndStatus(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/background/jobs", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
	}
	first := decodeBody(t, rec)
	if first["message"] != "Background services started" {
		t.Fatalf("unexpected first start message: %v", first["message"])
	}

	rec = env.do(t, http.MethodPost, "/api/v1/background/jobs", "", nil)
	second := decodeBody(t, rec)
	if second["message"] != "Background services already running" {
		t.Fatalf("second start must be a no-op: %v", second["message"])
	}

	// A tracked conversation shows up in the status payload.
	env.do(t, http.MethodPost, "/api/v1/voice/transcription", "fan-1", transcriptionBody("hello"))

	rec = env.do(t, http.MethodGet, "/api/v1/background/jobs", "", nil)
	status := decodeBody(t, rec)["status"].(map[string]any)
	trackerStatus := status["conversationTracker"].(map[string]any)
	if trackerStatus["activeConversations"] != float64(1) {
		t.Fatalf("want 1 active conversation, got %v", trackerStatus)
	}
	convs, ok := trackerStatus["conversations"].([]any)
	if !ok || len(convs) != 1 {
		t.Fatalf("want 1 listed conversation, got %v", trackerStatus["conversations"])
	}
	listed := convs[0].(map[string]any)
	if listed["creatorId"] != "creator-1" || listed["messageCount"] != float64(1) {
		t.Fatalf("unexpected conversation entry: %v", listed)
	}
}

func TestListConversations(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/api/v1/voice/transcription", "fan-1", transcriptionBody("hello"))

	rec := env.do(t, http.MethodGet, "/api/v1/conversations", "fan-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
	}
	got := decodeBody(t, rec)
	items := got["conversations"].([]any)
	if len(items) != 1 {
		t.Fatalf("want 1 conversation, got %d", len(items))
	}

	// Another user sees nothing.
	rec = env.do(t, http.MethodGet, "/api/v1/conversations", "fan-2", nil)
	got = decodeBody(t, rec)
	if items := got["conversations"].([]any); len(items) != 0 {
		t.Fatalf("foreign user must see no conversations, got %d", len(items))
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
}
