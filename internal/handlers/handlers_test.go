package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"acharya-backend/internal/middleware"
	"acharya-backend/internal/models"
)

// ─── Stubs ───

type stubSessionRepo struct {
	sessions map[uuid.UUID]*models.Session
	created  []*models.Session
}

func newStubSessionRepo(sessions ...*models.Session) *stubSessionRepo {
	m := make(map[uuid.UUID]*models.Session)
	for _, s := range sessions {
		m[s.ID] = s
	}
	return &stubSessionRepo{sessions: m}
}

func (r *stubSessionRepo) Create(ctx context.Context, s *models.Session) error {
	s.ID = uuid.New()
	r.created = append(r.created, s)
	r.sessions[s.ID] = s
	return nil
}

func (r *stubSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, errors.New("no rows in result set")
	}
	return s, nil
}

func (r *stubSessionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Session, error) {
	var out []*models.Session
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

type stubDocumentRepo struct {
	docs map[uuid.UUID]*models.Document
}

func (r *stubDocumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	d, ok := r.docs[id]
	if !ok {
		return nil, errors.New("no rows in result set")
	}
	return d, nil
}

func (r *stubDocumentRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.Document, error) {
	var out []*models.Document
	for _, d := range r.docs {
		if d.SessionID == sessionID {
			out = append(out, d)
		}
	}
	return out, nil
}

type stubGeneratedRepo struct {
	items   map[uuid.UUID]*models.GeneratedContent
	updated map[uuid.UUID]models.ContentPayload
}

func newStubGeneratedRepo(items ...*models.GeneratedContent) *stubGeneratedRepo {
	m := make(map[uuid.UUID]*models.GeneratedContent)
	for _, g := range items {
		m[g.ID] = g
	}
	return &stubGeneratedRepo{items: m, updated: make(map[uuid.UUID]models.ContentPayload)}
}

func (r *stubGeneratedRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.GeneratedContent, error) {
	var out []*models.GeneratedContent
	for _, g := range r.items {
		if g.SessionID == sessionID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *stubGeneratedRepo) GetBySessionAndID(ctx context.Context, sessionID, id uuid.UUID) (*models.GeneratedContent, error) {
	g, ok := r.items[id]
	if !ok || g.SessionID != sessionID {
		return nil, errors.New("no rows in result set")
	}
	return g, nil
}

func (r *stubGeneratedRepo) UpdateContent(ctx context.Context, id uuid.UUID, content models.ContentPayload) error {
	r.updated[id] = content
	return nil
}

type stubSpeech struct {
	path string
	err  error
	got  string
}

func (s *stubSpeech) Enabled() bool { return true }

func (s *stubSpeech) Synthesize(ctx context.Context, text, filePrefix string) (string, error) {
	s.got = text
	if s.err != nil {
		return "", s.err
	}
	return s.path, nil
}

type stubChat struct {
	reply      string
	err        error
	gotContext string
}

func (c *stubChat) Chat(ctx context.Context, summaryContext, message string, history []models.ChatMessage) (string, error) {
	c.gotContext = summaryContext
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

type stubJobRepo struct {
	jobs map[uuid.UUID]*models.Job
}

func (r *stubJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	j, ok := r.jobs[id]
	if !ok {
		return nil, errors.New("no rows in result set")
	}
	return j, nil
}

// ─── Helpers ───

func authedRequest(method, target string, body interface{}, userID uuid.UUID) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	return req.WithContext(ctx)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	return resp
}

// ─── Session Handler ───

func TestCreateSessionMissingTitle(t *testing.T) {
	h := NewSessionHandler(newStubSessionRepo(), &stubDocumentRepo{}, newStubGeneratedRepo())

	req := authedRequest(http.MethodPost, "/api/v1/sessions", map[string]string{"description": "no title"}, uuid.New())
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	resp := decodeError(t, rr)
	if resp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q", resp.Error.Code)
	}
	if resp.Error.Fields["title"] == "" {
		t.Error("expected a field error for title")
	}
}

func TestCreateSession(t *testing.T) {
	repo := newStubSessionRepo()
	h := NewSessionHandler(repo, &stubDocumentRepo{}, newStubGeneratedRepo())

	userID := uuid.New()
	req := authedRequest(http.MethodPost, "/api/v1/sessions",
		map[string]string{"title": "  Biology 101 ", "description": "midterm prep"}, userID)
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rr.Code, rr.Body.String())
	}
	if len(repo.created) != 1 {
		t.Fatalf("created %d sessions", len(repo.created))
	}
	if repo.created[0].Title != "Biology 101" {
		t.Errorf("title = %q, want trimmed", repo.created[0].Title)
	}
	if repo.created[0].UserID != userID {
		t.Error("session not attributed to requesting user")
	}
}

func TestGetSessionForeignUser(t *testing.T) {
	owner := uuid.New()
	session := &models.Session{ID: uuid.New(), UserID: owner, Title: "Private"}
	h := NewSessionHandler(newStubSessionRepo(session), &stubDocumentRepo{}, newStubGeneratedRepo())

	r := chi.NewRouter()
	r.Get("/sessions/{id}", h.Get)

	req := authedRequest(http.MethodGet, "/sessions/"+session.ID.String(), nil, uuid.New())
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for foreign session", rr.Code)
	}
}

func TestGetSessionWithContent(t *testing.T) {
	userID := uuid.New()
	session := &models.Session{ID: uuid.New(), UserID: userID, Title: "Physics"}
	gen := &models.GeneratedContent{
		ID:        uuid.New(),
		SessionID: session.ID,
		UserID:    userID,
		Type:      models.TypeSummary,
		Content:   models.TextPayload("A summary."),
	}
	h := NewSessionHandler(newStubSessionRepo(session), &stubDocumentRepo{}, newStubGeneratedRepo(gen))

	r := chi.NewRouter()
	r.Get("/sessions/{id}", h.Get)

	req := authedRequest(http.MethodGet, "/sessions/"+session.ID.String(), nil, userID)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Session          *models.Session            `json:"session"`
		Documents        []*models.Document         `json:"documents"`
		GeneratedContent []*models.GeneratedContent `json:"generated_content"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Session.ID != session.ID {
		t.Error("wrong session returned")
	}
	if len(resp.GeneratedContent) != 1 {
		t.Fatalf("generated content count = %d", len(resp.GeneratedContent))
	}
	if resp.Documents == nil {
		t.Error("documents should encode as an empty array, not null")
	}
}

// ─── Audio Handler ───

func TestRegenerateAudio(t *testing.T) {
	userID := uuid.New()
	session := &models.Session{ID: uuid.New(), UserID: userID}
	content := &models.GeneratedContent{
		ID:        uuid.New(),
		SessionID: session.ID,
		UserID:    userID,
		Type:      models.TypeMonologue,
		Content:   models.TextPayload("Welcome to the lecture."),
	}

	genRepo := newStubGeneratedRepo(content)
	speech := &stubSpeech{path: "/audio/monologue-123.mp3"}
	h := NewAudioHandler(newStubSessionRepo(session), genRepo, speech)

	r := chi.NewRouter()
	r.Post("/sessions/{id}/regenerate-audio", h.Regenerate)

	req := authedRequest(http.MethodPost, "/sessions/"+session.ID.String()+"/regenerate-audio",
		models.RegenerateAudioRequest{ContentID: content.ID, ContentType: models.TypeMonologue}, userID)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if speech.got != "Welcome to the lecture." {
		t.Errorf("synthesized text = %q", speech.got)
	}

	updated, ok := genRepo.updated[content.ID]
	if !ok {
		t.Fatal("payload was not persisted")
	}
	if updated.Text != "Welcome to the lecture." {
		t.Errorf("text lost during merge: %q", updated.Text)
	}
	if updated.AudioPath != "/audio/monologue-123.mp3" {
		t.Errorf("audioPath = %q", updated.AudioPath)
	}
}

func TestRegenerateAudioContentNotFound(t *testing.T) {
	userID := uuid.New()
	session := &models.Session{ID: uuid.New(), UserID: userID}
	h := NewAudioHandler(newStubSessionRepo(session), newStubGeneratedRepo(), &stubSpeech{})

	r := chi.NewRouter()
	r.Post("/sessions/{id}/regenerate-audio", h.Regenerate)

	req := authedRequest(http.MethodPost, "/sessions/"+session.ID.String()+"/regenerate-audio",
		models.RegenerateAudioRequest{ContentID: uuid.New()}, userID)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestRegenerateAudioSynthesisFailure(t *testing.T) {
	userID := uuid.New()
	session := &models.Session{ID: uuid.New(), UserID: userID}
	content := &models.GeneratedContent{
		ID:        uuid.New(),
		SessionID: session.ID,
		UserID:    userID,
		Type:      models.TypeMonologue,
		Content:   models.TextPayload("Some text."),
	}
	h := NewAudioHandler(newStubSessionRepo(session), newStubGeneratedRepo(content),
		&stubSpeech{err: errors.New("vendor 500")})

	r := chi.NewRouter()
	r.Post("/sessions/{id}/regenerate-audio", h.Regenerate)

	req := authedRequest(http.MethodPost, "/sessions/"+session.ID.String()+"/regenerate-audio",
		models.RegenerateAudioRequest{ContentID: content.ID}, userID)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Error.Code != "AUDIO_FAILED" {
		t.Errorf("code = %q", resp.Error.Code)
	}
}

// ─── Chat Handler ───

func TestChatWithoutGeneratedContent(t *testing.T) {
	userID := uuid.New()
	session := &models.Session{ID: uuid.New(), UserID: userID}
	h := NewChatHandler(newStubSessionRepo(session), newStubGeneratedRepo(), &stubChat{reply: "hi"})

	r := chi.NewRouter()
	r.Post("/sessions/{id}/chat", h.Ask)

	req := authedRequest(http.MethodPost, "/sessions/"+session.ID.String()+"/chat",
		models.ChatRequest{Message: "What is this about?"}, userID)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for empty session", rr.Code)
	}
}

func TestChatGroundsOnSessionContent(t *testing.T) {
	userID := uuid.New()
	session := &models.Session{ID: uuid.New(), UserID: userID}
	gen := &models.GeneratedContent{
		ID:        uuid.New(),
		SessionID: session.ID,
		UserID:    userID,
		Type:      models.TypeSummary,
		Content:   models.TextPayload("Photosynthesis converts light to energy."),
	}
	chatSvc := &stubChat{reply: "It is about photosynthesis."}
	h := NewChatHandler(newStubSessionRepo(session), newStubGeneratedRepo(gen), chatSvc)

	r := chi.NewRouter()
	r.Post("/sessions/{id}/chat", h.Ask)

	req := authedRequest(http.MethodPost, "/sessions/"+session.ID.String()+"/chat",
		models.ChatRequest{Message: "What is this about?"}, userID)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	var resp models.ChatResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Reply != "It is about photosynthesis." {
		t.Errorf("reply = %q", resp.Reply)
	}
	if !bytes.Contains([]byte(chatSvc.gotContext), []byte("Photosynthesis converts light to energy.")) {
		t.Errorf("grounding context missing summary text: %q", chatSvc.gotContext)
	}
}

// ─── Job Handler ───

func TestGetJobOwnership(t *testing.T) {
	owner := uuid.New()
	job := &models.Job{ID: uuid.New(), UserID: owner, Type: models.JobTypeContentGeneration, Status: "completed"}
	h := NewJobHandler(&stubJobRepo{jobs: map[uuid.UUID]*models.Job{job.ID: job}})

	r := chi.NewRouter()
	r.Get("/jobs/{id}", h.GetJob)

	// Owner sees the job
	req := authedRequest(http.MethodGet, "/jobs/"+job.ID.String(), nil, owner)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("owner status = %d", rr.Code)
	}

	// Another user gets 404
	req = authedRequest(http.MethodGet, "/jobs/"+job.ID.String(), nil, uuid.New())
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("foreign status = %d, want 404", rr.Code)
	}
}

func TestGetJobInvalidID(t *testing.T) {
	h := NewJobHandler(&stubJobRepo{jobs: map[uuid.UUID]*models.Job{}})

	r := chi.NewRouter()
	r.Get("/jobs/{id}", h.GetJob)

	req := authedRequest(http.MethodGet, "/jobs/not-a-uuid", nil, uuid.New())
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}
