package memory

import (
	"context"
	"sort"
	"time"

	"github.com/johnbuck/voxbridge/internal/domain"
	"github.com/johnbuck/voxbridge/internal/domain/models"
	"github.com/johnbuck/voxbridge/internal/ports"
)

type fakeAgentRepo struct {
	agents map[string]*models.Agent
}

func newFakeAgentRepo(agents ...*models.Agent) *fakeAgentRepo {
	r := &fakeAgentRepo{agents: make(map[string]*models.Agent)}
	for _, a := range agents {
		r.agents[a.ID] = a
	}
	return r
}

func (r *fakeAgentRepo) Get(ctx context.Context, id string) (*models.Agent, error) {
	a, ok := r.agents[id]
	if !ok {
		return nil, domain.ErrAgentNotFound
	}
	return a, nil
}
func (r *fakeAgentRepo) GetDefault(ctx context.Context) (*models.Agent, error) {
	for _, a := range r.agents {
		if a.IsDefault {
			return a, nil
		}
	}
	return nil, domain.ErrAgentNotFound
}

type fakeFactRepo struct {
	byID     map[string]*models.UserFact
	byVector map[string]*models.UserFact
}

func newFakeFactRepo() *fakeFactRepo {
	return &fakeFactRepo{byID: map[string]*models.UserFact{}, byVector: map[string]*models.UserFact{}}
}

func (r *fakeFactRepo) Get(ctx context.Context, id string) (*models.UserFact, error) {
	f, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserFactNotFound
	}
	return f, nil
}
func (r *fakeFactRepo) GetByVectorID(ctx context.Context, vectorID string) (*models.UserFact, error) {
	f, ok := r.byVector[vectorID]
	if !ok {
		return nil, domain.ErrUserFactNotFound
	}
	return f, nil
}
func (r *fakeFactRepo) Insert(ctx context.Context, f *models.UserFact) error {
	r.byID[f.ID] = f
	if f.VectorID != "" {
		r.byVector[f.VectorID] = f
	}
	return nil
}
func (r *fakeFactRepo) Update(ctx context.Context, f *models.UserFact) error {
	r.byID[f.ID] = f
	return nil
}
func (r *fakeFactRepo) Delete(ctx context.Context, id string) error {
	if f, ok := r.byID[id]; ok {
		delete(r.byVector, f.VectorID)
	}
	delete(r.byID, id)
	return nil
}
func (r *fakeFactRepo) CountForUser(ctx context.Context, userID string, agentID *string) (int, error) {
	n := 0
	for _, f := range r.byID {
		if f.UserID == userID && sameScope(f.AgentID, agentID) {
			n++
		}
	}
	return n, nil
}
func (r *fakeFactRepo) OldestUnprotected(ctx context.Context, userID string, agentID *string, limit int) ([]models.UserFact, error) {
	var out []models.UserFact
	for _, f := range r.byID {
		if f.UserID == userID && sameScope(f.AgentID, agentID) && !f.IsProtected && f.ValidityEnd == nil {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
func (r *fakeFactRepo) ListValid(ctx context.Context, userID string, agentID *string) ([]models.UserFact, error) {
	var out []models.UserFact
	for _, f := range r.byID {
		if f.UserID == userID && sameScope(f.AgentID, agentID) && f.ValidityEnd == nil {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r *fakeFactRepo) ListStaleUnsummarized(ctx context.Context, cutoff time.Time) ([]models.UserFact, error) {
	var out []models.UserFact
	for _, f := range r.byID {
		if f.ValidityEnd == nil && !f.IsSummarized && !f.IsProtected && f.CreatedAt.Before(cutoff) {
			out = append(out, *f)
		}
	}
	return out, nil
}

func sameScope(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type fakeTaskRepo struct {
	tasks map[string]*models.ExtractionTask
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: map[string]*models.ExtractionTask{}}
}
func (r *fakeTaskRepo) Get(ctx context.Context, id string) (*models.ExtractionTask, error) {
	t, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrExtractionTaskNotFound
	}
	return t, nil
}
func (r *fakeTaskRepo) Insert(ctx context.Context, t *models.ExtractionTask) error {
	r.tasks[t.ID] = t
	return nil
}
func (r *fakeTaskRepo) Update(ctx context.Context, t *models.ExtractionTask) error {
	r.tasks[t.ID] = t
	return nil
}
func (r *fakeTaskRepo) ClaimPending(ctx context.Context, limit int) ([]models.ExtractionTask, error) {
	var out []models.ExtractionTask
	for _, t := range r.tasks {
		if t.Status == models.ExtractionPending {
			t.Status = models.ExtractionProcessing
			out = append(out, *t)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

type fakeVectorStore struct {
	items   map[string]ports.NormalizedItem
	nextID  int
	scores  map[string]float64 // vectorID -> score to return from Search
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{items: map[string]ports.NormalizedItem{}, scores: map[string]float64{}}
}

func (v *fakeVectorStore) Add(ctx context.Context, messages []ports.VectorMessage, userID string, infer bool) ([]ports.NormalizedItem, error) {
	v.nextID++
	id := "vec-" + string(rune('a'+v.nextID))
	text := ""
	if len(messages) > 0 {
		text = messages[0].Content
	}
	item := ports.NormalizedItem{ID: id, Text: text}
	v.items[id] = item
	return []ports.NormalizedItem{item}, nil
}

func (v *fakeVectorStore) Search(ctx context.Context, query, userID string, limit int) ([]ports.NormalizedItem, error) {
	var out []ports.NormalizedItem
	for id, item := range v.items {
		item.Score = v.scores[id]
		out = append(out, item)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (v *fakeVectorStore) Delete(ctx context.Context, vectorID string) error {
	delete(v.items, vectorID)
	delete(v.scores, vectorID)
	return nil
}

type fakeCompleter struct {
	response string
	err      error
}

func (f fakeCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f.response, f.err
}
