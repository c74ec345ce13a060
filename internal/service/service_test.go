package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"autoparts/catalog/internal/client"
	"autoparts/catalog/internal/config"
	"autoparts/catalog/internal/domain"
	"autoparts/catalog/internal/domain/task"
	"autoparts/catalog/internal/equivalence"

	"github.com/redis/go-redis/v9"
)

const v2Payload = `{
	"Brakes": {"categoryName": "Brakes", "categoryId": 1, "children": {
		"Pads": {"categoryName": "Pads", "categoryId": 11, "children": {}},
		"Discs": {"categoryName": "Discs", "categoryId": 12, "children": {}}
	}}
}`

type harness struct {
	svc    *Service
	client *fakeClient
	cache  *fakeCache
	queue  *fakeQueue
	repo   *fakeRepository
}

func newHarness(fc *fakeClient) *harness {
	h := &harness{client: fc, cache: newFakeCache(), queue: &fakeQueue{}, repo: newFakeRepository()}
	h.svc = NewService(h.repo, fc, h.cache, h.queue, Options{
		Equivalence:      config.EquivalenceConfig{MaxRetries: 2},
		DefaultCountryID: 62,
	})
	return h
}

func baseArticle() *domain.ArticleDetails {
	return &domain.ArticleDetails{
		ArticleID: 500, SupplierID: 1, ArticleNo: "X1", ProductGroupID: 10,
		OEMNumbers: []domain.OEMNumber{{Brand: "OEM-A", Number: "123.456"}},
	}
}

func equivalenceClient() *fakeClient {
	return &fakeClient{
		articles: map[int64]*domain.ArticleDetails{500: baseArticle()},
		oem: map[string][]domain.ArticleDetails{
			"123.456": {{ArticleID: 501, SupplierID: 2, SupplierName: "Bosch", ArticleNo: "Y1", ProductGroupID: 10}},
			"123456":  {{ArticleID: 502, SupplierID: 3, SupplierName: "ATE", ArticleNo: "Z1", ProductGroupID: 10}},
		},
	}
}

func TestCategoryTreeAutoPicksFirstNonEmptyVersion(t *testing.T) {
	h := newHarness(&fakeClient{
		categories: map[domain.CategoryVersion]string{
			domain.CategoryVersionV1: `[]`,
			domain.CategoryVersionV2: v2Payload,
			domain.CategoryVersionV3: `{"7": {"text": "Filters", "children": {}}}`,
		},
	})

	tree, err := h.svc.CategoryTree(context.Background(), domain.VehicleQuery{ManufacturerID: 5, VehicleID: 9})
	if err != nil {
		t.Fatalf("CategoryTree: %v", err)
	}
	if tree.Version != domain.CategoryVersionV2 {
		t.Errorf("version = %s, want v2", tree.Version)
	}
	if tree.RecordCount != 2 || tree.LeafCount != 2 {
		t.Errorf("counts = %d records, %d leaves", tree.RecordCount, tree.LeafCount)
	}
	if len(tree.Roots) != 1 || tree.Roots[0].Text != "Brakes" || len(tree.Roots[0].Children) != 2 {
		t.Fatalf("roots = %+v", tree.Roots)
	}
	if h.client.catCalls != 3 {
		t.Errorf("fetched %d versions, want 3", h.client.catCalls)
	}

	cached := domain.VehicleQuery{ManufacturerID: 5, VehicleID: 9, CountryID: 62}
	if h.cache.trees[cached] != tree {
		t.Error("tree was not cached under the default country")
	}
}

func TestCategoryTreeServedFromCache(t *testing.T) {
	h := newHarness(&fakeClient{})
	want := &domain.CategoryTree{Version: domain.CategoryVersionV1, RecordCount: 1}
	h.cache.trees[domain.VehicleQuery{VehicleID: 9, CountryID: 62, Version: domain.CategoryVersionV1}] = want

	got, err := h.svc.CategoryTree(context.Background(), domain.VehicleQuery{VehicleID: 9, Version: domain.CategoryVersionV1})
	if err != nil {
		t.Fatalf("CategoryTree: %v", err)
	}
	if got != want || h.client.catCalls != 0 {
		t.Errorf("expected cached tree without upstream calls, got %+v after %d calls", got, h.client.catCalls)
	}
}

func TestCategoryTreeEmptyIsNotCached(t *testing.T) {
	h := newHarness(&fakeClient{})

	tree, err := h.svc.CategoryTree(context.Background(), domain.VehicleQuery{VehicleID: 9})
	if err != nil {
		t.Fatalf("CategoryTree: %v", err)
	}
	if tree.Note != NoteNoCategories || len(tree.Roots) != 0 {
		t.Errorf("tree = %+v, want empty with note", tree)
	}
	if h.cache.sets != 0 {
		t.Errorf("empty tree was cached")
	}
}

func TestCategoryTreeSkipsFailingVersion(t *testing.T) {
	h := newHarness(&fakeClient{
		categories: map[domain.CategoryVersion]string{domain.CategoryVersionV2: v2Payload},
		catErrs:    map[domain.CategoryVersion]error{domain.CategoryVersionV1: errUpstream},
	})

	tree, err := h.svc.CategoryTree(context.Background(), domain.VehicleQuery{VehicleID: 9})
	if err != nil {
		t.Fatalf("CategoryTree: %v", err)
	}
	if tree.Version != domain.CategoryVersionV2 {
		t.Errorf("version = %s, want v2", tree.Version)
	}
}

func TestCategoryTreeExplicitVersionError(t *testing.T) {
	h := newHarness(&fakeClient{catErrs: map[domain.CategoryVersion]error{domain.CategoryVersionV3: errUpstream}})

	_, err := h.svc.CategoryTree(context.Background(), domain.VehicleQuery{VehicleID: 9, Version: domain.CategoryVersionV3})
	if !errors.Is(err, errUpstream) {
		t.Errorf("err = %v, want upstream error", err)
	}
}

func TestStreamEquivalentsUnknownArticle(t *testing.T) {
	h := newHarness(&fakeClient{})

	_, err := h.svc.StreamEquivalents(context.Background(), domain.EquivalenceQuery{ArticleID: 1})
	if !errors.Is(err, client.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStreamEquivalents(t *testing.T) {
	h := newHarness(equivalenceClient())

	events, err := h.svc.StreamEquivalents(context.Background(), domain.EquivalenceQuery{ArticleID: 500})
	if err != nil {
		t.Fatalf("StreamEquivalents: %v", err)
	}

	var types []domain.EquivalenceEventType
	var last domain.EquivalenceEvent
	for ev := range events {
		types = append(types, ev.Type)
		last = ev
	}

	want := []domain.EquivalenceEventType{domain.EquivalenceEventArticle, domain.EquivalenceEventArticle, domain.EquivalenceEventComplete}
	if !reflect.DeepEqual(types, want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	if last.Result.Note != equivalence.NoteUnverifiedFitment {
		t.Errorf("note = %q", last.Result.Note)
	}
}

func TestEquivalentsSectionUsesStoredSection(t *testing.T) {
	h := newHarness(&fakeClient{})
	stored := &domain.EquivalenceResult{Note: "stored"}
	h.repo.sections[domain.EquivalenceQuery{ArticleID: 500, CountryID: 62}] = stored

	got, err := h.svc.EquivalentsSection(context.Background(), domain.EquivalenceQuery{ArticleID: 500})
	if err != nil {
		t.Fatalf("EquivalentsSection: %v", err)
	}
	if got != stored {
		t.Errorf("got %+v, want stored section", got)
	}
}

func TestEquivalentsSectionRebuildsExpiredSection(t *testing.T) {
	h := newHarness(equivalenceClient())
	h.svc.sectionTTL = time.Hour

	q := domain.EquivalenceQuery{ArticleID: 500, CountryID: 62}
	h.repo.sections[q] = &domain.EquivalenceResult{Note: "stored"}
	h.repo.updated[q] = time.Now().Add(-2 * time.Hour)

	got, err := h.svc.EquivalentsSection(context.Background(), q)
	if err != nil {
		t.Fatalf("EquivalentsSection: %v", err)
	}
	if got.Note == "stored" || len(got.Equivalents) != 2 {
		t.Errorf("expected a rebuilt section, got %+v", got)
	}

	h.repo.updated[q] = time.Now().Add(-30 * time.Minute)
	got, err = h.svc.EquivalentsSection(context.Background(), q)
	if err != nil {
		t.Fatalf("EquivalentsSection: %v", err)
	}
	if got.Note != "stored" {
		t.Errorf("expected the fresh stored section, got %+v", got)
	}
}

func TestEquivalentsSectionCachesFitment(t *testing.T) {
	fc := equivalenceClient()
	fc.fitment = []int64{502}
	h := newHarness(fc)

	q := domain.EquivalenceQuery{ArticleID: 500, VehicleID: 77}
	for i := 0; i < 2; i++ {
		got, err := h.svc.EquivalentsSection(context.Background(), q)
		if err != nil {
			t.Fatalf("EquivalentsSection: %v", err)
		}
		if len(got.Equivalents) != 1 || got.Equivalents[0].ArticleID != 502 || got.Note != "" {
			t.Fatalf("section = %+v", got)
		}
	}

	if fc.fitCalls != 1 {
		t.Errorf("fitment fetched %d times, want 1", fc.fitCalls)
	}
}

func TestEnqueuePrecompute(t *testing.T) {
	h := newHarness(&fakeClient{})

	ids, err := h.svc.EnqueuePrecompute(context.Background(), []domain.EquivalenceQuery{{ArticleID: 1}, {ArticleID: 2, CountryID: 40}})
	if err != nil {
		t.Fatalf("EnqueuePrecompute: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ids = %v", ids)
	}

	first := h.queue.added[0].(*task.EquivalenceTask)
	if first.Query.CountryID != 62 {
		t.Errorf("country = %d, want default 62", first.Query.CountryID)
	}
}

func message(t *testing.T, tk task.Task) *redis.XMessage {
	t.Helper()

	data, err := tk.TaskValue()
	if err != nil {
		t.Fatalf("TaskValue: %v", err)
	}
	return &redis.XMessage{ID: "1-0", Values: map[string]interface{}{
		"task_type": tk.TaskType(),
		"task_data": string(data),
	}}
}

func TestProcessMessageStoresSection(t *testing.T) {
	h := newHarness(equivalenceClient())
	q := domain.EquivalenceQuery{ArticleID: 500, CountryID: 62}

	if err := h.svc.processMessage(context.Background(), message(t, &task.EquivalenceTask{Query: q})); err != nil {
		t.Fatalf("processMessage: %v", err)
	}

	section := h.repo.sections[q]
	if section == nil || len(section.Equivalents) != 2 {
		t.Fatalf("stored section = %+v", section)
	}
	if !reflect.DeepEqual(h.queue.acked, []string{task.TypeEquivalence + "/1-0"}) {
		t.Errorf("acked = %v", h.queue.acked)
	}
}

func TestProcessMessageQueuesRetryOnFailure(t *testing.T) {
	fc := equivalenceClient()
	fc.articleErr = errUpstream
	h := newHarness(fc)
	q := domain.EquivalenceQuery{ArticleID: 500, CountryID: 62}

	if err := h.svc.processMessage(context.Background(), message(t, &task.EquivalenceTask{Query: q})); err != nil {
		t.Fatalf("processMessage: %v", err)
	}

	if len(h.queue.added) != 1 {
		t.Fatalf("queued %d tasks, want 1 retry", len(h.queue.added))
	}
	retry, ok := h.queue.added[0].(*task.EquivalenceRetryTask)
	if !ok || retry.RetryCount != 0 || retry.Query != q {
		t.Errorf("retry task = %+v", h.queue.added[0])
	}
	if len(h.queue.acked) != 1 {
		t.Errorf("original message not acked")
	}
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	fc := equivalenceClient()
	fc.articleErr = errUpstream
	h := newHarness(fc)
	q := domain.EquivalenceQuery{ArticleID: 500, CountryID: 62}

	if err := h.svc.processMessage(context.Background(), message(t, &task.EquivalenceRetryTask{Query: q, RetryCount: 0})); err != nil {
		t.Fatalf("processMessage: %v", err)
	}
	if len(h.queue.added) != 1 || h.queue.added[0].(*task.EquivalenceRetryTask).RetryCount != 1 {
		t.Fatalf("expected a requeued retry with count 1, got %+v", h.queue.added)
	}

	if err := h.svc.processMessage(context.Background(), message(t, &task.EquivalenceRetryTask{Query: q, RetryCount: 1})); err != nil {
		t.Fatalf("processMessage: %v", err)
	}
	if len(h.queue.added) != 1 {
		t.Errorf("task requeued after reaching max retries")
	}
	if len(h.queue.acked) != 2 {
		t.Errorf("acked %d messages, want 2", len(h.queue.acked))
	}
}

func TestProcessMessageUnknownType(t *testing.T) {
	h := newHarness(&fakeClient{})
	msg := &redis.XMessage{ID: "1-0", Values: map[string]interface{}{"task_type": "Nope", "task_data": "{}"}}

	if err := h.svc.processMessage(context.Background(), msg); err == nil {
		t.Error("expected an error for an unknown task type")
	}
}
