package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/product_catalog/internal/domain"
	"github.com/Pesokrava/product_catalog/internal/pkg/logger"
	"github.com/Pesokrava/product_catalog/internal/usecase/product"
)

// memProductStore is an in-memory domain.ProductRepository with failure injection by title
type memProductStore struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	failFor  map[string]bool
	puts     int
}

func newMemProductStore() *memProductStore {
	return &memProductStore{products: make(map[string]*domain.Product), failFor: make(map[string]bool)}
}

func (s *memProductStore) Put(ctx context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.failFor[p.Title] {
		return errors.New("products table unavailable")
	}
	copied := *p
	s.products[p.ID] = &copied
	return nil
}

func (s *memProductStore) GetByID(ctx context.Context, id string) (*domain.AvailableProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.AvailableProduct{Product: *p}, nil
}

func (s *memProductStore) List(ctx context.Context, limit, offset int) ([]*domain.AvailableProduct, error) {
	return nil, nil
}

func (s *memProductStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.products), nil
}

// memStockStore is an in-memory domain.StockStore that fails for configured product ids
type memStockStore struct {
	mu      sync.Mutex
	stock   map[string]int
	failAll bool
}

func newMemStockStore() *memStockStore {
	return &memStockStore{stock: make(map[string]int)}
}

func (s *memStockStore) Put(ctx context.Context, st *domain.Stock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errors.New("stock table unavailable")
	}
	s.stock[st.ProductID] = st.Count
	return nil
}

// syncBuffer lets concurrent workers log into one buffer
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// creatorFunc adapts a function to ProductCreator
type creatorFunc func(ctx context.Context, input *domain.ProductInput) (*domain.Product, error)

func (f creatorFunc) CreateFromInput(ctx context.Context, input *domain.ProductInput) (*domain.Product, error) {
	return f(ctx, input)
}

type fixture struct {
	products *memProductStore
	stocks   *memStockStore
	service  *product.Service
	logs     *syncBuffer
}

func newFixture() *fixture {
	logs := &syncBuffer{}
	log := logger.NewWithWriter("test", logs)
	products := newMemProductStore()
	stocks := newMemStockStore()
	return &fixture{
		products: products,
		stocks:   stocks,
		service:  product.NewService(products, stocks, log),
		logs:     logs,
	}
}

func (f *fixture) pipeline(concurrency int) *Pipeline {
	return NewPipeline(f.service, concurrency, time.Second, logger.NewWithWriter("test", f.logs))
}

func messages(bodies ...string) []domain.QueueMessage {
	msgs := make([]domain.QueueMessage, len(bodies))
	for i, body := range bodies {
		msgs[i] = domain.QueueMessage{ID: fmt.Sprintf("msg-%d", i+1), Body: []byte(body)}
	}
	return msgs
}

func failureKinds(report *domain.BatchReport) map[string]string {
	kinds := make(map[string]string, len(report.Errors))
	for _, f := range report.Errors {
		kinds[f.MessageID] = f.Kind
	}
	return kinds
}

func TestPipeline_ProcessBatch_MixedBatch(t *testing.T) {
	f := newFixture()

	report := f.pipeline(3).ProcessBatch(context.Background(), messages(
		`{"title":"Widget","description":"A widget","price":9.99}`,
		`{"title":"","price":5}`,
		`not-json`,
	))

	assert.Equal(t, 1, report.ProcessedCount)
	assert.Equal(t, 2, report.ErrorCount)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "Widget", report.Results[0].Title)
	assert.Equal(t, map[string]string{
		"msg-2": domain.KindValidation,
		"msg-3": domain.KindParse,
	}, failureKinds(report))

	// Failures keep their original payload
	for _, failure := range report.Errors {
		if failure.MessageID == "msg-3" {
			assert.Equal(t, "not-json", failure.RawBody)
			assert.NotEmpty(t, failure.Error)
		}
	}

	// Only the valid message reached the stores
	assert.Equal(t, 1, f.products.puts)
	assert.Len(t, f.stocks.stock, 1)
	assert.Equal(t, 0, f.stocks.stock[report.Results[0].ID])
}

func TestPipeline_ProcessBatch_CountsAlwaysAddUp(t *testing.T) {
	bodies := []string{
		`{"title":"A","price":1}`,
		`{"title":"B","price":-1}`,
		`{"price":3}`,
		`{"title":"C","price":0,"count":9}`,
		`{`,
		`{"title":"D","price":"free"}`,
		`{"title":"E","price":2.5,"count":-2}`,
	}

	for n := 0; n <= len(bodies); n++ {
		t.Run(fmt.Sprintf("batch of %d", n), func(t *testing.T) {
			f := newFixture()
			report := f.pipeline(2).ProcessBatch(context.Background(), messages(bodies[:n]...))

			assert.Equal(t, n, report.ProcessedCount+report.ErrorCount)
			assert.Len(t, report.Results, report.ProcessedCount)
			assert.Len(t, report.Errors, report.ErrorCount)
		})
	}
}

func TestPipeline_ProcessBatch_EverySuccessHasStock(t *testing.T) {
	f := newFixture()

	report := f.pipeline(4).ProcessBatch(context.Background(), messages(
		`{"title":"A","price":1,"count":3}`,
		`{"title":"B","price":2}`,
		`{"title":"C","price":3,"count":1}`,
	))

	require.Equal(t, 3, report.ProcessedCount)
	for _, p := range report.Results {
		_, ok := f.stocks.stock[p.ID]
		assert.True(t, ok, "missing stock for %s", p.ID)
	}
}

func TestPipeline_ProcessBatch_StockFailureReportsFailureAndLeavesOrphan(t *testing.T) {
	f := newFixture()
	f.stocks.failAll = true

	report := f.pipeline(1).ProcessBatch(context.Background(), messages(`{"title":"Orphan","price":4}`))

	assert.Equal(t, 0, report.ProcessedCount)
	require.Equal(t, 1, report.ErrorCount)
	assert.Equal(t, domain.KindPersistence, report.Errors[0].Kind)

	// The product row exists even though the item is reported failed
	require.Len(t, f.products.products, 1)
	for id, p := range f.products.products {
		assert.Equal(t, "Orphan", p.Title)
		assert.Contains(t, report.Errors[0].Error, id)
	}
	assert.Empty(t, f.stocks.stock)
}

func TestPipeline_ProcessBatch_ProductFailureSkipsStock(t *testing.T) {
	f := newFixture()
	f.products.failFor["Broken"] = true

	report := f.pipeline(2).ProcessBatch(context.Background(), messages(
		`{"title":"Broken","price":1}`,
		`{"title":"Fine","price":1}`,
	))

	assert.Equal(t, 1, report.ProcessedCount)
	assert.Equal(t, map[string]string{"msg-1": domain.KindPersistence}, failureKinds(report))
	assert.Len(t, f.stocks.stock, 1)
}

func TestPipeline_ProcessBatch_OrderIndependent(t *testing.T) {
	bodies := []string{
		`{"title":"A","price":1}`,
		`{"title":"B","price":2}`,
		`{"title":"","price":2}`,
		`oops`,
		`{"title":"C","price":3}`,
		`{"title":"D","price":-4}`,
		`{"title":"E","price":5}`,
		`{"title":"F","price":6}`,
	}
	base := messages(bodies...)

	summarize := func(report *domain.BatchReport) ([]string, []string) {
		var titles, failed []string
		for _, p := range report.Results {
			titles = append(titles, p.Title)
		}
		for _, e := range report.Errors {
			failed = append(failed, e.MessageID+":"+e.Kind)
		}
		sort.Strings(titles)
		sort.Strings(failed)
		return titles, failed
	}

	var wantTitles, wantFailed []string
	for run := 0; run < 5; run++ {
		f := newFixture()
		jittery := creatorFunc(func(ctx context.Context, input *domain.ProductInput) (*domain.Product, error) {
			time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
			return f.service.CreateFromInput(ctx, input)
		})
		p := NewPipeline(jittery, 4, time.Second, logger.NewWithWriter("test", f.logs))

		shuffled := append([]domain.QueueMessage(nil), base...)
		rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		report := p.ProcessBatch(context.Background(), shuffled)
		titles, failed := summarize(report)

		assert.Equal(t, 5, report.ProcessedCount)
		assert.Equal(t, 3, report.ErrorCount)
		if run == 0 {
			wantTitles, wantFailed = titles, failed
			continue
		}
		assert.Equal(t, wantTitles, titles)
		assert.Equal(t, wantFailed, failed)
	}
}

func TestPipeline_ProcessBatch_SameInputTwiceYieldsDistinctProducts(t *testing.T) {
	f := newFixture()
	body := `{"title":"Widget","price":9.99}`

	report := f.pipeline(2).ProcessBatch(context.Background(), messages(body, body))

	require.Equal(t, 2, report.ProcessedCount)
	assert.NotEqual(t, report.Results[0].ID, report.Results[1].ID)
	assert.Len(t, f.products.products, 2)
}

func TestPipeline_ProcessBatch_CancelledBeforeStart(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := f.pipeline(2).ProcessBatch(ctx, messages(
		`{"title":"A","price":1}`,
		`{"title":"B","price":1}`,
		`garbage`,
	))

	assert.Equal(t, 0, report.ProcessedCount)
	assert.Equal(t, 3, report.ErrorCount)
	for _, failure := range report.Errors {
		assert.Equal(t, domain.KindCancelled, failure.Kind)
	}
	assert.Equal(t, 0, f.products.puts)
}

func TestPipeline_ProcessBatch_CancelledMidBatch(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cancelAfterFirst := creatorFunc(func(ctx context.Context, input *domain.ProductInput) (*domain.Product, error) {
		p, err := f.service.CreateFromInput(ctx, input)
		cancel()
		return p, err
	})
	p := NewPipeline(cancelAfterFirst, 1, 0, logger.NewWithWriter("test", f.logs))

	report := p.ProcessBatch(ctx, messages(
		`{"title":"A","price":1}`,
		`{"title":"B","price":1}`,
		`{"title":"C","price":1}`,
	))

	assert.Equal(t, 1, report.ProcessedCount)
	assert.Equal(t, map[string]string{
		"msg-2": domain.KindCancelled,
		"msg-3": domain.KindCancelled,
	}, failureKinds(report))
}

func TestPipeline_ProcessBatch_InterruptedWriteIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	blocking := creatorFunc(func(ctx context.Context, input *domain.ProductInput) (*domain.Product, error) {
		cancel()
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, ctx.Err())
	})
	p := NewPipeline(blocking, 1, 0, logger.NewWithWriter("test", &syncBuffer{}))

	report := p.ProcessBatch(ctx, messages(`{"title":"A","price":1}`))

	require.Equal(t, 1, report.ErrorCount)
	assert.Equal(t, domain.KindCancelled, report.Errors[0].Kind)
}

func TestPipeline_ProcessBatch_PanicIsIsolated(t *testing.T) {
	f := newFixture()
	panicky := creatorFunc(func(ctx context.Context, input *domain.ProductInput) (*domain.Product, error) {
		if input.Title == "boom" {
			panic("store driver exploded")
		}
		return f.service.CreateFromInput(ctx, input)
	})
	p := NewPipeline(panicky, 2, time.Second, logger.NewWithWriter("test", f.logs))

	report := p.ProcessBatch(context.Background(), messages(
		`{"title":"boom","price":1}`,
		`{"title":"ok","price":1}`,
	))

	assert.Equal(t, 1, report.ProcessedCount)
	require.Equal(t, 1, report.ErrorCount)
	assert.Equal(t, domain.KindInternal, report.Errors[0].Kind)
	assert.Contains(t, report.Errors[0].Error, "store driver exploded")
}

func TestPipeline_ProcessBatch_NilProductIsInternalFailure(t *testing.T) {
	f := newFixture()
	silent := creatorFunc(func(ctx context.Context, input *domain.ProductInput) (*domain.Product, error) {
		return nil, nil
	})
	p := NewPipeline(silent, 1, time.Second, logger.NewWithWriter("test", f.logs))

	report := p.ProcessBatch(context.Background(), messages(`{"title":"Widget","price":1}`))

	assert.Equal(t, 0, report.ProcessedCount)
	require.Equal(t, 1, report.ErrorCount)
	require.NotNil(t, report.Errors[0])
	assert.Equal(t, "msg-1", report.Errors[0].MessageID)
	assert.Equal(t, domain.KindInternal, report.Errors[0].Kind)
}

func TestPipeline_ProcessBatch_LogsFailedPayload(t *testing.T) {
	f := newFixture()

	f.pipeline(1).ProcessBatch(context.Background(), messages(`{"title":"","price":5}`))

	logs := f.logs.String()
	assert.Contains(t, logs, "Batch item failed")
	assert.Contains(t, logs, `msg-1`)
	assert.Contains(t, logs, `ValidationError`)
	assert.Contains(t, logs, `\"title\":\"\"`)
}

func TestPipeline_ProcessBatch_Empty(t *testing.T) {
	f := newFixture()

	report := f.pipeline(0).ProcessBatch(context.Background(), nil)

	assert.Equal(t, 0, report.Total())
}

func TestPipeline_Workers(t *testing.T) {
	p := &Pipeline{concurrency: 0}
	assert.Equal(t, 7, p.workers(7))

	p.concurrency = 3
	assert.Equal(t, 3, p.workers(7))
	assert.Equal(t, 2, p.workers(2))
}
