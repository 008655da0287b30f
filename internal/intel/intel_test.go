package intel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/gladius/internal/llm"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) Search(ctx context.Context, query string, limit int) ([]string, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, query string) ([]string, bool, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]string), args.Bool(1), args.Error(2)
}

func (m *MockCache) Set(ctx context.Context, query string, snippets []string) error {
	return m.Called(ctx, query, snippets).Error(0)
}

func TestGatherer_Success(t *testing.T) {
	source := new(MockSource)
	source.On("Search", mock.Anything, "arriendo Chicó", 2).
		Return([]string{" uno ", "", "dos", "tres"}, nil)

	res := NewGatherer(source, WithLimit(2)).Gather(context.Background(), "arriendo Chicó")

	assert.False(t, res.Fallback)
	assert.Equal(t, []string{"uno", "dos"}, res.Snippets)
	assert.Equal(t, "- uno\n- dos", res.Text)
	assert.Equal(t, "mock", res.Source)
}

func TestGatherer_ErrorDegradesToFallback(t *testing.T) {
	source := new(MockSource)
	source.On("Search", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("dns failure"))

	res := NewGatherer(source).Gather(context.Background(), "q")

	assert.True(t, res.Fallback)
	assert.Equal(t, FallbackNotice, res.Text)
	assert.Empty(t, res.Snippets)
}

func TestGatherer_BlankResultsDegradeToFallback(t *testing.T) {
	source := new(MockSource)
	source.On("Search", mock.Anything, mock.Anything, mock.Anything).Return([]string{" ", ""}, nil)

	res := NewGatherer(source).Gather(context.Background(), "q")

	assert.True(t, res.Fallback)
}

type slowSource struct{}

func (slowSource) Name() string { return "slow" }

func (slowSource) Search(ctx context.Context, query string, limit int) ([]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestGatherer_TimeoutDegradesToFallback(t *testing.T) {
	start := time.Now()
	res := NewGatherer(slowSource{}, WithTimeout(20*time.Millisecond)).Gather(context.Background(), "q")

	assert.True(t, res.Fallback)
	assert.Less(t, time.Since(start), time.Second)
}

type panickySource struct{}

func (panickySource) Name() string { return "panicky" }

func (panickySource) Search(ctx context.Context, query string, limit int) ([]string, error) {
	panic("boom")
}

func TestGatherer_PanicDegradesToFallback(t *testing.T) {
	res := NewGatherer(panickySource{}).Gather(context.Background(), "q")
	assert.True(t, res.Fallback)
}

func TestGatherer_NilSource(t *testing.T) {
	assert.Equal(t, FallbackNotice, NewGatherer(nil).Gather(context.Background(), "q").Text)

	var g *Gatherer
	assert.True(t, g.Gather(context.Background(), "q").Fallback)
}

func TestGatherer_CacheHit(t *testing.T) {
	source := new(MockSource)
	cache := new(MockCache)
	cache.On("Get", mock.Anything, "q").Return([]string{"cacheado"}, true, nil)

	res := NewGatherer(source, WithCache(cache)).Gather(context.Background(), "q")

	assert.True(t, res.Cached)
	assert.Equal(t, "- cacheado", res.Text)
	source.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}

func TestGatherer_CacheMissStoresResult(t *testing.T) {
	source := new(MockSource)
	source.On("Search", mock.Anything, "q", DefaultLimit).Return([]string{"nuevo"}, nil)
	cache := new(MockCache)
	cache.On("Get", mock.Anything, "q").Return(nil, false, nil)
	cache.On("Set", mock.Anything, "q", []string{"nuevo"}).Return(nil)

	res := NewGatherer(source, WithCache(cache)).Gather(context.Background(), "q")

	assert.False(t, res.Cached)
	cache.AssertExpectations(t)
}

func TestGatherer_CacheErrorsAreIgnored(t *testing.T) {
	source := new(MockSource)
	source.On("Search", mock.Anything, "q", DefaultLimit).Return([]string{"dato"}, nil)
	cache := new(MockCache)
	cache.On("Get", mock.Anything, "q").Return(nil, false, errors.New("redis down"))
	cache.On("Set", mock.Anything, "q", mock.Anything).Return(errors.New("redis down"))

	res := NewGatherer(source, WithCache(cache)).Gather(context.Background(), "q")

	assert.False(t, res.Fallback)
	assert.Equal(t, "- dato", res.Text)
}

func TestDuckDuckGo_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "precio m2 Chicó", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		_, _ = w.Write([]byte(`{
			"AbstractText": "Chicó es un barrio de Bogotá.",
			"Answer": "",
			"RelatedTopics": [
				{"Text": "Chicó Norte - sector residencial"},
				{"Name": "Grupo", "Topics": [{"Text": "Parque El Virrey"}, {"Text": "Zona T"}]}
			]
		}`))
	}))
	defer srv.Close()

	snippets, err := NewDuckDuckGo(srv.URL).Search(context.Background(), "precio m2 Chicó", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Chicó es un barrio de Bogotá.",
		"Chicó Norte - sector residencial",
		"Parque El Virrey",
	}, snippets)
}

func TestDuckDuckGo_Errors(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"AbstractText":"","RelatedTopics":[]}`))
	}))
	defer empty.Close()

	_, err := NewDuckDuckGo(empty.URL).Search(context.Background(), "q", 3)
	assert.ErrorIs(t, err, ErrNoResults)

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	_, err = NewDuckDuckGo(broken.URL).Search(context.Background(), "q", 3)
	assert.ErrorContains(t, err, "503")
}

type cannedProvider struct {
	content string
	err     error
}

func (c cannedProvider) Name() string              { return "canned" }
func (c cannedProvider) AvailableModels() []string { return nil }
func (c cannedProvider) DefaultModel() string      { return "" }
func (c cannedProvider) IsConfigured() bool        { return true }

func (c cannedProvider) Complete(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &llm.Response{Content: c.content}, nil
}

func TestProviderSource_Search(t *testing.T) {
	src := NewProviderSource(cannedProvider{content: "1. Arriendo medio 3.5% anual\n\n- 2024: oferta baja\n* Vacancia 6%\nextra"}, "")

	snippets, err := src.Search(context.Background(), "Chicó", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Arriendo medio 3.5% anual", "2024: oferta baja", "Vacancia 6%"}, snippets)
	assert.Equal(t, "canned", src.Name())

	_, err = NewProviderSource(cannedProvider{content: "  \n "}, "").Search(context.Background(), "q", 3)
	assert.ErrorIs(t, err, ErrNoResults)
}
