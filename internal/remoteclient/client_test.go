package remoteclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, baseURL string, maxRetries int) *Client {
	t.Helper()
	return New(Options{
		BaseURL:            baseURL,
		Token:              "test-token",
		ConnectionPoolSize: 4,
		RequestTimeout:     2 * time.Second,
		MaxRetries:         maxRetries,
		Logger:             zerolog.Nop(),
	})
}

func TestListUnits_SucceedsOnFirstTry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode([]unitDTO{{ID: "u1", Name: "teaspoon", Abbreviation: "tsp"}})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 3)
	units, err := c.ListUnits(context.Background())
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "teaspoon", units[0].Name)
}

// A permanent failure is never retried — exactly one request reaches
// the server.
func TestCreateUnit_PermanentValidationIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 3)
	_, err := c.CreateUnit(context.Background(), "", "", "")
	require.Error(t, err)
	assert.Equal(t, PermanentValidation, Kind(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

// A transient failure is retried up to maxRetries+1 total attempts, and
// the elapsed time stays bounded by the exponential-full-jitter cap.
func TestCreateUnit_TransientFailureRetriesThenFails(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	maxRetries := 2
	c := testClient(t, srv.URL, maxRetries)

	start := time.Now()
	_, err := c.CreateUnit(context.Background(), "teaspoon", "tsp", "")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, Transient, Kind(err))
	assert.Equal(t, int32(maxRetries+1), atomic.LoadInt32(&calls), "one initial attempt plus maxRetries retries")

	// No lower bound is asserted: with full jitter each backoff wait can
	// be close to zero.
	// Upper bound: generously bounded by the request timeout times the
	// attempt count plus the backoff cap per interval, so a hung policy
	// would fail this test rather than hang the suite.
	assert.Less(t, elapsed, time.Duration(maxRetries+1)*(2*time.Second+5*time.Second))
}

// A transient failure that recovers before the retry budget is exhausted
// succeeds and stops retrying immediately.
func TestCreateUnit_TransientFailureRecoversWithinBudget(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(unitDTO{ID: "u1", Name: "teaspoon", Abbreviation: "tsp"})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 3)
	unit, err := c.CreateUnit(context.Background(), "teaspoon", "tsp", "")
	require.NoError(t, err)
	assert.Equal(t, "u1", unit.ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCreateFood_ConflictClassifiesAsPermanentConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 3)
	_, err := c.CreateFood(context.Background(), "salt", "")
	require.Error(t, err)
	assert.Equal(t, PermanentConflict, Kind(err))
}

func TestListRecipes_UnauthorizedClassifiesAsPermanentAuthAndIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 3)
	_, err := c.ListRecipes(context.Background())
	require.Error(t, err)
	assert.Equal(t, PermanentAuth, Kind(err))
	assert.True(t, Kind(err).Fatal())
}

func TestCreateUnit_SetsIdempotencyKeyHeader(t *testing.T) {
	var seenKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenKey = r.Header.Get("Idempotency-Key")
		_ = json.NewEncoder(w).Encode(unitDTO{ID: "u1", Name: "teaspoon"})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 3)
	_, err := c.CreateUnit(context.Background(), "teaspoon", "tsp", "")
	require.NoError(t, err)
	assert.NotEmpty(t, seenKey)
}

func TestListRecipes_FollowsPagination(t *testing.T) {
	pages := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		if r.URL.Query().Get("cursor") == "" {
			_ = json.NewEncoder(w).Encode(pagedRecipes{
				Items:      []recipeDTO{{ID: "r1", Name: "Soup"}},
				NextCursor: "page2",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(pagedRecipes{Items: []recipeDTO{{ID: "r2", Name: "Stew"}}})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 3)
	recipes, err := c.ListRecipes(context.Background())
	require.NoError(t, err)
	require.Len(t, recipes, 2)
	assert.Equal(t, 2, pages)
}

// The connection pool bounds in-flight requests to ConnectionPoolSize.
func TestConnectionPool_BoundsConcurrentRequests(t *testing.T) {
	const poolSize = 2
	var inFlight, maxSeen int32
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&maxSeen)
			if n <= old || atomic.CompareAndSwapInt32(&maxSeen, old, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&inFlight, -1)
		_ = json.NewEncoder(w).Encode([]unitDTO{})
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Token: "t", ConnectionPoolSize: poolSize,
		RequestTimeout: 5 * time.Second, MaxRetries: 0, Logger: zerolog.Nop()})

	done := make(chan struct{})
	for i := 0; i < poolSize+3; i++ {
		go func() {
			_, _ = c.ListUnits(context.Background())
			done <- struct{}{}
		}()
	}

	time.Sleep(200 * time.Millisecond)
	close(release)
	for i := 0; i < poolSize+3; i++ {
		<-done
	}

	assert.LessOrEqual(t, int(atomic.LoadInt32(&maxSeen)), poolSize)
}

func TestUpdateIngredient_WholeRecipeMode_PatchesThenPutsFullRecipe(t *testing.T) {
	getCalls, putCalls := 0, 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			getCalls++
			_ = json.NewEncoder(w).Encode(recipeDTO{
				ID: "r1", Name: "Soup",
				Ingredients: []ingredientDTO{{ID: "i1", RecipeID: "r1", Note: "2 tsp salt"}},
			})
		case http.MethodPut:
			putCalls++
			var body recipeDTO
			_ = json.NewDecoder(r.Body).Decode(&body)
			require.Len(t, body.Ingredients, 1)
			assert.NotNil(t, body.Ingredients[0].UnitRef)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 3)
	unitRef := "u1"
	err := c.UpdateIngredient(context.Background(), ModeWholeRecipe, "r1", "i1", IngredientPatch{UnitRef: &unitRef})
	require.NoError(t, err)
	assert.Equal(t, 1, getCalls)
	assert.Equal(t, 1, putCalls)
}

func TestUpdateIngredient_WholeRecipeMode_MissingIngredientIsPermanentNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(recipeDTO{ID: "r1", Ingredients: []ingredientDTO{{ID: "other"}}})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 3)
	err := c.UpdateIngredient(context.Background(), ModeWholeRecipe, "r1", "missing", IngredientPatch{})
	require.Error(t, err)
	assert.Equal(t, PermanentNotFound, Kind(err))
}
