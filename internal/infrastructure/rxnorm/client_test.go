package rxnorm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pharmamap/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	// No throttle delay in tests
	return NewClient(baseURL, time.Nanosecond, 5*time.Second, 3)
}

func TestNewClient(t *testing.T) {
	client := NewClient("https://rxnav.example.com/REST", 200*time.Millisecond, 30*time.Second, 3)

	assert.NotNil(t, client)
	assert.Equal(t, "https://rxnav.example.com/REST", client.baseURL)
	assert.Equal(t, 3, client.retries)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.rateLimiter)
	assert.False(t, client.debug)
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("https://rxnav.example.com/REST", 0, 0, 0)

	assert.Equal(t, 3, client.retries)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
}

func TestSetDebug(t *testing.T) {
	client := newTestClient("https://rxnav.example.com/REST")

	assert.False(t, client.debug)
	client.SetDebug(true)
	assert.True(t, client.debug)
	client.SetDebug(false)
	assert.False(t, client.debug)
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1000 * time.Millisecond},
		{3, 2000 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			result := exponentialBackoff(tt.attempt)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSearchByName_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rxcui.json", r.URL.Path)
		assert.Equal(t, "aspirin", r.URL.Query().Get("name"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"idGroup":{"name":"aspirin","rxnormId":["1191"]}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	rxcui, err := client.SearchByName(context.Background(), "aspirin")

	require.NoError(t, err)
	assert.Equal(t, "1191", rxcui)
}

func TestSearchByName_NoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// RxNav returns 200 with an empty idGroup when the name is unknown
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"idGroup":{"name":"nosuchdrug"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	rxcui, err := client.SearchByName(context.Background(), "nosuchdrug")

	assert.Empty(t, rxcui)
	assert.ErrorIs(t, err, domain.ErrConceptNotFound)
}

func TestSearchByName_ServerError_Retries(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"idGroup":{"rxnormId":["161"]}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	rxcui, err := client.SearchByName(context.Background(), "acetaminophen")

	require.NoError(t, err)
	assert.Equal(t, "161", rxcui)
	assert.Equal(t, 3, attempts)
}

func TestSearchByName_TooManyRequests_Retries(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"idGroup":{"rxnormId":["5640"]}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	rxcui, err := client.SearchByName(context.Background(), "ibuprofen")

	require.NoError(t, err)
	assert.Equal(t, "5640", rxcui)
	assert.Equal(t, 2, attempts)
}

func TestSearchByName_ClientError_NoRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.SearchByName(context.Background(), "bad&query")

	assert.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRxNormAPIFailure)
	assert.Equal(t, 1, attempts) // Should not retry 4xx errors
}

func TestSearchByName_AllRetriesFail(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.SearchByName(context.Background(), "aspirin")

	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestSearchByName_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.SearchByName(context.Background(), "aspirin")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestSearchByName_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.SearchByName(ctx, "aspirin")
	assert.Error(t, err)
}

func TestApproximateSearch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/approximateTerm.json", r.URL.Path)
		assert.Equal(t, "amoxicilline", r.URL.Query().Get("term"))
		assert.Equal(t, "5", r.URL.Query().Get("maxEntries"))

		// RxNav serializes scores as strings
		w.Write([]byte(`{"approximateGroup":{"candidate":[
			{"rxcui":"723","term":"amoxicillin","score":"85"},
			{"rxcui":"19711","term":"amoxicillin trihydrate","score":"62"}
		]}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	candidates, err := client.ApproximateSearch(context.Background(), "amoxicilline", 5)

	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, domain.Candidate{Rxcui: "723", Term: "amoxicillin", Score: 85}, candidates[0])
	assert.Equal(t, 62, candidates[1].Score)
}

func TestApproximateSearch_NumericScores(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"approximateGroup":{"candidate":[{"rxcui":"1","term":"x","score":92}]}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	candidates, err := client.ApproximateSearch(context.Background(), "x", 5)

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, 92, candidates[0].Score)
}

func TestApproximateSearch_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"approximateGroup":{}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	candidates, err := client.ApproximateSearch(context.Background(), "zzzz", 5)

	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestGetRelatedConcepts_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rxcui/1191/related.json", r.URL.Path)
		assert.Equal(t, "SCD+SBD", r.URL.Query().Get("tty"))

		w.Write([]byte(`{"relatedGroup":{"conceptGroup":[
			{"tty":"SCD","conceptProperties":[
				{"rxcui":"243670","name":"aspirin 81 MG Oral Tablet","tty":"SCD"},
				{"rxcui":"198467","name":"aspirin 325 MG Oral Tablet","tty":"SCD"}
			]},
			{"tty":"SBD","conceptProperties":[
				{"rxcui":"211874","name":"aspirin 325 MG Oral Tablet [Bayer Aspirin]","tty":"SBD"}
			]}
		]}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	concepts, err := client.GetRelatedConcepts(context.Background(), "1191", "SCD+SBD")

	require.NoError(t, err)
	require.Len(t, concepts, 3)
	assert.Equal(t, "243670", concepts[0].Rxcui)
	assert.Equal(t, "SCD", concepts[0].TTY)
	assert.Equal(t, "SBD", concepts[2].TTY)
}

func TestGetRelatedConcepts_GroupTTYFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Some responses omit tty on conceptProperties; the group carries it
		w.Write([]byte(`{"relatedGroup":{"conceptGroup":[
			{"tty":"SCD","conceptProperties":[{"rxcui":"1","name":"x"}]}
		]}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	concepts, err := client.GetRelatedConcepts(context.Background(), "1", "SCD")

	require.NoError(t, err)
	require.Len(t, concepts, 1)
	assert.Equal(t, "SCD", concepts[0].TTY)
}

func TestGetRelatedConcepts_EmptyGroups(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"relatedGroup":{"conceptGroup":[{"tty":"SCD"}]}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	concepts, err := client.GetRelatedConcepts(context.Background(), "999", "SCD+SBD")

	require.NoError(t, err)
	assert.Empty(t, concepts)
}

func TestGetRelatedConcepts_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetRelatedConcepts(context.Background(), "0", "SCD")

	assert.ErrorIs(t, err, domain.ErrConceptNotFound)
}

func TestReadLimitedBody(t *testing.T) {
	t.Run("reads within limit", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("short content"))
		}))
		defer server.Close()

		resp, err := http.Get(server.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := readLimitedBody(resp.Body, 1000)
		require.NoError(t, err)
		assert.Equal(t, "short content", string(body))
	})

	t.Run("truncates beyond limit", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for i := 0; i < 100; i++ {
				w.Write([]byte("0123456789"))
			}
		}))
		defer server.Close()

		resp, err := http.Get(server.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := readLimitedBody(resp.Body, 100)
		require.NoError(t, err)
		assert.Len(t, body, 100)
	})
}

func TestRequestCreationError(t *testing.T) {
	client := newTestClient("://invalid-url")
	_, err := client.SearchByName(context.Background(), "aspirin")
	assert.Error(t, err)
}
