package inference

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/backoff"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/logger"
)

// fakeService is an in-memory inference service.
type fakeService struct {
	mu         sync.Mutex
	blobs      map[string][]byte
	requestIDs []string
	polls      int

	// result builds the output CSV for an input blob.
	result func(input []byte) string
	// statuses is returned by successive polls; the last one repeats.
	statuses []JobStatus
	details  string
	// failUploads makes the first n uploads answer 503.
	failUploads int
	// pollCode, when set, is the status code of every job status poll.
	pollCode int
}

func newFakeService() *fakeService {
	return &fakeService{
		blobs:    make(map[string][]byte),
		statuses: []JobStatus{StatusNotStarted, StatusRunning, StatusFinished},
	}
}

func (f *fakeService) router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.mu.Lock()
			f.requestIDs = append(f.requestIDs, req.Header.Get(headerRequestID))
			f.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})

	r.Put("/blobs/{name}", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failUploads > 0 {
			f.failUploads--
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		data, _ := io.ReadAll(req.Body)
		name := chi.URLParam(req, "name")
		f.blobs[name] = data
		writeJSON(w, map[string]string{"location": name})
	})

	r.Get("/blobs/{name}", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		data, ok := f.blobs[chi.URLParam(req, "name")]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", contentTypeCSV)
		_, _ = w.Write(data)
	})

	r.Post("/jobs", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Input      string            `json:"input"`
			Parameters map[string]string `json:"parameters"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Parameters == nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		input, ok := f.blobs[body.Input]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if f.result != nil {
			f.blobs["result-"+body.Input] = []byte(f.result(input))
		}
		writeJSON(w, map[string]string{"id": "job-" + body.Input})
	})

	r.Get("/jobs/{id}", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.pollCode != 0 {
			w.WriteHeader(f.pollCode)
			return
		}
		idx := min(f.polls, len(f.statuses)-1)
		f.polls++
		jobID := chi.URLParam(req, "id")
		status := f.statuses[idx]
		resp := map[string]string{"id": jobID, "status": string(status)}
		if status == StatusFailed {
			resp["details"] = f.details
		}
		if status == StatusFinished {
			resp["result"] = "result-" + jobID[len("job-"):]
		}
		writeJSON(w, resp)
	})

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestService(t *testing.T, fake *fakeService, timeout time.Duration) *Service {
	t.Helper()
	retry := backoff.Policy{Attempts: 3, Delay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	return newLimitedService(t, fake, 1000, retry, 5*time.Millisecond, timeout)
}

// newLimitedService builds a service whose client allows rps requests per
// second and polls every poll.
func newLimitedService(t *testing.T, fake *fakeService, rps float64, retry backoff.Policy, poll, timeout time.Duration) *Service {
	t.Helper()

	server := httptest.NewServer(fake.router())
	t.Cleanup(server.Close)

	client, err := NewClient(ClientOptions{
		BaseURL:    server.URL,
		RPS:        rps,
		Retry:      retry,
		HTTPClient: server.Client(),
		Logger:     logger.Discard(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	return NewService(client, poll, timeout, logger.Discard())
}

// echoRows returns a result builder that answers every input row with row.
func echoRows(row string) func([]byte) string {
	return func(input []byte) string {
		lines := 0
		for _, b := range input {
			if b == '\n' {
				lines++
			}
		}
		out := ""
		for range lines - 1 {
			out += fmt.Sprintln(row)
		}
		return out
	}
}
