package resource

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/underlx/servicealerts/compute"
	"github.com/underlx/servicealerts/reconcile"
	"github.com/underlx/servicealerts/types"
	"github.com/yarf-framework/yarf"
)

const testAdminKey = "s3cret"

type memoryStore struct {
	disruptions []types.Disruption
	inbox       []types.ExternalDisruptionInInbox
	rejected    []types.RejectedExternalDisruption
}

func (s *memoryStore) GetDisruptions() ([]types.Disruption, error) {
	return append([]types.Disruption{}, s.disruptions...), nil
}

func (s *memoryStore) GetInbox() ([]types.ExternalDisruptionInInbox, error) {
	return append([]types.ExternalDisruptionInInbox{}, s.inbox...), nil
}

func (s *memoryStore) GetRejected() ([]types.RejectedExternalDisruption, error) {
	return append([]types.RejectedExternalDisruption{}, s.rejected...), nil
}

func (s *memoryStore) Commit(c reconcile.Collections) error {
	s.disruptions = c.Disruptions.Value()
	s.inbox = c.Inbox.Value()
	s.rejected = c.Rejected.Value()
	return nil
}

type fakeScraper struct {
	notices []types.ExternalDisruptionData
}

func (s *fakeScraper) ID() string { return "fake" }

func (s *fakeScraper) Fetch(ctx context.Context) ([]types.ExternalDisruptionData, error) {
	return s.notices, nil
}

var testNotice = types.ServiceAlert{
	AlertID:    "a1",
	Summary:    "Circulação interrompida",
	URL:        "https://example.com/a1",
	Lines:      []string{"pt-ml-azul"},
	ActiveFrom: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
}

type testServer struct {
	engine  *reconcile.Engine
	store   *memoryStore
	scraper *fakeScraper
	index   *compute.DisruptionIndex
	y       *yarf.Yarf
}

func newTestServer(t *testing.T) *testServer {
	s := &testServer{
		store:   &memoryStore{},
		scraper: &fakeScraper{notices: []types.ExternalDisruptionData{testNotice}},
		index:   compute.NewDisruptionIndex(),
	}
	logger := log.New(io.Discard, "", 0)
	s.engine = reconcile.NewEngine(s.store, logger, reconcile.ParserFunc(func(n types.ExternalDisruptionData) *reconcile.ParseResult {
		alert := n.(types.ServiceAlert)
		return &reconcile.ParseResult{
			Disruptions: []types.DisruptionData{types.LineDisruption{Lines: alert.Lines, Text: alert.Summary, Start: alert.ActiveFrom}},
		}
	}))
	s.engine.AssignID = func(data types.DisruptionData) string { return "d1" }
	s.engine.OnCommit = s.index.Refresh

	run := func(ctx context.Context) (*reconcile.CycleSummary, error) {
		return s.engine.RunCycle(ctx, s.scraper)
	}

	s.y = yarf.New()
	v1 := yarf.RouteGroup("/v1")
	v1.Add("/disruptions", new(Disruption).WithEngine(s.engine))
	v1.Add("/disruptions/:id", new(Disruption).WithEngine(s.engine))
	v1.Add("/departures/:line/:stop", new(Departure).WithIndex(s.index))
	v1.Add("/feeds/disruptions", new(DisruptionFeed).WithEngine(s.engine).WithFeedInfo("Disruptions", "https://example.com"))
	v1.Add("/inbox", new(Inbox).WithEngine(s.engine).WithAdminKey(testAdminKey).WithLogger(logger))
	v1.Add("/inbox/:token", new(Inbox).WithEngine(s.engine).WithAdminKey(testAdminKey).WithLogger(logger))
	v1.Add("/inbox/:token/:action", new(Inbox).WithEngine(s.engine).WithAdminKey(testAdminKey).WithLogger(logger))
	v1.Add("/rejected", new(Rejected).WithEngine(s.engine).WithAdminKey(testAdminKey).WithLogger(logger))
	v1.Add("/rejected/:token", new(Rejected).WithEngine(s.engine).WithAdminKey(testAdminKey).WithLogger(logger))
	v1.Add("/cycle", new(Cycle).WithRunner(run).WithAdminKey(testAdminKey).WithLogger(logger))
	s.y.AddGroup(v1)

	return s
}

func (s *testServer) do(method, path, body string, authenticated bool) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, path, reader)
	r.Header.Set("Accept", "application/json")
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		r.Header.Set("Authorization", "Bearer "+testAdminKey)
	}
	w := httptest.NewRecorder()
	s.y.ServeHTTP(w, r)
	return w
}

func TestInboxRequiresAdminKey(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusUnauthorized, s.do("GET", "/v1/inbox", "", false).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do("POST", "/v1/cycle", "", false).Code)
}

func TestCycleAndInbox(t *testing.T) {
	s := newTestServer(t)

	w := s.do("POST", "/v1/cycle", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	var summary reconcile.CycleSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.Disruptions.Added)
	assert.Equal(t, 1, summary.Inbox.Added)

	w = s.do("GET", "/v1/inbox", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []apiNotice
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, testNotice.ID().Token(), entries[0].Token)
	assert.Equal(t, "Circulação interrompida", entries[0].Headline)

	w = s.do("GET", "/v1/disruptions/d1", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	var d map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, "provisional", d["state"])
	assert.Equal(t, "line", d["kind"])

	assert.Equal(t, http.StatusNotFound, s.do("GET", "/v1/disruptions/nope", "", false).Code)

	w = s.do("GET", "/v1/departures/pt-ml-azul/pt-ml-baixa-chiado?time=2026-03-02T09:00:00Z", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	var attached []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &attached))
	require.Len(t, attached, 1)
	assert.Equal(t, "d1", attached[0]["id"])
}

func TestAcceptViaAPI(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do("POST", "/v1/cycle", "", true).Code)

	token := testNotice.ID().Token()
	w := s.do("POST", "/v1/inbox/"+token+"/accept", `{"autoDelete": true}`, true)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, s.store.inbox)
	require.Len(t, s.store.disruptions, 1)
	assert.Equal(t, types.StateApprovedAutoDelete, s.store.disruptions[0].State)

	w = s.do("GET", "/v1/feeds/disruptions", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Circulação interrompida")
	assert.Contains(t, w.Body.String(), "https://example.com/a1")

	assert.Equal(t, http.StatusNotFound, s.do("POST", "/v1/inbox/"+token+"/accept", `{}`, true).Code)
}

func TestRejectAndRestoreViaAPI(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do("POST", "/v1/cycle", "", true).Code)

	token := testNotice.ID().Token()
	assert.Equal(t, http.StatusBadRequest, s.do("POST", "/v1/inbox/!!!/reject", `{}`, true).Code)
	assert.Equal(t, http.StatusNotFound, s.do("POST", "/v1/inbox/"+token+"/frobnicate", `{}`, true).Code)

	w := s.do("POST", "/v1/inbox/"+token+"/reject", `{"resurfaceIfUpdated": true}`, true)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, s.store.inbox)
	assert.Empty(t, s.store.disruptions)
	require.Len(t, s.store.rejected, 1)

	w = s.do("GET", "/v1/rejected", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	var rejected []apiRejected
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rejected))
	require.Len(t, rejected, 1)
	assert.True(t, rejected[0].ResurfaceIfUpdated)
	assert.Equal(t, token, rejected[0].Token)

	require.Equal(t, http.StatusNoContent, s.do("DELETE", "/v1/rejected/"+token, "", true).Code)
	assert.Empty(t, s.store.rejected)
	assert.Equal(t, http.StatusNotFound, s.do("DELETE", "/v1/rejected/"+token, "", true).Code)
}

func TestDescribeWindow(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, "Em vigor", describeWindow(time.Time{}, time.Time{}))
	assert.Regexp(t, "^Desde 2 de [Mm]arço de 2026, 08:00$", describeWindow(start, time.Time{}))
	assert.Regexp(t, "^De 2 de [Mm]arço de 2026, 08:00 até 2 de [Mm]arço de 2026, 10:00$",
		describeWindow(start, start.Add(2*time.Hour)))
}
