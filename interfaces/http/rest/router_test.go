package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ameliorate/application/commands/bus"
	commandhandlers "ameliorate/application/commands/handlers"
	querybus "ameliorate/application/queries/bus"
	queryhandlers "ameliorate/application/queries/handlers"
	"ameliorate/infrastructure/messaging"
	"ameliorate/infrastructure/persistence/sqlite"
	"ameliorate/interfaces/http/rest"
	"ameliorate/pkg/auth"
	"ameliorate/pkg/observability"
)

const testSecret = "router-test-secret"

type testServer struct {
	handler http.Handler
	tokens  *auth.JWTGenerator
}

func newTestServer(t *testing.T, limiters rest.RateLimiters) *testServer {
	t.Helper()
	logger := zap.NewNop()

	db, err := sqlite.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Migrate(context.Background())
	require.NoError(t, err)

	topics := sqlite.NewTopicRepository(db)
	users := sqlite.NewUserRepository(db)
	publisher := messaging.NewLogPublisher(logger)
	collector := observability.NewCollector("ameliorate_test")

	commandBus := bus.NewCommandBus(bus.LoggingMiddleware(logger), bus.MetricsMiddleware(collector))
	require.NoError(t, commandhandlers.NewTopicHandler(topics, users, publisher, logger, collector).Register(commandBus))
	require.NoError(t, commandhandlers.NewGraphPartHandler(topics, publisher, logger, collector).Register(commandBus))
	require.NoError(t, commandhandlers.NewUserHandler(users, publisher, logger).Register(commandBus))

	queryBus := querybus.NewQueryBus()
	require.NoError(t, queryhandlers.NewTopicQueryHandler(topics, users, logger).Register(queryBus))

	jwtCfg := auth.JWTConfig{SecretKey: testSecret, Issuer: "ameliorate"}
	validator, err := auth.NewJWTValidator(jwtCfg)
	require.NoError(t, err)
	tokens, err := auth.NewJWTGenerator(jwtCfg, time.Hour)
	require.NoError(t, err)

	router := rest.NewRouter(rest.RouterConfig{
		CommandBus:   commandBus,
		QueryBus:     queryBus,
		Logger:       logger,
		Validator:    validator,
		RateLimiters: limiters,
		Collector:    collector,
		Health:       db,
		CORSOrigins:  []string{"http://localhost:3000"},
	})
	return &testServer{handler: router.Setup(), tokens: tokens}
}

func (s *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := s.tokens.GenerateToken(userID, userID+"@example.com", nil)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// signUp creates the profile for userID and returns its token
func (s *testServer) signUp(t *testing.T, userID, username string) string {
	t.Helper()
	token := s.token(t, userID)
	rec := s.do(t, http.MethodPost, "/api/v2/users", token, map[string]string{"username": username})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return token
}

func (s *testServer) createTopic(t *testing.T, token, title string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v2/topics", token, map[string]string{"title": title})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)["id"].(string)
}

func (s *testServer) addNode(t *testing.T, token, topicID string, body map[string]string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v2/topics/"+topicID+"/nodes", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)["nodeId"].(string)
}

func diagramOf(t *testing.T, rec *httptest.ResponseRecorder) (nodes, edges []interface{}) {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	d := decode(t, rec)["diagram"].(map[string]interface{})
	return d["nodes"].([]interface{}), d["edges"].([]interface{})
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, rest.RateLimiters{})

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode(t, rec)["status"])

	s.do(t, http.MethodGet, "/api/v2/users/nobody", "", nil)
	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/api/v2/users/{username}"`)
}

func TestTopicLifecycle(t *testing.T) {
	s := newTestServer(t, rest.RateLimiters{})
	token := s.signUp(t, "user-alice", "alice")

	topicID := s.createTopic(t, token, "city traffic")
	topicPath := "/api/v2/topics/alice/city%20traffic"

	rec := s.do(t, http.MethodGet, topicPath, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	topic := decode(t, rec)
	assert.Equal(t, topicID, topic["id"])
	assert.Equal(t, "v2", rec.Header().Get("X-API-Version"))

	problemID := s.addNode(t, token, topicID, map[string]string{"toNodeType": "problem", "text": "congestion"})
	rec = s.do(t, http.MethodPost, "/api/v2/topics/"+topicID+"/nodes", token, map[string]string{
		"fromNodeId": problemID,
		"as":         "child",
		"toNodeType": "solution",
		"text":       "congestion pricing",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.NotEmpty(t, created["edgeId"])

	nodes, edges := diagramOf(t, s.do(t, http.MethodGet, topicPath+"/diagram", "", nil))
	assert.Len(t, nodes, 2)
	require.Len(t, edges, 1)
	edge := edges[0].(map[string]interface{})
	assert.Equal(t, problemID, edge["source"])
	assert.Equal(t, "solves", edge["label"])

	t.Run("claim tree", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/v2/topics/"+topicID+"/claim-trees", token, map[string]string{"arguedPartId": problemID})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, problemID, decode(t, rec)["claimTreeId"])

		rec = s.do(t, http.MethodPost, "/api/v2/topics/"+topicID+"/claim-trees", token, map[string]string{"arguedPartId": problemID})
		require.Equal(t, http.StatusOK, rec.Code, "creating an existing claim tree is a no-op")

		nodes, _ := diagramOf(t, s.do(t, http.MethodGet, topicPath+"/diagram?claimTree="+problemID, "", nil))
		require.Len(t, nodes, 1)
		assert.Equal(t, "rootClaim", nodes[0].(map[string]interface{})["type"])

		topicNodes, _ := diagramOf(t, s.do(t, http.MethodGet, topicPath+"/diagram", "", nil))
		assert.Len(t, topicNodes, 2, "claims stay out of the topic diagram")

		rec = s.do(t, http.MethodGet, topicPath+"/claim-trees", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, decode(t, rec)["parts"])
	})

	t.Run("selection", func(t *testing.T) {
		nodes, _ := diagramOf(t, s.do(t, http.MethodGet, topicPath+"/diagram?selected="+problemID, "", nil))
		selected := 0
		for _, n := range nodes {
			if n.(map[string]interface{})["selected"] == true {
				selected++
				assert.Equal(t, problemID, n.(map[string]interface{})["id"])
			}
		}
		assert.Equal(t, 1, selected)
	})

	t.Run("score", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, "/api/v2/topics/"+topicID+"/scores", token, map[string]interface{}{"graphPartId": problemID, "value": 7})
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = s.do(t, http.MethodPut, "/api/v2/topics/"+topicID+"/scores", token, map[string]interface{}{"graphPartId": problemID, "value": 11})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = s.do(t, http.MethodGet, topicPath+"/data", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode(t, rec)["userScores"], 1)
	})

	t.Run("delete node cascades", func(t *testing.T) {
		rec := s.do(t, http.MethodDelete, "/api/v2/topics/"+topicID+"/nodes/"+problemID, token, nil)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = s.do(t, http.MethodGet, topicPath+"/data", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		assert.Len(t, data["nodes"], 1, "solution remains, problem and its claim tree are gone")
		assert.Empty(t, data["edges"])
		assert.Empty(t, data["userScores"])
	})

	t.Run("rename and delete", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, "/api/v2/topics/"+topicID, token, map[string]string{"title": "urban traffic"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = s.do(t, http.MethodGet, "/api/v2/topics/alice/urban%20traffic", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = s.do(t, http.MethodDelete, "/api/v2/topics/"+topicID, token, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = s.do(t, http.MethodGet, "/api/v2/topics/alice/urban%20traffic", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestMutationErrors(t *testing.T) {
	s := newTestServer(t, rest.RateLimiters{})
	alice := s.signUp(t, "user-alice", "alice")
	bob := s.signUp(t, "user-bob", "bob")
	topicID := s.createTopic(t, alice, "housing")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		status int
	}{
		{"missing token", http.MethodPost, "/api/v2/topics", "", map[string]string{"title": "x"}, http.StatusUnauthorized},
		{"bad token", http.MethodPost, "/api/v2/topics", "not-a-jwt", map[string]string{"title": "x"}, http.StatusUnauthorized},
		{"duplicate title", http.MethodPost, "/api/v2/topics", alice, map[string]string{"title": "housing"}, http.StatusConflict},
		{"invalid title", http.MethodPost, "/api/v2/topics", alice, map[string]string{"title": "a/b"}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/v2/topics", alice, map[string]string{"name": "x"}, http.StatusBadRequest},
		{"non-owner rename", http.MethodPut, "/api/v2/topics/" + topicID, bob, map[string]string{"title": "mine"}, http.StatusForbidden},
		{"non-owner delete", http.MethodDelete, "/api/v2/topics/" + topicID, bob, nil, http.StatusForbidden},
		{"non-owner add node", http.MethodPost, "/api/v2/topics/" + topicID + "/nodes", bob, map[string]string{"toNodeType": "problem"}, http.StatusForbidden},
		{"unknown node type", http.MethodPost, "/api/v2/topics/" + topicID + "/nodes", alice, map[string]string{"toNodeType": "idea"}, http.StatusBadRequest},
		{"missing topic", http.MethodDelete, "/api/v2/topics/0b0f5a4e-2a8c-4d5e-9a77-6c1a2b3c4d5e", alice, nil, http.StatusNotFound},
		{"duplicate username", http.MethodPost, "/api/v2/users", s.token(t, "user-carol"), map[string]string{"username": "alice"}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if rec.Code >= 400 {
				assert.Equal(t, true, decode(t, rec)["error"])
			}
		})
	}
}

func TestUserRoutes(t *testing.T) {
	s := newTestServer(t, rest.RateLimiters{})
	token := s.signUp(t, "user-alice", "alice")
	s.createTopic(t, token, "first")
	s.createTopic(t, token, "second")

	rec := s.do(t, http.MethodGet, "/api/v2/users/alice", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", decode(t, rec)["username"])

	rec = s.do(t, http.MethodGet, "/api/v2/users/alice/topics?page_size=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode(t, rec)
	assert.Len(t, page["items"], 1)
	assert.Equal(t, float64(2), page["pagination"].(map[string]interface{})["total"])

	rec = s.do(t, http.MethodGet, "/api/v2/users/nobody", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaygroundDiagram(t *testing.T) {
	s := newTestServer(t, rest.RateLimiters{})

	state := map[string]interface{}{
		"graph": map[string]interface{}{
			"nodes": []map[string]interface{}{
				{"id": "p1", "type": "problem", "label": "noise"},
				{"id": "s1", "type": "solution", "label": "barriers"},
			},
			"edges": []map[string]interface{}{
				{"id": "e1", "source": "p1", "target": "s1", "label": "solves"},
			},
		},
	}

	rec := s.do(t, http.MethodPost, "/api/v2/playground/diagram", "", map[string]interface{}{"state": state, "selectedId": "s1"})
	nodes, edges := diagramOf(t, rec)
	assert.Len(t, nodes, 2)
	assert.Len(t, edges, 1)

	state["id"] = "0b0f5a4e-2a8c-4d5e-9a77-6c1a2b3c4d5e"
	rec = s.do(t, http.MethodPost, "/api/v2/playground/diagram", "", map[string]interface{}{"state": state})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaygroundDiagram_RejectsInconsistentGraphs(t *testing.T) {
	s := newTestServer(t, rest.RateLimiters{})

	node := func(id, nodeType, argued string) map[string]interface{} {
		return map[string]interface{}{"id": id, "type": nodeType, "label": id, "arguedDiagramPartId": argued}
	}
	edge := func(id, source, target, label string) map[string]interface{} {
		return map[string]interface{}{"id": id, "source": source, "target": target, "label": label}
	}

	tests := []struct {
		name  string
		nodes []map[string]interface{}
		edges []map[string]interface{}
	}{
		{
			name:  "duplicate node ids",
			nodes: []map[string]interface{}{node("a", "problem", ""), node("a", "solution", "")},
		},
		{
			name:  "edge reuses a node id",
			nodes: []map[string]interface{}{node("a", "problem", ""), node("b", "solution", "")},
			edges: []map[string]interface{}{edge("a", "a", "b", "solves")},
		},
		{
			name:  "topic node in a claim tree",
			nodes: []map[string]interface{}{node("a", "problem", ""), node("b", "solution", "a")},
		},
		{
			name:  "claim outside a claim tree",
			nodes: []map[string]interface{}{node("a", "problem", ""), node("c", "support", "")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := map[string]interface{}{
				"graph": map[string]interface{}{"nodes": tt.nodes, "edges": tt.edges},
			}
			rec := s.do(t, http.MethodPost, "/api/v2/playground/diagram", "", map[string]interface{}{"state": state, "selectedId": "a"})
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestConnectNodes(t *testing.T) {
	s := newTestServer(t, rest.RateLimiters{})
	alice := s.signUp(t, "user-alice", "alice")
	bob := s.signUp(t, "user-bob", "bob")
	topicID := s.createTopic(t, alice, "water supply")
	edgesPath := "/api/v2/topics/" + topicID + "/edges"

	problemID := s.addNode(t, alice, topicID, map[string]string{"toNodeType": "problem", "text": "drought"})
	solutionID := s.addNode(t, alice, topicID, map[string]string{"toNodeType": "solution", "text": "desalination"})
	body := map[string]string{"parentId": problemID, "childId": solutionID}

	rec := s.do(t, http.MethodPost, edgesPath, bob, body)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, edgesPath, alice, map[string]string{"parentId": problemID, "childId": solutionID, "relation": "causes"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, edgesPath, alice, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	edgeID := decode(t, rec)["edgeId"]
	assert.NotEmpty(t, edgeID)

	rec = s.do(t, http.MethodPost, edgesPath, alice, body)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	_, edges := diagramOf(t, s.do(t, http.MethodGet, "/api/v2/topics/alice/water%20supply/diagram", "", nil))
	require.Len(t, edges, 1)
	got := edges[0].(map[string]interface{})
	assert.Equal(t, edgeID, got["id"])
	assert.Equal(t, problemID, got["source"])
	assert.Equal(t, solutionID, got["target"])
	assert.Equal(t, "solves", got["label"])
}

func TestLegacyRoutes(t *testing.T) {
	s := newTestServer(t, rest.RateLimiters{})
	token := s.signUp(t, "user-alice", "alice")
	s.createTopic(t, token, "legacy")

	rec := s.do(t, http.MethodGet, "/api/v1/topics/alice/legacy", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "v1", rec.Header().Get("X-API-Version"))
	assert.Equal(t, "true", rec.Header().Get("X-API-Deprecated"))
	assert.Equal(t, "legacy", decode(t, rec)["title"])

	rec = s.do(t, http.MethodGet, "/api/v1/users/alice/topics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/topics/alice/legacy", token, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRateLimits(t *testing.T) {
	s := newTestServer(t, rest.RateLimiters{
		IP:   auth.NewIPRateLimiter(2),
		User: auth.NewUserRateLimiter(1),
	})
	token := s.token(t, "user-alice")

	rec := s.do(t, http.MethodPost, "/api/v2/users", token, map[string]string{"username": "alice"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v2/topics", token, map[string]string{"title": "limited"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "second authenticated request exceeds the user limit")

	rec = s.do(t, http.MethodGet, "/api/v2/users/alice", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "third request exceeds the IP limit")
	assert.True(t, strings.Contains(rec.Body.String(), "rate limit"))
}
