package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/classtrack/classtrack/internal/domain/shared"
	"github.com/classtrack/classtrack/internal/infrastructure/external/content"
	"github.com/classtrack/classtrack/internal/interface/http/handlers"
	"github.com/classtrack/classtrack/pkg/logger"
)

type testEnv struct {
	store  *memStore
	server *Server
	http   *httptest.Server
	client *content.Client
}

func newTestEnv(t *testing.T, mutate func(*Config, *Dependencies)) *testEnv {
	t.Helper()

	store := newMemStore()
	cfg := DefaultConfig()
	cfg.APITokens = []string{"secret"}
	deps := Dependencies{
		Users:           memUsers{store},
		Classes:         memClasses{store},
		Attendance:      memEvents{store},
		ResolverOptions: []ResolverOption{WithBcryptCost(bcrypt.MinCost)},
		Logger:          logger.Discard(),
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}

	srv := NewServer(cfg, deps)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	ccfg := content.DefaultClientConfig(ts.URL + GraphQLPath)
	ccfg.Tokens = content.StaticToken("secret")
	ccfg.Logger = logger.Discard()

	return &testEnv{store: store, server: srv, http: ts, client: content.NewClient(ccfg)}
}

func (e *testEnv) post(t *testing.T, body string, header http.Header) (*http.Response, content.Response) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.http.URL+GraphQLPath, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer secret")
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out content.Response
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestServer_UserLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	created, err := env.client.CreateUser(ctx, content.UserCreateInput{
		Name: "Ana Lima", Email: "ana@school.edu", Password: "correct horse", StudentID: "2024-001", Role: "student",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "student", created.Role)

	hash := env.store.hashes[created.ID]
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse")))

	students, err := env.client.ListUsersByRole(ctx, "student")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "2024-001", students[0].StudentID)

	teachers, err := env.client.ListUsersByRole(ctx, "teacher")
	require.NoError(t, err)
	assert.Empty(t, teachers)

	name := "Ana Souza"
	updated, err := env.client.UpdateUser(ctx, created.ID, content.UserUpdateInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", updated.Name)
	assert.Equal(t, "ana@school.edu", updated.Email)

	got, err := env.client.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", got.Name)

	require.NoError(t, env.client.DeleteUser(ctx, created.ID))
	_, err = env.client.GetUser(ctx, created.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestServer_CreateUserRefusals(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	in := content.UserCreateInput{Name: "Ben", Email: "ben@school.edu", Password: "12345678", Role: "teacher"}
	_, err := env.client.CreateUser(ctx, in)
	require.NoError(t, err)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := env.client.CreateUser(ctx, in)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		assert.ErrorIs(t, err, shared.ErrRemoteRejected)
	})

	t.Run("short password", func(t *testing.T) {
		bad := in
		bad.Email = "other@school.edu"
		bad.Password = "short"
		_, err := env.client.CreateUser(ctx, bad)
		assert.ErrorIs(t, err, shared.ErrValidation)
		assert.Contains(t, err.Error(), "Password: min=8")
	})

	t.Run("unknown role", func(t *testing.T) {
		bad := in
		bad.Email = "third@school.edu"
		bad.Role = "janitor"
		_, err := env.client.CreateUser(ctx, bad)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestServer_ReferencedDeletesAreRefused(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	teacher, err := env.client.CreateUser(ctx, content.UserCreateInput{Name: "Tess", Email: "tess@school.edu", Password: "12345678", Role: "teacher"})
	require.NoError(t, err)
	student, err := env.client.CreateUser(ctx, content.UserCreateInput{Name: "Sam", Email: "sam@school.edu", Password: "12345678", StudentID: "S1", Role: "student"})
	require.NoError(t, err)

	class, err := env.client.CreateClass(ctx, content.ClassCreateInput{
		Name: "Math", Schedule: "Mon 9:00",
		Teacher: &content.Connect{Connect: content.WhereUnique{ID: teacher.ID}},
	})
	require.NoError(t, err)
	require.NotNil(t, class.Teacher)
	assert.Equal(t, "Tess", class.Teacher.Name)

	date := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)
	ev, err := env.client.CreateAttendance(ctx, content.AttendanceCreateInput{
		Date: &date, Recognized: "1", ConfidenceScore: 0.93,
		User:  content.Connect{Connect: content.WhereUnique{ID: student.ID}},
		Class: content.Connect{Connect: content.WhereUnique{ID: class.ID}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Math", ev.Class.Name)
	assert.Equal(t, "1", ev.Recognized)

	events, err := env.client.ListAttendanceByStudent(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)

	err = env.client.DeleteUser(ctx, student.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidEntity)
	err = env.client.DeleteClass(ctx, class.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidEntity)

	removed, err := env.client.DeleteAttendances(ctx, []string{ev.ID, "not-a-uuid"})
	require.NoError(t, err)
	assert.Equal(t, []string{ev.ID}, removed)

	require.NoError(t, env.client.DeleteUser(ctx, student.ID))
	require.NoError(t, env.client.DeleteClass(ctx, class.ID))
}

func TestServer_UpdateAttendance(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	student, err := env.client.CreateUser(ctx, content.UserCreateInput{Name: "Sam", Email: "sam@school.edu", Password: "12345678", Role: "student"})
	require.NoError(t, err)
	class, err := env.client.CreateClass(ctx, content.ClassCreateInput{Name: "Art"})
	require.NoError(t, err)
	ev, err := env.client.CreateAttendance(ctx, content.AttendanceCreateInput{
		User:  content.Connect{Connect: content.WhereUnique{ID: student.ID}},
		Class: content.Connect{Connect: content.WhereUnique{ID: class.ID}},
	})
	require.NoError(t, err)
	assert.Equal(t, "0", ev.Recognized)

	yes := "1"
	updated, err := env.client.UpdateAttendance(ctx, ev.ID, content.AttendanceUpdateInput{Recognized: &yes})
	require.NoError(t, err)
	assert.Equal(t, "1", updated.Recognized)

	negative := -1.0
	_, err = env.client.UpdateAttendance(ctx, ev.ID, content.AttendanceUpdateInput{ConfidenceScore: &negative})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = env.client.UpdateAttendance(ctx, "nope", content.AttendanceUpdateInput{Recognized: &yes})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestServer_MalformedIDsAreNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.client.GetUser(ctx, "42")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = env.client.GetClass(ctx, "42")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	err = env.client.DeleteClass(ctx, "42")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = env.client.CreateAttendance(ctx, content.AttendanceCreateInput{
		User:  content.Connect{Connect: content.WhereUnique{ID: "42"}},
		Class: content.Connect{Connect: content.WhereUnique{ID: "43"}},
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestServer_BearerToken(t *testing.T) {
	env := newTestEnv(t, nil)

	ccfg := content.DefaultClientConfig(env.http.URL + GraphQLPath)
	ccfg.Tokens = content.StaticToken("wrong")
	ccfg.Logger = logger.Discard()
	_, err := content.NewClient(ccfg).ListClasses(context.Background())
	assert.ErrorIs(t, err, shared.ErrUnauthorized)

	resp, body := env.post(t, `{"operationName":"ListClasses"}`, http.Header{"Authorization": {""}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, content.CodeUnauthorized, body.Errors[0].Extensions.Code)
}

func TestServer_NoTokensDisablesAuth(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config, _ *Dependencies) { cfg.APITokens = nil })

	resp, body := env.post(t, `{"operationName":"ListClasses"}`, http.Header{"Authorization": {""}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body.Errors)
	assert.JSONEq(t, `{"classes":[]}`, string(body.Data))
}

func TestServer_UnknownOperation(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.post(t, `{"query":"query Nope { x }","operationName":"Nope"}`, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, content.CodeUnknownOp, body.Errors[0].Extensions.Code)
}

func TestServer_MalformedBody(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config, _ *Dependencies) { cfg.MaxBodyBytes = 64 })

	resp, _ := env.post(t, `{"operationName":`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.post(t, `{"operationName":"ListClasses","query":"`+strings.Repeat("x", 200)+`"}`, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestServer_RecoversFromPanics(t *testing.T) {
	env := newTestEnv(t, nil)
	env.server.Resolvers().Register("Boom", "boom", func(context.Context, json.RawMessage) (any, error) {
		panic("boom")
	})

	resp, body := env.post(t, `{"operationName":"Boom"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, content.CodeInternalError, body.Errors[0].Extensions.Code)
}

func TestServer_InternalErrorsAreMasked(t *testing.T) {
	env := newTestEnv(t, nil)
	env.server.Resolvers().Register("Leak", "leak", func(context.Context, json.RawMessage) (any, error) {
		return nil, errors.New("pq: password authentication failed")
	})

	_, body := env.post(t, `{"operationName":"Leak"}`, nil)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "internal server error", body.Errors[0].Message)
	assert.Equal(t, []any{"leak"}, body.Errors[0].Path)
}

func TestServer_HealthEndpoints(t *testing.T) {
	checker := handlers.NewCompositeHealthChecker("test")
	env := newTestEnv(t, func(_ *Config, deps *Dependencies) { deps.HealthChecker = checker })

	get := func(path string) int {
		resp, err := http.Get(env.http.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, get("/health"))
	assert.Equal(t, http.StatusOK, get("/ready"))

	checker.AddCheck("database", func(context.Context) error { return errors.New("connection refused") })
	assert.Equal(t, http.StatusServiceUnavailable, get("/health"))
	assert.Equal(t, http.StatusServiceUnavailable, get("/ready"))
	assert.Equal(t, http.StatusOK, get("/live"))

	assert.True(t, env.client.IsHealthy(context.Background()))
}

func TestServer_CORSPreflight(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config, _ *Dependencies) { cfg.AllowedOrigins = []string{"http://localhost:5173"} })

	req, err := http.NewRequest(http.MethodOptions, env.http.URL+GraphQLPath, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
