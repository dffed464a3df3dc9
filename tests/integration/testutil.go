//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/intervox-ai/intervox/internal/api"
	"github.com/intervox-ai/intervox/internal/audit"
	"github.com/intervox-ai/intervox/internal/auth"
	"github.com/intervox-ai/intervox/internal/config"
	"github.com/intervox-ai/intervox/internal/interview"
	"github.com/intervox-ai/intervox/internal/llm"
	"github.com/intervox-ai/intervox/internal/proctor"
	"github.com/intervox-ai/intervox/internal/questions"
	"github.com/intervox-ai/intervox/internal/rategate"
	"github.com/intervox-ai/intervox/internal/session"
	"github.com/intervox-ai/intervox/internal/speech"
	"github.com/intervox-ai/intervox/internal/usage"
)

type TestEnv struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	Server      *httptest.Server
	Mailer      *CaptureMailer
	AuthSvc     *auth.Service
}

// CaptureMailer records the last one-time code instead of sending email.
type CaptureMailer struct {
	To   string
	Code string
}

func (m *CaptureMailer) SendOTP(to, code string) error {
	m.To = to
	m.Code = code
	return nil
}

var testEnv *TestEnv

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "intervox_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	// Start Redis container
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/intervox_test?sslmode=disable", pgHost, pgPort.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	// Run migrations
	m, err := migrate.New(fmt.Sprintf("file://%s", getMigrationsPath()), dsn)
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("running migrations: %v", err)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	t.Cleanup(func() { redisClient.Close() })

	// Fake OpenAI backend
	openAI := httptest.NewServer(http.HandlerFunc(fakeOpenAI))
	t.Cleanup(openAI.Close)

	openAICfg := config.OpenAIConfig{
		APIKey:           "test-key",
		BaseURL:          openAI.URL,
		Model:            "gpt-4o-mini",
		TranscribeModel:  "whisper-1",
		Timeout:          5 * time.Second,
		QuestionCacheTTL: 180 * time.Second,
	}
	limits := config.LimitsConfig{
		DailyTokensFree:        1500,
		DailyQuestionsFree:     5,
		MaxQuestionsPerSession: 5,
		MaxAIQuestions:         2,
		Cooldown:               0, // gates are unit-tested with an injected clock
		RequestsPerMinute:      100,
		HybridDBQuestions:      3,
		MaxAudioUploadBytes:    5 << 20,
	}
	adminCfg := config.AdminConfig{
		TokenSecret:    "test-token-secret-32-chars-long!",
		TokenExpiry:    time.Hour,
		AllowedEmail:   "admin@example.com",
		OTPTTL:         5 * time.Minute,
		OTPMaxAttempts: 5,
	}

	// Services
	ledger := usage.NewLedger(usage.NewRepository(pool), limits, nil)
	registry := session.NewRegistry(session.NewRepository(pool), nil)
	questionRepo := questions.NewRepository(pool)
	generator := llm.NewClient(openAICfg, ledger, llm.NewQuestionCache(redisClient, openAICfg.QuestionCacheTTL))
	transcriber := speech.NewTranscriber(openAICfg, limits.MaxAudioUploadBytes)
	controller := interview.NewController(ledger, registry, questionRepo, generator, nil, limits, nil)
	interviewHandler := interview.NewHandler(controller, transcriber)

	mailer := &CaptureMailer{}
	authSvc := auth.NewService(adminCfg,
		auth.NewOTPStore(redisClient, adminCfg.OTPTTL, adminCfg.OTPMaxAttempts),
		auth.NewTokenManager(adminCfg.TokenSecret, adminCfg.TokenExpiry, nil),
		mailer)
	authHandler := auth.NewHandler(authSvc)

	questionHandler := questions.NewHandler(questionRepo)
	proctorHandler := proctor.NewHandler(proctor.NewRepository(pool))
	auditHandler := audit.NewHandler(audit.NewRepository(pool))

	gate := rategate.New(redisClient, nil)

	router := api.NewRouter(pool, nil, api.RouterConfig{
		RateLimiter: api.RateLimit(gate, limits.RequestsPerMinute),
	}, api.HandlerSet{
		StartInterview: interviewHandler.Start,
		NextQuestion:   interviewHandler.Next,
		AnswerAudio:    interviewHandler.Answer,
		Usage:          interviewHandler.Usage,
		ProctorLog:     proctorHandler.Log,

		RequestCode: authHandler.RequestCode,
		VerifyCode:  authHandler.VerifyCode,
		VerifyKey:   authHandler.VerifyKey,

		ListQuestions:   questionHandler.List,
		CreateQuestion:  questionHandler.Create,
		UpdateQuestion:  questionHandler.Update,
		DeleteQuestion:  questionHandler.Delete,
		ListProctorLog:  proctorHandler.List,
		ListAuditTrail:  auditHandler.List,
		AdminMiddleware: authHandler.RequireAdmin,
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() { server.Close() })

	testEnv = &TestEnv{
		Pool:        pool,
		RedisClient: redisClient,
		Server:      server,
		Mailer:      mailer,
		AuthSvc:     authSvc,
	}

	return testEnv
}

// fakeOpenAI serves chat completions and transcriptions with canned content.
func fakeOpenAI(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"text": "this is my transcribed answer"})
		return
	}

	body, _ := io.ReadAll(r.Body)
	content := "What does a goroutine leak look like and how do you find one?"
	if bytes.Contains(body, []byte("json_object")) {
		content = `{"score":7,"confidence":80,"strengths":["clear"],"weaknesses":[],"improvements":[],"verdict":"pass","feedback":"solid answer"}`
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
		"usage": map[string]int{"total_tokens": 42},
	})
}

func getMigrationsPath() string {
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// Helper functions

func DoRequest(t *testing.T, env *TestEnv, method, path string, body any, headers map[string]string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

func ParseResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	return result
}

func AdminToken(t *testing.T, env *TestEnv) string {
	t.Helper()
	resp := DoRequest(t, env, "POST", "/api/v1/admin/auth/request-code",
		map[string]string{"email": "admin@example.com"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("requesting code: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = DoRequest(t, env, "POST", "/api/v1/admin/auth/verify",
		map[string]string{"email": "admin@example.com", "code": env.Mailer.Code}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verifying code: status %d", resp.StatusCode)
	}
	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)
	return data["access_token"].(string)
}
