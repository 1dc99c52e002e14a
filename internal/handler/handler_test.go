package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storybook-server/internal/ai"
	"storybook-server/internal/mocks"
	"storybook-server/internal/models"
	"storybook-server/internal/normalizer"
	"storybook-server/internal/testutil"
)

const testSecret = "test-secret"

type testEnv struct {
	router    *gin.Engine
	generator *mocks.StoryGenerator
	images    *mocks.IllustrationService
	library   *mocks.StoryLibrary
	narration *mocks.Narration
	media     *mocks.MediaReader
}

func newTestEnv(t *testing.T, limiter gin.HandlerFunc) *testEnv {
	t.Helper()
	env := &testEnv{
		generator: new(mocks.StoryGenerator),
		images:    new(mocks.IllustrationService),
		library:   new(mocks.StoryLibrary),
		narration: new(mocks.Narration),
		media:     new(mocks.MediaReader),
	}
	h, err := NewStoryHandler(Deps{
		Generator:    env.generator,
		Illustration: env.images,
		Library:      env.library,
		Narration:    env.narration,
		Media:        env.media,
	}, testSecret, zap.NewNop())
	require.NoError(t, err)
	env.router = NewRouter(RouterConfig{Env: "test"}, h, limiter, zap.NewNop())
	return env
}

func signToken(t *testing.T, secret, subject string, ttl time.Duration) string {
	t.Helper()
	claims := models.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

var storyParams = map[string]string{"storyAbout": "a brave fox", "settings": "forest", "ageRange": "3-5"}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	w = env.do(http.MethodHead, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGenerateStory_Success(t *testing.T) {
	env := newTestEnv(t, nil)
	env.generator.On("GenerateStory", mock.Anything, mock.MatchedBy(func(g *models.Generation) bool {
		return g.UserID == "" && g.Params.StoryAbout == "a brave fox"
	})).Return(&models.Generation{Story: &models.StoryRecord{
		Title: "Fox", Content: "Once.", MoralLesson: "Be brave", Language: "English",
		SuggestedIllustrations: []models.Illustration{{Description: "fox"}},
	}}, nil).Once()

	w := env.do(http.MethodPost, "/api/story", storyParams, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var record models.StoryRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.Equal(t, "Fox", record.Title)
	assert.Equal(t, "English", record.Language)
	require.Len(t, record.SuggestedIllustrations, 1)
}

func TestGenerateStory_AuthenticatedUser(t *testing.T) {
	env := newTestEnv(t, nil)
	env.generator.On("GenerateStory", mock.Anything, mock.MatchedBy(func(g *models.Generation) bool {
		return g.UserID == "user-42"
	})).Return(&models.Generation{Story: &models.StoryRecord{Title: "T"}}, nil).Once()

	w := env.do(http.MethodPost, "/api/story", storyParams, signToken(t, testSecret, "user-42", time.Hour))
	assert.Equal(t, http.StatusOK, w.Code)
	env.generator.AssertExpectations(t)
}

func TestGenerateStory_NormalizeFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	_, parseErr := normalizer.New(normalizer.DefaultProfile()).Parse("I cannot write that story.")
	require.Error(t, parseErr)

	env.generator.On("GenerateStory", mock.Anything, mock.Anything).
		Return(&models.Generation{RawResponse: "I cannot write that story."}, parseErr).Once()

	w := env.do(http.MethodPost, "/api/story", storyParams, "")
	require.Equal(t, http.StatusBadGateway, w.Code)
	var resp models.GenerationErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Failed to generate story", resp.Error)
	assert.Equal(t, normalizer.KindMalformedResponse, resp.Type)
	assert.Equal(t, "I cannot write that story.", resp.RawResponse)
	assert.NotEmpty(t, resp.Details)
}

func TestGenerateStory_Errors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"invalid params", fmt.Errorf("%w: missing storyAbout", models.ErrInvalidInput), http.StatusBadRequest, models.ErrCodeBadRequest},
		{"provider", fmt.Errorf("%w: 503", ai.ErrAIGenerationFailed), http.StatusBadGateway, models.ErrCodeUpstream},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, models.ErrCodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.generator.On("GenerateStory", mock.Anything, mock.Anything).Return(nil, tc.err).Once()
			w := env.do(http.MethodPost, "/api/story", storyParams, "")
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, decodeError(t, w).Code)
		})
	}
}

func TestGenerateStory_MissingFieldRejectedBeforeGeneration(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(http.MethodPost, "/api/story", map[string]string{"storyAbout": "fox"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env.generator.AssertNotCalled(t, "GenerateStory", mock.Anything, mock.Anything)
}

func TestGenerateStory_RateLimited(t *testing.T) {
	env := newTestEnv(t, NewStoryRateLimiter(nil, 1, zap.NewNop()))
	env.generator.On("GenerateStory", mock.Anything, mock.Anything).
		Return(&models.Generation{Story: &models.StoryRecord{Title: "T"}}, nil).Once()

	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/story", storyParams, "").Code)
	w := env.do(http.MethodPost, "/api/story", storyParams, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, models.ErrCodeRateLimited, decodeError(t, w).Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	env.generator.AssertNumberOfCalls(t, "GenerateStory", 1)
}

func TestGenerateStory_RateLimitedRedis(t *testing.T) {
	testutil.RequireDocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{Addr: testutil.StartRedis(ctx, t)})
	defer rdb.Close()
	require.NoError(t, rdb.Ping(ctx).Err())

	env := newTestEnv(t, NewStoryRateLimiter(rdb, 1, zap.NewNop()))
	env.generator.On("GenerateStory", mock.Anything, mock.Anything).
		Return(&models.Generation{Story: &models.StoryRecord{Title: "T"}}, nil).Once()

	token := signToken(t, testSecret, "redis-user", time.Hour)
	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/story", storyParams, token).Code)
	w := env.do(http.MethodPost, "/api/story", storyParams, token)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, models.ErrCodeRateLimited, decodeError(t, w).Code)

	keys, err := rdb.Keys(ctx, "*user:redis-user*").Result()
	require.NoError(t, err)
	assert.NotEmpty(t, keys, "counter is kept in redis")
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/api/stories", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodGet, "/api/stories", nil, signToken(t, testSecret, "u", -time.Minute))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token has expired", decodeError(t, w).Message)

	w = env.do(http.MethodGet, "/api/stories", nil, signToken(t, "other-secret", "u", time.Hour))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodGet, "/api/stories", nil, signToken(t, testSecret, "", time.Hour))
	assert.Equal(t, http.StatusUnauthorized, w.Code, "token without subject")

	w = env.do(http.MethodGet, "/api/stories", nil, "not.a.jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// на optional маршруте битый токен тоже отклоняется
	w = env.do(http.MethodPost, "/api/story", storyParams, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env.generator.AssertNotCalled(t, "GenerateStory", mock.Anything, mock.Anything)
}

func TestJWTVerifier_RejectsNoneAlg(t *testing.T) {
	v, err := NewJWTVerifier(testSecret, nil)
	require.NoError(t, err)
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = v.VerifyToken(token)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)

	_, err = NewJWTVerifier("", nil)
	assert.Error(t, err)
}

func TestIllustrationEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	env.images.On("Illustrate", mock.Anything, "a fox").Return("https://img/fox.png", nil).Once()
	env.images.On("Illustrate", mock.Anything, "").Return("", fmt.Errorf("%w: prompt is required", models.ErrInvalidInput)).Once()
	env.images.On("GenerateImage", mock.Anything, "a fox").Return("data:image/png;base64,AAA", nil).Once()

	w := env.do(http.MethodPost, "/api/illustration", models.PromptRequest{Prompt: "a fox"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"url":"https://img/fox.png"}`, w.Body.String())

	w = env.do(http.MethodPost, "/api/illustration", models.PromptRequest{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/generate-image", models.PromptRequest{Prompt: "a fox"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"image":"data:image/png;base64,AAA"}`, w.Body.String())
}

func TestSpeechEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.narration.On("Speak", mock.Anything, "Hola", "Spanish").Return([]byte("mp3"), nil).Once()

	w := env.do(http.MethodPost, "/api/speech", models.SpeechRequest{Text: "Hola", Language: "Spanish"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	audio, err := base64.StdEncoding.DecodeString(resp["audio"])
	require.NoError(t, err)
	assert.Equal(t, "mp3", string(audio))
}

func TestSaveStory(t *testing.T) {
	env := newTestEnv(t, nil)
	id := uuid.New()
	req := models.SaveStoryRequest{Title: "Fox", Pages: []models.PageDraft{{Content: "one"}}}
	env.library.On("SaveStory", mock.Anything, "owner", req).Return(id, nil).Once()

	w := env.do(http.MethodPost, "/api/stories", req, signToken(t, testSecret, "owner", time.Hour))
	require.Equal(t, http.StatusCreated, w.Code)
	var resp models.SaveStoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, id, resp.StoryID)
}

func TestListStories(t *testing.T) {
	env := newTestEnv(t, nil)
	token := signToken(t, testSecret, "owner", time.Hour)
	env.library.On("ListUserStories", mock.Anything, "owner", "", defaultListLimit).
		Return(&models.StoryListResponse{Data: []models.StorySummary{{PageCount: 2}}, NextCursor: "abc"}, nil).Once()
	env.library.On("ListUserStories", mock.Anything, "owner", "abc", 5).
		Return(&models.StoryListResponse{Data: []models.StorySummary{}}, nil).Once()

	w := env.do(http.MethodGet, "/api/stories", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.StoryListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "abc", resp.NextCursor)
	assert.Len(t, resp.Data, 1)

	w = env.do(http.MethodGet, "/api/stories?cursor=abc&limit=5", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)

	for _, limit := range []string{"0", "101", "ten"} {
		w = env.do(http.MethodGet, "/api/stories?limit="+limit, nil, token)
		assert.Equal(t, http.StatusBadRequest, w.Code, limit)
	}
	env.library.AssertExpectations(t)
}

func TestGetStory(t *testing.T) {
	env := newTestEnv(t, nil)
	id, missing := uuid.New(), uuid.New()
	env.library.On("GetStory", mock.Anything, id).Return(&models.StoryWithPages{Story: models.Story{ID: id, Title: "Fox"}}, nil).Once()
	env.library.On("GetStory", mock.Anything, missing).Return(nil, models.ErrNotFound).Once()

	w := env.do(http.MethodGet, "/api/stories/"+id.String(), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"Fox"`)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/stories/"+missing.String(), nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/stories/not-a-uuid", nil, "").Code)
}

func TestDeleteStory(t *testing.T) {
	env := newTestEnv(t, nil)
	id := uuid.New()
	env.library.On("DeleteStory", mock.Anything, "owner", id).Return(nil).Once()
	env.library.On("DeleteStory", mock.Anything, "intruder", id).Return(models.ErrForbidden).Once()

	w := env.do(http.MethodDelete, "/api/stories/"+id.String(), nil, signToken(t, testSecret, "owner", time.Hour))
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(http.MethodDelete, "/api/stories/"+id.String(), nil, signToken(t, testSecret, "intruder", time.Hour))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNarrateStory(t *testing.T) {
	env := newTestEnv(t, nil)
	id, other := uuid.New(), uuid.New()
	token := signToken(t, testSecret, "owner", time.Hour)
	env.narration.On("EnqueueStoryNarration", mock.Anything, "owner", id).Return(3, nil).Once()
	env.narration.On("EnqueueStoryNarration", mock.Anything, "owner", other).Return(0, models.ErrProviderUnavailable).Once()

	w := env.do(http.MethodPost, "/api/stories/"+id.String()+"/narration", nil, token)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"queued":3}`, w.Body.String())

	w = env.do(http.MethodPost, "/api/stories/"+other.String()+"/narration", nil, token)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGetMedia(t *testing.T) {
	env := newTestEnv(t, nil)
	env.media.On("Open", mock.Anything, "/story-images/s/0.png").
		Return(&models.Object{Key: "story-images/s/0.png", ContentType: "image/png", Data: []byte("png")}, nil).Once()
	env.media.On("Open", mock.Anything, "/story-images/s/9.png").Return(nil, models.ErrNotFound).Once()

	w := env.do(http.MethodGet, "/media/story-images/s/0.png", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "png", w.Body.String())

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/media/story-images/s/9.png", nil, "").Code)
}

func TestRequestIDEchoed(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(requestIDHeader))
}
