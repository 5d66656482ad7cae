package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/skmehra/ecotrace/backend/ai"
	"github.com/skmehra/ecotrace/backend/engine"
	contextKey "github.com/skmehra/ecotrace/backend/server/context_key"
	cache "github.com/skmehra/ecotrace/backend/storage/cache"
	storage "github.com/skmehra/ecotrace/backend/storage/persistent"
	"github.com/skmehra/ecotrace/lib/utils"
	"github.com/skmehra/ecotrace/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// leaderboardTTL bounds the staleness of the cached leaderboard.
const leaderboardTTL = time.Minute

// Server carries the HTTP surface of the scoring core and its collaborators.
type Server struct {
	engine     *engine.Engine
	analyzer   ai.Analyzer
	cache      cache.CacheInterface
	log        *zap.Logger
	signingKey string
}

// New assembles the server. A nil cache disables leaderboard caching; a nil
// analyzer requires clients to send pre-scored entries.
func New(eng *engine.Engine, analyzer ai.Analyzer, c cache.CacheInterface, log *zap.Logger, signingKey string) *Server {
	return &Server{
		engine:     eng,
		analyzer:   analyzer,
		cache:      c,
		log:        log,
		signingKey: signingKey,
	}
}

// jwtMiddleware performs JWT validation. It reads the token from the
// Authorization header; when the signature checks out, the user id claim is
// injected into the request context under contextKey.UserIDKey. Parsing
// errors are injected under contextKey.JwtErrorKey. The middleware never
// stops request processing itself; handlers that need an identity reject
// requests whose context carries none.
func (s *Server) jwtMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			splitToken := strings.Split(authHeader, "Bearer ")
			if len(splitToken) == 2 {
				token, err := jwt.Parse(splitToken[1], func(token *jwt.Token) (interface{}, error) {
					if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
					}
					return []byte(s.signingKey), nil
				})
				if err != nil {
					s.log.Debug("JWT token validation error", zap.Error(err))
					ctx := context.WithValue(r.Context(), contextKey.JwtErrorKey, err)
					r = r.WithContext(ctx)
				} else if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
					ctx := context.WithValue(r.Context(), contextKey.UserIDKey, claims["id"])
					r = r.WithContext(ctx)
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware recovers from panics and provides a generic error message to the client.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.log.Error("panic recovered", zap.Any("panic", err))
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// rateLimitMiddleware applies a simple per-IP rate limiter using a token bucket.
func (s *Server) rateLimitMiddleware(perMinute int, next http.Handler) http.Handler {
	limiters := map[string]*rateLimiter{}
	var mu sync.Mutex
	limit := rate.Every(time.Minute / time.Duration(perMinute))
	burst := perMinute / 2
	if burst < 1 {
		burst = 1
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, ok := strings.Cut(r.RemoteAddr, ":"); ok {
			ip = host
		}

		mu.Lock()
		now := time.Now()
		for key, rl := range limiters {
			if now.After(rl.expires) {
				delete(limiters, key)
			}
		}
		rl, ok := limiters[ip]
		if !ok {
			rl = &rateLimiter{limiter: rate.NewLimiter(limit, burst)}
			limiters[ip] = rl
		}
		rl.expires = now.Add(5 * time.Minute)
		allowed := rl.limiter.Allow()
		mu.Unlock()

		if !allowed {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestUser extracts the authenticated user's id from the request context.
// A token the middleware failed to parse yields the parse error so the 401
// tells the client what was wrong with its token.
func requestUser(r *http.Request) (primitive.ObjectID, error) {
	if jwtErr, ok := r.Context().Value(contextKey.JwtErrorKey).(error); ok {
		return primitive.NilObjectID, fmt.Errorf("invalid bearer token: %v", jwtErr)
	}
	raw, _ := r.Context().Value(contextKey.UserIDKey).(string)
	if raw == "" {
		return primitive.NilObjectID, fmt.Errorf("missing bearer token")
	}
	return primitive.ObjectIDFromHex(raw)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, storage.ErrChallengeCompleted):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "challenge already completed"})
	default:
		s.log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

type entryRequest struct {
	Date    string               `json:"date"`
	Text    string               `json:"text"`
	Impact  *models.ImpactVector `json:"impact,omitempty"`
	Points  *int                 `json:"points,omitempty"`
	Comment string               `json:"comment,omitempty"`
	Actions []string             `json:"actions,omitempty"`
}

// handleUpsertEntry saves the caller's journal entry for one day. When the
// client does not send a pre-scored impact/points pair, the text is run
// through the AI analysis collaborator first.
func (s *Server) handleUpsertEntry(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !utils.ValidDate(req.Date) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		return
	}

	text := utils.Sanitize(req.Text)

	impact := models.ImpactVector{}
	points := 0
	comment := req.Comment
	actions := req.Actions

	if req.Impact != nil && req.Points != nil {
		impact = *req.Impact
		points = *req.Points
	} else {
		if s.analyzer == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "impact and points are required"})
			return
		}
		analysis, err := s.analyzer.Analyze(r.Context(), text)
		if err != nil {
			s.writeError(w, err)
			return
		}
		impact = analysis.Impact
		points = analysis.Points
		comment = analysis.Comment
		if len(actions) == 0 {
			actions = analysis.Actions
		}
	}

	entryID, earned, err := s.engine.UpsertEntry(r.Context(), userID, req.Date, text, impact, points, comment, actions)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entry_id":         entryID.Hex(),
		"new_achievements": earned,
	})
}

// handleCompleteChallenge applies a challenge's fixed points to the caller.
func (s *Server) handleCompleteChallenge(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	challengeID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid challenge id"})
		return
	}

	earned, err := s.engine.CompleteChallenge(r.Context(), challengeID, userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"new_achievements": earned})
}

type quizRequest struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
	Points  int `json:"points"`
}

// handleQuizResult records one quiz round for the caller.
func (s *Server) handleQuizResult(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	var req quizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	earned, err := s.engine.RecordQuizResult(r.Context(), userID, req.Correct, req.Total, req.Points)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidQuizResult) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"new_achievements": earned})
}

// handleEvaluate re-runs achievement evaluation for the caller.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	earned, err := s.engine.Evaluate(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"new_achievements": earned})
}

type profileRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// handleEnsureProfile lazily creates or refreshes the caller's profile.
func (s *Server) handleEnsureProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Email != "" && !utils.ValidateEmail(req.Email) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid email"})
		return
	}

	user, err := s.engine.EnsureProfile(r.Context(), userID, req.DisplayName, req.Email)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleStreak returns a user's current day streak.
func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	userID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return
	}

	streak, err := s.engine.Streak(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"streak": streak})
}

// handleProfile returns a user's aggregate record.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return
	}

	user, err := s.engine.Profile(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleLeaderboard returns the weekly leaderboard, served from a short-TTL
// cache when one is configured.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := int64(20)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 || parsed > 100 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be 1-100"})
			return
		}
		limit = parsed
	}

	cacheKey := fmt.Sprintf("leaderboard_%d", limit)
	if s.cache != nil {
		if cached, err := s.cache.Get(r.Context(), cacheKey); err == nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	rows, err := s.engine.Leaderboard(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.cache != nil {
		if err := s.cache.SetWithTTL(r.Context(), cacheKey, rows, leaderboardTTL); err != nil {
			s.log.Warn("leaderboard cache set failed", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, rows)
}

// Router builds the full middleware and route stack.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/entries", s.handleUpsertEntry).Methods(http.MethodPost)
	api.HandleFunc("/challenges/{id}/complete", s.handleCompleteChallenge).Methods(http.MethodPost)
	api.HandleFunc("/quiz/results", s.handleQuizResult).Methods(http.MethodPost)
	api.HandleFunc("/achievements/evaluate", s.handleEvaluate).Methods(http.MethodPost)
	api.HandleFunc("/profile", s.handleEnsureProfile).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}/streak", s.handleStreak).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/profile", s.handleProfile).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)

	stack := s.recoveryMiddleware(s.jwtMiddleware(s.rateLimitMiddleware(120, r)))

	// Apply the CORS middleware to the router
	corsOrigins := handlers.AllowedOrigins([]string{"*"})
	corsMethods := handlers.AllowedMethods([]string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS"})
	corsHeaders := handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"})
	corsRouter := handlers.CORS(corsOrigins, corsMethods, corsHeaders)(stack)

	return handlers.LoggingHandler(os.Stdout, corsRouter)
}

// Start runs the HTTP server at serverURL until it fails.
func (s *Server) Start(serverURL string) error {
	u, err := url.Parse(serverURL)
	if err != nil {
		return fmt.Errorf("invalid server url: %w", err)
	}

	server := &http.Server{
		Handler:      s.Router(),
		Addr:         u.Host,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	s.log.Info("http server listening", zap.String("addr", u.Host))
	return server.ListenAndServe()
}
