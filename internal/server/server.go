package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"mtmath-games/internal/domain"
	"mtmath-games/internal/game"
	"mtmath-games/internal/middleware"
	"mtmath-games/internal/service"

	"github.com/rs/zerolog"
)

// Server exposes the JSON API: game sessions, leaderboards, articles and
// the message board.
type Server struct {
	sessions    *service.SessionService
	leaderboard *service.LeaderboardService
	submission  *service.SubmissionService
	articles    *service.ArticleService
	board       *service.BoardService
	logger      zerolog.Logger
}

func New(
	sessions *service.SessionService,
	leaderboard *service.LeaderboardService,
	submission *service.SubmissionService,
	articles *service.ArticleService,
	board *service.BoardService,
	logger zerolog.Logger,
) *Server {
	return &Server{
		sessions:    sessions,
		leaderboard: leaderboard,
		submission:  submission,
		articles:    articles,
		board:       board,
		logger:      logger,
	}
}

func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", s.handleStartSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /api/sessions/{id}/answer", s.handleAnswer)
	mux.HandleFunc("POST /api/sessions/{id}/restart", s.handleRestart)
	mux.HandleFunc("POST /api/sessions/{id}/level-select", s.handleBackToLevelSelect)
	mux.HandleFunc("POST /api/sessions/{id}/submit", s.handleSessionSubmit)

	mux.HandleFunc("GET /api/rankings/{game}", s.handleGetRankings)
	mux.HandleFunc("POST /api/rankings/{game}/submit", s.handleDirectSubmit)

	mux.HandleFunc("GET /api/articles", s.handleListArticles)
	mux.HandleFunc("GET /api/articles/{slug}", s.handleGetArticle)

	mux.HandleFunc("GET /api/board", s.handleListBoard)
	mux.HandleFunc("POST /api/board", s.handlePostBoard)

	mux.HandleFunc("GET /api/health", s.handleHealth)
}

type startSessionRequest struct {
	Game        string `json:"game"`
	Level       string `json:"level"`
	Nickname    string `json:"nickname"`
	Affiliation string `json:"affiliation"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := s.sessions.Start(game.Kind(req.Game), game.Level(req.Level), game.Identity{
		Nickname:    req.Nickname,
		Affiliation: req.Affiliation,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type answerRequest struct {
	Value     *string `json:"value,omitempty"`
	SaysPrime *bool   `json:"saysPrime,omitempty"`
}

type answerResponse struct {
	Correct   bool                 `json:"correct"`
	Expected  int                  `json:"expected,omitempty"`
	Candidate int                  `json:"candidate,omitempty"`
	WasPrime  bool                 `json:"wasPrime,omitempty"`
	Factors   []int                `json:"factors,omitempty"`
	Points    int                  `json:"points"`
	Bonus     int                  `json:"bonus,omitempty"`
	Effects   []string             `json:"effects,omitempty"`
	Session   *service.SessionView `json:"session"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := r.PathValue("id")
	var result *service.AnswerResult
	var err error

	switch {
	case req.Value != nil:
		result, err = s.sessions.AnswerArithmetic(id, *req.Value)
	case req.SaysPrime != nil:
		result, err = s.sessions.AnswerPrime(id, *req.SaysPrime)
	default:
		writeError(w, http.StatusBadRequest, "either value or saysPrime is required")
		return
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, answerResponse{
		Correct:   result.Outcome.Correct,
		Expected:  result.Outcome.Expected,
		Candidate: result.Outcome.Candidate,
		WasPrime:  result.Outcome.WasPrime,
		Factors:   result.Outcome.Factors,
		Points:    result.Outcome.Points,
		Bonus:     result.Outcome.Bonus,
		Effects:   effectNames(result.Effects),
		Session:   result.View,
	})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	view, err := s.sessions.Restart(r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleBackToLevelSelect(w http.ResponseWriter, r *http.Request) {
	view, err := s.sessions.BackToLevelSelect(r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type submitResponse struct {
	Success   bool   `json:"success"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleSessionSubmit(w http.ResponseWriter, r *http.Request) {
	result, err := s.sessions.Submit(r.Context(), r.PathValue("id"), middleware.ClientIP(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{
		Success:   true,
		ID:        result.ID,
		Timestamp: result.Timestamp.UTC().Format(time.RFC3339),
	})
}

type directSubmitRequest struct {
	Score       int                `json:"score"`
	Nickname    string             `json:"nickname"`
	Affiliation string             `json:"affiliation"`
	SessionData domain.SessionData `json:"sessionData"`
}

// handleDirectSubmit accepts the legacy contract where the client posts a
// finished session's numbers itself. The posted metadata is folded into a
// terminal snapshot so the pipeline applies the same gates either way.
func (s *Server) handleDirectSubmit(w http.ResponseWriter, r *http.Request) {
	kind := game.Kind(r.PathValue("game"))
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "unknown game")
		return
	}

	var req directSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	level := game.Level(req.SessionData.Level)
	if level == "" {
		level = game.LevelHard
	}

	snap := game.Snapshot{
		Kind:              kind,
		Level:             level,
		Phase:             game.PhaseSummary,
		Score:             req.Score,
		QuestionsAnswered: req.SessionData.QuestionsAnswered,
		CorrectAnswers:    req.SessionData.CorrectAnswers,
		Nickname:          req.Nickname,
		Affiliation:       req.Affiliation,
	}
	if start, err := time.Parse(time.RFC3339, req.SessionData.StartTime); err == nil {
		snap.StartedAt = start
	}
	if end, err := time.Parse(time.RFC3339, req.SessionData.EndTime); err == nil {
		snap.EndedAt = end
	}

	result, err := s.submission.Submit(r.Context(), snap, middleware.ClientIP(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{
		Success:   true,
		ID:        result.ID,
		Timestamp: result.Timestamp.UTC().Format(time.RFC3339),
	})
}

type rankingEntry struct {
	ID          string `json:"id"`
	Score       int    `json:"score"`
	Nickname    string `json:"nickname"`
	Affiliation string `json:"affiliation"`
	Timestamp   string `json:"timestamp"`
}

type rankingsResponse struct {
	Success           bool           `json:"success"`
	Rankings          []rankingEntry `json:"rankings"`
	Count             int            `json:"count"`
	TotalParticipants int            `json:"totalParticipants"`
	LastUpdated       string         `json:"lastUpdated"`
	FromBackup        bool           `json:"fromBackup,omitempty"`
}

func (s *Server) handleGetRankings(w http.ResponseWriter, r *http.Request) {
	kind := game.Kind(r.PathValue("game"))
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "unknown game")
		return
	}

	list, err := s.leaderboard.Get(r.Context(), string(kind))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	entries := make([]rankingEntry, len(list.Rankings))
	for i, e := range list.Rankings {
		entries[i] = rankingEntry{
			ID:          e.ID,
			Score:       e.Score,
			Nickname:    e.Nickname,
			Affiliation: e.Affiliation,
			Timestamp:   e.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, rankingsResponse{
		Success:           true,
		Rankings:          entries,
		Count:             len(entries),
		TotalParticipants: list.TotalParticipants,
		LastUpdated:       list.LastUpdated.Format(time.RFC3339),
		FromBackup:        list.FromBackup,
	})
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := s.articles.List(r.Context(), r.URL.Query().Get("category"), r.URL.Query().Get("tag"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	type articleSummary struct {
		Slug            string   `json:"slug"`
		Title           string   `json:"title"`
		Summary         string   `json:"summary"`
		Category        string   `json:"category"`
		Tags            []string `json:"tags"`
		DifficultyLevel int      `json:"difficulty_level"`
		NicheScore      int      `json:"niche_score"`
		CreatedAt       string   `json:"created_at"`
	}

	out := make([]articleSummary, len(articles))
	for i, a := range articles {
		out[i] = articleSummary{
			Slug:            a.Slug,
			Title:           a.Title,
			Summary:         a.Summary,
			Category:        a.Category,
			Tags:            a.Tags,
			DifficultyLevel: a.DifficultyLevel,
			NicheScore:      a.NicheScore,
			CreatedAt:       a.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"articles": out, "count": len(out)})
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	article, err := s.articles.Get(r.Context(), r.PathValue("slug"))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "article not found")
		return
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"slug":             article.Slug,
		"title":            article.Title,
		"summary":          article.Summary,
		"content":          article.Content,
		"category":         article.Category,
		"tags":             article.Tags,
		"difficulty_level": article.DifficultyLevel,
		"niche_score":      article.NicheScore,
		"created_at":       article.CreatedAt.UTC().Format(time.RFC3339),
	})
}

type boardPostRequest struct {
	Nickname string `json:"nickname"`
	Content  string `json:"content"`
}

func (s *Server) handlePostBoard(w http.ResponseWriter, r *http.Request) {
	var req boardPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := s.board.Post(r.Context(), req.Nickname, req.Content)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":   true,
		"id":        post.ID,
		"timestamp": post.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListBoard(w http.ResponseWriter, r *http.Request) {
	posts, err := s.board.List(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	type boardView struct {
		ID        string `json:"id"`
		Nickname  string `json:"nickname"`
		Content   string `json:"content"`
		CreatedAt string `json:"created_at"`
	}
	out := make([]boardView, len(posts))
	for i, p := range posts {
		out[i] = boardView{
			ID:        p.ID,
			Nickname:  p.Nickname,
			Content:   p.Content,
			CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": out, "count": len(out)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeDomainError maps the error taxonomy onto HTTP status categories:
// validation 400, invalid state 409, rate limit 429, store failure 500.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("store failure")
		writeError(w, http.StatusInternalServerError, "store unavailable, please retry")
	default:
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("unexpected error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}

func effectNames(effects []game.Effect) []string {
	if len(effects) == 0 {
		return nil
	}
	names := make([]string, 0, len(effects))
	for _, e := range effects {
		switch e {
		case game.EffectCelebrate:
			names = append(names, "celebrate")
		case game.EffectLifeLost:
			names = append(names, "life_lost")
		case game.EffectTimeWarning:
			names = append(names, "time_warning")
		case game.EffectGameOver:
			names = append(names, "game_over")
		}
	}
	return names
}
