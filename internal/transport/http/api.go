package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"quizbox-service/internal/app"
	"quizbox-service/internal/auth"
	"quizbox-service/internal/domain"
)

// AdmissionNotifier is the outbound mail hook for new admission forms.
type AdmissionNotifier interface {
	SendAdmissionReceived(ctx context.Context, admission domain.Admission) error
}

// API bundles the REST handlers and their collaborators. Quiz catalog writes
// go through the service so the quiz cache is invalidated alongside them.
type API struct {
	service    *app.QuizService
	content    app.ContentStore
	admissions app.AdmissionStore
	streams    app.StreamStore
	chat       *app.ChatBoard
	tokens     *auth.Manager
	notifier   AdmissionNotifier
}

func NewAPI(service *app.QuizService, content app.ContentStore, admissions app.AdmissionStore, streams app.StreamStore, chat *app.ChatBoard, tokens *auth.Manager, notifier AdmissionNotifier) *API {
	return &API{
		service:    service,
		content:    content,
		admissions: admissions,
		streams:    streams,
		chat:       chat,
		tokens:     tokens,
		notifier:   notifier,
	}
}

// Router wires the REST surface and the websocket endpoints.
func (a *API) Router(ws *WSHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Get("/ws/quiz", ws.ServeQuiz)
	r.Get("/ws/doubts", ws.ServeDoubts)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", a.register)
		r.Post("/auth/login", a.login)

		r.Get("/quizzes", a.listQuizzes)
		r.Get("/quizzes/daily", a.dailyQuizzes)
		r.Get("/quizzes/home", a.homeQuizzes)
		r.Get("/leaderboard", a.leaderboard)
		r.Get("/streams", a.listStreams)
		r.Get("/streams/{streamID}", a.streamDetail)
		r.Get("/streams/{streamID}/resources", a.listStreamResources)
		r.Get("/videos", a.listVideos)
		r.Get("/notifications", a.listNotifications)
		r.Get("/doubts", a.chatHistory)
		r.Post("/admissions", a.submitAdmission)

		r.Group(func(r chi.Router) {
			r.Use(a.tokens.Middleware)
			r.Get("/library", a.listLibrary)
			r.Put("/library/{quizID}", a.addToLibrary)
			r.Delete("/library/{quizID}", a.removeFromLibrary)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(a.tokens.Middleware)
			r.Use(auth.RequireAdmin)
			r.Post("/quizzes", a.saveQuiz)
			r.Delete("/quizzes/{quizID}", a.deleteQuiz)
			r.Put("/quizzes/{quizID}/daily", a.setDaily)
			r.Put("/quizzes/{quizID}/home", a.setHome)
			r.Post("/streams", a.saveStream)
			r.Delete("/streams/{streamID}", a.deleteStream)
			r.Post("/streams/{streamID}/resources", a.addStreamResource)
			r.Delete("/streams/resources/{id}", a.deleteStreamResource)
			r.Post("/videos", a.addVideo)
			r.Delete("/videos/{id}", a.deleteVideo)
			r.Post("/notifications", a.pushNotification)
			r.Delete("/notifications/{id}", a.deleteNotification)
			r.Get("/admissions", a.listAdmissions)
		})
	})

	return r
}

type credentials struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Email == "" || creds.Password == "" {
		httpError(w, http.StatusBadRequest, "email and password required")
		return
	}
	user, token, err := a.tokens.Register(r.Context(), creds.Email, creds.Name, creds.Password)
	if err == domain.ErrEmailTaken {
		httpError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		httpError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	user, token, err := a.tokens.Login(r.Context(), creds.Email, creds.Password)
	if err == domain.ErrInvalidCredentials {
		httpError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (a *API) listQuizzes(w http.ResponseWriter, r *http.Request) {
	a.writeQuizList(w, r, a.service.ListQuizzes)
}

func (a *API) dailyQuizzes(w http.ResponseWriter, r *http.Request) {
	a.writeQuizList(w, r, a.service.DailyQuizzes)
}

func (a *API) homeQuizzes(w http.ResponseWriter, r *http.Request) {
	a.writeQuizList(w, r, a.service.HomeQuizzes)
}

func (a *API) writeQuizList(w http.ResponseWriter, r *http.Request, list func(context.Context) ([]domain.Quiz, error)) {
	quizzes, err := list(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (a *API) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := a.service.Leaderboard(r.Context(), limit)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) listLibrary(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())
	quizzes, err := a.service.Library(r.Context(), claims.UserID)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (a *API) addToLibrary(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())
	quizID, ok := quizIDParam(w, r)
	if !ok {
		return
	}
	err := a.service.AddToLibrary(r.Context(), claims.UserID, quizID)
	if err == domain.ErrQuizNotFound {
		httpError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) removeFromLibrary(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())
	quizID, ok := quizIDParam(w, r)
	if !ok {
		return
	}
	if err := a.service.RemoveFromLibrary(r.Context(), claims.UserID, quizID); err != nil {
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listVideos(w http.ResponseWriter, r *http.Request) {
	kind := domain.VideoKind(r.URL.Query().Get("kind"))
	videos, err := a.content.ListVideos(r.Context(), kind)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, videos)
}

func (a *API) listNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := a.content.ListNotifications(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (a *API) chatHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	messages, err := a.chat.History(r.Context(), limit)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (a *API) submitAdmission(w http.ResponseWriter, r *http.Request) {
	var admission domain.Admission
	if err := json.NewDecoder(r.Body).Decode(&admission); err != nil || admission.Name == "" || admission.Course == "" {
		httpError(w, http.StatusBadRequest, "name and course required")
		return
	}
	saved, err := a.admissions.Submit(r.Context(), admission)
	if err != nil {
		internalError(w, err)
		return
	}
	if a.notifier != nil {
		if err := a.notifier.SendAdmissionReceived(r.Context(), saved); err != nil {
			log.Printf("admission email failed: %v", err)
		}
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (a *API) saveQuiz(w http.ResponseWriter, r *http.Request) {
	var quiz domain.Quiz
	if err := json.NewDecoder(r.Body).Decode(&quiz); err != nil {
		httpError(w, http.StatusBadRequest, "invalid quiz payload")
		return
	}
	for i, question := range quiz.Questions {
		if !question.Valid() {
			httpError(w, http.StatusBadRequest, "question "+strconv.Itoa(i)+" is invalid")
			return
		}
	}
	saved, err := a.service.SaveQuiz(r.Context(), quiz)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (a *API) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quizIDParam(w, r)
	if !ok {
		return
	}
	if err := a.service.DeleteQuiz(r.Context(), quizID); err != nil {
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) setDaily(w http.ResponseWriter, r *http.Request) {
	a.setFlag(w, r, a.service.SetDaily)
}

func (a *API) setHome(w http.ResponseWriter, r *http.Request) {
	a.setFlag(w, r, a.service.SetHome)
}

func (a *API) setFlag(w http.ResponseWriter, r *http.Request, set func(context.Context, int64, bool) error) {
	quizID, ok := quizIDParam(w, r)
	if !ok {
		return
	}
	var payload struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	err := set(r.Context(), quizID, payload.Enabled)
	if err == domain.ErrQuizNotFound {
		httpError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listStreams(w http.ResponseWriter, r *http.Request) {
	streams, err := a.streams.ListStreams(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, streams)
}

func (a *API) streamDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := a.streams.StreamDetail(r.Context(), chi.URLParam(r, "streamID"))
	if err == domain.ErrStreamNotFound {
		httpError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (a *API) listStreamResources(w http.ResponseWriter, r *http.Request) {
	category := domain.StreamCategory(r.URL.Query().Get("category"))
	resources, err := a.streams.ListResources(r.Context(), chi.URLParam(r, "streamID"), category)
	if err == domain.ErrStreamNotFound {
		httpError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resources)
}

func (a *API) saveStream(w http.ResponseWriter, r *http.Request) {
	var stream domain.Stream
	if err := json.NewDecoder(r.Body).Decode(&stream); err != nil || stream.Name == "" {
		httpError(w, http.StatusBadRequest, "stream name required")
		return
	}
	saved, err := a.streams.SaveStream(r.Context(), stream)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (a *API) deleteStream(w http.ResponseWriter, r *http.Request) {
	if err := a.streams.DeleteStream(r.Context(), chi.URLParam(r, "streamID")); err != nil {
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) addStreamResource(w http.ResponseWriter, r *http.Request) {
	var resource domain.StreamResource
	if err := json.NewDecoder(r.Body).Decode(&resource); err != nil || resource.Category == "" {
		httpError(w, http.StatusBadRequest, "resource category required")
		return
	}
	resource.StreamID = chi.URLParam(r, "streamID")
	saved, err := a.streams.AddResource(r.Context(), resource)
	if err == domain.ErrStreamNotFound {
		httpError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (a *API) deleteStreamResource(w http.ResponseWriter, r *http.Request) {
	if err := a.streams.DeleteResource(r.Context(), chi.URLParam(r, "id")); err != nil {
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) addVideo(w http.ResponseWriter, r *http.Request) {
	var video domain.Video
	if err := json.NewDecoder(r.Body).Decode(&video); err != nil || video.URL == "" {
		httpError(w, http.StatusBadRequest, "video url required")
		return
	}
	if video.Kind != domain.VideoShort {
		video.Kind = domain.VideoFull
	}
	saved, err := a.content.AddVideo(r.Context(), video)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (a *API) deleteVideo(w http.ResponseWriter, r *http.Request) {
	if err := a.content.DeleteVideo(r.Context(), chi.URLParam(r, "id")); err != nil {
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) pushNotification(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Message == "" {
		httpError(w, http.StatusBadRequest, "message required")
		return
	}
	n, err := a.content.PushNotification(r.Context(), payload.Message)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (a *API) deleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := a.content.DeleteNotification(r.Context(), chi.URLParam(r, "id")); err != nil {
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listAdmissions(w http.ResponseWriter, r *http.Request) {
	admissions, err := a.admissions.List(r.Context(), r.URL.Query().Get("course"))
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, admissions)
}

func quizIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	quizID, err := strconv.ParseInt(chi.URLParam(r, "quizID"), 10, 64)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid quiz id")
		return 0, false
	}
	return quizID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func httpError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func internalError(w http.ResponseWriter, err error) {
	log.Printf("internal error: %v", err)
	httpError(w, http.StatusInternalServerError, "internal error")
}
