package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

type route struct {
	method  string
	path    string
	handler http.HandlerFunc
}

// routes is the full API surface. Listing routes come before {id} routes of the same
// resource so a literal segment is never read as an id.
func (a *API) routes() []route {
	return []route{
		{http.MethodGet, "/api/quiz/Latest", a.latestQuizzes},
		{http.MethodGet, "/api/quiz/Latest/{num:[0-9]+}", a.latestQuizzes},
		{http.MethodGet, "/api/quiz/ByTitle", a.quizzesByTitle},
		{http.MethodGet, "/api/quiz/ByTitle/{num:[0-9]+}", a.quizzesByTitle},
		{http.MethodGet, "/api/quiz/Random", a.randomQuizzes},
		{http.MethodGet, "/api/quiz/Random/{num:[0-9]+}", a.randomQuizzes},
		{http.MethodGet, "/api/quiz/{id:[0-9]+}", a.getQuiz},
		{http.MethodPut, "/api/quiz", a.createQuiz},
		{http.MethodPost, "/api/quiz", a.updateQuiz},
		{http.MethodDelete, "/api/quiz/{id:[0-9]+}", a.deleteQuiz},

		{http.MethodGet, "/api/question/All/{parentId:[0-9]+}", a.listQuestions},
		{http.MethodGet, "/api/question/{id:[0-9]+}", a.getQuestion},
		{http.MethodPut, "/api/question", a.createQuestion},
		{http.MethodPost, "/api/question", a.updateQuestion},
		{http.MethodDelete, "/api/question/{id:[0-9]+}", a.deleteQuestion},

		{http.MethodGet, "/api/answer/All/{parentId:[0-9]+}", a.listAnswers},
		{http.MethodGet, "/api/answer/{id:[0-9]+}", a.getAnswer},
		{http.MethodPut, "/api/answer", a.createAnswer},
		{http.MethodPost, "/api/answer", a.updateAnswer},
		{http.MethodDelete, "/api/answer/{id:[0-9]+}", a.deleteAnswer},

		{http.MethodGet, "/api/result/All/{parentId:[0-9]+}", a.listResults},
		{http.MethodPost, "/api/result/Score/{quizId:[0-9]+}", a.score},
		{http.MethodGet, "/api/result/{id:[0-9]+}", a.getResult},
		{http.MethodPut, "/api/result", a.createResult},
		{http.MethodPost, "/api/result", a.updateResult},
		{http.MethodDelete, "/api/result/{id:[0-9]+}", a.deleteResult},

		{http.MethodGet, "/healthz", healthz},
	}
}

// Router registers the route table on a gorilla/mux router.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	for _, rt := range a.routes() {
		r.HandleFunc(rt.path, rt.handler).Methods(rt.method)
	}
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: fmt.Sprintf("no route for %s %s", req.Method, req.URL.Path)})
	})
	r.Use(a.logRequests)
	return r
}

// Handler is the router wrapped with CORS. An empty origin list allows any origin.
func (a *API) Handler(origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(a.Router())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
