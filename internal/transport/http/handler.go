package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"testmaker-service/internal/app"
	"testmaker-service/internal/domain"
	"testmaker-service/internal/logger"
)

// API exposes the quiz service over JSON HTTP.
type API struct {
	service *app.QuizService
	log     *slog.Logger
}

func NewAPI(service *app.QuizService, log *slog.Logger) *API {
	if log == nil {
		log = logger.Discard()
	}
	return &API{service: service, log: log}
}

type errorBody struct {
	Error string `json:"Error"`
}

type scoreRequest struct {
	AnswerIDs []int64 `json:"AnswerIds"`
}

func (a *API) getQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "id")
	if !ok {
		return
	}
	quiz, err := a.service.GetQuiz(r.Context(), id)
	a.respond(w, r, quiz, err)
}

func (a *API) createQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, ok := decode[domain.Quiz](a, w, r)
	if !ok {
		return
	}
	created, err := a.service.CreateQuiz(r.Context(), quiz)
	a.respond(w, r, created, err)
}

func (a *API) updateQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, ok := decode[domain.Quiz](a, w, r)
	if !ok {
		return
	}
	updated, err := a.service.UpdateQuiz(r.Context(), quiz)
	a.respond(w, r, updated, err)
}

func (a *API) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "id")
	if !ok {
		return
	}
	a.respondEmpty(w, r, a.service.DeleteQuiz(r.Context(), id))
}

func (a *API) latestQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := a.service.LatestQuizzes(r.Context(), a.pageSize(r))
	a.respond(w, r, quizzes, err)
}

func (a *API) quizzesByTitle(w http.ResponseWriter, r *http.Request) {
	quizzes, err := a.service.QuizzesByTitle(r.Context(), a.pageSize(r))
	a.respond(w, r, quizzes, err)
}

func (a *API) randomQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := a.service.RandomQuizzes(r.Context(), a.pageSize(r))
	a.respond(w, r, quizzes, err)
}

func (a *API) getQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "id")
	if !ok {
		return
	}
	question, err := a.service.GetQuestion(r.Context(), id)
	a.respond(w, r, question, err)
}

func (a *API) listQuestions(w http.ResponseWriter, r *http.Request) {
	quizID, ok := a.pathID(w, r, "parentId")
	if !ok {
		return
	}
	questions, err := a.service.ListQuestions(r.Context(), quizID)
	a.respond(w, r, questions, err)
}

func (a *API) createQuestion(w http.ResponseWriter, r *http.Request) {
	question, ok := decode[domain.Question](a, w, r)
	if !ok {
		return
	}
	created, err := a.service.CreateQuestion(r.Context(), question)
	a.respond(w, r, created, err)
}

func (a *API) updateQuestion(w http.ResponseWriter, r *http.Request) {
	question, ok := decode[domain.Question](a, w, r)
	if !ok {
		return
	}
	updated, err := a.service.UpdateQuestion(r.Context(), question)
	a.respond(w, r, updated, err)
}

func (a *API) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "id")
	if !ok {
		return
	}
	a.respondEmpty(w, r, a.service.DeleteQuestion(r.Context(), id))
}

func (a *API) getAnswer(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "id")
	if !ok {
		return
	}
	answer, err := a.service.GetAnswer(r.Context(), id)
	a.respond(w, r, answer, err)
}

func (a *API) listAnswers(w http.ResponseWriter, r *http.Request) {
	questionID, ok := a.pathID(w, r, "parentId")
	if !ok {
		return
	}
	answers, err := a.service.ListAnswers(r.Context(), questionID)
	a.respond(w, r, answers, err)
}

func (a *API) createAnswer(w http.ResponseWriter, r *http.Request) {
	answer, ok := decode[domain.Answer](a, w, r)
	if !ok {
		return
	}
	created, err := a.service.CreateAnswer(r.Context(), answer)
	a.respond(w, r, created, err)
}

func (a *API) updateAnswer(w http.ResponseWriter, r *http.Request) {
	answer, ok := decode[domain.Answer](a, w, r)
	if !ok {
		return
	}
	updated, err := a.service.UpdateAnswer(r.Context(), answer)
	a.respond(w, r, updated, err)
}

func (a *API) deleteAnswer(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "id")
	if !ok {
		return
	}
	a.respondEmpty(w, r, a.service.DeleteAnswer(r.Context(), id))
}

func (a *API) getResult(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "id")
	if !ok {
		return
	}
	result, err := a.service.GetResult(r.Context(), id)
	a.respond(w, r, result, err)
}

func (a *API) listResults(w http.ResponseWriter, r *http.Request) {
	quizID, ok := a.pathID(w, r, "parentId")
	if !ok {
		return
	}
	results, err := a.service.ListResults(r.Context(), quizID)
	a.respond(w, r, results, err)
}

func (a *API) createResult(w http.ResponseWriter, r *http.Request) {
	result, ok := decode[domain.Result](a, w, r)
	if !ok {
		return
	}
	created, err := a.service.CreateResult(r.Context(), result)
	a.respond(w, r, created, err)
}

func (a *API) updateResult(w http.ResponseWriter, r *http.Request) {
	result, ok := decode[domain.Result](a, w, r)
	if !ok {
		return
	}
	updated, err := a.service.UpdateResult(r.Context(), result)
	a.respond(w, r, updated, err)
}

func (a *API) deleteResult(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "id")
	if !ok {
		return
	}
	a.respondEmpty(w, r, a.service.DeleteResult(r.Context(), id))
}

func (a *API) score(w http.ResponseWriter, r *http.Request) {
	quizID, ok := a.pathID(w, r, "quizId")
	if !ok {
		return
	}
	req, ok := decode[scoreRequest](a, w, r)
	if !ok {
		return
	}
	evaluation, err := a.service.Evaluate(r.Context(), quizID, req.AnswerIDs)
	a.respond(w, r, evaluation, err)
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}

// decode rejects empty, null and malformed bodies before any storage call.
func decode[T any](a *API, w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	data, err := io.ReadAll(r.Body)
	if err != nil {
		a.fail(w, r, err)
		return v, false
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		a.fail(w, r, domain.Invalid("request body is null"))
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		a.fail(w, r, domain.Invalid("malformed request body: %v", err))
		return v, false
	}
	return v, true
}

func (a *API) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		a.fail(w, r, domain.Invalid("%s must be an integer", name))
		return 0, false
	}
	return id, true
}

// pageSize reads the optional {num} segment of the listing routes.
func (a *API) pageSize(r *http.Request) int {
	raw, ok := mux.Vars(r)["num"]
	if !ok {
		return a.service.PageSize()
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return a.service.PageSize()
	}
	return n
}

func (a *API) respond(w http.ResponseWriter, r *http.Request, body any, err error) {
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (a *API) respondEmpty(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// fail maps domain errors to status codes. Anything unrecognized is a 500 with no body.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	var notFound *domain.NotFoundError
	var noMatch *domain.NoMatchError
	switch {
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: notFound.Error()})
	case errors.As(err, &noMatch):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: noMatch.Error()})
	case errors.Is(err, domain.ErrInvalidPayload):
		a.log.Warn("rejected payload", "method", r.Method, "path", r.URL.Path, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
	default:
		a.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
