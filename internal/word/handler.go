package word

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/vapmail16/synonym-quest-sub000/internal/auth"
	"github.com/vapmail16/synonym-quest-sub000/internal/httpx"
	"github.com/vapmail16/synonym-quest-sub000/internal/word/entity"
)

const maxUploadBytes = 10 << 20

// Handler exposes /api/words.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var mapped error
	switch {
	case errors.Is(err, ErrInvalidWord), errors.Is(err, ErrDifficulty),
		errors.Is(err, ErrSynonymType), errors.Is(err, ErrDuplicateWord):
		mapped = httpx.BadRequest(err)
	case errors.Is(err, ErrNotFound):
		mapped = httpx.NotFound(err)
	default:
		var apiErr *httpx.Error
		if errors.As(err, &apiErr) {
			mapped = err
		} else {
			h.logger.Errorw(op+" failed", "err", err)
			mapped = httpx.Internal(err)
		}
	}
	httpx.WriteError(w, mapped)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.svc.List(r.Context(), entity.Filter{
		Search:     q.Get("search"),
		Difficulty: q.Get("difficulty"),
		Category:   q.Get("category"),
		Limit:      httpx.QueryInt(r, "limit", 50, 200),
		Offset:     httpx.QueryInt(r, "offset", 0, 0),
	})
	if err != nil {
		h.fail(w, "list words", err)
		return
	}
	httpx.OK(w, page)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		h.fail(w, "get word", err)
		return
	}
	word, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get word", err)
		return
	}
	httpx.OK(w, word)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, "create word", err)
		return
	}
	word, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create word", err)
		return
	}
	httpx.Created(w, word)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		h.fail(w, "update word", err)
		return
	}
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, "update word", err)
		return
	}
	word, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update word", err)
		return
	}
	httpx.OK(w, word)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		h.fail(w, "delete word", err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete word", err)
		return
	}
	httpx.Message(w, "word deleted")
}

func (h *Handler) Random(w http.ResponseWriter, r *http.Request) {
	words, err := h.svc.Random(r.Context(), httpx.QueryInt(r, "count", 10, 100), r.URL.Query().Get("difficulty"))
	if err != nil {
		h.fail(w, "random words", err)
		return
	}
	httpx.OK(w, words)
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	words, err := h.svc.Review(r.Context(), httpx.QueryInt(r, "count", 10, 100))
	if err != nil {
		h.fail(w, "review words", err)
		return
	}
	httpx.OK(w, words)
}

type answerRequest struct {
	Correct bool `json:"correct"`
}

// RecordAnswer handles POST /api/words/{id}/answer.
func (h *Handler) RecordAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		h.fail(w, "record answer", err)
		return
	}
	var req answerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, "record answer", err)
		return
	}
	if err := h.svc.RecordAnswer(r.Context(), id, req.Correct); err != nil {
		h.fail(w, "record answer", err)
		return
	}
	httpx.Message(w, "answer recorded")
}

func (h *Handler) GenerateSynonyms(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, "generate synonyms", h.svc.GenerateSynonyms)
}

func (h *Handler) GenerateMeaning(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, "generate meaning", h.svc.GenerateMeaning)
}

type generator func(ctx context.Context, id int64, save bool) (*Generated, error)

func (h *Handler) generate(w http.ResponseWriter, r *http.Request, op string, fn generator) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		h.fail(w, op, err)
		return
	}
	save := r.URL.Query().Get("save") == "true"
	out, err := fn(r.Context(), id, save)
	if err != nil {
		h.fail(w, op, err)
		return
	}
	if out.Fallback {
		h.logger.Infow(op+" used fallback content", "word_id", id)
	}
	httpx.OK(w, out)
}

func principalID(r *http.Request) (int64, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		return 0, false
	}
	return p.UserID, true
}

// Learned handles GET /api/words/learned. RequireAuth runs in front.
func (h *Handler) Learned(w http.ResponseWriter, r *http.Request) {
	id, ok := principalID(r)
	if !ok {
		httpx.WriteError(w, httpx.Unauthorized(auth.ErrMissingToken))
		return
	}
	words, err := h.svc.Learned(r.Context(), id)
	if err != nil {
		h.fail(w, "learned words", err)
		return
	}
	httpx.OK(w, words)
}

func (h *Handler) New(w http.ResponseWriter, r *http.Request) {
	id, ok := principalID(r)
	if !ok {
		httpx.WriteError(w, httpx.Unauthorized(auth.ErrMissingToken))
		return
	}
	words, err := h.svc.New(r.Context(), id, httpx.QueryInt(r, "count", 10, 100), r.URL.Query().Get("difficulty"))
	if err != nil {
		h.fail(w, "new words", err)
		return
	}
	httpx.OK(w, words)
}

// Import handles a multipart xlsx upload in the "file" field.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.WriteError(w, httpx.Validation("expected a multipart upload"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, httpx.Validation("file is required"))
		return
	}
	defer file.Close()

	inputs, problems, err := ParseWorkbook(file, r.FormValue("sheet"))
	if err != nil {
		httpx.WriteError(w, httpx.BadRequest(err))
		return
	}
	res, err := h.svc.Import(r.Context(), inputs)
	if err != nil {
		h.fail(w, "import words", err)
		return
	}
	res.TotalProcessed += len(problems)
	res.Skipped += len(problems)
	res.Errors = append(append([]string{}, problems...), res.Errors...)
	h.logger.Infow("words imported", "created", res.Created, "updated", res.Updated, "skipped", res.Skipped)
	httpx.OK(w, res)
}
