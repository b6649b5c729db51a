package api

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/remessasegura/backend/internal/api/response"
	"github.com/remessasegura/backend/internal/core"
	"github.com/remessasegura/backend/internal/storage"
	"github.com/remessasegura/backend/internal/storage/media"
	"go.uber.org/zap"
)

const (
	defaultHighlights = 5
	defaultMostRead   = 10
	maxNewsLimit      = 50
	coverDir          = "news"
)

// NewsHandler serves /api/noticias.
type NewsHandler struct {
	repo   storage.NewsRepository
	media  media.Store
	now    func() time.Time
	logger *zap.Logger
}

// NewNewsHandler creates a news handler. A nil media store disables cover
// uploads.
func NewNewsHandler(repo storage.NewsRepository, store media.Store, logger *zap.Logger) *NewsHandler {
	return &NewsHandler{repo: repo, media: store, now: time.Now, logger: orNop(logger)}
}

func (h *NewsHandler) list(w http.ResponseWriter, r *http.Request, items []core.News, err error) {
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

func newsLimit(r *http.Request, def int) (int, error) {
	limit, err := queryInt(r, "limit", def)
	if err != nil {
		return 0, err
	}
	if limit < 1 || limit > maxNewsLimit {
		return 0, core.Validation("limit must be between 1 and %d", maxNewsLimit)
	}
	return limit, nil
}

// Published handles GET /api/noticias
func (h *NewsHandler) Published(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.ListPublished(r.Context())
	h.list(w, r, items, err)
}

// BySlug handles GET /api/noticias/slug/{slug}
func (h *NewsHandler) BySlug(w http.ResponseWriter, r *http.Request) {
	n, err := h.repo.BySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, n)
}

// ByCategory handles GET /api/noticias/categoria/{categoria}
func (h *NewsHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.ByCategory(r.Context(), r.PathValue("categoria"))
	h.list(w, r, items, err)
}

// Highlights handles GET /api/noticias/destaques?limit=5
func (h *NewsHandler) Highlights(w http.ResponseWriter, r *http.Request) {
	limit, err := newsLimit(r, defaultHighlights)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	items, err := h.repo.Highlights(r.Context(), limit)
	h.list(w, r, items, err)
}

// MostRead handles GET /api/noticias/mais-lidas?limit=10
func (h *NewsHandler) MostRead(w http.ResponseWriter, r *http.Request) {
	limit, err := newsLimit(r, defaultMostRead)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	items, err := h.repo.MostRead(r.Context(), limit)
	h.list(w, r, items, err)
}

// All handles GET /api/noticias/admin/all
func (h *NewsHandler) All(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.ListAll(r.Context())
	h.list(w, r, items, err)
}

// prepare trims the article, derives the slug and keeps the status and
// published flag consistent.
func (h *NewsHandler) prepare(n *core.News) error {
	n.Title = strings.TrimSpace(n.Title)
	if n.Title == "" {
		return core.Validation("title is required")
	}
	slug := n.Slug
	if strings.TrimSpace(slug) == "" {
		slug = n.Title
	}
	if n.Slug = core.Slugify(slug); n.Slug == "" {
		return core.Validation("slug must contain letters or digits")
	}

	switch strings.ToLower(strings.TrimSpace(n.Status)) {
	case core.NewsPublished:
		n.Published = true
	case core.NewsDraft:
		n.Published = false
	case "":
	default:
		return core.Validation("status must be %s or %s", core.NewsDraft, core.NewsPublished)
	}
	if n.Published {
		n.Status = core.NewsPublished
		if n.PublishedAt == nil {
			now := h.now().UTC()
			n.PublishedAt = &now
		}
	} else {
		n.Status = core.NewsDraft
	}
	return nil
}

// Create handles POST /api/noticias
func (h *NewsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var n core.News
	if err := decodeJSON(r, &n); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if err := h.prepare(&n); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	created, err := h.repo.Create(r.Context(), n)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	w.Header().Set("Location", "/api/noticias/slug/"+created.Slug)
	response.JSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/noticias/{id}
func (h *NewsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	var n core.News
	if err := decodeJSON(r, &n); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if err := h.prepare(&n); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	updated, err := h.repo.Update(r.Context(), id, n)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/noticias/{id}
func (h *NewsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// View handles POST /api/noticias/{id}/visualizar
func (h *NewsHandler) View(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if err := h.repo.IncrementViews(r.Context(), id); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.Message(w, http.StatusOK, "Visualização registrada.")
}

// UploadCover handles POST /api/noticias/{id}/capa with a multipart "file"
// field. The content type is sniffed from the bytes, not the header.
func (h *NewsHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	if h.media == nil {
		fail(w, r, h.logger, core.NotFound("cover uploads are disabled"))
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if _, err := h.repo.ByID(r.Context(), id); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, media.MaxUploadSize+64<<10)
	file, _, err := r.FormFile("file")
	if err != nil {
		fail(w, r, h.logger, core.Validation("multipart field \"file\" is required (max %d MB)", media.MaxUploadSize>>20))
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(file, media.MaxUploadSize+1)); err != nil {
		fail(w, r, h.logger, core.Validation("reading upload: %v", err))
		return
	}
	if buf.Len() > media.MaxUploadSize {
		fail(w, r, h.logger, core.Validation("image larger than %d MB", media.MaxUploadSize>>20))
		return
	}

	contentType := http.DetectContentType(buf.Bytes())
	key, err := media.NewKey(coverDir, contentType)
	if err != nil {
		fail(w, r, h.logger, core.Validation("image must be JPEG, PNG, WebP or GIF"))
		return
	}
	if err := h.media.Put(r.Context(), key, contentType, buf.Bytes()); err != nil {
		fail(w, r, h.logger, core.WrapError(core.ErrStorageFailed, err))
		return
	}

	updated, err := h.repo.SetCover(r.Context(), id, h.media.URL(key))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	h.logger.Info("news cover stored",
		zap.String("news_id", id.String()),
		zap.String("key", key),
		zap.Int("bytes", buf.Len()))
	response.JSON(w, http.StatusOK, updated)
}
