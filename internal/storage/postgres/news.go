package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/remessasegura/backend/internal/core"
)

const newsColumns = `
	id, titulo, slug, resumo, conteudo,
	COALESCE(imagem_capa, ''), COALESCE(categoria, ''), COALESCE(status, ''),
	data_publicacao, created_at, COALESCE(updated_at, created_at), publicado,
	COALESCE(autor_nome, ''), visualizacoes, destaque,
	COALESCE(meta_description, ''), ordem_destaque,
	COALESCE(fonte_nome, ''), COALESCE(fonte_url, ''), fonte_publicada_em, COALESCE(fonte_autor, '')`

const newsSelect = `SELECT` + newsColumns + ` FROM noticias`

const publishedOrder = ` ORDER BY data_publicacao DESC NULLS LAST, created_at DESC`

func scanNews(row pgx.Row) (core.News, error) {
	var n core.News
	err := row.Scan(
		&n.ID, &n.Title, &n.Slug, &n.Summary, &n.Content,
		&n.CoverImage, &n.Category, &n.Status,
		&n.PublishedAt, &n.CreatedAt, &n.UpdatedAt, &n.Published,
		&n.AuthorName, &n.Views, &n.Featured,
		&n.MetaDescription, &n.FeaturedOrder,
		&n.SourceName, &n.SourceURL, &n.SourcePublishedAt, &n.SourceAuthor,
	)
	return n, err
}

// NewsRepository implements storage.NewsRepository.
type NewsRepository struct {
	pool *pgxpool.Pool
}

// NewNewsRepository creates a NewsRepository.
func NewNewsRepository(pool *pgxpool.Pool) *NewsRepository {
	return &NewsRepository{pool: pool}
}

func (r *NewsRepository) list(ctx context.Context, query string, args ...any) ([]core.News, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "news")
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.News, error) {
		return scanNews(row)
	})
	if err != nil {
		return nil, mapError(err, "news")
	}
	return items, nil
}

func (r *NewsRepository) one(ctx context.Context, query string, args ...any) (*core.News, error) {
	n, err := scanNews(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "news")
	}
	return &n, nil
}

func (r *NewsRepository) ListPublished(ctx context.Context) ([]core.News, error) {
	return r.list(ctx, newsSelect+` WHERE publicado = true`+publishedOrder)
}

func (r *NewsRepository) BySlug(ctx context.Context, slug string) (*core.News, error) {
	return r.one(ctx, newsSelect+` WHERE slug = $1 AND publicado = true LIMIT 1`, slug)
}

func (r *NewsRepository) ByCategory(ctx context.Context, category string) ([]core.News, error) {
	return r.list(ctx, newsSelect+` WHERE categoria = $1 AND publicado = true`+publishedOrder, category)
}

func (r *NewsRepository) Highlights(ctx context.Context, limit int) ([]core.News, error) {
	return r.list(ctx, newsSelect+`
		WHERE publicado = true AND destaque = true
		ORDER BY ordem_destaque ASC NULLS LAST, data_publicacao DESC NULLS LAST
		LIMIT $1`, limit)
}

func (r *NewsRepository) MostRead(ctx context.Context, limit int) ([]core.News, error) {
	return r.list(ctx, newsSelect+`
		WHERE publicado = true
		ORDER BY visualizacoes DESC, data_publicacao DESC NULLS LAST
		LIMIT $1`, limit)
}

func (r *NewsRepository) ListAll(ctx context.Context) ([]core.News, error) {
	return r.list(ctx, newsSelect+` ORDER BY created_at DESC`)
}

func (r *NewsRepository) ByID(ctx context.Context, id uuid.UUID) (*core.News, error) {
	return r.one(ctx, newsSelect+` WHERE id = $1`, id)
}

// nullable stores empty strings as NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *NewsRepository) Create(ctx context.Context, n core.News) (*core.News, error) {
	return r.one(ctx, `
		INSERT INTO noticias (
			id, titulo, slug, resumo, conteudo,
			imagem_capa, categoria, status,
			data_publicacao, created_at, publicado,
			autor_nome, visualizacoes, destaque,
			meta_description, ordem_destaque,
			fonte_nome, fonte_url, fonte_publicada_em, fonte_autor
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0, $13, $14, $15, $16, $17, $18, $19)
		RETURNING`+newsColumns,
		uuid.New(), n.Title, n.Slug, n.Summary, n.Content,
		nullable(n.CoverImage), nullable(n.Category), nullable(n.Status),
		n.PublishedAt, time.Now().UTC(), n.Published,
		nullable(n.AuthorName), n.Featured,
		nullable(n.MetaDescription), n.FeaturedOrder,
		nullable(n.SourceName), nullable(n.SourceURL), n.SourcePublishedAt, nullable(n.SourceAuthor),
	)
}

func (r *NewsRepository) Update(ctx context.Context, id uuid.UUID, n core.News) (*core.News, error) {
	return r.one(ctx, `
		UPDATE noticias SET
			titulo = $2, slug = $3, resumo = $4, conteudo = $5,
			imagem_capa = $6, categoria = $7, status = $8,
			data_publicacao = $9, updated_at = $10, publicado = $11,
			autor_nome = $12, destaque = $13, meta_description = $14, ordem_destaque = $15,
			fonte_nome = $16, fonte_url = $17, fonte_publicada_em = $18, fonte_autor = $19
		WHERE id = $1
		RETURNING`+newsColumns,
		id, n.Title, n.Slug, n.Summary, n.Content,
		nullable(n.CoverImage), nullable(n.Category), nullable(n.Status),
		n.PublishedAt, time.Now().UTC(), n.Published,
		nullable(n.AuthorName), n.Featured, nullable(n.MetaDescription), n.FeaturedOrder,
		nullable(n.SourceName), nullable(n.SourceURL), n.SourcePublishedAt, nullable(n.SourceAuthor),
	)
}

func (r *NewsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM noticias WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "news")
	}
	if tag.RowsAffected() == 0 {
		return core.NotFound("news not found")
	}
	return nil
}

func (r *NewsRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE noticias SET visualizacoes = visualizacoes + 1 WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "news")
	}
	if tag.RowsAffected() == 0 {
		return core.NotFound("news not found")
	}
	return nil
}

func (r *NewsRepository) SetCover(ctx context.Context, id uuid.UUID, url string) (*core.News, error) {
	return r.one(ctx, `
		UPDATE noticias SET imagem_capa = $2, updated_at = now()
		WHERE id = $1
		RETURNING`+newsColumns, id, url)
}
