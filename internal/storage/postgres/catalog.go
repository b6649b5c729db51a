package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/remessasegura/backend/internal/core"
)

// BankRepository implements storage.BankRepository.
type BankRepository struct {
	pool *pgxpool.Pool
}

// NewBankRepository creates a BankRepository.
func NewBankRepository(pool *pgxpool.Pool) *BankRepository {
	return &BankRepository{pool: pool}
}

func (r *BankRepository) List(ctx context.Context) ([]core.Bank, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, numero_banco, nome FROM bancos ORDER BY numero_banco`)
	if err != nil {
		return nil, mapError(err, "bank")
	}
	banks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Bank, error) {
		var b core.Bank
		err := row.Scan(&b.ID, &b.Number, &b.Name)
		return b, err
	})
	if err != nil {
		return nil, mapError(err, "bank")
	}
	return banks, nil
}

func (r *BankRepository) ByID(ctx context.Context, id uuid.UUID) (*core.Bank, error) {
	var b core.Bank
	err := r.pool.QueryRow(ctx, `SELECT id, numero_banco, nome FROM bancos WHERE id = $1`, id).
		Scan(&b.ID, &b.Number, &b.Name)
	if err != nil {
		return nil, mapError(err, "bank")
	}
	return &b, nil
}

const reasonColumns = `id, banco_id, ocorrencia, motivo, descricao, observacao, atualizado_em`

func scanReason(row pgx.Row) (core.OccurrenceReason, error) {
	var o core.OccurrenceReason
	err := row.Scan(&o.ID, &o.BankID, &o.Occurrence, &o.Reason, &o.Description, &o.Note, &o.UpdatedAt)
	return o, err
}

// OccurrenceRepository implements storage.OccurrenceRepository.
type OccurrenceRepository struct {
	pool *pgxpool.Pool
}

// NewOccurrenceRepository creates an OccurrenceRepository.
func NewOccurrenceRepository(pool *pgxpool.Pool) *OccurrenceRepository {
	return &OccurrenceRepository{pool: pool}
}

func (r *OccurrenceRepository) List(ctx context.Context, bankID uuid.UUID, occurrence string) ([]core.OccurrenceReason, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reasonColumns+`
		FROM ocorrencias_motivos
		WHERE banco_id = $1 AND ocorrencia = $2
		ORDER BY motivo`, bankID, occurrence)
	if err != nil {
		return nil, mapError(err, "occurrence reason")
	}
	reasons, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.OccurrenceReason, error) {
		return scanReason(row)
	})
	if err != nil {
		return nil, mapError(err, "occurrence reason")
	}
	return reasons, nil
}

func (r *OccurrenceRepository) Get(ctx context.Context, key core.OccurrenceReasonKey) (*core.OccurrenceReason, error) {
	o, err := scanReason(r.pool.QueryRow(ctx, `
		SELECT `+reasonColumns+`
		FROM ocorrencias_motivos
		WHERE banco_id = $1 AND ocorrencia = $2 AND motivo = $3
		LIMIT 1`, key.BankID, key.Occurrence, key.Reason))
	if err != nil {
		return nil, mapError(err, "occurrence reason")
	}
	return &o, nil
}

func (r *OccurrenceRepository) Create(ctx context.Context, in core.OccurrenceReason) (*core.OccurrenceReason, error) {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	o, err := scanReason(r.pool.QueryRow(ctx, `
		INSERT INTO ocorrencias_motivos (id, banco_id, ocorrencia, motivo, descricao, observacao)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+reasonColumns,
		in.ID, in.BankID, in.Occurrence, in.Reason, in.Description, in.Note))
	if err != nil {
		return nil, mapError(err, "occurrence reason")
	}
	return &o, nil
}

// Update applies patch; COALESCE keeps columns whose patch field is nil.
func (r *OccurrenceRepository) Update(ctx context.Context, key core.OccurrenceReasonKey, patch core.OccurrenceReasonPatch) (*core.OccurrenceReason, error) {
	o, err := scanReason(r.pool.QueryRow(ctx, `
		UPDATE ocorrencias_motivos
		SET descricao = COALESCE($4, descricao),
		    observacao = COALESCE($5, observacao),
		    atualizado_em = $6
		WHERE banco_id = $1 AND ocorrencia = $2 AND motivo = $3
		RETURNING `+reasonColumns,
		key.BankID, key.Occurrence, key.Reason, patch.Description, patch.Note, time.Now().UTC()))
	if err != nil {
		return nil, mapError(err, "occurrence reason")
	}
	return &o, nil
}
