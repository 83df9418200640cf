package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"hydromet/internal/domain"
	"hydromet/internal/port"
)

type dataFileRepo struct {
	db *sqlx.DB
}

// NewDataFileRepo creates a new PostgreSQL-backed DataFileRepository.
func NewDataFileRepo(db *sqlx.DB) port.DataFileRepository {
	return &dataFileRepo{db: db}
}

const insertDataFileQuery = `INSERT INTO data_files
	(kind, storm_id, reservoir_id, s2s_id, data_type, issued_time, from_time, to_time,
	 added_time, updated_time, file_path, file_name, content_type, file_size, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	RETURNING id`

// insertDataFile runs on either the pool or a transaction.
func insertDataFile(ctx context.Context, q sqlx.QueryerContext, f *domain.DataFile) error {
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now
	return q.QueryRowxContext(ctx, insertDataFileQuery,
		f.Kind, f.StormID, f.ReservoirID, f.S2SID, f.DataType, f.IssuedTime, f.FromTime, f.ToTime,
		f.AddedTime, f.UpdatedTime, f.FilePath, f.FileName, f.ContentType, f.FileSize,
		f.CreatedAt, f.UpdatedAt,
	).Scan(&f.ID)
}

func (r *dataFileRepo) Create(ctx context.Context, file *domain.DataFile) error {
	if err := insertDataFile(ctx, r.db, file); err != nil {
		return fmt.Errorf("dataFileRepo.Create: %w", err)
	}
	return nil
}

func (r *dataFileRepo) GetByID(ctx context.Context, kind domain.FileKind, id int64) (*domain.DataFile, error) {
	var f domain.DataFile
	err := r.db.GetContext(ctx, &f, "SELECT * FROM data_files WHERE id = $1 AND kind = $2", id, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("dataFileRepo.GetByID: %w", err)
	}
	return &f, nil
}

// effectiveTime is the timestamp a listing sorts and date-filters by.
const effectiveTime = "COALESCE(issued_time, from_time, added_time, created_at)"

// buildDataFileWhere renders filter as a WHERE clause with positional args.
func buildDataFileWhere(filter domain.DataFileFilter) (string, []any) {
	conds := []string{"kind = $1"}
	args := []any{filter.Kind}
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.StormID != nil {
		add("storm_id = $%d", *filter.StormID)
	}
	if filter.ReservoirID != nil {
		add("reservoir_id = $%d", *filter.ReservoirID)
	}
	if filter.S2SID != nil {
		add("s2s_id = $%d", *filter.S2SID)
	}
	if filter.DataType != "" {
		add("data_type = $%d", strings.ToUpper(filter.DataType))
	}
	if filter.StartDate != nil {
		add(effectiveTime+" >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add(effectiveTime+" <= $%d", *filter.EndDate)
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(file_name ILIKE $%d OR file_path ILIKE $%d)", n, n))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *dataFileRepo) List(ctx context.Context, filter domain.DataFileFilter) ([]domain.DataFile, int, error) {
	where, args := buildDataFileWhere(filter)

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM data_files"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("dataFileRepo.List count: %w", err)
	}

	query := "SELECT * FROM data_files" + where +
		fmt.Sprintf(" ORDER BY %s DESC, id DESC LIMIT $%d OFFSET $%d", effectiveTime, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	files := []domain.DataFile{}
	if err := r.db.SelectContext(ctx, &files, query, args...); err != nil {
		return nil, 0, fmt.Errorf("dataFileRepo.List: %w", err)
	}
	return files, total, nil
}

func (r *dataFileRepo) Update(ctx context.Context, f *domain.DataFile) error {
	f.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE data_files SET storm_id = $1, reservoir_id = $2, s2s_id = $3, data_type = $4,
		 issued_time = $5, from_time = $6, to_time = $7, added_time = $8, updated_time = $9,
		 file_path = $10, file_name = $11, content_type = $12, file_size = $13, updated_at = $14
		 WHERE id = $15 AND kind = $16`,
		f.StormID, f.ReservoirID, f.S2SID, f.DataType,
		f.IssuedTime, f.FromTime, f.ToTime, f.AddedTime, f.UpdatedTime,
		f.FilePath, f.FileName, f.ContentType, f.FileSize, f.UpdatedAt,
		f.ID, f.Kind)
	if err != nil {
		return fmt.Errorf("dataFileRepo.Update: %w", err)
	}
	return requireAffected(result)
}

func (r *dataFileRepo) Delete(ctx context.Context, kind domain.FileKind, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM data_files WHERE id = $1 AND kind = $2", id, kind)
	if err != nil {
		return fmt.Errorf("dataFileRepo.Delete: %w", err)
	}
	return requireAffected(result)
}

func (r *dataFileRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
