package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geniusappsio/tramita/internal/entities"
	apperrors "github.com/geniusappsio/tramita/pkg/errors"
	"github.com/geniusappsio/tramita/pkg/types"
)

const (
	formTemplateTable  = "form_templates"
	formTemplateFields = "id, process_type_id, stage_id, name, description, version, is_active, is_required, created_by, created_at, updated_at, deleted_at"

	formFieldTable  = "form_fields"
	formFieldFields = "id, template_id, name, label, field_type, placeholder, help_text, default_value, is_required, is_readonly, is_hidden, options, validation, sort_order, width, created_at, updated_at, deleted_at"
)

type FormRepositoryInterface interface {
	CreateTemplate(ctx context.Context, tx pgx.Tx, t *entities.FormTemplate) (uint64, error)
	UpdateTemplate(ctx context.Context, tx pgx.Tx, t *entities.FormTemplate) error
	FindTemplateByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.FormTemplate, error)
	ListTemplates(ctx context.Context, processTypeID uint64) ([]*entities.FormTemplate, error)
	SoftDeleteTemplate(ctx context.Context, tx pgx.Tx, id uint64, at time.Time) error

	CreateField(ctx context.Context, tx pgx.Tx, f *entities.FormField) (uint64, error)
	UpdateField(ctx context.Context, tx pgx.Tx, f *entities.FormField) error
	FindFieldByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.FormField, error)
	ListFields(ctx context.Context, templateID uint64) ([]*entities.FormField, error)
	CountFields(ctx context.Context, tx pgx.Tx, templateID uint64) (int, error)
	SoftDeleteField(ctx context.Context, tx pgx.Tx, id uint64, at time.Time) error
}

type formRepository struct {
	storage *pgxpool.Pool
}

func NewFormRepository(storage *pgxpool.Pool) FormRepositoryInterface {
	return &formRepository{storage: storage}
}

// jsonColumn keeps empty collections as SQL NULL instead of a JSON null literal.
func jsonColumn[T any](v []T) interface{} {
	if len(v) == 0 {
		return nil
	}
	return v
}

func jsonObjectColumn(v map[string]interface{}) interface{} {
	if len(v) == 0 {
		return nil
	}
	return v
}

func (r *formRepository) scanTemplate(row pgx.Row) (*entities.FormTemplate, error) {
	var t entities.FormTemplate
	var deletedAt null.Time

	err := row.Scan(&t.ID, &t.ProcessTypeID, &t.StageID, &t.Name, &t.Description, &t.Version, &t.IsActive,
		&t.IsRequired, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan form_template row: %w", err)
	}
	t.Deletion = types.DeletionFromNull(deletedAt)
	return &t, nil
}

func (r *formRepository) scanField(row pgx.Row) (*entities.FormField, error) {
	var f entities.FormField
	var deletedAt null.Time

	err := row.Scan(&f.ID, &f.TemplateID, &f.Name, &f.Label, &f.FieldType, &f.Placeholder, &f.HelpText, &f.DefaultValue,
		&f.IsRequired, &f.IsReadonly, &f.IsHidden, &f.Options, &f.Validation, &f.SortOrder, &f.Width,
		&f.CreatedAt, &f.UpdatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan form_field row: %w", err)
	}
	f.Deletion = types.DeletionFromNull(deletedAt)
	return &f, nil
}

func (r *formRepository) CreateTemplate(ctx context.Context, tx pgx.Tx, t *entities.FormTemplate) (uint64, error) {
	query, args, err := psql.Insert(formTemplateTable).
		Columns("process_type_id", "stage_id", "name", "description", "version", "is_active", "is_required", "created_by", "created_at", "updated_at").
		Values(t.ProcessTypeID, t.StageID, t.Name, t.Description, t.Version, t.IsActive, t.IsRequired, t.CreatedBy, t.CreatedAt, t.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build form_template insert: %w", err)
	}

	var id uint64
	if err := pick(r.storage, tx).QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create form_template: %w", mapWriteError(err, "form template", false, "processTypeId"))
	}
	return id, nil
}

func (r *formRepository) UpdateTemplate(ctx context.Context, tx pgx.Tx, t *entities.FormTemplate) error {
	query, args, err := psql.Update(formTemplateTable).
		SetMap(map[string]interface{}{
			"stage_id":    t.StageID,
			"name":        t.Name,
			"description": t.Description,
			"is_active":   t.IsActive,
			"is_required": t.IsRequired,
			"updated_at":  t.UpdatedAt,
		}).
		Where(sq.Eq{"id": t.ID}).
		Where(liveOnly("deleted_at")).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build form_template update: %w", err)
	}

	tag, err := pick(r.storage, tx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update form_template: %w", mapWriteError(err, "form template", false, "stageId"))
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *formRepository) FindTemplateByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.FormTemplate, error) {
	query, args, err := psql.Select(formTemplateFields).
		From(formTemplateTable).
		Where(sq.Eq{"id": id}).
		Where(liveOnly("deleted_at")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build form_template select: %w", err)
	}
	return r.scanTemplate(pick(r.storage, tx).QueryRow(ctx, query, args...))
}

func (r *formRepository) ListTemplates(ctx context.Context, processTypeID uint64) ([]*entities.FormTemplate, error) {
	query, args, err := psql.Select(formTemplateFields).
		From(formTemplateTable).
		Where(sq.Eq{"process_type_id": processTypeID}).
		Where(liveOnly("deleted_at")).
		OrderBy("name ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build form_template list: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list form_templates: %w", err)
	}
	defer rows.Close()

	list := make([]*entities.FormTemplate, 0)
	for rows.Next() {
		t, err := r.scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *formRepository) SoftDeleteTemplate(ctx context.Context, tx pgx.Tx, id uint64, at time.Time) error {
	return r.softDelete(ctx, tx, formTemplateTable, id, at)
}

func (r *formRepository) softDelete(ctx context.Context, tx pgx.Tx, table string, id uint64, at time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL", table)
	tag, err := pick(r.storage, tx).Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *formRepository) CreateField(ctx context.Context, tx pgx.Tx, f *entities.FormField) (uint64, error) {
	query, args, err := psql.Insert(formFieldTable).
		Columns("template_id", "name", "label", "field_type", "placeholder", "help_text", "default_value",
			"is_required", "is_readonly", "is_hidden", "options", "validation", "sort_order", "width", "created_at", "updated_at").
		Values(f.TemplateID, f.Name, f.Label, f.FieldType, f.Placeholder, f.HelpText, f.DefaultValue,
			f.IsRequired, f.IsReadonly, f.IsHidden, jsonColumn(f.Options), jsonObjectColumn(f.Validation), f.SortOrder, f.Width, f.CreatedAt, f.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build form_field insert: %w", err)
	}

	var id uint64
	if err := pick(r.storage, tx).QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create form_field: %w", mapWriteError(err, "form field", false, "templateId"))
	}
	return id, nil
}

func (r *formRepository) UpdateField(ctx context.Context, tx pgx.Tx, f *entities.FormField) error {
	query, args, err := psql.Update(formFieldTable).
		SetMap(map[string]interface{}{
			"name":          f.Name,
			"label":         f.Label,
			"field_type":    f.FieldType,
			"placeholder":   f.Placeholder,
			"help_text":     f.HelpText,
			"default_value": f.DefaultValue,
			"is_required":   f.IsRequired,
			"is_readonly":   f.IsReadonly,
			"is_hidden":     f.IsHidden,
			"options":       jsonColumn(f.Options),
			"validation":    jsonObjectColumn(f.Validation),
			"width":         f.Width,
			"updated_at":    f.UpdatedAt,
		}).
		Where(sq.Eq{"id": f.ID}).
		Where(liveOnly("deleted_at")).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build form_field update: %w", err)
	}

	tag, err := pick(r.storage, tx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update form_field: %w", mapWriteError(err, "form field", false, ""))
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *formRepository) FindFieldByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.FormField, error) {
	query, args, err := psql.Select(formFieldFields).
		From(formFieldTable).
		Where(sq.Eq{"id": id}).
		Where(liveOnly("deleted_at")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build form_field select: %w", err)
	}
	return r.scanField(pick(r.storage, tx).QueryRow(ctx, query, args...))
}

func (r *formRepository) ListFields(ctx context.Context, templateID uint64) ([]*entities.FormField, error) {
	query, args, err := psql.Select(formFieldFields).
		From(formFieldTable).
		Where(sq.Eq{"template_id": templateID}).
		Where(liveOnly("deleted_at")).
		OrderBy("sort_order ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build form_field list: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list form_fields: %w", err)
	}
	defer rows.Close()

	list := make([]*entities.FormField, 0)
	for rows.Next() {
		f, err := r.scanField(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, f)
	}
	return list, rows.Err()
}

func (r *formRepository) CountFields(ctx context.Context, tx pgx.Tx, templateID uint64) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE template_id = $1 AND deleted_at IS NULL", formFieldTable)
	var count int
	if err := pick(r.storage, tx).QueryRow(ctx, query, templateID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count form_fields: %w", err)
	}
	return count, nil
}

func (r *formRepository) SoftDeleteField(ctx context.Context, tx pgx.Tx, id uint64, at time.Time) error {
	return r.softDelete(ctx, tx, formFieldTable, id, at)
}
