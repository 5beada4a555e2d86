package services

import (
	"context"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geniusappsio/tramita/internal/dto"
	"github.com/geniusappsio/tramita/internal/entities"
	"github.com/geniusappsio/tramita/pkg/config"
	apperrors "github.com/geniusappsio/tramita/pkg/errors"
	"github.com/geniusappsio/tramita/pkg/types"
)

func formFixture(t *testing.T, h *harness) (*entities.ProcessType, *entities.FormTemplate) {
	t.Helper()
	pt, stages := h.boardFixture(t)
	tpl, err := h.forms.CreateTemplate(context.Background(), dto.CreateFormTemplateDTO{
		ProcessTypeID: pt.ID,
		StageID:       null.Uint64From(stages[0].ID),
		Name:          "Abertura",
		CreatedBy:     "admin",
	})
	require.NoError(t, err)
	return pt, tpl
}

func TestFormService_CreateTemplate(t *testing.T) {
	h := newHarness(t, config.WorkflowConfig{})
	pt, tpl := formFixture(t, h)
	ctx := context.Background()

	assert.Equal(t, 1, tpl.Version)
	assert.True(t, tpl.IsActive)

	other := h.processType(t, "Ofícios", "OFI")
	foreign := h.stage(t, other.ID, "Recebido", true, false)
	_, err := h.forms.CreateTemplate(ctx, dto.CreateFormTemplateDTO{
		ProcessTypeID: pt.ID,
		StageID:       null.Uint64From(foreign.ID),
		Name:          "Errado",
	})
	ve, ok := apperrors.AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "stageId")

	_, err = h.forms.CreateTemplate(ctx, dto.CreateFormTemplateDTO{ProcessTypeID: 404, Name: "Sem tipo"})
	ve, ok = apperrors.AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "processTypeId")

	list, err := h.forms.ListTemplates(ctx, pt.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, h.forms.DeleteTemplate(ctx, tpl.ID))
	list, err = h.forms.ListTemplates(ctx, pt.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFormService_FieldsAppendAndReorder(t *testing.T) {
	h := newHarness(t, config.WorkflowConfig{})
	_, tpl := formFixture(t, h)
	ctx := context.Background()

	cpf, err := h.forms.CreateField(ctx, tpl.ID, dto.CreateFormFieldDTO{Name: "cpf", Label: "CPF", FieldType: "cpf"})
	require.NoError(t, err)
	sector, err := h.forms.CreateField(ctx, tpl.ID, dto.CreateFormFieldDTO{
		Name:      "setor",
		Label:     "Setor",
		FieldType: "select",
		Options:   []interface{}{"TI", "RH"},
		Width:     "half",
	})
	require.NoError(t, err)

	assert.Equal(t, 0, cpf.SortOrder)
	assert.Equal(t, "full", cpf.Width)
	assert.Equal(t, 1, sector.SortOrder)
	assert.Equal(t, "half", sector.Width)

	_, err = h.forms.CreateField(ctx, tpl.ID, dto.CreateFormFieldDTO{Name: "cpf", Label: "Outro", FieldType: "text"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	require.NoError(t, h.forms.ReorderFields(ctx, tpl.ID, []uint64{sector.ID, cpf.ID}))
	fields, err := h.forms.ListFields(ctx, tpl.ID)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, sector.ID, fields[0].ID)
	assert.Equal(t, cpf.ID, fields[1].ID)

	require.NoError(t, h.forms.DeleteField(ctx, cpf.ID))
	third, err := h.forms.CreateField(ctx, tpl.ID, dto.CreateFormFieldDTO{Name: "email", Label: "E-mail", FieldType: "email"})
	require.NoError(t, err)
	assert.Equal(t, 1, third.SortOrder)
}

func TestFormService_FieldValidation(t *testing.T) {
	h := newHarness(t, config.WorkflowConfig{})
	_, tpl := formFixture(t, h)
	ctx := context.Background()

	_, err := h.forms.CreateField(ctx, tpl.ID, dto.CreateFormFieldDTO{Name: " ", Label: "", FieldType: "signature"})
	ve, ok := apperrors.AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "name")
	assert.Contains(t, ve.Fields, "label")
	assert.Contains(t, ve.Fields, "fieldType")

	_, err = h.forms.CreateField(ctx, 404, dto.CreateFormFieldDTO{Name: "a", Label: "A", FieldType: "text"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFormService_UpdateField(t *testing.T) {
	h := newHarness(t, config.WorkflowConfig{})
	_, tpl := formFixture(t, h)
	ctx := context.Background()

	field, err := h.forms.CreateField(ctx, tpl.ID, dto.CreateFormFieldDTO{
		Name:        "obs",
		Label:       "Observação",
		FieldType:   "text",
		Placeholder: null.StringFrom("digite"),
		Width:       "third",
	})
	require.NoError(t, err)

	updated, err := h.forms.UpdateField(ctx, field.ID, dto.UpdateFormFieldDTO{
		FieldType:   types.NewField("textarea"),
		Placeholder: types.NewField(null.String{}),
		Width:       types.NewField(""),
		IsRequired:  types.NewField(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "textarea", updated.FieldType)
	assert.False(t, updated.Placeholder.Valid)
	assert.Equal(t, "full", updated.Width)
	assert.True(t, updated.IsRequired)
	assert.Equal(t, "Observação", updated.Label)

	_, err = h.forms.UpdateField(ctx, field.ID, dto.UpdateFormFieldDTO{FieldType: types.NewField("hologram")})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestFormService_UpdateTemplate(t *testing.T) {
	h := newHarness(t, config.WorkflowConfig{})
	pt, tpl := formFixture(t, h)
	ctx := context.Background()
	stages, err := h.stages.ListStages(ctx, pt.ID)
	require.NoError(t, err)

	h.clock.Advance(time.Hour)
	updated, err := h.forms.UpdateTemplate(ctx, tpl.ID, dto.UpdateFormTemplateDTO{
		Name:       types.NewField(" Triagem "),
		StageID:    types.NewField(null.Uint64From(stages[1].ID)),
		IsRequired: types.NewField(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "Triagem", updated.Name)
	assert.Equal(t, null.Uint64From(stages[1].ID), updated.StageID)
	assert.True(t, updated.IsRequired)
	assert.True(t, updated.IsActive)
	assert.Equal(t, testNow.Add(time.Hour), updated.UpdatedAt)

	detached, err := h.forms.UpdateTemplate(ctx, tpl.ID, dto.UpdateFormTemplateDTO{StageID: types.NewField(null.Uint64{})})
	require.NoError(t, err)
	assert.False(t, detached.StageID.Valid)
	assert.Equal(t, "Triagem", detached.Name)

	got, err := h.forms.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, detached.Name, got.Name)
	assert.False(t, got.StageID.Valid)
}

func TestFormService_UpdateTemplateRejections(t *testing.T) {
	h := newHarness(t, config.WorkflowConfig{})
	_, tpl := formFixture(t, h)
	ctx := context.Background()
	other := h.processType(t, "Ofícios", "OFI")
	foreign := h.stage(t, other.ID, "Recebido", true, false)

	_, err := h.forms.UpdateTemplate(ctx, tpl.ID, dto.UpdateFormTemplateDTO{StageID: types.NewField(null.Uint64From(foreign.ID))})
	ve, ok := apperrors.AsValidation(err)
	require.True(t, ok, "got %v", err)
	assert.Contains(t, ve.Fields, "stageId")

	_, err = h.forms.UpdateTemplate(ctx, tpl.ID, dto.UpdateFormTemplateDTO{Name: types.NewField("  ")})
	ve, ok = apperrors.AsValidation(err)
	require.True(t, ok, "got %v", err)
	assert.Contains(t, ve.Fields, "name")

	stored, err := h.forms.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Abertura", stored.Name)

	require.NoError(t, h.forms.DeleteTemplate(ctx, tpl.ID))
	_, err = h.forms.GetTemplate(ctx, tpl.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = h.forms.UpdateTemplate(ctx, tpl.ID, dto.UpdateFormTemplateDTO{IsActive: types.NewField(false)})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
