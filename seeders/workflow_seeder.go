package seeders

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"

	"github.com/aarondl/null/v8"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/geniusappsio/tramita/internal/dto"
	"github.com/geniusappsio/tramita/internal/services"
	"github.com/geniusappsio/tramita/pkg/types"
	"github.com/geniusappsio/tramita/pkg/utils"
	"github.com/geniusappsio/tramita/pkg/validation"
)

//go:embed default_workflows.yaml
var defaultWorkflows []byte

const seedActor = "seeder"

// WorkflowFile is the YAML document accepted by `tramita seed`.
type WorkflowFile struct {
	GroupID      string            `yaml:"groupId" validate:"required,max=64"`
	ProcessTypes []ProcessTypeSeed `yaml:"processTypes" validate:"required,min=1,dive"`
}

type ProcessTypeSeed struct {
	Name        string      `yaml:"name" validate:"required,max=255"`
	Prefix      string      `yaml:"prefix" validate:"required,protocol_prefix"`
	Description string      `yaml:"description"`
	Color       string      `yaml:"color" validate:"omitempty,hexcolor"`
	Icon        string      `yaml:"icon" validate:"omitempty,max=64"`
	External    bool        `yaml:"external"`
	Stages      []StageSeed `yaml:"stages" validate:"required,min=1,dive"`
	Forms       []FormSeed  `yaml:"forms" validate:"dive"`
}

type StageSeed struct {
	Name     string   `yaml:"name" validate:"required,max=255"`
	Color    string   `yaml:"color" validate:"omitempty,hexcolor"`
	Initial  bool     `yaml:"initial"`
	Final    bool     `yaml:"final"`
	SLAHours int      `yaml:"slaHours" validate:"omitempty,min=1"`
	Next     []string `yaml:"next"`
}

type FormSeed struct {
	Name     string      `yaml:"name" validate:"required,max=255"`
	Stage    string      `yaml:"stage"`
	Required bool        `yaml:"required"`
	Fields   []FieldSeed `yaml:"fields" validate:"dive"`
}

type FieldSeed struct {
	Name        string        `yaml:"name" validate:"required,max=100"`
	Label       string        `yaml:"label" validate:"required,max=255"`
	Type        string        `yaml:"type" validate:"required,field_type"`
	Placeholder string        `yaml:"placeholder"`
	Required    bool          `yaml:"required"`
	Options     []interface{} `yaml:"options"`
	Width       string        `yaml:"width" validate:"omitempty,oneof=full half third"`
}

// SeedResult counts what a run created and skipped.
type SeedResult struct {
	Created []string
	Skipped []string
}

// LoadWorkflowFile decodes and validates a workflow document. Unknown keys are rejected.
func LoadWorkflowFile(r io.Reader) (*WorkflowFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file WorkflowFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode workflow file: %w", err)
	}
	if err := validation.New().Validate(&file); err != nil {
		return nil, fmt.Errorf("invalid workflow file: %w", err)
	}
	if err := file.checkStageNames(); err != nil {
		return nil, err
	}
	return &file, nil
}

// DefaultWorkflows returns the workflows embedded in the binary.
func DefaultWorkflows() (*WorkflowFile, error) {
	return LoadWorkflowFile(bytes.NewReader(defaultWorkflows))
}

// checkStageNames makes sure every `next` and form `stage` reference a stage of the same process type.
func (f *WorkflowFile) checkStageNames() error {
	for _, pt := range f.ProcessTypes {
		names := make(map[string]bool, len(pt.Stages))
		for _, st := range pt.Stages {
			if names[st.Name] {
				return fmt.Errorf("process type %q: duplicate stage %q", pt.Name, st.Name)
			}
			names[st.Name] = true
		}
		for _, st := range pt.Stages {
			for _, next := range st.Next {
				if !names[next] {
					return fmt.Errorf("process type %q: stage %q lists unknown next stage %q", pt.Name, st.Name, next)
				}
			}
		}
		for _, form := range pt.Forms {
			if form.Stage != "" && !names[form.Stage] {
				return fmt.Errorf("process type %q: form %q references unknown stage %q", pt.Name, form.Name, form.Stage)
			}
		}
	}
	return nil
}

type WorkflowSeeder struct {
	processTypes services.ProcessTypeServiceInterface
	stages       services.StageServiceInterface
	forms        services.FormServiceInterface
	logger       *zap.Logger
}

func NewWorkflowSeeder(
	processTypes services.ProcessTypeServiceInterface,
	stages services.StageServiceInterface,
	forms services.FormServiceInterface,
	logger *zap.Logger,
) *WorkflowSeeder {
	return &WorkflowSeeder{processTypes: processTypes, stages: stages, forms: forms, logger: logger}
}

// Seed creates every process type of file that does not exist yet in its group.
// Process types are matched by slug, so running the same file twice is a no-op.
func (s *WorkflowSeeder) Seed(ctx context.Context, file *WorkflowFile) (*SeedResult, error) {
	existing, err := s.processTypes.List(ctx, file.GroupID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list process types: %w", err)
	}
	slugs := make(map[string]bool, len(existing))
	for _, pt := range existing {
		slugs[pt.Slug] = true
	}

	result := &SeedResult{}
	for _, seed := range file.ProcessTypes {
		slug := utils.Slugify(seed.Name)
		if slugs[slug] {
			s.logger.Info("process type already present, skipping", zap.String("slug", slug))
			result.Skipped = append(result.Skipped, slug)
			continue
		}
		if err := s.seedProcessType(ctx, file.GroupID, seed); err != nil {
			return result, fmt.Errorf("process type %q: %w", seed.Name, err)
		}
		slugs[slug] = true
		result.Created = append(result.Created, slug)
	}
	return result, nil
}

func (s *WorkflowSeeder) seedProcessType(ctx context.Context, groupID string, seed ProcessTypeSeed) error {
	pt, err := s.processTypes.Create(ctx, dto.CreateProcessTypeDTO{
		Name:        seed.Name,
		Prefix:      seed.Prefix,
		GroupID:     groupID,
		Description: optionalString(seed.Description),
		Color:       optionalString(seed.Color),
		Icon:        optionalString(seed.Icon),
		IsExternal:  seed.External,
		CreatedBy:   seedActor,
	})
	if err != nil {
		return err
	}

	stageIDs := make(map[string]uint64, len(seed.Stages))
	for _, st := range seed.Stages {
		in := dto.CreateStageDTO{
			ProcessTypeID: pt.ID,
			Name:          st.Name,
			Color:         optionalString(st.Color),
			IsInitial:     st.Initial,
			IsFinal:       st.Final,
		}
		if st.SLAHours > 0 {
			in.SLAHours = null.IntFrom(st.SLAHours)
		}
		created, err := s.stages.CreateStage(ctx, in)
		if err != nil {
			return fmt.Errorf("stage %q: %w", st.Name, err)
		}
		stageIDs[st.Name] = created.ID
	}

	// allowedNext needs every stage id, so it is written in a second pass
	for _, st := range seed.Stages {
		if len(st.Next) == 0 {
			continue
		}
		next := make([]uint64, 0, len(st.Next))
		for _, name := range st.Next {
			next = append(next, stageIDs[name])
		}
		if _, err := s.stages.UpdateStage(ctx, stageIDs[st.Name], dto.UpdateStageDTO{
			AllowedNext: types.NewField(next),
		}); err != nil {
			return fmt.Errorf("stage %q transitions: %w", st.Name, err)
		}
	}

	for _, form := range seed.Forms {
		if err := s.seedForm(ctx, pt.ID, stageIDs, form); err != nil {
			return fmt.Errorf("form %q: %w", form.Name, err)
		}
	}

	s.logger.Info("process type seeded",
		zap.Uint64("process_type_id", pt.ID),
		zap.String("prefix", pt.Prefix),
		zap.Int("stages", len(seed.Stages)),
		zap.Int("forms", len(seed.Forms)),
	)
	return nil
}

func (s *WorkflowSeeder) seedForm(ctx context.Context, processTypeID uint64, stageIDs map[string]uint64, form FormSeed) error {
	in := dto.CreateFormTemplateDTO{
		ProcessTypeID: processTypeID,
		Name:          form.Name,
		IsRequired:    form.Required,
		CreatedBy:     seedActor,
	}
	if form.Stage != "" {
		in.StageID = null.Uint64From(stageIDs[form.Stage])
	}
	template, err := s.forms.CreateTemplate(ctx, in)
	if err != nil {
		return err
	}

	for _, f := range form.Fields {
		if _, err := s.forms.CreateField(ctx, template.ID, dto.CreateFormFieldDTO{
			Name:        f.Name,
			Label:       f.Label,
			FieldType:   f.Type,
			Placeholder: optionalString(f.Placeholder),
			IsRequired:  f.Required,
			Options:     f.Options,
			Width:       f.Width,
		}); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	return nil
}

func optionalString(s string) null.String {
	return null.NewString(s, s != "")
}
