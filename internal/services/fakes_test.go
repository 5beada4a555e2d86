package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"

	"github.com/geniusappsio/tramita/internal/entities"
	"github.com/geniusappsio/tramita/internal/repositories"
	apperrors "github.com/geniusappsio/tramita/pkg/errors"
	"github.com/geniusappsio/tramita/pkg/eventbus"
	"github.com/geniusappsio/tramita/pkg/types"
)

type passThroughTx struct{}

func (passThroughTx) RunInTransaction(_ context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

// memStore is the shared state behind the in-memory repositories.
type memStore struct {
	mu           sync.Mutex
	nextID       uint64
	processTypes map[uint64]*entities.ProcessType
	stages       map[uint64]*entities.Stage
	requests     map[uint64]*entities.Request
	protocols    map[uint64]*entities.Protocol
	transitions  []*entities.StageTransition
	sequences    map[string]int64
	prefixes     map[string]string
	templates    map[uint64]*entities.FormTemplate
	fields       map[uint64]*entities.FormField
	activity     []*entities.ActivityLog
	assignments  map[uint64]*entities.Assignment
}

func newMemStore() *memStore {
	return &memStore{
		processTypes: map[uint64]*entities.ProcessType{},
		stages:       map[uint64]*entities.Stage{},
		requests:     map[uint64]*entities.Request{},
		protocols:    map[uint64]*entities.Protocol{},
		sequences:    map[string]int64{},
		prefixes:     map[string]string{},
		templates:    map[uint64]*entities.FormTemplate{},
		fields:       map[uint64]*entities.FormField{},
		assignments:  map[uint64]*entities.Assignment{},
	}
}

func (m *memStore) id() uint64 {
	m.nextID++
	return m.nextID
}

// ---- process types

type memProcessTypes struct{ s *memStore }

func (r memProcessTypes) Create(_ context.Context, _ pgx.Tx, pt *entities.ProcessType) (uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.processTypes {
		if other.Slug == pt.Slug && other.GroupID == pt.GroupID {
			return 0, apperrors.NewConflictError("process type", false, nil)
		}
	}
	cp := *pt
	cp.ID = r.s.id()
	r.s.processTypes[cp.ID] = &cp
	return cp.ID, nil
}

func (r memProcessTypes) Update(_ context.Context, _ pgx.Tx, pt *entities.ProcessType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.processTypes[pt.ID]
	if !ok || cur.Deletion.IsDeleted() {
		return apperrors.ErrNotFound
	}
	cp := *pt
	r.s.processTypes[pt.ID] = &cp
	return nil
}

func (r memProcessTypes) SoftDelete(_ context.Context, _ pgx.Tx, id uint64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pt, ok := r.s.processTypes[id]
	if !ok || pt.Deletion.IsDeleted() {
		return apperrors.ErrNotFound
	}
	pt.Deletion = types.DeletedAt(at)
	return nil
}

func (r memProcessTypes) Restore(_ context.Context, _ pgx.Tx, id uint64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pt, ok := r.s.processTypes[id]
	if !ok || !pt.Deletion.IsDeleted() {
		return apperrors.ErrNotFound
	}
	pt.Deletion = types.Active()
	pt.UpdatedAt = at
	return nil
}

func (r memProcessTypes) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ProcessType, error) {
	pt, err := r.FindAnyByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if pt.Deletion.IsDeleted() {
		return nil, apperrors.ErrNotFound
	}
	return pt, nil
}

func (r memProcessTypes) FindAnyByID(_ context.Context, _ pgx.Tx, id uint64) (*entities.ProcessType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pt, ok := r.s.processTypes[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *pt
	return &cp, nil
}

func (r memProcessTypes) LockByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ProcessType, error) {
	return r.FindByID(ctx, tx, id)
}

func (r memProcessTypes) ListByGroup(_ context.Context, groupID string, activeOnly bool) ([]*entities.ProcessType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entities.ProcessType, 0)
	for _, pt := range r.s.processTypes {
		if pt.GroupID != groupID || pt.Deletion.IsDeleted() || (activeOnly && !pt.IsActive) {
			continue
		}
		cp := *pt
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- stages

type memStages struct{ s *memStore }

func (r memStages) Create(_ context.Context, _ pgx.Tx, st *entities.Stage) (uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.processTypes[st.ProcessTypeID]; !ok {
		return 0, apperrors.NewValidationError("processTypeId", "Referenced record does not exist")
	}
	for _, other := range r.s.stages {
		if other.ProcessTypeID == st.ProcessTypeID && other.Slug == st.Slug && !other.Deletion.IsDeleted() {
			return 0, apperrors.NewConflictError("stage", false, nil)
		}
	}
	cp := *st
	cp.ID = r.s.id()
	r.s.stages[cp.ID] = &cp
	return cp.ID, nil
}

func (r memStages) Update(_ context.Context, _ pgx.Tx, st *entities.Stage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.stages[st.ID]
	if !ok || cur.Deletion.IsDeleted() {
		return apperrors.ErrNotFound
	}
	cp := *st
	cp.SortOrder = cur.SortOrder
	r.s.stages[st.ID] = &cp
	return nil
}

func (r memStages) SoftDelete(_ context.Context, _ pgx.Tx, id uint64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.stages[id]
	if !ok || st.Deletion.IsDeleted() {
		return apperrors.ErrNotFound
	}
	st.Deletion = types.DeletedAt(at)
	return nil
}

func (r memStages) FindByID(_ context.Context, _ pgx.Tx, id uint64) (*entities.Stage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.stages[id]
	if !ok || st.Deletion.IsDeleted() {
		return nil, apperrors.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (r memStages) ListByProcessType(_ context.Context, _ pgx.Tx, processTypeID uint64) ([]*entities.Stage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entities.Stage, 0)
	for _, st := range r.s.stages {
		if st.ProcessTypeID == processTypeID && !st.Deletion.IsDeleted() {
			cp := *st
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r memStages) FindInitial(ctx context.Context, tx pgx.Tx, processTypeID uint64) (*entities.Stage, error) {
	list, _ := r.ListByProcessType(ctx, tx, processTypeID)
	for _, st := range list {
		if st.IsInitial {
			return st, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r memStages) CountByProcessType(ctx context.Context, tx pgx.Tx, processTypeID uint64) (int, error) {
	list, _ := r.ListByProcessType(ctx, tx, processTypeID)
	return len(list), nil
}

func (r memStages) InitialExists(ctx context.Context, tx pgx.Tx, processTypeID, excludeID uint64) (bool, error) {
	list, _ := r.ListByProcessType(ctx, tx, processTypeID)
	for _, st := range list {
		if st.IsInitial && st.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

// ---- requests

type memRequests struct{ s *memStore }

func (r memRequests) withProtocol(req *entities.Request) *entities.Request {
	cp := *req
	if cp.ProtocolID.Valid {
		if p, ok := r.s.protocols[cp.ProtocolID.Uint64]; ok {
			cp.ProtocolNumber = null.StringFrom(p.FullNumber)
		}
	}
	return &cp
}

func (r memRequests) Create(_ context.Context, _ pgx.Tx, req *entities.Request) (uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *req
	cp.ID = r.s.id()
	r.s.requests[cp.ID] = &cp
	return cp.ID, nil
}

func (r memRequests) Update(_ context.Context, _ pgx.Tx, req *entities.Request) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.requests[req.ID]
	if !ok || cur.Deletion.IsDeleted() {
		return apperrors.ErrNotFound
	}
	cp := *req
	r.s.requests[req.ID] = &cp
	return nil
}

func (r memRequests) SoftDelete(_ context.Context, _ pgx.Tx, id uint64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok || req.Deletion.IsDeleted() {
		return apperrors.ErrNotFound
	}
	req.Deletion = types.DeletedAt(at)
	return nil
}

func (r memRequests) FindByID(_ context.Context, _ pgx.Tx, id uint64) (*entities.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok || req.Deletion.IsDeleted() {
		return nil, apperrors.ErrNotFound
	}
	return r.withProtocol(req), nil
}

func (r memRequests) FindByProtocolNumber(_ context.Context, fullNumber string) (*entities.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, req := range r.s.requests {
		found := r.withProtocol(req)
		if found.ProtocolNumber.String == fullNumber && !req.Deletion.IsDeleted() {
			return found, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r memRequests) filter(keep func(*entities.Request) bool) []*entities.Request {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entities.Request, 0)
	for _, req := range r.s.requests {
		if !req.Deletion.IsDeleted() && keep(req) {
			out = append(out, r.withProtocol(req))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r memRequests) ListByStage(_ context.Context, stageID uint64) ([]*entities.Request, error) {
	return r.filter(func(req *entities.Request) bool { return req.CurrentStageID == stageID }), nil
}

func (r memRequests) ListByProcessType(_ context.Context, processTypeID uint64) ([]*entities.Request, error) {
	return r.filter(func(req *entities.Request) bool { return req.ProcessTypeID == processTypeID }), nil
}

func (r memRequests) ListByRequester(_ context.Context, requesterID, groupID string) ([]*entities.Request, error) {
	return r.filter(func(req *entities.Request) bool {
		return req.RequesterID == requesterID && req.GroupID == groupID
	}), nil
}

func (r memRequests) CountByStage(_ context.Context, processTypeID uint64) (map[uint64]int, error) {
	counts := map[uint64]int{}
	for _, req := range r.filter(func(req *entities.Request) bool { return req.ProcessTypeID == processTypeID }) {
		counts[req.CurrentStageID]++
	}
	return counts, nil
}

func (r memRequests) CountInStage(_ context.Context, _ pgx.Tx, stageID uint64) (int, error) {
	return len(r.filter(func(req *entities.Request) bool { return req.CurrentStageID == stageID })), nil
}

func (r memRequests) Search(_ context.Context, groupID string, f entities.RequestFilter, limit, offset uint64) ([]*entities.Request, uint64, error) {
	all := r.filter(func(req *entities.Request) bool {
		return req.GroupID == groupID &&
			(f.Query == "" || strings.Contains(strings.ToLower(req.Title), strings.ToLower(f.Query))) &&
			(f.ProcessTypeID == 0 || req.ProcessTypeID == f.ProcessTypeID) &&
			(f.StageID == 0 || req.CurrentStageID == f.StageID) &&
			(f.Status == "" || req.Status == f.Status) &&
			(f.Priority == 0 || req.Priority == f.Priority) &&
			(f.RequesterID == "" || req.RequesterID == f.RequesterID)
	})
	total := uint64(len(all))
	if offset >= total {
		return []*entities.Request{}, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

// ---- protocols and sequences

type memProtocols struct{ s *memStore }

func (r memProtocols) Create(_ context.Context, _ pgx.Tx, p *entities.Protocol) (uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.protocols {
		if other.FullNumber == p.FullNumber {
			return 0, fmt.Errorf("failed to create protocol: %w", apperrors.NewConflictError("protocol", true, nil))
		}
	}
	cp := *p
	cp.ID = r.s.id()
	r.s.protocols[cp.ID] = &cp
	return cp.ID, nil
}

func (r memProtocols) LinkRequest(_ context.Context, _ pgx.Tx, protocolID, requestID uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.protocols[protocolID]
	if !ok {
		return apperrors.ErrNotFound
	}
	p.RequestID = null.Uint64From(requestID)
	return nil
}

func (r memProtocols) FindByID(_ context.Context, _ pgx.Tx, id uint64) (*entities.Protocol, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.protocols[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r memProtocols) FindByFullNumber(_ context.Context, fullNumber string) (*entities.Protocol, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.protocols {
		if p.FullNumber == fullNumber {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// memSequences is a plain counter. It does not look at existing protocols,
// which lets tests provoke a duplicate number.
type memSequences struct{ s *memStore }

func (r memSequences) Next(_ context.Context, _ pgx.Tx, year int, prefix, groupID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := fmt.Sprintf("%d|%s|%s", year, prefix, groupID)
	r.s.sequences[key]++
	return r.s.sequences[key], nil
}

func (r memSequences) ClaimPrefix(_ context.Context, _ pgx.Tx, prefix, groupID string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if owner, ok := r.s.prefixes[prefix]; ok {
		return owner, nil
	}
	r.s.prefixes[prefix] = groupID
	return groupID, nil
}

// ---- transitions

type memTransitions struct{ s *memStore }

func (r memTransitions) Append(_ context.Context, _ pgx.Tx, t *entities.StageTransition) (uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *t
	cp.ID = r.s.id()
	r.s.transitions = append(r.s.transitions, &cp)
	return cp.ID, nil
}

func (r memTransitions) LastForRequest(ctx context.Context, _ pgx.Tx, requestID uint64) (*entities.StageTransition, error) {
	list, _ := r.ListByRequest(ctx, requestID)
	if len(list) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return list[len(list)-1], nil
}

func (r memTransitions) ListByRequest(_ context.Context, requestID uint64) ([]*entities.StageTransition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entities.StageTransition, 0)
	for _, t := range r.s.transitions {
		if t.RequestID == requestID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- sort order

type memSortOrders struct{ s *memStore }

type sortable struct {
	id, parent uint64
	order      *int
	deleted    bool
}

func (r memSortOrders) rows(scope repositories.OrderScope) []sortable {
	out := make([]sortable, 0)
	switch scope.Name() {
	case repositories.StageScope.Name():
		for _, st := range r.s.stages {
			out = append(out, sortable{st.ID, st.ProcessTypeID, &st.SortOrder, st.Deletion.IsDeleted()})
		}
	case repositories.FieldScope.Name():
		for _, f := range r.s.fields {
			out = append(out, sortable{f.ID, f.TemplateID, &f.SortOrder, f.Deletion.IsDeleted()})
		}
	case repositories.CardScope.Name():
		for _, req := range r.s.requests {
			out = append(out, sortable{req.ID, req.CurrentStageID, &req.SortOrder, req.Deletion.IsDeleted()})
		}
	}
	return out
}

func (r memSortOrders) MemberIDs(_ context.Context, _ pgx.Tx, scope repositories.OrderScope, parentID uint64) ([]uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	members := make([]sortable, 0)
	for _, row := range r.rows(scope) {
		if row.parent == parentID && !row.deleted {
			members = append(members, row)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if *members[i].order != *members[j].order {
			return *members[i].order < *members[j].order
		}
		return members[i].id < members[j].id
	})
	ids := make([]uint64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.id)
	}
	return ids, nil
}

func (r memSortOrders) Apply(_ context.Context, _ pgx.Tx, scope repositories.OrderScope, parentID uint64, ids []uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byID := map[uint64]sortable{}
	for _, row := range r.rows(scope) {
		if row.parent == parentID && !row.deleted {
			byID[row.id] = row
		}
	}
	for i, id := range ids {
		row, ok := byID[id]
		if !ok {
			return fmt.Errorf("id %d outside scope", id)
		}
		*row.order = i
	}
	return nil
}

// ---- forms

type memForms struct{ s *memStore }

func (r memForms) CreateTemplate(_ context.Context, _ pgx.Tx, t *entities.FormTemplate) (uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *t
	cp.ID = r.s.id()
	r.s.templates[cp.ID] = &cp
	return cp.ID, nil
}

func (r memForms) UpdateTemplate(_ context.Context, _ pgx.Tx, t *entities.FormTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.templates[t.ID]
	if !ok || cur.Deletion.IsDeleted() {
		return apperrors.ErrNotFound
	}
	cp := *t
	r.s.templates[t.ID] = &cp
	return nil
}

func (r memForms) FindTemplateByID(_ context.Context, _ pgx.Tx, id uint64) (*entities.FormTemplate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.templates[id]
	if !ok || t.Deletion.IsDeleted() {
		return nil, apperrors.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r memForms) ListTemplates(_ context.Context, processTypeID uint64) ([]*entities.FormTemplate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entities.FormTemplate, 0)
	for _, t := range r.s.templates {
		if t.ProcessTypeID == processTypeID && !t.Deletion.IsDeleted() {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r memForms) SoftDeleteTemplate(_ context.Context, _ pgx.Tx, id uint64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.templates[id]
	if !ok || t.Deletion.IsDeleted() {
		return apperrors.ErrNotFound
	}
	t.Deletion = types.DeletedAt(at)
	return nil
}

func (r memForms) CreateField(_ context.Context, _ pgx.Tx, f *entities.FormField) (uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.fields {
		if other.TemplateID == f.TemplateID && other.Name == f.Name && !other.Deletion.IsDeleted() {
			return 0, apperrors.NewConflictError("form field", false, nil)
		}
	}
	cp := *f
	cp.ID = r.s.id()
	r.s.fields[cp.ID] = &cp
	return cp.ID, nil
}

func (r memForms) UpdateField(_ context.Context, _ pgx.Tx, f *entities.FormField) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.fields[f.ID]; !ok {
		return apperrors.ErrNotFound
	}
	cp := *f
	r.s.fields[f.ID] = &cp
	return nil
}

func (r memForms) FindFieldByID(_ context.Context, _ pgx.Tx, id uint64) (*entities.FormField, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.fields[id]
	if !ok || f.Deletion.IsDeleted() {
		return nil, apperrors.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r memForms) ListFields(_ context.Context, templateID uint64) ([]*entities.FormField, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entities.FormField, 0)
	for _, f := range r.s.fields {
		if f.TemplateID == templateID && !f.Deletion.IsDeleted() {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r memForms) CountFields(ctx context.Context, _ pgx.Tx, templateID uint64) (int, error) {
	list, _ := r.ListFields(ctx, templateID)
	return len(list), nil
}

func (r memForms) SoftDeleteField(_ context.Context, _ pgx.Tx, id uint64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.fields[id]
	if !ok || f.Deletion.IsDeleted() {
		return apperrors.ErrNotFound
	}
	f.Deletion = types.DeletedAt(at)
	return nil
}

// ---- activity log

type memActivity struct{ s *memStore }

func (r memActivity) Append(_ context.Context, e *entities.ActivityLog) (uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *e
	cp.ID = r.s.id()
	r.s.activity = append(r.s.activity, &cp)
	return cp.ID, nil
}

func (r memActivity) ListByRequest(_ context.Context, requestID uint64, limit uint64) ([]*entities.ActivityLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entities.ActivityLog, 0)
	for i := len(r.s.activity) - 1; i >= 0 && uint64(len(out)) < limit; i-- {
		if e := r.s.activity[i]; e.RequestID.Valid && e.RequestID.Uint64 == requestID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- cache and events

// ---- assignments

type memAssignments struct{ s *memStore }

func (r memAssignments) Activate(_ context.Context, _ pgx.Tx, a *entities.Assignment) (*entities.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range r.s.assignments {
		if row.RequestID == a.RequestID && row.UserID == a.UserID && row.Role == a.Role {
			row.IsActive = true
			row.AssignedBy = a.AssignedBy
			row.AssignedAt = a.AssignedAt
			row.UnassignedAt = null.Time{}
			cp := *row
			return &cp, nil
		}
	}
	cp := *a
	cp.ID = r.s.id()
	cp.IsActive = true
	r.s.assignments[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r memAssignments) Deactivate(_ context.Context, _ pgx.Tx, id uint64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.assignments[id]
	if !ok || !row.IsActive {
		return apperrors.ErrNotFound
	}
	row.IsActive = false
	row.UnassignedAt = null.TimeFrom(at)
	return nil
}

func (r memAssignments) Find(_ context.Context, _ pgx.Tx, requestID uint64, userID, role string) (*entities.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range r.s.assignments {
		if row.RequestID == requestID && row.UserID == userID && row.Role == role {
			cp := *row
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r memAssignments) list(keep func(*entities.Assignment) bool) []*entities.Assignment {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*entities.Assignment{}
	for _, row := range r.s.assignments {
		if row.IsActive && keep(row) {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memAssignments) ListByRequest(_ context.Context, requestID uint64) ([]*entities.Assignment, error) {
	return r.list(func(a *entities.Assignment) bool { return a.RequestID == requestID }), nil
}

func (r memAssignments) ListByUser(_ context.Context, userID string) ([]*entities.Assignment, error) {
	return r.list(func(a *entities.Assignment) bool { return a.UserID == userID }), nil
}

type memCache struct {
	mu     sync.Mutex
	values map[string]string
	hits   int
}

func newMemCache() *memCache { return &memCache{values: map[string]string{}} }

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		c.values[key] = string(v)
	default:
		c.values[key] = fmt.Sprint(v)
	}
	return nil
}

func (c *memCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return "", repositories.ErrCacheMiss
	}
	c.hits++
	return v, nil
}

func (c *memCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event eventbus.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Name())
	}
	return out
}
