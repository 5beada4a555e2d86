package repositories

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geniusappsio/tramita/internal/entities"
	"github.com/geniusappsio/tramita/pkg/database/migrations"
	apperrors "github.com/geniusappsio/tramita/pkg/errors"
	"github.com/geniusappsio/tramita/pkg/types"
)

var testPool *pgxpool.Pool

// TestMain applies the migrations to TEST_DATABASE_URL. Without it the
// integration tests are skipped.
func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	if _, err := migrations.Up(ctx, dsn); err != nil {
		log.Fatalf("failed to migrate test database: %v", err)
	}

	var err error
	testPool, err = pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("failed to connect to test database: %v", err)
	}

	code := m.Run()
	testPool.Close()
	os.Exit(code)
}

func requirePool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testPool == nil {
		t.Skip("TEST_DATABASE_URL is not set")
	}
	cleanupTables(t, testPool)
	return testPool
}

func cleanupTables(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `TRUNCATE TABLE activity_log, assignments, form_fields, form_templates, stage_transitions,
		requests, protocols, protocol_sequences, protocol_prefixes, stages, process_types RESTART IDENTITY CASCADE`)
	require.NoError(t, err, "failed to truncate tables")
}

func seedProcessType(t *testing.T, pool *pgxpool.Pool, prefix, groupID string) uint64 {
	t.Helper()
	now := time.Now().UTC()
	id, err := NewProcessTypeRepository(pool).Create(context.Background(), nil, &entities.ProcessType{
		Name:       "Memo " + prefix,
		Slug:       "memo-" + prefix,
		Prefix:     prefix,
		GroupID:    groupID,
		IsActive:   true,
		CreatedBy:  "tester",
		BaseEntity: types.BaseEntity{CreatedAt: now, UpdatedAt: now},
	})
	require.NoError(t, err)
	return id
}

func seedStage(t *testing.T, pool *pgxpool.Pool, processTypeID uint64, name string, sortOrder int, initial, final bool) uint64 {
	t.Helper()
	now := time.Now().UTC()
	id, err := NewStageRepository(pool).Create(context.Background(), nil, &entities.Stage{
		ProcessTypeID: processTypeID,
		Name:          name,
		Slug:          name,
		SortOrder:     sortOrder,
		IsInitial:     initial,
		IsFinal:       final,
		IsActive:      true,
		BaseEntity:    types.BaseEntity{CreatedAt: now, UpdatedAt: now},
	})
	require.NoError(t, err)
	return id
}

func seedRequest(t *testing.T, pool *pgxpool.Pool, processTypeID, stageID uint64, title string, sortOrder int) uint64 {
	t.Helper()
	now := time.Now().UTC()
	id, err := NewRequestRepository(pool).Create(context.Background(), nil, &entities.Request{
		ProcessTypeID:  processTypeID,
		CurrentStageID: stageID,
		Title:          title,
		Priority:       entities.PriorityNormal,
		Status:         entities.StatusOpen,
		RequesterID:    "user-1",
		GroupID:        "grpA",
		SortOrder:      sortOrder,
		BaseEntity:     types.BaseEntity{CreatedAt: now, UpdatedAt: now},
	})
	require.NoError(t, err)
	return id
}

func TestSequenceRepository_Integration_DenseUnderConcurrency(t *testing.T) {
	pool := requirePool(t)
	ctx := context.Background()
	ptID := seedProcessType(t, pool, "MEM", "grpA")

	txManager := NewTxManager(pool)
	sequences := NewSequenceRepository(pool)
	protocols := NewProtocolRepository(pool)

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	got := make([]int64, 0, workers)
	errs := make([]error, 0)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
				next, err := sequences.Next(ctx, tx, 2026, "MEM", "grpA")
				if err != nil {
					return err
				}
				_, err = protocols.Create(ctx, tx, &entities.Protocol{
					Year:          2026,
					Sequence:      next,
					Prefix:        "MEM",
					FullNumber:    fmt.Sprintf("MEM-2026/%06d", next),
					ProcessTypeID: ptID,
					GroupID:       "grpA",
					CreatedAt:     time.Now().UTC(),
				})
				if err != nil {
					return err
				}
				mu.Lock()
				got = append(got, next)
				mu.Unlock()
				return nil
			})
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i, seq := range got {
		assert.Equal(t, int64(i+1), seq)
	}
}

func TestSequenceRepository_Integration_DomainsAreIndependent(t *testing.T) {
	pool := requirePool(t)
	ctx := context.Background()
	txManager := NewTxManager(pool)
	sequences := NewSequenceRepository(pool)

	next := func(year int, prefix, group string) int64 {
		var n int64
		err := txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
			var err error
			n, err = sequences.Next(ctx, tx, year, prefix, group)
			return err
		})
		require.NoError(t, err)
		return n
	}

	assert.Equal(t, int64(1), next(2026, "MEM", "grpA"))
	assert.Equal(t, int64(2), next(2026, "MEM", "grpA"))
	assert.Equal(t, int64(1), next(2026, "OFI", "grpA"))
	assert.Equal(t, int64(1), next(2026, "MEM", "grpB"))
	assert.Equal(t, int64(1), next(2027, "MEM", "grpA"))
}

func TestSequenceRepository_Integration_RequiresTransaction(t *testing.T) {
	pool := requirePool(t)
	_, err := NewSequenceRepository(pool).Next(context.Background(), nil, 2026, "MEM", "grpA")
	require.Error(t, err)
}

func TestSequenceRepository_Integration_ClaimPrefix(t *testing.T) {
	pool := requirePool(t)
	ctx := context.Background()
	sequences := NewSequenceRepository(pool)
	txManager := NewTxManager(pool)

	claim := func(prefix, group string) string {
		var owner string
		err := txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
			var err error
			owner, err = sequences.ClaimPrefix(ctx, tx, prefix, group)
			return err
		})
		require.NoError(t, err)
		return owner
	}

	assert.Equal(t, "grpA", claim("MEM", "grpA"))
	assert.Equal(t, "grpA", claim("MEM", "grpA"))
	assert.Equal(t, "grpA", claim("MEM", "grpB"))
	assert.Equal(t, "grpB", claim("OFI", "grpB"))

	_, err := sequences.ClaimPrefix(ctx, nil, "RH", "grpA")
	require.Error(t, err)
}

func TestAssignmentRepository_Integration_Reactivate(t *testing.T) {
	pool := requirePool(t)
	ctx := context.Background()
	ptID := seedProcessType(t, pool, "MEM", "grpA")
	stageID := seedStage(t, pool, ptID, "inbox", 0, true, false)
	reqID := seedRequest(t, pool, ptID, stageID, "Paper", 0)
	repo := NewAssignmentRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	first, err := repo.Activate(ctx, nil, &entities.Assignment{RequestID: reqID, UserID: "tech-7", Role: "assigned", AssignedBy: "mgr", AssignedAt: now})
	require.NoError(t, err)
	assert.True(t, first.IsActive)

	require.NoError(t, repo.Deactivate(ctx, nil, first.ID, now.Add(time.Minute)))
	assert.ErrorIs(t, repo.Deactivate(ctx, nil, first.ID, now), apperrors.ErrNotFound)

	byUser, err := repo.ListByUser(ctx, "tech-7")
	require.NoError(t, err)
	assert.Empty(t, byUser)

	found, err := repo.Find(ctx, nil, reqID, "tech-7", "assigned")
	require.NoError(t, err)
	assert.False(t, found.IsActive)
	assert.True(t, found.UnassignedAt.Valid)

	again, err := repo.Activate(ctx, nil, &entities.Assignment{RequestID: reqID, UserID: "tech-7", Role: "assigned", AssignedBy: "mgr-2", AssignedAt: now.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.True(t, again.IsActive)
	assert.False(t, again.UnassignedAt.Valid)
	assert.Equal(t, "mgr-2", again.AssignedBy)

	byRequest, err := repo.ListByRequest(ctx, reqID)
	require.NoError(t, err)
	assert.Len(t, byRequest, 1)

	_, err = repo.Find(ctx, nil, reqID, "tech-8", "assigned")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProtocolRepository_Integration_DuplicateIsRetryableConflict(t *testing.T) {
	pool := requirePool(t)
	ctx := context.Background()
	ptID := seedProcessType(t, pool, "MEM", "grpA")
	repo := NewProtocolRepository(pool)

	p := &entities.Protocol{Year: 2026, Sequence: 1, Prefix: "MEM", FullNumber: "MEM-2026/000001", ProcessTypeID: ptID, GroupID: "grpA", CreatedAt: time.Now().UTC()}
	_, err := repo.Create(ctx, nil, p)
	require.NoError(t, err)

	_, err = repo.Create(ctx, nil, p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.True(t, apperrors.IsRetryable(err))
}

func TestProtocolRepository_Integration_LinkRequest(t *testing.T) {
	pool := requirePool(t)
	ctx := context.Background()
	ptID := seedProcessType(t, pool, "MEM", "grpA")
	stageID := seedStage(t, pool, ptID, "inbox", 0, true, false)
	reqID := seedRequest(t, pool, ptID, stageID, "Paper", 0)
	repo := NewProtocolRepository(pool)

	protocolID, err := repo.Create(ctx, nil, &entities.Protocol{Year: 2026, Sequence: 1, Prefix: "MEM", FullNumber: "MEM-2026/000001", ProcessTypeID: ptID, GroupID: "grpA", CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
	require.NoError(t, repo.LinkRequest(ctx, nil, protocolID, reqID))

	found, err := repo.FindByFullNumber(ctx, "MEM-2026/000001")
	require.NoError(t, err)
	assert.Equal(t, null.Uint64From(reqID), found.RequestID)

	_, err = repo.FindByFullNumber(ctx, "MEM-2026/999999")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStageRepository_Integration_InitialAndOrdering(t *testing.T) {
	pool := requirePool(t)
	ctx := context.Background()
	ptID := seedProcessType(t, pool, "MEM", "grpA")
	repo := NewStageRepository(pool)

	_, err := repo.FindInitial(ctx, nil, ptID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	doneID := seedStage(t, pool, ptID, "done", 1, false, true)
	inboxID := seedStage(t, pool, ptID, "inbox", 0, true, false)

	initial, err := repo.FindInitial(ctx, nil, ptID)
	require.NoError(t, err)
	assert.Equal(t, inboxID, initial.ID)

	exists, err := repo.InitialExists(ctx, nil, ptID, inboxID)
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = repo.InitialExists(ctx, nil, ptID, 0)
	require.NoError(t, err)
	assert.True(t, exists)

	list, err := repo.ListByProcessType(ctx, nil, ptID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, inboxID, list[0].ID)
	assert.Equal(t, doneID, list[1].ID)

	require.NoError(t, repo.SoftDelete(ctx, nil, doneID, time.Now().UTC()))
	count, err := repo.CountByProcessType(ctx, nil, ptID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = repo.FindByID(ctx, nil, doneID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStageRepository_Integration_AllowedNextRoundTrip(t *testing.T) {
	pool := requirePool(t)
	ctx := context.Background()
	ptID := seedProcessType(t, pool, "MEM", "grpA")
	repo := NewStageRepository(pool)
	aID := seedStage(t, pool, ptID, "a", 0, true, false)
	bID := seedStage(t, pool, ptID, "b", 1, false, false)

	a, err := repo.FindByID(ctx, nil, aID)
	require.NoError(t, err)
	assert.Empty(t, a.AllowedNext)

	a.AllowedNext = []uint64{bID}
	a.SLAHours = null.IntFrom(48)
	a.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, nil, a))

	a, err = repo.FindByID(ctx, nil, aID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{bID}, a.AllowedNext)
	assert.Equal(t, 48, a.SLAHours.Int)
}

func TestRequestRepository_Integration_SearchAndCounts(t *testing.T) {
	pool := requirePool(t)
	ctx := context.Background()
	ptID := seedProcessType(t, pool, "MEM", "grpA")
	inboxID := seedStage(t, pool, ptID, "inbox", 0, true, false)
	doneID := seedStage(t, pool, ptID, "done", 1, false, true)
	repo := NewRequestRepository(pool)

	firstID := seedRequest(t, pool, ptID, inboxID, "Buy paper", 0)
	seedRequest(t, pool, ptID, inboxID, "Fix printer", 1)
	seedRequest(t, pool, ptID, doneID, "Buy toner", 0)

	counts, err := repo.CountByStage(ctx, ptID)
	require.NoError(t, err)
	assert.Equal(t, map[uint64]int{inboxID: 2, doneID: 1}, counts)

	inStage, err := repo.CountInStage(ctx, nil, inboxID)
	require.NoError(t, err)
	assert.Equal(t, 2, inStage)

	list, total, err := repo.Search(ctx, "grpA", entities.RequestFilter{Query: "buy"}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
	assert.Len(t, list, 2)

	list, total, err = repo.Search(ctx, "grpA", entities.RequestFilter{StageID: inboxID}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
	assert.Len(t, list, 1)

	_, total, err = repo.Search(ctx, "grpB", entities.RequestFilter{}, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)

	column, err := repo.ListByStage(ctx, inboxID)
	require.NoError(t, err)
	require.Len(t, column, 2)
	assert.Equal(t, firstID, column[0].ID)
	assert.Equal(t, map[string]interface{}{}, column[0].Metadata)

	require.NoError(t, repo.SoftDelete(ctx, nil, firstID, time.Now().UTC()))
	_, err = repo.FindByID(ctx, nil, firstID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRequestRepository_Integration_UpdateMovesCard(t *testing.T) {
	pool := requirePool(t)
	ctx := context.Background()
	ptID := seedProcessType(t, pool, "MEM", "grpA")
	inboxID := seedStage(t, pool, ptID, "inbox", 0, true, false)
	doneID := seedStage(t, pool, ptID, "done", 1, false, true)
	repo := NewRequestRepository(pool)
	reqID := seedRequest(t, pool, ptID, inboxID, "Buy paper", 0)

	req, err := repo.FindByID(ctx, nil, reqID)
	require.NoError(t, err)

	now := time.Now().UTC()
	req.CurrentStageID = doneID
	req.Status = entities.StatusCompleted
	req.CompletedAt = null.TimeFrom(now)
	req.Metadata = map[string]interface{}{"cost": float64(10)}
	req.UpdatedAt = now
	require.NoError(t, repo.Update(ctx, nil, req))

	req, err = repo.FindByID(ctx, nil, reqID)
	require.NoError(t, err)
	assert.Equal(t, doneID, req.CurrentStageID)
	assert.Equal(t, entities.StatusCompleted, req.Status)
	assert.True(t, req.CompletedAt.Valid)
	assert.Equal(t, float64(10), req.Metadata["cost"])
}

func TestSortOrderRepository_Integration_Apply(t *testing.T) {
	pool := requirePool(t)
	ctx := context.Background()
	ptID := seedProcessType(t, pool, "MEM", "grpA")
	aID := seedStage(t, pool, ptID, "a", 0, true, false)
	bID := seedStage(t, pool, ptID, "b", 1, false, false)
	cID := seedStage(t, pool, ptID, "c", 2, false, true)
	repo := NewSortOrderRepository(pool)

	ids, err := repo.MemberIDs(ctx, nil, StageScope, ptID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{aID, bID, cID}, ids)

	err = NewTxManager(pool).RunInTransaction(ctx, func(tx pgx.Tx) error {
		return repo.Apply(ctx, tx, StageScope, ptID, []uint64{cID, aID, bID})
	})
	require.NoError(t, err)

	ids, err = repo.MemberIDs(ctx, nil, StageScope, ptID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{cID, aID, bID}, ids)

	err = repo.Apply(ctx, nil, StageScope, ptID+1, []uint64{aID})
	require.Error(t, err)
}

func TestStageTransitionRepository_Integration_History(t *testing.T) {
	pool := requirePool(t)
	ctx := context.Background()
	ptID := seedProcessType(t, pool, "MEM", "grpA")
	inboxID := seedStage(t, pool, ptID, "inbox", 0, true, false)
	doneID := seedStage(t, pool, ptID, "done", 1, false, true)
	reqID := seedRequest(t, pool, ptID, inboxID, "Buy paper", 0)
	repo := NewStageTransitionRepository(pool)

	_, err := repo.LastForRequest(ctx, nil, reqID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	base := time.Now().UTC().Truncate(time.Second)
	_, err = repo.Append(ctx, nil, &entities.StageTransition{RequestID: reqID, ToStageID: inboxID, UserID: "u", CreatedAt: base})
	require.NoError(t, err)
	_, err = repo.Append(ctx, nil, &entities.StageTransition{
		RequestID: reqID, FromStageID: null.Uint64From(inboxID), ToStageID: doneID, UserID: "u",
		DurationSecs: null.Int64From(60), CreatedAt: base.Add(time.Minute),
	})
	require.NoError(t, err)

	last, err := repo.LastForRequest(ctx, nil, reqID)
	require.NoError(t, err)
	assert.Equal(t, doneID, last.ToStageID)

	history, err := repo.ListByRequest(ctx, reqID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[0].FromStageID.Valid)
	assert.Equal(t, int64(60), history[1].DurationSecs.Int64)
}

func TestFormRepository_Integration_FieldsUniquePerTemplate(t *testing.T) {
	pool := requirePool(t)
	ctx := context.Background()
	ptID := seedProcessType(t, pool, "MEM", "grpA")
	repo := NewFormRepository(pool)
	now := time.Now().UTC()

	tplID, err := repo.CreateTemplate(ctx, nil, &entities.FormTemplate{
		ProcessTypeID: ptID, Name: "Intake", Version: 1, IsActive: true,
		BaseEntity: types.BaseEntity{CreatedAt: now, UpdatedAt: now},
	})
	require.NoError(t, err)

	field := &entities.FormField{
		TemplateID: tplID, Name: "amount", Label: "Amount", FieldType: "currency", Width: "full",
		Options:    []interface{}{"a", "b"},
		BaseEntity: types.BaseEntity{CreatedAt: now, UpdatedAt: now},
	}
	_, err = repo.CreateField(ctx, nil, field)
	require.NoError(t, err)

	_, err = repo.CreateField(ctx, nil, field)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	fields, err := repo.ListFields(ctx, tplID)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, []interface{}{"a", "b"}, fields[0].Options)
	assert.Nil(t, fields[0].Validation)
}
