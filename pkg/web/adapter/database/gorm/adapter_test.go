package gorm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/storefront/pkg/web/core/tx"
	"github.com/tigerroll/storefront/pkg/web/test"
)

type widget struct {
	ID      uint   `gorm:"primaryKey"`
	Name    string `gorm:"uniqueIndex"`
	Qty     int
	Active  bool
	Version int
}

func (widget) TableName() string { return "widgets" }

func newWidgetFixture(t *testing.T) *test.SQLiteFixture {
	t.Helper()
	f := test.NewSQLiteFixture(t, "widgets")
	require.NoError(t, f.Conn.AutoMigrate(context.Background(), &widget{}))
	return f
}

func seedWidgets(t *testing.T, f *test.SQLiteFixture, names ...string) []*widget {
	t.Helper()
	out := make([]*widget, 0, len(names))
	for i, name := range names {
		w := &widget{Name: name, Qty: (i + 1) * 10, Active: true, Version: 1}
		n, err := f.Conn.ExecuteUpdate(context.Background(), w, "CREATE", "", nil)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
		out = append(out, w)
	}
	return out
}

func TestGormDBAdapter_CreateAndQuery(t *testing.T) {
	f := newWidgetFixture(t)
	seeded := seedWidgets(t, f, "bolt", "nut")
	assert.NotZero(t, seeded[0].ID)

	var got []widget
	require.NoError(t, f.Conn.ExecuteQuery(context.Background(), &got, map[string]interface{}{"name": "nut"}))
	require.Len(t, got, 1)
	assert.Equal(t, 20, got[0].Qty)

	got = nil
	require.NoError(t, f.Conn.ExecuteQuery(context.Background(), &got, map[string]interface{}{"name": "washer"}))
	assert.Empty(t, got)
}

func TestGormDBAdapter_UpdateWritesZeroValues(t *testing.T) {
	f := newWidgetFixture(t)
	w := seedWidgets(t, f, "bolt")[0]

	w.Qty = 0
	w.Active = false
	n, err := f.Conn.ExecuteUpdate(context.Background(), w, "UPDATE", "", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var got []widget
	require.NoError(t, f.Conn.ExecuteQuery(context.Background(), &got, map[string]interface{}{"id": w.ID}))
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Qty)
	assert.False(t, got[0].Active)
}

func TestGormDBAdapter_UpdateWithStaleVersionAffectsNothing(t *testing.T) {
	f := newWidgetFixture(t)
	w := seedWidgets(t, f, "bolt")[0]

	w.Qty = 99
	w.Version = 2
	n, err := f.Conn.ExecuteUpdate(context.Background(), w, "UPDATE", "", map[string]interface{}{"version": 7})
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	n, err = f.Conn.ExecuteUpdate(context.Background(), w, "UPDATE", "", map[string]interface{}{"version": 1})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestGormDBAdapter_Delete(t *testing.T) {
	f := newWidgetFixture(t)
	seeded := seedWidgets(t, f, "bolt", "nut")

	n, err := f.Conn.ExecuteUpdate(context.Background(), &widget{}, "DELETE", "", map[string]interface{}{"id": seeded[0].ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	count, err := f.Conn.Count(context.Background(), &widget{}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestGormDBAdapter_UnsupportedOperation(t *testing.T) {
	f := newWidgetFixture(t)
	_, err := f.Conn.ExecuteUpdate(context.Background(), &widget{}, "MERGE", "", nil)
	assert.ErrorContains(t, err, "unsupported update operation")
}

func TestGormDBAdapter_QueryAdvancedOrdersAndPages(t *testing.T) {
	f := newWidgetFixture(t)
	seedWidgets(t, f, "a", "b", "c", "d")

	var got []widget
	require.NoError(t, f.Conn.ExecuteQueryAdvanced(context.Background(), &got, nil, "qty desc", 2, 1))
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].Name)
	assert.Equal(t, "b", got[1].Name)
}

func TestGormDBAdapter_CountAndPluck(t *testing.T) {
	f := newWidgetFixture(t)
	seedWidgets(t, f, "a", "b", "c")

	count, err := f.Conn.Count(context.Background(), &widget{}, map[string]interface{}{"active": true})
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	var names []string
	require.NoError(t, f.Conn.Pluck(context.Background(), &widget{}, "name", &names, nil))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, names)
}

func TestGormDBAdapter_Upsert(t *testing.T) {
	f := newWidgetFixture(t)
	seedWidgets(t, f, "bolt")

	n, err := f.Conn.ExecuteUpsert(context.Background(), &widget{Name: "bolt", Qty: 500, Version: 1}, "", []string{"name"}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	_, err = f.Conn.ExecuteUpsert(context.Background(), &widget{Name: "bolt", Qty: 500, Version: 1}, "", []string{"name"}, []string{"qty"})
	require.NoError(t, err)

	var got []widget
	require.NoError(t, f.Conn.ExecuteQuery(context.Background(), &got, map[string]interface{}{"name": "bolt"}))
	require.Len(t, got, 1)
	assert.Equal(t, 500, got[0].Qty)
}

func TestGormDBAdapter_IsTableNotExistError(t *testing.T) {
	f := test.NewSQLiteFixture(t, "empty")

	var got []widget
	err := f.Conn.ExecuteQuery(context.Background(), &got, nil)
	require.Error(t, err)
	assert.True(t, f.Conn.IsTableNotExistError(err))
	assert.False(t, f.Conn.IsTableNotExistError(errors.New("boom")))
	assert.False(t, f.Conn.IsTableNotExistError(nil))
}

func TestGormDBAdapter_Metadata(t *testing.T) {
	f := test.NewSQLiteFixture(t, "meta")
	assert.Equal(t, "sqlite", f.Conn.Type())
	assert.Equal(t, "meta", f.Conn.Name())
	assert.Equal(t, "sqlite", f.Conn.Config().Type)
	assert.NoError(t, f.Conn.RefreshConnection(context.Background()))

	sqlDB, err := f.Conn.GetSQLDB()
	require.NoError(t, err)
	assert.NotNil(t, sqlDB)
}

func TestGormTransactionManager_CommitAndRollback(t *testing.T) {
	f := newWidgetFixture(t)
	ctx := context.Background()

	err := tx.Run(ctx, f.TxManager, func(ctx context.Context) error {
		current, _ := tx.TxFromContext(ctx)
		_, err := current.ExecuteUpdate(ctx, &widget{Name: "committed", Version: 1}, "CREATE", "", nil)
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = tx.Run(ctx, f.TxManager, func(ctx context.Context) error {
		current, _ := tx.TxFromContext(ctx)
		if _, err := current.ExecuteUpdate(ctx, &widget{Name: "rolled-back", Version: 1}, "CREATE", "", nil); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var names []string
	require.NoError(t, f.Conn.Pluck(ctx, &widget{}, "name", &names, nil))
	assert.Equal(t, []string{"committed"}, names)
}

func TestGormTransactionManager_Savepoint(t *testing.T) {
	f := newWidgetFixture(t)
	ctx := context.Background()

	current, err := f.TxManager.Begin(ctx)
	require.NoError(t, err)

	_, err = current.ExecuteUpdate(ctx, &widget{Name: "kept", Version: 1}, "CREATE", "", nil)
	require.NoError(t, err)
	require.NoError(t, current.Savepoint("sp1"))
	_, err = current.ExecuteUpdate(ctx, &widget{Name: "discarded", Version: 1}, "CREATE", "", nil)
	require.NoError(t, err)
	require.NoError(t, current.RollbackToSavepoint("sp1"))
	require.NoError(t, f.TxManager.Commit(current))

	var names []string
	require.NoError(t, f.Conn.Pluck(ctx, &widget{}, "name", &names, nil))
	assert.Equal(t, []string{"kept"}, names)
}

func TestGormTransactionManager_RejectsForeignTx(t *testing.T) {
	f := test.NewSQLiteFixture(t, "foreign")
	assert.Error(t, f.TxManager.Commit(&test.MockTx{}))
	assert.Error(t, f.TxManager.Rollback(&test.MockTx{}))
}

func TestGormTxAdapter_QuerySeesOwnWrites(t *testing.T) {
	f := newWidgetFixture(t)
	ctx := context.Background()

	err := tx.Run(ctx, f.TxManager, func(ctx context.Context) error {
		current, _ := tx.TxFromContext(ctx)
		if _, err := current.ExecuteUpdate(ctx, &widget{Name: "pending", Qty: 3, Version: 1}, "CREATE", "", nil); err != nil {
			return err
		}
		var got []widget
		if err := current.ExecuteQuery(ctx, &got, map[string]interface{}{"name": "pending"}); err != nil {
			return err
		}
		require.Len(t, got, 1)
		assert.Equal(t, 3, got[0].Qty)
		return errors.New("discard")
	})
	require.Error(t, err)

	var got []widget
	require.NoError(t, f.Conn.ExecuteQuery(ctx, &got, map[string]interface{}{"name": "pending"}))
	assert.Empty(t, got)
}
