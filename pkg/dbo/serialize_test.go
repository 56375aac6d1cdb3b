package dbo

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/dbo/pkg/types"
	"github.com/mesh-intelligence/dbo/pkg/types/mocks"
)

// tracked records the hook flags seen while its hooks run.
type tracked struct {
	Record `dbo:"table=tracked,key=tracked_id"`
	Name   string

	sawSerializing   bool
	sawDeserializing bool
}

func (e *tracked) ToData(meta *Meta) (types.Data, error) {
	e.sawSerializing = e.Serializing()
	data, err := meta.ToData(e)
	if err != nil {
		return nil, err
	}
	data["shout"] = e.Name + "!"
	return data, nil
}

func (e *tracked) FromData(meta *Meta, data types.Data) error {
	e.sawDeserializing = e.Deserializing()
	return meta.FromData(e, data)
}

func TestSerializeDefault(t *testing.T) {
	h := newHarness(t)
	when := time.Unix(1700000000, 0)

	d := &dummy{Mess: "m", ADate: when, ATime: time.Minute, Ignored: "x"}
	data, err := h.store.Serialize(d)
	require.NoError(t, err)

	assert.Equal(t, types.Data{
		"mess":        "m",
		"a_date":      when,
		"a_date_time": time.Time{},
		"a_time":      time.Minute,
	}, data)
	_, hasKey := data["dbodummy_id"]
	assert.False(t, hasKey, "manual columns are not serialized")
}

func TestSerializeHook(t *testing.T) {
	h := newHarness(t)

	e := &tracked{Name: "hi"}
	data, err := h.store.Serialize(e)
	require.NoError(t, err)

	assert.Equal(t, types.Data{"name": "hi", "shout": "hi!"}, data)
	assert.True(t, e.sawSerializing)
	assert.False(t, e.Serializing())
}

func TestDeserializeNoPersist(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	d := &dummy{Mess: "old", ATime: time.Hour}
	err := h.store.Deserialize(ctx, d, map[string]any{
		"mess":        "new",
		"a_date":      int64(86400),
		"dbodummy_id": int64(77),
		"unknown":     "ignored",
	}, false)
	require.NoError(t, err)

	assert.Equal(t, "new", d.Mess)
	assert.Equal(t, int64(86400), d.ADate.Unix())
	assert.Equal(t, time.Duration(0), d.ATime, "absent columns are cleared")
	assert.False(t, d.HasID(), "the key is never deserialized")
}

func TestDeserializeHookFlags(t *testing.T) {
	h := newHarness(t)

	e := &tracked{}
	require.NoError(t, h.store.Deserialize(context.Background(), e, map[string]string{"name": "x"}, false))
	assert.Equal(t, "x", e.Name)
	assert.True(t, e.sawDeserializing)
	assert.False(t, e.Deserializing())
}

func TestDeserializeInvalidData(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, data := range []any{nil, "name=x", []string{"x"}, map[int]string{1: "x"}} {
		err := h.store.Deserialize(ctx, &widget{}, data, false)
		assert.ErrorIs(t, err, types.ErrInvalidArgument, "%v", data)
	}
}

func TestDeserializeAutoPersistCreates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	stmt := mocks.NewMockStatement(h.ctrl)

	gomock.InOrder(
		h.db.EXPECT().Transaction(ctx).Return(nil),
		h.db.EXPECT().Lock(ctx, "widget", types.LockWrite).Return(nil),
		h.db.EXPECT().Prepare(ctx, widgetInsert).Return(stmt, nil),
		stmt.EXPECT().Execute(ctx, types.Named{":name": "Baz"}).Return(empty(h.ctrl), nil),
		h.db.EXPECT().LastInsertID(ctx).Return(int64(12), nil),
		h.db.EXPECT().Commit(ctx).Return(nil),
		h.db.EXPECT().Unlock(ctx).Return(nil),
	)

	w := &widget{}
	require.NoError(t, h.store.Deserialize(ctx, w, types.Data{"name": "Baz"}, true))
	assert.Equal(t, int64(12), w.ID())
}

func TestDeserializeAutoPersistUpdates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	stmt := mocks.NewMockStatement(h.ctrl)

	w := &widget{Name: "Bar"}
	h.persist(t, w, 3)

	h.db.EXPECT().Prepare(ctx, widgetUpdate).Return(stmt, nil)
	stmt.EXPECT().Execute(ctx, types.Named{":name": "Qux", ":widget_id": int64(3)}).Return(empty(h.ctrl), nil)

	require.NoError(t, h.store.Deserialize(ctx, w, types.Data{"name": "Qux"}, true))
	assert.Equal(t, "Qux", w.Name)
}

func TestFieldValuesTypedColumns(t *testing.T) {
	h := newHarness(t)
	when := time.Unix(1700000000, 0)

	meta, err := h.store.Meta(&dummy{})
	require.NoError(t, err)

	values, err := meta.fieldValues(&dummy{Mess: "m", ADate: when, ATime: 2 * time.Minute})
	require.NoError(t, err)
	assert.Equal(t, types.Named{
		":mess":        "m",
		":a_date":      int64(1700000000),
		":a_date_time": nil,
		":a_time":      int64(120),
	}, values)
	_, hasKey := values[":dbodummy_id"]
	assert.False(t, hasKey)

	_, err = meta.fieldValues(&widget{})
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestMemo(t *testing.T) {
	var r Record
	assert.False(t, r.HasMemo("total"))
	assert.Nil(t, r.Memo("total"))

	assert.Equal(t, 9, r.SetMemo("total", 9))
	assert.True(t, r.HasMemo("total"))
	assert.Equal(t, 9, r.Memo("total"))

	r.ClearMemo()
	assert.False(t, r.HasMemo("total"))
}
