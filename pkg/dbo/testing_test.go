package dbo

import (
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/uber-go/tally/v4"

	"github.com/mesh-intelligence/dbo/pkg/types"
	"github.com/mesh-intelligence/dbo/pkg/types/mocks"
)

const testDSN = "mysql://app@localhost:3306/app"

type widget struct {
	Record `dbo:"table=widget,key=widget_id"`
	Name   string
}

type harness struct {
	ctrl  *gomock.Controller
	db    *mocks.MockDatabase
	store *Store
	scope tally.TestScope
	logs  *test.Hook
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	db := mocks.NewMockDatabase(ctrl)
	db.EXPECT().DSN().Return(testDSN).AnyTimes()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	scope := tally.NewTestScope("", nil)

	return &harness{
		ctrl:  ctrl,
		db:    db,
		store: NewStore(db, WithLogger(logger), WithMetrics(scope)),
		scope: scope,
		logs:  hook,
	}
}

func (h *harness) counter(name, result string) int64 {
	for _, c := range h.scope.Snapshot().Counters() {
		if c.Name() == name && c.Tags()["result"] == result {
			return c.Value()
		}
	}
	return 0
}

// rows returns a result yielding the given rows once each.
func rows(ctrl *gomock.Controller, rs ...types.Row) *mocks.MockResult {
	res := mocks.NewMockResult(ctrl)
	calls := make([]*gomock.Call, 0, len(rs)+1)
	for _, r := range rs {
		calls = append(calls, res.EXPECT().FetchRow().Return(r, true, nil))
	}
	calls = append(calls, res.EXPECT().FetchRow().Return(nil, false, nil).AnyTimes())
	gomock.InOrder(calls...)
	res.EXPECT().Close().Return(nil).AnyTimes()
	return res
}

// empty returns a result with no rows, as produced by writes.
func empty(ctrl *gomock.Controller) *mocks.MockResult {
	return rows(ctrl)
}

// persist puts e in the identity map as if it had been loaded with id.
func (h *harness) persist(t *testing.T, e Entity, id int64) {
	t.Helper()
	meta, err := h.store.Meta(e)
	if err != nil {
		t.Fatalf("meta: %v", err)
	}
	rec := e.record()
	rec.id = id
	rec.cacheKey = meta.CacheKey(id)
	rec.db = h.db
	if err := h.store.IdentityMap().Register(rec.cacheKey, e); err != nil {
		t.Fatalf("register: %v", err)
	}
}
