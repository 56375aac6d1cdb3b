package dbo

import (
	"github.com/uber-go/tally/v4"
)

// Metrics are the store's lifecycle counters.
type Metrics struct {
	LoadHit      tally.Counter
	LoadMiss     tally.Counter
	LoadNotFound tally.Counter
	LoadFail     tally.Counter

	CreateSuccess tally.Counter
	CreateFail    tally.Counter
	UpdateSuccess tally.Counter
	UpdateFail    tally.Counter
	DeleteSuccess tally.Counter
	DeleteFail    tally.Counter
}

// NewMetrics registers the counters under scope. Each operation is one
// counter in the "dbo" subscope, split by a result tag.
func NewMetrics(scope tally.Scope) *Metrics {
	s := scope.SubScope("dbo")
	result := func(r string) tally.Scope {
		return s.Tagged(map[string]string{"result": r})
	}
	hit := result("hit")
	miss := result("miss")
	notFound := result("not_found")
	success := result("success")
	fail := result("fail")

	return &Metrics{
		LoadHit:      hit.Counter("load"),
		LoadMiss:     miss.Counter("load"),
		LoadNotFound: notFound.Counter("load"),
		LoadFail:     fail.Counter("load"),

		CreateSuccess: success.Counter("create"),
		CreateFail:    fail.Counter("create"),
		UpdateSuccess: success.Counter("update"),
		UpdateFail:    fail.Counter("update"),
		DeleteSuccess: success.Counter("delete"),
		DeleteFail:    fail.Counter("delete"),
	}
}
