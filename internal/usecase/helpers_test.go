package usecase_test

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/gosplit/internal/domain"
	"github.com/iho/gosplit/internal/infrastructure/metrics"
	"github.com/iho/gosplit/internal/usecase/mocks"
)

var (
	alice = &domain.User{ID: "u1", Name: "Alice", Email: "alice@example.com"}
	bob   = &domain.User{ID: "u2", Name: "Bob", Email: "bob@example.com"}
	carol = &domain.User{ID: "u3", Name: "Carol", Email: "carol@example.com"}
	dave  = &domain.User{ID: "u4", Name: "Dave", Email: "dave@example.com"}
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testMetrics() *metrics.Metrics { return metrics.New(prometheus.NewRegistry()) }

// sequentialIDs makes the id generator return id-1, id-2, ...
func sequentialIDs(ctrl *gomock.Controller) *mocks.MockIDGenerator {
	idGen := mocks.NewMockIDGenerator(ctrl)
	n := 0
	idGen.EXPECT().Generate().DoAndReturn(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}).AnyTimes()
	return idGen
}

func usersByID(users ...*domain.User) map[string]*domain.User {
	out := make(map[string]*domain.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out
}

type txMocks struct {
	manager *mocks.MockTransactionManager
	tx      *mocks.MockTransaction
}

func newTxMocks(t *testing.T, ctrl *gomock.Controller) txMocks {
	t.Helper()
	return txMocks{
		manager: mocks.NewMockTransactionManager(ctrl),
		tx:      mocks.NewMockTransaction(ctrl),
	}
}

// expectCommit wires one transaction that commits; the deferred rollback
// is tolerated.
func (m txMocks) expectCommit() {
	m.manager.EXPECT().Begin(gomock.Any()).Return(m.tx, nil)
	m.tx.EXPECT().Commit(gomock.Any()).Return(nil)
	m.tx.EXPECT().Rollback(gomock.Any()).Return(nil).AnyTimes()
}

// expectRollback wires one transaction that must not commit.
func (m txMocks) expectRollback() {
	m.manager.EXPECT().Begin(gomock.Any()).Return(m.tx, nil)
	m.tx.EXPECT().Rollback(gomock.Any()).Return(nil).Times(1)
}
