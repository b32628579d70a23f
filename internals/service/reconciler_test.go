package service_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SimonShangpliang/cfl-iitg/internals/models"
	"github.com/SimonShangpliang/cfl-iitg/internals/service"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestRunPass_ExpiresOverdueAndRestoresQuantity(t *testing.T) {
	book := bookWithQuantity("Tolkien-The Hobbit", 1)
	book.Requests = []models.LoanRequest{
		{Name: "alice", Email: "alice@example.com", ReturnDate: testNow.Add(-24 * time.Hour)},
	}
	store := newFakeStore(book)
	notifier := newFakeNotifier()
	rec := service.NewReconciler(store, notifier, fixedClock{testNow}, quietLogger())

	rec.RunPass(context.Background())

	stored, err := store.FindBook(context.Background(), "Tolkien-The Hobbit")
	require.NoError(t, err)
	assert.Empty(t, stored.Requests)
	assert.Equal(t, 2, *stored.Quantity)
	assert.Empty(t, notifier.sent, "overdue requests are expired, not mailed")
}

func TestRunPass_PreservesSurvivorOrder(t *testing.T) {
	book := bookWithQuantity("Tolkien-The Hobbit", 4)
	book.Requests = []models.LoanRequest{
		{Name: "a", ReturnDate: testNow.Add(-24 * time.Hour)},
		{Name: "b", ReturnDate: testNow.Add(10 * 24 * time.Hour)},
		{Name: "c", ReturnDate: testNow},
		{Name: "d", ReturnDate: testNow.Add(5 * 24 * time.Hour)},
	}
	store := newFakeStore(book)
	rec := service.NewReconciler(store, newFakeNotifier(), fixedClock{testNow}, quietLogger())

	rec.RunPass(context.Background())

	stored, err := store.FindBook(context.Background(), "Tolkien-The Hobbit")
	require.NoError(t, err)
	require.Len(t, stored.Requests, 2)
	assert.Equal(t, "b", stored.Requests[0].Name)
	assert.Equal(t, "d", stored.Requests[1].Name)
	assert.Equal(t, 6, *stored.Quantity)
}

func TestRunPass_NotifiesDueSoonExactlyOnce(t *testing.T) {
	book := bookWithQuantity("Tolkien-The Hobbit", 1)
	book.Requests = []models.LoanRequest{
		{Name: "alice", Email: "alice@example.com", IsAccepted: true, ReturnDate: testNow.Add(24 * time.Hour)},
	}
	store := newFakeStore(book)
	notifier := newFakeNotifier()
	rec := service.NewReconciler(store, notifier, fixedClock{testNow}, quietLogger())
	ctx := context.Background()

	rec.RunPass(ctx)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "alice@example.com", notifier.sent[0].recipient)
	assert.Equal(t, "The Hobbit", notifier.sent[0].bookTitle)

	stored, err := store.FindBook(ctx, "Tolkien-The Hobbit")
	require.NoError(t, err)
	require.Len(t, stored.Requests, 1)
	assert.True(t, stored.Requests[0].Mailed)

	// a second pass with no day elapsed must not resend
	rec.RunPass(ctx)
	assert.Len(t, notifier.sent, 1)
}

func TestRunPass_SkipsUnacceptedRequests(t *testing.T) {
	book := bookWithQuantity("Tolkien-The Hobbit", 1)
	book.Requests = []models.LoanRequest{
		{Name: "alice", Email: "alice@example.com", ReturnDate: testNow.Add(24 * time.Hour)},
	}
	store := newFakeStore(book)
	notifier := newFakeNotifier()
	rec := service.NewReconciler(store, notifier, fixedClock{testNow}, quietLogger())

	rec.RunPass(context.Background())

	assert.Empty(t, notifier.sent)
	stored, _ := store.FindBook(context.Background(), "Tolkien-The Hobbit")
	assert.False(t, stored.Requests[0].Mailed)
}

func TestRunPass_SendFailureLeavesRequestUnmailed(t *testing.T) {
	book := bookWithQuantity("Tolkien-The Hobbit", 2)
	book.Requests = []models.LoanRequest{
		{Name: "alice", Email: "alice@example.com", IsAccepted: true, ReturnDate: testNow.Add(24 * time.Hour)},
		{Name: "bob", Email: "bob@example.com", IsAccepted: true, ReturnDate: testNow.Add(24 * time.Hour)},
	}
	store := newFakeStore(book)
	notifier := newFakeNotifier()
	notifier.failFor["alice@example.com"] = errors.New("smtp unavailable")
	rec := service.NewReconciler(store, notifier, fixedClock{testNow}, quietLogger())

	rec.RunPass(context.Background())

	// bob's mail still went out despite alice's failure
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "bob@example.com", notifier.sent[0].recipient)

	stored, err := store.FindBook(context.Background(), "Tolkien-The Hobbit")
	require.NoError(t, err)
	assert.False(t, stored.Requests[0].Mailed, "failed send must be retried next pass")
	assert.True(t, stored.Requests[1].Mailed)
}

func TestRunPass_StoreFailureDoesNotAbortPass(t *testing.T) {
	first := bookWithQuantity("A-First", 1)
	first.Requests = []models.LoanRequest{
		{Name: "alice", ReturnDate: testNow.Add(-24 * time.Hour)},
	}
	second := bookWithQuantity("B-Second", 1)
	second.Requests = []models.LoanRequest{
		{Name: "bob", ReturnDate: testNow.Add(-24 * time.Hour)},
	}
	store := newFakeStore(first, second)
	store.failOn["A-First"] = errors.New("connection reset")
	rec := service.NewReconciler(store, newFakeNotifier(), fixedClock{testNow}, quietLogger())
	ctx := context.Background()

	rec.RunPass(ctx)

	unchanged, err := store.FindBook(ctx, "A-First")
	require.NoError(t, err)
	assert.Len(t, unchanged.Requests, 1)

	processed, err := store.FindBook(ctx, "B-Second")
	require.NoError(t, err)
	assert.Empty(t, processed.Requests)
	assert.Equal(t, 2, *processed.Quantity)
}

func TestRunPass_ScanFailureIsLoggedNotFatal(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("connection refused")
	rec := service.NewReconciler(store, newFakeNotifier(), fixedClock{testNow}, quietLogger())

	assert.NotPanics(t, func() {
		rec.RunPass(context.Background())
	})
}
