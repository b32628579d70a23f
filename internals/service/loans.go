package service

import (
	"context"
	"errors"

	"github.com/SimonShangpliang/cfl-iitg/internals/models"
)

var (
	// ErrAllCopiesIssued is returned when every physical copy of a book is
	// already claimed by an outstanding request.
	ErrAllCopiesIssued = errors.New("all copies are currently issued")

	// ErrRequestNotFound is returned when no outstanding request exists for
	// the named requester on the given book.
	ErrRequestNotFound = errors.New("loan request not found")
)

// BookStore is the persistence capability the loan core depends on. The gorm
// repository satisfies it in production; tests use in-memory fakes.
type BookStore interface {
	AddBook(ctx context.Context, book *models.Book) error
	FindBook(ctx context.Context, id string) (*models.Book, error)
	SaveBook(ctx context.Context, book *models.Book) error
	DeleteBook(ctx context.Context, id string) error
	AllBooks(ctx context.Context) ([]models.Book, error)
	BooksWithRequests(ctx context.Context) ([]models.Book, error)
	BooksWithPendingRequests(ctx context.Context) ([]models.Book, error)
	UniqueAuthors(ctx context.Context) ([]string, error)
	UpdateBookLocked(ctx context.Context, id string, mutate func(book *models.Book) error) error
}

// Notifier delivers a due-date notice to a requester. Delivery is best effort.
type Notifier interface {
	Send(ctx context.Context, recipient, bookTitle string) error
}

// IssueOutcome says which way an issue call resolved: a fresh request, or a
// cancel of the requester's existing one.
type IssueOutcome string

const (
	OutcomeIssued    IssueOutcome = "issued"
	OutcomeCancelled IssueOutcome = "cancelled"
)

// LoanService drives the lifecycle of a loan request: issue/cancel by the
// requester, accept/reject by an administrator. Expiry is the reconciler's job.
type LoanService struct {
	store BookStore
	clock Clock
}

func NewLoanService(store BookStore, clock Clock) *LoanService {
	return &LoanService{store: store, clock: clock}
}

// IssueBook places a loan request for name on the given book, or cancels the
// requester's existing one (issuing twice toggles). A new request claims a
// copy without decrementing quantity: quantity is a ceiling compared against
// the live request count, and only expiry moves it. Cancelling likewise
// leaves quantity untouched.
func (s *LoanService) IssueBook(ctx context.Context, bookId, name, email string) (IssueOutcome, *models.Book, error) {
	var (
		outcome  IssueOutcome
		snapshot *models.Book
	)
	err := s.store.UpdateBookLocked(ctx, bookId, func(book *models.Book) error {
		now := s.clock.Now()
		if i := book.FindRequest(name); i >= 0 {
			book.RemoveRequest(i)
			outcome = OutcomeCancelled
		} else {
			if len(book.Requests) >= book.AvailableQuantity() {
				return ErrAllCopiesIssued
			}
			book.Requests = append(book.Requests, models.NewLoanRequest(name, email, now))
			outcome = OutcomeIssued
		}
		book.RefreshDaysLeft(now)
		copied := *book
		snapshot = &copied
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return outcome, snapshot, nil
}

// SetRequestStatus is the administrator decision on a pending request:
// accepting flips the flag in place, rejecting removes the request outright.
// Neither touches quantity.
func (s *LoanService) SetRequestStatus(ctx context.Context, bookId, name string, accepted bool) error {
	return s.store.UpdateBookLocked(ctx, bookId, func(book *models.Book) error {
		i := book.FindRequest(name)
		if i < 0 {
			return ErrRequestNotFound
		}
		if accepted {
			book.Requests[i].IsAccepted = true
			return nil
		}
		book.RemoveRequest(i)
		return nil
	})
}

// BookDetails loads one book for display, expiring its overdue requests on
// the way and refreshing the derived days-left figures. The pruned book is
// persisted before it is returned.
func (s *LoanService) BookDetails(ctx context.Context, bookId string) (*models.Book, error) {
	var snapshot *models.Book
	err := s.store.UpdateBookLocked(ctx, bookId, func(book *models.Book) error {
		now := s.clock.Now()
		book.PruneExpired(now)
		book.RefreshDaysLeft(now)
		copied := *book
		snapshot = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}
