package service_test

import (
	"context"
	"sort"
	"time"

	"github.com/SimonShangpliang/cfl-iitg/internals/models"
	"github.com/SimonShangpliang/cfl-iitg/internals/repository"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

// fakeStore is an in-memory BookStore. UpdateBookLocked mutates a copy and
// commits only on success, matching the transactional repository.
type fakeStore struct {
	books   map[string]*models.Book
	failOn  map[string]error // UpdateBookLocked failures per book id
	listErr error
}

func newFakeStore(books ...*models.Book) *fakeStore {
	s := &fakeStore{books: map[string]*models.Book{}, failOn: map[string]error{}}
	for _, b := range books {
		s.books[b.Id] = b
	}
	return s
}

func cloneBook(b *models.Book) *models.Book {
	copied := *b
	copied.Requests = append([]models.LoanRequest(nil), b.Requests...)
	if b.Quantity != nil {
		q := *b.Quantity
		copied.Quantity = &q
	}
	return &copied
}

func (s *fakeStore) sortedIds() []string {
	ids := make([]string, 0, len(s.books))
	for id := range s.books {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *fakeStore) AddBook(_ context.Context, book *models.Book) error {
	if _, ok := s.books[book.Id]; ok {
		return repository.ErrBookExists
	}
	s.books[book.Id] = cloneBook(book)
	return nil
}

func (s *fakeStore) FindBook(_ context.Context, id string) (*models.Book, error) {
	b, ok := s.books[id]
	if !ok {
		return nil, repository.ErrBookNotFound
	}
	return cloneBook(b), nil
}

func (s *fakeStore) SaveBook(_ context.Context, book *models.Book) error {
	s.books[book.Id] = cloneBook(book)
	return nil
}

func (s *fakeStore) DeleteBook(_ context.Context, id string) error {
	if _, ok := s.books[id]; !ok {
		return repository.ErrBookNotFound
	}
	delete(s.books, id)
	return nil
}

func (s *fakeStore) AllBooks(_ context.Context) ([]models.Book, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var books []models.Book
	for _, id := range s.sortedIds() {
		books = append(books, *cloneBook(s.books[id]))
	}
	return books, nil
}

func (s *fakeStore) BooksWithRequests(_ context.Context) ([]models.Book, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var books []models.Book
	for _, id := range s.sortedIds() {
		if len(s.books[id].Requests) > 0 {
			books = append(books, *cloneBook(s.books[id]))
		}
	}
	return books, nil
}

func (s *fakeStore) BooksWithPendingRequests(_ context.Context) ([]models.Book, error) {
	var books []models.Book
	for _, id := range s.sortedIds() {
		for _, r := range s.books[id].Requests {
			if !r.IsAccepted {
				books = append(books, *cloneBook(s.books[id]))
				break
			}
		}
	}
	return books, nil
}

func (s *fakeStore) UniqueAuthors(_ context.Context) ([]string, error) {
	seen := map[string]bool{}
	var authors []string
	for _, id := range s.sortedIds() {
		if author := s.books[id].Author; !seen[author] {
			seen[author] = true
			authors = append(authors, author)
		}
	}
	sort.Strings(authors)
	return authors, nil
}

func (s *fakeStore) UpdateBookLocked(_ context.Context, id string, mutate func(book *models.Book) error) error {
	if err := s.failOn[id]; err != nil {
		return err
	}
	b, ok := s.books[id]
	if !ok {
		return repository.ErrBookNotFound
	}
	working := cloneBook(b)
	if err := mutate(working); err != nil {
		return err
	}
	s.books[id] = working
	return nil
}

type sentMail struct {
	recipient string
	bookTitle string
}

type fakeNotifier struct {
	sent    []sentMail
	failFor map[string]error // per recipient
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{failFor: map[string]error{}}
}

func (n *fakeNotifier) Send(_ context.Context, recipient, bookTitle string) error {
	if err := n.failFor[recipient]; err != nil {
		return err
	}
	n.sent = append(n.sent, sentMail{recipient: recipient, bookTitle: bookTitle})
	return nil
}
