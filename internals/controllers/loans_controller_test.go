package controllers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SimonShangpliang/cfl-iitg/internals/controllers"
	"github.com/SimonShangpliang/cfl-iitg/internals/models"
	"github.com/SimonShangpliang/cfl-iitg/internals/repository"
	"github.com/SimonShangpliang/cfl-iitg/internals/service"
	logger "github.com/SimonShangpliang/cfl-iitg/loggers"
)

type memoryStore struct {
	books map[string]*models.Book
}

func (s *memoryStore) AddBook(_ context.Context, b *models.Book) error {
	s.books[b.Id] = b
	return nil
}

func (s *memoryStore) FindBook(_ context.Context, id string) (*models.Book, error) {
	b, ok := s.books[id]
	if !ok {
		return nil, repository.ErrBookNotFound
	}
	return b, nil
}

func (s *memoryStore) SaveBook(_ context.Context, b *models.Book) error {
	s.books[b.Id] = b
	return nil
}

func (s *memoryStore) DeleteBook(_ context.Context, id string) error {
	delete(s.books, id)
	return nil
}

func (s *memoryStore) AllBooks(context.Context) ([]models.Book, error) { return nil, nil }

func (s *memoryStore) BooksWithRequests(context.Context) ([]models.Book, error) { return nil, nil }

func (s *memoryStore) BooksWithPendingRequests(context.Context) ([]models.Book, error) {
	return nil, nil
}

func (s *memoryStore) UniqueAuthors(context.Context) ([]string, error) { return nil, nil }

func (s *memoryStore) UpdateBookLocked(ctx context.Context, id string, mutate func(*models.Book) error) error {
	b, ok := s.books[id]
	if !ok {
		return repository.ErrBookNotFound
	}
	return mutate(b)
}

type staticUsers struct {
	user *models.UserProfile
}

func (u *staticUsers) FindByEmail(_ context.Context, email string) (*models.UserProfile, error) {
	if u.user == nil || u.user.Email != email {
		return nil, repository.ErrUserNotFound
	}
	return u.user, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func setupRouter(store *memoryStore, users controllers.UserFinder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger.Init()

	loans := service.NewLoanService(store, fixedClock{time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)})
	ctl := controllers.NewLoansController(loans, users)

	r := gin.New()
	// stands in for the auth middleware
	r.Use(func(c *gin.Context) {
		c.Set("email", "alice@example.com")
	})
	r.GET("/books/:bookId/issue", ctl.IssueBook)
	r.GET("/update-request-status", ctl.UpdateRequestStatus)
	return r
}

func seedBook(quantity int) *memoryStore {
	return &memoryStore{books: map[string]*models.Book{
		"Tolkien-The Hobbit": {
			Id:       "Tolkien-The Hobbit",
			Title:    "The Hobbit",
			Author:   "Tolkien",
			Quantity: &quantity,
		},
	}}
}

func alice() *staticUsers {
	return &staticUsers{user: &models.UserProfile{
		FirstName: "Alice",
		LastName:  "Smith",
		Email:     "alice@example.com",
	}}
}

func TestIssueBook_IssuesAndTogglesOff(t *testing.T) {
	store := seedBook(1)
	router := setupRouter(store, alice())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/books/Tolkien-The%20Hobbit/issue", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Outcome string      `json:"outcome"`
		Book    models.Book `json:"book"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "issued", body.Outcome)
	require.Len(t, body.Book.Requests, 1)
	assert.Equal(t, "Alice Smith", body.Book.Requests[0].Name)
	assert.Equal(t, "alice@example.com", body.Book.Requests[0].Email)

	// issuing again cancels
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books/Tolkien-The%20Hobbit/issue", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "cancelled", body.Outcome)
	assert.Empty(t, body.Book.Requests)
}

func TestIssueBook_AllCopiesIssued(t *testing.T) {
	store := seedBook(0)
	router := setupRouter(store, alice())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books/Tolkien-The%20Hobbit/issue", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, store.books["Tolkien-The Hobbit"].Requests)
}

func TestIssueBook_UnknownBook(t *testing.T) {
	router := setupRouter(&memoryStore{books: map[string]*models.Book{}}, alice())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books/missing/issue", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIssueBook_UnknownUser(t *testing.T) {
	router := setupRouter(seedBook(1), &staticUsers{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books/Tolkien-The%20Hobbit/issue", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateRequestStatus_AcceptAndReject(t *testing.T) {
	store := seedBook(2)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.books["Tolkien-The Hobbit"].Requests = []models.LoanRequest{
		models.NewLoanRequest("Alice Smith", "alice@example.com", now),
	}
	router := setupRouter(store, alice())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/update-request-status?bookId=Tolkien-The%20Hobbit&name=Alice%20Smith&isAccepted=true", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, store.books["Tolkien-The Hobbit"].Requests[0].IsAccepted)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/update-request-status?bookId=Tolkien-The%20Hobbit&name=Alice%20Smith&isAccepted=false", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, store.books["Tolkien-The Hobbit"].Requests)
}

func TestUpdateRequestStatus_MissingParams(t *testing.T) {
	router := setupRouter(seedBook(1), alice())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/update-request-status?bookId=x", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
