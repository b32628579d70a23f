package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SimonShangpliang/cfl-iitg/internals/models"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrBookExists   = errors.New("book already exists")
)

// jsonbNonEmptyRequests matches books whose embedded request list exists and
// is not the empty array. Requests are stored as a jsonb column so the whole
// book persists in a single write.
const jsonbNonEmptyRequests = "requests IS NOT NULL AND requests::jsonb <> '[]'::jsonb"

type BookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) AddBook(ctx context.Context, book *models.Book) error {
	result := r.db.WithContext(ctx).Create(book)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrBookExists
		}
		return fmt.Errorf("insert book: %w", result.Error)
	}
	return nil
}

func (r *BookRepository) FindBook(ctx context.Context, id string) (*models.Book, error) {
	var book models.Book
	result := r.db.WithContext(ctx).First(&book, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("find book %q: %w", id, result.Error)
	}
	return &book, nil
}

// SaveBook replaces the whole row, requests and quantity included, in one write.
func (r *BookRepository) SaveBook(ctx context.Context, book *models.Book) error {
	result := r.db.WithContext(ctx).Save(book)
	if result.Error != nil {
		return fmt.Errorf("save book %q: %w", book.Id, result.Error)
	}
	return nil
}

func (r *BookRepository) DeleteBook(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Book{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete book %q: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}

func (r *BookRepository) AllBooks(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	result := r.db.WithContext(ctx).Order("id").Find(&books)
	if result.Error != nil {
		return nil, fmt.Errorf("list books: %w", result.Error)
	}
	return books, nil
}

// BooksWithRequests returns every book holding at least one loan request.
func (r *BookRepository) BooksWithRequests(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	result := r.db.WithContext(ctx).Where(jsonbNonEmptyRequests).Order("id").Find(&books)
	if result.Error != nil {
		return nil, fmt.Errorf("list books with requests: %w", result.Error)
	}
	return books, nil
}

// BooksWithPendingRequests returns books holding at least one request an
// administrator has not accepted yet.
func (r *BookRepository) BooksWithPendingRequests(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	result := r.db.WithContext(ctx).
		Where("requests::jsonb @> ?::jsonb", `[{"is_accepted": false}]`).
		Order("id").
		Find(&books)
	if result.Error != nil {
		return nil, fmt.Errorf("list books with pending requests: %w", result.Error)
	}
	return books, nil
}

// UniqueAuthors lists every distinct author in the catalog.
func (r *BookRepository) UniqueAuthors(ctx context.Context) ([]string, error) {
	var authors []string
	result := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Distinct("author").
		Order("author").
		Pluck("author", &authors)
	if result.Error != nil {
		return nil, fmt.Errorf("list authors: %w", result.Error)
	}
	return authors, nil
}

// UpdateBookLocked runs mutate against a freshly loaded book inside a
// transaction holding a row lock, so concurrent issue/accept/reconcile calls
// against the same book cannot interleave their read-modify-write cycles.
func (r *BookRepository) UpdateBookLocked(ctx context.Context, id string, mutate func(book *models.Book) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book models.Book
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&book, "id = ?", id)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return fmt.Errorf("lock book %q: %w", id, result.Error)
		}
		if err := mutate(&book); err != nil {
			return err
		}
		if err := tx.Save(&book).Error; err != nil {
			return fmt.Errorf("save book %q: %w", id, err)
		}
		return nil
	})
}
