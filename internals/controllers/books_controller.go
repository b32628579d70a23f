package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/SimonShangpliang/cfl-iitg/internals/models"
	"github.com/SimonShangpliang/cfl-iitg/internals/repository"
	"github.com/SimonShangpliang/cfl-iitg/internals/service"
	"github.com/SimonShangpliang/cfl-iitg/internals/storage"
	logger "github.com/SimonShangpliang/cfl-iitg/loggers"
)

type BooksController struct {
	store   service.BookStore
	loans   *service.LoanService
	objects storage.ObjectStore
}

func NewBooksController(store service.BookStore, loans *service.LoanService, objects storage.ObjectStore) *BooksController {
	return &BooksController{store: store, loans: loans, objects: objects}
}

// BookUpdateRequest carries a partial overwrite: only non-nil fields change.
type BookUpdateRequest struct {
	Title       *string   `json:"title"`
	Author      *string   `json:"author"`
	Contributor *string   `json:"contributor"`
	Description *string   `json:"description"`
	Quantity    *int      `json:"quantity"`
	EbookLink   *string   `json:"ebook_link"`
	Categories  *[]string `json:"categories"`
	PageCount   *int      `json:"page_count"`
	Year        *int      `json:"year"`
}

func (ctl *BooksController) GetAll(c *gin.Context) {
	books, err := ctl.store.AllBooks(c.Request.Context())
	if err != nil {
		logger.Logger.Error("failed to fetch books :", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch books"})
		return
	}
	c.JSON(http.StatusOK, books)
}

// GetBook returns one book's details. Viewing a book also expires its
// overdue requests, so the rendered request list is never stale.
func (ctl *BooksController) GetBook(c *gin.Context) {
	book, err := ctl.loans.BookDetails(c.Request.Context(), c.Param("bookId"))
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "book not available"})
			return
		}
		logger.Logger.Error("failed to fetch book details :", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch book details"})
		return
	}
	c.JSON(http.StatusOK, book)
}

// AddBook creates a catalog entry from a multipart form and uploads its
// cover images. The book id derives from author and title, so adding the
// same book twice is a no-op returning the existing entry.
func (ctl *BooksController) AddBook(c *gin.Context) {
	title := c.PostForm("title")
	author := c.PostForm("author")
	if title == "" || author == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and author are required"})
		return
	}

	bookId := models.BookId(author, title)
	if existing, err := ctl.store.FindBook(c.Request.Context(), bookId); err == nil {
		c.JSON(http.StatusOK, existing)
		return
	} else if !errors.Is(err, repository.ErrBookNotFound) {
		logger.Logger.Error("failed to check for existing book :", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add book"})
		return
	}

	book := &models.Book{
		Id:          bookId,
		Title:       title,
		Author:      author,
		Contributor: c.PostForm("contributor"),
		Description: c.PostForm("desc"),
		Requests:    []models.LoanRequest{},
	}
	if q := c.PostForm("quantity"); q != "" {
		quantity, err := strconv.Atoi(q)
		if err != nil || quantity < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quantity"})
			return
		}
		book.Quantity = &quantity
	}
	if link := c.PostForm("ebook_link"); link != "" {
		book.EbookLink = &link
	}
	if cats := c.PostForm("categories"); cats != "" {
		for _, cat := range strings.Split(cats, ",") {
			if cat = strings.TrimSpace(cat); cat != "" {
				book.Categories = append(book.Categories, cat)
			}
		}
	}
	if pages := c.PostForm("page_count"); pages != "" {
		book.PageCount, _ = strconv.Atoi(pages)
	}
	if year := c.PostForm("year"); year != "" {
		book.Year, _ = strconv.Atoi(year)
	}

	form, err := c.MultipartForm()
	if err == nil {
		for _, file := range form.File["imagesUrl"] {
			src, err := file.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable image upload"})
				return
			}
			key := uuid.NewString() + "-" + file.Filename
			url, err := ctl.objects.Upload(c.Request.Context(), key, file.Header.Get("Content-Type"), src)
			src.Close()
			if err != nil {
				logger.Logger.Error("failed to upload image :", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upload image"})
				return
			}
			book.Images = append(book.Images, models.BookImage{URL: url, Key: key})
		}
	}

	if err := ctl.store.AddBook(c.Request.Context(), book); err != nil {
		logger.Logger.Error("failed to insert book :", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add book"})
		return
	}
	c.JSON(http.StatusCreated, book)
}

func (ctl *BooksController) UpdateBook(c *gin.Context) {
	var req BookUpdateRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	book, err := ctl.store.FindBook(c.Request.Context(), c.Param("bookId"))
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
			return
		}
		logger.Logger.Error("failed to fetch book :", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update book"})
		return
	}

	if req.Title != nil {
		book.Title = *req.Title
	}
	if req.Author != nil {
		book.Author = *req.Author
	}
	if req.Contributor != nil {
		book.Contributor = *req.Contributor
	}
	if req.Description != nil {
		book.Description = *req.Description
	}
	if req.Quantity != nil {
		book.Quantity = req.Quantity
	}
	if req.EbookLink != nil {
		book.EbookLink = req.EbookLink
	}
	if req.Categories != nil {
		book.Categories = *req.Categories
	}
	if req.PageCount != nil {
		book.PageCount = *req.PageCount
	}
	if req.Year != nil {
		book.Year = *req.Year
	}

	if err := ctl.store.SaveBook(c.Request.Context(), book); err != nil {
		logger.Logger.Error("failed to save book :", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update book"})
		return
	}
	c.JSON(http.StatusOK, book)
}

// DeleteBook removes the book and its stored images. A failed object delete
// is logged but does not keep the catalog entry alive.
func (ctl *BooksController) DeleteBook(c *gin.Context) {
	bookId := c.Param("bookId")
	book, err := ctl.store.FindBook(c.Request.Context(), bookId)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
			return
		}
		logger.Logger.Error("failed to fetch book :", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete book"})
		return
	}

	for _, image := range book.Images {
		if err := ctl.objects.Delete(c.Request.Context(), image.Key); err != nil {
			logger.Logger.Error("failed to delete image :", err)
		}
	}

	if err := ctl.store.DeleteBook(c.Request.Context(), bookId); err != nil {
		logger.Logger.Error("failed to delete book :", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete book"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "book deleted"})
}

func (ctl *BooksController) GetAuthors(c *gin.Context) {
	authors, err := ctl.store.UniqueAuthors(c.Request.Context())
	if err != nil {
		logger.Logger.Error("failed to fetch authors :", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch authors"})
		return
	}
	c.JSON(http.StatusOK, authors)
}

func (ctl *BooksController) GetBooksWithUnacceptedRequests(c *gin.Context) {
	books, err := ctl.store.BooksWithPendingRequests(c.Request.Context())
	if err != nil {
		logger.Logger.Error("failed to fetch books with pending requests :", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch books"})
		return
	}
	c.JSON(http.StatusOK, books)
}

func (ctl *BooksController) GetBooksWithRequests(c *gin.Context) {
	books, err := ctl.store.BooksWithRequests(c.Request.Context())
	if err != nil {
		logger.Logger.Error("failed to fetch books with requests :", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch books"})
		return
	}
	c.JSON(http.StatusOK, books)
}
