package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SimonShangpliang/cfl-iitg/internals/models"
	"github.com/SimonShangpliang/cfl-iitg/internals/repository"
	"github.com/SimonShangpliang/cfl-iitg/internals/service"
	logger "github.com/SimonShangpliang/cfl-iitg/loggers"
)

// UserFinder resolves the signed-in requester's profile.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.UserProfile, error)
}

type LoansController struct {
	loans *service.LoanService
	users UserFinder
}

func NewLoansController(loans *service.LoanService, users UserFinder) *LoansController {
	return &LoansController{loans: loans, users: users}
}

// IssueBook places a loan request for the signed-in user, or cancels their
// existing one. Issuing twice toggles.
func (ctl *LoansController) IssueBook(c *gin.Context) {
	email := c.GetString("email")
	user, err := ctl.users.FindByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		logger.Logger.Error("failed to fetch user :", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue book"})
		return
	}

	outcome, book, err := ctl.loans.IssueBook(c.Request.Context(), c.Param("bookId"), user.FullName(), email)
	switch {
	case errors.Is(err, repository.ErrBookNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "book not available"})
		return
	case errors.Is(err, service.ErrAllCopiesIssued):
		c.JSON(http.StatusConflict, gin.H{"error": "sorry, all books are currently issued"})
		return
	case err != nil:
		logger.Logger.Error("failed to issue book :", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue book"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"outcome": outcome, "book": book})
}

// UpdateRequestStatus is the administrator decision endpoint:
// /update-request-status?bookId=...&name=...&isAccepted=true|false.
// Accepting flips the flag, rejecting removes the request.
func (ctl *LoansController) UpdateRequestStatus(c *gin.Context) {
	bookId := c.Query("bookId")
	name := c.Query("name")
	accepted, err := strconv.ParseBool(c.Query("isAccepted"))
	if bookId == "" || name == "" || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bookId, name and isAccepted are required"})
		return
	}

	switch err := ctl.loans.SetRequestStatus(c.Request.Context(), bookId, name, accepted); {
	case errors.Is(err, repository.ErrBookNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "book not available"})
	case errors.Is(err, service.ErrRequestNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "loan request not found"})
	case err != nil:
		logger.Logger.Error("failed to update request status :", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update request status"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "request status updated"})
	}
}
