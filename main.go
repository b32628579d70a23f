package main

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/SimonShangpliang/cfl-iitg/initializers"
	"github.com/SimonShangpliang/cfl-iitg/internals/controllers"
	"github.com/SimonShangpliang/cfl-iitg/internals/mailer"
	"github.com/SimonShangpliang/cfl-iitg/internals/middleware"
	"github.com/SimonShangpliang/cfl-iitg/internals/repository"
	"github.com/SimonShangpliang/cfl-iitg/internals/service"
	"github.com/SimonShangpliang/cfl-iitg/internals/storage"
	"github.com/SimonShangpliang/cfl-iitg/internals/workers"
	logger "github.com/SimonShangpliang/cfl-iitg/loggers"
)

func main() {
	initializers.LoadEnvVariables()
	logger.Init()
	logger.Logger.Info("welcome to library management")

	ctx := context.Background()

	db, err := initializers.ConnectDatabase()
	if err != nil {
		logger.Logger.Fatal("failed to connect to database :", err)
	}
	if err := initializers.SyncDatabase(db); err != nil {
		logger.Logger.Fatal("failed to synchronize database :", err)
	}

	rdb, err := initializers.ConnectRedis(ctx)
	if err != nil {
		logger.Logger.Fatal("failed to connect to redis :", err)
	}
	defer rdb.Close()

	objects, err := storage.NewS3Store(ctx)
	if err != nil {
		logger.Logger.Fatal("failed to set up image storage :", err)
	}

	books := repository.NewBookRepository(db)
	users := repository.NewUserRepository(db)

	clock := service.SystemClock{}
	loans := service.NewLoanService(books, clock)
	reconciler := service.NewReconciler(books, mailer.NewFromEnv(), clock, logger.Logger)

	scheduler := workers.NewScheduler(reconciler, os.Getenv("RECONCILE_SCHEDULE"), logger.Logger)
	if err := scheduler.Start(); err != nil {
		logger.Logger.Fatal("failed to start reconciliation scheduler :", err)
	}
	defer scheduler.Stop()

	auth := middleware.NewAuthMiddleware(rdb)
	booksController := controllers.NewBooksController(books, loans, objects)
	loansController := controllers.NewLoansController(loans, users)
	usersController := controllers.NewUsersController(users, rdb, auth)

	r := gin.Default()
	r.GET("/", hello)
	r.POST("/signup", usersController.SignUp)
	r.POST("/login", usersController.Login)
	r.GET("/books", booksController.GetAll)

	protected := r.Group("/")
	protected.Use(auth.Authenticate)
	{
		protected.GET("/validate", usersController.Validate)
		protected.GET("/logout", usersController.Logout)

		protected.GET("/books/:bookId", booksController.GetBook)
		protected.POST("/books", booksController.AddBook)
		protected.PATCH("/books/:bookId", booksController.UpdateBook)
		protected.DELETE("/books/:bookId", booksController.DeleteBook)

		protected.GET("/books/:bookId/issue", loansController.IssueBook)
		protected.GET("/update-request-status", loansController.UpdateRequestStatus)

		protected.GET("/authors", booksController.GetAuthors)
		protected.GET("/books-with-unaccepted-requests", booksController.GetBooksWithUnacceptedRequests)
		protected.GET("/books-requests", booksController.GetBooksWithRequests)
	}

	r.Run()
}

func hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "welcome to library management",
	})
}
