package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/SimonShangpliang/cfl-iitg/internals/middleware"
	"github.com/SimonShangpliang/cfl-iitg/internals/models"
	"github.com/SimonShangpliang/cfl-iitg/internals/repository"
	logger "github.com/SimonShangpliang/cfl-iitg/loggers"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRedisKeyNotFound   = errors.New("redis key not found")
)

type UserResponse struct {
	Message      string `json:"message"`
	Error        bool   `json:"error,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type UserCred struct {
	Email        string
	HashPassword string
}

type Users struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	Country      string `json:"country"`
	ZipCode      string `json:"zip_code"`
	UserType     string `json:"user_type"`
}

type LoginCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserStore is the profile persistence the signup/login flow needs.
type UserStore interface {
	UserFinder
	CreateUser(ctx context.Context, user *models.UserProfile) error
}

type UsersController struct {
	users UserStore
	rdb   *redis.Client
	auth  *middleware.AuthMiddleware
}

func NewUsersController(users UserStore, rdb *redis.Client, auth *middleware.AuthMiddleware) *UsersController {
	return &UsersController{users: users, rdb: rdb, auth: auth}
}

func (ctl *UsersController) SignUp(c *gin.Context) {
	var user Users
	var response UserResponse
	if err := c.BindJSON(&user); err != nil {
		response.Error = true
		response.ErrorMessage = "invalid request format"
		c.JSON(http.StatusBadRequest, response)
		return
	}
	if user.Email == "" || user.Password == "" {
		response.Error = true
		response.ErrorMessage = "email and password are required"
		c.JSON(http.StatusBadRequest, response)
		return
	}

	if err := user.HashPassword(); err != nil {
		logger.Logger.Error("failed to hash password :", err)
		response.Error = true
		response.ErrorMessage = "user creation failed"
		c.JSON(http.StatusInternalServerError, response)
		return
	}

	requestUser := models.UserProfile{
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Email:        user.Email,
		Password:     user.Password, // hashed above
		Phone:        user.Phone,
		AddressLine1: user.AddressLine1,
		AddressLine2: user.AddressLine2,
		City:         user.City,
		State:        user.State,
		Country:      user.Country,
		ZipCode:      user.ZipCode,
		UserType:     user.UserType,
	}

	if err := ctl.users.CreateUser(c.Request.Context(), &requestUser); err != nil {
		logger.Logger.Error("failed to insert user profile into database :", err)
		response.Error = true
		response.Message = "user creation failed"
		c.JSON(http.StatusBadRequest, response)
		return
	}

	// credential cache is best effort, login falls back to the database
	if err := ctl.InsertCredentialsToRedis(c.Request.Context(), requestUser.Email, requestUser.Password); err != nil {
		logger.Logger.Error("failed to insert credentials in redis cache :", err)
	}

	response.Message = "user created successfully"
	c.JSON(http.StatusCreated, response)
}

/*
Login
fetch email id and password from request
check credentials against the redis cache first
fall back to a database lookup on a cache miss
on a match, create the jwt token pair and set cookies
*/
func (ctl *UsersController) Login(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var response UserResponse
	var credential LoginCredentials
	if err := c.BindJSON(&credential); err != nil {
		response.Error = true
		response.ErrorMessage = "invalid request format"
		c.JSON(http.StatusBadRequest, response)
		return
	}

	userCred, err := ctl.AuthenticateFromRedis(ctx, credential)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			response.Error = true
			response.ErrorMessage = "invalid credentials"
			c.JSON(http.StatusUnauthorized, response)
			return
		case errors.Is(err, ErrRedisKeyNotFound):
			userCred, err = ctl.AuthenticateFromDatabase(ctx, credential)
			if err != nil {
				response.Error = true
				response.ErrorMessage = "invalid credentials"
				c.JSON(http.StatusUnauthorized, response)
				return
			}
			// repopulate the cache for the next login
			if err := ctl.InsertCredentialsToRedis(ctx, userCred.Email, userCred.HashPassword); err != nil {
				logger.Logger.Error("failed to insert credentials in redis cache :", err)
			}
		default:
			logger.Logger.Error("redis error :", err)
			userCred, err = ctl.AuthenticateFromDatabase(ctx, credential)
			if err != nil {
				response.Error = true
				response.ErrorMessage = "invalid credentials"
				c.JSON(http.StatusUnauthorized, response)
				return
			}
		}
	}

	if err := ctl.auth.GenerateTokensAndSaveInCookies(c, userCred.Email); err != nil {
		logger.Logger.Error("failed to create token :", err)
		response.Error = true
		response.ErrorMessage = "failed to create token"
		c.JSON(http.StatusInternalServerError, response)
		return
	}
	response.Message = userCred.Email + " logged in successfully"
	c.JSON(http.StatusOK, response)
}

func (ctl *UsersController) Validate(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"email": c.GetString("email")})
}

func (ctl *UsersController) Logout(c *gin.Context) {
	c.SetCookie("access_token", "", -1, "/", "", false, true)
	c.SetCookie("refresh_token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (ctl *UsersController) AuthenticateFromRedis(ctx context.Context, credential LoginCredentials) (*UserCred, error) {
	if credential.Email == "" || credential.Password == "" {
		return nil, ErrInvalidCredentials
	}

	userKey := fmt.Sprintf("user:%s", credential.Email)
	result, err := ctl.rdb.HGetAll(ctx, userKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	hashPassword, isExists := result["password"]
	if !isExists || hashPassword == "" {
		return nil, ErrRedisKeyNotFound
	}
	if err := compareHashPasswords(hashPassword, credential.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &UserCred{
		Email:        credential.Email,
		HashPassword: hashPassword,
	}, nil
}

func (ctl *UsersController) AuthenticateFromDatabase(ctx context.Context, credential LoginCredentials) (*UserCred, error) {
	user, err := ctl.users.FindByEmail(ctx, credential.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("unable to fetch details from database: %w", err)
	}
	if err := compareHashPasswords(user.Password, credential.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &UserCred{
		Email:        user.Email,
		HashPassword: user.Password,
	}, nil
}

func (ctl *UsersController) InsertCredentialsToRedis(ctx context.Context, email, password string) error {
	userKey := fmt.Sprintf("user:%s", email)
	return ctl.rdb.HSet(ctx, userKey, map[string]interface{}{
		"email":    email,
		"password": password,
	}).Err()
}

func (user *Users) HashPassword() error {
	hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), 10)
	if err != nil {
		return err
	}
	user.Password = string(hash)
	return nil
}

func compareHashPasswords(hashPwd, pwd string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashPwd), []byte(pwd))
}
