package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"eshop/models"
	"eshop/store"
	"eshop/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// UserController handles user-related requests
type UserController struct {
	Users   store.UserStore
	Tokens  *utils.TokenManager
	Log     logrus.FieldLogger
	Timeout time.Duration
}

// NewUserController creates a new UserController
func NewUserController(users store.UserStore, tokens *utils.TokenManager, logger logrus.FieldLogger, timeout time.Duration) *UserController {
	return &UserController{Users: users, Tokens: tokens, Log: logger, Timeout: timeout}
}

type userRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
	IsAdmin   bool   `json:"isAdmin"`
	Street    string `json:"street"`
	Apartment string `json:"apartment"`
	Zip       string `json:"zip"`
	City      string `json:"city"`
	Country   string `json:"country"`
}

func (req userRequest) user() (*models.User, error) {
	if err := requireFields(map[string]string{
		"name":     req.Name,
		"email":    req.Email,
		"password": req.Password,
	}); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &models.User{
		Name:         req.Name,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: string(hash),
		Phone:        req.Phone,
		IsAdmin:      req.IsAdmin,
		Street:       req.Street,
		Apartment:    req.Apartment,
		Zip:          req.Zip,
		City:         req.City,
		Country:      req.Country,
	}, nil
}

// GetUsers lists every user without password hashes
func (uc *UserController) GetUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, uc.Timeout)
	defer cancel()

	users, err := uc.Users.List(ctx)
	if err != nil {
		uc.Log.WithError(err).Error("List users failed")
		utils.WriteMessage(w, http.StatusInternalServerError, "Error fetching users")
		return
	}
	utils.WriteJSON(w, http.StatusOK, users)
}

// GetUserByID retrieves a single user by ID
func (uc *UserController) GetUserByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteError(w, err, "invalid user id")
		return
	}

	ctx, cancel := withTimeout(r, uc.Timeout)
	defer cancel()

	user, err := uc.Users.FindByID(ctx, id)
	if err != nil {
		if !store.IsNotFound(err) {
			uc.Log.WithError(err).Error("Find user failed")
		}
		utils.WriteError(w, err, "No user Found")
		return
	}
	utils.WriteJSON(w, http.StatusOK, user)
}

// CreateUser adds a user. The admin flag is taken from the body.
func (uc *UserController) CreateUser(w http.ResponseWriter, r *http.Request) {
	uc.insertUser(w, r)
}

// Register handles user registration
func (uc *UserController) Register(w http.ResponseWriter, r *http.Request) {
	uc.insertUser(w, r)
}

func (uc *UserController) insertUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		utils.WriteError(w, err, "Invalid input")
		return
	}
	user, err := req.user()
	if err != nil {
		if errors.Is(err, utils.ErrValidation) {
			utils.WriteError(w, err, err.Error())
			return
		}
		uc.Log.WithError(err).Error("Hash password failed")
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}

	ctx, cancel := withTimeout(r, uc.Timeout)
	defer cancel()

	if err := uc.Users.Insert(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			http.Error(w, "User already exists", http.StatusBadRequest)
			return
		}
		uc.Log.WithError(err).Error("Insert user failed")
		http.Error(w, "the user cannot be created!", http.StatusInternalServerError)
		return
	}
	uc.Log.WithField("user_id", user.ID.Hex()).Info("User created")
	utils.WriteJSON(w, http.StatusOK, user)
}

// DeleteUser removes the user with the given ID
func (uc *UserController) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteError(w, err, "invalid user id")
		return
	}

	ctx, cancel := withTimeout(r, uc.Timeout)
	defer cancel()

	if err := uc.Users.Delete(ctx, id); err != nil {
		if !store.IsNotFound(err) {
			uc.Log.WithError(err).Error("Delete user failed")
		}
		utils.WriteError(w, err, "user not found")
		return
	}
	utils.WriteMessage(w, http.StatusOK, "the user is deleted")
}

// Login handles user authentication
func (uc *UserController) Login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &creds); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}

	ctx, cancel := withTimeout(r, uc.Timeout)
	defer cancel()

	user, err := uc.Users.FindByEmail(ctx, strings.TrimSpace(creds.Email))
	if err != nil {
		if !store.IsNotFound(err) {
			uc.Log.WithError(err).Error("Find user by email failed")
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}
		http.Error(w, "The user Not found!", http.StatusNotFound)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		http.Error(w, "Password is Wrong!!", http.StatusBadRequest)
		return
	}

	token, err := uc.Tokens.GenerateJWT(user.ID.Hex(), user.IsAdmin)
	if err != nil {
		uc.Log.WithError(err).Error("Sign token failed")
		http.Error(w, "Error generating token", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"user": user.Email, "token": token})
}

// CountUsers returns the number of users
func (uc *UserController) CountUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, uc.Timeout)
	defer cancel()

	n, err := uc.Users.Count(ctx)
	if err != nil {
		uc.Log.WithError(err).Error("Count users failed")
		utils.WriteMessage(w, http.StatusInternalServerError, "Error counting users")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]int64{"userCount": n})
}
