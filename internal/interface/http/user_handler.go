package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/dimaskp/conduit-api/internal/application"
	"github.com/dimaskp/conduit-api/internal/interface/middleware"
	"github.com/dimaskp/conduit-api/pkg/response"
	"github.com/dimaskp/conduit-api/pkg/validation"
)

type UserHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewUserHandler(svc *userapp.Service, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type registerRequest struct {
	User struct {
		Email    string `json:"email" binding:"required,email"`
		Username string `json:"username" binding:"required,uname"`
		Password string `json:"password" binding:"required,pwd"`
	} `json:"user" binding:"required"`
}

type loginRequest struct {
	User struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	} `json:"user" binding:"required"`
}

type updateRequest struct {
	User struct {
		Email    string `json:"email" binding:"omitempty,email"`
		Username string `json:"username" binding:"omitempty,uname"`
		Bio      string `json:"bio"`
		Image    string `json:"image" binding:"omitempty,url"`
		Password string `json:"password" binding:"omitempty,pwd"`
	} `json:"user" binding:"required"`
}

// Register POST /api/users
func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.NewError(validation.Messages(err)...))
		return
	}

	u, err := h.Svc.Register(c.Request.Context(), req.User.Email, req.User.Username, req.User.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	res, err := h.Svc.BuildAuthResponse(c.Request.Context(), u)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Login POST /api/users/login
func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.NewError(validation.Messages(err)...))
		return
	}

	u, err := h.Svc.Login(c.Request.Context(), req.User.Email, req.User.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	res, err := h.Svc.BuildAuthResponse(c.Request.Context(), u)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Current GET /api/user
func (h *UserHandler) Current(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.NewError("unauthorized"))
		return
	}

	res, err := h.Svc.BuildAuthResponse(c.Request.Context(), u)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Update PUT /api/user
func (h *UserHandler) Update(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.NewError("unauthorized"))
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.NewError(validation.Messages(err)...))
		return
	}

	updated, err := h.Svc.UpdateProfile(c.Request.Context(), u.ID, userapp.UpdateProfileInput{
		Email:    req.User.Email,
		Username: req.User.Username,
		Bio:      req.User.Bio,
		Image:    req.User.Image,
		Password: req.User.Password,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	res, err := h.Svc.BuildAuthResponse(c.Request.Context(), updated)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// UploadImage POST /api/user/image (multipart field "image")
func (h *UserHandler) UploadImage(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.NewError("unauthorized"))
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.NewError("image file is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer func() { _ = f.Close() }()

	updated, err := h.Svc.UploadImage(c.Request.Context(), u.ID, f, fh.Filename, fh.Header.Get("Content-Type"))
	if err != nil {
		h.fail(c, err)
		return
	}

	res, err := h.Svc.BuildAuthResponse(c.Request.Context(), updated)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Search GET /api/users/search?q=&size=
func (h *UserHandler) Search(c *gin.Context) {
	if _, ok := middleware.CurrentUser(c); !ok {
		c.JSON(http.StatusUnauthorized, response.NewError("unauthorized"))
		return
	}

	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, response.NewError("query parameter q is required"))
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))

	results, err := h.Svc.SearchUsers(c.Request.Context(), q, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// fail maps service errors onto the boundary taxonomy: validation -> 400,
// bad credentials -> 401, missing user -> 404, everything else -> 500.
func (h *UserHandler) fail(c *gin.Context, err error) {
	var verr *userapp.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, response.NewError(verr.Error()))
	case errors.Is(err, userapp.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, response.NewError("invalid credentials"))
	case errors.Is(err, userapp.ErrUserNotFound):
		c.JSON(http.StatusNotFound, response.NewError("user not found"))
	default:
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("request failed")
		}
		c.JSON(http.StatusInternalServerError, response.NewError("internal server error"))
	}
}
