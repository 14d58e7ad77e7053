package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/dimaskp/conduit-api/internal/interface/http"
)

// UserModule wires user HTTP handlers into routes.
// Public: POST /api/users, POST /api/users/login
// Identity-aware (handlers enforce auth themselves; the identity middleware
// only attaches the user): GET/PUT /api/user, POST /api/user/image, GET /api/users/search
type UserModule struct {
	Handler *handlers.UserHandler
}

func NewUserModule(h *handlers.UserHandler) *UserModule {
	return &UserModule{Handler: h}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rg.POST("/users", m.Handler.Register)
	rg.POST("/users/login", m.Handler.Login)

	rg.GET("/user", m.Handler.Current)
	rg.PUT("/user", m.Handler.Update)
	rg.POST("/user/image", m.Handler.UploadImage)
	rg.GET("/users/search", m.Handler.Search)
}
