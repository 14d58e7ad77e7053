package validation

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,uname"`
	Password string `json:"password" binding:"required,pwd"`
}

func TestToDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	Init()

	v := binding.Validator.Engine()
	validate, ok := v.(interface{ Struct(any) error })
	require.True(t, ok)

	err := validate.Struct(samplePayload{Email: "nope", Username: "al ice", Password: "short"})
	require.Error(t, err)

	details := ToDetails(err)
	assert.Equal(t, "must be a valid email", details["email"])
	assert.Equal(t, "must contain alphanumeric characters only", details["username"])
	assert.Equal(t, "must be at least 8 characters long", details["password"])

	msgs := Messages(err)
	assert.Len(t, msgs, 3)
}

func TestToDetails_Nil(t *testing.T) {
	assert.Nil(t, ToDetails(nil))
}
