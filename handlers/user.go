package handlers

import (
	"gallery/auth"
	"gallery/models"
	"gallery/storage"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type UserCredentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UserUpdateRequest struct {
	Username        string `json:"username" binding:"required"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type UserInfo struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
	CreatedAt int64  `json:"createdAt"`
}

func newUserInfo(user *models.User) UserInfo {
	return UserInfo{
		ID:        user.ID,
		Username:  user.Username,
		AvatarURL: user.AvatarURL,
		CreatedAt: user.CreatedAt,
	}
}

func login(c *gin.Context, user *models.User, status int) {
	session := auth.LoadSession(c)
	if err := session.LoginUser(user); err != nil {
		log.Printf("User: %d, session error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, DBErrorResponse)
		return
	}
	c.JSON(status, newUserInfo(user))
}

func UserRegister(c *gin.Context) {
	r := UserCredentialsRequest{}
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	user, err := models.UserCreate(r.Username, r.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Printf("User: %d, registered", user.ID)
	login(c, &user, http.StatusCreated)
}

func UserLogin(c *gin.Context) {
	r := UserCredentialsRequest{}
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	user, ok := models.UserLogin(r.Username, r.Password)
	if !ok {
		c.JSON(http.StatusUnauthorized, Response{"invalid username or password"})
		return
	}
	login(c, &user, http.StatusOK)
}

func UserLogout(c *gin.Context) {
	auth.LoadSession(c).LogoutUser()
	c.JSON(http.StatusOK, OKResponse)
}

// UserGetStatus is used both for verifying the session and for the profile
func UserGetStatus(c *gin.Context, user *models.User) {
	c.JSON(http.StatusOK, newUserInfo(user))
}

func UserUpdate(c *gin.Context, user *models.User) {
	r := UserUpdateRequest{}
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	if err := models.UserUpdateProfile(user, r.Username, r.CurrentPassword, r.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserInfo(user))
}

func UserAvatarUpload(c *gin.Context, user *models.User) {
	upload := receiveUpload(c, "avatar", false)
	if upload == nil {
		return
	}
	previous, err := models.UserSetAvatar(user, upload.URL())
	if err != nil {
		upload.discard()
		respondError(c, err)
		return
	}
	removeStoredFile(previous)
	c.JSON(http.StatusOK, newUserInfo(user))
}

func UserAvatarDelete(c *gin.Context, user *models.User) {
	previous, err := models.UserSetAvatar(user, "")
	if err != nil {
		respondError(c, err)
		return
	}
	removeStoredFile(previous)
	c.JSON(http.StatusOK, newUserInfo(user))
}

// removeStoredFile deletes a replaced file from the bucket holding it, errors are only logged
func removeStoredFile(publicURL string) {
	if publicURL == "" {
		return
	}
	name, ok := storage.ResolvePublicURL(publicURL)
	if !ok {
		return
	}
	s := storageFor(name)
	if s == nil {
		return
	}
	if err := s.Delete(name); err != nil {
		log.Printf("File: %s, delete error: %v", name, err)
	}
}
