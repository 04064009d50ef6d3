package auth

import (
	"gallery/config"
	"gallery/models"
	"gallery/utils"
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	gormsessions "github.com/gin-contrib/sessions/gorm"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	userIdKey         = "id"
	sessionCookieName = "token"
)

type Session struct {
	sessions.Session
}

// Middleware keeps sessions in the database, signed with SESSION_SECRET.
// Without a configured secret a random one is used and sessions end with the process.
func Middleware(db *gorm.DB) gin.HandlerFunc {
	secret := config.SESSION_SECRET
	if secret == "" {
		log.Printf("SESSION_SECRET is not set, using a random one")
		secret = utils.Rand16BytesToBase62() + utils.Rand16BytesToBase62()
	}
	store := gormsessions.NewStore(db, true, []byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   config.SESSION_MAX_AGE,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(sessionCookieName, store)
}

func LoadSession(c *gin.Context) *Session {
	return &Session{
		Session: sessions.Default(c),
	}
}

func (s *Session) LoginUser(user *models.User) error {
	s.Set(userIdKey, user.ID)
	return s.Save()
}

func (s *Session) LogoutUser() {
	s.Delete(userIdKey)
	s.Clear()
	s.Options(sessions.Options{Path: "/", MaxAge: -1})
	_ = s.Save()
}

func (s *Session) User() (user models.User) {
	id, ok := s.Get(userIdKey).(uint64)
	if !ok || id == 0 {
		return
	}
	user, err := models.UserByID(id)
	if err != nil {
		user.ID = 0
	}
	return
}
