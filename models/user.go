package models

import (
	"errors"
	"gallery/db"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	usernameMinLength = 3
	usernameMaxLength = 30
	passwordMinLength = 6
)

type User struct {
	ID        uint64 `gorm:"primaryKey"`
	CreatedAt int64
	UpdatedAt int64
	Username  string `gorm:"type:varchar(30);index:uniq_username,unique;not null"`
	Password  string `gorm:"type:varchar(100);not null"`
	AvatarURL string `gorm:"type:varchar(300)"`
}

func validateUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", validationError("username is required")
	}
	if len([]rune(username)) < usernameMinLength {
		return "", validationError("username must be at least %d characters", usernameMinLength)
	}
	if len([]rune(username)) > usernameMaxLength {
		return "", validationError("username must be %d characters or fewer", usernameMaxLength)
	}
	return username, nil
}

func (u *User) SetPassword(plainTextPassword string) error {
	if len(plainTextPassword) < passwordMinLength {
		return validationError("password must be at least %d characters", passwordMinLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hash)
	return nil
}

func (u *User) CheckPassword(plainTextPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plainTextPassword)) == nil
}

func usernameTaken(username string, exceptID uint64) (bool, error) {
	var count int64
	err := db.Instance.Model(&User{}).Where("username = ? AND id <> ?", username, exceptID).Count(&count).Error
	return count > 0, err
}

func UserCreate(username, plainTextPassword string) (u User, err error) {
	if u.Username, err = validateUsername(username); err != nil {
		return
	}
	if err = u.SetPassword(plainTextPassword); err != nil {
		return
	}
	taken, err := usernameTaken(u.Username, 0)
	if err != nil {
		return
	}
	if taken {
		return u, conflictError("username already exists")
	}
	if err = db.Instance.Create(&u).Error; isDuplicateKey(err) {
		err = conflictError("username already exists")
	}
	return
}

func UserLogin(username, plainTextPassword string) (u User, success bool) {
	result := db.Instance.First(&u, "username = ?", strings.TrimSpace(username))
	if result.Error != nil {
		return User{}, false
	}
	if !u.CheckPassword(plainTextPassword) {
		return User{}, false
	}
	return u, true
}

func UserByID(id uint64) (u User, err error) {
	err = db.Instance.First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = notFoundError("user not found")
	}
	return
}

// UserUpdateProfile renames the user and optionally changes the password,
// which requires the current one
func UserUpdateProfile(u *User, username, currentPassword, newPassword string) error {
	username, err := validateUsername(username)
	if err != nil {
		return err
	}
	if username != u.Username {
		taken, err := usernameTaken(username, u.ID)
		if err != nil {
			return err
		}
		if taken {
			return conflictError("username already exists")
		}
	}
	if newPassword != "" {
		if currentPassword == "" {
			return validationError("current password is required to set a new password")
		}
		if len(newPassword) < passwordMinLength {
			return validationError("new password must be at least %d characters", passwordMinLength)
		}
		if !u.CheckPassword(currentPassword) {
			return validationError("current password is incorrect")
		}
		if err = u.SetPassword(newPassword); err != nil {
			return err
		}
	}
	u.Username = username
	err = db.Instance.Model(u).Select("username", "password").Updates(u).Error
	if isDuplicateKey(err) {
		return conflictError("username already exists")
	}
	return err
}

func UserResetPassword(username, newPassword string) error {
	u := User{}
	if err := db.Instance.First(&u, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundError("user %q not found", username)
		}
		return err
	}
	if err := u.SetPassword(newPassword); err != nil {
		return err
	}
	return db.Instance.Model(&u).Update("password", u.Password).Error
}

// UserSetAvatar stores the new avatar URL and returns the previous one (if any)
func UserSetAvatar(u *User, avatarURL string) (previous string, err error) {
	previous = u.AvatarURL
	if err = db.Instance.Model(u).Update("avatar_url", avatarURL).Error; err != nil {
		return "", err
	}
	u.AvatarURL = avatarURL
	return
}
