package models

import (
	"gallery/db"
)

func Init() {
	if err := Migrate(); err != nil {
		panic(err)
	}
}

func Migrate() error {
	return db.Instance.AutoMigrate(&User{}, &Album{}, &Image{}, &ImageTag{})
}
