package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"     json:"uid"`
	Username     string    `gorm:"unique;not null"          json:"username"`
	Email        string    `gorm:"unique;not null"          json:"email"`
	FirstName    string    `gorm:"not null"                 json:"first_name"`
	LastName     string    `gorm:"not null"                 json:"last_name"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	IsVerified   bool      `gorm:"default:false"            json:"is_verified"`
	Role         string    `gorm:"not null;default:user"    json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Books   []Book   `gorm:"foreignKey:UserID" json:"books,omitempty"`
	Reviews []Review `gorm:"foreignKey:UserID" json:"reviews,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type Book struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"uid"`
	Title         string    `gorm:"not null;index"       json:"title"`
	Author        string    `gorm:"not null"             json:"author"`
	Publisher     string    `gorm:"not null"             json:"publisher"`
	PublishedDate time.Time `json:"published_date"`
	PageCount     int       `json:"page_count"`
	Genre         string    `json:"genre"`
	Price         float64   `json:"price"`
	UserID        uuid.UUID `gorm:"type:uuid;index"      json:"user_uid"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Reviews []Review `gorm:"foreignKey:BookID"       json:"reviews,omitempty"`
	Tags    []Tag    `gorm:"many2many:book_tags"     json:"tags,omitempty"`
}

func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

type Review struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"        json:"uid"`
	Rating     int       `gorm:"not null;check:rating BETWEEN 1 AND 5" json:"rating"`
	ReviewText string    `gorm:"not null"                    json:"review_text"`
	UserID     uuid.UUID `gorm:"type:uuid;index;not null"    json:"user_uid"`
	BookID     uuid.UUID `gorm:"type:uuid;index;not null"    json:"book_uid"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

type Tag struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"uid"`
	Name      string    `gorm:"unique;not null"      json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
