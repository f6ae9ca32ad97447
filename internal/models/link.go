package models

import (
	"time"
)

// Link короткая ссылка и её метаданные
type Link struct {
	Key         string     `json:"key"`
	URL         string     `json:"url"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Image       string     `json:"image,omitempty"`
	Archived    bool       `json:"archived"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	Clicks      int64      `json:"clicks"`
	UserID      *string    `json:"userId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// IsExpired сообщает, истёк ли срок действия ссылки на момент now
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}

// Redirectable сообщает, можно ли выполнять редирект по ссылке
func (l *Link) Redirectable(now time.Time) bool {
	return !l.Archived && !l.IsExpired(now)
}

type CreateLinkInput struct {
	URL       string
	Key       string
	ExpiresAt *time.Time
	UserID    *string
}

// Metadata данные страницы назначения для превью
type Metadata struct {
	Title       string
	Description string
	Image       string
}

// ListFilter параметры выборки ссылок
type ListFilter struct {
	UserID          string
	Search          string
	Sort            string
	Page            int
	IncludeArchived bool
}

// LinkPage одна страница результата выборки
type LinkPage struct {
	Links    []*Link `json:"links"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
	Total    int64   `json:"total"`
}
