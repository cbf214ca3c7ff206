package model

import "time"

// Confession は24時間で消える匿名の告白を表す。
type Confession struct {
	ID        string
	AuthorID  string
	Message   string
	CreatedAt time.Time
	ExpiresAt time.Time
	IsOwn     bool
}
