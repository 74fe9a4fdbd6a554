package entity

import "time"

// LikeTarget определяет, к какому уровню относится лайк
type LikeTarget string

const (
	LikeTargetPost    LikeTarget = "post"
	LikeTargetComment LikeTarget = "comment"
	LikeTargetReply   LikeTarget = "reply"
)

// Post - публикация пользователя
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	Author    *User     `gorm:"foreignKey:UserID" json:"author,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Image     string    `gorm:"size:255;not null;default:''" json:"image"`
	Likes     []User    `gorm:"many2many:post_likes;" json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Post) TableName() string {
	return "posts"
}

// Comment - комментарий к публикации
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"postId"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	Author    *User     `gorm:"foreignKey:UserID" json:"author,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Likes     []User    `gorm:"many2many:comment_likes;" json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Comment) TableName() string {
	return "comments"
}

// Reply - ответ на комментарий
type Reply struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CommentID uint      `gorm:"not null;index" json:"commentId"`
	PostID    uint      `gorm:"not null;index" json:"postId"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	Author    *User     `gorm:"foreignKey:UserID" json:"author,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Likes     []User    `gorm:"many2many:reply_likes;" json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Reply) TableName() string {
	return "replies"
}
