package entity

import "time"

// Follow - ребро графа подписок: FollowerID подписан на FolloweeID
type Follow struct {
	FollowerID uint      `gorm:"primaryKey" json:"followerId"`
	FolloweeID uint      `gorm:"primaryKey;index" json:"followeeId"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (Follow) TableName() string {
	return "follows"
}
