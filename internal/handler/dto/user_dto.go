package dto

// UserSummaryDTO - краткое представление пользователя в списках подписчиков и лайков
type UserSummaryDTO struct {
	ID             uint   `json:"id"`
	FullName       string `json:"fullName"`
	ProfilePicture string `json:"profilePicture"`
}

// UserListResponse - список пользователей с общим количеством
type UserListResponse struct {
	Users []UserSummaryDTO `json:"users"`
	Total int              `json:"total"`
}

// FollowToggleResponse - результат подписки/отписки
type FollowToggleResponse struct {
	Message        string `json:"message"`
	Following      bool   `json:"following"`
	FollowerCount  int64  `json:"followerCount"`
	FollowingCount int64  `json:"followingCount"`
}
