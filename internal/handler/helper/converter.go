package helper

import (
	"github.com/yourusername/social-api/internal/domain/entity"
	"github.com/yourusername/social-api/internal/handler/dto"
)

// ToUserSummaries преобразует пользователей в краткое представление для списков
func ToUserSummaries(users []entity.User) []dto.UserSummaryDTO {
	converted := make([]dto.UserSummaryDTO, len(users))
	for i := range users {
		converted[i] = dto.UserSummaryDTO{
			ID:             users[i].ID,
			FullName:       users[i].FullName(),
			ProfilePicture: users[i].ProfilePicture,
		}
	}
	return converted
}

// ToUserList оборачивает список в ответ с количеством
func ToUserList(users []entity.User) dto.UserListResponse {
	return dto.UserListResponse{Users: ToUserSummaries(users), Total: len(users)}
}
