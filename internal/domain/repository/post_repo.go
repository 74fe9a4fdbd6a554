package repository

import (
	"context"

	"github.com/yourusername/social-api/internal/domain/entity"
)

// PostRepository определяет методы для публикаций, комментариев, ответов и лайков
type PostRepository interface {
	CreatePost(ctx context.Context, post *entity.Post) error
	GetPost(ctx context.Context, postID uint) (*entity.Post, error)
	ListPosts(ctx context.Context, limit, offset int) ([]entity.Post, error)
	UpdatePostContent(ctx context.Context, postID uint, content string) error
	DeletePost(ctx context.Context, postID uint) error

	CreateComment(ctx context.Context, comment *entity.Comment) error
	// GetComment ищет комментарий только внутри указанной публикации
	GetComment(ctx context.Context, postID, commentID uint) (*entity.Comment, error)
	ListComments(ctx context.Context, postID uint) ([]entity.Comment, error)
	UpdateCommentContent(ctx context.Context, commentID uint, content string) error
	DeleteComment(ctx context.Context, commentID uint) error

	CreateReply(ctx context.Context, reply *entity.Reply) error
	GetReply(ctx context.Context, commentID, replyID uint) (*entity.Reply, error)
	ListReplies(ctx context.Context, commentID uint) ([]entity.Reply, error)
	UpdateReplyContent(ctx context.Context, replyID uint, content string) error
	DeleteReply(ctx context.Context, replyID uint) error

	// ToggleLike ставит или снимает лайк; возвращает новое состояние и число лайков
	ToggleLike(ctx context.Context, target entity.LikeTarget, targetID, userID uint) (bool, int64, error)
	ListLikes(ctx context.Context, target entity.LikeTarget, targetID uint) ([]entity.User, error)
}
