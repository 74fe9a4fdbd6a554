package service

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"strings"

	"github.com/yourusername/social-api/internal/domain/entity"
	"github.com/yourusername/social-api/internal/domain/repository"
	apperrors "github.com/yourusername/social-api/internal/pkg/errors"
	"github.com/yourusername/social-api/internal/websocket"
)

const (
	defaultPostsLimit = 20
	maxPostsLimit     = 100
	maxContentLength  = 5000
)

// LikeResult - состояние лайка после переключения
type LikeResult struct {
	Liked bool  `json:"liked"`
	Count int64 `json:"count"`
}

// PostService управляет публикациями, комментариями, ответами и лайками
type PostService struct {
	postRepo repository.PostRepository
	uploads  *UploadService
	notifier EventNotifier
}

// NewPostService создает сервис публикаций; uploads и notifier могут быть nil
func NewPostService(postRepo repository.PostRepository, uploads *UploadService, notifier EventNotifier) *PostService {
	return &PostService{
		postRepo: postRepo,
		uploads:  uploads,
		notifier: notifierOrNoop(notifier),
	}
}

func normalizeContent(content string, required bool) (string, error) {
	content = strings.TrimSpace(content)
	if required && content == "" {
		return "", fmt.Errorf("%w: content is required", apperrors.ErrValidation)
	}
	if len([]rune(content)) > maxContentLength {
		return "", fmt.Errorf("%w: content exceeds %d characters", apperrors.ErrValidation, maxContentLength)
	}
	return content, nil
}

func forbidden(what string) error {
	return fmt.Errorf("%w: only the author can modify this %s", apperrors.ErrForbidden, what)
}

// --- Публикации ---

// CreatePost создает публикацию; image необязателен, но пустая публикация без изображения недопустима
func (s *PostService) CreatePost(ctx context.Context, userID uint, content string, image *multipart.FileHeader) (*entity.Post, error) {
	content, err := normalizeContent(content, image == nil)
	if err != nil {
		return nil, err
	}

	post := &entity.Post{UserID: userID, Content: content}
	if image != nil {
		if s.uploads == nil {
			return nil, fmt.Errorf("uploads are not configured")
		}
		url, err := s.uploads.SaveImage(userID, image)
		if err != nil {
			return nil, err
		}
		post.Image = url
	}

	if err := s.postRepo.CreatePost(ctx, post); err != nil {
		if post.Image != "" {
			s.uploads.Remove(post.Image)
		}
		return nil, err
	}
	log.Printf("[PostService] Пользователь %d создал публикацию %d", userID, post.ID)
	return s.postRepo.GetPost(ctx, post.ID)
}

// ListPosts возвращает ленту публикаций, новые первыми
func (s *PostService) ListPosts(ctx context.Context, limit, offset int) ([]entity.Post, error) {
	if limit <= 0 {
		limit = defaultPostsLimit
	}
	if limit > maxPostsLimit {
		limit = maxPostsLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.postRepo.ListPosts(ctx, limit, offset)
}

// GetPost возвращает публикацию с автором и лайками
func (s *PostService) GetPost(ctx context.Context, postID uint) (*entity.Post, error) {
	return s.postRepo.GetPost(ctx, postID)
}

// UpdatePost меняет текст публикации (только автор)
func (s *PostService) UpdatePost(ctx context.Context, actorID, postID uint, content string) (*entity.Post, error) {
	post, err := s.postRepo.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != actorID {
		return nil, forbidden("post")
	}
	content, err = normalizeContent(content, post.Image == "")
	if err != nil {
		return nil, err
	}
	if err := s.postRepo.UpdatePostContent(ctx, postID, content); err != nil {
		return nil, err
	}
	return s.postRepo.GetPost(ctx, postID)
}

// DeletePost удаляет публикацию вместе с комментариями, ответами и лайками (только автор)
func (s *PostService) DeletePost(ctx context.Context, actorID, postID uint) error {
	post, err := s.postRepo.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != actorID {
		return forbidden("post")
	}
	if err := s.postRepo.DeletePost(ctx, postID); err != nil {
		return err
	}
	if post.Image != "" && s.uploads != nil {
		s.uploads.Remove(post.Image)
	}
	log.Printf("[PostService] Публикация %d удалена автором %d", postID, actorID)
	return nil
}

// TogglePostLike ставит или снимает лайк публикации
func (s *PostService) TogglePostLike(ctx context.Context, userID, postID uint) (*LikeResult, error) {
	post, err := s.postRepo.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	result, err := s.toggle(ctx, entity.LikeTargetPost, postID, userID)
	if err != nil {
		return nil, err
	}
	if result.Liked {
		s.notify(post.UserID, userID, websocket.POST_LIKED, map[string]interface{}{
			"postId": postID, "userId": userID, "count": result.Count,
		})
	}
	return result, nil
}

// ListPostLikes возвращает пользователей, лайкнувших публикацию
func (s *PostService) ListPostLikes(ctx context.Context, postID uint) ([]entity.User, error) {
	if _, err := s.postRepo.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	return s.postRepo.ListLikes(ctx, entity.LikeTargetPost, postID)
}

// --- Комментарии ---

// AddComment добавляет комментарий к публикации
func (s *PostService) AddComment(ctx context.Context, userID, postID uint, content string) (*entity.Comment, error) {
	content, err := normalizeContent(content, true)
	if err != nil {
		return nil, err
	}
	post, err := s.postRepo.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	comment := &entity.Comment{PostID: postID, UserID: userID, Content: content}
	if err := s.postRepo.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	s.notify(post.UserID, userID, websocket.COMMENT_ADDED, map[string]interface{}{
		"postId": postID, "commentId": comment.ID, "userId": userID,
	})
	return s.postRepo.GetComment(ctx, postID, comment.ID)
}

// ListComments возвращает комментарии публикации
func (s *PostService) ListComments(ctx context.Context, postID uint) ([]entity.Comment, error) {
	if _, err := s.postRepo.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	return s.postRepo.ListComments(ctx, postID)
}

// UpdateComment меняет текст комментария (только автор)
func (s *PostService) UpdateComment(ctx context.Context, actorID, postID, commentID uint, content string) (*entity.Comment, error) {
	comment, err := s.postRepo.GetComment(ctx, postID, commentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != actorID {
		return nil, forbidden("comment")
	}
	content, err = normalizeContent(content, true)
	if err != nil {
		return nil, err
	}
	if err := s.postRepo.UpdateCommentContent(ctx, commentID, content); err != nil {
		return nil, err
	}
	return s.postRepo.GetComment(ctx, postID, commentID)
}

// DeleteComment удаляет комментарий вместе с ответами (только автор)
func (s *PostService) DeleteComment(ctx context.Context, actorID, postID, commentID uint) error {
	comment, err := s.postRepo.GetComment(ctx, postID, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != actorID {
		return forbidden("comment")
	}
	return s.postRepo.DeleteComment(ctx, commentID)
}

// ToggleCommentLike ставит или снимает лайк комментария
func (s *PostService) ToggleCommentLike(ctx context.Context, userID, postID, commentID uint) (*LikeResult, error) {
	comment, err := s.postRepo.GetComment(ctx, postID, commentID)
	if err != nil {
		return nil, err
	}
	result, err := s.toggle(ctx, entity.LikeTargetComment, commentID, userID)
	if err != nil {
		return nil, err
	}
	if result.Liked {
		s.notify(comment.UserID, userID, websocket.COMMENT_LIKED, map[string]interface{}{
			"postId": postID, "commentId": commentID, "userId": userID, "count": result.Count,
		})
	}
	return result, nil
}

// ListCommentLikes возвращает пользователей, лайкнувших комментарий
func (s *PostService) ListCommentLikes(ctx context.Context, postID, commentID uint) ([]entity.User, error) {
	if _, err := s.postRepo.GetComment(ctx, postID, commentID); err != nil {
		return nil, err
	}
	return s.postRepo.ListLikes(ctx, entity.LikeTargetComment, commentID)
}

// --- Ответы ---

// AddReply добавляет ответ на комментарий
func (s *PostService) AddReply(ctx context.Context, userID, postID, commentID uint, content string) (*entity.Reply, error) {
	content, err := normalizeContent(content, true)
	if err != nil {
		return nil, err
	}
	comment, err := s.postRepo.GetComment(ctx, postID, commentID)
	if err != nil {
		return nil, err
	}

	reply := &entity.Reply{CommentID: commentID, PostID: postID, UserID: userID, Content: content}
	if err := s.postRepo.CreateReply(ctx, reply); err != nil {
		return nil, err
	}
	s.notify(comment.UserID, userID, websocket.REPLY_ADDED, map[string]interface{}{
		"postId": postID, "commentId": commentID, "replyId": reply.ID, "userId": userID,
	})
	return s.postRepo.GetReply(ctx, commentID, reply.ID)
}

// ListReplies возвращает ответы на комментарий
func (s *PostService) ListReplies(ctx context.Context, postID, commentID uint) ([]entity.Reply, error) {
	if _, err := s.postRepo.GetComment(ctx, postID, commentID); err != nil {
		return nil, err
	}
	return s.postRepo.ListReplies(ctx, commentID)
}

// UpdateReply меняет текст ответа (только автор)
func (s *PostService) UpdateReply(ctx context.Context, actorID, postID, commentID, replyID uint, content string) (*entity.Reply, error) {
	reply, err := s.getReply(ctx, postID, commentID, replyID)
	if err != nil {
		return nil, err
	}
	if reply.UserID != actorID {
		return nil, forbidden("reply")
	}
	content, err = normalizeContent(content, true)
	if err != nil {
		return nil, err
	}
	if err := s.postRepo.UpdateReplyContent(ctx, replyID, content); err != nil {
		return nil, err
	}
	return s.postRepo.GetReply(ctx, commentID, replyID)
}

// DeleteReply удаляет ответ (только автор)
func (s *PostService) DeleteReply(ctx context.Context, actorID, postID, commentID, replyID uint) error {
	reply, err := s.getReply(ctx, postID, commentID, replyID)
	if err != nil {
		return err
	}
	if reply.UserID != actorID {
		return forbidden("reply")
	}
	return s.postRepo.DeleteReply(ctx, replyID)
}

// ToggleReplyLike ставит или снимает лайк ответа
func (s *PostService) ToggleReplyLike(ctx context.Context, userID, postID, commentID, replyID uint) (*LikeResult, error) {
	reply, err := s.getReply(ctx, postID, commentID, replyID)
	if err != nil {
		return nil, err
	}
	result, err := s.toggle(ctx, entity.LikeTargetReply, replyID, userID)
	if err != nil {
		return nil, err
	}
	if result.Liked {
		s.notify(reply.UserID, userID, websocket.REPLY_LIKED, map[string]interface{}{
			"postId": postID, "commentId": commentID, "replyId": replyID, "userId": userID, "count": result.Count,
		})
	}
	return result, nil
}

// ListReplyLikes возвращает пользователей, лайкнувших ответ
func (s *PostService) ListReplyLikes(ctx context.Context, postID, commentID, replyID uint) ([]entity.User, error) {
	if _, err := s.getReply(ctx, postID, commentID, replyID); err != nil {
		return nil, err
	}
	return s.postRepo.ListLikes(ctx, entity.LikeTargetReply, replyID)
}

// getReply ищет ответ и проверяет, что он принадлежит указанной публикации
func (s *PostService) getReply(ctx context.Context, postID, commentID, replyID uint) (*entity.Reply, error) {
	reply, err := s.postRepo.GetReply(ctx, commentID, replyID)
	if err != nil {
		return nil, err
	}
	if reply.PostID != postID {
		return nil, fmt.Errorf("%w: reply %d not found in post %d", apperrors.ErrNotFound, replyID, postID)
	}
	return reply, nil
}

func (s *PostService) toggle(ctx context.Context, target entity.LikeTarget, targetID, userID uint) (*LikeResult, error) {
	liked, count, err := s.postRepo.ToggleLike(ctx, target, targetID, userID)
	if err != nil {
		return nil, err
	}
	return &LikeResult{Liked: liked, Count: count}, nil
}

// notify не уведомляет пользователя о его собственных действиях
func (s *PostService) notify(recipientID, actorID uint, eventType string, data interface{}) {
	if recipientID == actorID {
		return
	}
	s.notifier.NotifyUser(recipientID, eventType, data)
}
