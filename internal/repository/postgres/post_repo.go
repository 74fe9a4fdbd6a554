package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/social-api/internal/domain/entity"
	apperrors "github.com/yourusername/social-api/internal/pkg/errors"
)

// userSummaryColumns - поля автора/лайкнувшего, которые отдаются вместе с контентом
var userSummaryColumns = []string{"id", "first_name", "middle_name", "last_name", "profile_picture"}

// likeTable описывает join-таблицу лайков для одного уровня
type likeTable struct {
	table  string
	column string
}

var likeTables = map[entity.LikeTarget]likeTable{
	entity.LikeTargetPost:    {table: "post_likes", column: "post_id"},
	entity.LikeTargetComment: {table: "comment_likes", column: "comment_id"},
	entity.LikeTargetReply:   {table: "reply_likes", column: "reply_id"},
}

func selectUserSummary(db *gorm.DB) *gorm.DB {
	return db.Select(userSummaryColumns)
}

// PostRepo реализует repository.PostRepository
type PostRepo struct {
	db *gorm.DB
}

func NewPostRepo(db *gorm.DB) *PostRepo {
	return &PostRepo{db: db}
}

func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", apperrors.ErrNotFound, what)
	}
	return err
}

func (r *PostRepo) CreatePost(ctx context.Context, post *entity.Post) error {
	return r.db.WithContext(ctx).Omit("Likes").Create(post).Error
}

func (r *PostRepo) GetPost(ctx context.Context, postID uint) (*entity.Post, error) {
	var post entity.Post
	err := r.db.WithContext(ctx).
		Preload("Author", selectUserSummary).
		Preload("Likes", selectUserSummary).
		First(&post, postID).Error
	if err != nil {
		return nil, notFoundOr(err, "post")
	}
	return &post, nil
}

// ListPosts возвращает ленту: новые публикации первыми
func (r *PostRepo) ListPosts(ctx context.Context, limit, offset int) ([]entity.Post, error) {
	var posts []entity.Post
	err := r.db.WithContext(ctx).
		Preload("Author", selectUserSummary).
		Preload("Likes", selectUserSummary).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *PostRepo) UpdatePostContent(ctx context.Context, postID uint, content string) error {
	return r.db.WithContext(ctx).Model(&entity.Post{}).Where("id = ?", postID).Update("content", content).Error
}

// DeletePost удаляет публикацию вместе с комментариями, ответами и всеми лайками
func (r *PostRepo) DeletePost(ctx context.Context, postID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps := []func() error{
			func() error {
				return tx.Exec("DELETE FROM reply_likes WHERE reply_id IN (SELECT id FROM replies WHERE post_id = ?)", postID).Error
			},
			func() error { return tx.Where("post_id = ?", postID).Delete(&entity.Reply{}).Error },
			func() error {
				return tx.Exec("DELETE FROM comment_likes WHERE comment_id IN (SELECT id FROM comments WHERE post_id = ?)", postID).Error
			},
			func() error { return tx.Where("post_id = ?", postID).Delete(&entity.Comment{}).Error },
			func() error { return tx.Exec("DELETE FROM post_likes WHERE post_id = ?", postID).Error },
			func() error { return tx.Delete(&entity.Post{}, postID).Error },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostRepo) CreateComment(ctx context.Context, comment *entity.Comment) error {
	return r.db.WithContext(ctx).Omit("Likes").Create(comment).Error
}

func (r *PostRepo) GetComment(ctx context.Context, postID, commentID uint) (*entity.Comment, error) {
	var comment entity.Comment
	err := r.db.WithContext(ctx).
		Where("id = ? AND post_id = ?", commentID, postID).
		First(&comment).Error
	if err != nil {
		return nil, notFoundOr(err, "comment")
	}
	return &comment, nil
}

func (r *PostRepo) ListComments(ctx context.Context, postID uint) ([]entity.Comment, error) {
	var comments []entity.Comment
	err := r.db.WithContext(ctx).
		Preload("Author", selectUserSummary).
		Preload("Likes", selectUserSummary).
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

func (r *PostRepo) UpdateCommentContent(ctx context.Context, commentID uint, content string) error {
	return r.db.WithContext(ctx).Model(&entity.Comment{}).Where("id = ?", commentID).Update("content", content).Error
}

func (r *PostRepo) DeleteComment(ctx context.Context, commentID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM reply_likes WHERE reply_id IN (SELECT id FROM replies WHERE comment_id = ?)", commentID).Error; err != nil {
			return err
		}
		if err := tx.Where("comment_id = ?", commentID).Delete(&entity.Reply{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM comment_likes WHERE comment_id = ?", commentID).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.Comment{}, commentID).Error
	})
}

func (r *PostRepo) CreateReply(ctx context.Context, reply *entity.Reply) error {
	return r.db.WithContext(ctx).Omit("Likes").Create(reply).Error
}

func (r *PostRepo) GetReply(ctx context.Context, commentID, replyID uint) (*entity.Reply, error) {
	var reply entity.Reply
	err := r.db.WithContext(ctx).
		Where("id = ? AND comment_id = ?", replyID, commentID).
		First(&reply).Error
	if err != nil {
		return nil, notFoundOr(err, "reply")
	}
	return &reply, nil
}

func (r *PostRepo) ListReplies(ctx context.Context, commentID uint) ([]entity.Reply, error) {
	var replies []entity.Reply
	err := r.db.WithContext(ctx).
		Preload("Author", selectUserSummary).
		Preload("Likes", selectUserSummary).
		Where("comment_id = ?", commentID).
		Order("created_at ASC, id ASC").
		Find(&replies).Error
	return replies, err
}

func (r *PostRepo) UpdateReplyContent(ctx context.Context, replyID uint, content string) error {
	return r.db.WithContext(ctx).Model(&entity.Reply{}).Where("id = ?", replyID).Update("content", content).Error
}

func (r *PostRepo) DeleteReply(ctx context.Context, replyID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM reply_likes WHERE reply_id = ?", replyID).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.Reply{}, replyID).Error
	})
}

// ToggleLike снимает лайк, если он есть, иначе ставит.
// Параллельная постановка того же лайка гасится ON CONFLICT DO NOTHING.
func (r *PostRepo) ToggleLike(ctx context.Context, target entity.LikeTarget, targetID, userID uint) (bool, int64, error) {
	lt, ok := likeTables[target]
	if !ok {
		return false, 0, fmt.Errorf("%w: unknown like target %q", apperrors.ErrValidation, target)
	}

	var liked bool
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Table(lt.table).
			Where(lt.column+" = ? AND user_id = ?", targetID, userID).
			Count(&existing).Error; err != nil {
			return err
		}

		if existing > 0 {
			if err := tx.Exec("DELETE FROM "+lt.table+" WHERE "+lt.column+" = ? AND user_id = ?", targetID, userID).Error; err != nil {
				return err
			}
			liked = false
		} else {
			if err := tx.Exec("INSERT INTO "+lt.table+" ("+lt.column+", user_id) VALUES (?, ?) ON CONFLICT DO NOTHING", targetID, userID).Error; err != nil {
				return err
			}
			liked = true
		}

		return tx.Table(lt.table).Where(lt.column+" = ?", targetID).Count(&count).Error
	})
	if err != nil {
		return false, 0, err
	}
	return liked, count, nil
}

func (r *PostRepo) ListLikes(ctx context.Context, target entity.LikeTarget, targetID uint) ([]entity.User, error) {
	lt, ok := likeTables[target]
	if !ok {
		return nil, fmt.Errorf("%w: unknown like target %q", apperrors.ErrValidation, target)
	}

	var users []entity.User
	err := r.db.WithContext(ctx).
		Model(&entity.User{}).
		Select("users.id, users.first_name, users.middle_name, users.last_name, users.profile_picture").
		Joins("JOIN "+lt.table+" ON "+lt.table+".user_id = users.id").
		Where(lt.table+"."+lt.column+" = ?", targetID).
		Order("users.id").
		Find(&users).Error
	return users, err
}
