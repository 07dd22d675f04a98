package postRepo

import (
	"context"

	"github.com/khagerman/Nostalgia-Machine-backend/models"
)

// PersistenceDB is the content store. Update and delete operations take the
// caller and check it against the stored owner; a missing row is reported
// before a wrong owner.
type PersistenceDB interface {
	CreatePost(ctx context.Context, post models.Post) (models.Post, error)
	GetPost(ctx context.Context, id int64) (models.PostDetail, error)
	UpdatePost(ctx context.Context, id int64, update models.PostUpdate, caller string) (models.Post, error)
	DeletePost(ctx context.Context, id int64, caller string) error
	GetRecentPosts(ctx context.Context) ([]models.Post, error)
	GetMostFavoritedPosts(ctx context.Context) ([]models.PostDetail, error)

	CreateComment(ctx context.Context, comment models.Comment) (models.Comment, error)
	GetComment(ctx context.Context, postID, id int64) (models.Comment, error)
	UpdateComment(ctx context.Context, postID, id int64, text, caller string) (models.Comment, error)
	DeleteComment(ctx context.Context, postID, id int64, caller string) error

	AddFavorite(ctx context.Context, username string, postID int64) error
	RemoveFavorite(ctx context.Context, username string, postID int64) error
	GetFavorites(ctx context.Context, username string) ([]models.Post, error)

	CreateDecade(ctx context.Context, decade models.Decade) (models.Decade, error)
	GetDecades(ctx context.Context) ([]models.Decade, error)
	GetDecade(ctx context.Context, id int64) (models.DecadeDetail, error)
	UpdateDecade(ctx context.Context, id int64, update models.DecadeUpdate) (models.Decade, error)
	DeleteDecade(ctx context.Context, id int64) error

	Close()
}
