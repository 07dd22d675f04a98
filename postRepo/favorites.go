package postRepo

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/khagerman/Nostalgia-Machine-backend/models"
)

// lockFavoriteTargets share-locks the user and the post of a favorite so
// neither disappears before the transaction commits.
func lockFavoriteTargets(ctx context.Context, tx *sql.Tx, username string, postID int64) error {
	if err := requireRow(ctx, tx, noUser(username),
		`SELECT 1 FROM users WHERE username = $1 FOR SHARE`, username); err != nil {
		return err
	}
	return requireRow(ctx, tx, noPost(postID),
		`SELECT 1 FROM post WHERE id = $1 FOR SHARE`, postID)
}

// AddFavorite fails with AlreadyExists when the pair is already stored.
func (ps *PostgresRepo) AddFavorite(ctx context.Context, username string, postID int64) error {
	tx, err := ps.primaryDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := lockFavoriteTargets(ctx, tx, username, postID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO user_memory (username, post_id) VALUES ($1, $2)
		ON CONFLICT (username, post_id) DO NOTHING`, username, postID)
	if err != nil {
		log.Println("Error creating Favorite: ", err.Error())
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return status.Error(codes.AlreadyExists, fmt.Sprintf("Post %d is already a favorite", postID))
	}
	return tx.Commit()
}

// RemoveFavorite fails with FailedPrecondition, not NotFound, when the
// pair is not stored: both the user and the post exist.
func (ps *PostgresRepo) RemoveFavorite(ctx context.Context, username string, postID int64) error {
	tx, err := ps.primaryDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := lockFavoriteTargets(ctx, tx, username, postID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM user_memory WHERE username = $1 AND post_id = $2`, username, postID)
	if err != nil {
		log.Printf("Error Deleting favorite of user{%v} for post{%v} : %v\n", username, postID, err.Error())
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return status.Error(codes.FailedPrecondition, fmt.Sprintf("Post %d is not a favorite", postID))
	}
	return tx.Commit()
}

func (ps *PostgresRepo) GetFavorites(ctx context.Context, username string) ([]models.Post, error) {
	if err := requireRow(ctx, ps.primaryDB, noUser(username),
		`SELECT 1 FROM users WHERE username = $1`, username); err != nil {
		return nil, err
	}
	rows, err := ps.primaryDB.QueryContext(ctx,
		`SELECT p.id, p.title, p.url, p.username, p.decade_id
		FROM user_memory m
		JOIN post p ON p.id = m.post_id
		WHERE m.username = $1
		ORDER BY p.id`, username)
	if err != nil {
		log.Printf("Error reading favorites of user{%v} : %v\n", username, err.Error())
		return nil, err
	}
	return scanPosts(rows)
}
