package postRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/khagerman/Nostalgia-Machine-backend/models"
)

const commentColumns = `id, text, username, post_id, created`

func noComment(id int64) string { return fmt.Sprintf("No comment: %d", id) }

func scanComment(row *sql.Row) (models.Comment, error) {
	var c models.Comment
	err := row.Scan(&c.Id, &c.Text, &c.Owner, &c.Post_id, &c.Created_at)
	return c, err
}

func scanComments(rows *sql.Rows) ([]models.Comment, error) {
	defer rows.Close()
	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.Id, &c.Text, &c.Owner, &c.Post_id, &c.Created_at); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (ps *PostgresRepo) CreateComment(ctx context.Context, comment models.Comment) (models.Comment, error) {
	tx, err := ps.primaryDB.BeginTx(ctx, nil)
	if err != nil {
		return models.Comment{}, err
	}
	defer tx.Rollback()

	if err := requireRow(ctx, tx, noUser(comment.Owner),
		`SELECT 1 FROM users WHERE username = $1 FOR SHARE`, comment.Owner); err != nil {
		return models.Comment{}, err
	}
	if err := requireRow(ctx, tx, noPost(comment.Post_id),
		`SELECT 1 FROM post WHERE id = $1 FOR SHARE`, comment.Post_id); err != nil {
		return models.Comment{}, err
	}

	created, err := scanComment(tx.QueryRowContext(ctx,
		`INSERT INTO comments (text, username, post_id, created)
		VALUES ($1, $2, $3, $4)
		RETURNING `+commentColumns,
		comment.Text, comment.Owner, comment.Post_id, ps.clock.Now().UTC()))
	if err != nil {
		log.Println("Error creating Comment: ", err.Error())
		return models.Comment{}, err
	}
	return created, tx.Commit()
}

// GetComment only finds the comment under the post it was made on.
func (ps *PostgresRepo) GetComment(ctx context.Context, postID, id int64) (models.Comment, error) {
	comment, err := scanComment(ps.primaryDB.QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = $1 AND post_id = $2`, id, postID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Comment{}, status.Error(codes.NotFound, noComment(id))
	}
	return comment, err
}

func (ps *PostgresRepo) UpdateComment(ctx context.Context, postID, id int64, text, caller string) (models.Comment, error) {
	tx, err := ps.primaryDB.BeginTx(ctx, nil)
	if err != nil {
		return models.Comment{}, err
	}
	defer tx.Rollback()

	if err := lockOwner(ctx, tx, caller, noComment(id),
		`SELECT username FROM comments WHERE id = $1 AND post_id = $2 FOR UPDATE`, id, postID); err != nil {
		return models.Comment{}, err
	}
	comment, err := scanComment(tx.QueryRowContext(ctx,
		`UPDATE comments SET text = $1 WHERE id = $2 RETURNING `+commentColumns, text, id))
	if err != nil {
		log.Printf("Error Updating comment{%v} : %v\n", id, err.Error())
		return models.Comment{}, err
	}
	return comment, tx.Commit()
}

func (ps *PostgresRepo) DeleteComment(ctx context.Context, postID, id int64, caller string) error {
	tx, err := ps.primaryDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := lockOwner(ctx, tx, caller, noComment(id),
		`SELECT username FROM comments WHERE id = $1 AND post_id = $2 FOR UPDATE`, id, postID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id); err != nil {
		log.Printf("Error Deleting comment{%v} : %v\n", id, err.Error())
		return err
	}
	return tx.Commit()
}
