package postRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/khagerman/Nostalgia-Machine-backend/auth"
	"github.com/khagerman/Nostalgia-Machine-backend/models"
)

// PostgresRepo reads listings from the replica. Anything that decides
// existence or ownership goes to the primary.
type PostgresRepo struct {
	primaryDB *sql.DB
	replicaDB *sql.DB
	clock     clockwork.Clock
}

func NewPostgresRepo(primaryDB, replicaDB *sql.DB, clock clockwork.Clock) *PostgresRepo {
	if replicaDB == nil {
		replicaDB = primaryDB
	}
	return &PostgresRepo{
		primaryDB: primaryDB,
		replicaDB: replicaDB,
		clock:     clock,
	}
}

func (ps *PostgresRepo) Close() {
	if err := ps.primaryDB.Close(); err != nil {
		log.Println("Error closing PrimaryDB: ", err.Error())
	} else {
		log.Println("PrimaryDB closed Successfully")
	}
	if ps.replicaDB == ps.primaryDB {
		return
	}
	if err := ps.replicaDB.Close(); err != nil {
		log.Println("Error closing ReplicaDB: ", err.Error())
	} else {
		log.Println("ReplicaDB closed Successfully")
	}
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// requireRow fails with NotFound when query returns no row.
func requireRow(ctx context.Context, q rowQuerier, notFound string, query string, args ...any) error {
	var one int
	err := q.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return status.Error(codes.NotFound, notFound)
	}
	return err
}

// lockOwner runs an owner lookup that locks the row, then applies the
// ownership policy to the stored owner.
func lockOwner(ctx context.Context, tx *sql.Tx, caller, notFound, query string, args ...any) error {
	var owner string
	err := tx.QueryRowContext(ctx, query, args...).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return status.Error(codes.NotFound, notFound)
	}
	if err != nil {
		return err
	}
	return auth.Authorize(caller, owner)
}

func noUser(username string) string { return fmt.Sprintf("No user: %s", username) }
func noPost(id int64) string        { return fmt.Sprintf("No post: %d", id) }

const postColumns = `id, title, url, username, decade_id`

func scanPosts(rows *sql.Rows) ([]models.Post, error) {
	defer rows.Close()
	posts := []models.Post{}
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.Id, &p.Title, &p.Url, &p.Owner, &p.Decade_id); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (ps *PostgresRepo) CreatePost(ctx context.Context, post models.Post) (models.Post, error) {
	tx, err := ps.primaryDB.BeginTx(ctx, nil)
	if err != nil {
		return models.Post{}, err
	}
	defer tx.Rollback()

	if err := requireRow(ctx, tx, noUser(post.Owner),
		`SELECT 1 FROM users WHERE username = $1 FOR SHARE`, post.Owner); err != nil {
		return models.Post{}, err
	}
	if err := requireRow(ctx, tx, fmt.Sprintf("No decade: %d", post.Decade_id),
		`SELECT 1 FROM decade WHERE id = $1 FOR SHARE`, post.Decade_id); err != nil {
		return models.Post{}, err
	}

	var created models.Post
	err = tx.QueryRowContext(ctx,
		`INSERT INTO post (title, url, username, decade_id)
		VALUES ($1, $2, $3, $4)
		RETURNING `+postColumns,
		post.Title, post.Url, post.Owner, post.Decade_id).Scan(
		&created.Id, &created.Title, &created.Url, &created.Owner, &created.Decade_id)
	if err != nil {
		log.Println("Error creating post: ", err.Error())
		return models.Post{}, err
	}
	return created, tx.Commit()
}

// GetPost returns the post with its comments, oldest comment first.
func (ps *PostgresRepo) GetPost(ctx context.Context, id int64) (models.PostDetail, error) {
	var post models.PostDetail
	err := ps.primaryDB.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM post WHERE id = $1`, id).Scan(
		&post.Id, &post.Title, &post.Url, &post.Owner, &post.Decade_id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PostDetail{}, status.Error(codes.NotFound, noPost(id))
	}
	if err != nil {
		return models.PostDetail{}, err
	}

	rows, err := ps.primaryDB.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE post_id = $1 ORDER BY created, id`, id)
	if err != nil {
		log.Printf("Error reading comments of post{%v} : %v\n", id, err.Error())
		return models.PostDetail{}, err
	}
	post.Comments, err = scanComments(rows)
	if err != nil {
		return models.PostDetail{}, err
	}
	return post, nil
}

// UpdatePost changes only the fields set in update.
func (ps *PostgresRepo) UpdatePost(ctx context.Context, id int64, update models.PostUpdate, caller string) (models.Post, error) {
	tx, err := ps.primaryDB.BeginTx(ctx, nil)
	if err != nil {
		return models.Post{}, err
	}
	defer tx.Rollback()

	if err := lockOwner(ctx, tx, caller, noPost(id),
		`SELECT username FROM post WHERE id = $1 FOR UPDATE`, id); err != nil {
		return models.Post{}, err
	}

	var post models.Post
	err = tx.QueryRowContext(ctx,
		`UPDATE post SET title = COALESCE($1, title), url = COALESCE($2, url)
		WHERE id = $3
		RETURNING `+postColumns,
		update.Title, update.Url, id).Scan(
		&post.Id, &post.Title, &post.Url, &post.Owner, &post.Decade_id)
	if err != nil {
		log.Printf("Error Updating post{%v} : %v\n", id, err.Error())
		return models.Post{}, err
	}
	return post, tx.Commit()
}

// DeletePost removes the post; its comments and favorites cascade.
func (ps *PostgresRepo) DeletePost(ctx context.Context, id int64, caller string) error {
	tx, err := ps.primaryDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := lockOwner(ctx, tx, caller, noPost(id),
		`SELECT username FROM post WHERE id = $1 FOR UPDATE`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM post WHERE id = $1`, id); err != nil {
		log.Printf("Error Deleting post{%v} : %v\n", id, err.Error())
		return err
	}
	return tx.Commit()
}

// GetRecentPosts uses the id as the recency order.
func (ps *PostgresRepo) GetRecentPosts(ctx context.Context) ([]models.Post, error) {
	rows, err := ps.replicaDB.QueryContext(ctx,
		`SELECT `+postColumns+` FROM post ORDER BY id DESC LIMIT $1`, models.FeaturedLimit)
	if err != nil {
		log.Println("Error reading recent posts: ", err.Error())
		return nil, err
	}
	return scanPosts(rows)
}

// GetMostFavoritedPosts ranks favorited posts by favorite count, breaking
// ties by the lower post id, each with its comments. Posts nobody favorited
// are not listed.
func (ps *PostgresRepo) GetMostFavoritedPosts(ctx context.Context) ([]models.PostDetail, error) {
	rows, err := ps.replicaDB.QueryContext(ctx,
		`SELECT p.id, p.title, p.url, p.username, p.decade_id
		FROM post p
		JOIN (SELECT post_id, COUNT(*) AS favorites FROM user_memory GROUP BY post_id) f
			ON f.post_id = p.id
		ORDER BY f.favorites DESC, p.id ASC
		LIMIT $1`, models.FeaturedLimit)
	if err != nil {
		log.Println("Error reading most favorited posts: ", err.Error())
		return nil, err
	}
	posts, err := scanPosts(rows)
	if err != nil {
		return nil, err
	}
	loved := make([]models.PostDetail, len(posts))
	if len(posts) == 0 {
		return loved, nil
	}
	ids := make([]int64, len(posts))
	byId := make(map[int64]*models.PostDetail, len(posts))
	for i, p := range posts {
		ids[i] = p.Id
		loved[i] = models.PostDetail{Post: p, Comments: []models.Comment{}}
		byId[p.Id] = &loved[i]
	}

	rows, err = ps.replicaDB.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE post_id = ANY($1) ORDER BY created, id`,
		pq.Array(ids))
	if err != nil {
		log.Println("Error reading comments of most favorited posts: ", err.Error())
		return nil, err
	}
	comments, err := scanComments(rows)
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		if p, ok := byId[c.Post_id]; ok {
			p.Comments = append(p.Comments, c)
		}
	}
	return loved, nil
}
