package userRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/khagerman/Nostalgia-Machine-backend/models"
)

var errInvalidCredentials = status.Error(codes.Unauthenticated, "Invalid username/password")

type PostgresRepo struct {
	db   *sql.DB
	cost int
	// compared against when the username is unknown, so a miss costs the
	// same as a wrong password
	dummyHash []byte
}

func NewPostgresRepo(db *sql.DB, cost int) (*PostgresRepo, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("nostalgia-machine"), cost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt cost %d: %w", cost, err)
	}
	return &PostgresRepo{
		db:        db,
		cost:      cost,
		dummyHash: dummy,
	}, nil
}

func (repo *PostgresRepo) Register(ctx context.Context, username, password string) (models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), repo.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return models.User{}, status.Error(codes.InvalidArgument, "Password too long")
	}
	if err != nil {
		return models.User{}, err
	}
	var created string
	err = repo.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password)
		VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING
		RETURNING username`,
		username, string(hashed)).Scan(&created)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, status.Error(codes.AlreadyExists, fmt.Sprintf("Duplicate username: %s", username))
	}
	if err != nil {
		log.Println("Error creating user: ", err.Error())
		return models.User{}, err
	}
	return models.User{Username: created, Posts: []models.PostSummary{}}, nil
}

func (repo *PostgresRepo) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	var hash string
	err := repo.db.QueryRowContext(ctx,
		`SELECT password FROM users WHERE username = $1`, username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		bcrypt.CompareHashAndPassword(repo.dummyHash, []byte(password))
		return models.User{}, errInvalidCredentials
	}
	if err != nil {
		log.Println("Error reading credentials: ", err.Error())
		return models.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return models.User{}, errInvalidCredentials
	}
	return models.User{Username: username}, nil
}

// Get returns the user with summaries of the posts they own, oldest first.
func (repo *PostgresRepo) Get(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := repo.db.QueryRowContext(ctx,
		`SELECT username FROM users WHERE username = $1`, username).Scan(&user.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, status.Error(codes.NotFound, fmt.Sprintf("No user: %s", username))
	}
	if err != nil {
		return models.User{}, err
	}

	rows, err := repo.db.QueryContext(ctx,
		`SELECT id, title, url FROM post WHERE username = $1 ORDER BY id`, username)
	if err != nil {
		log.Printf("Error reading posts of user{%v} : %v\n", username, err.Error())
		return models.User{}, err
	}
	defer rows.Close()
	user.Posts = []models.PostSummary{}
	for rows.Next() {
		var p models.PostSummary
		if err := rows.Scan(&p.Id, &p.Title, &p.Url); err != nil {
			return models.User{}, err
		}
		user.Posts = append(user.Posts, p)
	}
	return user, rows.Err()
}

// Remove deletes the account. Its favorites go with it; its posts and
// comments are handed to models.DeletedUser so threads stay readable.
func (repo *PostgresRepo) Remove(ctx context.Context, username string) error {
	if username == models.DeletedUser {
		return status.Error(codes.FailedPrecondition, fmt.Sprintf("Cannot remove %s", models.DeletedUser))
	}
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var locked string
	err = tx.QueryRowContext(ctx,
		`SELECT username FROM users WHERE username = $1 FOR UPDATE`, username).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return status.Error(codes.NotFound, fmt.Sprintf("No user: %s", username))
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_memory WHERE username = $1`, username); err != nil {
		log.Printf("Error Deleting favorites of user{%v} : %v\n", username, err.Error())
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE post SET username = $1 WHERE username = $2`, models.DeletedUser, username); err != nil {
		log.Printf("Error reassigning posts of user{%v} : %v\n", username, err.Error())
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE comments SET username = $1 WHERE username = $2`, models.DeletedUser, username); err != nil {
		log.Printf("Error reassigning comments of user{%v} : %v\n", username, err.Error())
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM users WHERE username = $1`, username); err != nil {
		log.Printf("Error Deleting user{%v} : %v\n", username, err.Error())
		return err
	}
	return tx.Commit()
}
