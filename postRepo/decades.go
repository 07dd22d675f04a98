package postRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/lib/pq"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/khagerman/Nostalgia-Machine-backend/models"
)

// foreign_key_violation
const pqForeignKeyViolation = "23503"

func noDecade(id int64) string { return fmt.Sprintf("No decade: %d", id) }

func (ps *PostgresRepo) CreateDecade(ctx context.Context, decade models.Decade) (models.Decade, error) {
	var created models.Decade
	err := ps.primaryDB.QueryRowContext(ctx,
		`INSERT INTO decade (name, description) VALUES ($1, $2)
		RETURNING id, name, description`,
		decade.Name, decade.Description).Scan(&created.Id, &created.Name, &created.Description)
	if err != nil {
		log.Println("Error creating decade: ", err.Error())
		return models.Decade{}, err
	}
	return created, nil
}

func (ps *PostgresRepo) GetDecades(ctx context.Context) ([]models.Decade, error) {
	rows, err := ps.replicaDB.QueryContext(ctx,
		`SELECT id, name, description FROM decade ORDER BY id`)
	if err != nil {
		log.Println("Error reading decades: ", err.Error())
		return nil, err
	}
	defer rows.Close()
	decades := []models.Decade{}
	for rows.Next() {
		var d models.Decade
		if err := rows.Scan(&d.Id, &d.Name, &d.Description); err != nil {
			return nil, err
		}
		decades = append(decades, d)
	}
	return decades, rows.Err()
}

// GetDecade returns the decade with its posts, newest first.
func (ps *PostgresRepo) GetDecade(ctx context.Context, id int64) (models.DecadeDetail, error) {
	var decade models.DecadeDetail
	err := ps.replicaDB.QueryRowContext(ctx,
		`SELECT id, name, description FROM decade WHERE id = $1`, id).Scan(
		&decade.Id, &decade.Name, &decade.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DecadeDetail{}, status.Error(codes.NotFound, noDecade(id))
	}
	if err != nil {
		return models.DecadeDetail{}, err
	}

	rows, err := ps.replicaDB.QueryContext(ctx,
		`SELECT id, title, url FROM post WHERE decade_id = $1 ORDER BY id DESC`, id)
	if err != nil {
		log.Printf("Error reading posts of decade{%v} : %v\n", id, err.Error())
		return models.DecadeDetail{}, err
	}
	defer rows.Close()
	decade.Posts = []models.PostSummary{}
	for rows.Next() {
		var p models.PostSummary
		if err := rows.Scan(&p.Id, &p.Title, &p.Url); err != nil {
			return models.DecadeDetail{}, err
		}
		decade.Posts = append(decade.Posts, p)
	}
	return decade, rows.Err()
}

func (ps *PostgresRepo) UpdateDecade(ctx context.Context, id int64, update models.DecadeUpdate) (models.Decade, error) {
	var decade models.Decade
	err := ps.primaryDB.QueryRowContext(ctx,
		`UPDATE decade SET name = COALESCE($1, name), description = COALESCE($2, description)
		WHERE id = $3
		RETURNING id, name, description`,
		update.Name, update.Description, id).Scan(&decade.Id, &decade.Name, &decade.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Decade{}, status.Error(codes.NotFound, noDecade(id))
	}
	if err != nil {
		log.Printf("Error Updating decade{%v} : %v\n", id, err.Error())
		return models.Decade{}, err
	}
	return decade, nil
}

// DeleteDecade refuses to remove a decade posts are still filed under.
func (ps *PostgresRepo) DeleteDecade(ctx context.Context, id int64) error {
	res, err := ps.primaryDB.ExecContext(ctx, `DELETE FROM decade WHERE id = $1`, id)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
		return status.Error(codes.FailedPrecondition, fmt.Sprintf("Decade %d still has posts", id))
	}
	if err != nil {
		log.Printf("Error Deleting decade{%v} : %v\n", id, err.Error())
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return status.Error(codes.NotFound, noDecade(id))
	}
	return nil
}
