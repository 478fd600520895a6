package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fitsphere/backend/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrLinkNotFound  = errors.New("client-trainer link not found")
	ErrAlreadyLinked = errors.New("client already linked to trainer")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// AddUser creates the users row plus the role profile row (trainers / clients).
func (r *Repo) AddUser(ctx context.Context, user User, passwordHash string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.accounts.addUser")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.role", user.Role))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	rows, err := tx.Query(
		ctx,
		`INSERT INTO users (email, password_hash, role, name, created_at)
			VALUES ($1, $2, $3, $4, $5)
		RETURNING id;`,
		user.Email, passwordHash, user.Role, user.Name, user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	var id int
	if rows.Next() {
		if scanErr := rows.Scan(&id); scanErr != nil {
			rows.Close()
			return nil, fmt.Errorf("rows scan: %w", scanErr)
		}
	} else {
		rows.Close()
		if err = rows.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("unexpected error [no rows next]")
	}
	rows.Close()

	profileTable := "clients"
	if user.Role == "trainer" {
		profileTable = "trainers"
	}
	if _, err = tx.Exec(
		ctx,
		fmt.Sprintf(`INSERT INTO %s (user_id, created_at) VALUES ($1, $2);`, profileTable),
		id, user.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert %s profile: %w", profileTable, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	span.SetAttributes(attribute.Int("user.id", id))

	user.ID = id
	return &user, nil
}

func (r *Repo) GetUser(ctx context.Context, id int) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.accounts.getUser")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, email, role, name, created_at FROM users WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	users, err := r.rows2users(rows)
	if err != nil {
		return nil, err
	}

	if len(users) != 1 {
		return nil, ErrUserNotFound
	}

	return &users[0], nil
}

// FindLogin returns the credentials needed by the auth service to log a user in.
func (r *Repo) FindLogin(ctx context.Context, email string) (userID int, role, passwordHash string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.accounts.findLogin")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, role, password_hash FROM users WHERE email = $1;`,
		email,
	)
	if err != nil {
		return 0, "", "", err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return 0, "", "", err
	}

	if !rows.Next() {
		return 0, "", "", ErrUserNotFound
	}

	if err := rows.Scan(&userID, &role, &passwordHash); err != nil {
		return 0, "", "", fmt.Errorf("rows scan: %w", err)
	}

	return userID, role, passwordHash, nil
}

// ListClients returns all clients coached by the given trainer.
func (r *Repo) ListClients(ctx context.Context, trainerID int) (_ []User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.accounts.listClients")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("trainer.id", trainerID))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT u.id, u.email, u.role, u.name, u.created_at
			FROM users u
			JOIN client_trainers ct ON ct.client_id = u.id
			WHERE ct.trainer_id = $1
			ORDER BY u.created_at DESC;`,
		trainerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return r.rows2users(rows)
}

func (r *Repo) ClientsCount(ctx context.Context, trainerID int) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.accounts.clientsCount")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT COUNT(*) FROM client_trainers WHERE trainer_id = $1;`,
		trainerID,
	)
	if err != nil {
		return -1, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return -1, err
	}

	if rows.Next() {
		var count int
		if err := rows.Scan(&count); err == nil {
			return count, nil
		}
	}

	return -1, errors.New("unexpected error, failed to get clients count")
}

// IsLinked reports whether the client is currently coached by the trainer.
func (r *Repo) IsLinked(ctx context.Context, trainerID, clientID int) (_ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.accounts.isLinked")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT COUNT(*) FROM client_trainers WHERE trainer_id = $1 AND client_id = $2;`,
		trainerID, clientID,
	)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return false, err
	}

	if rows.Next() {
		var count int
		if err := rows.Scan(&count); err == nil {
			return count > 0, nil
		}
	}

	return false, errors.New("unexpected error, failed to get link status")
}

func (r *Repo) LinkClient(ctx context.Context, trainerID, clientID int) (_ *ClientLink, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.accounts.linkClient")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("trainer.id", trainerID))
	span.SetAttributes(attribute.Int("client.id", clientID))

	link := ClientLink{
		ClientID:  clientID,
		TrainerID: trainerID,
		CreatedAt: time.Now(),
	}

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO client_trainers (client_id, trainer_id, created_at)
			VALUES ($1, $2, $3)
		RETURNING id;`,
		link.ClientID, link.TrainerID, link.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	if err := rows.Scan(&link.ID); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	return &link, nil
}

func (r *Repo) UnlinkClient(ctx context.Context, trainerID, clientID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.accounts.unlinkClient")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM client_trainers WHERE trainer_id = $1 AND client_id = $2;`,
		trainerID, clientID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLinkNotFound
	}
	return nil
}

func (r *Repo) rows2users(rows pgx.Rows) ([]User, error) {
	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Role, &u.Name, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	if users == nil {
		users = make([]User, 0)
	}

	return users, nil
}
