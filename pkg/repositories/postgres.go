package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gridstake/gridstake/pkg/game"
	"github.com/gridstake/gridstake/pkg/log"
	"github.com/gridstake/gridstake/pkg/repositories/models"
	"github.com/jackc/pgx/v5"
	"github.com/klauspost/compress/zstd"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS tokens (token TEXT PRIMARY KEY, record JSONB NOT NULL);`,
	`CREATE TABLE IF NOT EXISTS availability (account TEXT PRIMARY KEY, record JSONB NOT NULL);`,
	`CREATE TABLE IF NOT EXISTS games (id BIGINT PRIMARY KEY, record JSONB NOT NULL);`,
	`CREATE TABLE IF NOT EXISTS stats (account TEXT PRIMARY KEY, record JSONB NOT NULL);`,
	`CREATE TABLE IF NOT EXISTS archive (seq BIGSERIAL PRIMARY KEY, record BYTEA NOT NULL);`,
	`CREATE TABLE IF NOT EXISTS counters (name TEXT PRIMARY KEY, value BIGINT NOT NULL);`,
}

type PostgresRepository struct {
	conn *pgx.Conn
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

// NewPostgresRepository connects to the database and ensures the schema
// exists. The caller is responsible for calling Close() on the repository.
func NewPostgresRepository(ctx context.Context, connStr string) (Repository, error) {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	var username string
	var database string
	if err := conn.QueryRow(ctx, "SELECT current_user, current_database()").Scan(&username, &database); err != nil {
		return nil, fmt.Errorf("failed to query database: %v", err)
	}
	log.Info("Connected to %s as %s", database, username)

	for _, stmt := range postgresSchema {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %v", err)
		}
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %v", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %v", err)
	}

	return &PostgresRepository{conn: conn, enc: enc, dec: dec}, nil
}

func (r *PostgresRepository) Close(ctx context.Context) error {
	return r.conn.Close(ctx)
}

func (r *PostgresRepository) WhitelistToken(ctx context.Context, token string, minDeposit uint64) error {
	record, err := json.Marshal(&models.Token{Token: token, MinDeposit: minDeposit})
	if err != nil {
		return fmt.Errorf("failed to encode token: %v", err)
	}
	q := `
	INSERT INTO tokens (token, record) VALUES ($1, $2)
	ON CONFLICT (token) DO UPDATE SET record = $2;
	`
	if _, err := r.conn.Exec(ctx, q, token, record); err != nil {
		return fmt.Errorf("failed to insert token: %v", err)
	}
	return nil
}

func (r *PostgresRepository) MinDeposit(ctx context.Context, token string) (uint64, error) {
	var record []byte
	q := `SELECT record FROM tokens WHERE token = $1;`
	if err := r.conn.QueryRow(ctx, q, token).Scan(&record); err != nil {
		if err == pgx.ErrNoRows {
			return 0, &ErrNotFound{}
		}
		return 0, fmt.Errorf("failed to scan token: %v", err)
	}
	var t models.Token
	if err := json.Unmarshal(record, &t); err != nil {
		return 0, fmt.Errorf("failed to decode token: %v", err)
	}
	return t.MinDeposit, nil
}

func (r *PostgresRepository) ListTokens(ctx context.Context) ([]*models.Token, error) {
	rows, err := r.conn.Query(ctx, `SELECT record FROM tokens ORDER BY token;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %v", err)
	}
	defer rows.Close()

	var tokens []*models.Token
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan token: %v", err)
		}
		t := &models.Token{}
		if err := json.Unmarshal(record, t); err != nil {
			return nil, fmt.Errorf("failed to decode token: %v", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (r *PostgresRepository) PutAvailability(ctx context.Context, a *models.Availability) error {
	record, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode availability: %v", err)
	}
	q := `
	INSERT INTO availability (account, record) VALUES ($1, $2)
	ON CONFLICT (account) DO UPDATE SET record = $2;
	`
	if _, err := r.conn.Exec(ctx, q, a.Account, record); err != nil {
		return fmt.Errorf("failed to insert availability: %v", err)
	}
	return nil
}

func (r *PostgresRepository) GetAvailability(ctx context.Context, account string) (*models.Availability, error) {
	var record []byte
	q := `SELECT record FROM availability WHERE account = $1;`
	if err := r.conn.QueryRow(ctx, q, account).Scan(&record); err != nil {
		if err == pgx.ErrNoRows {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan availability: %v", err)
	}
	a := &models.Availability{}
	if err := json.Unmarshal(record, a); err != nil {
		return nil, fmt.Errorf("failed to decode availability: %v", err)
	}
	return a, nil
}

func (r *PostgresRepository) DeleteAvailability(ctx context.Context, account string) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM availability WHERE account = $1;`, account)
	if err != nil {
		return fmt.Errorf("failed to delete availability: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{}
	}
	return nil
}

func (r *PostgresRepository) ListAvailability(ctx context.Context) ([]*models.Availability, error) {
	rows, err := r.conn.Query(ctx, `SELECT record FROM availability ORDER BY account;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query availability: %v", err)
	}
	defer rows.Close()

	var list []*models.Availability
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan availability: %v", err)
		}
		a := &models.Availability{}
		if err := json.Unmarshal(record, a); err != nil {
			return nil, fmt.Errorf("failed to decode availability: %v", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) NextGameID(ctx context.Context) (uint64, error) {
	q := `
	INSERT INTO counters (name, value) VALUES ('game_id', 1)
	ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
	RETURNING value;
	`
	var id int64
	if err := r.conn.QueryRow(ctx, q).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to advance game counter: %v", err)
	}
	return uint64(id), nil
}

func (r *PostgresRepository) PutGame(ctx context.Context, g *game.Session) error {
	record, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to encode game: %v", err)
	}
	q := `
	INSERT INTO games (id, record) VALUES ($1, $2)
	ON CONFLICT (id) DO UPDATE SET record = $2;
	`
	if _, err := r.conn.Exec(ctx, q, int64(g.ID), record); err != nil {
		return fmt.Errorf("failed to insert game: %v", err)
	}
	return nil
}

func (r *PostgresRepository) GetGame(ctx context.Context, id uint64) (*game.Session, error) {
	var record []byte
	q := `SELECT record FROM games WHERE id = $1;`
	if err := r.conn.QueryRow(ctx, q, int64(id)).Scan(&record); err != nil {
		if err == pgx.ErrNoRows {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan game: %v", err)
	}
	g := &game.Session{}
	if err := json.Unmarshal(record, g); err != nil {
		return nil, fmt.Errorf("failed to decode game: %v", err)
	}
	return g, nil
}

func (r *PostgresRepository) DeleteGame(ctx context.Context, id uint64) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM games WHERE id = $1;`, int64(id))
	if err != nil {
		return fmt.Errorf("failed to delete game: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{}
	}
	return nil
}

func (r *PostgresRepository) ListGames(ctx context.Context) ([]*game.Session, error) {
	rows, err := r.conn.Query(ctx, `SELECT record FROM games ORDER BY id;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %v", err)
	}
	defer rows.Close()

	var list []*game.Session
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan game: %v", err)
		}
		g := &game.Session{}
		if err := json.Unmarshal(record, g); err != nil {
			return nil, fmt.Errorf("failed to decode game: %v", err)
		}
		list = append(list, g)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) GetStats(ctx context.Context, account string) (*models.Stats, error) {
	var record []byte
	q := `SELECT record FROM stats WHERE account = $1;`
	if err := r.conn.QueryRow(ctx, q, account).Scan(&record); err != nil {
		if err == pgx.ErrNoRows {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan stats: %v", err)
	}
	s := &models.Stats{}
	if err := json.Unmarshal(record, s); err != nil {
		return nil, fmt.Errorf("failed to decode stats: %v", err)
	}
	return s, nil
}

func (r *PostgresRepository) PutStats(ctx context.Context, s *models.Stats) error {
	record, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %v", err)
	}
	q := `
	INSERT INTO stats (account, record) VALUES ($1, $2)
	ON CONFLICT (account) DO UPDATE SET record = $2;
	`
	if _, err := r.conn.Exec(ctx, q, s.Account, record); err != nil {
		return fmt.Errorf("failed to insert stats: %v", err)
	}
	return nil
}

func (r *PostgresRepository) ListStats(ctx context.Context) ([]*models.Stats, error) {
	rows, err := r.conn.Query(ctx, `SELECT record FROM stats ORDER BY account;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %v", err)
	}
	defer rows.Close()

	var list []*models.Stats
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %v", err)
		}
		s := &models.Stats{}
		if err := json.Unmarshal(record, s); err != nil {
			return nil, fmt.Errorf("failed to decode stats: %v", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) AppendArchive(ctx context.Context, g *models.ArchivedGame) error {
	record, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to encode archived game: %v", err)
	}
	compressed := r.enc.EncodeAll(record, nil)
	if _, err := r.conn.Exec(ctx, `INSERT INTO archive (record) VALUES ($1);`, compressed); err != nil {
		return fmt.Errorf("failed to insert archived game: %v", err)
	}
	return nil
}

func (r *PostgresRepository) ListArchive(ctx context.Context) ([]*models.ArchivedGame, error) {
	rows, err := r.conn.Query(ctx, `SELECT record FROM archive ORDER BY seq;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %v", err)
	}
	defer rows.Close()

	var list []*models.ArchivedGame
	for rows.Next() {
		var compressed []byte
		if err := rows.Scan(&compressed); err != nil {
			return nil, fmt.Errorf("failed to scan archived game: %v", err)
		}
		record, err := r.dec.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress archived game: %v", err)
		}
		g := &models.ArchivedGame{}
		if err := json.Unmarshal(record, g); err != nil {
			return nil, fmt.Errorf("failed to decode archived game: %v", err)
		}
		list = append(list, g)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) CountArchive(ctx context.Context) (int, error) {
	var count int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM archive;`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count archive: %v", err)
	}
	return count, nil
}

func (r *PostgresRepository) TrimArchive(ctx context.Context, max int) error {
	q := `
	DELETE FROM archive WHERE seq NOT IN (
		SELECT seq FROM archive ORDER BY seq DESC LIMIT $1
	);
	`
	if _, err := r.conn.Exec(ctx, q, max); err != nil {
		return fmt.Errorf("failed to trim archive: %v", err)
	}
	return nil
}
