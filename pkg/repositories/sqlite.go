package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/gridstake/gridstake/pkg/game"
	"github.com/gridstake/gridstake/pkg/repositories/models"
	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"
)

// Each collection is a plain key/value table holding the record's JSON
// form. Archived games carry full board snapshots, so those blobs are
// zstd-compressed.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS tokens (token TEXT PRIMARY KEY, record TEXT NOT NULL);`,
	`CREATE TABLE IF NOT EXISTS availability (account TEXT PRIMARY KEY, record TEXT NOT NULL);`,
	`CREATE TABLE IF NOT EXISTS games (id INTEGER PRIMARY KEY, record TEXT NOT NULL);`,
	`CREATE TABLE IF NOT EXISTS stats (account TEXT PRIMARY KEY, record TEXT NOT NULL);`,
	`CREATE TABLE IF NOT EXISTS archive (seq INTEGER PRIMARY KEY AUTOINCREMENT, record BLOB NOT NULL);`,
	`CREATE TABLE IF NOT EXISTS counters (name TEXT PRIMARY KEY, value INTEGER NOT NULL);`,
}

type SQLiteRepository struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func NewSQLiteRepository(ctx context.Context, path string) (Repository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
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

	return &SQLiteRepository{db: db, enc: enc, dec: dec}, nil
}

func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

func (r *SQLiteRepository) WhitelistToken(ctx context.Context, token string, minDeposit uint64) error {
	record, err := json.Marshal(&models.Token{Token: token, MinDeposit: minDeposit})
	if err != nil {
		return fmt.Errorf("failed to encode token: %v", err)
	}
	q := `INSERT OR REPLACE INTO tokens (token, record) VALUES (?, ?);`
	if _, err := r.db.ExecContext(ctx, q, token, string(record)); err != nil {
		return fmt.Errorf("failed to insert token: %v", err)
	}
	return nil
}

func (r *SQLiteRepository) MinDeposit(ctx context.Context, token string) (uint64, error) {
	var record string
	q := `SELECT record FROM tokens WHERE token = ?;`
	if err := r.db.QueryRowContext(ctx, q, token).Scan(&record); err != nil {
		if err == sql.ErrNoRows {
			return 0, &ErrNotFound{}
		}
		return 0, fmt.Errorf("failed to scan token: %v", err)
	}
	var t models.Token
	if err := json.Unmarshal([]byte(record), &t); err != nil {
		return 0, fmt.Errorf("failed to decode token: %v", err)
	}
	return t.MinDeposit, nil
}

func (r *SQLiteRepository) ListTokens(ctx context.Context) ([]*models.Token, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT record FROM tokens ORDER BY token;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %v", err)
	}
	defer rows.Close()

	var tokens []*models.Token
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan token: %v", err)
		}
		t := &models.Token{}
		if err := json.Unmarshal([]byte(record), t); err != nil {
			return nil, fmt.Errorf("failed to decode token: %v", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (r *SQLiteRepository) PutAvailability(ctx context.Context, a *models.Availability) error {
	record, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode availability: %v", err)
	}
	q := `INSERT OR REPLACE INTO availability (account, record) VALUES (?, ?);`
	if _, err := r.db.ExecContext(ctx, q, a.Account, string(record)); err != nil {
		return fmt.Errorf("failed to insert availability: %v", err)
	}
	return nil
}

func (r *SQLiteRepository) GetAvailability(ctx context.Context, account string) (*models.Availability, error) {
	var record string
	q := `SELECT record FROM availability WHERE account = ?;`
	if err := r.db.QueryRowContext(ctx, q, account).Scan(&record); err != nil {
		if err == sql.ErrNoRows {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan availability: %v", err)
	}
	a := &models.Availability{}
	if err := json.Unmarshal([]byte(record), a); err != nil {
		return nil, fmt.Errorf("failed to decode availability: %v", err)
	}
	return a, nil
}

func (r *SQLiteRepository) DeleteAvailability(ctx context.Context, account string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM availability WHERE account = ?;`, account)
	if err != nil {
		return fmt.Errorf("failed to delete availability: %v", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) ListAvailability(ctx context.Context) ([]*models.Availability, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT record FROM availability ORDER BY account;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query availability: %v", err)
	}
	defer rows.Close()

	var list []*models.Availability
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan availability: %v", err)
		}
		a := &models.Availability{}
		if err := json.Unmarshal([]byte(record), a); err != nil {
			return nil, fmt.Errorf("failed to decode availability: %v", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func (r *SQLiteRepository) NextGameID(ctx context.Context) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	var value int64
	err = tx.QueryRowContext(ctx, `SELECT value FROM counters WHERE name = 'game_id';`).Scan(&value)
	switch {
	case err == sql.ErrNoRows:
		value = 1
		if _, err := tx.ExecContext(ctx, `INSERT INTO counters (name, value) VALUES ('game_id', 1);`); err != nil {
			return 0, fmt.Errorf("failed to initialize game counter: %v", err)
		}
	case err != nil:
		return 0, fmt.Errorf("failed to read game counter: %v", err)
	default:
		value++
		if _, err := tx.ExecContext(ctx, `UPDATE counters SET value = value + 1 WHERE name = 'game_id';`); err != nil {
			return 0, fmt.Errorf("failed to advance game counter: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %v", err)
	}
	return uint64(value), nil
}

func (r *SQLiteRepository) PutGame(ctx context.Context, g *game.Session) error {
	record, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to encode game: %v", err)
	}
	q := `INSERT OR REPLACE INTO games (id, record) VALUES (?, ?);`
	if _, err := r.db.ExecContext(ctx, q, int64(g.ID), string(record)); err != nil {
		return fmt.Errorf("failed to insert game: %v", err)
	}
	return nil
}

func (r *SQLiteRepository) GetGame(ctx context.Context, id uint64) (*game.Session, error) {
	var record string
	q := `SELECT record FROM games WHERE id = ?;`
	if err := r.db.QueryRowContext(ctx, q, int64(id)).Scan(&record); err != nil {
		if err == sql.ErrNoRows {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan game: %v", err)
	}
	g := &game.Session{}
	if err := json.Unmarshal([]byte(record), g); err != nil {
		return nil, fmt.Errorf("failed to decode game: %v", err)
	}
	return g, nil
}

func (r *SQLiteRepository) DeleteGame(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM games WHERE id = ?;`, int64(id))
	if err != nil {
		return fmt.Errorf("failed to delete game: %v", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) ListGames(ctx context.Context) ([]*game.Session, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT record FROM games ORDER BY id;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %v", err)
	}
	defer rows.Close()

	var list []*game.Session
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan game: %v", err)
		}
		g := &game.Session{}
		if err := json.Unmarshal([]byte(record), g); err != nil {
			return nil, fmt.Errorf("failed to decode game: %v", err)
		}
		list = append(list, g)
	}
	return list, rows.Err()
}

func (r *SQLiteRepository) GetStats(ctx context.Context, account string) (*models.Stats, error) {
	var record string
	q := `SELECT record FROM stats WHERE account = ?;`
	if err := r.db.QueryRowContext(ctx, q, account).Scan(&record); err != nil {
		if err == sql.ErrNoRows {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan stats: %v", err)
	}
	s := &models.Stats{}
	if err := json.Unmarshal([]byte(record), s); err != nil {
		return nil, fmt.Errorf("failed to decode stats: %v", err)
	}
	return s, nil
}

func (r *SQLiteRepository) PutStats(ctx context.Context, s *models.Stats) error {
	record, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %v", err)
	}
	q := `INSERT OR REPLACE INTO stats (account, record) VALUES (?, ?);`
	if _, err := r.db.ExecContext(ctx, q, s.Account, string(record)); err != nil {
		return fmt.Errorf("failed to insert stats: %v", err)
	}
	return nil
}

func (r *SQLiteRepository) ListStats(ctx context.Context) ([]*models.Stats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT record FROM stats ORDER BY account;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %v", err)
	}
	defer rows.Close()

	var list []*models.Stats
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %v", err)
		}
		s := &models.Stats{}
		if err := json.Unmarshal([]byte(record), s); err != nil {
			return nil, fmt.Errorf("failed to decode stats: %v", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *SQLiteRepository) AppendArchive(ctx context.Context, g *models.ArchivedGame) error {
	record, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to encode archived game: %v", err)
	}
	compressed := r.enc.EncodeAll(record, nil)
	q := `INSERT INTO archive (record) VALUES (?);`
	if _, err := r.db.ExecContext(ctx, q, compressed); err != nil {
		return fmt.Errorf("failed to insert archived game: %v", err)
	}
	return nil
}

func (r *SQLiteRepository) ListArchive(ctx context.Context) ([]*models.ArchivedGame, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT record FROM archive ORDER BY seq;`)
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

func (r *SQLiteRepository) CountArchive(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM archive;`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count archive: %v", err)
	}
	return count, nil
}

func (r *SQLiteRepository) TrimArchive(ctx context.Context, max int) error {
	q := `
	DELETE FROM archive WHERE seq NOT IN (
		SELECT seq FROM archive ORDER BY seq DESC LIMIT ?
	);
	`
	if _, err := r.db.ExecContext(ctx, q, max); err != nil {
		return fmt.Errorf("failed to trim archive: %v", err)
	}
	return nil
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %v", err)
	}
	if affected == 0 {
		return &ErrNotFound{}
	}
	return nil
}
