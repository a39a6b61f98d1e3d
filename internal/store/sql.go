package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/duo-trivia-backend/internal/engine"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// SQLStore persists games in a relational database through gorm. Postgres is
// the production driver; SQLite is used for local runs and tests.
type SQLStore struct {
	db     *gorm.DB
	driver string
	now    func() time.Time
}

func Open(driver, dsn string, pool PoolConfig) (*SQLStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// SQLite allows a single writer; one connection serializes every unit.
		sqlDB.SetMaxOpenConns(1)
	} else {
		if pool.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
		}
		if pool.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
		}
		if pool.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
		}
	}

	return &SQLStore{db: db, driver: driver, now: time.Now}, nil
}

// Migrate creates or updates the schema from the gorm models. Production
// deployments run cmd/migrate instead.
func (s *SQLStore) Migrate() error {
	return s.db.AutoMigrate(&User{}, &Category{}, &Question{}, &Game{}, &Round{})
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLStore) CreateGame(ctx context.Context, g engine.Game, first engine.Round) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := gameRow(g)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		r := roundRow(first)
		return tx.Create(&r).Error
	})
	return translate(err)
}

func (s *SQLStore) Game(ctx context.Context, id string) (engine.Game, error) {
	var row Game
	if err := s.db.WithContext(ctx).Where("game_id = ?", id).Take(&row).Error; err != nil {
		return engine.Game{}, translate(err)
	}
	return row.toEngine(), nil
}

func (s *SQLStore) Round(ctx context.Context, gameID string, number int) (engine.Round, error) {
	var row Round
	err := s.db.WithContext(ctx).
		Where("game_id = ? AND round_number = ?", gameID, number).
		Take(&row).Error
	if err != nil {
		return engine.Round{}, translate(err)
	}
	return row.toEngine(), nil
}

func (s *SQLStore) Scores(ctx context.Context, gameID string) (engine.Scores, error) {
	var totals struct {
		Player1 int
		Player2 int
	}
	err := s.db.WithContext(ctx).Model(&Round{}).
		Select("COALESCE(SUM(user1_score_increment), 0) AS player1, COALESCE(SUM(user2_score_increment), 0) AS player2").
		Where("game_id = ?", gameID).
		Scan(&totals).Error
	if err != nil {
		return engine.Scores{}, err
	}
	return engine.Scores{Player1: totals.Player1, Player2: totals.Player2}, nil
}

func (s *SQLStore) Category(ctx context.Context, id string) (engine.Category, error) {
	var row Category
	if err := s.db.WithContext(ctx).Where("category_id = ?", id).Take(&row).Error; err != nil {
		return engine.Category{}, translate(err)
	}
	return engine.Category{ID: row.ID, Name: row.Name}, nil
}

func (s *SQLStore) Question(ctx context.Context, id string) (engine.Question, error) {
	var row Question
	if err := s.db.WithContext(ctx).Where("question_id = ?", id).Take(&row).Error; err != nil {
		return engine.Question{}, translate(err)
	}
	return row.toEngine()
}

func (s *SQLStore) RandomQuestion(ctx context.Context, categoryID string) (engine.Question, error) {
	var row Question
	err := s.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Order("RANDOM()").
		Take(&row).Error
	if err != nil {
		return engine.Question{}, translate(err)
	}
	return row.toEngine()
}

func (s *SQLStore) Usernames(ctx context.Context, ids ...string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, u := range rows {
		out[u.ID] = u.Username
	}
	return out, nil
}

// UpdateRound locks the game (shared) and its current round (exclusive) for
// the duration of fn, so two submissions to the same round are serialized and
// exactly one of them observes the round complete.
func (s *SQLStore) UpdateRound(ctx context.Context, gameID string, fn RoundUpdate) (engine.Round, error) {
	var out engine.Round
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var g Game
		if err := s.lock(tx, "SHARE").Where("game_id = ?", gameID).Take(&g).Error; err != nil {
			return err
		}

		var round *engine.Round
		var row Round
		err := s.lock(tx, "UPDATE").
			Where("game_id = ? AND round_number = ?", gameID, g.CurrentRound).
			Take(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return err
		default:
			r := row.toEngine()
			round = &r
		}

		if err := fn(g.toEngine(), round); err != nil {
			return err
		}
		if round == nil {
			return nil
		}
		if err := tx.Model(&Round{}).Where("round_id = ?", round.ID).Updates(roundColumns(*round)).Error; err != nil {
			return err
		}
		out = *round
		return nil
	})
	if err != nil {
		return engine.Round{}, translate(err)
	}
	return out, nil
}

// AdvanceRound moves the game's pointer from `from` to next.Number and inserts
// next. A pointer that already moved, or a completed game, is a conflict.
func (s *SQLStore) AdvanceRound(ctx context.Context, gameID string, from int, next engine.Round) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Game{}).
			Where("game_id = ? AND current_round = ? AND status = ?", gameID, from, string(engine.StatusInProgress)).
			Updates(map[string]any{"current_round": next.Number, "updated_at": s.now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.missOrConflict(tx, gameID)
		}
		row := roundRow(next)
		return tx.Create(&row).Error
	})
	return translate(err)
}

func (s *SQLStore) CompleteGame(ctx context.Context, gameID string) error {
	db := s.db.WithContext(ctx)
	res := db.Model(&Game{}).
		Where("game_id = ? AND status <> ?", gameID, string(engine.StatusCompleted)).
		Updates(map[string]any{"status": string(engine.StatusCompleted), "updated_at": s.now()})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return s.missOrConflict(db, gameID)
	}
	return nil
}

func (s *SQLStore) UpsertCategory(ctx context.Context, c engine.Category) error {
	row := Category{ID: c.ID, Name: c.Name}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s *SQLStore) UpsertQuestion(ctx context.Context, q engine.Question) error {
	row, err := questionRow(q)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s *SQLStore) UpsertUser(ctx context.Context, id, username string) error {
	row := User{ID: id, Username: username}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "updated_at"}),
	}).Create(&row).Error
}

// lock adds a row-locking clause on drivers that support it. SQLite already
// serializes writers through its single connection.
func (s *SQLStore) lock(tx *gorm.DB, strength string) *gorm.DB {
	if s.driver != DriverPostgres {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: strength})
}

func (s *SQLStore) missOrConflict(tx *gorm.DB, gameID string) error {
	var count int64
	if err := tx.Model(&Game{}).Where("game_id = ?", gameID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
