package app

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hitoshi/planmate/internal/config"
	"github.com/hitoshi/planmate/internal/database"
	"github.com/hitoshi/planmate/internal/repository"
)

// migrateDatabase はマイグレーションの実行関数。テストで差し替える。
var migrateDatabase = database.RunMigrations

// storage はSTORAGE_DRIVERに応じて選ばれた永続化層。
type storage struct {
	Schedule     repository.ScheduleRepository
	Conversation repository.ConversationRepository
	Pinger       repository.Pinger
	db           *sql.DB
}

// Close はデータベース接続を閉じる。CSVドライバでは何もしない。
func (s *storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// sqlTarget はSQLドライバの方言と接続先を返す。CSVドライバの場合okはfalse。
func sqlTarget(cfg *config.Config) (dialect database.Dialect, dsn string, ok bool) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		return database.DialectPostgres, cfg.DatabaseURL, true
	case config.DriverSQLite:
		return database.DialectSQLite, cfg.SQLitePath, true
	default:
		return "", "", false
	}
}

// openStorage は設定されたドライバでストレージを開く。
// SQLiteは単一プロセスで完結するため、起動時にマイグレーションも適用する。
func openStorage(cfg *config.Config) (*storage, error) {
	dialect, dsn, ok := sqlTarget(cfg)
	if !ok {
		store := repository.NewCSVStore(cfg.DataDir)
		slog.Info("csv storage selected", slog.String("data_dir", cfg.DataDir))
		return &storage{
			Schedule:     repository.NewCSVScheduleRepo(store),
			Conversation: repository.NewCSVConversationRepo(store),
			Pinger:       store,
		}, nil
	}

	if dialect == database.DialectSQLite {
		if err := migrateDatabase(dialect, dsn); err != nil {
			return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
		}
	}

	db, err := database.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established", slog.String("dialect", string(dialect)))

	st := &storage{Pinger: db, db: db}
	if dialect == database.DialectPostgres {
		st.Schedule = repository.NewPostgresScheduleRepo(db)
		st.Conversation = repository.NewPostgresConversationRepo(db)
	} else {
		st.Schedule = repository.NewSQLiteScheduleRepo(db)
		st.Conversation = repository.NewSQLiteConversationRepo(db)
	}
	return st, nil
}
