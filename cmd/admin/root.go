package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"jobPortal/internal/config"
	"jobPortal/internal/database"
)

// 数据库参数默认读取环境变量，命令行显式传入时覆盖。
var dbFlags struct {
	host     string
	port     int
	name     string
	user     string
	password string
	sslmode  string
}

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "jobPortal 运维命令：迁移、创建管理员、录入岗位",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&dbFlags.host, "db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
	flags.IntVar(&dbFlags.port, "db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
	flags.StringVar(&dbFlags.name, "db-name", "", "数据库名（可选，默认读 POSTGRES_DB）")
	flags.StringVar(&dbFlags.user, "db-user", "", "数据库用户（可选，默认读 POSTGRES_USER）")
	flags.StringVar(&dbFlags.password, "db-password", "", "数据库密码（可选，默认读 POSTGRES_PASSWORD）")
	flags.StringVar(&dbFlags.sslmode, "db-sslmode", "", "数据库 SSLMODE（可选，默认读 DATABASE_SSLMODE）")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyDatabaseFlags(&cfg.Database)
	return cfg, nil
}

func applyDatabaseFlags(db *config.DatabaseConfig) {
	if v := strings.TrimSpace(dbFlags.host); v != "" {
		db.Host = v
	}
	if dbFlags.port > 0 {
		db.Port = dbFlags.port
	}
	if v := strings.TrimSpace(dbFlags.name); v != "" {
		db.Name = v
	}
	if v := strings.TrimSpace(dbFlags.user); v != "" {
		db.User = v
	}
	if dbFlags.password != "" {
		db.Password = dbFlags.password
	}
	if v := strings.TrimSpace(dbFlags.sslmode); v != "" {
		db.SSLMode = v
	}
}

// openDatabase 连接数据库并执行迁移。
func openDatabase() (*gorm.DB, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := cfg.Log.NewLogger(os.Stderr)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("init database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, nil, fmt.Errorf("auto migrate: %w", err)
	}
	return db, logger, nil
}
