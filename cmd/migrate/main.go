// Command migrate applies the SQL files under migrations/ in lexical order.
package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"station-backoffice/internal/db"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dir := "migrations"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Fatal("read migrations directory", zap.String("dir", dir), zap.Error(err))
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		sql, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Fatal("read migration", zap.String("file", name), zap.Error(err))
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			logger.Fatal("apply migration", zap.String("file", name), zap.Error(err))
		}
		logger.Info("applied", zap.String("file", name))
	}
}
