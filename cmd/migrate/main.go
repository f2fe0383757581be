package main

import (
	"os"

	"livescore-client/database"
	"livescore-client/logger"
)

func main() {
	// 从环境变量获取数据库 URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatalf("DATABASE_URL environment variable is not set")
	}

	// 连接数据库
	db, err := database.Connect(dbURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	logger.Println("Connected to database successfully")

	logger.Printf("Running %d migrations", len(database.Migrations))
	if err := database.Migrate(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	logger.Println("✅ All migrations completed successfully")
}
