// Seeds a local MySQL database with a small fixture: users, plus orders
// carrying a foreign key back to users so schema reflection has a
// relationship to report.
package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func main() {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/formulator?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(1 * time.Second)
	}

	slog.Info("connected, creating fixture tables")

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name TEXT,
			email TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			score DOUBLE
		)`)
	if err != nil {
		panic(err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT,
			amount DECIMAL(15, 2),
			status VARCHAR(20),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`)
	if err != nil {
		panic(err)
	}

	seedUsers(db, 1000)
	seedOrders(db, 5000)

	slog.Info("fixture ready")
}

func seedUsers(db *sql.DB, total int) {
	var count int
	db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	if count >= total {
		slog.Info("users already seeded", "count", count)
		return
	}

	vals := []interface{}{}
	placeholders := []string{}
	for i := 1; i <= total; i++ {
		placeholders = append(placeholders, "(?, ?, ?)")
		vals = append(vals,
			fmt.Sprintf("User%d", i),
			fmt.Sprintf("user%d@example.com", i),
			float64(i)*0.1,
		)
	}

	stmt := "INSERT INTO users (name, email, score) VALUES " + strings.Join(placeholders, ",")
	if _, err := db.Exec(stmt, vals...); err != nil {
		panic(err)
	}
	slog.Info("users seeded", "count", total)
}

func seedOrders(db *sql.DB, total int) {
	var count int
	db.QueryRow("SELECT COUNT(*) FROM orders").Scan(&count)
	if count >= total {
		slog.Info("orders already seeded", "count", count)
		return
	}

	batch := 1000
	for i := 0; i < total; i += batch {
		vals := []interface{}{}
		placeholders := []string{}
		for j := 0; j < batch; j++ {
			uid := (i+j)%1000 + 1
			placeholders = append(placeholders, "(?, ?, ?)")
			vals = append(vals, uid, float64(uid)*0.25, "COMPLETED")
		}
		stmt := "INSERT INTO orders (user_id, amount, status) VALUES " + strings.Join(placeholders, ",")
		if _, err := db.Exec(stmt, vals...); err != nil {
			panic(err)
		}
	}
	slog.Info("orders seeded", "count", total)
}
