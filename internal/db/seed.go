package db

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	seedInterests = []string{
		"hiking", "music", "art", "travel", "cooking", "reading",
		"gaming", "yoga", "photography", "football", "cinema", "dancing",
	}
	seedAxes  = []string{"openness", "conscientiousness", "extraversion", "agreeableness", "neuroticism"}
	seedNames = []string{
		"Amira", "Bilal", "Chloe", "Daniyal", "Esra", "Farah", "Hamza", "Iman", "Jamal", "Khadija",
		"Layla", "Musa", "Nadia", "Omar", "Rania", "Samir", "Tariq", "Yasmin", "Zain", "Zara",
	}
)

// SeedTestData resets the database and populates it with demo users, likes,
// matches and chats.
//
// Behavior:
//  1. Clears every table (children first).
//  2. Creates 20 users with hashed passwords, random interests and personality.
//  3. Each user likes ~6 others; every 3rd like is made reciprocal, and every
//     reciprocal pair gets an active match plus its chat.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB, log *slog.Logger) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{"photo_reveals", "messages", "chats", "matches", "likes", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		for _, table := range []string{"messages", "chats", "matches", "users"} {
			db.Exec("ALTER TABLE " + table + " AUTO_INCREMENT = 1")
		}
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence")
	}

	log.Info("cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	// --- Seed Users ---
	users := make([]User, 0, len(seedNames))
	for i, name := range seedNames {
		personality := Personality{}
		for _, axis := range seedAxes {
			personality[axis] = float64(r.Intn(101)) / 100
		}
		interests := r.Perm(len(seedInterests))[:3+r.Intn(4)]
		picked := make([]string, 0, len(interests))
		for _, idx := range interests {
			picked = append(picked, seedInterests[idx])
		}

		users = append(users, User{
			Name:         name,
			Email:        fmt.Sprintf("user%d@example.com", i+1),
			PasswordHash: string(hash),
			Age:          21 + r.Intn(20),
			Bio:          fmt.Sprintf("Hi, I'm %s.", name),
			Interests:    datatypes.NewJSONSlice(picked),
			Personality:  datatypes.NewJSONType(personality),
			Photos:       datatypes.NewJSONSlice([]string{fmt.Sprintf("https://cdn.example.com/u%d/1.jpg", i+1)}),
		})
	}
	if err := db.Create(&users).Error; err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	log.Info("seeded users", "count", len(users))

	// --- Seed Likes / Matches ---
	likes, matches := 0, 0
	for _, actor := range users {
		for j := 0; j < 6; j++ {
			target := users[r.Intn(len(users))]
			if target.ID == actor.ID {
				continue
			}

			if err := insertLike(db, actor.ID, target.ID); err != nil {
				return err
			}
			likes++

			if likes%3 != 0 {
				continue
			}
			if err := insertLike(db, target.ID, actor.ID); err != nil {
				return err
			}
			if err := insertMatch(db, actor.ID, target.ID); err != nil {
				return err
			}
			matches++
		}
	}
	log.Info("seeded likes", "likes", likes, "matches", matches)

	return nil
}

func insertLike(db *gorm.DB, userID, targetID uint64) error {
	like := Like{UserID: userID, TargetID: targetID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
		return fmt.Errorf("failed to seed like: %w", err)
	}
	return nil
}

func insertMatch(db *gorm.DB, x, y uint64) error {
	a, b := x, y
	if a > b {
		a, b = b, a
	}

	m := Match{UserAID: a, UserBID: b, Status: MatchActive}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error; err != nil {
		return fmt.Errorf("failed to seed match: %w", err)
	}
	if err := db.Where("user_a_id = ? AND user_b_id = ?", a, b).First(&m).Error; err != nil {
		return fmt.Errorf("failed to reload match: %w", err)
	}

	chat := Chat{MatchID: m.ID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&chat).Error; err != nil {
		return fmt.Errorf("failed to seed chat: %w", err)
	}
	return nil
}
