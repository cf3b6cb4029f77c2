package data

import (
	"log"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zero-community/multibot/src/multibot/types"
)

// MustMySQL opens the fleet database and migrates the letter, birthday and
// ticket tables. The DSN is normalized so time columns scan as time.Time
// and emoji in letter bodies survive the round trip (utf8mb4).
func MustMySQL(dsn string) *gorm.DB {
	gormLogger := logger.New(
		log.New(log.Writer(), "mysql: ", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(mysql.Open(normalizeDSN(dsn)), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}

	if err := db.AutoMigrate(&types.Letter{}, &types.Birthday{}, &types.Ticket{}); err != nil {
		log.Fatalf("mysql: migrate: %v", err)
	}

	return db
}

// fleet connection parameters, applied unless the operator already set them.
var dsnDefaults = []struct{ key, value string }{
	{"parseTime", "true"},
	{"charset", "utf8mb4"},
	{"collation", "utf8mb4_unicode_ci"},
}

func normalizeDSN(dsn string) string {
	for _, param := range dsnDefaults {
		if strings.Contains(dsn, param.key+"=") {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + param.key + "=" + param.value
	}
	return dsn
}
