package postgres

import (
	"testing"

	"stock-forecast/config"

	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestDSNAndURL(t *testing.T) {
	cfg := config.Database{
		Host:     "db",
		Port:     5432,
		User:     "app",
		Password: "p@ss word",
		DBName:   "stock_forecast",
		SSLMode:  "disable",
		TimeZone: "Asia/Kolkata",
	}

	assert.Equal(t, "host=db user=app password=p@ss word dbname=stock_forecast port=5432 sslmode=disable TimeZone=Asia/Kolkata", DSN(cfg))
	assert.Equal(t, "postgres://app:p%40ss%20word@db:5432/stock_forecast?sslmode=disable", URL(cfg))
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, GormLogLevel("Silent"))
	assert.Equal(t, gormlogger.Info, GormLogLevel("Info"))
	assert.Equal(t, gormlogger.Warn, GormLogLevel("whatever"))
}
