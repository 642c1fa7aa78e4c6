package devserver

import (
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitDB 初始化数据库连接
func InitDB(dsn string) {
	var err error
	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
}

// Migrate 自动迁移
func Migrate() {
	if err := DB.AutoMigrate(
		&Usuario{},
		&Vacante{},
		&Postulacion{},
		&Conversacion{},
		&Mensaje{},
		&Participante{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
}
