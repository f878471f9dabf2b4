// admin 是运维用的引导工具：建管理员账号、灌初始商品。
// 不起 HTTP，跑完就退出。
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"casa-comfort/internal/core/config"
	"casa-comfort/internal/core/database"
	"casa-comfort/internal/core/logger"
	"casa-comfort/internal/core/token"
	"casa-comfort/internal/domain"
	"casa-comfort/internal/repo"
	"casa-comfort/pkg/utils"
)

var seedProducts = []domain.Product{
	{
		Name:        "Cozy Knit Blanket",
		Description: "Soft, warm knit blanket perfect for chilly evenings on the couch.",
		Price:       4999,
		Image:       "https://images.unsplash.com/photo-1580301762395-83604735ca1d",
		Category:    "Bedding",
	},
	{
		Name:        "Ceramic Vase Set",
		Description: "Set of three handmade ceramic vases in neutral tones.",
		Price:       3499,
		Image:       "https://images.unsplash.com/photo-1578500494198-246f612d3b3d",
		Category:    "Decor",
	},
	{
		Name:        "Kitchen Utensil Set",
		Description: "Complete bamboo utensil set with holder for everyday cooking.",
		Price:       2999,
		Image:       "https://images.unsplash.com/photo-1556911220-bff31c812dba",
		Category:    "Kitchen",
	},
}

func main() {
	var (
		username  = flag.String("username", "", "admin username (required)")
		email     = flag.String("email", "", "admin email (required)")
		password  = flag.String("password", "", "admin password (required unless user exists)")
		seedOnly  = flag.Bool("seed-only", false, "only seed the catalog, skip admin user")
		listUsers = flag.Bool("list-users", false, "print registered users and exit")
	)
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	db, err := database.NewGorm(database.Opts{
		Driver:   cfg.DB.Driver,
		DSN:      cfg.DB.DSN,
		Username: cfg.DB.Username,
		Password: cfg.DB.Password,
		LogLevel: cfg.DB.LogLevel,
	})
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.Product{}); err != nil {
		log.Fatal("automigrate failed", zap.Error(err))
	}

	if *listUsers {
		if err := printUsers(db); err != nil {
			log.Fatal("list users", zap.Error(err))
		}
		return
	}

	if !*seedOnly {
		if *username == "" || *email == "" {
			fmt.Fprintln(os.Stderr, "usage: admin -username <name> -email <addr> -password <pass> [-seed-only]")
			os.Exit(2)
		}
		if err := ensureAdmin(db, *username, *email, *password); err != nil {
			log.Fatal("ensure admin", zap.Error(err))
		}
		log.Info("admin user ready", zap.String("username", *username))
	}

	n, err := seedCatalog(db)
	if err != nil {
		log.Fatal("seed catalog", zap.Error(err))
	}
	if n > 0 {
		log.Info("catalog seeded", zap.Int("products", n))
	} else {
		log.Info("catalog already has products, seed skipped")
	}
}

func printUsers(db *gorm.DB) error {
	users, total, err := repo.NewUserRepo(db).List(0, 200)
	if err != nil {
		return err
	}
	for _, u := range users {
		flags := ""
		if u.IsAdmin {
			flags += " admin"
		}
		if !u.EmailVerified {
			flags += " unverified"
		}
		fmt.Printf("%4d  %-20s %-30s%s\n", u.ID, u.Username, u.Email, flags)
	}
	fmt.Printf("total: %d\n", total)
	return nil
}

// ensureAdmin 已存在则提升为管理员并标记已验证，不存在则新建
func ensureAdmin(db *gorm.DB, username, email, password string) error {
	var u domain.User
	err := db.Where("username = ?", username).First(&u).Error
	switch {
	case err == nil:
		return db.Model(&u).Updates(map[string]any{
			"is_admin":       true,
			"email_verified": true,
		}).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		if password == "" {
			// 随机密码，打出来一次，逼着运维用重置流程
			password = token.New()[:16]
			fmt.Printf("generated password for %s: %s\n", username, password)
		}
		return db.Create(&domain.User{
			Username:      username,
			Email:         email,
			Password:      utils.HashPassword(password),
			IsAdmin:       true,
			EmailVerified: true,
		}).Error
	default:
		return err
	}
}

// seedCatalog 只在商品表为空时灌入示例目录
func seedCatalog(db *gorm.DB) (int, error) {
	var count int64
	if err := db.Model(&domain.Product{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}
	if err := db.Create(&seedProducts).Error; err != nil {
		return 0, err
	}
	return len(seedProducts), nil
}
