package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/waypointhq/onboarding-backend/internal/domain"
	"github.com/waypointhq/onboarding-backend/internal/pkg/logger"
	"github.com/waypointhq/onboarding-backend/internal/platform/envutil"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	host := envutil.Str("POSTGRES_HOST", "localhost")
	port := envutil.Str("POSTGRES_PORT", "5432")
	user := envutil.Str("POSTGRES_USER", "postgres")
	password := envutil.Str("POSTGRES_PASSWORD", "")
	name := envutil.Str("POSTGRES_NAME", "onboarding")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)

	serviceLog.Info("Connecting to Postgres...", "host", host, "db", name)
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		serviceLog.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&domain.User{},
		&domain.Journey{},
		&domain.Phase{},
		&domain.Activity{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	s.log.Info("Configuring constraints for postgres tables...")
	for _, stmt := range []string{
		`ALTER TABLE "phase" DROP CONSTRAINT IF EXISTS "fk_phase_journey_id";`,
		`ALTER TABLE "phase"
		   ADD CONSTRAINT "fk_phase_journey_id"
		   FOREIGN KEY ("journey_id") REFERENCES "journey"("id")
		   ON DELETE CASCADE;`,
		`ALTER TABLE "activity" DROP CONSTRAINT IF EXISTS "fk_activity_journey_id";`,
		`ALTER TABLE "activity"
		   ADD CONSTRAINT "fk_activity_journey_id"
		   FOREIGN KEY ("journey_id") REFERENCES "journey"("id")
		   ON DELETE CASCADE;`,
		`ALTER TABLE "journey" DROP CONSTRAINT IF EXISTS "fk_journey_employee_id";`,
		`ALTER TABLE "journey"
		   ADD CONSTRAINT "fk_journey_employee_id"
		   FOREIGN KEY ("employee_id") REFERENCES "user"("id")
		   ON DELETE CASCADE;`,
		// Backstop for the one-active-journey-per-employee rule.
		`CREATE UNIQUE INDEX IF NOT EXISTS "idx_journey_active_employee"
		   ON "journey" ("employee_id")
		   WHERE "status" IN ('not_started', 'in_progress', 'paused');`,
	} {
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to apply constraint: %w", err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
