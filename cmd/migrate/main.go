package main

import (
	"log"

	"insightdocs-be/internal/config"
	"insightdocs-be/internal/model"
	"insightdocs-be/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect
	db, err := database.NewGormDB(database.GormConfig{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.Connection,
	})
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	// 3. AutoMigrate documents, chat_sessions and chat_messages
	log.Printf("Running AutoMigrate (%s)...", cfg.Database.Driver)
	if err := database.Migrate(db, model.All()...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 4. Post-migration: postgres keeps updated_at fresh on direct SQL edits too
	if cfg.Database.Driver != database.DriverPostgres {
		log.Println("Success: Database migration completed.")
		return
	}

	postMigrationSQL := []string{
		`CREATE OR REPLACE FUNCTION set_current_timestamp_updated_at() RETURNS trigger LANGUAGE plpgsql AS $$
		DECLARE _new_value TIMESTAMP WITH TIME ZONE;
		BEGIN
		  _new_value := now();
		  IF NEW.updated_at IS DISTINCT FROM _new_value THEN NEW.updated_at = _new_value; END IF;
		  RETURN NEW;
		END; $$;`,
		`DROP TRIGGER IF EXISTS set_chat_sessions_updated_at ON chat_sessions;`,
		`CREATE TRIGGER set_chat_sessions_updated_at BEFORE UPDATE ON chat_sessions
		 FOR EACH ROW EXECUTE FUNCTION set_current_timestamp_updated_at();`,
	}

	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("Success: Database migration completed.")
}
