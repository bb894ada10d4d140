package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"dialdesk/internal/config"
	"dialdesk/internal/db"
	"dialdesk/internal/model"
	"dialdesk/internal/repository"
)

// seedUser is one demo staff member. Everyone gets the same throwaway
// password so a fresh checkout is explorable immediately.
type seedUser struct {
	FullName  string
	Email     string
	Phone     string
	Extension string
	Role      model.UserRole
}

const seedPassword = "password123"

var seedUsers = []seedUser{
	{FullName: "Alice Hoang", Email: "alice@dialdesk.local", Phone: "+15550001001", Extension: "1001", Role: model.RoleAdmin},
	{FullName: "Marco Silva", Email: "marco@dialdesk.local", Phone: "+15550001002", Extension: "1002", Role: model.RoleManager},
	{FullName: "Dana Reyes", Email: "dana@dialdesk.local", Phone: "+15550001003", Extension: "1003", Role: model.RoleUser},
	{FullName: "Priya Nair", Email: "priya@dialdesk.local", Phone: "+15550001004", Extension: "1004", Role: model.RoleUser},
	{FullName: "Tom Okafor", Email: "tom@dialdesk.local", Phone: "+15550001005", Extension: "1005", Role: model.RoleUser},
}

var seedContacts = []model.Contact{
	{Name: "Acme Reception", Company: "Acme Corp", PhoneNumber: "+15557001212", Email: "reception@acme.example", Notes: "Main switchboard"},
	{Name: "Globex Billing", Company: "Globex", PhoneNumber: "+15557002323", Email: "billing@globex.example"},
	{Name: "Initech Support", Company: "Initech", PhoneNumber: "+15557003434", Notes: "Ask for ticket number first"},
	{Name: "Stacey Pilgrim", Company: "Second Cup", PhoneNumber: "+15557004545"},
}

func main() {
	log.Println("Starting seed script...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Session{},
		&model.TelephonyCredentials{},
		&model.CallPresence{},
		&model.Contact{},
		&model.CallLog{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	ctx := context.Background()
	userRepo := repository.NewUserRepository(gormDB)
	contactRepo := repository.NewContactRepository(gormDB)
	callLogRepo := repository.NewCallLogRepository(gormDB)

	log.Println("Seeding users...")
	created, updated, err := seedStaff(ctx, userRepo)
	if err != nil {
		log.Fatalf("Failed to seed users: %v", err)
	}
	log.Printf("  - New users created: %d", created)
	log.Printf("  - Existing users updated: %d", updated)

	log.Println("Seeding contacts...")
	contactsCreated, err := seedContactBook(ctx, contactRepo)
	if err != nil {
		log.Fatalf("Failed to seed contacts: %v", err)
	}
	log.Printf("  - New contacts created: %d", contactsCreated)

	log.Println("Seeding call history...")
	callsCreated, err := seedCallHistory(ctx, userRepo, callLogRepo)
	if err != nil {
		log.Fatalf("Failed to seed call history: %v", err)
	}
	log.Printf("  - Demo call records created: %d", callsCreated)

	log.Println("Seed completed successfully!")
	log.Printf("Log in with any seeded email and password %q", seedPassword)
}

// seedStaff creates the demo users, or refreshes name, phone, extension,
// and role for ones that already exist. Passwords are left alone on
// update so a changed demo password survives a re-seed.
func seedStaff(ctx context.Context, repo repository.UserRepository) (created, updated int, err error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return 0, 0, fmt.Errorf("hash seed password: %w", err)
	}

	for _, su := range seedUsers {
		existing, err := repo.FindByEmail(ctx, su.Email)
		if err != nil && err != gorm.ErrRecordNotFound {
			return created, updated, fmt.Errorf("error checking user %s: %w", su.Email, err)
		}

		if existing != nil {
			existing.FullName = su.FullName
			existing.Phone = su.Phone
			existing.Extension = su.Extension
			existing.Role = su.Role
			existing.IsActive = true
			if err := repo.Update(ctx, existing); err != nil {
				return created, updated, fmt.Errorf("error updating user %s: %w", su.Email, err)
			}
			updated++
			continue
		}

		user := &model.User{
			FullName:     su.FullName,
			Email:        su.Email,
			PasswordHash: string(hash),
			Phone:        su.Phone,
			Extension:    su.Extension,
			Role:         su.Role,
			IsActive:     true,
		}
		if err := repo.Create(ctx, user); err != nil {
			return created, updated, fmt.Errorf("error creating user %s: %w", su.Email, err)
		}
		created++
	}
	return created, updated, nil
}

// seedContactBook inserts the demo contacts that are not there yet,
// matching by phone number.
func seedContactBook(ctx context.Context, repo repository.ContactRepository) (created int, err error) {
	for _, contact := range seedContacts {
		existing, err := repo.FindByPhone(ctx, contact.PhoneNumber)
		if err != nil && err != gorm.ErrRecordNotFound {
			return created, fmt.Errorf("error checking contact %s: %w", contact.PhoneNumber, err)
		}
		if existing != nil {
			continue
		}

		record := contact
		if err := repo.Create(ctx, &record); err != nil {
			return created, fmt.Errorf("error creating contact %s: %w", contact.Name, err)
		}
		created++
	}
	return created, nil
}

// seedCallHistory writes a small batch of finished calls spread over the
// last day so the history screens have something to show. Runs only when
// the log is empty to keep re-seeds idempotent.
func seedCallHistory(ctx context.Context, users repository.UserRepository, logs repository.CallLogRepository) (int, error) {
	recent, err := logs.ListRecent(ctx, 1)
	if err != nil {
		return 0, fmt.Errorf("error checking call history: %w", err)
	}
	if len(recent) > 0 {
		log.Println("  - Call history already present, skipping")
		return 0, nil
	}

	staff, err := users.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("error listing users: %w", err)
	}
	if len(staff) == 0 {
		return 0, nil
	}

	now := time.Now()
	entries := make([]model.CallLog, 0, len(seedContacts))
	for i, contact := range seedContacts {
		agent := staff[i%len(staff)]
		direction := model.DirectionInbound
		if i%2 == 1 {
			direction = model.DirectionOutbound
		}
		started := now.Add(-time.Duration(i+1) * 3 * time.Hour)
		duration := time.Duration(90+60*i) * time.Second

		entries = append(entries, model.CallLog{
			CallSID:      "CA" + uuid.NewString(),
			UserID:       agent.ID,
			CallerNumber: contact.PhoneNumber,
			CallerName:   contact.Name,
			Direction:    direction,
			StartedAt:    started,
			EndedAt:      started.Add(duration),
			DurationSecs: int64(duration.Seconds()),
		})
	}

	if err := logs.CreateBatch(ctx, entries); err != nil {
		return 0, fmt.Errorf("error writing call history: %w", err)
	}
	return len(entries), nil
}
