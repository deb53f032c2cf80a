// Command seeddemo populates the database with demonstration licenses: one
// per tier, each with a few members (the first two as admins, by convention)
// and a synthetic usage history reaching back up to the backfill window.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/empireos/entitlement-api/internal/config"
	"github.com/empireos/entitlement-api/internal/domain/license"
	"github.com/empireos/entitlement-api/internal/service"
	"github.com/empireos/entitlement-api/internal/storage/postgres"
	"github.com/empireos/entitlement-api/pkg/logger"
)

var demoOrgs = map[license.Tier]string{
	license.TierBasic:        "Atelier Nord",
	license.TierProfessional: "Meridian Apparel Group",
	license.TierEnterprise:   "Silk Road Trading Co",
	license.TierSupplier:     "Jiangnan Textile Works",
	license.TierManufacturer: "Porto Garment Factory",
	license.TierAcademic:     "Institute of Fashion Technology",
}

func main() {
	configPath := flag.String("config", "./configs/config.dev.yaml", "Path to configuration file")
	seatCount := flag.Int("members", 5, "Members to seed per license")
	backDays := flag.Int("age-days", 120, "How many days ago each demo license was activated")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.NewZapLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	ctx := context.Background()

	dbPool, err := postgres.NewPgxPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dbPool.Close()

	licenseRepo := postgres.NewLicenseRepository(dbPool, appLogger)
	memberRepo := postgres.NewMemberRepository(dbPool, appLogger)
	usageRepo := postgres.NewUsageRepository(dbPool, appLogger)

	// No enqueuer: the seeder backfills synchronously instead of going
	// through the worker.
	licenseService := service.NewLicenseService(licenseRepo, nil, &cfg.License, appLogger)
	memberService := service.NewMemberService(memberRepo, licenseRepo, appLogger)
	usageService := service.NewUsageService(usageRepo, licenseRepo, memberRepo, cfg.License.BackfillWindowDays, appLogger)

	now := time.Now().UTC()
	activatedAt := now.AddDate(0, 0, -*backDays)

	for _, tier := range license.Tiers() {
		lic, err := licenseService.Issue(ctx, service.IssueParams{
			Tier:           tier,
			OrgName:        demoOrgs[tier],
			MaxUsers:       *seatCount + 5,
			DurationMonths: 12,
			ActivatedAt:    activatedAt,
		})
		if err != nil {
			log.Fatalf("Failed to issue %s demo license: %v", tier, err)
		}

		for i := 0; i < *seatCount; i++ {
			role := "member"
			if i < 2 {
				role = "admin"
			}
			if _, err := memberService.AddMember(ctx, lic.ID, uuid.New(), role); err != nil {
				log.Fatalf("Failed to seed member %d on %s license: %v", i, tier, err)
			}
		}

		rows, err := usageService.Backfill(ctx, lic.ID, now)
		if err != nil {
			log.Fatalf("Failed to backfill usage for %s license: %v", tier, err)
		}

		fmt.Printf("Seeded %-13s license %s (%d members, %d usage rows)\n", tier, lic.LicenseKey, *seatCount, rows)
	}
}
