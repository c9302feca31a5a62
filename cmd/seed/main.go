package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"pos-provisioning/internal/config"
	"pos-provisioning/internal/domain"
	"pos-provisioning/internal/domain/model"
	"pos-provisioning/internal/infra/api"
	pg "pos-provisioning/internal/infra/db/postgres"
	"pos-provisioning/internal/usecase"
)

func limit(n int64) *int64 { return &n }

type seedPlan struct {
	Slug     string
	Name     string
	Price    int64
	Sort     int
	Features []model.PlanFeature
}

var catalog = []seedPlan{
	{"basic", "Basic", 69_000, 1, []model.PlanFeature{
		{FeatureCode: model.FeatureMaxStores, LimitValue: limit(1), IsEnabled: true},
		{FeatureCode: model.FeatureMaxUsers, LimitValue: limit(2), IsEnabled: true},
		{FeatureCode: model.FeatureMaxProducts, LimitValue: limit(100), IsEnabled: true},
		{FeatureCode: model.FeatureMaxTransactionsPerYear, LimitValue: limit(1000), IsEnabled: true},
		{FeatureCode: model.FeatureAllowLoyalty, IsEnabled: false},
		{FeatureCode: model.FeatureAllowExpenses, IsEnabled: false},
		{FeatureCode: model.FeatureAllowReports, IsEnabled: false},
	}},
	{"pro", "Pro", 149_000, 2, []model.PlanFeature{
		{FeatureCode: model.FeatureMaxStores, LimitValue: limit(3), IsEnabled: true},
		{FeatureCode: model.FeatureMaxUsers, LimitValue: limit(10), IsEnabled: true},
		{FeatureCode: model.FeatureMaxProducts, LimitValue: limit(1000), IsEnabled: true},
		{FeatureCode: model.FeatureMaxTransactionsPerYear, LimitValue: limit(10_000), IsEnabled: true},
		{FeatureCode: model.FeatureAllowLoyalty, IsEnabled: true},
		{FeatureCode: model.FeatureAllowExpenses, IsEnabled: true},
		{FeatureCode: model.FeatureAllowReports, IsEnabled: false},
	}},
	{"enterprise", "Enterprise", 349_000, 3, []model.PlanFeature{
		{FeatureCode: model.FeatureMaxStores, LimitValue: nil, IsEnabled: true},
		{FeatureCode: model.FeatureMaxUsers, LimitValue: nil, IsEnabled: true},
		{FeatureCode: model.FeatureMaxProducts, LimitValue: nil, IsEnabled: true},
		{FeatureCode: model.FeatureMaxTransactionsPerYear, LimitValue: nil, IsEnabled: true},
		{FeatureCode: model.FeatureAllowLoyalty, IsEnabled: true},
		{FeatureCode: model.FeatureAllowExpenses, IsEnabled: true},
		{FeatureCode: model.FeatureAllowReports, IsEnabled: true},
	}},
}

func main() {
	adminToken := flag.Bool("admin-token", false, "print a freshly minted admin bearer token")

	// ---- Config ----
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if *adminToken {
		tok, err := api.NewAuthManager(cfg.Admin).Mint("seed")
		if err != nil {
			log.Fatalf("mint admin token: %v", err)
		}
		fmt.Println(tok)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	planUC := usecase.NewPlanUseCase(pg.NewPostgresPlanRepo(pool))

	for _, s := range catalog {
		p, err := model.NewPlan("", s.Slug, s.Name, s.Price, s.Sort, 30)
		if err != nil {
			log.Fatalf("plan %q: %v", s.Slug, err)
		}
		features := append([]model.PlanFeature(nil), s.Features...)
		err = planUC.Create(ctx, p, features)
		if errors.Is(err, domain.ErrAlreadyExists) {
			fmt.Printf("exists: %s\n", s.Slug)
			continue
		}
		if err != nil {
			log.Fatalf("create plan %q: %v", s.Slug, err)
		}
		fmt.Printf("seeded: %s (id=%s, sort=%d, price=%d)\n", p.Name, p.ID, p.SortOrder, p.Price)
	}

	fmt.Println("Seeding complete.")
}
