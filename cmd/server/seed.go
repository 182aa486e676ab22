// cmd/server/seed.go
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/land-escrow-backend/internal/config"
	"github.com/javajoker/land-escrow-backend/internal/models"
	"github.com/javajoker/land-escrow-backend/internal/repositories"
	"github.com/javajoker/land-escrow-backend/internal/utils"
)

// seedDemoData creates one of each role, a listing and a discounted seller
// plan, and logs a token per user so the API can be exercised by hand.
func seedDemoData(ctx context.Context, store repositories.Store, cfg *config.Config) error {
	users := []*models.User{
		{Name: "Ama Mensah", Email: "buyer@example.com.gh", Phone: "+233200000001", Role: models.UserRoleBuyer},
		{Name: "Kwame Owusu", Email: "seller@example.com.gh", Phone: "+233200000002", Role: models.UserRoleSeller},
		{Name: "Efua Boateng", Email: "reviewer@example.com.gh", Role: models.UserRoleReviewer},
		{Name: "Platform Admin", Email: "admin@example.com.gh", Role: models.UserRoleAdmin},
	}
	for _, u := range users {
		if err := store.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("failed to create user %s: %w", u.Email, err)
		}
	}
	seller := users[1]

	listing := &models.Listing{
		SellerID: seller.ID,
		Title:    "2 plots, East Legon",
		Region:   "Greater Accra",
		Status:   models.ListingStatusActive,
	}
	if err := store.CreateListing(ctx, listing); err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}

	now := time.Now().UTC()
	if err := store.CreateSubscription(ctx, &models.SellerSubscription{
		UserID:             seller.ID,
		Category:           models.SubscriptionCategorySeller,
		Plan:               "PRO",
		Status:             models.SubscriptionStatusActive,
		StartDate:          now.AddDate(0, -1, 0),
		EndDate:            now.AddDate(1, 0, 0),
		TransactionFeeRate: decimal.RequireFromString("0.01"),
	}); err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	if err := store.CreatePayoutAccount(ctx, &models.PayoutAccount{
		UserID:     seller.ID,
		Provider:   "manual",
		AccountRef: "GH-DEMO-0001",
	}); err != nil {
		return fmt.Errorf("failed to create payout account: %w", err)
	}

	ttl := time.Duration(cfg.JWT.AccessTokenTTL) * time.Hour
	for _, u := range users {
		token, err := utils.GenerateJWT(u.ID, string(u.Role), ttl)
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"user_id": u.ID,
			"role":    u.Role,
			"token":   token,
		}).Info("Demo user")
	}
	logrus.WithField("listing_id", listing.ID).Info("Demo listing")

	return nil
}
