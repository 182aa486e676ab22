// internal/services/fee_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/javajoker/land-escrow-backend/internal/models"
	"github.com/javajoker/land-escrow-backend/internal/repositories"
)

// DefaultPlan names quotes priced at the platform rate.
const DefaultPlan = "DEFAULT"

var hundred = decimal.NewFromInt(100)

// FeeQuote is the monetary outcome of settling a transaction. All amounts are
// pesewas.
type FeeQuote struct {
	SellerFeeRate     decimal.Decimal `json:"seller_fee_rate"`
	SellerFeeAmount   int64           `json:"seller_fee_amount"`
	SellerNetAmount   int64           `json:"seller_net_amount"`
	SubscriptionPlan  string          `json:"subscription_plan"`
	SellerGrossAmount int64           `json:"seller_gross_amount"`
	BuyerRefundAmount int64           `json:"buyer_refund_amount"`
	BuyerShare        decimal.Decimal `json:"buyer_share"`
}

// Breakdown renders the quote for audit diffs.
func (q FeeQuote) Breakdown() models.JSONB {
	return models.JSONB{
		"seller_fee_rate":     q.SellerFeeRate.String(),
		"seller_fee_amount":   q.SellerFeeAmount,
		"seller_net_amount":   q.SellerNetAmount,
		"seller_gross_amount": q.SellerGrossAmount,
		"buyer_refund_amount": q.BuyerRefundAmount,
		"buyer_share":         q.BuyerShare.String(),
		"subscription_plan":   q.SubscriptionPlan,
	}
}

func roundHalfUp(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

func validateFeeInput(price int64, rate decimal.Decimal) error {
	if price <= 0 {
		return fmt.Errorf("%w: price must be positive, got %d", ErrInvalidFeeInput, price)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: rate must be in [0, 1), got %s", ErrInvalidFeeInput, rate)
	}
	return nil
}

// CalculateFee splits price into platform fee and seller net at rate.
// fee = round_half_up(price * rate), net = price - fee.
func CalculateFee(price int64, rate decimal.Decimal, plan string) (FeeQuote, error) {
	if err := validateFeeInput(price, rate); err != nil {
		return FeeQuote{}, err
	}

	fee := roundHalfUp(decimal.NewFromInt(price).Mul(rate))
	return FeeQuote{
		SellerFeeRate:     rate,
		SellerFeeAmount:   fee,
		SellerNetAmount:   price - fee,
		SubscriptionPlan:  plan,
		SellerGrossAmount: price,
		BuyerShare:        decimal.Zero,
	}, nil
}

// CalculateSplit refunds buyerShare of price to the buyer and charges the fee
// on the seller's remaining gross only.
func CalculateSplit(price int64, rate, buyerShare decimal.Decimal, plan string) (FeeQuote, error) {
	if err := validateFeeInput(price, rate); err != nil {
		return FeeQuote{}, err
	}
	if !buyerShare.IsPositive() || buyerShare.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return FeeQuote{}, ErrInvalidSplit
	}

	refund := roundHalfUp(decimal.NewFromInt(price).Mul(buyerShare))
	gross := price - refund
	fee := roundHalfUp(decimal.NewFromInt(gross).Mul(rate))

	return FeeQuote{
		SellerFeeRate:     rate,
		SellerFeeAmount:   fee,
		SellerNetAmount:   gross - fee,
		SubscriptionPlan:  plan,
		SellerGrossAmount: gross,
		BuyerRefundAmount: refund,
		BuyerShare:        buyerShare,
	}, nil
}

type subscriptionFinder interface {
	FindActiveSellerSubscription(ctx context.Context, sellerID uuid.UUID, at time.Time) (*models.SellerSubscription, error)
}

// FeeService resolves the rate that applies to a seller.
type FeeService struct {
	subscriptions  subscriptionFinder
	settings       repositories.SettingsReader
	defaultPercent decimal.Decimal
	now            func() time.Time
}

func NewFeeService(subscriptions subscriptionFinder, settings repositories.SettingsReader, defaultPercent decimal.Decimal) *FeeService {
	return &FeeService{
		subscriptions:  subscriptions,
		settings:       settings,
		defaultPercent: defaultPercent,
		now:            time.Now,
	}
}

// ResolveRate returns the seller's active SELLER subscription rate, or the
// platform default when there is none.
func (s *FeeService) ResolveRate(ctx context.Context, sellerID uuid.UUID) (decimal.Decimal, string, error) {
	sub, err := s.subscriptions.FindActiveSellerSubscription(ctx, sellerID, s.now())
	switch {
	case err == nil:
		return sub.TransactionFeeRate, sub.Plan, nil
	case !errors.Is(err, repositories.ErrNotFound):
		return decimal.Zero, "", fmt.Errorf("failed to look up subscription: %w", err)
	}

	rate, err := s.platformRate(ctx)
	if err != nil {
		return decimal.Zero, "", err
	}
	return rate, DefaultPlan, nil
}

func (s *FeeService) platformRate(ctx context.Context) (decimal.Decimal, error) {
	percent := s.defaultPercent

	setting, err := s.settings.GetSetting(ctx, models.SettingCategoryPlatform, models.SettingPlatformFeePercent)
	switch {
	case err == nil:
		raw, ok := setting.StringValue()
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: platform fee setting has no value", ErrInvalidFeeInput)
		}
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: platform fee setting %q", ErrInvalidFeeInput, raw)
		}
		percent = parsed
	case !errors.Is(err, repositories.ErrNotFound):
		return decimal.Zero, fmt.Errorf("failed to read platform fee: %w", err)
	}

	return percent.Div(hundred), nil
}

// Quote prices a sale by sellerID at agreedPrice pesewas.
func (s *FeeService) Quote(ctx context.Context, sellerID uuid.UUID, agreedPrice int64) (FeeQuote, error) {
	rate, plan, err := s.ResolveRate(ctx, sellerID)
	if err != nil {
		return FeeQuote{}, err
	}
	return CalculateFee(agreedPrice, rate, plan)
}

// QuoteSplit prices a split settlement.
func (s *FeeService) QuoteSplit(ctx context.Context, sellerID uuid.UUID, agreedPrice int64, buyerShare decimal.Decimal) (FeeQuote, error) {
	rate, plan, err := s.ResolveRate(ctx, sellerID)
	if err != nil {
		return FeeQuote{}, err
	}
	return CalculateSplit(agreedPrice, rate, buyerShare, plan)
}
