// internal/services/dispute_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/land-escrow-backend/internal/models"
)

type DisputeServiceTestSuite struct {
	suite.Suite
	f *escrowFixture
}

func (suite *DisputeServiceTestSuite) SetupTest() {
	suite.f = newEscrowFixture(suite.T())
}

func (suite *DisputeServiceTestSuite) resolve(disputeID, resolverID uuid.UUID, status models.DisputeStatus, share *decimal.Decimal) (*ResolveDisputeResult, error) {
	return suite.f.disputes.ResolveDispute(suite.f.ctx, ResolveDisputeRequest{
		DisputeID:  disputeID,
		Status:     status,
		Resolution: "Reviewed survey report and site visit notes",
		ResolverID: resolverID,
		BuyerShare: share,
	})
}

func (suite *DisputeServiceTestSuite) TestRaiseDisputeTwice() {
	f := suite.f
	txn, dispute := f.openDisputed(suite.T())
	suite.Equal(models.DisputeStatusOpen, dispute.Status)
	suite.Equal(txn.ID, dispute.TransactionID)
	suite.Equal([]string{"https://cdn.example.com/evidence/site-plan.pdf"}, []string(dispute.EvidenceURLs))

	_, err := f.disputes.RaiseDispute(f.ctx, RaiseDisputeRequest{
		TransactionID: txn.ID,
		ActorID:       f.buyer.ID,
		Summary:       "Raising the same complaint again",
	})
	suite.ErrorIs(err, ErrDisputeAlreadyOpen)

	disputes, err := f.disputes.ListDisputes(f.ctx, txn.ID, f.buyer.ID, false)
	suite.Require().NoError(err)
	suite.Len(disputes, 1)
}

func (suite *DisputeServiceTestSuite) TestResolveForBuyerRefunds() {
	f := suite.f
	t := suite.T()
	txn, dispute := f.openDisputed(t)

	result, err := suite.resolve(dispute.ID, f.reviewer.ID, models.DisputeStatusResolvedBuyer, nil)
	suite.Require().NoError(err)

	suite.Equal(models.DisputeStatusResolvedBuyer, result.Dispute.Status)
	suite.Require().NotNil(result.Dispute.ResolvedByID)
	suite.Equal(f.reviewer.ID, *result.Dispute.ResolvedByID)
	suite.NotNil(result.Dispute.ResolvedAt)
	suite.Equal(models.TransactionStatusRefunded, result.Transaction.Status)
	suite.NotNil(result.Transaction.ClosedAt)
	suite.Nil(result.Payout)
	suite.Empty(f.handoff.handed())

	entries, err := f.audit.List(f.ctx, EntityTransaction, txn.ID)
	suite.Require().NoError(err)
	last := entries[len(entries)-1]
	suite.Equal(ActionStatusChange, last.Action)
	suite.Equal(models.ActorTypeSystem, last.ActorType)
	suite.Equal("dispute_resolution", last.Diff["cause"])
	suite.Equal(dispute.ID.String(), last.Diff["dispute_id"])

	suite.Contains(f.auditActions(t, EntityDispute, dispute.ID), ActionStatusChange+"_"+string(models.DisputeStatusResolvedBuyer))
}

func (suite *DisputeServiceTestSuite) TestResolveForSellerReleases() {
	f := suite.f
	txn, dispute := f.openDisputed(suite.T())

	result, err := suite.resolve(dispute.ID, f.admin.ID, models.DisputeStatusResolvedSeller, nil)
	suite.Require().NoError(err)

	suite.Equal(models.TransactionStatusReleased, result.Transaction.Status)
	suite.Equal(int64(25_000), *result.Transaction.PlatformFeeGhs)
	suite.Equal(int64(975_000), *result.Transaction.SellerNetGhs)
	suite.Require().NotNil(result.Payout)
	suite.Equal(int64(975_000), result.Payout.AmountGhs)
	suite.Equal([]uuid.UUID{result.Payout.ID}, f.handoff.handed())

	statuses := []string{}
	entries, err := f.audit.List(f.ctx, EntityTransaction, txn.ID)
	suite.Require().NoError(err)
	for _, e := range entries {
		if e.Action == ActionStatusChange {
			statuses = append(statuses, e.Diff["to"].(string))
		}
	}
	suite.Equal([]string{"ESCROW_REQUESTED", "FUNDED", "VERIFICATION_PERIOD", "DISPUTED", "READY_TO_RELEASE", "RELEASED"}, statuses)
}

func (suite *DisputeServiceTestSuite) TestResolveSplit() {
	f := suite.f
	_, dispute := f.openDisputed(suite.T())

	_, err := suite.resolve(dispute.ID, f.reviewer.ID, models.DisputeStatusResolvedSplit, nil)
	suite.ErrorIs(err, ErrInvalidSplit)

	share := decimal.RequireFromString("0.4")
	result, err := suite.resolve(dispute.ID, f.reviewer.ID, models.DisputeStatusResolvedSplit, &share)
	suite.Require().NoError(err)

	suite.Equal(models.TransactionStatusPartialSettled, result.Transaction.Status)
	suite.Equal(int64(400_000), *result.Transaction.BuyerRefundGhs)
	suite.Equal(int64(15_000), *result.Transaction.PlatformFeeGhs)
	suite.Equal(int64(585_000), *result.Transaction.SellerNetGhs)
	suite.Require().NotNil(result.Dispute.BuyerShare)
	suite.True(result.Dispute.BuyerShare.Equal(share))
	suite.Require().NotNil(result.FeeQuote)
	suite.Equal(int64(600_000), result.FeeQuote.SellerGrossAmount)
}

func (suite *DisputeServiceTestSuite) TestReviewThenResolve() {
	f := suite.f
	_, dispute := f.openDisputed(suite.T())

	result, err := suite.resolve(dispute.ID, f.reviewer.ID, models.DisputeStatusUnderReview, nil)
	suite.Require().NoError(err)
	suite.Equal(models.DisputeStatusUnderReview, result.Dispute.Status)
	suite.Equal(models.TransactionStatusDisputed, result.Transaction.Status)
	suite.Nil(result.Dispute.ResolvedAt)

	_, err = suite.resolve(dispute.ID, f.reviewer.ID, models.DisputeStatusUnderReview, nil)
	suite.ErrorIs(err, ErrAlreadyInTargetState)

	result, err = suite.resolve(dispute.ID, f.reviewer.ID, models.DisputeStatusResolvedBuyer, nil)
	suite.Require().NoError(err)
	suite.Equal(models.TransactionStatusRefunded, result.Transaction.Status)

	_, err = suite.resolve(dispute.ID, f.reviewer.ID, models.DisputeStatusResolvedSeller, nil)
	suite.ErrorIs(err, ErrInvalidTransition)
}

func (suite *DisputeServiceTestSuite) TestOnlyStaffResolve() {
	f := suite.f
	_, dispute := f.openDisputed(suite.T())

	for _, id := range []uuid.UUID{f.buyer.ID, f.seller.ID, uuid.New()} {
		_, err := suite.resolve(dispute.ID, id, models.DisputeStatusResolvedBuyer, nil)
		suite.ErrorIs(err, ErrForbidden)
	}

	current, err := f.store.GetDispute(f.ctx, dispute.ID)
	suite.Require().NoError(err)
	suite.Equal(models.DisputeStatusOpen, current.Status)
}

func (suite *DisputeServiceTestSuite) TestDisputeVisibility() {
	f := suite.f
	_, dispute := f.openDisputed(suite.T())

	_, err := f.disputes.GetDispute(f.ctx, dispute.ID, uuid.New(), false)
	suite.ErrorIs(err, ErrForbidden)

	got, err := f.disputes.GetDispute(f.ctx, dispute.ID, f.seller.ID, false)
	suite.Require().NoError(err)
	suite.Equal(dispute.ID, got.ID)

	_, err = f.disputes.GetDispute(f.ctx, uuid.New(), f.reviewer.ID, true)
	suite.ErrorIs(err, ErrDisputeNotFound)
}

func TestDisputeServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DisputeServiceTestSuite))
}
