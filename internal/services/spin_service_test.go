// internal/services/spin_service_test.go
package services

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/radiantoptimizer/backend/internal/apperrors"
	"github.com/radiantoptimizer/backend/internal/models"
	"github.com/radiantoptimizer/backend/internal/utils"
)

type SpinServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	provider *fakeProvider
	service  *SpinService
}

func (suite *SpinServiceTestSuite) SetupTest() {
	suite.db = setupTestDB(suite.T())
	suite.provider = newFakeProvider()

	licenses := NewLicenseService(suite.db)
	suite.service = NewSpinService(suite.db, testConfig(), suite.provider, licenses)
}

func (suite *SpinServiceTestSuite) makeCustomer(username string) {
	suite.Require().NoError(suite.db.Create(&models.License{
		Key:        strings.ToUpper(username[:1]) + "AAAA-BBBBB-CCCCC",
		Username:   username,
		Email:      username + "@example.com",
		Active:     true,
		PurchaseID: "cs_" + username,
	}).Error)
}

func (suite *SpinServiceTestSuite) TestEligibilityRequiresPurchase() {
	eligibility, err := suite.service.CheckEligibility("alice")
	suite.NoError(err)
	suite.False(eligibility.Eligible)
	suite.Equal("not_customer", eligibility.Reason)
}

func (suite *SpinServiceTestSuite) TestEligibilityForCustomer() {
	suite.makeCustomer("alice")

	eligibility, err := suite.service.CheckEligibility("alice")
	suite.NoError(err)
	suite.True(eligibility.Eligible)
	suite.Empty(eligibility.Reason)
}

func (suite *SpinServiceTestSuite) TestEligibilityAfterSpin() {
	suite.makeCustomer("alice")

	suite.service.roll = func() float64 { return 60 }
	_, err := suite.service.Spin("alice")
	suite.NoError(err)

	eligibility, err := suite.service.CheckEligibility("alice")
	suite.NoError(err)
	suite.False(eligibility.Eligible)
	suite.Equal("already_spun", eligibility.Reason)
}

func (suite *SpinServiceTestSuite) TestSpinRejectsNonCustomer() {
	_, err := suite.service.Spin("alice")
	suite.Error(err)
	suite.Equal(apperrors.KindConflict, apperrors.KindOf(err))
}

func (suite *SpinServiceTestSuite) TestSpinIsOneShot() {
	suite.makeCustomer("alice")
	suite.service.roll = func() float64 { return 15 }

	prize, err := suite.service.Spin("alice")
	suite.NoError(err)
	suite.Equal(models.PrizeTypeDiscount10, prize.Type)
	suite.NotEmpty(prize.PrizeID)

	_, err = suite.service.Spin("alice")
	suite.Error(err)
	suite.Equal(apperrors.KindConflict, apperrors.KindOf(err))

	var count int64
	suite.db.Model(&models.Prize{}).Where("username = ?", "alice").Count(&count)
	suite.Equal(int64(1), count)
}

func (suite *SpinServiceTestSuite) TestSpinTryAgainStoresNoPrize() {
	suite.makeCustomer("alice")
	suite.service.roll = func() float64 { return 80 }

	prize, err := suite.service.Spin("alice")
	suite.NoError(err)
	suite.Equal(models.PrizeTypeTryAgain, prize.Type)
	suite.Empty(prize.PrizeID)

	var count int64
	suite.db.Model(&models.Prize{}).Count(&count)
	suite.Equal(int64(0), count)

	// The spin is still spent.
	var spin models.WheelSpin
	suite.NoError(suite.db.First(&spin, "username = ?", "alice").Error)
	suite.True(spin.HasSpun)
}

func (suite *SpinServiceTestSuite) TestRedeemUnknownPrize() {
	_, err := suite.service.RedeemPrize("nope", "alice")
	suite.Error(err)
	suite.Equal(apperrors.KindNotFound, apperrors.KindOf(err))
}

func (suite *SpinServiceTestSuite) TestRedeemWrongOwner() {
	suite.Require().NoError(suite.db.Create(&models.Prize{
		ID:         "alice_1",
		Username:   "alice",
		PrizeType:  models.PrizeTypeDiscount10,
		PrizeValue: 10,
		WonAt:      time.Now(),
	}).Error)

	_, err := suite.service.RedeemPrize("alice_1", "mallory")
	suite.Error(err)
	suite.Equal(apperrors.KindUnauthorized, apperrors.KindOf(err))
	suite.Equal(0, suite.provider.couponCalls)
}

func (suite *SpinServiceTestSuite) TestRedeemFreeLicense() {
	suite.makeCustomer("alice")
	suite.Require().NoError(suite.db.Create(&models.Prize{
		ID:         "alice_2",
		Username:   "alice",
		PrizeType:  models.PrizeTypeFreeLicense,
		PrizeValue: 100,
		WonAt:      time.Now(),
	}).Error)

	result, err := suite.service.RedeemPrize("alice_2", "alice")
	suite.NoError(err)
	suite.Equal("license", result.Type)
	suite.True(utils.IsValidLicenseKey(result.LicenseKey))

	var license models.License
	suite.NoError(suite.db.First(&license, "key = ?", result.LicenseKey).Error)
	suite.Equal("spin_alice_2", license.PurchaseID)
	suite.Equal(float64(0), license.Amount)

	var prize models.Prize
	suite.NoError(suite.db.First(&prize, "id = ?", "alice_2").Error)
	suite.True(prize.Redeemed)
	suite.Equal(result.LicenseKey, prize.LicenseKey)

	var user models.User
	suite.NoError(suite.db.First(&user, "username = ?", "alice").Error)
	suite.Equal(models.AccountTypePremium, user.AccountType)
	suite.Require().Len(user.Licenses, 1)
	suite.Equal("spin_wheel", user.Licenses[0].Source)
	// Free licenses are not purchases.
	suite.Len(user.Purchases, 0)

	// A second redemption attempt must not mint another key.
	_, err = suite.service.RedeemPrize("alice_2", "alice")
	suite.Error(err)
	suite.Equal(apperrors.KindConflict, apperrors.KindOf(err))
}

func (suite *SpinServiceTestSuite) TestRedeemDiscountCreatesCoupon() {
	suite.Require().NoError(suite.db.Create(&models.Prize{
		ID:         "bob_1",
		Username:   "bob",
		PrizeType:  models.PrizeTypeDiscount25,
		PrizeValue: 25,
		WonAt:      time.Now(),
	}).Error)

	result, err := suite.service.RedeemPrize("bob_1", "bob")
	suite.NoError(err)
	suite.Equal("coupon", result.Type)
	suite.Equal(25, result.Discount)
	suite.True(strings.HasPrefix(result.CouponCode, "SPIN_BOB_"))
	suite.LessOrEqual(len(result.CouponCode), 40)

	suite.Require().NotNil(suite.provider.lastCoupon)
	suite.Equal(float64(25), *suite.provider.lastCoupon.PercentOff)
	suite.Equal("once", *suite.provider.lastCoupon.Duration)
	suite.Equal(int64(1), *suite.provider.lastCoupon.MaxRedemptions)

	// Re-requesting the coupon returns the stored one instead of minting again.
	again, err := suite.service.RedeemPrize("bob_1", "bob")
	suite.NoError(err)
	suite.Equal(result.CouponCode, again.CouponCode)
	suite.Equal(1, suite.provider.couponCalls)
}

func (suite *SpinServiceTestSuite) TestGetUserPrizesSkipsRedeemed() {
	now := time.Now()
	suite.Require().NoError(suite.db.Create(&models.Prize{
		ID: "carol_1", Username: "carol", PrizeType: models.PrizeTypeDiscount7,
		PrizeValue: 7, WonAt: now,
	}).Error)
	suite.Require().NoError(suite.db.Create(&models.Prize{
		ID: "carol_2", Username: "carol", PrizeType: models.PrizeTypeDiscount10,
		PrizeValue: 10, WonAt: now, Redeemed: true,
	}).Error)

	prizes, err := suite.service.GetUserPrizes("carol")
	suite.NoError(err)
	suite.Require().Len(prizes, 1)
	suite.Equal("carol_1", prizes[0].ID)
}

func TestSpinServiceSuite(t *testing.T) {
	suite.Run(t, new(SpinServiceTestSuite))
}

func TestDrawPrizeBoundaries(t *testing.T) {
	cases := []struct {
		roll float64
		want models.PrizeType
	}{
		{0.0, models.PrizeTypeFreeLicense},
		{0.009, models.PrizeTypeFreeLicense},
		{0.01, models.PrizeTypeDiscount25},
		{1.07, models.PrizeTypeDiscount25},
		{1.08, models.PrizeTypeDiscount17},
		{8.07, models.PrizeTypeDiscount17},
		{8.08, models.PrizeTypeDiscount10},
		{28.07, models.PrizeTypeDiscount10},
		{28.08, models.PrizeTypeDiscount7},
		{53.07, models.PrizeTypeDiscount7},
		{53.08, models.PrizeTypeTryAgain},
		{99.99, models.PrizeTypeTryAgain},
	}

	for _, tc := range cases {
		got := drawPrize(tc.roll)
		assert.Equal(t, tc.want, got.Type, "roll %v", tc.roll)
	}
}

func TestDrawPrizeDistribution(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	const draws = 500000
	counts := make(map[models.PrizeType]int)
	for i := 0; i < draws; i++ {
		counts[drawPrize(r.Float64()*100).Type]++
	}

	fraction := func(pt models.PrizeType) float64 {
		return float64(counts[pt]) / draws
	}

	assert.InDelta(t, 0.4692, fraction(models.PrizeTypeTryAgain), 0.01)
	assert.InDelta(t, 0.25, fraction(models.PrizeTypeDiscount7), 0.01)
	assert.InDelta(t, 0.20, fraction(models.PrizeTypeDiscount10), 0.01)
	assert.InDelta(t, 0.07, fraction(models.PrizeTypeDiscount17), 0.005)
	assert.InDelta(t, 0.0107, fraction(models.PrizeTypeDiscount25), 0.002)
	assert.Less(t, fraction(models.PrizeTypeFreeLicense), 0.001)
}
