// internal/services/license_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/radiantoptimizer/backend/internal/apperrors"
	"github.com/radiantoptimizer/backend/internal/models"
	"github.com/radiantoptimizer/backend/internal/utils"
)

type LicenseServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *LicenseService
}

func (suite *LicenseServiceTestSuite) SetupTest() {
	suite.db = setupTestDB(suite.T())
	suite.service = NewLicenseService(suite.db)
}

func (suite *LicenseServiceTestSuite) createLicense(key, username string, active bool) *models.License {
	license := &models.License{
		Key:         key,
		Username:    username,
		Email:       username + "@example.com",
		Active:      active,
		PurchaseID:  "cs_" + key,
		ProductName: "Radiant Optimizer",
	}
	suite.Require().NoError(suite.db.Create(license).Error)
	return license
}

func (suite *LicenseServiceTestSuite) TestGenerateUniqueKeyFormat() {
	key, err := suite.service.GenerateUniqueKey(suite.db)
	suite.NoError(err)
	suite.True(utils.IsValidLicenseKey(key))
}

func (suite *LicenseServiceTestSuite) TestVerifyUnknownKey() {
	_, err := suite.service.Verify("AAAAA-AAAAA-AAAAA", "")
	suite.Error(err)
	suite.Equal(apperrors.KindNotFound, apperrors.KindOf(err))
}

func (suite *LicenseServiceTestSuite) TestVerifyInactiveLicense() {
	suite.createLicense("BBBBB-BBBBB-BBBBB", "alice", false)

	_, err := suite.service.Verify("BBBBB-BBBBB-BBBBB", "fp-1")
	suite.Error(err)
	suite.Equal(apperrors.KindConflict, apperrors.KindOf(err))

	// The rejected validation must not touch counters.
	var license models.License
	suite.NoError(suite.db.First(&license, "key = ?", "BBBBB-BBBBB-BBBBB").Error)
	suite.Equal(int64(0), license.ActivationCount)
	suite.Nil(license.HWID)
}

func (suite *LicenseServiceTestSuite) TestVerifyWithoutFingerprint() {
	suite.createLicense("CCCCC-CCCCC-CCCCC", "alice", true)

	result, err := suite.service.Verify("CCCCC-CCCCC-CCCCC", "")
	suite.NoError(err)
	suite.True(result.Valid)
	suite.False(result.Bound)
	suite.Equal("alice", result.Username)

	var license models.License
	suite.NoError(suite.db.First(&license, "key = ?", "CCCCC-CCCCC-CCCCC").Error)
	suite.Nil(license.HWID)
	suite.Equal(int64(1), license.ActivationCount)
	suite.NotNil(license.LastValidated)
}

func (suite *LicenseServiceTestSuite) TestVerifyBindsOnFirstUse() {
	suite.createLicense("DDDDD-DDDDD-DDDDD", "alice", true)

	result, err := suite.service.Verify("DDDDD-DDDDD-DDDDD", "fp-1")
	suite.NoError(err)
	suite.True(result.Valid)
	suite.True(result.Bound)

	var license models.License
	suite.NoError(suite.db.First(&license, "key = ?", "DDDDD-DDDDD-DDDDD").Error)
	suite.Require().NotNil(license.HWID)
	suite.Equal("fp-1", *license.HWID)
	suite.NotNil(license.LastActivated)
}

func (suite *LicenseServiceTestSuite) TestVerifyRejectsOtherDevice() {
	suite.createLicense("EEEEE-EEEEE-EEEEE", "alice", true)

	_, err := suite.service.Verify("EEEEE-EEEEE-EEEEE", "fp-1")
	suite.NoError(err)

	_, err = suite.service.Verify("EEEEE-EEEEE-EEEEE", "fp-2")
	suite.Error(err)
	suite.Equal(apperrors.KindConflict, apperrors.KindOf(err))

	details := apperrors.DetailsOf(err)
	suite.Require().NotNil(details)
	suite.Equal(true, details["bound"])
	suite.Equal("fp-1", details["current_hwid"])

	// Binding must survive the rejected attempt.
	var license models.License
	suite.NoError(suite.db.First(&license, "key = ?", "EEEEE-EEEEE-EEEEE").Error)
	suite.Equal("fp-1", *license.HWID)
	suite.Equal(int64(1), license.ActivationCount)
}

func (suite *LicenseServiceTestSuite) TestVerifySameDeviceRevalidates() {
	suite.createLicense("FFFFF-FFFFF-FFFFF", "alice", true)

	_, err := suite.service.Verify("FFFFF-FFFFF-FFFFF", "fp-1")
	suite.NoError(err)
	_, err = suite.service.Verify("FFFFF-FFFFF-FFFFF", "fp-1")
	suite.NoError(err)

	var license models.License
	suite.NoError(suite.db.First(&license, "key = ?", "FFFFF-FFFFF-FFFFF").Error)
	suite.Equal(int64(2), license.ActivationCount)
}

func (suite *LicenseServiceTestSuite) TestResetHWIDAllowsRebinding() {
	suite.createLicense("GGGGG-GGGGG-GGGGG", "alice", true)

	_, err := suite.service.Verify("GGGGG-GGGGG-GGGGG", "fp-1")
	suite.NoError(err)

	suite.NoError(suite.service.ResetHWID("GGGGG-GGGGG-GGGGG"))

	result, err := suite.service.Verify("GGGGG-GGGGG-GGGGG", "fp-2")
	suite.NoError(err)
	suite.True(result.Valid)

	var license models.License
	suite.NoError(suite.db.First(&license, "key = ?", "GGGGG-GGGGG-GGGGG").Error)
	suite.Equal("fp-2", *license.HWID)
}

func (suite *LicenseServiceTestSuite) TestResetHWIDUnknownKey() {
	err := suite.service.ResetHWID("ZZZZZ-ZZZZZ-ZZZZZ")
	suite.Error(err)
	suite.Equal(apperrors.KindNotFound, apperrors.KindOf(err))
}

func (suite *LicenseServiceTestSuite) TestStats() {
	suite.createLicense("HHHHH-HHHHH-HHHHH", "alice", true)
	suite.createLicense("IIIII-IIIII-IIIII", "bob", true)
	suite.createLicense("JJJJJ-JJJJJ-JJJJJ", "carol", false)

	_, err := suite.service.Verify("HHHHH-HHHHH-HHHHH", "fp-1")
	suite.NoError(err)

	stats, err := suite.service.Stats()
	suite.NoError(err)
	suite.Equal(int64(3), stats.TotalLicenses)
	suite.Equal(int64(2), stats.ActiveLicenses)
	suite.Equal(int64(1), stats.BoundLicenses)
	suite.Equal(int64(1), stats.ActivationsLast24Hours)
	suite.Equal(int64(1), stats.ValidationsLast24Hours)
}

func (suite *LicenseServiceTestSuite) TestCountForUser() {
	suite.createLicense("KKKKK-KKKKK-KKKKK", "alice", true)
	suite.createLicense("LLLLL-LLLLL-LLLLL", "alice", true)

	count, err := suite.service.CountForUser("alice")
	suite.NoError(err)
	suite.Equal(int64(2), count)

	count, err = suite.service.CountForUser("nobody")
	suite.NoError(err)
	suite.Equal(int64(0), count)
}

func TestLicenseServiceSuite(t *testing.T) {
	suite.Run(t, new(LicenseServiceTestSuite))
}
