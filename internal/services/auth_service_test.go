// internal/services/auth_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/radiantoptimizer/backend/internal/apperrors"
	"github.com/radiantoptimizer/backend/internal/models"
	"github.com/radiantoptimizer/backend/internal/utils"
)

type AuthServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *AuthService
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.db = setupTestDB(suite.T())

	cfg := testConfig()
	utils.SetJWTSecret(cfg.JWT.SecretKey)
	suite.service = NewAuthService(suite.db, cfg)
}

func (suite *AuthServiceTestSuite) register(username, email string) *AuthResponse {
	resp, err := suite.service.Register(RegisterRequest{
		Username: username,
		Email:    email,
		Password: "Sup3rSecret",
	})
	suite.Require().NoError(err)
	return resp
}

func (suite *AuthServiceTestSuite) TestRegister() {
	resp := suite.register("alice", "alice@example.com")

	suite.NotEmpty(resp.Token)
	suite.NotEmpty(resp.RefreshToken)
	suite.Equal(models.AccountTypeFree, resp.User.AccountType)
	suite.NotEmpty(resp.User.PasswordHash)
	suite.NotEqual("Sup3rSecret", resp.User.PasswordHash)

	claims, err := utils.ValidateJWT(resp.Token)
	suite.NoError(err)
	suite.Equal("alice", claims.Username)
}

func (suite *AuthServiceTestSuite) TestRegisterRejectsWeakPassword() {
	_, err := suite.service.Register(RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password",
	})
	suite.Error(err)
	suite.Equal(apperrors.KindValidation, apperrors.KindOf(err))
}

func (suite *AuthServiceTestSuite) TestRegisterDuplicateUsername() {
	suite.register("alice", "alice@example.com")

	_, err := suite.service.Register(RegisterRequest{
		Username: "alice",
		Email:    "other@example.com",
		Password: "Sup3rSecret",
	})
	suite.Error(err)
	suite.Equal(apperrors.KindConflict, apperrors.KindOf(err))
}

func (suite *AuthServiceTestSuite) TestLogin() {
	suite.register("alice", "alice@example.com")

	resp, err := suite.service.Login(LoginRequest{
		Email:    "alice@example.com",
		Password: "Sup3rSecret",
	})
	suite.NoError(err)
	suite.Equal("alice", resp.User.Username)
	suite.NotNil(resp.User.LastLoginAt)
}

func (suite *AuthServiceTestSuite) TestLoginWrongPassword() {
	suite.register("alice", "alice@example.com")

	_, err := suite.service.Login(LoginRequest{
		Email:    "alice@example.com",
		Password: "WrongPass1",
	})
	suite.Error(err)
	suite.Equal(apperrors.KindUnauthorized, apperrors.KindOf(err))
}

func (suite *AuthServiceTestSuite) TestRefreshToken() {
	resp := suite.register("alice", "alice@example.com")

	refreshed, err := suite.service.RefreshToken(resp.RefreshToken)
	suite.NoError(err)
	suite.NotEmpty(refreshed.Token)
	suite.Equal("alice", refreshed.User.Username)

	_, err = suite.service.RefreshToken("garbage")
	suite.Error(err)
	suite.Equal(apperrors.KindUnauthorized, apperrors.KindOf(err))
}

func (suite *AuthServiceTestSuite) TestGetProfile() {
	resp := suite.register("alice", "alice@example.com")

	user, err := suite.service.GetProfile(resp.User.ID)
	suite.NoError(err)
	suite.Equal("alice", user.Username)
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
