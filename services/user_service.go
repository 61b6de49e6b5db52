package services

import (
	"errors"
	"log"
	"strings"

	"github.com/badoux/checkmail"
	"gorm.io/gorm"

	"github.com/johnolven/swarm/models"
)

type UserService struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewUserService(db *gorm.DB, logger *log.Logger) *UserService {
	return &UserService{DB: db, Logger: logger}
}

type SignupInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name"`
}

// CreateUser registers a human account. Passwords are stored verbatim
// for now; hashing is deferred until the auth service is split out.
func (s *UserService) CreateUser(input SignupInput) (*models.User, error) {
	if err := checkmail.ValidateFormat(input.Email); err != nil {
		return nil, ValidationError("Invalid email address")
	}

	var existing int64
	if err := s.DB.Model(&models.User{}).Where("email = ?", input.Email).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ConflictError("User with this email already exists")
	}

	name := input.Name
	if name == "" {
		name = strings.Split(input.Email, "@")[0]
	}

	user := models.User{Email: input.Email, Password: input.Password, Name: name}
	if err := s.DB.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) LoginUser(email, password string) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ForbiddenError("Invalid email or password")
		}
		return nil, err
	}
	if user.Password != password {
		return nil, ForbiddenError("Invalid email or password")
	}
	return &user, nil
}

func (s *UserService) GetUserByID(userID string) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("User not found")
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserService) UpdateUserName(userID, name string) (*models.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if err := s.DB.Model(user).Update("name", name).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) UpdateUserEmail(userID, newEmail string) (*models.User, error) {
	if err := checkmail.ValidateFormat(newEmail); err != nil {
		return nil, ValidationError("Invalid email address")
	}

	var existing models.User
	err := s.DB.First(&existing, "email = ?", newEmail).Error
	if err == nil && existing.ID != userID {
		return nil, ConflictError("Email already in use")
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if err := s.DB.Model(user).Update("email", newEmail).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) UpdateUserPassword(userID, currentPassword, newPassword string) (*models.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user.Password != currentPassword {
		return nil, ForbiddenError("Current password is incorrect")
	}
	if len(newPassword) < 6 {
		return nil, ValidationError("Password must be at least 6 characters")
	}
	if err := s.DB.Model(user).Update("password", newPassword).Error; err != nil {
		return nil, err
	}
	return user, nil
}
