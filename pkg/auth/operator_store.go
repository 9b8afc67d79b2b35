package auth

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrOperatorNotFound   = errors.New("operator not found")
	ErrOperatorExists     = errors.New("operator already exists")
	ErrEmptyPassword      = errors.New("password cannot be empty")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidUsername    = errors.New("username must be 3-50 alphanumeric characters")
	ErrPasswordHashFailed = errors.New("failed to hash password")
)

const (
	MinPasswordLength = 8
	MinUsernameLength = 3
	MaxUsernameLength = 50
	BcryptCost        = 12 // Cost factor for bcrypt
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Operator represents a console account. Its role decides the audit
// clearance of every token issued for it.
type Operator struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // Never serialize password hash
	Role         string `json:"role"`
	CreatedAt    int64  `json:"created_at"`
}

// OperatorStore manages operator accounts and credential checks
type OperatorStore struct {
	operators   map[string]*Operator // operatorID -> Operator
	usernameMap map[string]string    // username -> operatorID
	mu          sync.RWMutex
}

// NewOperatorStore creates a new operator store
func NewOperatorStore() *OperatorStore {
	return &OperatorStore{
		operators:   make(map[string]*Operator),
		usernameMap: make(map[string]string),
	}
}

// CreateOperator creates a new operator with hashed password
func (s *OperatorStore) CreateOperator(username, password, role string) (*Operator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateUsername(username); err != nil {
		return nil, err
	}

	if _, exists := s.usernameMap[username]; exists {
		return nil, fmt.Errorf("%w: %s", ErrOperatorExists, username)
	}

	if err := validatePassword(password); err != nil {
		return nil, err
	}

	if !validRoles[role] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordHashFailed, err)
	}

	operator := &Operator{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hashedPassword,
		Role:         role,
		CreatedAt:    time.Now().Unix(),
	}

	s.operators[operator.ID] = operator
	s.usernameMap[username] = operator.ID

	return operator, nil
}

// GetOperatorByUsername retrieves an operator by username
func (s *OperatorStore) GetOperatorByUsername(username string) (*Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if username == "" {
		return nil, ErrInvalidUsername
	}

	operatorID, exists := s.usernameMap[username]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrOperatorNotFound, username)
	}

	operator, exists := s.operators[operatorID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrOperatorNotFound, username)
	}

	return operator, nil
}

// GetOperatorByID retrieves an operator by ID
func (s *OperatorStore) GetOperatorByID(operatorID string) (*Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if operatorID == "" {
		return nil, ErrOperatorNotFound
	}

	operator, exists := s.operators[operatorID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrOperatorNotFound, operatorID)
	}

	return operator, nil
}

// VerifyPassword verifies a password against an operator's stored hash
func (s *OperatorStore) VerifyPassword(operator *Operator, password string) bool {
	if operator == nil || password == "" {
		return false
	}

	err := bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(password))
	return err == nil
}

// ListOperators returns all operators
func (s *OperatorStore) ListOperators() []*Operator {
	s.mu.RLock()
	defer s.mu.RUnlock()

	operators := make([]*Operator, 0, len(s.operators))
	for _, operator := range s.operators {
		operators = append(operators, operator)
	}

	return operators
}

// UpdateOperatorRole updates an operator's role. Already-issued tokens keep
// the clearance they were minted with until they expire.
func (s *OperatorStore) UpdateOperatorRole(operatorID, newRole string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !validRoles[newRole] {
		return fmt.Errorf("%w: %s", ErrInvalidRole, newRole)
	}

	operator, exists := s.operators[operatorID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrOperatorNotFound, operatorID)
	}

	operator.Role = newRole

	return nil
}

// DeleteOperator deletes an operator
func (s *OperatorStore) DeleteOperator(operatorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	operator, exists := s.operators[operatorID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrOperatorNotFound, operatorID)
	}

	delete(s.operators, operatorID)
	delete(s.usernameMap, operator.Username)

	return nil
}

// ChangePassword changes an operator's password
func (s *OperatorStore) ChangePassword(operatorID, newPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validatePassword(newPassword); err != nil {
		return err
	}

	operator, exists := s.operators[operatorID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrOperatorNotFound, operatorID)
	}

	hashedPassword, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordHashFailed, err)
	}

	operator.PasswordHash = hashedPassword

	return nil
}

// Helper functions

func validateUsername(username string) error {
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return ErrInvalidUsername
	}

	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}

	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}

	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}

	return nil
}

func hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}

	return string(hashedBytes), nil
}
