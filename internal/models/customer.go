package models

import (
	"strings"
	"time"
)

// Customer is a buyer identity referenced by sales
type Customer struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	FirstName      string    `gorm:"size:100;not null" json:"first_name"`
	LastName       string    `gorm:"size:100;not null" json:"last_name"`
	Email          *string   `gorm:"size:255;index" json:"email"`
	Phone          *string   `gorm:"size:30" json:"phone"`
	Address        *string   `gorm:"type:text" json:"address"`
	DocumentType   *string   `gorm:"size:20" json:"document_type"`
	DocumentNumber *string   `gorm:"size:50;uniqueIndex" json:"document_number"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Associations
	Sales []Sale `gorm:"foreignKey:CustomerID" json:"sales,omitempty"`
}

// TableName specifies the table name for Customer
func (Customer) TableName() string {
	return "customers"
}

// FullName returns first and last name joined by a space
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// CustomerResponse is the JSON response format for customers
type CustomerResponse struct {
	ID             uint      `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	FullName       string    `json:"full_name"`
	Email          *string   `json:"email"`
	Phone          *string   `json:"phone"`
	Address        *string   `json:"address"`
	DocumentType   *string   `json:"document_type"`
	DocumentNumber *string   `json:"document_number"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ToResponse converts Customer to CustomerResponse
func (c *Customer) ToResponse() CustomerResponse {
	return CustomerResponse{
		ID:             c.ID,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		FullName:       c.FullName(),
		Email:          c.Email,
		Phone:          c.Phone,
		Address:        c.Address,
		DocumentType:   c.DocumentType,
		DocumentNumber: c.DocumentNumber,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
