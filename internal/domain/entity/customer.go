package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerTypes tipos válidos.
var CustomerTypes = []string{"individual", "business", "enterprise", "government"}

// CustomerTiers niveles válidos, de menor a mayor.
var CustomerTiers = []string{"bronze", "silver", "gold", "platinum", "diamond"}

// Customer cliente de una organización. CustomerCode sale de una secuencia por organización.
type Customer struct {
	ID                     string          `json:"id"`
	OrganizationID         string          `json:"organization_id"`
	CustomerCode           string          `json:"customer_code"`
	Name                   string          `json:"name"`
	Email                  *string         `json:"email"`
	Phone                  *string         `json:"phone"`
	CompanyName            *string         `json:"company_name"`
	CustomerType           string          `json:"customer_type"`
	CustomerTier           string          `json:"customer_tier"`
	BillingAddress         map[string]any  `json:"billing_address"`
	ShippingAddress        map[string]any  `json:"shipping_address"`
	AssignedRepresentative *string         `json:"assigned_representative"`
	PaymentTerms           int             `json:"payment_terms"`
	CreditLimit            decimal.Decimal `json:"credit_limit"`
	Notes                  *string         `json:"notes"`
	IsActive               bool            `json:"is_active"`
	Version                int64           `json:"version"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}
