package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// quantities go out as JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

// Unit of an order quantity.
type Unit string

const (
	UnitUnits  Unit = "Unidades"
	UnitKG     Unit = "KG"
	UnitM      Unit = "M"
	UnitM2     Unit = "M2"
	UnitM3     Unit = "M3"
	UnitPieces Unit = "Peças"
)

var OrderUnits = []Unit{UnitUnits, UnitKG, UnitM, UnitM2, UnitM3, UnitPieces}

func (u Unit) Valid() bool {
	for _, v := range OrderUnits {
		if u == v {
			return true
		}
	}
	return false
}

// MaterialUnit is the unit of a material line. It has no "Unidades".
type MaterialUnit string

const (
	MaterialPieces MaterialUnit = "Peças"
	MaterialKG     MaterialUnit = "KG"
	MaterialM      MaterialUnit = "M"
	MaterialM2     MaterialUnit = "M2"
	MaterialM3     MaterialUnit = "M3"
)

var MaterialUnits = []MaterialUnit{MaterialPieces, MaterialKG, MaterialM, MaterialM2, MaterialM3}

func (u MaterialUnit) Valid() bool {
	for _, v := range MaterialUnits {
		if u == v {
			return true
		}
	}
	return false
}

type OrderStatus string

const (
	StatusOpen OrderStatus = "open"
	StatusLate OrderStatus = "late"
	StatusDone OrderStatus = "done"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusLate, StatusDone:
		return true
	}
	return false
}

// ProcessName is one step of the fixed manufacturing pipeline.
type ProcessName string

const (
	ProcessLaserCut ProcessName = "Corte a laser"
	ProcessRolling  ProcessName = "Calandragem"
	ProcessBending  ProcessName = "Dobra"
	ProcessAssembly ProcessName = "Montagem"
	ProcessWelding  ProcessName = "Soldagem"
	ProcessPainting ProcessName = "Pintura"
)

// ProcessNames lists the pipeline in canonical order.
var ProcessNames = []ProcessName{
	ProcessLaserCut,
	ProcessRolling,
	ProcessBending,
	ProcessAssembly,
	ProcessWelding,
	ProcessPainting,
}

// Rank returns the position of the step in the pipeline, or -1.
func (p ProcessName) Rank() int {
	for i, v := range ProcessNames {
		if p == v {
			return i
		}
	}
	return -1
}

func (p ProcessName) Valid() bool { return p.Rank() >= 0 }

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleUser }

type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

func (s UserStatus) Valid() bool { return s == UserActive || s == UserInactive }

// Company is a client company orders are made for.
type Company struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CNPJ      *string   `db:"cnpj" json:"cnpj"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Order is a production order header. Processes and Materials are only
// filled when the order was loaded with its children.
type Order struct {
	ID             int64           `db:"id" json:"id"`
	CompanyID      int64           `db:"company_id" json:"company_id"`
	CompanyName    string          `db:"company_name" json:"company_name"`
	Title          string          `db:"title" json:"title"`
	Qty            decimal.Decimal `db:"qty" json:"qty"`
	Unit           Unit            `db:"unit" json:"unit"`
	ClientDeadline Date            `db:"client_deadline" json:"client_deadline"`
	FinalDeadline  Date            `db:"final_deadline" json:"final_deadline"`
	Status         OrderStatus     `db:"status" json:"status"`
	Version        int             `db:"version" json:"version"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`

	Processes []ProcessStep  `db:"-" json:"processes,omitzero"`
	Materials []MaterialLine `db:"-" json:"materials,omitzero"`
}

type ProcessStep struct {
	ID          int64       `db:"id" json:"id"`
	OrderID     int64       `db:"order_id" json:"order_id"`
	Name        ProcessName `db:"name" json:"name"`
	PlannedDate Date        `db:"planned_date" json:"planned_date"`
	Done        bool        `db:"done" json:"done"`
}

type MaterialLine struct {
	ID          int64           `db:"id" json:"id"`
	OrderID     int64           `db:"order_id" json:"order_id"`
	Description string          `db:"description" json:"description"`
	Qty         decimal.Decimal `db:"qty" json:"qty"`
	Unit        MaterialUnit    `db:"unit" json:"unit"`
	InStock     bool            `db:"in_stock" json:"in_stock"`
}

// MaxQty is the largest quantity the DECIMAL(12,3) columns hold.
var MaxQty = decimal.RequireFromString("999999999.999")

// QtyScale is the number of decimal places stored for quantities.
const QtyScale = 3

// ValidQty reports whether d fits the quantity columns without rounding.
func ValidQty(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(MaxQty) && d.Equal(d.Truncate(QtyScale))
}

// DefaultProcesses returns the full pipeline with no dates and nothing done.
func DefaultProcesses() []ProcessStep {
	steps := make([]ProcessStep, 0, len(ProcessNames))
	for _, name := range ProcessNames {
		steps = append(steps, ProcessStep{Name: name})
	}
	return steps
}

// OrderFilter narrows the order list.
type OrderFilter struct {
	Status       OrderStatus
	Query        string
	WithChildren bool
}

// OrderPatch is a validated sparse update. Nil header fields are left
// untouched; children are replaced only when the matching Replace flag is set.
type OrderPatch struct {
	CompanyID      *int64
	Title          *string
	Qty            *decimal.Decimal
	Unit           *Unit
	ClientDeadline *Date
	FinalDeadline  *Date
	Status         *OrderStatus

	ReplaceProcesses bool
	Processes        []ProcessStep
	ReplaceMaterials bool
	Materials        []MaterialLine

	ExpectedVersion *int
}

// User is an account that can sign in.
type User struct {
	ID           int64      `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	PasswordHash *string    `db:"password_hash" json:"-"`
	Role         Role       `db:"role" json:"role"`
	Status       UserStatus `db:"status" json:"status"`
	ResetToken   *string    `db:"reset_token" json:"-"`
	ResetExpires *time.Time `db:"reset_expires" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
