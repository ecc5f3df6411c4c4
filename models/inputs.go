package models

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Optional tells a field that was absent from a JSON body apart from one
// that was sent, including an explicit null.
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

func Some[T any](v T) Optional[T] { return Optional[T]{Value: v, Set: true} }

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(b, []byte("null")) {
		var zero T
		o.Value = zero
		o.Null = true
		return nil
	}
	o.Null = false
	return json.Unmarshal(b, &o.Value)
}

// ProcessInput is one checklist step as sent by clients.
type ProcessInput struct {
	Name        ProcessName `json:"name" validate:"required,process_name"`
	PlannedDate Date        `json:"planned_date"`
	Done        bool        `json:"done"`
}

// MaterialInput is one material line as sent by clients.
type MaterialInput struct {
	Description string          `json:"description" validate:"required,max=255"`
	Qty         decimal.Decimal `json:"qty" validate:"qty"`
	Unit        MaterialUnit    `json:"unit" validate:"omitempty,material_unit"`
	InStock     bool            `json:"in_stock"`
}

// CreateOrderInput is the body of POST /orders. An omitted or empty
// Processes list seeds the default pipeline.
type CreateOrderInput struct {
	CompanyID      int64           `json:"company_id" validate:"required,gt=0"`
	Title          string          `json:"title" validate:"required,max=190"`
	Qty            decimal.Decimal `json:"qty" validate:"qty"`
	Unit           Unit            `json:"unit" validate:"omitempty,order_unit"`
	ClientDeadline Date            `json:"client_deadline"`
	FinalDeadline  Date            `json:"final_deadline"`
	Status         OrderStatus     `json:"status" validate:"omitempty,order_status"`
	Processes      []ProcessInput  `json:"processes" validate:"omitempty,dive"`
	Materials      []MaterialInput `json:"materials" validate:"omitempty,dive"`
}

// PatchOrderInput is the body of PATCH /orders/{id}. Absent fields are left
// alone; a present processes or materials array replaces the whole collection.
type PatchOrderInput struct {
	CompanyID      Optional[int64]           `json:"company_id"`
	Title          Optional[string]          `json:"title"`
	Qty            Optional[decimal.Decimal] `json:"qty"`
	Unit           Optional[Unit]            `json:"unit"`
	ClientDeadline Optional[Date]            `json:"client_deadline"`
	FinalDeadline  Optional[Date]            `json:"final_deadline"`
	Status         Optional[OrderStatus]     `json:"status"`
	Processes      Optional[[]ProcessInput]  `json:"processes"`
	Materials      Optional[[]MaterialInput] `json:"materials"`
	Version        Optional[int]             `json:"version"`
}

type CreateCompanyInput struct {
	Name string `json:"name" validate:"required,max=190"`
	CNPJ string `json:"cnpj"`
}

type PatchCompanyInput struct {
	Name Optional[string] `json:"name"`
	CNPJ Optional[string] `json:"cnpj"`
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=190"`
	Email    string `json:"email" validate:"required,email,max=190"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ResetPasswordInput struct {
	Token       string `json:"token"`
	Password    string `json:"password"`
	NewPassword string `json:"newPassword"`
}

// NewUserInput is the body of POST /users (admin only).
type NewUserInput struct {
	Email    string     `json:"email" validate:"required,email,max=190"`
	Name     string     `json:"name" validate:"max=190"`
	Password string     `json:"password" validate:"omitempty,min=6,max=72"`
	Role     Role       `json:"role" validate:"omitempty,oneof=admin user"`
	Status   UserStatus `json:"status" validate:"omitempty,oneof=active inactive"`
}

type PatchUserInput struct {
	Name     Optional[string]     `json:"name"`
	Email    Optional[string]     `json:"email"`
	Role     Optional[Role]       `json:"role"`
	Status   Optional[UserStatus] `json:"status"`
	Password Optional[string]     `json:"password"`
}
