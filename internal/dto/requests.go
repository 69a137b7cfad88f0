package dto

import "time"

// RegisterRequest represents the request to register a user
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
	Username string `json:"username"`
}

// LoginRequest represents the request to log in
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the request to refresh a token pair
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RequestOtpRequest — запрос пропуска охранником на проходной.
type RequestOtpRequest struct {
	StudentID    string `json:"student_id" binding:"required"`
	VisitorName  string `json:"visitor_name" binding:"required"`
	VisitorPhone string `json:"visitor_phone" binding:"required"`
	Purpose      string `json:"purpose"`
	GroupSize    int    `json:"group_size"`
}

// VerifyOtpRequest — проверка кода, названного посетителем.
type VerifyOtpRequest struct {
	VisitorPhone string `json:"visitor_phone" binding:"required"`
	Code         string `json:"code" binding:"required"`
}

// RequestOverrideRequest — запрос на одобрение внеурочного визита.
type RequestOverrideRequest struct {
	StudentID    string `json:"student_id" binding:"required"`
	VisitorName  string `json:"visitor_name" binding:"required"`
	VisitorPhone string `json:"visitor_phone" binding:"required"`
	Reason       string `json:"reason" binding:"required"`
	Purpose      string `json:"purpose"`
	Urgency      string `json:"urgency"`
}

// ResolveRequest — решение коменданта по запросу или заявке.
type ResolveRequest struct {
	Approve bool    `json:"approve"`
	Note    *string `json:"note"`
}

// CreateOutpassRequest — заявка студента на увольнительную.
type CreateOutpassRequest struct {
	Reason         string    `json:"reason" binding:"required"`
	Destination    string    `json:"destination" binding:"required"`
	LeaveAt        time.Time `json:"leave_at" binding:"required"`
	ExpectedReturn time.Time `json:"expected_return" binding:"required"`
}

// UpdatePreferencesRequest — настройки приёма посетителей.
type UpdatePreferencesRequest struct {
	AllowOutOfHours   bool `json:"allow_out_of_hours"`
	PhotoVerification bool `json:"photo_verification"`
	MaxVisitorsPerDay int  `json:"max_visitors_per_day" binding:"required"`
	AutoApproveParent bool `json:"auto_approve_parent"`
}

// AddContactRequest — новый контакт белого списка или резервный контакт.
type AddContactRequest struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Relation string `json:"relation"`
	IsParent bool   `json:"is_parent"`
}
