package dto

// ConnectedEventDTO - payload события connected при установке stream
type ConnectedEventDTO struct {
	Message          string `json:"message"`
	UpdateIntervalMs int64  `json:"update_interval_ms"`
}

// AssessmentEventDTO - payload события assessment
type AssessmentEventDTO struct {
	Success bool           `json:"success"`
	Data    *AssessmentDTO `json:"data"`
}

// ErrorEventDTO - payload события error (соединение при этом не закрывается)
type ErrorEventDTO struct {
	Message string `json:"message"`
}
